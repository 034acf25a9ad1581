// Package prompt builds the model prompts for each generation action. Every
// prompt declares the exact JSON shape expected back, since that is the only
// contract the model is held to.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"site-cms/internal/common/errors"
	"site-cms/internal/models"
	"site-cms/internal/sections"
)

// DefaultTone is used when the caller leaves tone empty.
const DefaultTone = "professional"

// Tones offered by the admin UI. Any other value is passed through.
var Tones = []string{"professional", "friendly", "bold", "luxury", "minimal"}

// seoSystem frames the seo action; page actions carry no system prompt.
const seoSystem = `You are an expert content writer and SEO specialist.
Write professional, engaging metadata that reflects the content accurately.`

type Prompt struct {
	Action    models.GenerationAction
	System    string
	User      string
	MaxTokens int
}

// Budgets maps an action to its output token budget.
type Budgets func(action string) int

type Builder struct {
	budget Budgets
}

func NewBuilder(budget Budgets) *Builder {
	return &Builder{budget: budget}
}

// Build dispatches on action. payload must be the matching input type from
// the models package (value or pointer).
func (b *Builder) Build(action models.GenerationAction, payload interface{}) (*Prompt, error) {
	switch action {
	case models.ActionPageContent:
		in, ok := asPageContent(payload)
		if !ok {
			return nil, payloadError(action, payload)
		}
		return b.PageContent(in), nil
	case models.ActionSectionContent:
		in, ok := asSectionContent(payload)
		if !ok {
			return nil, payloadError(action, payload)
		}
		return b.SectionContent(in)
	case models.ActionPageRegen:
		in, ok := asPageRegen(payload)
		if !ok {
			return nil, payloadError(action, payload)
		}
		return b.PageRegen(in), nil
	case models.ActionSEO:
		in, ok := asSEO(payload)
		if !ok {
			return nil, payloadError(action, payload)
		}
		return b.SEO(in), nil
	default:
		return nil, errors.NewUnknownActionError(string(action))
	}
}

func payloadError(action models.GenerationAction, payload interface{}) error {
	return errors.NewValidationError(fmt.Sprintf("payload %T does not match action %s", payload, action))
}

func tone(t string) string {
	if strings.TrimSpace(t) == "" {
		return DefaultTone
	}
	return t
}

var whitespace = regexp.MustCompile(`\s+`)

// ContactEmail derives hello@<name lowercased, whitespace removed>.com.
func ContactEmail(businessName string) string {
	return "hello@" + whitespace.ReplaceAllString(strings.ToLower(businessName), "") + ".com"
}

func (b *Builder) PageContent(in models.PageContentInput) *Prompt {
	user := fmt.Sprintf(`Create a complete professional website for this business:

Business Name: %s
Description: %s
Tone: %s

Section type schemas (output EXACTLY these keys):
%s

Generate a full website with these sections in order:
1. hero (compelling headline, subheadline, 2 CTAs, 3 stats)
2. features_grid (2-3 key service/feature cards with bullet points)
3. services_grid (3 service offerings with features)
4. process_steps (4-6 process steps)
5. cta_banner (final call to action with email: %s)

Also include: site_name, meta_title (under 60 chars), meta_description (under 160 chars).

Return ONLY valid JSON (no markdown fences):
{
  "site_name": "...",
  "meta_title": "...",
  "meta_description": "...",
  "sections": [
    {"section_type": "hero", "content": {...}},
    ...
  ]
}`, in.BusinessName, in.BusinessDescription, tone(in.Tone), sections.DescribeAll(), ContactEmail(in.BusinessName))

	return &Prompt{
		Action:    models.ActionPageContent,
		User:      user,
		MaxTokens: b.budget(string(models.ActionPageContent)),
	}
}

// SectionContent fails with UnknownSectionTypeError for unregistered types.
func (b *Builder) SectionContent(in models.SectionContentInput) (*Prompt, error) {
	schema, err := sections.Lookup(in.SectionType)
	if err != nil {
		return nil, err
	}

	var ctx string
	if c := strings.TrimSpace(in.Context); c != "" {
		ctx = "Context: " + c + "\n"
	}

	user := fmt.Sprintf(`Generate content for a %q website section.

Business: %s
%sTone: %s

Required JSON schema: %s

Return ONLY valid JSON matching that schema exactly (no markdown fences).`,
		string(in.SectionType), in.BusinessDescription, ctx, tone(in.Tone), sections.Describe(schema))

	return &Prompt{
		Action:    models.ActionSectionContent,
		User:      user,
		MaxTokens: b.budget(string(models.ActionSectionContent)),
	}, nil
}

func (b *Builder) PageRegen(in models.PageRegenInput) *Prompt {
	var extra string
	if e := strings.TrimSpace(in.ExtraInstructions); e != "" {
		extra = "Additional instructions: " + e + "\n\n"
	}

	user := fmt.Sprintf(`Regenerate optimized content for this website page.

Page: %q
Context: %s
Tone: %s

%s

%s

%sSection type schemas (use EXACTLY these keys):
%s

Important:
- For the home page, reference the available service pages and include their links in CTAs/features
- Use compelling, conversion-focused copy
- Keep stats realistic and impactful
- CTAs should link to /#contact or specific service pages

Return ONLY valid JSON (no markdown fences):
{
  "sections": [
    {"section_type": "hero", "content": {...}},
    {"section_type": "features_grid", "content": {...}},
    ...
  ]
}`, in.PageTitle, PageContext(in), tone(in.Tone), SiblingRoster(in.SiblingPages), SectionOrder(in.CurrentSections), extra, sections.DescribeAll())

	return &Prompt{
		Action:    models.ActionPageRegen,
		User:      user,
		MaxTokens: b.budget(string(models.ActionPageRegen)),
	}
}

// SiblingRoster lists the other pages a regenerated page may link to.
func SiblingRoster(pages []models.SiblingPage) string {
	if len(pages) == 0 {
		return "No additional service pages on this site yet."
	}
	lines := make([]string, len(pages))
	for i, p := range pages {
		line := fmt.Sprintf("- %q at /%s", p.Title, p.Slug)
		if p.MetaDescription != "" {
			line += ": " + p.MetaDescription
		}
		lines[i] = line
	}
	return "Available service pages on this site:\n" + strings.Join(lines, "\n")
}

// SectionOrder asks the model to keep the current order, or to pick one.
func SectionOrder(current []models.SectionType) string {
	if len(current) == 0 {
		return "Choose the most appropriate 4-5 sections for this page type."
	}
	names := make([]string, len(current))
	for i, t := range current {
		names[i] = string(t)
	}
	return "Preserve this section order and types: " + strings.Join(names, " → ")
}

var nonKeyChars = regexp.MustCompile(`[^a-z_]`)

// contextKey picks the page context entry. Core pages are keyed by slug
// first, then by normalized title.
func contextKey(in models.PageRegenInput) string {
	pageType := in.PageType
	if pageType == "" {
		pageType = models.PageTypeService
	}
	if pageType != models.PageTypeCore {
		return string(pageType)
	}
	name := in.PageSlug
	if name == "" {
		name = in.PageTitle
	}
	name = whitespace.ReplaceAllString(strings.ToLower(name), "_")
	name = strings.ReplaceAll(name, "-", "_")
	return "core_" + nonKeyChars.ReplaceAllString(name, "")
}

// PageContext returns the page-type instruction block for a regeneration.
func PageContext(in models.PageRegenInput) string {
	switch contextKey(in) {
	case "core_home":
		return "This is the main home/landing page. It should give an overview of all services and link to specific service pages."
	case "core_about":
		return "This is the About Us page. Focus on company story, team values, process, and culture."
	case "core_contact":
		return "This is the Contact Us page. Focus on getting visitors to reach out, with contact options and reassurance."
	case "service":
		return fmt.Sprintf("This is a service detail page for %q. Focus deeply on this specific service, its benefits, process, and results.", in.PageTitle)
	case "other":
		return fmt.Sprintf("This is a landing page titled %q. Optimize for conversion and clarity.", in.PageTitle)
	default:
		return fmt.Sprintf("This page is titled %q.", in.PageTitle)
	}
}

// seoPreviewChars bounds how much body text the seo action sees.
const seoPreviewChars = 500

func (b *Builder) SEO(in models.SEOInput) *Prompt {
	user := fmt.Sprintf(`Analyze this content and generate SEO metadata.

Title: %s
Excerpt: %s
Content preview: %s

Return a JSON object (no markdown, just raw JSON) with:
{
  "meta_title": "SEO-optimized title under 60 chars",
  "meta_description": "Compelling meta description 150-160 chars",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}`, in.Title, in.Excerpt, truncateRunes(in.Content, seoPreviewChars))

	return &Prompt{
		Action:    models.ActionSEO,
		System:    seoSystem,
		User:      user,
		MaxTokens: b.budget(string(models.ActionSEO)),
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func asPageContent(p interface{}) (models.PageContentInput, bool) {
	switch v := p.(type) {
	case models.PageContentInput:
		return v, true
	case *models.PageContentInput:
		if v != nil {
			return *v, true
		}
	}
	return models.PageContentInput{}, false
}

func asSectionContent(p interface{}) (models.SectionContentInput, bool) {
	switch v := p.(type) {
	case models.SectionContentInput:
		return v, true
	case *models.SectionContentInput:
		if v != nil {
			return *v, true
		}
	}
	return models.SectionContentInput{}, false
}

func asPageRegen(p interface{}) (models.PageRegenInput, bool) {
	switch v := p.(type) {
	case models.PageRegenInput:
		return v, true
	case *models.PageRegenInput:
		if v != nil {
			return *v, true
		}
	}
	return models.PageRegenInput{}, false
}

func asSEO(p interface{}) (models.SEOInput, bool) {
	switch v := p.(type) {
	case models.SEOInput:
		return v, true
	case *models.SEOInput:
		if v != nil {
			return *v, true
		}
	}
	return models.SEOInput{}, false
}
