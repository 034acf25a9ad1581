// Package sections is the schema registry for page section types. Prompt
// synthesis, the admin form, strict parse validation and the default content
// of a newly added section are all derived from the tables below.
package sections

import (
	"site-cms/internal/common/errors"
	"site-cms/internal/models"
)

// Kind is the shape of a single field.
type Kind string

const (
	KindText       Kind = "text"
	KindTextarea   Kind = "textarea"
	KindMarkdown   Kind = "markdown"
	KindScalar     Kind = "scalar" // string or number, e.g. a stat figure
	KindLink       Kind = "link"   // {text, link}
	KindStringList Kind = "string_list"
	KindList       Kind = "list" // ordered list of objects described by Item
)

type Field struct {
	Name        string
	Label       string
	Kind        Kind
	Required    bool
	Placeholder string
	Rows        int
	Item        []Field
	AddLabel    string
}

type Schema struct {
	Type        models.SectionType
	Label       string
	Description string
	Fields      []Field
	Default     models.Content
}

var (
	linkItem = []Field{
		{Name: "text", Label: "Text", Kind: KindText},
		{Name: "link", Label: "Link", Kind: KindText},
	}
	statItem = []Field{
		{Name: "number", Label: "number", Kind: KindScalar},
		{Name: "label", Label: "label", Kind: KindText},
	}
)

// registry is ordered; the order is the canonical section order.
var registry = []*Schema{
	{
		Type:        models.SectionHero,
		Label:       "Hero",
		Description: "Full-width hero with headline, CTAs, and stats",
		Fields: []Field{
			{Name: "tag", Label: "Tag (above headline)", Kind: KindText, Placeholder: "Automation · Engineering · Growth"},
			{Name: "headline", Label: "Headline", Kind: KindText, Required: true, Placeholder: "YOUR HEADLINE"},
			{Name: "subheadline", Label: "Subheadline", Kind: KindTextarea, Rows: 2},
			{Name: "cta_primary", Label: "CTA Primary", Kind: KindLink, Item: linkItem},
			{Name: "cta_secondary", Label: "CTA Secondary", Kind: KindLink, Item: linkItem},
			{Name: "stats", Label: "Stats", Kind: KindList, Item: statItem, AddLabel: "+ Add Stat"},
		},
		Default: models.Content{
			"tag":           "",
			"headline":      "YOUR HEADLINE HERE",
			"subheadline":   "",
			"cta_primary":   map[string]interface{}{"text": "Get Started", "link": "#contact"},
			"cta_secondary": map[string]interface{}{"text": "Learn More", "link": "#services"},
			"stats":         []interface{}{map[string]interface{}{"number": "—", "label": "Stat Label"}},
		},
	},
	{
		Type:        models.SectionFeaturesGrid,
		Label:       "Features Grid",
		Description: "2-3 column feature/capability cards",
		Fields: []Field{
			{Name: "tag", Label: "Tag", Kind: KindText},
			{Name: "title", Label: "Section Title", Kind: KindText},
			{Name: "body", Label: "Section Body", Kind: KindTextarea, Rows: 2},
			{Name: "items", Label: "Feature Cards", Kind: KindList, AddLabel: "+ Add Feature Card", Item: []Field{
				{Name: "number", Label: "number", Kind: KindScalar},
				{Name: "tag", Label: "tag", Kind: KindText},
				{Name: "title", Label: "title", Kind: KindText},
				{Name: "description", Label: "description", Kind: KindTextarea},
				{Name: "features", Label: "features", Kind: KindStringList},
				{Name: "link", Label: "link", Kind: KindText},
			}},
		},
		Default: models.Content{
			"tag":   "What We Do",
			"title": "Our Features",
			"body":  "",
			"items": []interface{}{map[string]interface{}{
				"number": "01", "tag": "Feature", "title": "Feature Title",
				"description": "Feature description.", "features": []interface{}{}, "link": "",
			}},
		},
	},
	{
		Type:        models.SectionServicesGrid,
		Label:       "Services Grid",
		Description: "3-column service cards with feature lists",
		Fields: []Field{
			{Name: "tag", Label: "Tag", Kind: KindText},
			{Name: "title", Label: "Section Title", Kind: KindText},
			{Name: "body", Label: "Section Body", Kind: KindTextarea, Rows: 2},
			{Name: "services", Label: "Services", Kind: KindList, AddLabel: "+ Add Service", Item: []Field{
				{Name: "number", Label: "number", Kind: KindScalar},
				{Name: "title", Label: "title", Kind: KindText},
				{Name: "description", Label: "description", Kind: KindTextarea},
				{Name: "features", Label: "features", Kind: KindStringList},
			}},
		},
		Default: models.Content{
			"tag":   "Services",
			"title": "What We Offer",
			"body":  "",
			"services": []interface{}{map[string]interface{}{
				"number": "01", "title": "Service Name",
				"description": "Service description.", "features": []interface{}{},
			}},
		},
	},
	{
		Type:        models.SectionProcessSteps,
		Label:       "Process Steps",
		Description: "Numbered steps grid on dark background",
		Fields: []Field{
			{Name: "tag", Label: "Tag", Kind: KindText},
			{Name: "title", Label: "Section Title", Kind: KindText},
			{Name: "body", Label: "Section Body", Kind: KindTextarea, Rows: 2},
			{Name: "steps", Label: "Steps", Kind: KindList, AddLabel: "+ Add Step", Item: []Field{
				{Name: "number", Label: "number", Kind: KindScalar},
				{Name: "title", Label: "title", Kind: KindText},
				{Name: "description", Label: "description", Kind: KindTextarea},
			}},
		},
		Default: models.Content{
			"tag":   "Our Process",
			"title": "How It Works",
			"body":  "",
			"steps": []interface{}{map[string]interface{}{
				"number": "01", "title": "Step One", "description": "Description of this step.",
			}},
		},
	},
	{
		Type:        models.SectionAboutStrip,
		Label:       "About Strip",
		Description: "About section with body text and stats",
		Fields: []Field{
			{Name: "tag", Label: "Tag", Kind: KindText},
			{Name: "title", Label: "Heading", Kind: KindText},
			{Name: "body", Label: "Body Text (use blank line for new paragraph)", Kind: KindTextarea, Rows: 4},
			{Name: "stats", Label: "Stats", Kind: KindList, Item: statItem, AddLabel: "+ Add Stat"},
		},
		Default: models.Content{
			"tag":   "About",
			"title": "About Us",
			"body":  "Tell your story here.",
			"stats": []interface{}{map[string]interface{}{"number": "—", "label": "Stat"}},
		},
	},
	{
		Type:        models.SectionCTABanner,
		Label:       "CTA Banner",
		Description: "Dark call-to-action with button and email",
		Fields: []Field{
			{Name: "headline", Label: "Headline", Kind: KindText},
			{Name: "body", Label: "Body Text", Kind: KindTextarea, Rows: 2},
			{Name: "cta_text", Label: "Button Text", Kind: KindText},
			{Name: "cta_link", Label: "Button Link", Kind: KindText, Placeholder: "#contact"},
			{Name: "email", Label: "Email Address", Kind: KindText, Placeholder: "hello@yourdomain.com"},
		},
		Default: models.Content{
			"headline": "Ready to get started?",
			"body":     "Contact us today.",
			"cta_text": "Get in Touch",
			"cta_link": "#contact",
			"email":    "",
		},
	},
	{
		Type:        models.SectionTextContent,
		Label:       "Text Content",
		Description: "Tag, title, and markdown body text",
		Fields: []Field{
			{Name: "tag", Label: "Tag (optional)", Kind: KindText},
			{Name: "title", Label: "Title", Kind: KindText},
			{Name: "body", Label: "Body (Markdown supported)", Kind: KindMarkdown, Rows: 6},
		},
		Default: models.Content{
			"tag":   "Overview",
			"title": "Section Title",
			"body":  "Your content here.",
		},
	},
}

var byType = func() map[models.SectionType]*Schema {
	m := make(map[models.SectionType]*Schema, len(registry))
	for _, s := range registry {
		m[s.Type] = s
	}
	return m
}()

// Lookup returns the schema for t or an UnknownSectionTypeError.
func Lookup(t models.SectionType) (*Schema, error) {
	if s, ok := byType[t]; ok {
		return s, nil
	}
	return nil, errors.NewUnknownSectionTypeError(string(t))
}

func IsKnown(t models.SectionType) bool {
	_, ok := byType[t]
	return ok
}

// Types returns every registered type in canonical order.
func Types() []models.SectionType {
	out := make([]models.SectionType, len(registry))
	for i, s := range registry {
		out[i] = s.Type
	}
	return out
}

// All returns every schema in canonical order.
func All() []*Schema {
	out := make([]*Schema, len(registry))
	copy(out, registry)
	return out
}

// DefaultContent returns a fresh copy of the starter content for t.
func DefaultContent(t models.SectionType) (models.Content, error) {
	s, err := Lookup(t)
	if err != nil {
		return nil, err
	}
	return deepCopy(s.Default).(map[string]interface{}), nil
}

func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case models.Content:
		return deepCopy(map[string]interface{}(val))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return val
	}
}
