// internal/models/generation.go
package models

type GenerationAction string

const (
	ActionPageContent    GenerationAction = "page_content"
	ActionSectionContent GenerationAction = "section_content"
	ActionPageRegen      GenerationAction = "page_regen"
	ActionSEO            GenerationAction = "seo"
)

// PageContentInput asks for a complete page for a new business.
type PageContentInput struct {
	BusinessName        string `json:"business_name"`
	BusinessDescription string `json:"business_description"`
	Tone                string `json:"tone"`
}

// SectionContentInput asks for one section's content.
type SectionContentInput struct {
	SectionID           string      `json:"section_id,omitempty"`
	SectionType         SectionType `json:"section_type"`
	BusinessDescription string      `json:"business_description"`
	Context             string      `json:"context"`
	Tone                string      `json:"tone"`
}

// SiblingPage is one entry of the roster used to cross-link regenerated CTAs.
type SiblingPage struct {
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	MetaDescription string `json:"meta_description"`
}

// PageRegenInput asks for all sections of an existing page.
type PageRegenInput struct {
	PageID            string        `json:"page_id,omitempty"`
	PageTitle         string        `json:"page_title"`
	PageSlug          string        `json:"page_slug"`
	PageType          PageType      `json:"page_type"`
	Tone              string        `json:"tone"`
	ExtraInstructions string        `json:"extra_instructions"`
	CurrentSections   []SectionType `json:"current_sections"`
	SiblingPages      []SiblingPage `json:"sibling_pages"`
}

// SEOInput asks for search metadata for a piece of content.
type SEOInput struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
}

// PageGeneration is the result of page_content and page_regen. Metadata is
// only present for page_content.
type PageGeneration struct {
	SiteName        string         `json:"site_name,omitempty"`
	MetaTitle       string         `json:"meta_title,omitempty"`
	MetaDescription string         `json:"meta_description,omitempty"`
	Sections        []SectionInput `json:"sections"`
}

type SEOResult struct {
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	Tags            []string `json:"tags"`
}
