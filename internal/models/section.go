// internal/models/section.go
package models

import "time"

type SectionType string

const (
	SectionHero         SectionType = "hero"
	SectionFeaturesGrid SectionType = "features_grid"
	SectionServicesGrid SectionType = "services_grid"
	SectionProcessSteps SectionType = "process_steps"
	SectionAboutStrip   SectionType = "about_strip"
	SectionCTABanner    SectionType = "cta_banner"
	SectionTextContent  SectionType = "text_content"
)

// Content is a schema-shaped JSON object. Storage never validates it.
type Content map[string]interface{}

// Clone copies the top level so callers can substitute keys safely.
func (c Content) Clone() Content {
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type Section struct {
	ID           string      `json:"id"`
	PageID       string      `json:"page_id"`
	SectionType  SectionType `json:"section_type"`
	Content      Content     `json:"content"`
	DisplayOrder int         `json:"display_order"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// SectionInput is a section not yet persisted: generated output or a seed entry.
type SectionInput struct {
	SectionType SectionType `json:"section_type" yaml:"section_type"`
	Content     Content     `json:"content" yaml:"content"`
}

// PageWithSections is the resolved aggregate served to renderers.
type PageWithSections struct {
	Page     *Page      `json:"page"`
	Sections []*Section `json:"sections"`
}

// SectionTypes returns the type sequence of sections in order.
func SectionTypes(sections []*Section) []SectionType {
	out := make([]SectionType, len(sections))
	for i, s := range sections {
		out[i] = s.SectionType
	}
	return out
}
