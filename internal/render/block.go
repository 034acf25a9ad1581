package render

import (
	"strings"

	"site-cms/internal/models"
)

// Block is the display model of one section, independent of any markup.
type Block struct {
	SectionID  string             `json:"section_id,omitempty"`
	Type       models.SectionType `json:"type"`
	Tag        string             `json:"tag,omitempty"`
	Heading    string             `json:"heading,omitempty"`
	Subheading string             `json:"subheading,omitempty"`
	Paragraphs []string           `json:"paragraphs,omitempty"`
	Markdown   string             `json:"markdown,omitempty"`
	Actions    []Action           `json:"actions,omitempty"`
	Stats      []Stat             `json:"stats,omitempty"`
	Cards      []Card             `json:"cards,omitempty"`
	Email      string             `json:"email,omitempty"`
	Columns    int                `json:"columns,omitempty"`
	Dark       bool               `json:"dark,omitempty"`
}

type Action struct {
	Text  string `json:"text"`
	Link  string `json:"link"`
	Style string `json:"style"` // primary | ghost | light | link
}

// External reports whether the link leaves the site router (absolute URL or
// in-page anchor).
func (a Action) External() bool {
	return strings.HasPrefix(a.Link, "http") || strings.HasPrefix(a.Link, "#")
}

type Stat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Card is a feature, service or process step.
type Card struct {
	Number      string   `json:"number,omitempty"`
	Tag         string   `json:"tag,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Features    []string `json:"features,omitempty"`
	Link        *Action  `json:"link,omitempty"`
}
