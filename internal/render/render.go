// Package render turns stored section content into display blocks. Rendering
// is a pure function of (type, content): the public site, the draft preview
// and the inline editor all go through the same table.
package render

import (
	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/metrics"
	"site-cms/internal/models"
)

// Func renders one section's content. It must tolerate any content.
type Func func(content map[string]interface{}) *Block

var renderers = map[models.SectionType]Func{
	models.SectionHero:         renderHero,
	models.SectionFeaturesGrid: renderFeaturesGrid,
	models.SectionServicesGrid: renderServicesGrid,
	models.SectionProcessSteps: renderProcessSteps,
	models.SectionAboutStrip:   renderAboutStrip,
	models.SectionCTABanner:    renderCTABanner,
	models.SectionTextContent:  renderTextContent,
}

type Dispatcher struct {
	log logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Dispatcher{log: log}
}

var defaultDispatcher = NewDispatcher(nil)

// Render uses a dispatcher that does not log.
func Render(t models.SectionType, content models.Content) (*Block, bool) {
	return defaultDispatcher.Render(t, content)
}

// Render returns (nil, false) for a type with no renderer.
func (d *Dispatcher) Render(t models.SectionType, content models.Content) (*Block, bool) {
	fn, ok := renderers[t]
	if !ok {
		err := errors.NewUnknownSectionTypeError(string(t))
		d.log.Debug("skipping section", map[string]interface{}{"sectionType": string(t), "error": err})
		metrics.RenderSkipped.WithLabelValues(string(t)).Inc()
		return nil, false
	}
	if content == nil {
		content = models.Content{}
	}
	block := fn(content)
	block.Type = t
	return block, true
}

// RenderPage renders sections in the order given, omitting unknown types.
func (d *Dispatcher) RenderPage(sections []*models.Section) []*Block {
	out := make([]*Block, 0, len(sections))
	for _, s := range sections {
		block, ok := d.Render(s.SectionType, s.Content)
		if !ok {
			continue
		}
		block.SectionID = s.ID
		out = append(out, block)
	}
	return out
}

// RenderWithOverride renders sections with the content of sectionID replaced
// by an unsaved edit buffer. The sections themselves are not modified.
func (d *Dispatcher) RenderWithOverride(sections []*models.Section, sectionID string, content models.Content) []*Block {
	patched := make([]*models.Section, len(sections))
	for i, s := range sections {
		if s.ID == sectionID {
			cp := *s
			cp.Content = content
			s = &cp
		}
		patched[i] = s
	}
	return d.RenderPage(patched)
}

// Supports reports whether t has a renderer.
func Supports(t models.SectionType) bool {
	_, ok := renderers[t]
	return ok
}

func renderHero(c map[string]interface{}) *Block {
	b := &Block{
		Tag:        str(c, "tag"),
		Heading:    str(c, "headline"),
		Subheading: str(c, "subheadline"),
		Stats:      stats(c),
	}
	for _, cta := range []struct{ key, style string }{{"cta_primary", "primary"}, {"cta_secondary", "ghost"}} {
		m := asMap(c[cta.key])
		if text := str(m, "text"); text != "" {
			b.Actions = append(b.Actions, Action{Text: text, Link: strOr(m, "link", "/"), Style: cta.style})
		}
	}
	return b
}

func renderFeaturesGrid(c map[string]interface{}) *Block {
	b := sectionHeader(c)
	for _, item := range list(c, "items") {
		card := Card{
			Number:      str(item, "number"),
			Tag:         str(item, "tag"),
			Title:       str(item, "title"),
			Description: str(item, "description"),
			Features:    stringList(item, "features"),
		}
		if link := str(item, "link"); link != "" {
			card.Link = &Action{Text: "Explore Service →", Link: link, Style: "link"}
		}
		b.Cards = append(b.Cards, card)
	}
	b.Columns = 2
	if len(b.Cards) == 3 {
		b.Columns = 3
	}
	return b
}

func renderServicesGrid(c map[string]interface{}) *Block {
	b := sectionHeader(c)
	for _, svc := range list(c, "services") {
		b.Cards = append(b.Cards, Card{
			Number:      str(svc, "number"),
			Title:       str(svc, "title"),
			Description: str(svc, "description"),
			Features:    stringList(svc, "features"),
		})
	}
	b.Columns = 3
	return b
}

func renderProcessSteps(c map[string]interface{}) *Block {
	b := sectionHeader(c)
	for _, step := range list(c, "steps") {
		b.Cards = append(b.Cards, Card{
			Number:      str(step, "number"),
			Title:       str(step, "title"),
			Description: str(step, "description"),
		})
	}
	b.Dark = true
	return b
}

func renderAboutStrip(c map[string]interface{}) *Block {
	return &Block{
		Tag:        str(c, "tag"),
		Heading:    str(c, "title"),
		Paragraphs: paragraphs(asString(c["body"])),
		Stats:      stats(c),
	}
}

func renderCTABanner(c map[string]interface{}) *Block {
	b := &Block{
		Heading: str(c, "headline"),
		Email:   str(c, "email"),
		Dark:    true,
	}
	if body := str(c, "body"); body != "" {
		b.Paragraphs = []string{body}
	}
	if text := str(c, "cta_text"); text != "" {
		b.Actions = []Action{{Text: text, Link: strOr(c, "cta_link", "#contact"), Style: "light"}}
	}
	return b
}

func renderTextContent(c map[string]interface{}) *Block {
	return &Block{
		Tag:      str(c, "tag"),
		Heading:  str(c, "title"),
		Markdown: asString(c["body"]),
	}
}

func sectionHeader(c map[string]interface{}) *Block {
	b := &Block{
		Tag:     str(c, "tag"),
		Heading: str(c, "title"),
	}
	if body := str(c, "body"); body != "" {
		b.Paragraphs = []string{body}
	}
	return b
}
