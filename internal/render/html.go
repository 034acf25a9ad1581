package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown converts a markdown body to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

var fragments = template.Must(template.New("sections").Funcs(template.FuncMap{
	"markdown": Markdown,
}).Parse(`
{{define "header"}}{{if or .Tag .Heading}}<div class="dp-section-header">{{if .Tag}}<div class="dp-tag">{{.Tag}}</div>{{end}}{{if .Heading}}<h2 class="dp-section-title">{{.Heading}}</h2>{{end}}{{range .Paragraphs}}<p class="dp-section-body">{{.}}</p>{{end}}</div>{{end}}{{end}}
{{define "action"}}<a href="{{.Link}}" class="dp-btn-{{.Style}}">{{.Text}}</a>{{end}}
{{define "features"}}{{if .}}<ul class="dp-feature-list">{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}{{end}}

{{define "hero"}}<section class="dp-hero">{{if .Tag}}<div class="dp-hero-tag">{{.Tag}}</div>{{end}}<h1 class="dp-hero-title">{{.Heading}}</h1>{{if .Subheading}}<p class="dp-hero-sub">{{.Subheading}}</p>{{end}}{{if .Actions}}<div class="dp-hero-cta">{{range .Actions}}{{template "action" .}}{{end}}</div>{{end}}{{if .Stats}}<div class="dp-hero-stats">{{range .Stats}}<div class="dp-hero-stat"><div class="dp-hero-stat-value">{{.Value}}</div><div class="dp-hero-stat-label">{{.Label}}</div></div>{{end}}</div>{{end}}</section>{{end}}

{{define "features_grid"}}<section class="dp-features">{{template "header" .}}<div class="dp-features-grid dp-features-grid--{{.Columns}}">{{range .Cards}}<div class="dp-feature-card"><div class="dp-feature-top">{{if .Number}}<span class="dp-feature-number">{{.Number}}</span>{{end}}{{if .Tag}}<span class="dp-feature-tag">{{.Tag}}</span>{{end}}</div>{{if .Title}}<h3 class="dp-feature-title">{{.Title}}</h3>{{end}}{{if .Description}}<p class="dp-feature-desc">{{.Description}}</p>{{end}}{{template "features" .Features}}{{with .Link}}{{template "action" .}}{{end}}</div>{{end}}</div></section>{{end}}

{{define "services_grid"}}<section class="dp-services">{{template "header" .}}<div class="dp-services-grid">{{range .Cards}}<div class="dp-service-card">{{if .Number}}<div class="dp-service-number">{{.Number}}</div>{{end}}{{if .Title}}<h3 class="dp-service-title">{{.Title}}</h3>{{end}}{{if .Description}}<p class="dp-service-desc">{{.Description}}</p>{{end}}{{template "features" .Features}}</div>{{end}}</div></section>{{end}}

{{define "process_steps"}}<section class="dp-process">{{template "header" .}}<div class="dp-process-grid">{{range .Cards}}<div class="dp-process-step">{{if .Number}}<div class="dp-process-num">{{.Number}}</div>{{end}}{{if .Title}}<h4 class="dp-process-title">{{.Title}}</h4>{{end}}{{if .Description}}<p class="dp-process-desc">{{.Description}}</p>{{end}}</div>{{end}}</div></section>{{end}}

{{define "about_strip"}}<section class="dp-about"><div>{{if .Tag}}<div class="dp-about-tag">{{.Tag}}</div>{{end}}{{if .Heading}}<h2 class="dp-about-title">{{.Heading}}</h2>{{end}}</div><div>{{range .Paragraphs}}<p class="dp-about-body">{{.}}</p>{{end}}{{if .Stats}}<div class="dp-about-stats">{{range .Stats}}<div><span class="dp-about-stat-val">{{.Value}}</span><span class="dp-about-stat-label">{{.Label}}</span></div>{{end}}</div>{{end}}</div></section>{{end}}

{{define "cta_banner"}}<section class="dp-cta">{{if .Heading}}<h2 class="dp-cta-headline">{{.Heading}}</h2>{{end}}{{range .Paragraphs}}<p class="dp-cta-body">{{.}}</p>{{end}}<div class="dp-cta-actions">{{range .Actions}}{{template "action" .}}{{end}}</div>{{if .Email}}<p class="dp-cta-email">Or email us at <a href="mailto:{{.Email}}">{{.Email}}</a></p>{{end}}</section>{{end}}

{{define "text_content"}}<section class="dp-text">{{if .Tag}}<div class="dp-about-tag">{{.Tag}}</div>{{end}}{{if .Heading}}<h2 class="dp-about-title">{{.Heading}}</h2>{{end}}{{if .Markdown}}<div class="dp-text-content">{{markdown .Markdown}}</div>{{end}}</section>{{end}}
`))

// HTML writes the fragment for one block.
func HTML(b *Block) (template.HTML, error) {
	if b == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, string(b.Type), b); err != nil {
		return "", fmt.Errorf("render %s: %w", b.Type, err)
	}
	return template.HTML(buf.String()), nil
}

// Fragment pairs a rendered block with its HTML.
type Fragment struct {
	SectionID   string        `json:"section_id"`
	SectionType string        `json:"section_type"`
	HTML        template.HTML `json:"html"`
}

// HTMLPage renders every block; a block whose template fails is dropped
// rather than failing the page.
func (d *Dispatcher) HTMLPage(blocks []*Block) []Fragment {
	out := make([]Fragment, 0, len(blocks))
	for _, b := range blocks {
		html, err := HTML(b)
		if err != nil {
			d.log.Warn("section html failed", map[string]interface{}{"sectionId": b.SectionID, "error": err})
			continue
		}
		out = append(out, Fragment{SectionID: b.SectionID, SectionType: string(b.Type), HTML: html})
	}
	return out
}
