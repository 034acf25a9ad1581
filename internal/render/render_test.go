package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/internal/common/logger"
	"site-cms/internal/models"
	"site-cms/internal/sections"
)

// ==========================
// Dispatch Table
// ==========================

func TestRenderers_CoverRegistry(t *testing.T) {
	for _, st := range sections.Types() {
		assert.True(t, Supports(st), "no renderer for %s", st)
	}
	assert.Len(t, renderers, len(sections.Types()))
}

func TestRender_DefaultContentForEveryType(t *testing.T) {
	for _, st := range sections.Types() {
		content, err := sections.DefaultContent(st)
		require.NoError(t, err)

		block, ok := Render(st, content)
		require.True(t, ok, st)
		assert.Equal(t, st, block.Type)

		html, err := HTML(block)
		require.NoError(t, err, st)
		assert.NotEmpty(t, html)
	}
}

func TestRender_EmptyAndNilContent(t *testing.T) {
	for _, st := range sections.Types() {
		assert.NotPanics(t, func() {
			b, ok := Render(st, nil)
			require.True(t, ok)
			_, err := HTML(b)
			require.NoError(t, err)
		})
	}
}

func TestRender_UnknownType(t *testing.T) {
	d := NewDispatcher(logger.NewTestLogger(t))
	assert.NotPanics(t, func() {
		block, ok := d.Render("made_up_type", models.Content{})
		assert.False(t, ok)
		assert.Nil(t, block)
	})
}

// ==========================
// Null Coalescing
// ==========================

func TestRenderHero_Coerces(t *testing.T) {
	block, ok := Render(models.SectionHero, models.Content{
		"headline":      "Grow faster",
		"cta_primary":   map[string]interface{}{"text": "Call us"},
		"cta_secondary": "not an object",
		"stats": []interface{}{
			map[string]interface{}{"number": 500.0, "label": "Clients"},
			"garbage",
		},
	})
	require.True(t, ok)
	assert.Equal(t, "Grow faster", block.Heading)
	require.Len(t, block.Actions, 1)
	assert.Equal(t, Action{Text: "Call us", Link: "/", Style: "primary"}, block.Actions[0])
	require.Len(t, block.Stats, 1)
	assert.Equal(t, "500", block.Stats[0].Value)
}

func TestRenderCTABanner_DefaultLink(t *testing.T) {
	block, _ := Render(models.SectionCTABanner, models.Content{"cta_text": "Talk to us"})
	require.Len(t, block.Actions, 1)
	assert.Equal(t, "#contact", block.Actions[0].Link)
	assert.True(t, block.Actions[0].External())
}

func TestRenderAboutStrip_SplitsParagraphs(t *testing.T) {
	block, _ := Render(models.SectionAboutStrip, models.Content{"body": "First.\n\nSecond.\n\n\n\nThird."})
	assert.Equal(t, []string{"First.", "Second.", "Third."}, block.Paragraphs)
}

func TestRenderFeaturesGrid_Columns(t *testing.T) {
	item := map[string]interface{}{"title": "x", "features": []interface{}{"a", "", 3.0}, "link": "/web"}

	two, _ := Render(models.SectionFeaturesGrid, models.Content{"items": []interface{}{item, item}})
	assert.Equal(t, 2, two.Columns)

	three, _ := Render(models.SectionFeaturesGrid, models.Content{"items": []interface{}{item, item, item}})
	assert.Equal(t, 3, three.Columns)
	assert.Equal(t, []string{"a", "3"}, three.Cards[0].Features)
	require.NotNil(t, three.Cards[0].Link)
	assert.False(t, three.Cards[0].Link.External())
}

func TestRenderServicesGrid_FeaturesFromLines(t *testing.T) {
	block, _ := Render(models.SectionServicesGrid, models.Content{
		"services": []interface{}{map[string]interface{}{"title": "SEO", "features": "Audit\n\nReporting\n"}},
	})
	require.Len(t, block.Cards, 1)
	assert.Equal(t, []string{"Audit", "Reporting"}, block.Cards[0].Features)
}

// ==========================
// Page Rendering
// ==========================

func TestRenderPage_SkipsUnknownAndKeepsOrder(t *testing.T) {
	d := NewDispatcher(logger.NewTestLogger(t))
	secs := []*models.Section{
		{ID: "a", SectionType: models.SectionHero, Content: models.Content{"headline": "A"}},
		{ID: "b", SectionType: "legacy_slider", Content: models.Content{}},
		{ID: "c", SectionType: models.SectionCTABanner, Content: models.Content{"headline": "C"}},
	}

	blocks := d.RenderPage(secs)
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].SectionID)
	assert.Equal(t, "c", blocks[1].SectionID)
}

func TestRenderWithOverride(t *testing.T) {
	d := NewDispatcher(nil)
	secs := []*models.Section{
		{ID: "a", SectionType: models.SectionHero, Content: models.Content{"headline": "Saved"}},
	}

	blocks := d.RenderWithOverride(secs, "a", models.Content{"headline": "Unsaved"})
	require.Len(t, blocks, 1)
	assert.Equal(t, "Unsaved", blocks[0].Heading)
	assert.Equal(t, "Saved", secs[0].Content["headline"])
}

// ==========================
// HTML
// ==========================

func TestHTML_EscapesContent(t *testing.T) {
	block, _ := Render(models.SectionHero, models.Content{"headline": "<script>alert(1)</script>"})
	html, err := HTML(block)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
	assert.Contains(t, string(html), "&lt;script&gt;")
}

func TestHTML_TextContentMarkdown(t *testing.T) {
	block, _ := Render(models.SectionTextContent, models.Content{
		"title": "Overview",
		"body":  "## Why us\n\n- fast\n- **reliable**\n\n<img src=x onerror=alert(1)>",
	})
	html, err := HTML(block)
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "<h2>Why us</h2>")
	assert.Contains(t, out, "<strong>reliable</strong>")
	assert.False(t, strings.Contains(out, "onerror"))
}

func TestHTMLPage(t *testing.T) {
	d := NewDispatcher(nil)
	blocks := d.RenderPage([]*models.Section{
		{ID: "s1", SectionType: models.SectionCTABanner, Content: models.Content{"cta_text": "Go", "email": "hi@acme.com"}},
	})
	frags := d.HTMLPage(blocks)
	require.Len(t, frags, 1)
	assert.Equal(t, "s1", frags[0].SectionID)
	assert.Contains(t, string(frags[0].HTML), `href="#contact"`)
	assert.Contains(t, string(frags[0].HTML), "mailto:hi@acme.com")
}
