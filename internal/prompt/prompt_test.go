package prompt

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/internal/common/config"
	apperrors "site-cms/internal/common/errors"
	"site-cms/internal/models"
)

func createTestBuilder() *Builder {
	cfg := config.LLMConfig{}
	return NewBuilder(cfg.MaxTokensFor)
}

// ==========================
// page_content
// ==========================

func TestPageContent(t *testing.T) {
	p := createTestBuilder().PageContent(models.PageContentInput{
		BusinessName:        "Acme Robotics Co",
		BusinessDescription: "Warehouse automation",
	})

	assert.Equal(t, 3500, p.MaxTokens)
	assert.Empty(t, p.System)
	assert.Contains(t, p.User, "Business Name: Acme Robotics Co")
	assert.Contains(t, p.User, "Tone: professional")
	assert.Contains(t, p.User, "hello@acmeroboticsco.com")
	assert.Contains(t, p.User, `- "hero": { tag, headline`)
	assert.Contains(t, p.User, "meta_title (under 60 chars)")
	assert.Contains(t, p.User, `"sections": [`)

	order := []string{"1. hero", "2. features_grid", "3. services_grid", "4. process_steps", "5. cta_banner"}
	last := -1
	for _, step := range order {
		idx := strings.Index(p.User, step)
		require.Greater(t, idx, last, step)
		last = idx
	}
}

func TestContactEmail(t *testing.T) {
	assert.Equal(t, "hello@northwind.com", ContactEmail("North\tWind"))
	assert.Equal(t, "hello@acme.com", ContactEmail("ACME"))
}

// ==========================
// section_content
// ==========================

func TestSectionContent(t *testing.T) {
	p, err := createTestBuilder().SectionContent(models.SectionContentInput{
		SectionType:         models.SectionProcessSteps,
		BusinessDescription: "Bakery",
		Context:             `{"title":"Old"}`,
		Tone:                "friendly",
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, p.MaxTokens)
	assert.Contains(t, p.User, `"process_steps" website section`)
	assert.Contains(t, p.User, `Context: {"title":"Old"}`)
	assert.Contains(t, p.User, "Tone: friendly")
	assert.Contains(t, p.User, "Required JSON schema: { tag, title, body, steps:[{number,title,description}] }")
	assert.NotContains(t, p.User, "features_grid")
}

func TestSectionContent_NoContextLine(t *testing.T) {
	p, err := createTestBuilder().SectionContent(models.SectionContentInput{SectionType: models.SectionHero})
	require.NoError(t, err)
	assert.NotContains(t, p.User, "Context:")
}

func TestSectionContent_UnknownType(t *testing.T) {
	_, err := createTestBuilder().SectionContent(models.SectionContentInput{SectionType: "carousel"})
	assert.True(t, stderrors.Is(err, apperrors.ErrUnknownSectionType))
}

// ==========================
// page_regen
// ==========================

func TestPageRegen_WithContext(t *testing.T) {
	p := createTestBuilder().PageRegen(models.PageRegenInput{
		PageTitle:         "Home",
		PageSlug:          "home",
		PageType:          models.PageTypeCore,
		ExtraInstructions: "Mention UAE",
		CurrentSections:   []models.SectionType{models.SectionHero, models.SectionCTABanner},
		SiblingPages: []models.SiblingPage{
			{Title: "Web Design", Slug: "web-design", MetaDescription: "Sites that convert"},
			{Title: "SEO", Slug: "seo"},
		},
	})

	assert.Equal(t, 3500, p.MaxTokens)
	assert.Contains(t, p.User, "This is the main home/landing page.")
	assert.Contains(t, p.User, "Available service pages on this site:\n- \"Web Design\" at /web-design: Sites that convert\n- \"SEO\" at /seo")
	assert.Contains(t, p.User, "Preserve this section order and types: hero → cta_banner")
	assert.Contains(t, p.User, "Additional instructions: Mention UAE")
	assert.Contains(t, p.User, `- "text_content": { tag, title, body }`)
	assert.Contains(t, p.User, "CTAs should link to /#contact or specific service pages")
	assert.Contains(t, p.User, `{
  "sections": [`)
}

func TestPageRegen_Defaults(t *testing.T) {
	p := createTestBuilder().PageRegen(models.PageRegenInput{PageTitle: "Retail AI"})
	assert.Contains(t, p.User, "No additional service pages on this site yet.")
	assert.Contains(t, p.User, "Choose the most appropriate 4-5 sections for this page type.")
	assert.Contains(t, p.User, `service detail page for "Retail AI"`)
	assert.NotContains(t, p.User, "Additional instructions")
}

func TestPageContext(t *testing.T) {
	tests := []struct {
		name string
		in   models.PageRegenInput
		want string
	}{
		{"core by slug", models.PageRegenInput{PageTitle: "About Us", PageSlug: "about", PageType: models.PageTypeCore}, "About Us page"},
		{"core by title", models.PageRegenInput{PageTitle: "Contact", PageType: models.PageTypeCore}, "Contact Us page"},
		{"unknown core", models.PageRegenInput{PageTitle: "Services", PageSlug: "services", PageType: models.PageTypeCore}, `This page is titled "Services".`},
		{"other", models.PageRegenInput{PageTitle: "Spring Promo", PageType: models.PageTypeOther}, `landing page titled "Spring Promo"`},
		{"service", models.PageRegenInput{PageTitle: "Kiosks", PageType: models.PageTypeService}, `service detail page for "Kiosks"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, PageContext(tt.in), tt.want)
		})
	}
}

// ==========================
// seo and dispatch
// ==========================

func TestSEO_TruncatesContent(t *testing.T) {
	body := strings.Repeat("é", 600)
	p := createTestBuilder().SEO(models.SEOInput{Title: "T", Excerpt: "E", Content: body})
	assert.Equal(t, 600, p.MaxTokens)
	assert.NotEmpty(t, p.System)
	assert.Contains(t, p.User, "Content preview: "+strings.Repeat("é", 500)+"\n")
	assert.Contains(t, p.User, `"tags": [`)
}

func TestBuild_Dispatch(t *testing.T) {
	b := createTestBuilder()

	p, err := b.Build(models.ActionSEO, &models.SEOInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, models.ActionSEO, p.Action)

	_, err = b.Build("draft", nil)
	assert.True(t, stderrors.Is(err, apperrors.ErrUnknownAction))

	_, err = b.Build(models.ActionPageContent, models.SEOInput{})
	assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed))
}
