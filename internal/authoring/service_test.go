package authoring

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/generation"
	"site-cms/internal/llm"
	"site-cms/internal/models"
	"site-cms/internal/prompt"
	"site-cms/internal/store"
)

func createTestService(t *testing.T, opts ...Option) (*Service, *llm.FakeClient) {
	t.Helper()
	fake := llm.NewFakeClient()
	builder := prompt.NewBuilder(func(string) int { return 1000 })
	return NewService(builder, fake, generation.NewParser(false), logger.NewTestLogger(t), opts...), fake
}

func seedSite(t *testing.T) (*store.MemoryStore, *models.Page) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	home, err := s.CreatePage(ctx, models.PageMeta{Title: "Home", Slug: "home", Status: models.PageStatusPublished, PageType: models.PageTypeCore})
	require.NoError(t, err)
	_, err = s.CreatePage(ctx, models.PageMeta{Title: "Roof Repair", Slug: "roof-repair", Status: models.PageStatusPublished, PageType: models.PageTypeService, MetaDescription: "Leaks fixed"})
	require.NoError(t, err)
	_, err = s.CreatePage(ctx, models.PageMeta{Title: "Drafty", Slug: "drafty"})
	require.NoError(t, err)

	_, err = s.AddSection(ctx, home.ID, models.SectionHero, models.Content{"headline": "Old"}, 0)
	require.NoError(t, err)
	_, err = s.AddSection(ctx, home.ID, models.SectionCTABanner, nil, 1)
	require.NoError(t, err)
	return s, home
}

// ==========================
// Dispatch
// ==========================

func TestGenerate_UnknownAction(t *testing.T) {
	svc, fake := createTestService(t)
	_, err := svc.Generate(context.Background(), "social", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrUnknownAction))
	assert.Equal(t, "Unknown action: social", apperrors.AsStandardError(err).Message)
	assert.Empty(t, fake.Calls())
}

func TestGenerate_PayloadValidation(t *testing.T) {
	svc, fake := createTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		action  models.GenerationAction
		payload map[string]interface{}
	}{
		{"page content missing name", models.ActionPageContent, map[string]interface{}{"business_description": "x"}},
		{"page content blank description", models.ActionPageContent, map[string]interface{}{"business_name": "A", "business_description": " "}},
		{"seo without title", models.ActionSEO, map[string]interface{}{"content": "body"}},
		{"wrong type", models.ActionSEO, map[string]interface{}{"title": 12}},
		{"section without type or id", models.ActionSectionContent, map[string]interface{}{"business_description": "x"}},
		{"regen without title or id", models.ActionPageRegen, map[string]interface{}{"tone": "bold"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(ctx, tt.action, tt.payload)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed), err.Error())
		})
	}
	assert.Empty(t, fake.Calls())
}

func TestGenerate_PageContent(t *testing.T) {
	svc, fake := createTestService(t)

	res, err := svc.Generate(context.Background(), models.ActionPageContent, map[string]interface{}{
		"action":               "page_content",
		"business_name":        "Acme Roofing",
		"business_description": "Roof repair in Leeds",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActionPageContent, res.Action)
	require.NotNil(t, res.Page)
	assert.Len(t, res.Page.Sections, 5)
	assert.Same(t, res.Page, res.Value())

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "page_content", calls[0].Action)
	assert.Equal(t, 1000, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, "hello@acmeroofing.com")
}

func TestGenerate_SectionContentUnknownType(t *testing.T) {
	svc, fake := createTestService(t)
	_, err := svc.Generate(context.Background(), models.ActionSectionContent, map[string]interface{}{"section_type": "carousel"})
	assert.True(t, stderrors.Is(err, apperrors.ErrUnknownSectionType))
	assert.Empty(t, fake.Calls())
}

func TestGenerate_SEO(t *testing.T) {
	svc, fake := createTestService(t)
	fake.Script(models.ActionSEO, "```json\n{\"meta_title\":\"T\",\"meta_description\":\"D\",\"tags\":[\"a\"]}\n```")

	res, err := svc.Generate(context.Background(), models.ActionSEO, map[string]interface{}{"title": "Post"})
	require.NoError(t, err)
	assert.Equal(t, &models.SEOResult{MetaTitle: "T", MetaDescription: "D", Tags: []string{"a"}}, res.Value())
	assert.NotEmpty(t, fake.Calls()[0].System)
}

func TestGenerate_MalformedAndUpstream(t *testing.T) {
	svc, fake := createTestService(t)
	ctx := context.Background()

	fake.Script(models.ActionSectionContent, "Sure! Here you go.")
	_, err := svc.Generate(ctx, models.ActionSectionContent, map[string]interface{}{"section_type": "hero"})
	raw, ok := apperrors.RawOutput(err)
	require.True(t, ok)
	assert.Equal(t, "Sure! Here you go.", raw)

	fake.Fail(stderrors.New("overloaded"))
	_, err = svc.Generate(ctx, models.ActionSEO, map[string]interface{}{"title": "x"})
	assert.True(t, stderrors.Is(err, apperrors.ErrUpstreamGenerationFailure))
	assert.True(t, apperrors.AsStandardError(err).Retryable)
}

// ==========================
// Store-backed enrichment
// ==========================

func TestRegeneratePage_EnrichesFromStore(t *testing.T) {
	s, home := seedSite(t)
	svc, fake := createTestService(t, WithStore(s))

	gen, err := svc.RegeneratePage(context.Background(), models.PageRegenInput{PageID: home.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, gen.Sections)

	p := fake.Calls()[0].Prompt
	assert.Contains(t, p, `Page: "Home"`)
	assert.Contains(t, p, "main home/landing page")
	assert.Contains(t, p, "Preserve this section order and types: hero → cta_banner")
	assert.Contains(t, p, `- "Roof Repair" at /roof-repair: Leaks fixed`)
	assert.NotContains(t, p, "/drafty")
	assert.NotContains(t, p, `at /home`)
}

func TestRegeneratePage_CallerValuesWin(t *testing.T) {
	s, home := seedSite(t)
	svc, fake := createTestService(t, WithStore(s))

	_, err := svc.RegeneratePage(context.Background(), models.PageRegenInput{
		PageID:          home.ID,
		PageTitle:       "Welcome",
		CurrentSections: []models.SectionType{},
		SiblingPages:    []models.SiblingPage{},
	})
	require.NoError(t, err)

	p := fake.Calls()[0].Prompt
	assert.Contains(t, p, `Page: "Welcome"`)
	assert.Contains(t, p, "Choose the most appropriate 4-5 sections")
	assert.Contains(t, p, "No additional service pages")
}

func TestRegeneratePage_MissingPage(t *testing.T) {
	s, _ := seedSite(t)
	svc, fake := createTestService(t, WithStore(s))
	_, err := svc.RegeneratePage(context.Background(), models.PageRegenInput{PageID: "missing"})
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
	assert.Empty(t, fake.Calls())
}

func TestGenerateSection_UsesStoredContentAsContext(t *testing.T) {
	s, home := seedSite(t)
	secs, err := s.ListSections(context.Background(), home.ID)
	require.NoError(t, err)

	svc, fake := createTestService(t, WithStore(s))
	content, err := svc.GenerateSection(context.Background(), models.SectionContentInput{SectionID: secs[0].ID})
	require.NoError(t, err)
	assert.NotEmpty(t, content["headline"])

	p := fake.Calls()[0].Prompt
	assert.Contains(t, p, `for a "hero" website section`)
	assert.Contains(t, p, `Context: {"headline":"Old"}`)
}

func TestSectionContext(t *testing.T) {
	assert.Equal(t, "", SectionContext(nil))
	assert.Equal(t, `{"a":"b"}`, SectionContext(models.Content{"a": "b"}))

	long := SectionContext(models.Content{"body": strings.Repeat("é", 400)})
	assert.Equal(t, SectionContextLimit, len([]rune(long)))
	assert.True(t, strings.HasPrefix(long, `{"body":"éé`))
}

// ==========================
// Page creation
// ==========================

func TestCreatePage(t *testing.T) {
	s := store.NewMemoryStore()
	svc, _ := createTestService(t)

	agg, err := svc.CreatePage(context.Background(), s, models.PageContentInput{
		BusinessName:        "Acme Roofing",
		BusinessDescription: "Roofs",
	}, models.PageMeta{})
	require.NoError(t, err)

	assert.Equal(t, "acme-roofing", agg.Page.Slug)
	assert.Equal(t, models.PageStatusDraft, agg.Page.Status)
	assert.Equal(t, "Fake Site", agg.Page.MetaTitle)
	assert.Equal(t, "Generated offline.", agg.Page.MetaDescription)
	require.Len(t, agg.Sections, 5)
	for i, sec := range agg.Sections {
		assert.Equal(t, i, sec.DisplayOrder)
	}

	_, err = svc.CreatePage(context.Background(), s, models.PageContentInput{BusinessName: "Acme Roofing", BusinessDescription: "Roofs"}, models.PageMeta{})
	assert.True(t, stderrors.Is(err, apperrors.ErrDuplicateSlug))
}

func TestCreatePage_GenerationFailureWritesNothing(t *testing.T) {
	s := store.NewMemoryStore()
	svc, fake := createTestService(t)
	fake.Script(models.ActionPageContent, "not json")

	_, err := svc.CreatePage(context.Background(), s, models.PageContentInput{BusinessName: "X", BusinessDescription: "Y"}, models.PageMeta{})
	assert.True(t, stderrors.Is(err, apperrors.ErrMalformedGeneration))

	pages, err := s.ListPages(context.Background(), models.PageFilter{})
	require.NoError(t, err)
	assert.Empty(t, pages)
}
