// Package authoring runs the generation actions: prompt, model call, parse.
// It never writes to the store except through CreatePage.
package authoring

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/validation"
	"site-cms/internal/generation"
	"site-cms/internal/llm"
	"site-cms/internal/models"
	"site-cms/internal/prompt"
	"site-cms/internal/store"
)

// SectionContextLimit is how much of a section's current content is sent
// back to the model when regenerating it.
const SectionContextLimit = 300

// Result is the outcome of one action. Exactly one of Content, Page and SEO
// is set.
type Result struct {
	Action  models.GenerationAction
	Content models.Content
	Page    *models.PageGeneration
	SEO     *models.SEOResult
}

// Value is the JSON body returned to callers.
func (r *Result) Value() interface{} {
	switch {
	case r.Page != nil:
		return r.Page
	case r.SEO != nil:
		return r.SEO
	default:
		return r.Content
	}
}

type Service struct {
	prompts *prompt.Builder
	client  llm.Client
	parser  *generation.Parser
	reader  store.Reader
	log     logger.Logger
}

type Option func(*Service)

// WithStore lets requests that name a page or section id be completed from
// stored data.
func WithStore(r store.Reader) Option {
	return func(s *Service) { s.reader = r }
}

func NewService(prompts *prompt.Builder, client llm.Client, parser *generation.Parser, log logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Service{prompts: prompts, client: client, parser: parser, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) complete(ctx context.Context, p *prompt.Prompt) (string, error) {
	return s.client.Complete(ctx, llm.Request{
		Action:    string(p.Action),
		System:    p.System,
		Prompt:    p.User,
		MaxTokens: p.MaxTokens,
	})
}

// GeneratePage produces every section for a new page plus its metadata.
func (s *Service) GeneratePage(ctx context.Context, in models.PageContentInput) (*models.PageGeneration, error) {
	raw, err := s.complete(ctx, s.prompts.PageContent(in))
	if err != nil {
		return nil, err
	}
	return s.parser.ParsePage(raw)
}

func (s *Service) GenerateSection(ctx context.Context, in models.SectionContentInput) (models.Content, error) {
	in, err := s.enrichSection(ctx, in)
	if err != nil {
		return nil, err
	}
	p, err := s.prompts.SectionContent(in)
	if err != nil {
		return nil, err
	}
	raw, err := s.complete(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.parser.ParseSection(raw, in.SectionType)
}

// RegeneratePage returns a replacement section list for an existing page.
// Nothing is persisted.
func (s *Service) RegeneratePage(ctx context.Context, in models.PageRegenInput) (*models.PageGeneration, error) {
	in, err := s.enrichRegen(ctx, in)
	if err != nil {
		return nil, err
	}
	raw, err := s.complete(ctx, s.prompts.PageRegen(in))
	if err != nil {
		return nil, err
	}
	return s.parser.ParsePage(raw)
}

func (s *Service) GenerateSEO(ctx context.Context, in models.SEOInput) (*models.SEOResult, error) {
	raw, err := s.complete(ctx, s.prompts.SEO(in))
	if err != nil {
		return nil, err
	}
	return s.parser.ParseSEO(raw)
}

// PageWriter is the part of the store CreatePage needs.
type PageWriter interface {
	CreatePageWithSections(ctx context.Context, meta models.PageMeta, sections []models.SectionInput) (*models.PageWithSections, error)
}

// CreatePage generates a page and saves it with its sections in one write.
// Empty meta fields are filled from the business name and the generated
// metadata; the page starts as a draft unless meta says otherwise.
func (s *Service) CreatePage(ctx context.Context, w PageWriter, in models.PageContentInput, meta models.PageMeta) (*models.PageWithSections, error) {
	gen, err := s.GeneratePage(ctx, in)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = in.BusinessName
	}
	if meta.Slug == "" {
		meta.Slug = models.Slugify(meta.Title)
	}
	if meta.MetaTitle == "" {
		meta.MetaTitle = gen.MetaTitle
	}
	if meta.MetaDescription == "" {
		meta.MetaDescription = gen.MetaDescription
	}

	agg, err := w.CreatePageWithSections(ctx, meta, gen.Sections)
	if err != nil {
		return nil, err
	}
	s.log.Info("generated page created", map[string]interface{}{
		"pageId":   agg.Page.ID,
		"slug":     agg.Page.Slug,
		"sections": len(agg.Sections),
	})
	return agg, nil
}

// SectionContext renders current content as the truncated JSON snippet the
// section prompt carries.
func SectionContext(content models.Content) string {
	if len(content) == 0 {
		return ""
	}
	data, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	text := string(data)
	if utf8.RuneCountInString(text) <= SectionContextLimit {
		return text
	}
	return string([]rune(text)[:SectionContextLimit])
}

func (s *Service) enrichSection(ctx context.Context, in models.SectionContentInput) (models.SectionContentInput, error) {
	if in.SectionID == "" || s.reader == nil {
		return in, nil
	}
	if in.SectionType != "" && strings.TrimSpace(in.Context) != "" {
		return in, nil
	}
	sec, err := s.reader.GetSection(ctx, in.SectionID)
	if err != nil {
		return in, err
	}
	if in.SectionType == "" {
		in.SectionType = sec.SectionType
	}
	if strings.TrimSpace(in.Context) == "" {
		in.Context = SectionContext(sec.Content)
	}
	return in, nil
}

// enrichRegen fills the page identity, current section order and sibling
// roster from the store when the request names a page id. Caller-supplied
// values win.
func (s *Service) enrichRegen(ctx context.Context, in models.PageRegenInput) (models.PageRegenInput, error) {
	if in.PageID != "" && s.reader != nil {
		page, err := s.reader.GetPage(ctx, in.PageID)
		if err != nil {
			return in, err
		}
		if in.PageTitle == "" {
			in.PageTitle = page.Title
		}
		if in.PageSlug == "" {
			in.PageSlug = page.Slug
		}
		if in.PageType == "" {
			in.PageType = page.PageType
		}
		if in.CurrentSections == nil {
			secs, err := s.reader.ListSections(ctx, page.ID)
			if err != nil {
				return in, err
			}
			in.CurrentSections = models.SectionTypes(secs)
		}
		if in.SiblingPages == nil {
			siblings, err := Siblings(ctx, s.reader, in.PageSlug)
			if err != nil {
				return in, err
			}
			in.SiblingPages = siblings
		}
	}

	if strings.TrimSpace(in.PageTitle) == "" {
		return in, errors.NewValidationError("page_regen requires page_title or page_id")
	}
	return in, nil
}

// Siblings lists published pages other than slug, in store order.
func Siblings(ctx context.Context, r store.Reader, slug string) ([]models.SiblingPage, error) {
	filter := models.PageFilter{Status: models.PageStatusPublished}
	if slug != "" {
		filter.ExcludeSlugs = []string{slug}
	}
	pages, err := r.ListPages(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.SiblingPage, 0, len(pages))
	for _, p := range pages {
		out = append(out, models.SiblingPage{Title: p.Title, Slug: p.Slug, MetaDescription: p.MetaDescription})
	}
	return out, nil
}

// decode converts a validated payload map into its typed input.
func decode(payload map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.NewValidationError(err.Error())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

func checkPayload(payload map[string]interface{}, schema validation.JSONSchema) error {
	res := validation.ValidateInput(payload, schema)
	if res.Valid {
		return nil
	}
	return errors.NewValidationError(strings.Join(res.GetErrorMessages(), "; "))
}
