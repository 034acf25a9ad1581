// Package resolver turns a slug into the page aggregate a renderer consumes.
package resolver

import (
	"context"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/models"
	"site-cms/internal/store"
)

// PageCache is the read-through cache used in public mode.
type PageCache interface {
	Get(ctx context.Context, slug string) (*models.PageWithSections, bool, error)
	Set(ctx context.Context, agg *models.PageWithSections) error
}

// Options select preview behaviour. The zero value is public mode.
type Options struct {
	// Preview includes drafts and bypasses the cache.
	Preview bool
	// OverrideSectionID replaces that section's content with
	// OverrideContent in the result. Preview only.
	OverrideSectionID string
	OverrideContent   models.Content
}

type Resolver struct {
	reader store.Reader
	cache  PageCache
	log    logger.Logger
}

// New builds a resolver. cache may be nil.
func New(reader store.Reader, cache PageCache, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Resolver{reader: reader, cache: cache, log: log}
}

// Resolve returns the page and its sections in display order. In public mode
// a draft is reported as not found.
func (r *Resolver) Resolve(ctx context.Context, slug string, opts Options) (*models.PageWithSections, error) {
	if slug == "" {
		return nil, errors.NewValidationError("slug is required")
	}
	if opts.Preview {
		return r.preview(ctx, slug, opts)
	}

	if r.cache != nil {
		agg, ok, err := r.cache.Get(ctx, slug)
		if err != nil {
			r.log.Warn("page cache read failed", map[string]interface{}{"slug": slug, "error": err.Error()})
		} else if ok {
			return agg, nil
		}
	}

	agg, err := r.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	if agg.Page.Status != models.PageStatusPublished {
		return nil, errors.NewPageNotFoundError(slug)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, agg); err != nil {
			r.log.Warn("page cache write failed", map[string]interface{}{"slug": slug, "error": err.Error()})
		}
	}
	return agg, nil
}

func (r *Resolver) preview(ctx context.Context, slug string, opts Options) (*models.PageWithSections, error) {
	agg, err := r.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	if opts.OverrideSectionID == "" {
		return agg, nil
	}

	for i, s := range agg.Sections {
		if s.ID != opts.OverrideSectionID {
			continue
		}
		edited := *s
		edited.Content = opts.OverrideContent
		if edited.Content == nil {
			edited.Content = models.Content{}
		}
		agg.Sections[i] = &edited
		return agg, nil
	}
	return nil, errors.NewSectionNotFoundError(opts.OverrideSectionID)
}

func (r *Resolver) load(ctx context.Context, slug string) (*models.PageWithSections, error) {
	page, err := r.reader.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return store.LoadAggregate(ctx, r.reader, page)
}
