// Package store persists pages and their ordered sections. Every
// implementation keeps display_order dense: after any successful call the
// sections of a page are numbered exactly 0..N-1.
package store

import (
	"context"
	"fmt"
	"strings"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/validation"
	"site-cms/internal/models"
)

// Reader is the read side used by resolvers, indexers and prompt context.
type Reader interface {
	GetPage(ctx context.Context, id string) (*models.Page, error)
	GetPageBySlug(ctx context.Context, slug string) (*models.Page, error)
	ListPages(ctx context.Context, filter models.PageFilter) ([]*models.Page, error)
	ListSections(ctx context.Context, pageID string) ([]*models.Section, error)
	GetSection(ctx context.Context, id string) (*models.Section, error)
}

type Store interface {
	Reader

	CreatePage(ctx context.Context, meta models.PageMeta) (*models.Page, error)
	UpdatePage(ctx context.Context, id string, meta models.PageMeta) (*models.Page, error)
	// DeletePage refuses protected slugs and cascades to sections.
	DeletePage(ctx context.Context, id string) error

	// AddSection clamps order into 0..N and shifts later sections down.
	AddSection(ctx context.Context, pageID string, sectionType models.SectionType, content models.Content, order int) (*models.Section, error)
	UpdateSection(ctx context.Context, id string, content models.Content) (*models.Section, error)
	DeleteSection(ctx context.Context, id string) error
	// ReorderSections requires an exact permutation of the page's section ids.
	ReorderSections(ctx context.Context, pageID string, orderedIDs []string) error
	// MoveSection swaps a section with its neighbour; delta is -1 or +1.
	MoveSection(ctx context.Context, id string, delta int) error
	ReplaceSections(ctx context.Context, pageID string, sections []models.SectionInput) ([]*models.Section, error)
	CreatePageWithSections(ctx context.Context, meta models.PageMeta, sections []models.SectionInput) (*models.PageWithSections, error)

	Ping(ctx context.Context) error
}

// LoadAggregate returns a page with its sections in display order.
func LoadAggregate(ctx context.Context, r Reader, page *models.Page) (*models.PageWithSections, error) {
	sections, err := r.ListSections(ctx, page.ID)
	if err != nil {
		return nil, err
	}
	return &models.PageWithSections{Page: page, Sections: sections}, nil
}

// prepareMeta normalizes meta and derives the slug from the title when absent.
func prepareMeta(meta models.PageMeta) (models.PageMeta, error) {
	meta = meta.Normalize()
	if meta.Title == "" {
		return meta, errors.NewValidationError("title is required")
	}
	if meta.Slug == "" {
		meta.Slug = models.Slugify(meta.Title)
	}
	if !validation.ValidateSlug(meta.Slug) {
		return meta, errors.NewValidationError(fmt.Sprintf("slug %q must be lowercase letters, digits and single dashes", meta.Slug))
	}
	if !meta.Status.Valid() {
		return meta, errors.NewValidationError(fmt.Sprintf("invalid status %q", meta.Status))
	}
	if !meta.PageType.Valid() {
		return meta, errors.NewValidationError(fmt.Sprintf("invalid page_type %q", meta.PageType))
	}
	return meta, nil
}

// prepareUpdate merges meta over the stored page and validates the result.
// Omitted slug, status and page_type keep their stored values; the slug is
// only ever derived from the title on create. A protected page keeps its
// slug and stays protected.
func prepareUpdate(current *models.Page, meta models.PageMeta) (models.PageMeta, error) {
	if strings.TrimSpace(meta.Slug) == "" {
		meta.Slug = current.Slug
	}
	if meta.Status == "" {
		meta.Status = current.Status
	}
	if meta.PageType == "" {
		meta.PageType = current.PageType
	}
	meta, err := prepareMeta(meta)
	if err != nil {
		return meta, err
	}
	if models.IsProtected(current) {
		next := &models.Page{Slug: meta.Slug, PageType: meta.PageType}
		if meta.Slug != current.Slug || !models.IsProtected(next) {
			return meta, errors.NewProtectedPageError(current.Slug)
		}
	}
	return meta, nil
}

func clampOrder(order, n int) int {
	if order < 0 {
		return 0
	}
	if order > n {
		return n
	}
	return order
}

// checkPermutation verifies ordered holds every id of current exactly once.
func checkPermutation(current, ordered []string) error {
	if len(current) != len(ordered) {
		return errors.NewInvalidReorderError(fmt.Sprintf("expected %d section ids, got %d", len(current), len(ordered)))
	}
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	seen := make(map[string]bool, len(ordered))
	for _, id := range ordered {
		if !known[id] {
			return errors.NewInvalidReorderError(fmt.Sprintf("section %s does not belong to the page", id))
		}
		if seen[id] {
			return errors.NewInvalidReorderError(fmt.Sprintf("section %s listed twice", id))
		}
		seen[id] = true
	}
	return nil
}

func validateMove(delta int) error {
	if delta != -1 && delta != 1 {
		return errors.NewValidationError("delta must be -1 or 1")
	}
	return nil
}

func contentOrEmpty(c models.Content) models.Content {
	if c == nil {
		return models.Content{}
	}
	return c.Clone()
}
