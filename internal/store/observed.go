package store

import (
	"context"

	"site-cms/internal/common/logger"
	"site-cms/internal/common/metrics"
	"site-cms/internal/models"
)

type ChangeKind string

const (
	PageCreated     ChangeKind = "page_created"
	PageUpdated     ChangeKind = "page_updated"
	PageDeleted     ChangeKind = "page_deleted"
	SectionsChanged ChangeKind = "sections_changed"
)

// Change describes a committed write. PrevSlug is set when an update moved
// the page to a new slug.
type Change struct {
	Kind     ChangeKind
	Page     *models.Page
	PrevSlug string
}

// Slugs returns every slug whose public view the change affects.
func (c Change) Slugs() []string {
	if c.Page == nil {
		return nil
	}
	if c.PrevSlug != "" && c.PrevSlug != c.Page.Slug {
		return []string{c.Page.Slug, c.PrevSlug}
	}
	return []string{c.Page.Slug}
}

// ChangeHook reacts to committed writes. Hook failures are logged and never
// undo the write.
type ChangeHook interface {
	Name() string
	PageChanged(ctx context.Context, change Change) error
}

// Observed decorates a Store with operation metrics and change hooks
// (cache invalidation, search indexing, change events).
type Observed struct {
	Store
	hooks []ChangeHook
	log   logger.Logger
}

func NewObserved(inner Store, log logger.Logger, hooks ...ChangeHook) *Observed {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Observed{Store: inner, hooks: hooks, log: log}
}

func (o *Observed) track(op string, err error) {
	metrics.StoreOperations.WithLabelValues(op, metrics.Outcome(err)).Inc()
}

func (o *Observed) notify(ctx context.Context, change Change) {
	for _, h := range o.hooks {
		if err := h.PageChanged(ctx, change); err != nil {
			fields := map[string]interface{}{
				"hook": h.Name(),
				"kind": string(change.Kind),
			}
			if change.Page != nil {
				fields["page_id"] = change.Page.ID
				fields["slug"] = change.Page.Slug
			}
			o.log.WithError(err).Warn("change hook failed", fields)
		}
	}
}

// notifyPage loads the page that owns a section write. Lookup failures only
// skip the hooks.
func (o *Observed) notifyPage(ctx context.Context, pageID string) {
	page, err := o.Store.GetPage(ctx, pageID)
	if err != nil {
		o.log.WithError(err).Warn("cannot load page for change hooks", map[string]interface{}{"page_id": pageID})
		return
	}
	o.notify(ctx, Change{Kind: SectionsChanged, Page: page})
}

func (o *Observed) GetPage(ctx context.Context, id string) (*models.Page, error) {
	page, err := o.Store.GetPage(ctx, id)
	o.track("get_page", err)
	return page, err
}

func (o *Observed) GetPageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	page, err := o.Store.GetPageBySlug(ctx, slug)
	o.track("get_page_by_slug", err)
	return page, err
}

func (o *Observed) ListPages(ctx context.Context, filter models.PageFilter) ([]*models.Page, error) {
	pages, err := o.Store.ListPages(ctx, filter)
	o.track("list_pages", err)
	return pages, err
}

func (o *Observed) ListSections(ctx context.Context, pageID string) ([]*models.Section, error) {
	sections, err := o.Store.ListSections(ctx, pageID)
	o.track("list_sections", err)
	return sections, err
}

func (o *Observed) CreatePage(ctx context.Context, meta models.PageMeta) (*models.Page, error) {
	page, err := o.Store.CreatePage(ctx, meta)
	o.track("create_page", err)
	if err == nil {
		o.notify(ctx, Change{Kind: PageCreated, Page: page})
	}
	return page, err
}

func (o *Observed) UpdatePage(ctx context.Context, id string, meta models.PageMeta) (*models.Page, error) {
	var prevSlug string
	if prev, err := o.Store.GetPage(ctx, id); err == nil {
		prevSlug = prev.Slug
	}
	page, err := o.Store.UpdatePage(ctx, id, meta)
	o.track("update_page", err)
	if err == nil {
		o.notify(ctx, Change{Kind: PageUpdated, Page: page, PrevSlug: prevSlug})
	}
	return page, err
}

func (o *Observed) DeletePage(ctx context.Context, id string) error {
	page, _ := o.Store.GetPage(ctx, id)
	err := o.Store.DeletePage(ctx, id)
	o.track("delete_page", err)
	if err == nil && page != nil {
		o.notify(ctx, Change{Kind: PageDeleted, Page: page})
	}
	return err
}

func (o *Observed) AddSection(ctx context.Context, pageID string, sectionType models.SectionType, content models.Content, order int) (*models.Section, error) {
	sec, err := o.Store.AddSection(ctx, pageID, sectionType, content, order)
	o.track("add_section", err)
	if err == nil {
		o.notifyPage(ctx, pageID)
	}
	return sec, err
}

func (o *Observed) UpdateSection(ctx context.Context, id string, content models.Content) (*models.Section, error) {
	sec, err := o.Store.UpdateSection(ctx, id, content)
	o.track("update_section", err)
	if err == nil {
		o.notifyPage(ctx, sec.PageID)
	}
	return sec, err
}

func (o *Observed) DeleteSection(ctx context.Context, id string) error {
	var pageID string
	if sec, err := o.Store.GetSection(ctx, id); err == nil {
		pageID = sec.PageID
	}
	err := o.Store.DeleteSection(ctx, id)
	o.track("delete_section", err)
	if err == nil && pageID != "" {
		o.notifyPage(ctx, pageID)
	}
	return err
}

func (o *Observed) ReorderSections(ctx context.Context, pageID string, orderedIDs []string) error {
	err := o.Store.ReorderSections(ctx, pageID, orderedIDs)
	o.track("reorder_sections", err)
	if err == nil {
		o.notifyPage(ctx, pageID)
	}
	return err
}

func (o *Observed) MoveSection(ctx context.Context, id string, delta int) error {
	err := o.Store.MoveSection(ctx, id, delta)
	o.track("move_section", err)
	if err == nil {
		if sec, gerr := o.Store.GetSection(ctx, id); gerr == nil {
			o.notifyPage(ctx, sec.PageID)
		}
	}
	return err
}

func (o *Observed) ReplaceSections(ctx context.Context, pageID string, sections []models.SectionInput) ([]*models.Section, error) {
	out, err := o.Store.ReplaceSections(ctx, pageID, sections)
	o.track("replace_sections", err)
	if err == nil {
		o.notifyPage(ctx, pageID)
	}
	return out, err
}

func (o *Observed) CreatePageWithSections(ctx context.Context, meta models.PageMeta, sections []models.SectionInput) (*models.PageWithSections, error) {
	agg, err := o.Store.CreatePageWithSections(ctx, meta, sections)
	o.track("create_page_with_sections", err)
	if err == nil {
		o.notify(ctx, Change{Kind: PageCreated, Page: agg.Page})
	}
	return agg, err
}
