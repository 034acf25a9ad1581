package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"site-cms/internal/common/errors"
	"site-cms/internal/models"
)

// MemoryStore keeps everything in process. Used by tests, the fake provider
// profile and cmsctl preview.
type MemoryStore struct {
	mu       sync.RWMutex
	pages    map[string]*models.Page
	order    []string // page ids in creation order
	sections map[string][]*models.Section
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages:    make(map[string]*models.Page),
		sections: make(map[string][]*models.Section),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// ==========================
// Pages
// ==========================

func (m *MemoryStore) CreatePage(ctx context.Context, meta models.PageMeta) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page, err := m.createPageLocked(meta)
	if err != nil {
		return nil, err
	}
	return copyPage(page), nil
}

func (m *MemoryStore) createPageLocked(meta models.PageMeta) (*models.Page, error) {
	meta, err := prepareMeta(meta)
	if err != nil {
		return nil, err
	}
	if m.slugTakenLocked(meta.Slug, "") {
		return nil, errors.NewDuplicateSlugError(meta.Slug)
	}

	now := m.now()
	page := &models.Page{ID: uuid.NewString(), CreatedAt: now}
	applyMeta(page, meta, now)
	m.pages[page.ID] = page
	m.order = append(m.order, page.ID)
	return page, nil
}

func (m *MemoryStore) UpdatePage(ctx context.Context, id string, meta models.PageMeta) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page, ok := m.pages[id]
	if !ok {
		return nil, errors.NewPageNotFoundError(id)
	}
	meta, err := prepareUpdate(page, meta)
	if err != nil {
		return nil, err
	}
	if m.slugTakenLocked(meta.Slug, id) {
		return nil, errors.NewDuplicateSlugError(meta.Slug)
	}
	applyMeta(page, meta, m.now())
	return copyPage(page), nil
}

func (m *MemoryStore) slugTakenLocked(slug, exceptID string) bool {
	for id, p := range m.pages {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

func (m *MemoryStore) GetPage(ctx context.Context, id string) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	page, ok := m.pages[id]
	if !ok {
		return nil, errors.NewPageNotFoundError(id)
	}
	return copyPage(page), nil
}

func (m *MemoryStore) GetPageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pages {
		if p.Slug == slug {
			return copyPage(p), nil
		}
	}
	return nil, errors.NewPageNotFoundError(slug)
}

func (m *MemoryStore) ListPages(ctx context.Context, filter models.PageFilter) ([]*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Page, 0, len(m.order))
	for _, id := range m.order {
		if p := m.pages[id]; filter.Matches(p) {
			out = append(out, copyPage(p))
		}
	}
	return out, nil
}

func (m *MemoryStore) DeletePage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	page, ok := m.pages[id]
	if !ok {
		return errors.NewPageNotFoundError(id)
	}
	if models.IsProtected(page) {
		return errors.NewProtectedPageError(page.Slug)
	}

	delete(m.pages, id)
	delete(m.sections, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ==========================
// Sections
// ==========================

func (m *MemoryStore) ListSections(ctx context.Context, pageID string) ([]*models.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.pages[pageID]; !ok {
		return nil, errors.NewPageNotFoundError(pageID)
	}
	return copySections(m.sections[pageID]), nil
}

func (m *MemoryStore) GetSection(ctx context.Context, id string) (*models.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, _, ok := m.findSectionLocked(id)
	if !ok {
		return nil, errors.NewSectionNotFoundError(id)
	}
	return copySection(s), nil
}

func (m *MemoryStore) AddSection(ctx context.Context, pageID string, sectionType models.SectionType, content models.Content, order int) (*models.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[pageID]; !ok {
		return nil, errors.NewPageNotFoundError(pageID)
	}

	list := m.sections[pageID]
	order = clampOrder(order, len(list))
	now := m.now()
	s := &models.Section{
		ID:          uuid.NewString(),
		PageID:      pageID,
		SectionType: sectionType,
		Content:     contentOrEmpty(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	list = append(list, nil)
	copy(list[order+1:], list[order:])
	list[order] = s
	m.sections[pageID] = renumber(list)
	return copySection(s), nil
}

func (m *MemoryStore) UpdateSection(ctx context.Context, id string, content models.Content) (*models.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, _, ok := m.findSectionLocked(id)
	if !ok {
		return nil, errors.NewSectionNotFoundError(id)
	}
	s.Content = contentOrEmpty(content)
	s.UpdatedAt = m.now()
	return copySection(s), nil
}

func (m *MemoryStore) DeleteSection(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, idx, ok := m.findSectionLocked(id)
	if !ok {
		return errors.NewSectionNotFoundError(id)
	}
	list := m.sections[s.PageID]
	list = append(list[:idx], list[idx+1:]...)
	m.sections[s.PageID] = renumber(list)
	return nil
}

func (m *MemoryStore) ReorderSections(ctx context.Context, pageID string, orderedIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[pageID]; !ok {
		return errors.NewPageNotFoundError(pageID)
	}
	list := m.sections[pageID]
	current := make([]string, len(list))
	byID := make(map[string]*models.Section, len(list))
	for i, s := range list {
		current[i] = s.ID
		byID[s.ID] = s
	}
	if err := checkPermutation(current, orderedIDs); err != nil {
		return err
	}

	reordered := make([]*models.Section, len(orderedIDs))
	for i, id := range orderedIDs {
		reordered[i] = byID[id]
	}
	m.sections[pageID] = renumber(reordered)
	return nil
}

func (m *MemoryStore) MoveSection(ctx context.Context, id string, delta int) error {
	if err := validateMove(delta); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, idx, ok := m.findSectionLocked(id)
	if !ok {
		return errors.NewSectionNotFoundError(id)
	}
	list := m.sections[s.PageID]
	target := idx + delta
	if target < 0 || target >= len(list) {
		// already at the edge
		return nil
	}
	list[idx], list[target] = list[target], list[idx]
	renumber(list)
	return nil
}

func (m *MemoryStore) ReplaceSections(ctx context.Context, pageID string, sections []models.SectionInput) ([]*models.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[pageID]; !ok {
		return nil, errors.NewPageNotFoundError(pageID)
	}
	m.sections[pageID] = m.buildSectionsLocked(pageID, sections)
	return copySections(m.sections[pageID]), nil
}

func (m *MemoryStore) CreatePageWithSections(ctx context.Context, meta models.PageMeta, sections []models.SectionInput) (*models.PageWithSections, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page, err := m.createPageLocked(meta)
	if err != nil {
		return nil, err
	}
	m.sections[page.ID] = m.buildSectionsLocked(page.ID, sections)
	return &models.PageWithSections{Page: copyPage(page), Sections: copySections(m.sections[page.ID])}, nil
}

func (m *MemoryStore) buildSectionsLocked(pageID string, inputs []models.SectionInput) []*models.Section {
	now := m.now()
	list := make([]*models.Section, len(inputs))
	for i, in := range inputs {
		list[i] = &models.Section{
			ID:          uuid.NewString(),
			PageID:      pageID,
			SectionType: in.SectionType,
			Content:     contentOrEmpty(in.Content),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return renumber(list)
}

func (m *MemoryStore) findSectionLocked(id string) (*models.Section, int, bool) {
	for _, list := range m.sections {
		for i, s := range list {
			if s.ID == id {
				return s, i, true
			}
		}
	}
	return nil, -1, false
}

func renumber(list []*models.Section) []*models.Section {
	for i, s := range list {
		s.DisplayOrder = i
	}
	return list
}

func applyMeta(p *models.Page, meta models.PageMeta, now time.Time) {
	p.Title = meta.Title
	p.Slug = meta.Slug
	p.Status = meta.Status
	p.MetaTitle = meta.MetaTitle
	p.MetaDescription = meta.MetaDescription
	p.OGImageURL = meta.OGImageURL
	p.PageType = meta.PageType
	p.UpdatedAt = now
}

func copyPage(p *models.Page) *models.Page {
	c := *p
	return &c
}

func copySection(s *models.Section) *models.Section {
	c := *s
	c.Content = s.Content.Clone()
	return &c
}

func copySections(list []*models.Section) []*models.Section {
	out := make([]*models.Section, len(list))
	for i, s := range list {
		out[i] = copySection(s)
	}
	return out
}
