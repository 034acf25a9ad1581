package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"site-cms/internal/common/database"
	"site-cms/internal/common/errors"
	"site-cms/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Postgres SQLSTATEs mapped to domain errors.
const (
	uniqueViolation = "23505"
	// invalidTextRepresentation is raised for an id that is not a UUID.
	invalidTextRepresentation = "22P02"
)

const (
	pageColumns    = "id, title, slug, status, meta_title, meta_description, og_image_url, page_type, created_at, updated_at"
	sectionColumns = "id, page_id, section_type, content, display_order, created_at, updated_at"

	queryInsertPage = `INSERT INTO pages (` + pageColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	queryUpdatePage = `UPDATE pages SET title = $2, slug = $3, status = $4, meta_title = $5, meta_description = $6, og_image_url = $7, page_type = $8, updated_at = $9 WHERE id = $1 RETURNING created_at`
	queryPageByID   = `SELECT ` + pageColumns + ` FROM pages WHERE id = $1`
	queryPageBySlug = `SELECT ` + pageColumns + ` FROM pages WHERE slug = $1`
	queryListPages  = `SELECT ` + pageColumns + ` FROM pages`
	queryLockPage   = `SELECT slug FROM pages WHERE id = $1 FOR UPDATE`
	queryLockMeta   = `SELECT ` + pageColumns + ` FROM pages WHERE id = $1 FOR UPDATE`
	queryDeletePage = `DELETE FROM pages WHERE id = $1`
	queryPageExists = `SELECT EXISTS (SELECT 1 FROM pages WHERE id = $1)`

	queryListSections   = `SELECT ` + sectionColumns + ` FROM page_sections WHERE page_id = $1 ORDER BY display_order`
	querySectionByID    = `SELECT ` + sectionColumns + ` FROM page_sections WHERE id = $1`
	queryCountSections  = `SELECT COUNT(*) FROM page_sections WHERE page_id = $1`
	queryShiftDown      = `UPDATE page_sections SET display_order = display_order + 1 WHERE page_id = $1 AND display_order >= $2`
	queryCloseGap       = `UPDATE page_sections SET display_order = display_order - 1 WHERE page_id = $1 AND display_order > $2`
	queryInsertSection  = `INSERT INTO page_sections (` + sectionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	queryUpdateSection  = `UPDATE page_sections SET content = $2, updated_at = $3 WHERE id = $1 RETURNING page_id, section_type, display_order, created_at`
	queryDeleteSection  = `DELETE FROM page_sections WHERE id = $1 RETURNING page_id, display_order`
	querySectionIDs     = `SELECT id FROM page_sections WHERE page_id = $1 ORDER BY display_order FOR UPDATE`
	querySetOrder       = `UPDATE page_sections SET display_order = $2 WHERE id = $1`
	querySectionPos     = `SELECT page_id, display_order FROM page_sections WHERE id = $1 FOR UPDATE`
	queryMoveNeighbour  = `UPDATE page_sections SET display_order = $3 WHERE page_id = $1 AND display_order = $2`
	queryDeleteSections = `DELETE FROM page_sections WHERE page_id = $1`
)

// PostgresStore is the production Store on lib/pq. Multi-row writes lock the
// owning page row first so concurrent edits to one page serialize.
type PostgresStore struct {
	db  *database.PostgresClient
	now func() time.Time
}

func NewPostgresStore(db *database.PostgresClient) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schemaSQL); err != nil {
		return errors.NewDatabaseError("migrate", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ==========================
// Pages
// ==========================

func (s *PostgresStore) CreatePage(ctx context.Context, meta models.PageMeta) (*models.Page, error) {
	meta, err := prepareMeta(meta)
	if err != nil {
		return nil, err
	}
	now := s.now()
	page := &models.Page{ID: uuid.NewString(), CreatedAt: now}
	applyMeta(page, meta, now)

	if err := insertPage(ctx, s.db.DB, page); err != nil {
		return nil, pageWriteError("create_page", page.Slug, err)
	}
	return page, nil
}

// UpdatePage locks the page row so the protection check and the write see
// the same stored slug.
func (s *PostgresStore) UpdatePage(ctx context.Context, id string, meta models.PageMeta) (*models.Page, error) {
	var page *models.Page
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := lockPageMeta(ctx, tx, id)
		if err != nil {
			return err
		}
		merged, err := prepareUpdate(current, meta)
		if err != nil {
			return err
		}
		now := s.now()
		page = &models.Page{ID: id}
		applyMeta(page, merged, now)

		return tx.QueryRowContext(ctx, queryUpdatePage,
			id, page.Title, page.Slug, page.Status, page.MetaTitle, page.MetaDescription, page.OGImageURL, page.PageType, now,
		).Scan(&page.CreatedAt)
	})
	if err != nil {
		slug := meta.Slug
		if page != nil {
			slug = page.Slug
		}
		return nil, pageWriteError("update_page", slug, err)
	}
	return page, nil
}

func (s *PostgresStore) GetPage(ctx context.Context, id string) (*models.Page, error) {
	page, err := scanPage(s.db.DB.QueryRowContext(ctx, queryPageByID, id))
	if isMissing(err) {
		return nil, errors.NewPageNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get_page", err)
	}
	return page, nil
}

func (s *PostgresStore) GetPageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	page, err := scanPage(s.db.DB.QueryRowContext(ctx, queryPageBySlug, slug))
	if isMissing(err) {
		return nil, errors.NewPageNotFoundError(slug)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get_page_by_slug", err)
	}
	return page, nil
}

func (s *PostgresStore) ListPages(ctx context.Context, filter models.PageFilter) ([]*models.Page, error) {
	query, args := listPagesQuery(filter)
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("list_pages", err)
	}
	defer rows.Close()

	pages := []*models.Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("list_pages", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list_pages", err)
	}
	return pages, nil
}

func listPagesQuery(filter models.PageFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PageType != "" {
		args = append(args, filter.PageType)
		where = append(where, fmt.Sprintf("page_type = $%d", len(args)))
	}
	if len(filter.ExcludeSlugs) > 0 {
		args = append(args, pq.Array(filter.ExcludeSlugs))
		where = append(where, fmt.Sprintf("slug <> ALL($%d)", len(args)))
	}

	query := queryListPages
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY created_at, slug", args
}

func (s *PostgresStore) DeletePage(ctx context.Context, id string) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := lockPageMeta(ctx, tx, id)
		if err != nil {
			return err
		}
		if models.IsProtected(current) {
			return errors.NewProtectedPageError(current.Slug)
		}
		_, err = tx.ExecContext(ctx, queryDeletePage, id)
		return err
	})
	return dbError("delete_page", err)
}

// ==========================
// Sections
// ==========================

func (s *PostgresStore) ListSections(ctx context.Context, pageID string) ([]*models.Section, error) {
	sections, err := listSections(ctx, s.db.DB, pageID)
	if isMissing(err) {
		return nil, errors.NewPageNotFoundError(pageID)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("list_sections", err)
	}
	if len(sections) == 0 {
		var exists bool
		if err := s.db.DB.QueryRowContext(ctx, queryPageExists, pageID).Scan(&exists); err != nil {
			return nil, errors.NewDatabaseError("list_sections", err)
		}
		if !exists {
			return nil, errors.NewPageNotFoundError(pageID)
		}
	}
	return sections, nil
}

func (s *PostgresStore) GetSection(ctx context.Context, id string) (*models.Section, error) {
	sec, err := scanSection(s.db.DB.QueryRowContext(ctx, querySectionByID, id))
	if isMissing(err) {
		return nil, errors.NewSectionNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get_section", err)
	}
	return sec, nil
}

func (s *PostgresStore) AddSection(ctx context.Context, pageID string, sectionType models.SectionType, content models.Content, order int) (*models.Section, error) {
	now := s.now()
	sec := &models.Section{
		ID:          uuid.NewString(),
		PageID:      pageID,
		SectionType: sectionType,
		Content:     contentOrEmpty(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockPage(ctx, tx, pageID); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, queryCountSections, pageID).Scan(&n); err != nil {
			return err
		}
		sec.DisplayOrder = clampOrder(order, n)
		if _, err := tx.ExecContext(ctx, queryShiftDown, pageID, sec.DisplayOrder); err != nil {
			return err
		}
		return insertSection(ctx, tx, sec)
	})
	if err != nil {
		return nil, dbError("add_section", err)
	}
	return sec, nil
}

func (s *PostgresStore) UpdateSection(ctx context.Context, id string, content models.Content) (*models.Section, error) {
	now := s.now()
	sec := &models.Section{ID: id, Content: contentOrEmpty(content), UpdatedAt: now}
	data, err := json.Marshal(sec.Content)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("content is not serializable: %v", err))
	}

	err = s.db.DB.QueryRowContext(ctx, queryUpdateSection, id, data, now).
		Scan(&sec.PageID, &sec.SectionType, &sec.DisplayOrder, &sec.CreatedAt)
	if isMissing(err) {
		return nil, errors.NewSectionNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("update_section", err)
	}
	return sec, nil
}

func (s *PostgresStore) DeleteSection(ctx context.Context, id string) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			pageID string
			order  int
		)
		if err := tx.QueryRowContext(ctx, queryDeleteSection, id).Scan(&pageID, &order); err != nil {
			if isMissing(err) {
				return errors.NewSectionNotFoundError(id)
			}
			return err
		}
		_, err := tx.ExecContext(ctx, queryCloseGap, pageID, order)
		return err
	})
	return dbError("delete_section", err)
}

func (s *PostgresStore) ReorderSections(ctx context.Context, pageID string, orderedIDs []string) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockPage(ctx, tx, pageID); err != nil {
			return err
		}
		current, err := sectionIDs(ctx, tx, pageID)
		if err != nil {
			return err
		}
		if err := checkPermutation(current, orderedIDs); err != nil {
			return err
		}
		for i, id := range orderedIDs {
			if _, err := tx.ExecContext(ctx, querySetOrder, id, i); err != nil {
				return err
			}
		}
		return nil
	})
	return dbError("reorder_sections", err)
}

func (s *PostgresStore) MoveSection(ctx context.Context, id string, delta int) error {
	if err := validateMove(delta); err != nil {
		return err
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			pageID string
			pos    int
			n      int
		)
		if err := tx.QueryRowContext(ctx, querySectionPos, id).Scan(&pageID, &pos); err != nil {
			if isMissing(err) {
				return errors.NewSectionNotFoundError(id)
			}
			return err
		}
		if err := tx.QueryRowContext(ctx, queryCountSections, pageID).Scan(&n); err != nil {
			return err
		}
		target := pos + delta
		if target < 0 || target >= n {
			return nil
		}
		if _, err := tx.ExecContext(ctx, queryMoveNeighbour, pageID, target, pos); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, querySetOrder, id, target)
		return err
	})
	return dbError("move_section", err)
}

func (s *PostgresStore) ReplaceSections(ctx context.Context, pageID string, inputs []models.SectionInput) ([]*models.Section, error) {
	sections := s.newSections(pageID, inputs)
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockPage(ctx, tx, pageID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, queryDeleteSections, pageID); err != nil {
			return err
		}
		for _, sec := range sections {
			if err := insertSection(ctx, tx, sec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dbError("replace_sections", err)
	}
	return sections, nil
}

func (s *PostgresStore) CreatePageWithSections(ctx context.Context, meta models.PageMeta, inputs []models.SectionInput) (*models.PageWithSections, error) {
	meta, err := prepareMeta(meta)
	if err != nil {
		return nil, err
	}
	now := s.now()
	page := &models.Page{ID: uuid.NewString(), CreatedAt: now}
	applyMeta(page, meta, now)
	sections := s.newSections(page.ID, inputs)

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertPage(ctx, tx, page); err != nil {
			return err
		}
		for _, sec := range sections {
			if err := insertSection(ctx, tx, sec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pageWriteError("create_page_with_sections", page.Slug, err)
	}
	return &models.PageWithSections{Page: page, Sections: sections}, nil
}

func (s *PostgresStore) newSections(pageID string, inputs []models.SectionInput) []*models.Section {
	now := s.now()
	out := make([]*models.Section, len(inputs))
	for i, in := range inputs {
		out[i] = &models.Section{
			ID:           uuid.NewString(),
			PageID:       pageID,
			SectionType:  in.SectionType,
			Content:      contentOrEmpty(in.Content),
			DisplayOrder: i,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	return out
}

// ==========================
// Helpers
// ==========================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func insertPage(ctx context.Context, db execer, p *models.Page) error {
	_, err := db.ExecContext(ctx, queryInsertPage,
		p.ID, p.Title, p.Slug, p.Status, p.MetaTitle, p.MetaDescription, p.OGImageURL, p.PageType, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func insertSection(ctx context.Context, db execer, s *models.Section) error {
	data, err := json.Marshal(s.Content)
	if err != nil {
		return errors.NewValidationError(fmt.Sprintf("content is not serializable: %v", err))
	}
	_, err = db.ExecContext(ctx, queryInsertSection,
		s.ID, s.PageID, s.SectionType, data, s.DisplayOrder, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func lockPage(ctx context.Context, tx *sql.Tx, pageID string) error {
	var slug string
	err := tx.QueryRowContext(ctx, queryLockPage, pageID).Scan(&slug)
	if isMissing(err) {
		return errors.NewPageNotFoundError(pageID)
	}
	return err
}

func lockPageMeta(ctx context.Context, tx *sql.Tx, id string) (*models.Page, error) {
	page, err := scanPage(tx.QueryRowContext(ctx, queryLockMeta, id))
	if isMissing(err) {
		return nil, errors.NewPageNotFoundError(id)
	}
	return page, err
}

// isMissing treats a malformed id like an absent row.
func isMissing(err error) bool {
	if stderrors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

func sectionIDs(ctx context.Context, tx *sql.Tx, pageID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, querySectionIDs, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func listSections(ctx context.Context, db querier, pageID string) ([]*models.Section, error) {
	rows, err := db.QueryContext(ctx, queryListSections, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := []*models.Section{}
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

func scanPage(row rowScanner) (*models.Page, error) {
	var p models.Page
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Status, &p.MetaTitle, &p.MetaDescription, &p.OGImageURL, &p.PageType, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanSection(row rowScanner) (*models.Section, error) {
	var (
		s   models.Section
		raw []byte
	)
	if err := row.Scan(&s.ID, &s.PageID, &s.SectionType, &raw, &s.DisplayOrder, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Content = models.Content{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Content); err != nil {
			return nil, fmt.Errorf("decode content of section %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

// dbError passes coded errors through and wraps the rest.
func dbError(op string, err error) error {
	if err == nil {
		return nil
	}
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return err
	}
	return errors.NewDatabaseError(op, err)
}

func pageWriteError(op, slug string, err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.NewDuplicateSlugError(slug)
	}
	return dbError(op, err)
}
