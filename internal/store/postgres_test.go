package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/internal/common/database"
	apperrors "site-cms/internal/common/errors"
	"site-cms/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func createMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgresStore(database.NewPostgresFromDB(db))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

var pageRowColumns = []string{"id", "title", "slug", "status", "meta_title", "meta_description", "og_image_url", "page_type", "created_at", "updated_at"}
var sectionRowColumns = []string{"id", "page_id", "section_type", "content", "display_order", "created_at", "updated_at"}

// ==========================
// Pages
// ==========================

func TestPostgresStore_CreatePage(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectExec(q(queryInsertPage)).
		WithArgs(sqlmock.AnyArg(), "Web Design", "web-design", "published", "Web Design", "", "", "service", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	page, err := s.CreatePage(context.Background(), models.PageMeta{
		Title:    "Web Design",
		Status:   models.PageStatusPublished,
		PageType: models.PageTypeService,
	})
	require.NoError(t, err)
	assert.Equal(t, "web-design", page.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreatePage_DuplicateSlug(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectExec(q(queryInsertPage)).
		WillReturnError(&pq.Error{Code: uniqueViolation, Message: "duplicate key value violates unique constraint"})

	_, err := s.CreatePage(context.Background(), models.PageMeta{Title: "Home", Slug: "home"})
	assert.True(t, stderrors.Is(err, apperrors.ErrDuplicateSlug))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func lockedPageRow(id, slug, status, pageType string) *sqlmock.Rows {
	return sqlmock.NewRows(pageRowColumns).
		AddRow(id, "Page "+slug, slug, status, "Page "+slug, "", "", pageType, fixedNow, fixedNow)
}

func TestPostgresStore_UpdatePage_NotFound(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(queryLockMeta)).WithArgs("p1").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdatePage(context.Background(), "p1", models.PageMeta{Title: "Title"})
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdatePage_KeepsOmittedFields(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(queryLockMeta)).WithArgs("p1").
		WillReturnRows(lockedPageRow("p1", "web-design", "published", "service"))
	mock.ExpectQuery(q(queryUpdatePage)).
		WithArgs("p1", "Web Design Services", "web-design", "published", "Web Design Services", "", "", "service", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(fixedNow))
	mock.ExpectCommit()

	page, err := s.UpdatePage(context.Background(), "p1", models.PageMeta{Title: "Web Design Services"})
	require.NoError(t, err)
	assert.Equal(t, "web-design", page.Slug)
	assert.Equal(t, models.PageStatusPublished, page.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdatePage_ProtectedSlug(t *testing.T) {
	tests := []struct {
		name     string
		slug     string
		pageType string
		meta     models.PageMeta
	}{
		{"rename core slug", "home", "core", models.PageMeta{Title: "Home", Slug: "home-page"}},
		{"protected slug with other type", "contact", "other", models.PageMeta{Title: "Contact", Slug: "get-in-touch"}},
		{"demote core type", "pricing", "core", models.PageMeta{Title: "Pricing", PageType: models.PageTypeOther}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := createMockStore(t)
			mock.ExpectBegin()
			mock.ExpectQuery(q(queryLockMeta)).WithArgs("p1").
				WillReturnRows(lockedPageRow("p1", tt.slug, "published", tt.pageType))
			mock.ExpectRollback()

			_, err := s.UpdatePage(context.Background(), "p1", tt.meta)
			assert.True(t, stderrors.Is(err, apperrors.ErrProtectedPage))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_MalformedIDIsNotFound(t *testing.T) {
	s, mock := createMockStore(t)
	badID := &pq.Error{Code: invalidTextRepresentation, Message: "invalid input syntax for type uuid"}

	mock.ExpectQuery(q(queryPageByID)).WithArgs("abc").WillReturnError(badID)
	mock.ExpectQuery(q(querySectionByID)).WithArgs("abc").WillReturnError(badID)
	mock.ExpectQuery(q(queryListSections)).WithArgs("abc").WillReturnError(badID)
	mock.ExpectBegin()
	mock.ExpectQuery(q(queryLockMeta)).WithArgs("abc").WillReturnError(badID)
	mock.ExpectRollback()

	ctx := context.Background()
	_, err := s.GetPage(ctx, "abc")
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
	_, err = s.GetSection(ctx, "abc")
	assert.True(t, stderrors.Is(err, apperrors.ErrSectionNotFound))
	_, err = s.ListSections(ctx, "abc")
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
	err = s.DeletePage(ctx, "abc")
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPageBySlug(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectQuery(q(queryPageBySlug)).
		WithArgs("home").
		WillReturnRows(sqlmock.NewRows(pageRowColumns).
			AddRow("p1", "Home", "home", "published", "Home", "desc", "", "core", fixedNow, fixedNow))
	mock.ExpectQuery(q(queryPageBySlug)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(pageRowColumns))

	page, err := s.GetPageBySlug(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, models.PageStatusPublished, page.Status)
	assert.Equal(t, models.PageTypeCore, page.PageType)

	_, err = s.GetPageBySlug(context.Background(), "nope")
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPagesQuery(t *testing.T) {
	query, args := listPagesQuery(models.PageFilter{})
	assert.Equal(t, queryListPages+" ORDER BY created_at, slug", query)
	assert.Empty(t, args)

	query, args = listPagesQuery(models.PageFilter{Status: models.PageStatusPublished, ExcludeSlugs: []string{"home"}})
	assert.Equal(t, queryListPages+" WHERE status = $1 AND slug <> ALL($2) ORDER BY created_at, slug", query)
	assert.Len(t, args, 2)
}

func TestPostgresStore_DeletePage(t *testing.T) {
	t.Run("protected slug", func(t *testing.T) {
		s, mock := createMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(queryLockMeta)).WithArgs("p1").
			WillReturnRows(lockedPageRow("p1", "contact", "published", "other"))
		mock.ExpectRollback()

		err := s.DeletePage(context.Background(), "p1")
		assert.True(t, stderrors.Is(err, apperrors.ErrProtectedPage))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("core page type", func(t *testing.T) {
		s, mock := createMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(queryLockMeta)).WithArgs("p4").
			WillReturnRows(lockedPageRow("p4", "home-page", "published", "core"))
		mock.ExpectRollback()

		err := s.DeletePage(context.Background(), "p4")
		assert.True(t, stderrors.Is(err, apperrors.ErrProtectedPage))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unprotected", func(t *testing.T) {
		s, mock := createMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(queryLockMeta)).WithArgs("p2").
			WillReturnRows(lockedPageRow("p2", "spring-promo", "draft", "other"))
		mock.ExpectExec(q(queryDeletePage)).WithArgs("p2").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.DeletePage(context.Background(), "p2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := createMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(queryLockMeta)).WithArgs("p3").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := s.DeletePage(context.Background(), "p3")
		assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Sections
// ==========================

func TestPostgresStore_ListSections(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectQuery(q(queryListSections)).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(sectionRowColumns).
			AddRow("s1", "p1", "hero", []byte(`{"headline":"Hi"}`), 0, fixedNow, fixedNow).
			AddRow("s2", "p1", "cta_banner", []byte(`{}`), 1, fixedNow, fixedNow))

	list, err := s.ListSections(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Hi", list[0].Content["headline"])
	assert.Equal(t, models.SectionCTABanner, list[1].SectionType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSections_MissingPage(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectQuery(q(queryListSections)).WithArgs("p9").WillReturnRows(sqlmock.NewRows(sectionRowColumns))
	mock.ExpectQuery(q(queryPageExists)).WithArgs("p9").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.ListSections(context.Background(), "p9")
	assert.True(t, stderrors.Is(err, apperrors.ErrPageNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddSection(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(queryLockPage)).WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("home"))
	mock.ExpectQuery(q(queryCountSections)).WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(q(queryShiftDown)).WithArgs("p1", 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(queryInsertSection)).
		WithArgs(sqlmock.AnyArg(), "p1", "text_content", []byte(`{"title":"T"}`), 2, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sec, err := s.AddSection(context.Background(), "p1", models.SectionTextContent, models.Content{"title": "T"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, sec.DisplayOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteSection(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(queryDeleteSection)).WithArgs("s2").
		WillReturnRows(sqlmock.NewRows([]string{"page_id", "display_order"}).AddRow("p1", 1))
	mock.ExpectExec(q(queryCloseGap)).WithArgs("p1", 1).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteSection(context.Background(), "s2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReorderSections(t *testing.T) {
	t.Run("permutation", func(t *testing.T) {
		s, mock := createMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(queryLockPage)).WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("x"))
		mock.ExpectQuery(q(querySectionIDs)).WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b").AddRow("c"))
		mock.ExpectExec(q(querySetOrder)).WithArgs("c", 0).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(querySetOrder)).WithArgs("a", 1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(querySetOrder)).WithArgs("b", 2).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.ReorderSections(context.Background(), "p1", []string{"c", "a", "b"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not a permutation", func(t *testing.T) {
		s, mock := createMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(queryLockPage)).WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("x"))
		mock.ExpectQuery(q(querySectionIDs)).WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))
		mock.ExpectRollback()

		err := s.ReorderSections(context.Background(), "p1", []string{"a", "a"})
		assert.True(t, stderrors.Is(err, apperrors.ErrInvalidReorder))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_MoveSection(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(querySectionPos)).WithArgs("s3").
		WillReturnRows(sqlmock.NewRows([]string{"page_id", "display_order"}).AddRow("p1", 2))
	mock.ExpectQuery(q(queryCountSections)).WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(q(queryMoveNeighbour)).WithArgs("p1", 1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(querySetOrder)).WithArgs("s3", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.MoveSection(context.Background(), "s3", -1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceSections_RollsBack(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(queryLockPage)).WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("home"))
	mock.ExpectExec(q(queryDeleteSections)).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q(queryInsertSection)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(queryInsertSection)).WillReturnError(stderrors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.ReplaceSections(context.Background(), "p1", []models.SectionInput{
		{SectionType: models.SectionHero},
		{SectionType: models.SectionCTABanner},
	})
	assert.True(t, stderrors.Is(err, apperrors.ErrDatabaseOperationFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreatePageWithSections(t *testing.T) {
	s, mock := createMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(queryInsertPage)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(queryInsertSection)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "hero", []byte(`{}`), 0, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(queryInsertSection)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "cta_banner", []byte(`{}`), 1, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	agg, err := s.CreatePageWithSections(context.Background(), models.PageMeta{Title: "Acme"}, []models.SectionInput{
		{SectionType: models.SectionHero},
		{SectionType: models.SectionCTABanner},
	})
	require.NoError(t, err)
	assert.Equal(t, agg.Page.ID, agg.Sections[1].PageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
