package search

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/models"
	"site-cms/internal/store"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type fakeElastic struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, r)
}

func (f *fakeElastic) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func createTestIndexer(t *testing.T, reader store.Reader, handler func(w http.ResponseWriter, r *http.Request)) (*Indexer, *fakeElastic) {
	t.Helper()
	fake := &fakeElastic{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndexer(es, "", reader, logger.NewTestLogger(t)), fake
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(`{"result":"created"}`))
}

func seedStore(t *testing.T) (*store.MemoryStore, *models.Page) {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()
	page, err := s.CreatePage(ctx, models.PageMeta{Title: "Roof Repair", Slug: "roof-repair", Status: models.PageStatusPublished, PageType: models.PageTypeService})
	require.NoError(t, err)
	_, err = s.AddSection(ctx, page.ID, models.SectionHero, models.Content{"headline": "Leaks fixed fast"}, 0)
	require.NoError(t, err)
	_, err = s.AddSection(ctx, page.ID, models.SectionProcessSteps, models.Content{
		"title": "How it works",
		"steps": []interface{}{
			map[string]interface{}{"number": "01", "title": "Inspect"},
		},
	}, 1)
	require.NoError(t, err)
	return s, page
}

// ==========================
// Document building
// ==========================

func TestBuildDocument_FlattensContent(t *testing.T) {
	agg := &models.PageWithSections{
		Page: &models.Page{ID: "p1", Title: "Home", Slug: "home", Status: models.PageStatusPublished},
		Sections: []*models.Section{
			{SectionType: models.SectionHero, Content: models.Content{
				"headline":    "Build better",
				"cta_primary": map[string]interface{}{"text": "Start", "link": "/contact"},
			}},
			{SectionType: models.SectionFeaturesGrid, Content: models.Content{
				"items": []interface{}{
					map[string]interface{}{"title": "Fast", "features": []interface{}{"one", "  "}},
				},
			}},
		},
	}

	doc := BuildDocument(agg)
	assert.Equal(t, "home", doc.Slug)
	assert.Equal(t, []string{"hero", "features_grid"}, doc.SectionTypes)
	assert.Equal(t, "/contact Start Build better one Fast", doc.Content)
	assert.Empty(t, doc.UpdatedAt)
}

func TestBuildQuery_StatusFilter(t *testing.T) {
	q := BuildQuery("roof", "")
	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title^3"`)
	assert.NotContains(t, string(data), `"filter"`)

	q = BuildQuery("roof", models.PageStatusPublished)
	data, err = json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"term":{"status":"published"}}`)
}

// ==========================
// Index operations
// ==========================

func TestEnsureIndex(t *testing.T) {
	t.Run("creates missing index", func(t *testing.T) {
		ix, fake := createTestIndexer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		})

		require.NoError(t, ix.EnsureIndex(context.Background()))
		reqs := fake.recorded()
		require.Len(t, reqs, 2)
		assert.Equal(t, http.MethodPut, reqs[1].Method)
		assert.Equal(t, "/"+DefaultIndex, reqs[1].Path)
		assert.Contains(t, reqs[1].Body, `"section_types"`)
	})

	t.Run("existing index is left alone", func(t *testing.T) {
		ix, fake := createTestIndexer(t, nil, okHandler)
		require.NoError(t, ix.EnsureIndex(context.Background()))
		assert.Len(t, fake.recorded(), 1)
	})
}

func TestIndexer_PageChanged(t *testing.T) {
	s, page := seedStore(t)
	ix, fake := createTestIndexer(t, s, okHandler)
	ctx := context.Background()

	require.NoError(t, ix.PageChanged(ctx, store.Change{Kind: store.SectionsChanged, Page: page}))
	require.NoError(t, ix.PageChanged(ctx, store.Change{Kind: store.PageDeleted, Page: page}))
	require.NoError(t, ix.PageChanged(ctx, store.Change{Kind: store.PageDeleted}))

	reqs := fake.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/"+DefaultIndex+"/_doc/"+page.ID, reqs[0].Path)

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &doc))
	assert.Equal(t, "roof-repair", doc.Slug)
	assert.Equal(t, []string{"hero", "process_steps"}, doc.SectionTypes)
	assert.Contains(t, doc.Content, "Leaks fixed fast")
	assert.Contains(t, doc.Content, "Inspect")

	assert.Equal(t, http.MethodDelete, reqs[1].Method)
}

func TestIndexer_DeleteMissingDocument(t *testing.T) {
	ix, _ := createTestIndexer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})
	assert.NoError(t, ix.DeletePage(context.Background(), "gone"))
}

func TestIndexer_ReindexAll(t *testing.T) {
	s, _ := seedStore(t)
	_, err := s.CreatePage(context.Background(), models.PageMeta{Title: "About", Slug: "about"})
	require.NoError(t, err)

	ix, fake := createTestIndexer(t, s, okHandler)
	n, err := ix.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, fake.recorded(), 2)
}

func TestIndexer_IndexFailure(t *testing.T) {
	s, page := seedStore(t)
	ix, _ := createTestIndexer(t, s, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	err := ix.Reindex(context.Background(), page.ID)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, &apperrors.StandardError{Code: apperrors.ErrCodeSearchQueryFailed}))
}

// ==========================
// Search
// ==========================

func TestIndexer_Search(t *testing.T) {
	ix, fake := createTestIndexer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"took": 3,
			"hits": {
				"total": {"value": 1},
				"max_score": 1.7,
				"hits": [
					{"_id": "p1", "_score": 1.7, "_source": {"title": "Roof Repair", "slug": "roof-repair", "status": "published"}}
				]
			}
		}`))
	})

	res, err := ix.Search(context.Background(), "roof", models.PageStatusPublished, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, Hit{ID: "p1", Score: 1.7, Title: "Roof Repair", Slug: "roof-repair", Status: "published"}, res.Hits[0])

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasSuffix(reqs[0].Path, "/_search"))
	assert.Contains(t, reqs[0].Body, `"query":"roof"`)
}

func TestIndexer_SearchRequiresQuery(t *testing.T) {
	ix, fake := createTestIndexer(t, nil, okHandler)
	_, err := ix.Search(context.Background(), "  ", "", 0)
	assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed))
	assert.Empty(t, fake.recorded())
}
