// Package search keeps an elasticsearch index of pages for admin lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/models"
	"site-cms/internal/store"
)

const DefaultIndex = "site_pages"

const (
	defaultSize = 20
	maxSize     = 100
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"title": {"type": "text"},
			"slug": {"type": "keyword"},
			"status": {"type": "keyword"},
			"page_type": {"type": "keyword"},
			"meta_title": {"type": "text"},
			"meta_description": {"type": "text"},
			"section_types": {"type": "keyword"},
			"content": {"type": "text"},
			"updated_at": {"type": "date"}
		}
	}
}`

// Document is what gets stored per page.
type Document struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Status          string   `json:"status"`
	PageType        string   `json:"page_type"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	SectionTypes    []string `json:"section_types"`
	Content         string   `json:"content"`
	UpdatedAt       string   `json:"updated_at"`
}

type Hit struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Title  string  `json:"title"`
	Slug   string  `json:"slug"`
	Status string  `json:"status"`
}

type Result struct {
	Total int64 `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Indexer mirrors committed page writes into elasticsearch. Postgres stays
// authoritative; a failed index call is reported but never undoes a write.
type Indexer struct {
	es     *elasticsearch.Client
	index  string
	reader store.Reader
	log    logger.Logger
}

func NewIndexer(es *elasticsearch.Client, index string, reader store.Reader, log logger.Logger) *Indexer {
	if index == "" {
		index = DefaultIndex
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Indexer{es: es, index: index, reader: reader, log: log}
}

func (ix *Indexer) Index() string { return ix.index }

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := ix.es.Indices.Exists([]string{ix.index}, ix.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.NewSearchQueryFailedError("index exists", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = ix.es.Indices.Create(
		ix.index,
		ix.es.Indices.Create.WithContext(ctx),
		ix.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return errors.NewSearchQueryFailedError("create index", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchQueryFailedError("create index", fmt.Errorf("%s", res.String()))
	}
	ix.log.Info("search index created", map[string]interface{}{"index": ix.index})
	return nil
}

// BuildDocument flattens every string found in section content into one
// searchable text field.
func BuildDocument(agg *models.PageWithSections) Document {
	p := agg.Page
	doc := Document{
		Title:           p.Title,
		Slug:            p.Slug,
		Status:          string(p.Status),
		PageType:        string(p.PageType),
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		SectionTypes:    []string{},
	}
	if !p.UpdatedAt.IsZero() {
		doc.UpdatedAt = p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	var parts []string
	for _, s := range agg.Sections {
		doc.SectionTypes = append(doc.SectionTypes, string(s.SectionType))
		parts = collectText(map[string]interface{}(s.Content), parts)
	}
	doc.Content = strings.Join(parts, " ")
	return doc
}

func collectText(v interface{}, out []string) []string {
	switch val := v.(type) {
	case string:
		if t := strings.TrimSpace(val); t != "" {
			out = append(out, t)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = collectText(val[k], out)
		}
	case models.Content:
		out = collectText(map[string]interface{}(val), out)
	case []interface{}:
		for _, item := range val {
			out = collectText(item, out)
		}
	case []string:
		for _, item := range val {
			out = collectText(item, out)
		}
	}
	return out
}

func (ix *Indexer) IndexPage(ctx context.Context, agg *models.PageWithSections) error {
	data, err := json.Marshal(BuildDocument(agg))
	if err != nil {
		return errors.NewSearchQueryFailedError("index page", err)
	}

	req := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: agg.Page.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return errors.NewSearchQueryFailedError("index page", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchQueryFailedError("index page", fmt.Errorf("%s", res.String()))
	}
	return nil
}

// DeletePage removes the page document. A missing document is not an error.
func (ix *Indexer) DeletePage(ctx context.Context, pageID string) error {
	req := esapi.DeleteRequest{
		Index:      ix.index,
		DocumentID: pageID,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return errors.NewSearchQueryFailedError("delete page", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return errors.NewSearchQueryFailedError("delete page", fmt.Errorf("%s", res.String()))
	}
	return nil
}

// Reindex loads one page aggregate from the store and indexes it.
func (ix *Indexer) Reindex(ctx context.Context, pageID string) error {
	page, err := ix.reader.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	agg, err := store.LoadAggregate(ctx, ix.reader, page)
	if err != nil {
		return err
	}
	return ix.IndexPage(ctx, agg)
}

// ReindexAll walks every page in the store. It returns the number indexed.
func (ix *Indexer) ReindexAll(ctx context.Context) (int, error) {
	pages, err := ix.reader.ListPages(ctx, models.PageFilter{})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range pages {
		agg, err := store.LoadAggregate(ctx, ix.reader, p)
		if err != nil {
			return n, err
		}
		if err := ix.IndexPage(ctx, agg); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// BuildQuery returns the search body: a multi_match over the text fields,
// optionally filtered to one status.
func BuildQuery(q string, status models.PageStatus) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    []string{"title^3", "meta_title^2", "meta_description", "content"},
				"fuzziness": "AUTO",
			},
		},
	}
	boolQuery := map[string]interface{}{"must": must}
	if status != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"status": string(status)}},
		}
	}
	return map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}}
}

func (ix *Indexer) Search(ctx context.Context, q string, status models.PageStatus, size int) (*Result, error) {
	if strings.TrimSpace(q) == "" {
		return nil, errors.NewValidationError("search query is required")
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	body, err := json.Marshal(BuildQuery(q, status))
	if err != nil {
		return nil, errors.NewSearchQueryFailedError("search", err)
	}
	from := 0
	req := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError("search", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError("search", fmt.Errorf("%s", res.String()))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string   `json:"_id"`
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError("decode search response", err)
	}

	out := &Result{Total: r.Hits.Total.Value, Hits: make([]Hit, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		out.Hits = append(out.Hits, Hit{
			ID:     h.ID,
			Score:  h.Score,
			Title:  h.Source.Title,
			Slug:   h.Source.Slug,
			Status: h.Source.Status,
		})
	}
	return out, nil
}

func (ix *Indexer) Name() string { return "search-index" }

// PageChanged keeps the index in step with store writes.
func (ix *Indexer) PageChanged(ctx context.Context, change store.Change) error {
	if change.Page == nil {
		return nil
	}
	if change.Kind == store.PageDeleted {
		return ix.DeletePage(ctx, change.Page.ID)
	}
	return ix.Reindex(ctx, change.Page.ID)
}
