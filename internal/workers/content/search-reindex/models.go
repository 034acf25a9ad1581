package searchreindex

// Input names one page to reindex. An empty PageID reindexes every page.
type Input struct {
	PageID string `json:"pageId,omitempty"`
}

type Output struct {
	Index   string `json:"index"`
	Indexed int    `json:"indexed"`
}
