// Package search provides full-text search over document names and extracted
// content, backed by Meilisearch with a PostgreSQL ILIKE fallback.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	DocumentID int64  `json:"documentId"`
	Name       string `json:"name"`
	ProjectID  int64  `json:"projectId"`
	FolderID   int64  `json:"folderId"`
	MimeType   string `json:"mimeType"`
	Snippet    string `json:"snippet,omitempty"`
}

// Query describes a search request. ProjectIDs restricts hits to the
// projects the caller may read; nil means no restriction.
type Query struct {
	Text       string
	ProjectIDs []int64
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProjectID int64  `json:"projectId"`
	FolderID  int64  `json:"folderId"`
	MimeType  string `json:"mimeType"`
	Content   string `json:"content"`
}
