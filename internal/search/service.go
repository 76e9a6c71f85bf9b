package search

import (
	"context"
	"log"

	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

// fallbackStore is the database search used when Meilisearch is unavailable.
type fallbackStore interface {
	SearchDocuments(ctx context.Context, query string, projectIDs []int64, limit int) ([]store.Document, error)
}

// Service is the facade that tries Meilisearch first and falls back to an
// ILIKE scan over the database.
type Service struct {
	meili *Meili
	db    fallbackStore
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, db fallbackStore) *Service {
	return &Service{meili: meili, db: db}
}

// Search tries Meilisearch if healthy, otherwise queries the database.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to database: %v", err)
	}

	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	documents, err := s.db.SearchDocuments(ctx, q.Text, q.ProjectIDs, limit)
	if err != nil {
		log.Printf("search: database fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}

	results := make([]Result, 0, len(documents))
	for _, d := range documents {
		results = append(results, Result{
			DocumentID: d.ID,
			Name:       d.Name,
			ProjectID:  d.ProjectID,
			FolderID:   d.FolderID,
			MimeType:   d.MimeType,
		})
	}
	return Response{Results: results, Total: len(results), Query: q.Text}
}

// IndexDocument pushes a document into Meilisearch, fire-and-forget.
func (s *Service) IndexDocument(doc DocumentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexDocument(doc); err != nil {
			log.Printf("search: index document %d: %v", doc.ID, err)
		}
	}()
}

// DeleteDocument removes a document from the search index, fire-and-forget.
func (s *Service) DeleteDocument(id int64) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDocument(id); err != nil {
			log.Printf("search: delete document %d: %v", id, err)
		}
	}()
}

// ReindexAll bulk-pushes document records into Meilisearch.
func (s *Service) ReindexAll(documents []DocumentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexDocuments(documents); err != nil {
		log.Printf("search: reindex documents: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
