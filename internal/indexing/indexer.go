package indexing

import (
	"context"
	"fmt"
	"log"

	"github.com/hiennvn/vtnet-sample-2025/internal/search"
	"github.com/hiennvn/vtnet-sample-2025/internal/storage"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

// dataStore is the subset of the store the indexer needs.
type dataStore interface {
	SetContentStatus(ctx context.Context, versionID int64, status string) error
	CompleteContent(ctx context.Context, versionID int64, text string) error
	ListDocumentsByProject(ctx context.Context, projectID int64) ([]store.Document, error)
	GetLatestVersion(ctx context.Context, documentID int64) (store.DocumentVersion, error)
}

// searchIndex receives extracted documents, fire-and-forget.
type searchIndex interface {
	IndexDocument(doc search.DocumentRecord)
}

// Indexer drives a version's content row from PENDING to COMPLETED or FAILED.
type Indexer struct {
	store    dataStore
	blobs    storage.ObjectStore
	registry *Registry
	search   searchIndex
}

// NewIndexer wires the extraction pipeline. search may be nil when no search
// backend is configured.
func NewIndexer(st dataStore, blobs storage.ObjectStore, registry *Registry, search searchIndex) *Indexer {
	return &Indexer{store: st, blobs: blobs, registry: registry, search: search}
}

// IndexVersion extracts text for one version and records the outcome. An
// unsupported MIME type or extraction failure marks the content FAILED; only
// store errors are returned.
func (ix *Indexer) IndexVersion(ctx context.Context, doc store.Document, version store.DocumentVersion) error {
	if err := ix.store.SetContentStatus(ctx, version.ID, store.IndexProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	text, err := ix.extract(ctx, doc, version)
	if err != nil {
		log.Printf("indexing: version %d of document %d: %v", version.ID, doc.ID, err)
		if serr := ix.store.SetContentStatus(ctx, version.ID, store.IndexFailed); serr != nil {
			return fmt.Errorf("mark failed: %w", serr)
		}
		return nil
	}

	if err := ix.store.CompleteContent(ctx, version.ID, text); err != nil {
		return fmt.Errorf("complete content: %w", err)
	}

	if ix.search != nil {
		ix.search.IndexDocument(search.DocumentRecord{
			ID:        doc.ID,
			Name:      doc.Name,
			ProjectID: doc.ProjectID,
			FolderID:  doc.FolderID,
			MimeType:  doc.MimeType,
			Content:   text,
		})
	}
	return nil
}

// IndexVersionAsync runs IndexVersion in the background, detached from the
// request context.
func (ix *Indexer) IndexVersionAsync(doc store.Document, version store.DocumentVersion) {
	go func() {
		if err := ix.IndexVersion(context.Background(), doc, version); err != nil {
			log.Printf("indexing: version %d of document %d: %v", version.ID, doc.ID, err)
		}
	}()
}

// ReindexProject re-extracts the latest version of every document in a
// project and reports how many were processed.
func (ix *Indexer) ReindexProject(ctx context.Context, projectID int64) (int, error) {
	documents, err := ix.store.ListDocumentsByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	count := 0
	for _, doc := range documents {
		version, err := ix.store.GetLatestVersion(ctx, doc.ID)
		if err != nil {
			log.Printf("indexing: latest version of document %d: %v", doc.ID, err)
			continue
		}
		if err := ix.IndexVersion(ctx, doc, version); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (ix *Indexer) extract(ctx context.Context, doc store.Document, version store.DocumentVersion) (string, error) {
	extractor, ok := ix.registry.Resolve(doc.MimeType)
	if !ok {
		return "", fmt.Errorf("unsupported mime type %q", doc.MimeType)
	}

	blob, err := ix.blobs.Get(ctx, version.StoragePath)
	if err != nil {
		return "", fmt.Errorf("load blob: %w", err)
	}
	defer blob.Close()

	text, err := extractor.Extract(ctx, blob)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	return text, nil
}
