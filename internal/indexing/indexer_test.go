package indexing

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hiennvn/vtnet-sample-2025/internal/search"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type fakeStore struct {
	statuses  map[int64]string
	completed map[int64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: map[int64]string{}, completed: map[int64]string{}}
}

func (f *fakeStore) SetContentStatus(_ context.Context, versionID int64, status string) error {
	f.statuses[versionID] = status
	return nil
}

func (f *fakeStore) CompleteContent(_ context.Context, versionID int64, text string) error {
	f.statuses[versionID] = store.IndexCompleted
	f.completed[versionID] = text
	return nil
}

func (f *fakeStore) ListDocumentsByProject(context.Context, int64) ([]store.Document, error) {
	return nil, nil
}

func (f *fakeStore) GetLatestVersion(context.Context, int64) (store.DocumentVersion, error) {
	return store.DocumentVersion{}, nil
}

type fakeBlobs struct {
	data map[string]string
	err  error
}

func (f *fakeBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.data[key])), nil
}

func (f *fakeBlobs) Put(context.Context, string, io.Reader, int64, string) error { return nil }
func (f *fakeBlobs) Remove(context.Context, string) error                        { return nil }

type fakeSearch struct {
	indexed []search.DocumentRecord
}

func (f *fakeSearch) IndexDocument(doc search.DocumentRecord) {
	f.indexed = append(f.indexed, doc)
}

func TestIndexVersionCompletes(t *testing.T) {
	st := newFakeStore()
	blobs := &fakeBlobs{data: map[string]string{"documents/1/versions/10": "hello world"}}
	idx := &fakeSearch{}
	ix := NewIndexer(st, blobs, NewRegistry(TextExtractor{}), idx)

	doc := store.Document{ID: 1, Name: "notes.txt", MimeType: "text/plain", ProjectID: 2, FolderID: 3}
	version := store.DocumentVersion{ID: 10, DocumentID: 1, StoragePath: "documents/1/versions/10"}

	if err := ix.IndexVersion(context.Background(), doc, version); err != nil {
		t.Fatalf("IndexVersion: %v", err)
	}
	if st.statuses[10] != store.IndexCompleted {
		t.Fatalf("status = %q, want COMPLETED", st.statuses[10])
	}
	if st.completed[10] != "hello world" {
		t.Fatalf("content = %q", st.completed[10])
	}
	if len(idx.indexed) != 1 || idx.indexed[0].Content != "hello world" || idx.indexed[0].ProjectID != 2 {
		t.Fatalf("search record = %+v", idx.indexed)
	}
}

func TestIndexVersionUnsupportedMimeFails(t *testing.T) {
	st := newFakeStore()
	ix := NewIndexer(st, &fakeBlobs{}, NewRegistry(TextExtractor{}), nil)

	doc := store.Document{ID: 1, MimeType: "application/pdf"}
	version := store.DocumentVersion{ID: 10}

	if err := ix.IndexVersion(context.Background(), doc, version); err != nil {
		t.Fatalf("IndexVersion: %v", err)
	}
	if st.statuses[10] != store.IndexFailed {
		t.Fatalf("status = %q, want FAILED", st.statuses[10])
	}
}

func TestIndexVersionBlobErrorFails(t *testing.T) {
	st := newFakeStore()
	ix := NewIndexer(st, &fakeBlobs{err: errors.New("gone")}, NewRegistry(TextExtractor{}), nil)

	doc := store.Document{ID: 1, MimeType: "text/plain"}
	version := store.DocumentVersion{ID: 10, StoragePath: "missing"}

	if err := ix.IndexVersion(context.Background(), doc, version); err != nil {
		t.Fatalf("IndexVersion: %v", err)
	}
	if st.statuses[10] != store.IndexFailed {
		t.Fatalf("status = %q, want FAILED", st.statuses[10])
	}
}

func TestTextExtractorMimeMatching(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"text/plain", true},
		{"TEXT/PLAIN", true},
		{"text/plain; charset=utf-8", true},
		{"text/markdown", true},
		{"application/json", true},
		{"application/pdf", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := (TextExtractor{}).CanExtract(tc.mime); got != tc.want {
			t.Errorf("CanExtract(%q) = %v, want %v", tc.mime, got, tc.want)
		}
	}
}
