package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type fakeBlobs struct {
	putKeys     []string
	removedKeys []string
}

func (f *fakeBlobs) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	f.putKeys = append(f.putKeys, key)
	return nil
}

func (f *fakeBlobs) Get(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeBlobs) Remove(_ context.Context, key string) error {
	f.removedKeys = append(f.removedKeys, key)
	return nil
}

func uploadTestService(fs *fakeStore, blobs *fakeBlobs) *Service {
	svc := newTestService(fs)
	svc.blobs = blobs
	return svc
}

func TestUploadRemovesBlobWhenVersionInsertFails(t *testing.T) {
	fs := &fakeStore{
		getFolderFn: func(context.Context, int64) (store.Folder, error) {
			return store.Folder{ID: 10, ProjectID: 100, Name: "docs"}, nil
		},
		getDocumentFn: func(_ context.Context, documentID int64) (store.Document, error) {
			return store.Document{ID: documentID, FolderID: 10, Name: "report.pdf"}, nil
		},
		addDocumentVersionFn: func(context.Context, store.DocumentVersion) (store.DocumentVersion, error) {
			return store.DocumentVersion{}, errors.New("version conflict")
		},
	}
	blobs := &fakeBlobs{}
	svc := uploadTestService(fs, blobs)

	_, err := svc.UploadDocument(context.Background(), directorSession(), UploadInput{
		FolderID: 10,
		Name:     "report.pdf",
		MimeType: "application/pdf",
		Size:     3,
		Body:     strings.NewReader("abc"),
	})
	if err == nil {
		t.Fatal("expected version insert failure to propagate")
	}
	if len(blobs.putKeys) != 1 {
		t.Fatalf("put %d blobs, want 1", len(blobs.putKeys))
	}
	if len(blobs.removedKeys) != 1 || blobs.removedKeys[0] != blobs.putKeys[0] {
		t.Fatalf("removed = %v, want the uploaded key %q", blobs.removedKeys, blobs.putKeys[0])
	}
}

func TestUploadKeepsBlobOnSuccess(t *testing.T) {
	fs := &fakeStore{
		getFolderFn: func(context.Context, int64) (store.Folder, error) {
			return store.Folder{ID: 10, ProjectID: 100, Name: "docs"}, nil
		},
		getDocumentFn: func(_ context.Context, documentID int64) (store.Document, error) {
			return store.Document{ID: documentID, FolderID: 10, Name: "report.pdf"}, nil
		},
		addDocumentVersionFn: func(_ context.Context, v store.DocumentVersion) (store.DocumentVersion, error) {
			v.ID = 1
			v.VersionNumber = 1
			return v, nil
		},
	}
	blobs := &fakeBlobs{}
	svc := uploadTestService(fs, blobs)

	view, err := svc.UploadDocument(context.Background(), directorSession(), UploadInput{
		FolderID: 10,
		Name:     "report.pdf",
		MimeType: "application/pdf",
		Size:     3,
		Body:     strings.NewReader("abc"),
	})
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if view == nil {
		t.Fatal("expected a document view")
	}
	if len(blobs.removedKeys) != 0 {
		t.Fatalf("removed = %v, want none", blobs.removedKeys)
	}
}
