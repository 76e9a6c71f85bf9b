package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type fakeFallback struct {
	search func(ctx context.Context, query string, projectIDs []int64, limit int) ([]store.Document, error)
}

func (f *fakeFallback) SearchDocuments(ctx context.Context, query string, projectIDs []int64, limit int) ([]store.Document, error) {
	return f.search(ctx, query, projectIDs, limit)
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	var gotScope []int64
	db := &fakeFallback{
		search: func(_ context.Context, query string, projectIDs []int64, limit int) ([]store.Document, error) {
			if query != "plan" {
				t.Fatalf("query = %q", query)
			}
			if limit != 20 {
				t.Fatalf("limit = %d, want default 20", limit)
			}
			gotScope = projectIDs
			return []store.Document{{ID: 7, Name: "Plan", ProjectID: 3, FolderID: 9, MimeType: "text/plain"}}, nil
		},
	}
	svc := NewService(nil, db)

	resp := svc.Search(context.Background(), Query{Text: "plan", ProjectIDs: []int64{3, 4}})
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	r := resp.Results[0]
	if r.DocumentID != 7 || r.Name != "Plan" || r.ProjectID != 3 {
		t.Fatalf("result = %+v", r)
	}
	if len(gotScope) != 2 {
		t.Fatalf("project scope not forwarded: %v", gotScope)
	}
}

func TestSearchFallbackErrorYieldsEmptyResponse(t *testing.T) {
	db := &fakeFallback{
		search: func(context.Context, string, []int64, int) ([]store.Document, error) {
			return nil, errors.New("db down")
		},
	}
	resp := NewService(nil, db).Search(context.Background(), Query{Text: "x"})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Total != 0 {
		t.Fatalf("response = %+v", resp)
	}
}
