// Package indexing extracts searchable text from uploaded document versions.
package indexing

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Extractor pulls plain text out of one class of document formats.
type Extractor interface {
	CanExtract(mimeType string) bool
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// Registry resolves the extractor for a MIME type. Resolution order follows
// registration order.
type Registry struct {
	extractors []Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

func (r *Registry) Resolve(mimeType string) (Extractor, bool) {
	for _, e := range r.extractors {
		if e.CanExtract(mimeType) {
			return e, true
		}
	}
	return nil, false
}

// maxExtractBytes bounds how much of a document is read during extraction.
const maxExtractBytes = 10 << 20

var textMimeTypes = []string{
	"text/plain",
	"text/markdown",
	"text/csv",
	"text/html",
	"text/xml",
	"application/json",
}

// TextExtractor reads UTF-8 text formats as-is.
type TextExtractor struct{}

func (TextExtractor) CanExtract(mimeType string) bool {
	mimeType = normalizeMime(mimeType)
	for _, t := range textMimeTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

func (TextExtractor) Extract(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxExtractBytes))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(data), nil
}

// normalizeMime strips parameters like "; charset=utf-8" and lowercases.
func normalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
