package chatbot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

func TestBuildContext(t *testing.T) {
	contents := []store.DocumentContent{
		{DocumentID: 1, DocumentName: "Plan", ContentText: "alpha"},
		{DocumentID: 2, DocumentName: "Notes", ContentText: ""},
		{DocumentID: 3, DocumentName: "Budget", ContentText: "beta"},
	}
	text, included := BuildContext(contents)

	want := "Document: Plan\nContent: alpha\n\nDocument: Budget\nContent: beta\n\n"
	if text != want {
		t.Fatalf("context = %q, want %q", text, want)
	}
	if len(included) != 2 || included[1] != "Plan" || included[3] != "Budget" {
		t.Fatalf("included = %v", included)
	}
	if _, ok := included[2]; ok {
		t.Fatal("empty-text document should not be included")
	}
}

func TestBuildContextNeverExceedsCap(t *testing.T) {
	big := strings.Repeat("x", 6000)
	contents := []store.DocumentContent{
		{DocumentID: 1, DocumentName: "A", ContentText: big},
		{DocumentID: 2, DocumentName: "B", ContentText: big},
		{DocumentID: 3, DocumentName: "C", ContentText: big},
	}
	text, included := BuildContext(contents)

	if len(text) > MaxContextLength {
		t.Fatalf("context length %d exceeds cap %d", len(text), MaxContextLength)
	}
	// The second document crosses the cap and is truncated in place; the
	// third never makes it in.
	if len(included) != 2 {
		t.Fatalf("included = %v, want documents 1 and 2", included)
	}
	if _, ok := included[3]; ok {
		t.Fatal("document past the cap must not be included")
	}
}

func TestBuildContextStopsAtExactCap(t *testing.T) {
	contents := []store.DocumentContent{
		{DocumentID: 1, DocumentName: "A", ContentText: strings.Repeat("x", MaxContextLength)},
		{DocumentID: 2, DocumentName: "B", ContentText: "more"},
	}
	text, included := BuildContext(contents)
	if len(text) != MaxContextLength {
		t.Fatalf("context length = %d, want %d", len(text), MaxContextLength)
	}
	if _, ok := included[2]; ok {
		t.Fatal("no room remained for document 2")
	}
}

func TestBuildContextTruncatesOnRuneBoundary(t *testing.T) {
	// The block header is 21 bytes, so the cap lands mid-rune in the
	// two-byte content.
	contents := []store.DocumentContent{
		{DocumentID: 1, DocumentName: "X", ContentText: strings.Repeat("é", 5000)},
	}
	text, included := BuildContext(contents)

	if len(text) > MaxContextLength {
		t.Fatalf("context length %d exceeds cap %d", len(text), MaxContextLength)
	}
	if !utf8.ValidString(text) {
		t.Fatal("truncation split a rune")
	}
	if included[1] != "X" {
		t.Fatalf("included = %v", included)
	}
}

func TestBuildSnippets(t *testing.T) {
	contents := []store.DocumentContent{
		{DocumentID: 7, DocumentName: "Plan", ContentText: strings.Repeat("a", 7000)},
		{DocumentID: 8, DocumentName: "Budget", ContentText: strings.Repeat("b", 7000)},
		{DocumentID: 9, DocumentName: "Late", ContentText: "c"},
	}
	snippets, names := BuildSnippets(contents)

	total := 0
	for _, s := range snippets {
		total += len(s)
	}
	if total > MaxContextLength {
		t.Fatalf("snippet total %d exceeds cap", total)
	}
	if len(snippets[7]) != 7000 {
		t.Fatalf("first snippet truncated to %d", len(snippets[7]))
	}
	if len(snippets[8]) != 1000 {
		t.Fatalf("second snippet = %d bytes, want 1000", len(snippets[8]))
	}
	if _, ok := snippets[9]; ok {
		t.Fatal("document past the cap must be dropped")
	}
	if names[7] != "Plan" || names[8] != "Budget" {
		t.Fatalf("names = %v", names)
	}
}

func TestBuildSnippetsTruncatesOnRuneBoundary(t *testing.T) {
	contents := []store.DocumentContent{
		{DocumentID: 7, DocumentName: "Plan", ContentText: strings.Repeat("a", 7001)},
		{DocumentID: 8, DocumentName: "Budget", ContentText: strings.Repeat("é", 1000)},
	}
	snippets, _ := BuildSnippets(contents)

	// 999 bytes remain and the rune is two bytes wide, so the snippet
	// backs up to 998.
	if got := snippets[8]; len(got) != 998 || !utf8.ValidString(got) {
		t.Fatalf("snippet = %d bytes, valid = %v", len(got), utf8.ValidString(got))
	}
}
