// Package chatbot answers user questions grounded in extracted document text.
package chatbot

import (
	"strings"
	"unicode/utf8"

	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

// MaxContextLength caps the assembled prompt context in bytes. Documents past
// the cap are dropped; the document that crosses it is truncated in place.
const MaxContextLength = 8000

// BuildContext renders extracted contents into a prompt context string and
// returns the id-to-name map of every document that contributed text.
// Contents with empty text are skipped. Once the cap is reached assembly
// stops; later documents do not appear in the map.
func BuildContext(contents []store.DocumentContent) (string, map[int64]string) {
	var b strings.Builder
	included := make(map[int64]string)

	for _, c := range contents {
		if c.ContentText == "" {
			continue
		}
		block := "Document: " + c.DocumentName + "\nContent: " + c.ContentText + "\n\n"
		if b.Len()+len(block) > MaxContextLength {
			if part := truncateToRune(block, MaxContextLength-b.Len()); part != "" {
				b.WriteString(part)
				included[c.DocumentID] = c.DocumentName
			}
			break
		}
		b.WriteString(block)
		included[c.DocumentID] = c.DocumentName
	}

	return b.String(), included
}

// BuildSnippets maps document ids to their extracted text, for the cited
// generation path. The same cap applies across the concatenated snippets.
func BuildSnippets(contents []store.DocumentContent) (map[int64]string, map[int64]string) {
	snippets := make(map[int64]string)
	names := make(map[int64]string)
	total := 0

	for _, c := range contents {
		if c.ContentText == "" {
			continue
		}
		if total >= MaxContextLength {
			break
		}
		text := c.ContentText
		if total+len(text) > MaxContextLength {
			text = truncateToRune(text, MaxContextLength-total)
			if text == "" {
				break
			}
		}
		snippets[c.DocumentID] = text
		names[c.DocumentID] = c.DocumentName
		total += len(text)
	}

	return snippets, names
}

// truncateToRune cuts s at n bytes, backing the cut up so it never lands in
// the middle of a multibyte rune.
func truncateToRune(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
