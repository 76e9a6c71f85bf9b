package chatbot

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	citationRe = regexp.MustCompile(`\[doc_(\d+)\]`)

	// Question shapes that name a single document, e.g.
	// `what does document "Plan" about` or `show the content of document 'Plan'`.
	docAboutRe   = regexp.MustCompile(`(?i)document\s+["']?([^"']+)["']?\s+about`)
	docContentRe = regexp.MustCompile(`(?i)content\s+of\s+document\s+["']?([^"']+)["']?`)
)

// ExtractCitations parses [doc_<id>] markers out of an answer. Each id is
// reported once, in first-appearance order. Markers whose id does not parse
// as an integer are dropped.
func ExtractCitations(answer string) []int64 {
	matches := citationRe.FindAllStringSubmatch(answer, -1)
	ids := make([]int64, 0, len(matches))
	seen := make(map[int64]bool)
	for _, m := range matches {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// ExtractDocumentTitle pulls a document name out of a question when the
// question targets one document by name. Returns "" when no pattern matches.
func ExtractDocumentTitle(question string) string {
	for _, re := range []*regexp.Regexp{docAboutRe, docContentRe} {
		if m := re.FindStringSubmatch(question); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
