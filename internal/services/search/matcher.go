// Package search finds keyword occurrences in extracted text fragments.
//
// A query is one or more plain-text alternatives separated by "|". Each
// alternative is escaped, so the user never writes a regular expression;
// the alternatives are then joined into a single case-insensitive pattern.
//
// Matching is substring based, not whole-word: "bet" finds "alphabet".
// Because the alternatives share one pattern, hits inside a fragment never
// overlap. At any position the leftmost hit wins, and when two alternatives
// start at the same place the one listed first wins. Equal text in two
// places is still two matches; nothing is deduplicated.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

// Query is a compiled search string. The zero value matches nothing.
type Query struct {
	alternatives []string
	re           *regexp.Regexp
}

// Compile parses a raw search string. Empty or whitespace-only input, or
// input made only of separators, yields an empty query.
func Compile(raw string) *Query {
	q := &Query{}

	var quoted []string
	for _, alt := range strings.Split(raw, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		q.alternatives = append(q.alternatives, alt)
		quoted = append(quoted, regexp.QuoteMeta(alt))
	}
	if len(quoted) == 0 {
		return q
	}

	// QuoteMeta output is always a valid pattern, so MustCompile cannot panic here.
	q.re = regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
	return q
}

// Empty reports whether the query can match anything.
func (q *Query) Empty() bool {
	return q == nil || q.re == nil
}

// Find scans every fragment of every page and returns one Match per hit,
// in document order: page, then fragment, then position in the fragment.
func Find(pages []models.Page, q *Query) []models.Match {
	matches := []models.Match{}
	if q.Empty() {
		return matches
	}

	for _, page := range pages {
		for idx, frag := range page.Fragments {
			for occ, loc := range q.re.FindAllStringIndex(frag.Text, -1) {
				pageNum := frag.PageNumber
				if pageNum == 0 {
					pageNum = page.Number
				}
				matches = append(matches, models.Match{
					PageNumber:   pageNum,
					MatchedText:  frag.Text[loc[0]:loc[1]],
					FragmentText: frag.Text,
					MatchIndex:   idx,
					Occurrence:   occ,
					Position:     frag.Position,
				})
			}
		}
	}
	return matches
}

// Summarize builds the result line shown above the document.
func Summarize(matches []models.Match) models.ResultSummary {
	pages := make(map[int]struct{})
	for _, m := range matches {
		pages[m.PageNumber] = struct{}{}
	}

	s := models.ResultSummary{Count: len(matches), Pages: len(pages)}
	switch {
	case s.Count == 0:
		s.Message = "No results found"
	case s.Pages == 1:
		s.Message = fmt.Sprintf("%d %s found on 1 page", s.Count, plural(s.Count, "result", "results"))
	default:
		s.Message = fmt.Sprintf("%d %s found on %d pages", s.Count, plural(s.Count, "result", "results"), s.Pages)
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
