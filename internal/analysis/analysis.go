// Package analysis derives a short summary and keyword list from a model response.
package analysis

import (
	"regexp"
	"strings"
)

// DefaultKeywordCount is how many keywords are shown next to a response
const DefaultKeywordCount = 10

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "in": {}, "to": {}, "a": {}, "is": {},
	"with": {}, "for": {}, "on": {}, "as": {}, "an": {}, "by": {}, "its": {},
	"this": {}, "are": {}, "be": {}, "at": {}, "or": {}, "from": {},
}

// Summary keeps the first three period-separated pieces of text.
// Pieces are joined with ". " and a final period is appended.
func Summary(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	pieces := strings.Split(text, ".")
	if len(pieces) > 3 {
		pieces = pieces[:3]
	}
	return strings.Join(pieces, ". ") + "."
}

// Keywords returns the n most frequent non-stopwords, joined by ", ".
// Words with equal counts keep the order in which they first appear.
func Keywords(text string, n int) string {
	return strings.Join(TopWords(text, n), ", ")
}

// TopWords is Keywords without the joining step
func TopWords(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	counts := make(map[string]int, len(words))
	order := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := counts[w]; !ok {
			order = append(order, w)
		}
		counts[w]++
	}

	// stable insertion sort by count keeps first-occurrence order on ties
	ranked := make([]string, 0, len(order))
	for _, w := range order {
		if _, skip := stopwords[w]; skip {
			continue
		}
		i := len(ranked)
		ranked = append(ranked, w)
		for i > 0 && counts[ranked[i-1]] < counts[w] {
			ranked[i] = ranked[i-1]
			i--
		}
		ranked[i] = w
	}

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
