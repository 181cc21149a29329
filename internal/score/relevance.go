package score

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

const (
	titleWeight   = 0.7
	snippetWeight = 0.3
	minRelevance  = 0.1
)

// Relevance scores how well a result's title and snippet cover the query words.
func (s *Scorer) Relevance(title, snippet, query string) float64 {
	queryWords := wordSet(query)
	denominator := len(queryWords)
	if denominator < 1 {
		denominator = 1
	}

	titleOverlap := float64(overlap(queryWords, wordSet(title))) / float64(denominator)
	snippetOverlap := float64(overlap(queryWords, wordSet(snippet))) / float64(denominator)

	return clamp(titleWeight*titleOverlap+snippetWeight*snippetOverlap, minRelevance, 1)
}

func wordSet(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(query, other map[string]struct{}) int {
	n := 0
	for w := range query {
		if _, ok := other[w]; ok {
			n++
		}
	}
	return n
}
