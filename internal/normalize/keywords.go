package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxKeywords        = 8
	minKeywordRunes    = 3
	fallbackQueryRunes = 100
)

var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "will": {}, "would": {}, "could": {}, "should": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "its": {}, "he": {}, "she": {}, "they": {},
	"we": {}, "you": {},
}

// ExtractKeywords derives a search query from text: the first eight
// non-stop-word tokens longer than two characters, in original order.
// Falls back to the first 100 characters of text when nothing remains.
func ExtractKeywords(text string) string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")

	keywords := make([]string, 0, maxKeywords)
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) < minKeywordRunes {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}

	if len(keywords) == 0 {
		return truncateRunes(text, fallbackQueryRunes)
	}
	return strings.Join(keywords, " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
