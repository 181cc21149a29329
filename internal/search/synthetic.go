package search

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/score"
)

// syntheticTemplate describes one pseudo-source. Title and snippet embed
// the query truncated to the given rune counts.
type syntheticTemplate struct {
	urlPrefix    string
	separator    string // replaces spaces in the URL slug
	titlePrefix  string
	titleRunes   int
	snippetStart string
	snippetEnd   string
	snippetRunes int
}

// Template domains are deliberately absent from the credibility table, so
// every synthetic source scores as an unknown commercial site.
var syntheticTemplates = []syntheticTemplate{
	{
		urlPrefix:    "https://example-news.com/article/",
		separator:    "-",
		titlePrefix:  "Breaking: Latest developments on ",
		titleRunes:   50,
		snippetStart: "Recent reports indicate various perspectives on ",
		snippetEnd:   ". Sources suggest multiple viewpoints exist with ongoing discussions in the community.",
		snippetRunes: 40,
	},
	{
		urlPrefix:    "https://wiki-source.net/topic/",
		separator:    "_",
		titlePrefix:  "Comprehensive overview: ",
		titleRunes:   45,
		snippetStart: "Detailed analysis of ",
		snippetEnd:   " including background information, current status, and different expert opinions on the matter.",
		snippetRunes: 35,
	},
	{
		urlPrefix:    "https://research-journal.com/papers/",
		separator:    "-",
		titlePrefix:  "Study reveals findings about ",
		titleRunes:   40,
		snippetStart: "Research conducted on ",
		snippetEnd:   " shows varying results. Data collection and analysis provide insights into different aspects of the topic.",
		snippetRunes: 30,
	},
	{
		urlPrefix:    "https://news-portal.net/stories/",
		separator:    "-",
		titlePrefix:  "Public discussion around ",
		titleRunes:   40,
		snippetStart: "Community debate continues regarding ",
		snippetEnd:   ". Various stakeholders express different viewpoints and concerns about the issue.",
		snippetRunes: 35,
	},
	{
		urlPrefix:    "https://info-hub.com/topics/",
		separator:    "-",
		titlePrefix:  "Everything you need to know about ",
		titleRunes:   35,
		snippetStart: "Comprehensive guide covering ",
		snippetEnd:   ". Includes multiple perspectives, expert opinions, and factual information from various sources.",
		snippetRunes: 30,
	},
}

// syntheticSources returns up to limit deterministic pseudo-sources for query.
// Relevance descends by position and never drops below 0.6.
func syntheticSources(scorer *score.Scorer, query string, limit int) []model.EvidenceSource {
	n := len(syntheticTemplates)
	if limit < n {
		n = limit
	}

	sources := make([]model.EvidenceSource, 0, n)
	for i := 0; i < n; i++ {
		tpl := syntheticTemplates[i]
		rawURL := tpl.urlPrefix + slug(query, tpl.separator)

		relevance := 1 - float64(i)*0.1
		if relevance < 0.6 {
			relevance = 0.6
		}

		sources = append(sources, model.EvidenceSource{
			URL:              rawURL,
			Title:            tpl.titlePrefix + truncate(query, tpl.titleRunes),
			Snippet:          tpl.snippetStart + truncate(query, tpl.snippetRunes) + tpl.snippetEnd,
			RelevanceScore:   relevance,
			CredibilityScore: scorer.Credibility(rawURL),
		})
	}
	return sources
}

func slug(query, separator string) string {
	s := strings.Join(strings.Fields(strings.ToLower(query)), separator)
	return url.PathEscape(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
