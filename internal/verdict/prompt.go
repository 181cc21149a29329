package verdict

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/veritas/internal/model"
)

const (
	promptContentRunes = 1000
	promptMaxSources   = 5
)

const systemPrompt = "You are an expert fact-checker and misinformation detection specialist. " +
	"Respond only with the requested JSON object."

// BuildPrompt renders the verdict prompt for content and its evidence.
func BuildPrompt(content string, sources []model.EvidenceSource, mediaType model.MediaType) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the following %s content for truthfulness and accuracy based on the provided evidence sources.\n\n", mediaType)

	sb.WriteString("CONTENT TO ANALYZE:\n")
	sb.WriteString(truncateRunes(content, promptContentRunes))
	if utf8.RuneCountInString(content) > promptContentRunes {
		sb.WriteString("...")
	}
	sb.WriteString("\n\nEVIDENCE SOURCES:\n")

	if len(sources) == 0 {
		sb.WriteString("(No evidence sources available)\n")
	}
	for i, src := range sources {
		if i >= promptMaxSources {
			break
		}
		fmt.Fprintf(&sb, "Source %d:\nURL: %s\nTitle: %s\nContent: %s\nCredibility Score: %.2f\nRelevance Score: %.2f\n\n",
			i+1, src.URL, src.Title, src.Snippet, src.CredibilityScore, src.RelevanceScore)
	}

	sb.WriteString(`Provide your analysis in the following JSON format:
{
    "verdict": "true|false|partially_true|misleading|unverifiable",
    "confidence_level": "high|medium|low",
    "confidence_score": 0.85,
    "summary": "Brief summary of your findings",
    "reasoning": "Detailed explanation of how the sources support or contradict the claims"
}

Consider:
1. How well do the sources support or contradict the main claims?
2. Are the sources credible and authoritative?
3. Is there consensus among multiple sources?
4. Are there any red flags or suspicious elements?
5. What claims can be verified and what remains unverifiable?

Only cite URLs from the evidence sources above.`)

	return sb.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
