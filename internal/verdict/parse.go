package verdict

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// ParseMode tells which parser produced a judgment from model text.
type ParseMode string

const (
	ParsedJSON         ParseMode = "json"
	ParsedKeywords     ParseMode = "keywords"
	ParsedUnclassified ParseMode = "unclassified"
)

const (
	summaryRunes   = 200
	reasoningRunes = 500
)

type keywordRule struct {
	pattern *regexp.Regexp
	verdict model.Verdict
}

// statedVerdict finds an explicit "verdict: <value>" even when the
// surrounding JSON is broken or cut off.
var statedVerdict = regexp.MustCompile(`(?i)"?verdict"?\s*[:=]\s*"?(partially[_ ]true|true|false|misleading|unverifiable)\b`)

// Checked in order; hedged wording wins over plain true/false.
var verdictKeywords = []keywordRule{
	{regexp.MustCompile(`(?i)\b(?:partially[_ ]true|partially|partly|mixed|some truth)\b`), model.VerdictPartiallyTrue},
	{wordsPattern("misleading", "deceptive"), model.VerdictMisleading},
	{wordsPattern("false", "incorrect", "wrong", "debunked", "untrue"), model.VerdictFalse},
	{wordsPattern("true", "accurate", "correct", "verified"), model.VerdictTrue},
}

var (
	highConfidence   = wordsPattern("highly confident", "very confident", "certain")
	mediumConfidence = wordsPattern("moderately confident", "somewhat confident")
)

func wordsPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// modelReply mirrors the JSON object requested in the prompt.
type modelReply struct {
	Verdict         *string `json:"verdict"`
	ConfidenceLevel *string `json:"confidence_level"`
	ConfidenceScore any     `json:"confidence_score"`
	Summary         *string `json:"summary"`
	Reasoning       *string `json:"reasoning"`
}

// ParseResponse turns raw model text into a judgment. It tries the JSON
// object between the first '{' and the last '}', then keyword
// classification, then gives up with unverifiable/low/0.3.
func ParseResponse(raw string) (model.VerdictJudgment, ParseMode) {
	if j, err := parseJSON(raw); err == nil {
		return j, ParsedJSON
	}
	if j, ok := classifyText(raw); ok {
		return j, ParsedKeywords
	}

	reasoning := truncateRunes(raw, reasoningRunes)
	if strings.TrimSpace(reasoning) == "" {
		reasoning = "Unable to complete analysis"
	}
	return model.VerdictJudgment{
		Verdict:         model.VerdictUnverifiable,
		ConfidenceLevel: model.ConfidenceLow,
		ConfidenceScore: 0.3,
		Summary:         "Analysis completed with limited confidence",
		Reasoning:       reasoning,
	}, ParsedUnclassified
}

var errNoObject = errors.New("no JSON object in response")

func parseJSON(raw string) (model.VerdictJudgment, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return model.VerdictJudgment{}, errNoObject
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
		return model.VerdictJudgment{}, fmt.Errorf("decode model JSON: %w", err)
	}

	j := model.VerdictJudgment{
		Verdict:         model.VerdictUnverifiable,
		ConfidenceScore: 0.5,
		Summary:         "Analysis completed",
		Reasoning:       "Unable to parse detailed reasoning",
	}
	if reply.Verdict != nil {
		j.Verdict = model.Verdict(strings.ToLower(strings.TrimSpace(*reply.Verdict)))
		if !j.Verdict.Valid() {
			return model.VerdictJudgment{}, fmt.Errorf("invalid verdict %q", *reply.Verdict)
		}
	}
	if reply.ConfidenceScore != nil {
		score, err := toScore(reply.ConfidenceScore)
		if err != nil {
			return model.VerdictJudgment{}, err
		}
		j.ConfidenceScore = score
	}
	if reply.Summary != nil {
		j.Summary = *reply.Summary
	}
	if reply.Reasoning != nil {
		j.Reasoning = *reply.Reasoning
	}

	// The level always follows the score so the pair is never contradictory.
	j.ConfidenceLevel = model.LevelForScore(j.ConfidenceScore)
	return j, nil
}

func toScore(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid confidence_score %q", x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("invalid confidence_score type %T", v)
	}
	return clamp(f, 0, 1), nil
}

func keywordVerdict(raw string) model.Verdict {
	if m := statedVerdict.FindStringSubmatch(raw); m != nil {
		return model.Verdict(strings.ReplaceAll(strings.ToLower(m[1]), " ", "_"))
	}
	for _, rule := range verdictKeywords {
		if rule.pattern.MatchString(raw) {
			return rule.verdict
		}
	}
	return ""
}

func classifyText(raw string) (model.VerdictJudgment, bool) {
	verdict := keywordVerdict(raw)
	if verdict == "" {
		return model.VerdictJudgment{}, false
	}

	level, score := model.ConfidenceLow, 0.45
	switch {
	case highConfidence.MatchString(raw):
		level, score = model.ConfidenceHigh, 0.85
	case mediumConfidence.MatchString(raw):
		level, score = model.ConfidenceMedium, 0.65
	}

	text := strings.TrimSpace(raw)
	summary := truncateRunes(text, summaryRunes)
	if summary != text {
		summary += "..."
	}

	return model.VerdictJudgment{
		Verdict:         verdict,
		ConfidenceLevel: level,
		ConfidenceScore: score,
		Summary:         summary,
		Reasoning:       text,
	}, true
}
