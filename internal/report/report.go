// Package report renders analysis results as JSON, Markdown and DOCX files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gingfrederik/docx"

	"github.com/ppiankov/veritas/internal/model"
)

// Report is one analysis and how it was produced.
type Report struct {
	Content     string                `json:"content,omitempty"`
	MediaType   string                `json:"media_type,omitempty"`
	Result      *model.AnalysisResult `json:"result"`
	Diagnostics *model.Diagnostics    `json:"diagnostics,omitempty"`
}

// Renderer writes reports to disk.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a Renderer. The footer notes that verdicts are
// heuristic and must be checked against the listed sources.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

const footer = "Verdicts are produced from automatically gathered sources and heuristic scoring. Check the sources before relying on them."

// RenderJSON writes r as indented JSON to path.
func (rd *Renderer) RenderJSON(r Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, r) })
}

// RenderMarkdown writes r as Markdown to path.
func (rd *Renderer) RenderMarkdown(r Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return rd.WriteMarkdown(w, r) })
}

// RenderDOCX writes r as a Word document to path.
func (rd *Renderer) RenderDOCX(r Report, path string) error {
	if r.Result == nil {
		return fmt.Errorf("report has no result")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := docx.NewFile()
	res := r.Result

	run := f.AddParagraph().AddText("Veritas Analysis Report")
	run.Size(20)
	f.AddParagraph()

	if r.Content != "" {
		f.AddParagraph().AddText(fmt.Sprintf("Content (%s): %s", r.MediaType, r.Content))
	}

	run = f.AddParagraph().AddText(fmt.Sprintf("Verdict: %s", VerdictLabel(res.Verdict)))
	run.Size(16)
	run.Color(verdictColor(res.Verdict))

	run = f.AddParagraph().AddText(fmt.Sprintf("Confidence: %s (%.2f) | ID: %s | %s",
		res.Confidence, res.ConfidenceScore, res.ID, res.Timestamp.Format("2006-01-02 15:04:05 UTC")))
	run.Size(10)
	run.Color("808080")

	f.AddParagraph().AddText("Summary").Size(14)
	f.AddParagraph().AddText(res.Summary)
	f.AddParagraph().AddText("Reasoning").Size(14)
	f.AddParagraph().AddText(res.Reasoning)

	f.AddParagraph().AddText(fmt.Sprintf("Evidence (%d sources)", len(res.Evidence))).Size(14)
	for i, src := range res.Evidence {
		f.AddParagraph().AddText(fmt.Sprintf("%d. %s", i+1, src.Title)).Size(12)
		run = f.AddParagraph().AddText(src.URL)
		run.Size(10)
		run.Color("0000FF")
		run = f.AddParagraph().AddText(fmt.Sprintf("Credibility %.2f | Relevance %.2f", src.CredibilityScore, src.RelevanceScore))
		run.Size(10)
		run.Color("808080")
		if src.Snippet != "" {
			f.AddParagraph().AddText(src.Snippet)
		}
	}

	if d := r.Diagnostics; d != nil {
		f.AddParagraph().AddText("Diagnostics").Size(14)
		f.AddParagraph().AddText(fmt.Sprintf("Strategy: %s | Search: %s | Query: %s", d.Strategy, d.SearchOrigin, d.SearchQuery))
		for _, deg := range d.Degradations {
			f.AddParagraph().AddText(fmt.Sprintf("Degraded %s: %s", deg.Stage, deg.Reason))
		}
		for _, w := range d.Warnings {
			f.AddParagraph().AddText("Warning: " + w)
		}
	}

	if rd.includeFooter {
		f.AddParagraph().AddText("--------------------------------------------------")
		run = f.AddParagraph().AddText(footer)
		run.Size(9)
		run.Color("808080")
	}

	return f.Save(path)
}

// WriteJSON encodes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteMarkdown renders r as Markdown.
func (rd *Renderer) WriteMarkdown(w io.Writer, r Report) error {
	if r.Result == nil {
		return fmt.Errorf("report has no result")
	}
	res := r.Result

	var b strings.Builder
	b.WriteString("# Veritas Analysis Report\n\n")
	if r.Content != "" {
		fmt.Fprintf(&b, "> **Content** (%s): %s\n\n", r.MediaType, escapeMarkdown(r.Content))
	}

	fmt.Fprintf(&b, "**Verdict:** %s  \n", VerdictLabel(res.Verdict))
	fmt.Fprintf(&b, "**Confidence:** %s (%.2f)  \n", res.Confidence, res.ConfidenceScore)
	fmt.Fprintf(&b, "**ID:** `%s`  \n", res.ID)
	fmt.Fprintf(&b, "**Analyzed:** %s (%.2fs)\n\n", res.Timestamp.Format("2006-01-02 15:04:05 UTC"), res.ProcessingTime)

	b.WriteString("## Summary\n\n")
	b.WriteString(res.Summary + "\n\n")
	b.WriteString("## Reasoning\n\n")
	b.WriteString(res.Reasoning + "\n\n")

	fmt.Fprintf(&b, "## Evidence (%d sources)\n\n", len(res.Evidence))
	if len(res.Evidence) > 0 {
		b.WriteString("| # | Source | Credibility | Relevance |\n")
		b.WriteString("|---|--------|-------------|-----------|\n")
		for i, src := range res.Evidence {
			fmt.Fprintf(&b, "| %d | [%s](%s) | %.2f | %.2f |\n",
				i+1, escapeMarkdown(src.Title), src.URL, src.CredibilityScore, src.RelevanceScore)
		}
		b.WriteString("\n")
	}

	if d := r.Diagnostics; d != nil {
		b.WriteString("## Diagnostics\n\n")
		fmt.Fprintf(&b, "- Strategy: `%s`\n", d.Strategy)
		fmt.Fprintf(&b, "- Search origin: `%s`\n", d.SearchOrigin)
		fmt.Fprintf(&b, "- Search query: `%s`\n", d.SearchQuery)
		for _, deg := range d.Degradations {
			fmt.Fprintf(&b, "- ⚠ Degraded %s: %s\n", deg.Stage, deg.Reason)
		}
		for _, warn := range d.Warnings {
			fmt.Fprintf(&b, "- Warning: %s\n", warn)
		}
		b.WriteString("\n")
	}

	if rd.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_" + footer + "_\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// VerdictLabel returns a human-readable verdict.
func VerdictLabel(v model.Verdict) string {
	switch v {
	case model.VerdictTrue:
		return "True"
	case model.VerdictFalse:
		return "False"
	case model.VerdictPartiallyTrue:
		return "Partially true"
	case model.VerdictMisleading:
		return "Misleading"
	default:
		return "Unverifiable"
	}
}

func verdictColor(v model.Verdict) string {
	switch v {
	case model.VerdictTrue:
		return "2E7D32"
	case model.VerdictFalse:
		return "C62828"
	case model.VerdictPartiallyTrue, model.VerdictMisleading:
		return "EF6C00"
	default:
		return "616161"
	}
}

var markdownEscaper = strings.NewReplacer("|", "\\|", "\n", " ", "[", "\\[", "]", "\\]")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
