// Package report renders a summarization run into markdown, JSON, or
// plain text and writes it to disk.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/loomshed/codedigest/internal/scanner"
	"github.com/loomshed/codedigest/pkg/types"
)

// Data is everything a report needs from a finished run.
type Data struct {
	Root           string
	GeneratedAt    time.Time
	MasterSummary  string
	FileSummaries  map[string]string
	FilesProcessed int
	ChunksCreated  int
	FallbacksUsed  int
	Errors         []string
	ProcessingTime time.Duration
	Usage          *types.UsageSnapshot
}

// Render produces the report in the given format: "markdown", "json",
// or "text".
func Render(d *Data, format string) (string, error) {
	switch format {
	case "markdown":
		return renderMarkdown(d), nil
	case "json":
		return renderJSON(d)
	case "text":
		return fmt.Sprintf("MASTER SUMMARY\n%s\n\n%s\n\n", strings.Repeat("=", 50), d.MasterSummary), nil
	default:
		return "", fmt.Errorf("unknown report format: %q", format)
	}
}

// Write saves content to path, creating parent directories as needed.
func Write(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func renderMarkdown(d *Data) string {
	var b strings.Builder
	b.WriteString("# Codebase Analysis Summary\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", d.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Codebase:** %s\n", d.Root)
	fmt.Fprintf(&b, "**Files Processed:** %d\n\n", d.FilesProcessed)
	b.WriteString("## Overview\n\n")
	b.WriteString(d.MasterSummary)
	b.WriteString("\n\n")

	if d.Usage != nil {
		b.WriteString("## Processing Statistics\n\n")
		fmt.Fprintf(&b, "- **Files processed:** %d\n", d.FilesProcessed)
		fmt.Fprintf(&b, "- **Chunks created:** %d\n", d.ChunksCreated)
		fmt.Fprintf(&b, "- **AI requests:** %d\n", d.Usage.TotalRequests)
		fmt.Fprintf(&b, "- **Tokens used:** %d\n", d.Usage.TotalTokensUsed)
		fmt.Fprintf(&b, "- **Estimated cost:** $%.4f\n", d.Usage.EstimatedCost)
		fmt.Fprintf(&b, "- **Processing time:** %.2f seconds\n", d.ProcessingTime.Seconds())
		fmt.Fprintf(&b, "- **Primary provider:** %s (%s)\n", d.Usage.PrimaryProvider, d.Usage.PrimaryModel)
		fmt.Fprintf(&b, "- **Providers configured:** %d\n", d.Usage.ProvidersConfigured)
		fmt.Fprintf(&b, "- **Fallbacks used:** %d\n\n", d.FallbacksUsed)

		if len(d.Usage.ProviderStats) > 1 {
			b.WriteString("### Provider Breakdown\n\n")
			names := make([]string, 0, len(d.Usage.ProviderStats))
			for name := range d.Usage.ProviderStats {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				s := d.Usage.ProviderStats[name]
				fmt.Fprintf(&b, "- **%s:** %d requests, %d tokens, %d errors\n",
					name, s.Requests, s.Tokens, s.Errors)
			}
			b.WriteString("\n")
		}
	}

	if len(d.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range d.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderJSON(d *Data) (string, error) {
	payload := map[string]any{
		"master_summary": d.MasterSummary,
		"file_summaries": d.FileSummaries,
		"stats": map[string]any{
			"files_processed": d.FilesProcessed,
			"chunks_created":  d.ChunksCreated,
			"fallbacks_used":  d.FallbacksUsed,
			"errors":          d.Errors,
			"processing_time": d.ProcessingTime.Seconds(),
			"ai_usage":        d.Usage,
		},
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(out), nil
}

// fallbackFilesPerLanguage bounds the grouped fallback summary.
const fallbackFilesPerLanguage = 10

var titleCaser = cases.Title(language.English)

// FallbackSummary builds a grouped-by-language concatenation of file
// summaries, used when AI aggregation fails.
func FallbackSummary(files []scanner.FileInfo, fileSummaries map[string]string) string {
	byLanguage := make(map[string][]scanner.FileInfo)
	var order []string
	for _, fi := range files {
		if _, seen := byLanguage[fi.Language]; !seen {
			order = append(order, fi.Language)
		}
		byLanguage[fi.Language] = append(byLanguage[fi.Language], fi)
	}

	parts := []string{"# Codebase Summary", ""}
	for _, lang := range order {
		parts = append(parts, fmt.Sprintf("## %s Files", titleCaser.String(lang)))

		langFiles := byLanguage[lang]
		if len(langFiles) > fallbackFilesPerLanguage {
			langFiles = langFiles[:fallbackFilesPerLanguage]
		}
		for _, fi := range langFiles {
			summary, ok := fileSummaries[fi.RelPath]
			if !ok || strings.HasPrefix(summary, "Error:") {
				continue
			}
			if len(summary) > 200 {
				summary = summary[:200]
			}
			parts = append(parts, fmt.Sprintf("**%s**: %s...", fi.RelPath, summary))
		}
		parts = append(parts, "")
	}
	return strings.Join(parts, "\n")
}
