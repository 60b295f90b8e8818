package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dshills/diffgate/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	s := report.Summary

	ew.printf("## diffgate review\n\n")
	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| Error | %d |\n", s.Errors)
	ew.printf("| Warn | %d |\n", s.Warnings)
	ew.printf("| Info | %d |\n", s.Info)
	ew.printf("| **Total** | **%d** |\n\n", s.Total)

	if len(report.Findings) == 0 {
		ew.println("No issues found. :white_check_mark:")
		return ew.err
	}

	order, groups := groupByFile(report.Findings)
	for _, file := range order {
		findings := groups[file]
		ew.printf("<details>\n<summary><code>%s</code> (%d)</summary>\n\n", file, len(findings))
		for _, f := range findings {
			loc := ""
			if f.Line > 0 {
				loc = fmt.Sprintf(" line %d", f.Line)
			}
			ew.printf("%s **%s**%s\n\n", mdSeverityIcon(f.Severity), strings.ToUpper(string(f.Severity)), loc)
			ew.printf("%s\n\n", f.Message)
			if f.Suggestion != "" {
				ew.printf("> **Suggestion:** %s\n\n", strings.ReplaceAll(f.Suggestion, "\n", "\n> "))
			}
			if f.CorrectedContent != "" {
				ew.printf("```%s\n%s\n```\n\n", mdLang(f.File), f.CorrectedContent)
			}
			if f.Rule != "" {
				ew.printf("_Rule: `%s`_\n\n", f.Rule)
			}
		}
		ew.printf("</details>\n\n")
	}

	if secs := report.Metadata.DurationSeconds; secs > 0 {
		ew.printf("*Reviewed in %.1fs*\n", secs)
	}
	return ew.err
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return ":red_circle:"
	case review.SeverityWarn:
		return ":orange_circle:"
	default:
		return ":large_blue_circle:"
	}
}

var mdLangs = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".sh":   "bash",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".tf":   "hcl",
}

func mdLang(path string) string {
	return mdLangs[strings.ToLower(filepath.Ext(path))]
}
