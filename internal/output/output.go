package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/diffgate/internal/review"
)

// Canonical format names.
const (
	FormatJSON     = "json"
	FormatJUnit    = "junit"
	FormatGitHub   = "github"
	FormatText     = "text"
	FormatSARIF    = "sarif"
	FormatMarkdown = "markdown"
)

// ToolVersion is reported by encodings that name the producing tool.
var ToolVersion = "dev"

var formatAliases = map[string]string{
	"json":        FormatJSON,
	"structured":  FormatJSON,
	"junit":       FormatJUnit,
	"xml":         FormatJUnit,
	"markup":      FormatJUnit,
	"github":      FormatGitHub,
	"annotation":  FormatGitHub,
	"annotations": FormatGitHub,
	"text":        FormatText,
	"plain":       FormatText,
	"sarif":       FormatSARIF,
	"markdown":    FormatMarkdown,
	"md":          FormatMarkdown,
}

// Formats lists the canonical format names.
func Formats() []string {
	return []string{FormatJSON, FormatJUnit, FormatGitHub, FormatText, FormatSARIF, FormatMarkdown}
}

// NormalizeFormat resolves a format name or alias to its canonical name.
func NormalizeFormat(name string) (string, error) {
	f, ok := formatAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unsupported output format %q (want one of %s)", name, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// GetWriter returns a writer for the specified format or alias. Text output
// is uncolored; callers wanting color construct a TextWriter themselves.
func GetWriter(format string) (Writer, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatJUnit:
		return &JUnitWriter{}, nil
	case FormatGitHub:
		return &GitHubWriter{}, nil
	case FormatSARIF:
		return &SARIFWriter{}, nil
	case FormatMarkdown:
		return &MarkdownWriter{}, nil
	default:
		return &TextWriter{}, nil
	}
}

// Render formats report. A non-empty filter restricts the rendered findings
// to that severity for the json and text encodings; the other encodings
// always carry every finding.
func Render(report *review.Report, format string, filter review.Severity) (string, error) {
	w, err := GetWriter(format)
	if err != nil {
		return "", err
	}
	return RenderWith(w, report, filter)
}

// RenderWith is Render for an already constructed writer.
func RenderWith(w Writer, report *review.Report, filter review.Severity) (string, error) {
	if filter != "" && filterable(w) {
		report = filtered(report, filter)
	}
	var buf bytes.Buffer
	if err := w.Write(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func filterable(w Writer) bool {
	switch w.(type) {
	case *JSONWriter, *TextWriter:
		return true
	default:
		return false
	}
}

func filtered(report *review.Report, sev review.Severity) *review.Report {
	cp := *report
	cp.Findings = review.FilterSeverity(report.Findings, sev)
	cp.Summary = review.ComputeSummary(cp.Findings)
	return &cp
}

// WriteFile replaces path with content atomically: the data goes to a temp
// file in the same directory which is then renamed over the target.
func WriteFile(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// orEmpty keeps "findings": [] in encoded output when there are none.
func orEmpty(findings []review.Finding) []review.Finding {
	if findings == nil {
		return []review.Finding{}
	}
	return findings
}

// groupByFile groups findings by file, files in order of first appearance.
func groupByFile(findings []review.Finding) ([]string, map[string][]review.Finding) {
	var order []string
	groups := make(map[string][]review.Finding)
	for _, f := range findings {
		key := f.File
		if key == "" {
			key = "(unknown file)"
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}
	return order, groups
}
