package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dshills/diffgate/internal/review"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// TextWriter outputs a human-readable report grouped by file.
type TextWriter struct {
	// Color enables ANSI colors regardless of the color package's terminal
	// detection.
	Color bool
}

type palette struct {
	header, err, warn, info, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header: color.New(color.Bold),
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow),
		info:   color.New(color.FgCyan),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.header, p.err, p.warn, p.info, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s review.Severity) *color.Color {
	switch s {
	case review.SeverityError:
		return p.err
	case review.SeverityWarn:
		return p.warn
	default:
		return p.info
	}
}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	p := newPalette(t.Color)

	ew.println(p.header.Sprint("diffgate review"))
	if report.Metadata.ProviderName != "" {
		ew.printf("Reviewer: %s", report.Metadata.ProviderName)
		if report.Metadata.ModelName != "" {
			ew.printf(" (%s)", report.Metadata.ModelName)
		}
		ew.println("")
	}
	if d := report.Dispatch; d.Segments > 0 {
		ew.printf("Segments: %d reviewed of %d", d.Reviewed, d.Segments)
		if d.Failed > 0 {
			ew.printf(", %s", p.err.Sprintf("%d failed", d.Failed))
		}
		ew.println("")
	}
	ew.println("")
	ew.println(summaryTable(report.Summary))

	if len(report.Findings) == 0 {
		ew.println("\nNo issues found.")
		return ew.err
	}

	order, groups := groupByFile(report.Findings)
	for _, file := range order {
		findings := groups[file]
		ew.printf("\n%s %s\n", p.header.Sprint(file), p.dim.Sprintf("(%d)", len(findings)))
		for _, f := range findings {
			loc := "  "
			if f.Line > 0 {
				loc = fmt.Sprintf("  L%d ", f.Line)
			}
			label := p.severity(f.Severity).Sprintf("[%s]", f.Severity)
			ew.printf("%s%s %s\n", loc, label, indentLines(f.Message, "    "))
			if f.Suggestion != "" {
				ew.printf("    Suggestion: %s\n", indentLines(f.Suggestion, "      "))
			}
			if f.Rule != "" {
				ew.printf("    %s\n", p.dim.Sprintf("rule: %s", f.Rule))
			}
		}
	}

	if secs := report.Metadata.DurationSeconds; secs > 0 {
		d := time.Duration(secs * float64(time.Second)).Round(time.Millisecond)
		ew.printf("\n%s\n", p.dim.Sprintf("Completed in %s", d))
	}
	return ew.err
}

func summaryTable(s review.Summary) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Severity", "Count"})
	tbl.AppendRow(table.Row{"error", humanize.Comma(int64(s.Errors))})
	tbl.AppendRow(table.Row{"warn", humanize.Comma(int64(s.Warnings))})
	tbl.AppendRow(table.Row{"info", humanize.Comma(int64(s.Info))})
	tbl.AppendFooter(table.Row{"Total", humanize.Comma(int64(s.Total))})
	return tbl.Render()
}

// indentLines prefixes every line after the first.
func indentLines(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
