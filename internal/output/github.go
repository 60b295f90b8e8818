package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/diffgate/internal/review"
)

// GitHubWriter emits one GitHub Actions workflow command per finding, e.g.
//
//	::error file=main.go,line=12,title=diffgate::nil map write
type GitHubWriter struct{}

func (g *GitHubWriter) Write(w io.Writer, report *review.Report) error {
	for _, f := range report.Findings {
		if _, err := io.WriteString(w, annotation(f)+"\n"); err != nil {
			return fmt.Errorf("writing annotations: %w", err)
		}
	}
	return nil
}

func annotation(f review.Finding) string {
	var props []string
	if f.File != "" {
		props = append(props, "file="+escapeProperty(f.File))
		if f.Line > 0 {
			props = append(props, "line="+strconv.Itoa(f.Line))
		}
	}
	title := "diffgate"
	if f.Rule != "" {
		title = "diffgate: " + f.Rule
	}
	props = append(props, "title="+escapeProperty(title))

	msg := f.Message
	if f.Suggestion != "" {
		msg += "\n\nSuggestion: " + f.Suggestion
	}
	return fmt.Sprintf("::%s %s::%s", annotationLevel(f.Severity), strings.Join(props, ","), escapeData(msg))
}

func annotationLevel(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "error"
	case review.SeverityWarn:
		return "warning"
	default:
		return "notice"
	}
}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func escapeData(s string) string { return dataEscaper.Replace(s) }

func escapeProperty(s string) string { return propertyEscaper.Replace(s) }
