package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/diffgate/internal/review"
)

// JSONWriter outputs the full report as JSON: summary, findings, metadata.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	cp := *report
	cp.Findings = orEmpty(report.Findings)
	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
