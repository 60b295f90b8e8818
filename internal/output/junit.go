package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/diffgate/internal/review"
)

// JUnitWriter renders one test case per finding. Errors become failures,
// warnings become skipped cases and info findings pass.
type JUnitWriter struct{}

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       string          `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []junitProperty `xml:"properties>property,omitempty"`
	Cases      []junitTestCase `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	File      string        `xml:"file,attr,omitempty"`
	Line      int           `xml:"line,attr,omitempty"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

func (j *JUnitWriter) Write(w io.Writer, report *review.Report) error {
	elapsed := fmt.Sprintf("%.3f", report.Metadata.DurationSeconds)
	suite := junitTestSuite{
		Name:  "diffgate",
		Tests: len(report.Findings),
		Time:  elapsed,
		Cases: make([]junitTestCase, 0, len(report.Findings)),
	}
	if !report.Metadata.Timestamp.IsZero() {
		suite.Timestamp = report.Metadata.Timestamp.Format("2006-01-02T15:04:05")
	}
	for _, p := range []junitProperty{
		{Name: "provider", Value: report.Metadata.ProviderName},
		{Name: "model", Value: report.Metadata.ModelName},
	} {
		if p.Value != "" {
			suite.Properties = append(suite.Properties, p)
		}
	}

	for _, f := range report.Findings {
		tc := junitTestCase{
			Name:      caseName(f),
			ClassName: className(f.File),
			File:      f.File,
			Line:      f.Line,
		}
		switch f.Severity {
		case review.SeverityError:
			suite.Failures++
			tc.Failure = &junitFailure{
				Message: f.Message,
				Type:    string(f.Severity),
				Body:    findingDetail(f),
			}
		case review.SeverityWarn:
			suite.Skipped++
			tc.Skipped = &junitSkipped{Message: f.Message}
			tc.SystemOut = findingDetail(f)
		default:
			tc.SystemOut = findingDetail(f)
		}
		suite.Cases = append(suite.Cases, tc)
	}

	doc := junitTestSuites{
		Name:     "diffgate",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Skipped:  suite.Skipped,
		Time:     elapsed,
		Suites:   []junitTestSuite{suite},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing JUnit: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding JUnit: %w", err)
	}
	_, err := fmt.Fprintln(w)
	return err
}

func caseName(f review.Finding) string {
	loc := f.File
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	msg, _, _ := strings.Cut(f.Message, "\n")
	if loc == "" {
		return msg
	}
	return loc + " " + msg
}

// className turns a path into a dotted class name so CI dashboards group
// cases by directory.
func className(path string) string {
	if path == "" {
		return "diffgate"
	}
	return "diffgate." + strings.ReplaceAll(strings.TrimPrefix(path, "/"), "/", ".")
}

func findingDetail(f review.Finding) string {
	var b strings.Builder
	b.WriteString(f.Message)
	if f.Suggestion != "" {
		b.WriteString("\n\nSuggestion: ")
		b.WriteString(f.Suggestion)
	}
	if f.Rule != "" {
		b.WriteString("\nRule: ")
		b.WriteString(f.Rule)
	}
	return b.String()
}
