package output

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/diffgate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *review.Report {
	findings := []review.Finding{
		{File: "main.go", Line: 12, Severity: review.SeverityError, Message: "nil map write", Suggestion: "make the map first"},
		{File: "util/strings.go", Line: 3, Severity: review.SeverityWarn, Message: "shadowed err", Suggestion: "reuse err"},
		{File: "main.go", Severity: review.SeverityInfo, Message: "consider a constant", Suggestion: "extract it", Rule: "style/const"},
	}
	return &review.Report{
		Summary:  review.ComputeSummary(findings),
		Findings: findings,
		Metadata: review.Metadata{
			Timestamp:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			DurationSeconds: 1.25,
			ProviderName:    "anthropic",
			ModelName:       "claude",
			RunID:           "00000000-0000-0000-0000-000000000001",
		},
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct{ in, want string }{
		{"json", FormatJSON},
		{"structured", FormatJSON},
		{"markup", FormatJUnit},
		{"XML", FormatJUnit},
		{"annotation", FormatGitHub},
		{"annotations", FormatGitHub},
		{"plain", FormatText},
		{" text ", FormatText},
		{"sarif", FormatSARIF},
		{"md", FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := NormalizeFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := NormalizeFormat("yaml")
	require.Error(t, err)
	_, err = GetWriter("yaml")
	require.Error(t, err)
}

func TestRender_JSONStructure(t *testing.T) {
	out, err := Render(sampleReport(), "structured", "")
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.ElementsMatch(t, []string{"summary", "findings", "metadata"}, keys(decoded))

	var rep review.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, review.Summary{Total: 3, Errors: 1, Warnings: 1, Info: 1}, rep.Summary)
	assert.Equal(t, "style/const", rep.Findings[2].Rule)
	assert.Equal(t, "claude", rep.Metadata.ModelName)
	assert.NotContains(t, out, "Dispatch")
	assert.NotContains(t, out, "Empty")
}

func TestRender_JSONIdempotent(t *testing.T) {
	rep := sampleReport()
	first, err := Render(rep, FormatJSON, "")
	require.NoError(t, err)
	second, err := Render(rep, FormatJSON, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_JSONOutsideMetadataIsRunIndependent(t *testing.T) {
	a, b := sampleReport(), sampleReport()
	b.Metadata.RunID = "other"
	b.Metadata.Timestamp = time.Now()

	strip := func(r *review.Report) string {
		out, err := Render(r, FormatJSON, "")
		require.NoError(t, err)
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(out), &m))
		delete(m, "metadata")
		data, err := json.Marshal(m)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, strip(a), strip(b))
}

func TestRender_JSONEmptyFindings(t *testing.T) {
	out, err := Render(&review.Report{}, FormatJSON, "")
	require.NoError(t, err)
	assert.Contains(t, out, `"findings": []`)
}

func TestRender_FilterAppliesToJSONAndText(t *testing.T) {
	out, err := Render(sampleReport(), FormatJSON, review.SeverityError)
	require.NoError(t, err)
	var rep review.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, 1, rep.Summary.Total)

	text, err := Render(sampleReport(), FormatText, review.SeverityWarn)
	require.NoError(t, err)
	assert.Contains(t, text, "shadowed err")
	assert.NotContains(t, text, "nil map write")

	annotations, err := Render(sampleReport(), FormatGitHub, review.SeverityError)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(annotations, "\n"), "github output ignores the filter")
}

func TestRender_DoesNotMutateReport(t *testing.T) {
	rep := sampleReport()
	_, err := Render(rep, FormatText, review.SeverityError)
	require.NoError(t, err)
	assert.Len(t, rep.Findings, 3)
	assert.Equal(t, 3, rep.Summary.Total)
}

func TestJUnit_Structure(t *testing.T) {
	out, err := Render(sampleReport(), FormatJUnit, "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, xml.Header))

	var doc junitTestSuites
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 3, doc.Tests)
	assert.Equal(t, 1, doc.Failures)
	assert.Equal(t, 1, doc.Skipped)
	require.Len(t, doc.Suites, 1)
	cases := doc.Suites[0].Cases
	require.Len(t, cases, 3)

	require.NotNil(t, cases[0].Failure)
	assert.Nil(t, cases[0].Skipped)
	assert.Equal(t, "main.go:12 nil map write", cases[0].Name)
	assert.Equal(t, "diffgate.main.go", cases[0].ClassName)
	assert.Contains(t, cases[0].Failure.Body, "Suggestion: make the map first")

	require.NotNil(t, cases[1].Skipped)
	assert.Nil(t, cases[1].Failure)
	assert.Equal(t, "diffgate.util.strings.go", cases[1].ClassName)

	assert.Nil(t, cases[2].Failure)
	assert.Nil(t, cases[2].Skipped)
}

func TestJUnit_Escaping(t *testing.T) {
	msg := `a & b < c > d "quoted" 'single'`
	rep := &review.Report{Findings: []review.Finding{
		{File: `x&y.go`, Severity: review.SeverityError, Message: msg, Suggestion: "<fix> & \"go\""},
	}}
	out, err := Render(rep, FormatJUnit, "")
	require.NoError(t, err)

	body := strings.TrimPrefix(out, xml.Header)
	for _, raw := range []string{`"quoted"`, `'single'`, "a & b", "< c", "<fix>"} {
		assert.NotContains(t, body, raw)
	}
	for _, esc := range []string{"&amp;", "&lt;", "&gt;", "&#34;", "&#39;"} {
		assert.Contains(t, body, esc)
	}

	var doc junitTestSuites
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, msg, doc.Suites[0].Cases[0].Failure.Message)
	assert.Equal(t, "x&y.go", doc.Suites[0].Cases[0].File)
}

func TestGitHub_Annotations(t *testing.T) {
	out, err := Render(sampleReport(), FormatGitHub, "")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "::error file=main.go,line=12,title=diffgate::nil map write%0A%0ASuggestion: make the map first", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "::warning file=util/strings.go,line=3,"))
	assert.True(t, strings.HasPrefix(lines[2], "::notice file=main.go,title=diffgate%3A style/const::"))
}

func TestGitHub_Escaping(t *testing.T) {
	assert.Equal(t, "100%25 done%0D%0Anext: a, b", escapeData("100% done\r\nnext: a, b"))
	assert.Equal(t, "a%3Ab%2Cc%25%0A", escapeProperty("a:b,c%\n"))
}

func TestGitHub_Empty(t *testing.T) {
	out, err := Render(&review.Report{}, FormatGitHub, "")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestText_GroupedByFile(t *testing.T) {
	out, err := Render(sampleReport(), FormatText, "")
	require.NoError(t, err)

	assert.Contains(t, out, "Reviewer: anthropic (claude)")
	mainIdx := strings.Index(out, "main.go (2)")
	utilIdx := strings.Index(out, "util/strings.go (1)")
	require.NotEqual(t, -1, mainIdx)
	require.NotEqual(t, -1, utilIdx)
	assert.Less(t, mainIdx, utilIdx, "files appear in order of first finding")
	assert.Contains(t, out, "L12 [error] nil map write")
	assert.Contains(t, out, "Suggestion: make the map first")
	assert.Contains(t, out, "rule: style/const")
	assert.Contains(t, out, "Completed in 1.25s")
	assert.NotContains(t, out, "\x1b[", "plain text has no color codes")
}

func TestText_Color(t *testing.T) {
	var b strings.Builder
	require.NoError(t, (&TextWriter{Color: true}).Write(&b, sampleReport()))
	assert.Contains(t, b.String(), "\x1b[")
}

func TestText_NoFindings(t *testing.T) {
	out, err := Render(&review.Report{}, FormatText, "")
	require.NoError(t, err)
	assert.Contains(t, out, "No issues found.")
}

func TestSARIF(t *testing.T) {
	out, err := Render(sampleReport(), FormatSARIF, "")
	require.NoError(t, err)

	var log sarifLog
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	require.Len(t, run.Results, 3)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "warning", run.Results[1].Level)
	assert.Equal(t, "note", run.Results[2].Level)
	assert.Equal(t, 12, run.Results[0].Locations[0].PhysicalLocation.Region.StartLine)
	assert.Nil(t, run.Results[2].Locations[0].PhysicalLocation.Region)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, defaultRuleID, run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, "style/const", run.Tool.Driver.Rules[1].ID)
}

func TestMarkdown(t *testing.T) {
	rep := sampleReport()
	rep.Findings[0].CorrectedContent = "package main"
	out, err := Render(rep, FormatMarkdown, "")
	require.NoError(t, err)
	assert.Contains(t, out, "| **Total** | **3** |")
	assert.Contains(t, out, "<code>main.go</code> (2)")
	assert.Contains(t, out, "```go\npackage main\n```")
	assert.Contains(t, out, "_Rule: `style/const`_")
}

func TestExitCode(t *testing.T) {
	errWarn := []review.Finding{{Severity: review.SeverityError}, {Severity: review.SeverityWarn}}
	warnOnly := []review.Finding{{Severity: review.SeverityWarn}}
	infoOnly := []review.Finding{{Severity: review.SeverityInfo}}
	errOnly := []review.Finding{{Severity: review.SeverityError}}

	tests := []struct {
		name     string
		findings []review.Finding
		policy   Policy
		want     int
	}{
		{"fail on error with error", errWarn, Policy{FailOnError: true}, 1},
		{"report only", errWarn, Policy{}, 0},
		{"filter warn with info only", infoOnly, Policy{SeverityFilter: review.SeverityWarn}, 0},
		{"filter warn with warning", warnOnly, Policy{SeverityFilter: review.SeverityWarn}, 1},
		{"filter error with error", errOnly, Policy{SeverityFilter: review.SeverityError}, 1},
		{"filter error ignores warnings", warnOnly, Policy{SeverityFilter: review.SeverityError, FailOnWarn: true}, 0},
		{"filter info never blocks", errWarn, Policy{SeverityFilter: review.SeverityInfo, FailOnError: true}, 0},
		{"fail on error with warnings only", warnOnly, Policy{FailOnError: true}, 0},
		{"fail on warn with warning", warnOnly, Policy{FailOnWarn: true}, 1},
		{"fail on warn with error", errOnly, Policy{FailOnWarn: true}, 1},
		{"fail on warn with info", infoOnly, Policy{FailOnWarn: true}, 0},
		{"no findings", nil, Policy{FailOnError: true, FailOnWarn: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.findings, tt.policy))
			if tt.want == 1 {
				assert.NotEmpty(t, tt.policy.Reason(tt.findings))
			} else {
				assert.Empty(t, tt.policy.Reason(tt.findings))
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xml")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer"), 0o600))

	require.NoError(t, WriteFile(path, "new ✓"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new ✓", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFile_MissingDir(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "nope", "out.json"), "{}")
	require.Error(t, err)
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
