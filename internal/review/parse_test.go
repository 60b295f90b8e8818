package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFindings_DropsIncompleteBlocks(t *testing.T) {
	reply := `FILE: main.go
LINE: 12
SEVERITY: error
ISSUE: nil map write
SUGGESTION: initialise the map before use

FILE: util.go
ISSUE: unused helper
`
	got := ParseFindings(reply)
	require.Len(t, got, 1)
	assert.Equal(t, Finding{
		File:       "main.go",
		Line:       12,
		Severity:   SeverityError,
		Message:    "nil map write",
		Suggestion: "initialise the map before use",
	}, got[0])
}

func TestParseFindings_NoIssues(t *testing.T) {
	assert.Empty(t, ParseFindings("NO ISSUES"))
	assert.Empty(t, ParseFindings(""))
	assert.Empty(t, ParseFindings("Looks good to me!"))
}

func TestParseFindings_AliasesAndMarkdown(t *testing.T) {
	reply := `### FILE: ` + "`pkg/a.go`" + `
**Severity:** High
**Problem:** the loop never terminates
when input is empty
- FIX: guard the length
RULE: correctness
`
	got := ParseFindings(reply)
	require.Len(t, got, 1)
	f := got[0]
	assert.Equal(t, "pkg/a.go", f.File)
	assert.Equal(t, SeverityError, f.Severity)
	assert.Equal(t, "the loop never terminates\nwhen input is empty", f.Message)
	assert.Equal(t, "guard the length", f.Suggestion)
	assert.Equal(t, "correctness", f.Rule)
	assert.Zero(t, f.Line)
}

func TestParseFindings_DefaultSeverity(t *testing.T) {
	reply := "FILE: a.go\nSEVERITY: whatever\nISSUE: x\nSUGGESTION: y\n"
	got := ParseFindings(reply)
	require.Len(t, got, 1)
	assert.Equal(t, SeverityWarn, got[0].Severity)
}

func TestParseFindings_CorrectedCode(t *testing.T) {
	reply := "FILE: main.go\nLINE: L7-9\nISSUE: shadowed err\nSUGGESTION: reuse err\nCORRECTED_CODE:\n```go\npackage main\n\n// FILE: not a tag inside the fence\nfunc main() {}\n```\n"
	got := ParseFindings(reply)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Line)
	assert.Equal(t, "package main\n\n// FILE: not a tag inside the fence\nfunc main() {}", got[0].CorrectedContent)
}

func TestParseFindings_UnfencedCorrectedCodeKeepsKeyLines(t *testing.T) {
	reply := "FILE: deploy.yaml\nISSUE: image is not pinned\nSUGGESTION: pin the image\nCORRECTED_CODE:\n" +
		"name: app\npath: /srv\nfile: config.yaml\nseverity: high\nimage: app:1.2\n" +
		"FILE: main.go\nISSUE: two\nSUGGESTION: fix two\n"
	got := ParseFindings(reply)
	require.Len(t, got, 2)
	assert.Equal(t, "deploy.yaml", got[0].File)
	assert.Equal(t, "name: app\npath: /srv\nfile: config.yaml\nseverity: high\nimage: app:1.2", got[0].CorrectedContent)
	assert.Equal(t, SeverityWarn, got[0].Severity)
	assert.Equal(t, "main.go", got[1].File)
	assert.Empty(t, got[1].CorrectedContent)
}

func TestParseFindings_TagsResumeAfterFencedCorrectedCode(t *testing.T) {
	reply := "FILE: a.go\nISSUE: x\nSUGGESTION: y\nCORRECTED_CODE:\n```go\npackage a\n```\nSEVERITY: error\n"
	got := ParseFindings(reply)
	require.Len(t, got, 1)
	assert.Equal(t, "package a", got[0].CorrectedContent)
	assert.Equal(t, SeverityError, got[0].Severity)
}

func TestParseFindings_WrappedInFence(t *testing.T) {
	reply := "```\nFILE: a.go\nISSUE: one\nSUGGESTION: fix one\n\nFILE: b.go\nISSUE: two\nSUGGESTION: fix two\n```"
	got := ParseFindings(reply)
	require.Len(t, got, 2)
	assert.Equal(t, "a.go", got[0].File)
	assert.Equal(t, "b.go", got[1].File)
	assert.Equal(t, "fix two", got[1].Suggestion)
}

func TestParseFindings_PreservesOrder(t *testing.T) {
	reply := "FILE: z.go\nISSUE: 1\nSUGGESTION: s\nFILE: a.go\nISSUE: 2\nSUGGESTION: s\nFILE: m.go\nISSUE: 3\nSUGGESTION: s\n"
	got := ParseFindings(reply)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"z.go", "a.go", "m.go"}, []string{got[0].File, got[1].File, got[2].File})
}

func TestParseFindings_CRLF(t *testing.T) {
	got := ParseFindings("FILE: a.go\r\nISSUE: x\r\nSUGGESTION: y\r\n")
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Suggestion)
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"error", SeverityError, true},
		{"CRITICAL", SeverityError, true},
		{"**high**", SeverityError, true},
		{"warning", SeverityWarn, true},
		{"medium", SeverityWarn, true},
		{"low", SeverityInfo, true},
		{"note", SeverityInfo, true},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSeverity(tt.in)
		assert.Equal(t, tt.want, got, "ParseSeverity(%q)", tt.in)
		assert.Equal(t, tt.ok, ok, "ParseSeverity(%q) ok", tt.in)
	}
}
