package review

import (
	"strings"
	"time"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
	SeverityInfo  Severity = "info"
)

// ParseSeverity maps free-form severity words onto the three known levels.
// The second return value is false when the word is not recognised.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), "*_`[]().:")) {
	case "error", "critical", "high", "blocker", "fatal":
		return SeverityError, true
	case "warn", "warning", "medium", "major":
		return SeverityWarn, true
	case "info", "informational", "low", "minor", "note", "suggestion":
		return SeverityInfo, true
	default:
		return "", false
	}
}

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarn || s == SeverityInfo
}

// Finding represents a single reported issue.
type Finding struct {
	File             string   `json:"file"`
	Message          string   `json:"message"`
	Suggestion       string   `json:"suggestion"`
	CorrectedContent string   `json:"correctedContent,omitempty"`
	Severity         Severity `json:"severity"`
	Rule             string   `json:"rule,omitempty"`
	Line             int      `json:"line,omitempty"`
}

// Summary holds counts by severity.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// Metadata describes the run that produced a report. Everything that varies
// between two runs over the same findings lives here.
type Metadata struct {
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"durationSeconds"`
	ProviderName    string    `json:"providerName"`
	ModelName       string    `json:"modelName"`
	RunID           string    `json:"runId,omitempty"`
}

// Report is the top-level output structure.
type Report struct {
	Summary  Summary   `json:"summary"`
	Findings []Finding `json:"findings"`
	Metadata Metadata  `json:"metadata"`

	// Empty is set when the run had no diff content to review.
	Empty bool `json:"-"`
	// Dispatch carries segment and window accounting for the run.
	Dispatch Outcome `json:"-"`
}

// ComputeSummary tallies findings by severity. Unknown severities only count
// toward the total.
func ComputeSummary(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarn:
			s.Warnings++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}

// FilterSeverity returns the findings with exactly the given severity. An
// empty severity returns the input unchanged.
func FilterSeverity(findings []Finding, sev Severity) []Finding {
	if sev == "" {
		return findings
	}
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}
