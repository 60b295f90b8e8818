package review

import "github.com/dshills/diffgate/internal/rules"

// Aggregate merges oracle findings and rule violations into one list. Oracle
// findings come first; nothing is deduplicated or reordered.
func Aggregate(oracle, violations []Finding) []Finding {
	out := make([]Finding, 0, len(oracle)+len(violations))
	out = append(out, oracle...)
	return append(out, violations...)
}

// FromViolations converts rule violations into findings.
func FromViolations(vs []rules.Violation) []Finding {
	out := make([]Finding, 0, len(vs))
	for _, v := range vs {
		sev, ok := ParseSeverity(v.Severity)
		if !ok {
			sev = SeverityWarn
		}
		out = append(out, Finding{
			File:       v.File,
			Message:    v.Message,
			Suggestion: v.Suggestion,
			Severity:   sev,
			Rule:       v.Rule,
			Line:       v.Line,
		})
	}
	return out
}
