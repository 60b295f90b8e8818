package output

import (
	"fmt"

	"github.com/dshills/diffgate/internal/review"
)

// Policy decides whether a set of findings should fail the run.
type Policy struct {
	FailOnError bool
	FailOnWarn  bool
	// SeverityFilter, when set, restricts evaluation to that severity.
	SeverityFilter review.Severity
}

// ExitCode returns 1 when the policy blocks on findings and 0 otherwise. The
// rules are checked in order: filter=error with errors, filter=warn with
// warnings, FailOnError with errors, FailOnWarn with warnings or errors.
// With no flags and no filter the result is always 0.
func ExitCode(findings []review.Finding, p Policy) int {
	if p.Reason(findings) != "" {
		return 1
	}
	return 0
}

// Reason describes why ExitCode returns 1, or "" when it returns 0.
func (p Policy) Reason(findings []review.Finding) string {
	evaluated := review.ComputeSummary(review.FilterSeverity(findings, p.SeverityFilter))

	switch {
	case p.SeverityFilter == review.SeverityError && evaluated.Errors > 0:
		return fmt.Sprintf("%d error finding(s) match the severity filter", evaluated.Errors)
	case p.SeverityFilter == review.SeverityWarn && evaluated.Warnings > 0:
		return fmt.Sprintf("%d warn finding(s) match the severity filter", evaluated.Warnings)
	case p.FailOnError && evaluated.Errors > 0:
		return fmt.Sprintf("%d error finding(s) with fail-on-error set", evaluated.Errors)
	case p.FailOnWarn && evaluated.Errors+evaluated.Warnings > 0:
		return fmt.Sprintf("%d warn/error finding(s) with fail-on-warn set", evaluated.Errors+evaluated.Warnings)
	default:
		return ""
	}
}
