package review

import (
	"testing"

	"github.com/dshills/diffgate/internal/rules"
	"github.com/stretchr/testify/assert"
)

func TestAggregate_Order(t *testing.T) {
	oracle := []Finding{{File: "b.go", Severity: SeverityWarn}, {File: "a.go", Severity: SeverityError}}
	violations := []Finding{{File: "a.go", Severity: SeverityError, Rule: "secret/jwt"}}

	got := Aggregate(oracle, violations)
	assert.Equal(t, []string{"b.go", "a.go", "a.go"}, files(got))
	assert.Equal(t, "secret/jwt", got[2].Rule)
}

func TestAggregate_NoDedup(t *testing.T) {
	f := Finding{File: "a.go", Message: "same", Suggestion: "s", Severity: SeverityInfo}
	got := Aggregate([]Finding{f, f}, []Finding{f})
	assert.Len(t, got, 3)
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFromViolations(t *testing.T) {
	got := FromViolations([]rules.Violation{
		{File: "a.go", Line: 3, Severity: "error", Message: "m", Suggestion: "s", Rule: "r1"},
		{File: "b.go", Line: 1, Severity: "odd", Message: "m2", Rule: "r2"},
	})
	assert.Equal(t, []Finding{
		{File: "a.go", Line: 3, Severity: SeverityError, Message: "m", Suggestion: "s", Rule: "r1"},
		{File: "b.go", Line: 1, Severity: SeverityWarn, Message: "m2", Rule: "r2"},
	}, got)
}

func TestComputeSummary(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityError},
		{Severity: SeverityError},
		{Severity: SeverityWarn},
		{Severity: SeverityInfo},
		{Severity: Severity("weird")},
	}
	assert.Equal(t, Summary{Total: 5, Errors: 2, Warnings: 1, Info: 1}, ComputeSummary(findings))
	assert.Equal(t, Summary{}, ComputeSummary(nil))
}

func TestFilterSeverity(t *testing.T) {
	findings := []Finding{
		{File: "a", Severity: SeverityError},
		{File: "b", Severity: SeverityWarn},
		{File: "c", Severity: SeverityError},
	}
	assert.Equal(t, []string{"a", "c"}, files(FilterSeverity(findings, SeverityError)))
	assert.Len(t, FilterSeverity(findings, ""), 3)
	assert.Empty(t, FilterSeverity(findings, SeverityInfo))
}
