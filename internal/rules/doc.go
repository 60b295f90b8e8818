// Package rules implements the static rule validator consumed by the review
// pipeline.
//
// A [RegexValidator] checks whole-file contents line by line against a set
// of regular-expression rules. Rules come from a YAML rules file (see
// [LoadFile]) and, optionally, the built-in secret-detection set returned
// by [SecretRules]. Every match becomes a [Violation] carrying the rule ID,
// severity, message and 1-based line number.
//
// The same secret patterns back [Redact], which scrubs credentials out of
// diff text before it leaves the machine, and [ShouldRedactPath], which
// withholds whole files by glob.
package rules
