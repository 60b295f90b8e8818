package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dshills/diffgate/internal/gitctx"
	"gopkg.in/yaml.v3"
)

// Severity levels a rule may declare.
const (
	SeverityError = "error"
	SeverityWarn  = "warn"
	SeverityInfo  = "info"
)

// ErrInvalidRule is returned for rules that cannot be compiled.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is a single regular-expression check.
type Rule struct {
	ID         string   `yaml:"id"`
	Pattern    string   `yaml:"pattern"`
	Severity   string   `yaml:"severity"`
	Message    string   `yaml:"message"`
	Suggestion string   `yaml:"suggestion,omitempty"`
	Paths      []string `yaml:"paths,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty"`

	re *regexp.Regexp
}

// Violation is one rule match in one file.
type Violation struct {
	File       string
	Line       int
	Severity   string
	Message    string
	Suggestion string
	Rule       string
}

// Validator checks one file's full contents.
type Validator interface {
	Validate(path, content string) []Violation
}

// File is the on-disk rules file layout.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads rules from a YAML file. An empty path returns no rules.
func LoadFile(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes rules from YAML.
func Parse(data []byte) ([]Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return f.Rules, nil
}

// RegexValidator applies compiled rules to file contents.
type RegexValidator struct {
	rules []Rule
}

// NewRegexValidator compiles rules. Severity defaults to warn.
func NewRegexValidator(rules ...Rule) (*RegexValidator, error) {
	compiled := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule %d has no id", ErrInvalidRule, i)
		}
		if r.Pattern == "" {
			return nil, fmt.Errorf("%w: rule %s has no pattern", ErrInvalidRule, r.ID)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s: %v", ErrInvalidRule, r.ID, err)
		}
		r.re = re
		switch strings.ToLower(r.Severity) {
		case "":
			r.Severity = SeverityWarn
		case SeverityError, SeverityWarn, SeverityInfo:
			r.Severity = strings.ToLower(r.Severity)
		case "warning":
			r.Severity = SeverityWarn
		default:
			return nil, fmt.Errorf("%w: rule %s has unknown severity %q", ErrInvalidRule, r.ID, r.Severity)
		}
		if r.Message == "" {
			r.Message = fmt.Sprintf("matched rule %s", r.ID)
		}
		compiled = append(compiled, r)
	}
	return &RegexValidator{rules: compiled}, nil
}

// Len returns the number of rules.
func (v *RegexValidator) Len() int { return len(v.rules) }

// Validate reports one violation per rule per matching line.
func (v *RegexValidator) Validate(path, content string) []Violation {
	var out []Violation
	var lines []string
	for _, r := range v.rules {
		if !r.applies(path) {
			continue
		}
		if lines == nil {
			lines = strings.Split(content, "\n")
		}
		for i, line := range lines {
			if r.re.MatchString(line) {
				out = append(out, Violation{
					File:       path,
					Line:       i + 1,
					Severity:   r.Severity,
					Message:    r.Message,
					Suggestion: r.Suggestion,
					Rule:       r.ID,
				})
			}
		}
	}
	return out
}

func (r Rule) applies(path string) bool {
	if len(r.Paths) > 0 && !gitctx.MatchesAny(path, r.Paths) {
		return false
	}
	return !gitctx.MatchesAny(path, r.Exclude)
}
