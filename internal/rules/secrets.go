package rules

import (
	"regexp"

	"github.com/dshills/diffgate/internal/gitctx"
)

const placeholder = "[REDACTED]"

type secretPattern struct {
	id      string
	message string
	pattern string
}

// secretPatterns are regex heuristics for common secret shapes.
var secretPatterns = []secretPattern{
	{"secret/api-key", "Hard-coded API key", `(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`},
	{"secret/aws-access-key", "AWS access key ID", `AKIA[0-9A-Z]{16}`},
	{"secret/aws-secret-key", "AWS secret access key", `(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`},
	{"secret/assignment", "Hard-coded secret, token or password", `(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`},
	{"secret/bearer", "Bearer token", `(?i)Bearer\s+[A-Za-z0-9._-]{20,}`},
	{"secret/jwt", "JSON Web Token", `eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`},
	{"secret/private-key", "Private key block", `-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`},
	{"secret/github-token", "GitHub token", `gh[pousr]_[A-Za-z0-9_]{36,}`},
	{"secret/slack-token", "Slack token", `xox[bporas]-[A-Za-z0-9-]{10,}`},
	{"secret/anthropic-key", "Anthropic API key", `sk-ant-[A-Za-z0-9_-]{20,}`},
	{"secret/openai-key", "OpenAI API key", `sk-[A-Za-z0-9]{20,}`},
	{"secret/hex-key", "Long hex secret", `(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`},
}

var compiledSecrets = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(secretPatterns))
	for i, p := range secretPatterns {
		out[i] = regexp.MustCompile(p.pattern)
	}
	return out
}()

// SecretRules returns the built-in secret-detection rules at error severity.
func SecretRules() []Rule {
	out := make([]Rule, len(secretPatterns))
	for i, p := range secretPatterns {
		out[i] = Rule{
			ID:         p.id,
			Pattern:    p.pattern,
			Severity:   SeverityError,
			Message:    p.message + " committed to source",
			Suggestion: "Remove the credential, rotate it, and load it from the environment or a secret store.",
		}
	}
	return out
}

// Redact replaces detected secrets in text with [REDACTED].
func Redact(text string) string {
	result := text
	for _, re := range compiledSecrets {
		result = re.ReplaceAllString(result, placeholder)
	}
	return result
}

// ShouldRedactPath checks if a file path matches any of the redaction path
// patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	return gitctx.MatchesAny(path, patterns)
}

// RedactContent withholds the whole content when the path matches a
// redaction pattern and scrubs secrets otherwise.
func RedactContent(content, path string, redactPaths []string) string {
	if ShouldRedactPath(path, redactPaths) {
		return placeholder + " (file content redacted by path policy)\n"
	}
	return Redact(content)
}
