package review

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/diffgate/internal/providers"
)

const systemPrompt = `You are a strict, expert code reviewer. Review the code diff you are given and report problems.

Rules:
1. Only review the changes shown in the diff. Do not comment on unchanged code.
2. Focus on bugs, security issues, performance problems, and correctness. Avoid style nitpicks unless they hurt readability.
3. Be concise and actionable. Every finding must include a concrete suggestion.
4. Reference line numbers of the new file version from the diff hunks.
5. Rate severity as error (must fix before merging), warn (should fix), or info (optional improvement).

Report every finding as a block in exactly this shape, one block per finding:

FILE: relative/file/path
LINE: 42
SEVERITY: error|warn|info
ISSUE: what is wrong and why it matters
SUGGESTION: how to fix it
CORRECTED_CODE:
` + "```" + `
the complete corrected file, only when the fix is small enough to show in full
` + "```" + `

CORRECTED_CODE is optional. Do not add any other text.
If there are no issues, respond with exactly: NO ISSUES`

// maxReplyTokens bounds the reviewer reply for one segment.
const maxReplyTokens = 8192

// SystemPrompt returns the system prompt for the reviewer.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt constructs the user prompt for one segment.
func BuildUserPrompt(diff string, files []string) string {
	var b strings.Builder

	b.WriteString("Review the following code diff.\n\n")

	if len(files) > 0 {
		fmt.Fprintf(&b, "Files: %s\n", strings.Join(files, ", "))
	}
	if langs := detectLanguages(files); len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	}

	b.WriteString("\n--- BEGIN DIFF ---\n")
	b.WriteString(diff)
	b.WriteString("\n--- END DIFF ---\n")

	return b.String()
}

// PromptBuilder turns a segment into a reviewer request.
type PromptBuilder func(seg Segment) providers.ReviewRequest

// DefaultPromptBuilder uses the standard diff-review prompts.
func DefaultPromptBuilder(seg Segment) providers.ReviewRequest {
	return providers.ReviewRequest{
		SystemPrompt: SystemPrompt(),
		UserPrompt:   BuildUserPrompt(seg.Diff, seg.Files),
		MaxTokens:    maxReplyTokens,
	}
}

var languageByExt = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript/React",
	".jsx":   "JavaScript/React",
	".rs":    "Rust",
	".java":  "Java",
	".rb":    "Ruby",
	".cpp":   "C++",
	".c":     "C",
	".h":     "C/C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".kt":    "Kotlin",
	".sql":   "SQL",
	".sh":    "Shell",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".tf":    "Terraform",
}

func detectLanguages(files []string) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, f := range files {
		lang, ok := languageByExt[strings.ToLower(filepath.Ext(f))]
		if ok && !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}
