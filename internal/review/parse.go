package review

import (
	"regexp"
	"strconv"
	"strings"
)

// Reply tags understood by ParseFindings. The prompt asks the reviewer to
// answer in this shape; anything else in the reply is ignored.
const (
	tagFile       = "file"
	tagLine       = "line"
	tagSeverity   = "severity"
	tagIssue      = "issue"
	tagSuggestion = "suggestion"
	tagCorrected  = "corrected"
	tagRule       = "rule"
)

var tagAliases = map[string]string{
	"file":           tagFile,
	"filename":       tagFile,
	"path":           tagFile,
	"line":           tagLine,
	"lines":          tagLine,
	"severity":       tagSeverity,
	"level":          tagSeverity,
	"issue":          tagIssue,
	"problem":        tagIssue,
	"description":    tagIssue,
	"suggestion":     tagSuggestion,
	"fix":            tagSuggestion,
	"recommendation": tagSuggestion,
	"corrected_code": tagCorrected,
	"corrected code": tagCorrected,
	"corrected":      tagCorrected,
	"rule":           tagRule,
	"category":       tagRule,
}

// tagLinePattern matches "TAG: value" lines, tolerating markdown decoration
// such as "### FILE:", "**ISSUE:**" or "- SUGGESTION:".
var tagLinePattern = regexp.MustCompile(`^\s*(?:[#>*-]+\s*)*\**\s*([A-Za-z][A-Za-z _]*?)\s*\**\s*:\s*\**\s*(.*)$`)

var firstNumber = regexp.MustCompile(`\d+`)

type rawBlock struct {
	fields map[string]*strings.Builder
	order  []string
}

func (b *rawBlock) get(tag string) string {
	if sb, ok := b.fields[tag]; ok {
		return strings.TrimSpace(sb.String())
	}
	return ""
}

// ParseFindings converts a reviewer reply into findings. Blocks lacking a
// file, an issue or a suggestion are dropped. It never fails: malformed
// input yields fewer (possibly zero) findings.
func ParseFindings(raw string) []Finding {
	var blocks []*rawBlock
	var cur *rawBlock
	var curTag string
	inFence := false
	// fencedBody is set once the current tag's body opened a fence.
	fencedBody := false

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)

		// Inside a code fence every line is content, tags included. Fences
		// outside a tag body (a reply wrapped in ``` as a whole) are ignored.
		if strings.HasPrefix(trimmed, "```") {
			if cur != nil && curTag != "" && curTag != tagFile {
				inFence = !inFence
				fencedBody = true
				appendLine(cur, curTag, line)
			}
			continue
		}
		if inFence {
			appendLine(cur, curTag, line)
			continue
		}

		tag, value, name, ok := matchTag(line)
		// An unfenced replacement file runs to the next FILE: tag; its own
		// "key: value" lines are content.
		if ok && curTag == tagCorrected && !fencedBody && name != "FILE" && name != "FILENAME" {
			ok = false
		}
		if ok {
			if tag == tagFile {
				cur = &rawBlock{fields: make(map[string]*strings.Builder)}
				blocks = append(blocks, cur)
			}
			if cur == nil {
				continue
			}
			curTag = tag
			fencedBody = false
			if _, seen := cur.fields[tag]; !seen {
				cur.fields[tag] = &strings.Builder{}
				cur.order = append(cur.order, tag)
			}
			if value != "" {
				appendLine(cur, tag, value)
			}
			continue
		}

		if cur != nil && curTag != "" && curTag != tagFile {
			appendLine(cur, curTag, line)
		}
	}

	findings := make([]Finding, 0, len(blocks))
	for _, b := range blocks {
		if f, ok := b.finding(); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// matchTag reports the canonical tag of a "TAG: value" line along with the
// tag name as written.
func matchTag(line string) (tag, value, name string, ok bool) {
	m := tagLinePattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", "", false
	}
	name = strings.TrimSpace(m[1])
	tag, ok = tagAliases[strings.ToLower(name)]
	if !ok {
		return "", "", "", false
	}
	return tag, strings.TrimSpace(strings.TrimRight(m[2], "*")), name, true
}

func appendLine(b *rawBlock, tag, line string) {
	sb := b.fields[tag]
	if sb == nil {
		sb = &strings.Builder{}
		b.fields[tag] = sb
		b.order = append(b.order, tag)
	}
	if sb.Len() > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteString(line)
}

func (b *rawBlock) finding() (Finding, bool) {
	file := strings.Trim(b.get(tagFile), "`*\"' ")
	issue := trimStrayFence(b.get(tagIssue))
	suggestion := trimStrayFence(b.get(tagSuggestion))
	if file == "" || issue == "" || suggestion == "" {
		return Finding{}, false
	}

	f := Finding{
		File:             file,
		Message:          issue,
		Suggestion:       suggestion,
		CorrectedContent: stripFence(trimStrayFence(b.get(tagCorrected))),
		Severity:         SeverityWarn,
		Rule:             trimStrayFence(b.get(tagRule)),
	}
	if sev, ok := ParseSeverity(b.get(tagSeverity)); ok {
		f.Severity = sev
	}
	if n := firstNumber.FindString(b.get(tagLine)); n != "" {
		if line, err := strconv.Atoi(n); err == nil && line > 0 {
			f.Line = line
		}
	}
	return f, true
}

// stripFence removes a surrounding ``` fence (with optional language tag).
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// trimStrayFence drops an unmatched closing fence that belonged to a fence
// wrapping the whole reply.
func trimStrayFence(s string) string {
	if strings.Count(s, "```")%2 == 1 && strings.HasSuffix(s, "```") {
		return strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
