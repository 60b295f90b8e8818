package gitctx

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ChangedFiles lists the files a diff leaves on disk, in diff order.
// Deletions and binary patches are skipped since there is no text to check.
func ChangedFiles(diff string) ([]string, error) {
	parsed, err := parse(diff)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, f := range parsed {
		if f.IsDelete || f.IsBinary || f.NewName == "" {
			continue
		}
		paths = append(paths, f.NewName)
	}
	return paths, nil
}

// FilterExcluded drops whole file patches whose path matches an exclude
// pattern. Text before the first patch is kept.
func FilterExcluded(diff string, excludes []string) string {
	if len(excludes) == 0 {
		return diff
	}
	var b strings.Builder
	for _, patch := range SplitPatches(diff) {
		path := PatchPath(patch)
		if path == "" || !MatchesAny(path, excludes) {
			b.WriteString(patch)
		}
	}
	return b.String()
}

// createdContents rebuilds a file the diff creates from its patch. Files the
// diff only modifies have no base to apply to and report ErrNoContents.
func createdContents(diff, path string) ([]byte, error) {
	parsed, err := parse(diff)
	if err != nil {
		return nil, err
	}
	for _, f := range parsed {
		if f.NewName != path || f.IsDelete || f.IsBinary {
			continue
		}
		if !f.IsNew {
			break
		}
		var buf bytes.Buffer
		if err := gitdiff.Apply(&buf, bytes.NewReader(nil), f); err != nil {
			return nil, fmt.Errorf("applying patch for %s: %w", path, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNoContents)
}

func parse(diff string) ([]*gitdiff.File, error) {
	if strings.TrimSpace(diff) == "" {
		return nil, nil
	}
	parsed, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	return parsed, nil
}

// MatchesAny reports whether path matches any of the glob patterns. A
// leading **/ also matches against the base name, and a trailing /** matches
// anything under that directory.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && !strings.ContainsAny(dir, "*?[") {
			if strings.HasPrefix(path, dir+"/") {
				return true
			}
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean == pattern {
			continue
		}
		if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(clean, path); err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(clean, "/**"); ok && !strings.ContainsAny(dir, "*?[") {
			if strings.HasPrefix(path, dir+"/") || strings.Contains(path, "/"+dir+"/") {
				return true
			}
		}
	}
	return false
}
