package gitctx

import "strings"

const fileMarker = "diff --git "

// SplitPatches cuts a diff at each "diff --git" line. Text ahead of the
// first marker is kept as its own patch unless it is blank, in which case it
// rides along with the first patch. The patches concatenate back to diff.
func SplitPatches(diff string) []string {
	if strings.TrimSpace(diff) == "" {
		return nil
	}

	var patches []string
	start := 0
	for pos := 0; pos < len(diff); {
		end := strings.IndexByte(diff[pos:], '\n')
		next := len(diff)
		if end >= 0 {
			next = pos + end + 1
		}
		if pos > start && strings.HasPrefix(diff[pos:], fileMarker) {
			patches = append(patches, diff[start:pos])
			start = pos
		}
		pos = next
	}
	patches = append(patches, diff[start:])

	if len(patches) > 1 && strings.TrimSpace(patches[0]) == "" {
		patches[1] = patches[0] + patches[1]
		patches = patches[1:]
	}
	return patches
}

// PatchPath returns the post-change path of one file patch, or "" when the
// text carries no file header.
func PatchPath(patch string) string {
	var header string
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ b/"):
			return strings.TrimPrefix(line, "+++ b/")
		case strings.HasPrefix(line, fileMarker) && header == "":
			header = line
		case strings.HasPrefix(line, "@@"):
			// Hunk bodies never carry headers.
			return pathFromHeader(header)
		}
	}
	return pathFromHeader(header)
}

// pathFromHeader extracts the b/ path from "diff --git a/x b/x". Deleted
// files have no "+++ b/" line so this is the only name they carry.
func pathFromHeader(header string) string {
	if header == "" {
		return ""
	}
	if i := strings.LastIndex(header, " b/"); i >= 0 {
		return header[i+3:]
	}
	return ""
}
