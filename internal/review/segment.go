package review

import (
	"strings"

	"github.com/dshills/diffgate/internal/gitctx"
)

const (
	// DefaultSegmentBytes is the soft byte limit for one segment sent to a
	// reviewer.
	DefaultSegmentBytes = 30000
)

// Segment is a run of whole file patches reviewed in one oracle call.
type Segment struct {
	Index int
	Diff  string
	Files []string
}

// Size returns the segment length in bytes.
func (s Segment) Size() int { return len(s.Diff) }

// Split partitions a diff into segments of whole file patches. Consecutive
// patches are packed while the segment stays within maxBytes; a patch that
// alone exceeds maxBytes becomes its own segment and is never cut.
func Split(diff string, maxBytes int) []Segment {
	units := gitctx.SplitPatches(diff)
	if len(units) == 0 {
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultSegmentBytes
	}

	var segments []Segment
	var current strings.Builder
	var files []string

	flush := func() {
		if current.Len() == 0 {
			return
		}
		segments = append(segments, Segment{
			Index: len(segments),
			Diff:  current.String(),
			Files: files,
		})
		current.Reset()
		files = nil
	}

	for _, unit := range units {
		if current.Len() > 0 && current.Len()+len(unit) > maxBytes {
			flush()
		}
		current.WriteString(unit)
		if path := gitctx.PatchPath(unit); path != "" {
			files = append(files, path)
		}
	}
	flush()

	return segments
}
