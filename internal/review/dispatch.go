package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/diffgate/internal/providers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatch defaults.
const (
	DefaultConcurrency    = 3
	DefaultDelay          = 1500 * time.Millisecond
	DefaultLargeThreshold = 5
	DefaultPrefixLimit    = 5
)

// ErrNoReviewer is returned when a run needs the oracle but none is set.
var ErrNoReviewer = errors.New("no reviewer configured")

// Scope is how much of a large diff an attended run reviews.
type Scope int

const (
	ScopeAll Scope = iota
	ScopePrefix
	ScopeSkip
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopePrefix:
		return "prefix"
	case ScopeSkip:
		return "skip"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ScopeSelector asks the operator how much of a large diff to review.
type ScopeSelector interface {
	SelectScope(ctx context.Context, segments, prefix int) (Scope, error)
}

// Metrics receives per-call and per-window observations. Implementations
// must be safe for concurrent use.
type Metrics interface {
	ObserveCall(d time.Duration, err error)
	ObserveWindow(failed bool)
}

// Outcome is the result of dispatching one diff's segments.
type Outcome struct {
	Findings []Finding
	Scope    Scope
	// Segments is the number of segments the diff produced; Reviewed and
	// Failed count the oracle calls actually made.
	Segments      int
	Reviewed      int
	Failed        int
	Windows       int
	FailedWindows int
}

// Dispatcher sends segments to the reviewer in fixed-size windows. All calls
// in a window run concurrently and the window is joined before the next one
// starts.
type Dispatcher struct {
	Reviewer providers.Reviewer
	// Prompt builds the request for one segment. Nil uses DefaultPromptBuilder.
	Prompt      PromptBuilder
	Concurrency int
	// Delay is the pause between windows. Zero uses DefaultDelay, negative
	// disables pacing.
	Delay time.Duration

	// Unattended runs never consult the Selector and review everything.
	Unattended     bool
	Selector       ScopeSelector
	LargeThreshold int
	PrefixLimit    int

	Logger  *zap.Logger
	Metrics Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// Dispatch reviews segments and returns their findings in segment order.
//
// When the segments fit in one window any failed call fails the run. With
// more windows a failure is logged, the window's successful calls keep their
// findings, and dispatch moves on to the next window.
func (d *Dispatcher) Dispatch(ctx context.Context, segments []Segment) (Outcome, error) {
	out := Outcome{Findings: []Finding{}, Segments: len(segments)}
	if len(segments) == 0 {
		return out, nil
	}
	if d.Reviewer == nil {
		return out, ErrNoReviewer
	}
	log := d.logger()

	scope, err := d.selectScope(ctx, len(segments))
	if err != nil {
		return out, fmt.Errorf("selecting review scope: %w", err)
	}
	out.Scope = scope
	switch scope {
	case ScopeSkip:
		log.Info("review skipped", zap.Int("segments", len(segments)))
		return out, nil
	case ScopePrefix:
		if limit := d.prefixLimit(); len(segments) > limit {
			segments = segments[:limit]
		}
	}

	windows := partition(segments, d.concurrency())
	out.Windows = len(windows)
	log.Debug("dispatching segments",
		zap.Int("segments", len(segments)),
		zap.Int("windows", len(windows)),
		zap.Stringer("scope", scope))

	for w, window := range windows {
		if w > 0 {
			if err := d.pause(ctx); err != nil {
				return out, err
			}
		}

		findings, failed, err := d.runWindow(ctx, window)
		out.Findings = append(out.Findings, findings...)
		out.Reviewed += len(window)
		out.Failed += failed
		if d.Metrics != nil {
			d.Metrics.ObserveWindow(err != nil)
		}
		if err == nil {
			continue
		}
		if len(windows) == 1 {
			return out, err
		}
		out.FailedWindows++
		log.Warn("review window failed, continuing",
			zap.Int("window", w+1),
			zap.Int("windows", len(windows)),
			zap.Int("failedCalls", failed),
			zap.Error(err))
	}
	return out, nil
}

// runWindow reviews one window. The returned error is the first failure;
// findings from the successful calls are returned alongside it.
func (d *Dispatcher) runWindow(ctx context.Context, window []Segment) ([]Finding, int, error) {
	build := d.Prompt
	if build == nil {
		build = DefaultPromptBuilder
	}

	results := make([][]Finding, len(window))
	failed := make([]bool, len(window))

	var g errgroup.Group
	for i, seg := range window {
		g.Go(func() error {
			start := time.Now()
			resp, err := d.Reviewer.Review(ctx, build(seg))
			if d.Metrics != nil {
				d.Metrics.ObserveCall(time.Since(start), err)
			}
			if err != nil {
				failed[i] = true
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}
			results[i] = ParseFindings(resp.Content)
			d.logger().Debug("segment reviewed",
				zap.Int("segment", seg.Index),
				zap.Int("bytes", seg.Size()),
				zap.Int("findings", len(results[i])),
				zap.Int("tokens", resp.TokensUsed),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	err := g.Wait()

	var findings []Finding
	n := 0
	for i := range window {
		if failed[i] {
			n++
			continue
		}
		findings = append(findings, results[i]...)
	}
	return findings, n, err
}

func (d *Dispatcher) selectScope(ctx context.Context, n int) (Scope, error) {
	if d.Unattended || d.Selector == nil || n <= d.largeThreshold() {
		return ScopeAll, nil
	}
	return d.Selector.SelectScope(ctx, n, d.prefixLimit())
}

func (d *Dispatcher) pause(ctx context.Context) error {
	delay := d.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		return ctx.Err()
	}
	if d.sleep != nil {
		return d.sleep(ctx, delay)
	}
	return sleepContext(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func partition(segments []Segment, size int) [][]Segment {
	var windows [][]Segment
	for start := 0; start < len(segments); start += size {
		windows = append(windows, segments[start:min(start+size, len(segments))])
	}
	return windows
}

func (d *Dispatcher) concurrency() int {
	if d.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return d.Concurrency
}

func (d *Dispatcher) largeThreshold() int {
	if d.LargeThreshold <= 0 {
		return DefaultLargeThreshold
	}
	return d.LargeThreshold
}

func (d *Dispatcher) prefixLimit() int {
	if d.PrefixLimit <= 0 {
		return DefaultPrefixLimit
	}
	return d.PrefixLimit
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
