package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/diffgate/internal/gitctx"
	"github.com/dshills/diffgate/internal/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline runs one review: segment, dispatch, validate, aggregate.
type Pipeline struct {
	Dispatcher      *Dispatcher
	MaxSegmentBytes int

	// Validator checks the new contents of every changed file. ReadFile
	// loads those contents from the diff's source, so the version checked is
	// the version under review. Either one nil skips rule validation.
	Validator rules.Validator
	ReadFile  func(ctx context.Context, path string) ([]byte, error)

	// RedactSecrets scrubs credentials from the diff before it leaves the
	// process. File patches whose path matches RedactPaths are withheld.
	RedactSecrets bool
	RedactPaths   []string

	ProviderName string
	ModelName    string

	Now    func() time.Time
	Logger *zap.Logger
}

// Run reviews diff and builds the report. A blank diff yields an empty report
// with Empty set. Oracle failures are returned only when the dispatcher
// treats them as fatal.
func (p *Pipeline) Run(ctx context.Context, diff string) (*Report, error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	log := p.logger()

	if strings.TrimSpace(diff) == "" {
		return &Report{
			Findings: []Finding{},
			Metadata: p.metadata(start, now()),
			Empty:    true,
		}, nil
	}
	if p.Dispatcher == nil {
		return nil, ErrNoReviewer
	}

	outbound := diff
	if p.RedactSecrets {
		outbound = redactDiff(diff, p.RedactPaths)
	}

	segments := Split(outbound, p.MaxSegmentBytes)
	log.Info("diff segmented",
		zap.Int("bytes", len(outbound)),
		zap.Int("segments", len(segments)))

	outcome, err := p.Dispatcher.Dispatch(ctx, segments)
	if err != nil {
		return nil, fmt.Errorf("dispatching review: %w", err)
	}

	violations := FromViolations(p.validate(ctx, diff))
	findings := Aggregate(outcome.Findings, violations)

	return &Report{
		Summary:  ComputeSummary(findings),
		Findings: findings,
		Metadata: p.metadata(start, now()),
		Dispatch: outcome,
	}, nil
}

func (p *Pipeline) validate(ctx context.Context, diff string) []rules.Violation {
	if p.Validator == nil || p.ReadFile == nil {
		return nil
	}
	log := p.logger()
	files, err := gitctx.ChangedFiles(diff)
	if err != nil {
		log.Warn("skipping rule validation", zap.Error(err))
		return nil
	}
	var out []rules.Violation
	for _, path := range files {
		data, err := p.ReadFile(ctx, path)
		if err != nil {
			log.Debug("cannot read changed file", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, p.Validator.Validate(path, string(data))...)
	}
	return out
}

func (p *Pipeline) metadata(start, end time.Time) Metadata {
	return Metadata{
		Timestamp:       start.UTC(),
		DurationSeconds: end.Sub(start).Seconds(),
		ProviderName:    p.ProviderName,
		ModelName:       p.ModelName,
		RunID:           uuid.NewString(),
	}
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// redactDiff scrubs secrets from every file patch and replaces the body of
// patches for redacted paths, keeping only their header line.
func redactDiff(diff string, paths []string) string {
	var b strings.Builder
	for _, unit := range gitctx.SplitPatches(diff) {
		path := gitctx.PatchPath(unit)
		if path == "" || !rules.ShouldRedactPath(path, paths) {
			b.WriteString(rules.Redact(unit))
			continue
		}
		header, _, _ := strings.Cut(unit, "\n")
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(rules.RedactContent(unit, path, paths))
	}
	return b.String()
}
