package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/diffgate/internal/cache"
	"github.com/dshills/diffgate/internal/config"
	"github.com/dshills/diffgate/internal/gitctx"
	"github.com/dshills/diffgate/internal/metrics"
	"github.com/dshills/diffgate/internal/output"
	"github.com/dshills/diffgate/internal/providers"
	"github.com/dshills/diffgate/internal/review"
	"github.com/dshills/diffgate/internal/rules"
	"github.com/dshills/diffgate/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Shared review flags
var (
	flagProvider        string
	flagModel           string
	flagPaths           string
	flagExclude         string
	flagContext         int
	flagRules           string
	flagBuiltinRules    bool
	flagRedact          bool
	flagCache           bool
	flagCacheDir        string
	flagConcurrency     int
	flagBatchDelay      time.Duration
	flagMaxSegmentBytes int
	flagMetricsOut      string

	flagFormat      string
	flagOut         string
	flagFailOnError bool
	flagFailOnWarn  bool
	flagSeverity    string

	flagYes       bool
	flagStdin     bool
	flagMergeBase bool
)

// newReviewer constructs the oracle. Tests replace it with a fake.
var newReviewer = providers.New

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProvider, "provider", "", "Reviewer provider (anthropic, openai, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContext, "context", 0, "Number of context lines in diff")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path (YAML)")
	cmd.Flags().BoolVar(&flagBuiltinRules, "builtin-rules", true, "Run the built-in secret detection rules")
	cmd.Flags().BoolVar(&flagRedact, "redact", true, "Redact secrets before sending the diff to the reviewer")
	cmd.Flags().BoolVar(&flagCache, "cache", true, "Reuse cached reviewer responses")
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "Cache directory")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Reviewer calls per window")
	cmd.Flags().DurationVar(&flagBatchDelay, "batch-delay", 0, "Pause between windows (negative disables)")
	cmd.Flags().IntVar(&flagMaxSegmentBytes, "max-segment-bytes", 0, "Maximum bytes per segment")
	cmd.Flags().StringVar(&flagMetricsOut, "metrics-out", "", "Write run metrics to this file (Prometheus text format)")
}

func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format ("+strings.Join(output.Formats(), ", ")+")")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&flagFailOnError, "fail-on-error", false, "Exit 1 when error findings exist")
	cmd.Flags().BoolVar(&flagFailOnWarn, "fail-on-warn", false, "Exit 1 when warn or error findings exist")
	cmd.Flags().StringVar(&flagSeverity, "severity", "", "Only report and gate on this severity (error, warn, info)")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(flagConfig, cmd.Flags())
}

func diffOptions(cfg config.Config) gitctx.Options {
	opts := gitctx.Options{
		ContextLines: cfg.ContextLines,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		opts.Exclude = append(append([]string(nil), opts.Exclude...), splitComma(flagExclude)...)
	}
	return opts
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// runOptions describes how one invocation behaves.
type runOptions struct {
	// attended runs may prompt for the review scope and colorize text.
	attended bool
	// renderEmpty renders a report even when there is nothing to review.
	renderEmpty bool
}

// sourceFunc builds the diff source once configuration is known.
type sourceFunc func(cmd *cobra.Command, opts gitctx.Options) gitctx.Provider

func runReview(cmd *cobra.Command, source sourceFunc, ro runOptions) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig(cmd)
	if err != nil {
		fail(stderr, ExitUsageError, err)
		return
	}
	format, err := output.NormalizeFormat(cfg.Format)
	if err != nil {
		fail(stderr, ExitUsageError, err)
		return
	}
	if !cfg.RedactSecrets {
		fmt.Fprintln(stderr, "WARNING: secret redaction is disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := diffOptions(cfg)
	src := source(cmd, opts)
	diff, err := src.Diff(ctx)
	if err != nil {
		fail(stderr, ExitRuntimeError, err)
		return
	}

	var report *review.Report
	if strings.TrimSpace(diff) == "" {
		fmt.Fprintln(stderr, "No changes to review.")
		if !ro.renderEmpty {
			return
		}
		p := &review.Pipeline{ProviderName: cfg.Provider, ModelName: cfg.Model, Logger: logger}
		if report, err = p.Run(ctx, diff); err != nil {
			fail(stderr, ExitRuntimeError, err)
			return
		}
	} else {
		rec := metrics.New()
		pipeline, cached, err := buildPipeline(ctx, cfg, src, opts, ro, rec, stderr)
		if err != nil {
			fail(stderr, classify(err), err)
			return
		}
		report, err = pipeline.Run(ctx, diff)
		if cached != nil {
			rec.ObserveCache(cached.Hits(), cached.Misses())
		}
		rec.ObserveReport(report)
		// Failed runs still export the call and window counters.
		writeMetrics(rec, stderr)
		if err != nil {
			fail(stderr, classify(err), err)
			return
		}
		if d := report.Dispatch; d.FailedWindows > 0 {
			fmt.Fprintf(stderr, "WARNING: %d of %d windows had reviewer failures; %d of %d segments reviewed\n",
				d.FailedWindows, d.Windows, d.Reviewed-d.Failed, d.Segments)
		}
	}

	filter := review.Severity(cfg.Severity)
	var rendered string
	if format == output.FormatText && ro.attended && flagOut == "" && ui.IsTerminal(os.Stdout) {
		rendered, err = output.RenderWith(&output.TextWriter{Color: true}, report, filter)
	} else {
		rendered, err = output.Render(report, format, filter)
	}
	if err != nil {
		fail(stderr, ExitRuntimeError, err)
		return
	}
	emit(stdout, stderr, rendered, flagOut)

	policy := output.Policy{
		FailOnError:    cfg.FailOnError,
		FailOnWarn:     cfg.FailOnWarn,
		SeverityFilter: filter,
	}
	if reason := policy.Reason(report.Findings); reason != "" {
		fmt.Fprintf(stderr, "Policy: %s (exit %d)\n", reason, ExitFindings)
		exitCode = ExitFindings
	}
}

func writeMetrics(rec *metrics.Recorder, stderr io.Writer) {
	if flagMetricsOut == "" {
		return
	}
	if err := rec.WriteTextfile(flagMetricsOut); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
}

// buildPipeline assembles the review pipeline. The returned cache reviewer is
// nil when caching is disabled.
func buildPipeline(ctx context.Context, cfg config.Config, src gitctx.Provider, opts gitctx.Options, ro runOptions, rec *metrics.Recorder, stderr io.Writer) (*review.Pipeline, *cache.Reviewer, error) {
	apiKey := providers.ResolveAPIKey(cfg.Provider, os.Getenv)
	reviewer, err := newReviewer(providers.Options{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   apiKey,
		BaseURL:  os.Getenv("DIFFGATE_BASE_URL"),
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating reviewer: %w", err)
	}

	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTL())
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache: %w", err)
	}
	var cached *cache.Reviewer
	if c.Enabled() {
		cached = cache.NewReviewer(reviewer, c, cfg.Model, logger)
		reviewer = cached
	}

	validator, err := buildValidator(cfg)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := &review.Dispatcher{
		Reviewer:       reviewer,
		Concurrency:    cfg.Concurrency,
		Delay:          cfg.BatchDelay,
		Unattended:     true,
		LargeThreshold: cfg.LargeThreshold,
		PrefixLimit:    cfg.PrefixLimit,
		Logger:         logger,
		Metrics:        rec,
	}
	if ro.attended && !flagYes && ui.Attended(os.Getenv) {
		dispatcher.Unattended = false
		dispatcher.Selector = &ui.Selector{Out: stderr}
	}

	if meta, err := opts.Meta(ctx); err == nil {
		logger.Debug("repository", zap.String("root", meta.Root), zap.String("branch", meta.Branch), zap.String("head", meta.Head))
	}

	pipeline := &review.Pipeline{
		Dispatcher:      dispatcher,
		MaxSegmentBytes: cfg.MaxSegmentBytes,
		Validator:       validator,
		RedactSecrets:   cfg.RedactSecrets,
		RedactPaths:     cfg.RedactPaths,
		ProviderName:    reviewer.Name(),
		ModelName:       cfg.Model,
		Logger:          logger,
	}
	// Rules read changed files from the diff's own source.
	if contents, ok := src.(gitctx.Contents); ok {
		pipeline.ReadFile = contents.ReadFile
	}
	return pipeline, cached, nil
}

// buildValidator returns nil when no rules are configured so the pipeline
// skips validation entirely.
func buildValidator(cfg config.Config) (rules.Validator, error) {
	loaded, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	if cfg.BuiltinRules {
		loaded = append(loaded, rules.SecretRules()...)
	}
	if len(loaded) == 0 {
		return nil, nil
	}
	v, err := rules.NewRegexValidator(loaded...)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	logger.Debug("rules loaded", zap.Int("count", v.Len()))
	return v, nil
}

// emit writes the rendering to path, falling back to stdout when the file
// cannot be written. The fallback never changes the exit code.
func emit(stdout, stderr io.Writer, rendered, path string) {
	if path == "" {
		fmt.Fprint(stdout, rendered)
		return
	}
	if err := output.WriteFile(path, rendered); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v; printing report to stdout instead\n", err)
		fmt.Fprint(stdout, rendered)
		return
	}
	fmt.Fprintf(stderr, "Report written to %s\n", path)
}

func classify(err error) int {
	switch {
	case providers.IsAuthError(err):
		return ExitAuthError
	case errors.Is(err, rules.ErrInvalidRule):
		return ExitUsageError
	default:
		return ExitRuntimeError
	}
}

func fail(stderr io.Writer, code int, err error) {
	kind := "hard failure"
	switch code {
	case ExitUsageError:
		kind = "usage error"
	case ExitAuthError:
		kind = "authentication failure"
	}
	fmt.Fprintf(stderr, "Error: %v (%s, exit %d)\n", err, kind, code)
	exitCode = code
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review code changes",
	Long:  "Review code changes and print a human-oriented report. Use subcommands to choose what to review.",
}

var reviewStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Review staged changes (index vs HEAD)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runReview(cmd, func(_ *cobra.Command, o gitctx.Options) gitctx.Provider {
			return gitctx.Staged{Options: o}
		}, runOptions{attended: true})
		return nil
	},
}

var reviewUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Review unstaged changes (working tree vs index)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runReview(cmd, func(_ *cobra.Command, o gitctx.Options) gitctx.Provider {
			return gitctx.Unstaged{Options: o}
		}, runOptions{attended: true})
		return nil
	},
}

var reviewCommitCmd = &cobra.Command{
	Use:   "commit <sha>",
	Short: "Review a specific commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runReview(cmd, func(_ *cobra.Command, o gitctx.Options) gitctx.Provider {
			return gitctx.Commit{Options: o, SHA: args[0]}
		}, runOptions{attended: true})
		return nil
	},
}

var reviewRangeCmd = &cobra.Command{
	Use:   "range <revRange>",
	Short: "Review a revision range (e.g., origin/main..HEAD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runReview(cmd, func(_ *cobra.Command, o gitctx.Options) gitctx.Provider {
			return gitctx.Range{Options: o, Spec: args[0], MergeBase: flagMergeBase}
		}, runOptions{attended: true})
		return nil
	},
}

var reviewStdinCmd = &cobra.Command{
	Use:   "stdin",
	Short: "Review a unified diff read from stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runReview(cmd, stdinSource, runOptions{attended: true})
		return nil
	},
}

func stdinSource(cmd *cobra.Command, o gitctx.Options) gitctx.Provider {
	return &gitctx.Reader{R: cmd.InOrStdin(), Exclude: o.Exclude}
}

var ciCmd = &cobra.Command{
	Use:   "ci [revRange]",
	Short: "Review unattended and gate on findings",
	Long: `Review without prompts and emit a machine-readable report.

With no argument the staged changes are reviewed; with a revision range the
range is reviewed; with --stdin a unified diff is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := func(_ *cobra.Command, o gitctx.Options) gitctx.Provider {
			if len(args) == 1 {
				return gitctx.Range{Options: o, Spec: args[0], MergeBase: flagMergeBase}
			}
			return gitctx.Staged{Options: o}
		}
		if flagStdin {
			if len(args) > 0 {
				return errors.New("--stdin cannot be combined with a revision range")
			}
			source = stdinSource
		}
		runReview(cmd, source, runOptions{renderEmpty: true})
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewStagedCmd)
	reviewCmd.AddCommand(reviewUnstagedCmd)
	reviewCmd.AddCommand(reviewCommitCmd)
	reviewCmd.AddCommand(reviewRangeCmd)
	reviewCmd.AddCommand(reviewStdinCmd)

	for _, cmd := range []*cobra.Command{
		reviewStagedCmd,
		reviewUnstagedCmd,
		reviewCommitCmd,
		reviewRangeCmd,
		reviewStdinCmd,
		ciCmd,
	} {
		addPipelineFlags(cmd)
		addPolicyFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{
		reviewStagedCmd,
		reviewUnstagedCmd,
		reviewCommitCmd,
		reviewRangeCmd,
		reviewStdinCmd,
	} {
		cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Never prompt; review every segment")
	}

	reviewRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
	ciCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
	ciCmd.Flags().BoolVar(&flagStdin, "stdin", false, "Read the diff from stdin")
}
