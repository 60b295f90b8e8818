package gitctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Provider yields the unified diff for one run. An empty string means there
// is nothing to review and is not an error.
type Provider interface {
	Diff(ctx context.Context) (string, error)
}

// Contents is implemented by providers that can load a changed file as it
// stands on the side of the diff under review.
type Contents interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// ErrNoContents is returned when a provider cannot produce the reviewed
// version of a file.
var ErrNoContents = errors.New("file contents not available")

// Options controls how diffs are gathered.
type Options struct {
	// Dir is the working directory git runs in. Empty means the process cwd.
	Dir          string
	ContextLines int
	Include      []string
	Exclude      []string
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Staged is the diff of index vs HEAD.
type Staged struct{ Options }

func (s Staged) Diff(ctx context.Context) (string, error) {
	out, err := s.git(ctx, append([]string{"diff", "--cached"}, s.args()...)...)
	if err != nil {
		return "", fmt.Errorf("git diff --cached: %w", err)
	}
	return FilterExcluded(out, s.Exclude), nil
}

// ReadFile returns the staged version of path.
func (s Staged) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return s.show(ctx, ":"+path)
}

// Unstaged is the diff of working tree vs index.
type Unstaged struct{ Options }

func (u Unstaged) Diff(ctx context.Context) (string, error) {
	out, err := u.git(ctx, append([]string{"diff"}, u.args()...)...)
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return FilterExcluded(out, u.Exclude), nil
}

// ReadFile returns the working-tree version of path.
func (u Unstaged) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return u.readWorktree(ctx, path)
}

// Commit is the diff a single commit introduces.
type Commit struct {
	Options
	SHA string
}

func (c Commit) Diff(ctx context.Context) (string, error) {
	if c.SHA == "" {
		return "", errors.New("commit: no revision given")
	}
	out, err := c.git(ctx, append([]string{"diff", c.SHA + "~1", c.SHA}, c.args()...)...)
	if err != nil {
		// Root commits have no parent.
		out, err = c.git(ctx, append([]string{"show", "--format=", c.SHA}, c.args()...)...)
		if err != nil {
			return "", fmt.Errorf("git show %s: %w", c.SHA, err)
		}
	}
	return FilterExcluded(out, c.Exclude), nil
}

// ReadFile returns path as recorded in the commit.
func (c Commit) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if c.SHA == "" {
		return nil, errors.New("commit: no revision given")
	}
	return c.show(ctx, c.SHA+":"+path)
}

// Range is the combined diff for a revision range such as main..HEAD.
type Range struct {
	Options
	Spec string
	// MergeBase turns a..b into a...b so only the right side's changes count.
	MergeBase bool
}

func (r Range) Diff(ctx context.Context) (string, error) {
	if r.Spec == "" {
		return "", errors.New("range: no revision range given")
	}
	spec := r.Spec
	if r.MergeBase && strings.Contains(spec, "..") && !strings.Contains(spec, "...") {
		spec = strings.Replace(spec, "..", "...", 1)
	}
	out, err := r.git(ctx, append([]string{"diff", spec}, r.args()...)...)
	if err != nil {
		return "", fmt.Errorf("git diff %s: %w", r.Spec, err)
	}
	return FilterExcluded(out, r.Exclude), nil
}

// ReadFile returns path at the right-hand revision of the range. A spec
// without ".." compares against the working tree, so the file is read from
// disk.
func (r Range) ReadFile(ctx context.Context, path string) ([]byte, error) {
	rev, ok := r.newRevision()
	if !ok {
		return r.readWorktree(ctx, path)
	}
	return r.show(ctx, rev+":"+path)
}

// newRevision returns the right-hand side of a..b or a...b. An omitted
// right side means HEAD.
func (r Range) newRevision() (string, bool) {
	i := strings.Index(r.Spec, "..")
	if i < 0 {
		return "", false
	}
	rev := strings.TrimPrefix(r.Spec[i+2:], ".")
	if rev == "" {
		rev = "HEAD"
	}
	return rev, true
}

// Reader reads a ready-made diff, typically from stdin.
type Reader struct {
	R       io.Reader
	Exclude []string

	diff string
}

func (r *Reader) Diff(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r.R)
	if err != nil {
		return "", fmt.Errorf("reading diff: %w", err)
	}
	r.diff = FilterExcluded(string(data), r.Exclude)
	return r.diff, nil
}

// ReadFile returns a file the diff creates, rebuilt from its patch. A bare
// diff has no base revision, so modified files report ErrNoContents.
func (r *Reader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return createdContents(r.diff, path)
}

// Meta collects repository metadata. Missing HEAD (a fresh repository) is
// not an error.
func (o Options) Meta(ctx context.Context) (RepoMeta, error) {
	root, err := o.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, _ := o.git(ctx, "rev-parse", "HEAD")
	branch, _ := o.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

func (o Options) show(ctx context.Context, object string) ([]byte, error) {
	out, err := o.git(ctx, "show", object)
	if err != nil {
		return nil, fmt.Errorf("git show %s: %w", object, err)
	}
	return []byte(out), nil
}

// readWorktree reads path relative to the repository root, which is what
// diff headers are relative to.
func (o Options) readWorktree(ctx context.Context, path string) ([]byte, error) {
	root, err := o.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("locating repository root: %w", err)
	}
	return os.ReadFile(filepath.Join(strings.TrimSpace(root), path))
}

func (o Options) args() []string {
	var args []string
	if o.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", o.ContextLines))
	}
	args = append(args, "--")
	for _, p := range o.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	return args
}

func (o Options) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = o.Dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
