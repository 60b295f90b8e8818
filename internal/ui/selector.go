// Package ui holds the interactive pieces of diffgate: the scope prompt shown
// before a large attended review and terminal detection.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dshills/diffgate/internal/review"
	"github.com/mattn/go-isatty"
)

// ErrAborted is returned when the operator interrupts the prompt.
var ErrAborted = errors.New("review aborted by user")

type choice struct {
	scope review.Scope
	label string
}

// Model is the Bubble Tea model for the scope prompt.
type Model struct {
	segments int
	prefix   int
	choices  []choice
	cursor   int

	done    bool
	aborted bool
	chosen  review.Scope
}

// NewModel creates a prompt for a diff split into segments, offering to review
// only the first prefix of them.
func NewModel(segments, prefix int) Model {
	return Model{
		segments: segments,
		prefix:   prefix,
		choices: []choice{
			{review.ScopeAll, fmt.Sprintf("Review all %d segments", segments)},
			{review.ScopePrefix, fmt.Sprintf("Review the first %d segments", prefix)},
			{review.ScopeSkip, "Skip the AI review"},
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, keys.Abort):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(km, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, keys.Down):
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case key.Matches(km, keys.Choose):
		return m.pick(m.choices[m.cursor].scope)
	case key.Matches(km, keys.All):
		return m.pick(review.ScopeAll)
	case key.Matches(km, keys.Prefix):
		return m.pick(review.ScopePrefix)
	case key.Matches(km, keys.Skip):
		return m.pick(review.ScopeSkip)
	}
	return m, nil
}

func (m Model) pick(s review.Scope) (tea.Model, tea.Cmd) {
	m.chosen = s
	m.done = true
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("This diff produced %d segments.", m.segments)))
	b.WriteString("\n\n")
	for i, c := range m.choices {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + c.label))
		} else {
			b.WriteString(itemStyle.Render(c.label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter choose • a all • p first segments • s/esc skip • ctrl+c abort"))
	b.WriteString("\n")
	return b.String()
}

// Chosen returns the selected scope and whether a choice was made.
func (m Model) Chosen() (review.Scope, bool) {
	return m.chosen, m.done
}

// Selector runs the prompt on a terminal. It implements review.ScopeSelector.
type Selector struct {
	In  io.Reader
	Out io.Writer
}

// SelectScope shows the prompt and blocks until the operator answers.
func (s *Selector) SelectScope(ctx context.Context, segments, prefix int) (review.Scope, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithoutSignalHandler()}
	if s.In != nil {
		opts = append(opts, tea.WithInput(s.In))
	}
	if s.Out != nil {
		opts = append(opts, tea.WithOutput(s.Out))
	}

	final, err := tea.NewProgram(NewModel(segments, prefix), opts...).Run()
	if err != nil {
		return review.ScopeSkip, fmt.Errorf("running scope prompt: %w", err)
	}
	m, ok := final.(Model)
	if !ok || m.aborted {
		return review.ScopeSkip, ErrAborted
	}
	if scope, chosen := m.Chosen(); chosen {
		return scope, nil
	}
	return review.ScopeSkip, ErrAborted
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Attended reports whether a human can answer prompts: both stdin and stderr
// must be terminals and CI must not be set.
func Attended(getenv func(string) string) bool {
	if getenv("CI") != "" {
		return false
	}
	return IsTerminal(os.Stdin) && IsTerminal(os.Stderr)
}
