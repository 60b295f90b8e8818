package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dshills/diffgate/internal/review"
)

var _ review.ScopeSelector = (*Selector)(nil)

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_Hotkeys(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want review.Scope
	}{
		{runes("a"), review.ScopeAll},
		{runes("p"), review.ScopePrefix},
		{runes("s"), review.ScopeSkip},
		{tea.KeyMsg{Type: tea.KeyEsc}, review.ScopeSkip},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			m, cmd := press(t, NewModel(8, 5), tt.key)
			got, ok := m.Chosen()
			if !ok {
				t.Fatal("expected a choice")
			}
			if got != tt.want {
				t.Errorf("scope = %v, want %v", got, tt.want)
			}
			if cmd == nil {
				t.Error("expected quit command")
			}
		})
	}
}

func TestModel_CursorNavigation(t *testing.T) {
	m := NewModel(8, 5)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0 at top", m.cursor)
	}

	m, _ = press(t, m, runes("j"), tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want clamped at 2", m.cursor)
	}

	m, _ = press(t, m, runes("k"), tea.KeyMsg{Type: tea.KeyEnter})
	got, ok := m.Chosen()
	if !ok || got != review.ScopePrefix {
		t.Errorf("Chosen = %v, %v; want prefix, true", got, ok)
	}
}

func TestModel_Abort(t *testing.T) {
	m, cmd := press(t, NewModel(8, 5), tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.aborted {
		t.Error("expected aborted")
	}
	if _, ok := m.Chosen(); ok {
		t.Error("abort should not count as a choice")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
}

func TestModel_IgnoresOtherMessages(t *testing.T) {
	m := NewModel(8, 5)
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if cmd != nil {
		t.Error("unexpected command")
	}
	if _, ok := next.(Model).Chosen(); ok {
		t.Error("unexpected choice")
	}
}

func TestModel_View(t *testing.T) {
	m := NewModel(12, 5)
	view := m.View()
	for _, want := range []string{"12 segments", "Review all 12 segments", "first 5 segments", "Skip"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = press(t, m, runes("a"))
	if m.View() != "" {
		t.Error("view should be blank once a choice is made")
	}
}

func TestSelector_SelectScope(t *testing.T) {
	var out bytes.Buffer
	s := &Selector{In: strings.NewReader("p"), Out: &out}

	got, err := s.SelectScope(context.Background(), 9, 5)
	if err != nil {
		t.Fatalf("SelectScope error: %v", err)
	}
	if got != review.ScopePrefix {
		t.Errorf("scope = %v, want prefix", got)
	}
}

func TestAttended_CI(t *testing.T) {
	getenv := func(k string) string {
		if k == "CI" {
			return "true"
		}
		return ""
	}
	if Attended(getenv) {
		t.Error("CI runs are never attended")
	}
}

func TestIsTerminal_Nil(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("nil file is not a terminal")
	}
}
