package cmd

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tmuxwire/tmuxwire/internal/engine"
	"github.com/tmuxwire/tmuxwire/internal/protocol"
)

func lastLine(m consoleModel) string {
	if len(m.lines) == 0 {
		return ""
	}
	return m.lines[len(m.lines)-1]
}

func TestConsoleTranscript(t *testing.T) {
	m := newConsoleModel(nil)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(consoleModel)
	if !m.ready {
		t.Fatal("model not ready after window size message")
	}

	next, cmd := m.Update(consoleEvent(protocol.Classify("%window-add @3")))
	m = next.(consoleModel)
	if cmd == nil {
		t.Error("notification should re-arm the listener")
	}
	if !strings.Contains(lastLine(m), "@3") {
		t.Errorf("transcript missing notification: %q", lastLine(m))
	}

	m.input.SetValue("list-sessions")
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(consoleModel)
	if cmd == nil {
		t.Error("enter should submit the command")
	}
	if !strings.Contains(lastLine(m), "list-sessions") {
		t.Errorf("transcript missing echo: %q", lastLine(m))
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared, still %q", m.input.Value())
	}

	res := engine.NewResult([]string{"list-sessions"})
	res.Stdout = []string{"main: 1 windows (created Thu)"}
	res.Status = engine.StatusOK
	next, _ = m.Update(consoleReply{res: res})
	m = next.(consoleModel)
	if !strings.Contains(lastLine(m), "main: 1 windows") {
		t.Errorf("transcript missing reply: %q", lastLine(m))
	}
}

func TestConsoleIgnoresEmptySubmit(t *testing.T) {
	m := newConsoleModel(nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(consoleModel)

	before := len(m.lines)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(consoleModel)
	if len(m.lines) != before {
		t.Errorf("empty submit changed the transcript: %v", m.lines)
	}
}

func TestConsoleRendersErrors(t *testing.T) {
	m := newConsoleModel(nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(consoleModel)

	next, _ = m.Update(consoleReply{err: errors.New("connection lost")})
	m = next.(consoleModel)
	if !strings.Contains(lastLine(m), "connection lost") {
		t.Errorf("transcript missing error: %q", lastLine(m))
	}

	res := engine.NewResult([]string{"kill-session"})
	res.Status = engine.StatusOK
	next, _ = m.Update(consoleReply{res: res})
	m = next.(consoleModel)
	if !strings.Contains(lastLine(m), "ok") {
		t.Errorf("silent success should still print something: %q", lastLine(m))
	}
}

func TestConsoleQuitKeys(t *testing.T) {
	m := newConsoleModel(nil)
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		if _, cmd := m.Update(tea.KeyMsg{Type: key}); cmd == nil {
			t.Errorf("%v should quit", key)
		}
	}
}
