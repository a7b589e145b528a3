package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
)

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("+1 555 0100\r\n12345\nlast"), &out)
	ctx := context.Background()

	for _, want := range []string{"+1 555 0100", "12345", "last"} {
		got, err := p.Prompt(ctx, "Q")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Prompt() = %q, want %q", got, want)
		}
	}
	if _, err := p.Secret(ctx, "Q"); !errors.Is(err, ErrCanceled) {
		t.Errorf("Secret() at EOF error = %v, want ErrCanceled", err)
	}
	if out.String() != "Q: Q: Q: Q: " {
		t.Errorf("labels written = %q", out.String())
	}
}

func TestLinePrompter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewLinePrompter(strings.NewReader("x\n"), &bytes.Buffer{})
	if _, err := p.Prompt(ctx, "Q"); !errors.Is(err, context.Canceled) {
		t.Errorf("Prompt() error = %v, want context.Canceled", err)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"no\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"maybe\nn\n", true, false},
	}
	for _, tt := range tests {
		p := NewLinePrompter(strings.NewReader(tt.input), &bytes.Buffer{})
		got, err := Confirm(context.Background(), p, "Store it?", tt.def)
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q, def=%v) = %v, want %v", tt.input, tt.def, got, tt.want)
		}
	}
}

func TestNewPrompter_NonTerminal(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	if _, ok := p.(*LinePrompter); !ok {
		t.Errorf("NewPrompter() = %T, want *LinePrompter for piped input", p)
	}
}

func TestPromptModel(t *testing.T) {
	m := newPromptModel("Password", true)
	m.input.SetValue("hunter2")

	next, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter must quit the prompt")
	}
	done := next.(promptModel)
	if !done.done || done.canceled {
		t.Fatalf("state after enter = done:%v canceled:%v", done.done, done.canceled)
	}
	view := ansi.Strip(done.render())
	if strings.Contains(view, "hunter2") || !strings.Contains(view, "•••••••") {
		t.Errorf("secret must be masked in the final view, got %q", view)
	}

	next, _ = newPromptModel("Phone", false).Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if !next.(promptModel).canceled {
		t.Error("esc must cancel the prompt")
	}
}
