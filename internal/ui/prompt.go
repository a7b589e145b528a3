// Package ui asks the interactive questions of login and first-run setup.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

// ErrCanceled is returned when the user aborts a prompt.
var ErrCanceled = errors.New("prompt canceled")

// Prompter reads one answer per question.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
	Secret(ctx context.Context, label string) (string, error)
}

// NewPrompter returns a TermPrompter when in and out are both terminals
// and a LinePrompter otherwise, so piped input keeps working.
func NewPrompter(in io.Reader, out io.Writer) Prompter {
	if isTerminal(in) && isTerminal(out) {
		return &TermPrompter{In: in, Out: out}
	}
	return NewLinePrompter(in, out)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TermPrompter runs a single-line bubbletea text input per question.
type TermPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p *TermPrompter) Prompt(ctx context.Context, label string) (string, error) {
	return p.run(ctx, newPromptModel(label, false))
}

func (p *TermPrompter) Secret(ctx context.Context, label string) (string, error) {
	return p.run(ctx, newPromptModel(label, true))
}

func (p *TermPrompter) run(ctx context.Context, m promptModel) (string, error) {
	prog := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	final, err := prog.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", m.label, err)
	}
	res := final.(promptModel)
	if res.canceled {
		return "", ErrCanceled
	}
	return res.input.Value(), nil
}

type promptModel struct {
	label    string
	secret   bool
	input    textinput.Model
	done     bool
	canceled bool
}

func newPromptModel(label string, secret bool) promptModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(label+":") + " "
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return promptModel{label: label, secret: secret, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return m.input.Focus()
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "enter":
			m.done = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.canceled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() tea.View {
	return tea.NewView(m.render())
}

// render leaves the answered question on screen, masked for secrets.
func (m promptModel) render() string {
	switch {
	case m.canceled:
		return ""
	case m.done:
		answer := m.input.Value()
		if m.secret {
			answer = strings.Repeat("•", len([]rune(answer)))
		}
		return promptStyle.Render(m.label+":") + " " + doneStyle.Render(answer) + "\n"
	}
	return m.input.View()
}

// LinePrompter reads newline-terminated answers. Secrets are not masked.
type LinePrompter struct {
	r   *bufio.Reader
	out io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{r: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Prompt(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("read %q: %w", label, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *LinePrompter) Secret(ctx context.Context, label string) (string, error) {
	return p.Prompt(ctx, label)
}

// Confirm asks a yes/no question. An empty answer picks def.
func Confirm(ctx context.Context, p Prompter, label string, def bool) (bool, error) {
	hint := " [y/N]"
	if def {
		hint = " [Y/n]"
	}
	for {
		ans, err := p.Prompt(ctx, label+hint)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(ans)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}
