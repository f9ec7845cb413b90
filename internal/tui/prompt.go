package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrPromptCancelled is returned when the user leaves a prompt with esc or ctrl+c.
var ErrPromptCancelled = errors.New("prompt cancelled")

// ErrNotInteractive is returned when a prompt is requested without a terminal.
var ErrNotInteractive = errors.New("no interactive terminal")

type secretModel struct {
	label     string
	keys      KeyMap
	input     textinput.Model
	submitted bool
	cancelled bool
}

func newSecretModel(label string) secretModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 512
	ti.Width = 40
	ti.Focus()
	return secretModel{label: label, keys: DefaultKeyMap(), input: ti}
}

func (m secretModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m secretModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Submit):
			m.submitted = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reveal):
			if m.input.EchoMode == textinput.EchoPassword {
				m.input.EchoMode = textinput.EchoNormal
			} else {
				m.input.EchoMode = textinput.EchoPassword
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m secretModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return LabelStyle.Render(m.label) + "\n" + m.input.View() + "\n" + HelpStyle.Render(m.keys.HelpText()) + "\n"
}

// PromptSecret asks for a value without echoing it. Input is read from in and
// the prompt is drawn on out.
func PromptSecret(in io.Reader, out io.Writer, label string) (string, error) {
	p := tea.NewProgram(newSecretModel(label), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	m := final.(secretModel)
	if m.cancelled || !m.submitted {
		return "", ErrPromptCancelled
	}
	return m.input.Value(), nil
}

// PromptSecretIfInteractive prompts on the terminal, or returns ErrNotInteractive.
func PromptSecretIfInteractive(label string) (string, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}
	return PromptSecret(os.Stdin, os.Stderr, label)
}
