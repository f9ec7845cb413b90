package tui

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Spinner animates a message on a terminal while a blocking operation runs.
// It implements io.Writer so log lines can be printed above the animation.
type Spinner struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

type spinnerStopMsg struct{}

type spinnerMessageMsg string

type spinnerModel struct {
	spinner  spinner.Model
	message  string
	stopping bool
}

func newSpinnerModel(message string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return spinnerModel{spinner: s, message: message}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerStopMsg:
		m.stopping = true
		return m, tea.Quit
	case spinnerMessageMsg:
		m.message = string(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.stopping {
		return ""
	}
	return m.spinner.View() + " " + MessageStyle.Render(m.message)
}

// StartSpinner renders message with an animated spinner on out until Stop is called.
// The spinner never reads input and leaves signal handling to the caller.
func StartSpinner(out io.Writer, message string) *Spinner {
	s := &Spinner{
		program: tea.NewProgram(
			newSpinnerModel(message),
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		_, _ = s.program.Run()
	}()
	return s
}

// SetMessage replaces the text next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.program.Send(spinnerMessageMsg(message))
}

// Write prints p above the spinner, one line per newline-terminated line.
func (s *Spinner) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		s.program.Println(line)
	}
	return len(p), nil
}

// Suspend hands the terminal back while fn runs, e.g. for a confirmation prompt.
func (s *Spinner) Suspend(fn func() error) error {
	if err := s.program.ReleaseTerminal(); err != nil {
		return fn()
	}
	defer func() { _ = s.program.RestoreTerminal() }()
	return fn()
}

// Stop clears the spinner and waits for the renderer to exit. Safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.program.Send(spinnerStopMsg{})
		<-s.done
	})
}
