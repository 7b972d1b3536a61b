package prompt

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

var ErrCanceled = errors.New("prompt: canceled")

// fieldModel is a single-line editor that only finishes on an accepted
// answer.
type fieldModel struct {
	question string
	accept   func(string) error
	numeric  bool

	buf      string
	message  string
	done     bool
	canceled bool
}

func (m fieldModel) Init() tea.Cmd { return nil }

func (m fieldModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.canceled = true
		return m, tea.Quit
	case tea.KeyEnter:
		if err := m.accept(m.buf); err != nil {
			m.message = err.Error()
			return m, nil
		}
		m.done = true
		return m, tea.Quit
	case tea.KeyBackspace:
		if len(m.buf) > 0 {
			m.buf = m.buf[:len(m.buf)-1]
		}
	case tea.KeyRunes:
		for _, c := range key.Runes {
			if !m.numeric || strings.ContainsRune("0123456789.-+eE", c) {
				m.buf += string(c)
			}
		}
	}
	m.message = ""
	return m, nil
}

func (m fieldModel) View() string {
	if m.done {
		return cyan.Render(m.question) + " " + white.Render(m.buf) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(cyan.Render(m.question))
	sb.WriteString(" ")
	sb.WriteString(white.Render(m.buf + "▋"))
	sb.WriteString("\n")
	if m.message != "" {
		sb.WriteString(yellow.Render(m.message))
		sb.WriteString("\n")
	}
	sb.WriteString(dim.Render("enter to accept · esc to cancel"))
	return sb.String()
}

// TUI asks questions with an interactive terminal editor.
type TUI struct {
	Options []tea.ProgramOption
}

func (t TUI) run(m fieldModel) (string, error) {
	final, err := tea.NewProgram(m, t.Options...).Run()
	if err != nil {
		return "", errors.Wrap(err, "prompt: terminal")
	}
	fm := final.(fieldModel)
	if fm.canceled || !fm.done {
		return "", ErrCanceled
	}
	return strings.TrimSpace(fm.buf), nil
}

func (t TUI) Float(question string, r Range) (float64, error) {
	answer, err := t.run(fieldModel{
		question: question,
		numeric:  true,
		accept: func(s string) error {
			_, err := r.ParseFloat(s)
			return err
		},
	})
	if err != nil {
		return 0, err
	}
	return r.ParseFloat(answer)
}

func (t TUI) Path(question string) (string, error) {
	return t.run(fieldModel{question: question, accept: CheckPath})
}
