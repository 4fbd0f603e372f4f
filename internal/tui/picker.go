// Package tui provides the terminal prompt that resolves an ambiguous
// keyword to one section.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/checkgest/internal/scope"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model for the candidate list.
type Model struct {
	keyword    string
	candidates []scope.Candidate
	selected   int
	chosen     bool
	cancelled  bool
}

// NewModel creates a picker over candidates in document order.
func NewModel(keyword string, candidates []scope.Candidate) *Model {
	return &Model{keyword: keyword, candidates: candidates}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.candidates)-1 {
			m.selected++
		}
	case "enter":
		if len(m.candidates) > 0 {
			m.chosen = true
			return m, tea.Quit
		}
	case "esc", "q", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the list.
func (m *Model) View() string {
	if m.chosen || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d sections match %q", len(m.candidates), m.keyword)))
	b.WriteString("\n\n")

	for i, c := range m.candidates {
		cursor := "  "
		style := itemStyle
		if i == m.selected {
			cursor = "> "
			style = selectedStyle
		}
		indent := strings.Repeat("  ", int(c.Level))
		b.WriteString(cursor + indent + style.Render(c.Text) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("[j/k] Navigate  [Enter] Select  [Esc] Cancel"))
	b.WriteString("\n")
	return b.String()
}

// Choice returns the chosen candidate's fragment index.
func (m *Model) Choice() (int, bool) {
	if !m.chosen || m.cancelled || len(m.candidates) == 0 {
		return 0, false
	}
	return m.candidates[m.selected].Index, true
}

// Picker asks the user to pick a candidate. It implements
// scope.Disambiguator.
type Picker struct {
	in  io.Reader
	out io.Writer
}

// NewPicker creates a picker on in and out. Nil values use the process's
// terminal.
func NewPicker(in io.Reader, out io.Writer) *Picker {
	return &Picker{in: in, out: out}
}

// Choose runs the prompt until the user picks, cancels, or ctx ends.
func (p *Picker) Choose(ctx context.Context, keyword string, candidates []scope.Candidate) (int, bool) {
	if len(candidates) == 0 || ctx.Err() != nil {
		return 0, false
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}

	final, err := tea.NewProgram(NewModel(keyword, candidates), opts...).Run()
	if err != nil {
		return 0, false
	}
	m, ok := final.(*Model)
	if !ok {
		return 0, false
	}
	return m.Choice()
}
