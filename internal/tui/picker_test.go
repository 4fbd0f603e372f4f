package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/checkgest/internal/doctree"
	"github.com/dgallion1/checkgest/internal/scope"
)

func candidates() []scope.Candidate {
	return []scope.Candidate{
		{Text: "1. Setup servers", Level: doctree.LevelSection, Index: 2},
		{Text: "2. Setup network", Level: doctree.LevelSection, Index: 4},
		{Text: "Setup checklist", Level: doctree.LevelItem, Index: 7},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelNavigation(t *testing.T) {
	m := NewModel("setup", candidates())
	assert.Nil(t, m.Init())

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.selected, "stays at the top")

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(runes("j"))
	assert.Equal(t, 2, m.selected)
	m.Update(runes("j"))
	assert.Equal(t, 2, m.selected, "stays at the bottom")

	m.Update(runes("k"))
	assert.Equal(t, 1, m.selected)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	idx, ok := m.Choice()
	require.True(t, ok)
	assert.Equal(t, 4, idx, "choice is the fragment index")
}

func TestModelCancel(t *testing.T) {
	keys := map[string]tea.KeyMsg{
		"esc":    {Type: tea.KeyEsc},
		"q":      runes("q"),
		"ctrl+c": {Type: tea.KeyCtrlC},
	}
	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			m := NewModel("setup", candidates())
			_, cmd := m.Update(key)
			require.NotNil(t, cmd)
			_, ok := m.Choice()
			assert.False(t, ok)
		})
	}
}

func TestModelIgnoresOtherMessages(t *testing.T) {
	m := NewModel("setup", candidates())
	_, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, cmd)
	_, ok := m.Choice()
	assert.False(t, ok, "nothing chosen yet")
}

func TestModelView(t *testing.T) {
	m := NewModel("setup", candidates())
	m.Update(tea.KeyMsg{Type: tea.KeyDown})

	view := m.View()
	assert.Contains(t, view, `3 sections match "setup"`)
	assert.Contains(t, view, "> ")
	assert.Contains(t, view, "2. Setup network")
	assert.Contains(t, view, "[Esc] Cancel")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.View())
}

func TestPickerHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPicker(strings.NewReader(""), &bytes.Buffer{})
	_, ok := p.Choose(ctx, "setup", candidates())
	assert.False(t, ok)

	_, ok = p.Choose(context.Background(), "setup", nil)
	assert.False(t, ok)
}

var _ scope.Disambiguator = (*Picker)(nil)
