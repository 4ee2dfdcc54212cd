// Package tui implements the interactive profile picker shown by
// "hubwrap profiles --pick".
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/profile"
)

// KeyMap defines the picker's key bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the standard picker bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// PickerModel is the bubbletea model for profile selection.
type PickerModel struct {
	options []profile.Option
	cursor  int
	keys    KeyMap
	styles  Styles

	// Choice is the selected profile key, set when the user confirms.
	Choice string
	// Canceled is true when the user quit without selecting.
	Canceled bool
}

// NewPicker creates a picker over the given options. The cursor starts on the
// default entry.
func NewPicker(options []profile.Option, theme string) PickerModel {
	cursor := 0
	for i, opt := range options {
		if opt.Default {
			cursor = i
			break
		}
	}
	return PickerModel{
		options: options,
		cursor:  cursor,
		keys:    DefaultKeyMap(),
		styles:  NewStyles(theme),
	}
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Select):
		if len(m.options) > 0 {
			m.Choice = m.options[m.cursor].Key
		}
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Quit):
		m.Canceled = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m PickerModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Select a profile"))
	b.WriteString("\n")

	for i, opt := range m.options {
		cursor := "  "
		style := m.styles.Normal
		if i == m.cursor {
			cursor = "> "
			style = m.styles.Selected
		}

		label := opt.DisplayName
		if label == "" {
			label = opt.Key
		}
		line := cursor + style.Render(label)
		if opt.Default {
			line += " " + m.styles.Marker.Render("(default)")
		}
		b.WriteString(line)
		b.WriteString("\n")

		if opt.Description != "" {
			b.WriteString("    " + m.styles.Description.Render(opt.Description))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.styles.Help.Render("↑/↓ move · enter select · esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// Pick runs the picker and returns the chosen profile key. Canceling returns
// an error.
func Pick(options []profile.Option, theme string) (string, error) {
	if len(options) == 0 {
		return "", errors.NewProfileError("nothing to pick", errors.ErrEmptyCatalog)
	}

	final, err := tea.NewProgram(NewPicker(options, theme)).Run()
	if err != nil {
		return "", fmt.Errorf("profile picker failed: %w", err)
	}

	m, ok := final.(PickerModel)
	if !ok {
		return "", fmt.Errorf("unexpected picker model type %T", final)
	}
	if m.Canceled || m.Choice == "" {
		return "", errors.New("profile selection canceled")
	}
	return m.Choice, nil
}
