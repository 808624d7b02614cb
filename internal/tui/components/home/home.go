// Package home renders the single-action home screen.
package home

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/slots"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(1, 2).
			Align(lipgloss.Center)

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Padding(1, 0).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Width(40).
			Align(lipgloss.Center)

	disabledButtonStyle = buttonStyle.
				Foreground(lipgloss.Color("240")).
				BorderForeground(lipgloss.Color("238"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type Model struct {
	Snapshot *slots.Snapshot
	Err      error
	// Locked is set when the times were already saved today.
	Locked bool
	Facing models.Facing
	width  int
	height int
}

func New() Model {
	return Model{Facing: models.FacingFront}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetSnapshot replaces the evaluated state; a non-nil err keeps the last
// snapshot on screen with the error beneath it.
func (m *Model) SetSnapshot(snap slots.Snapshot, err error) {
	m.Err = err
	if err == nil {
		m.Snapshot = &snap
	}
}

// Action is the current button state, or the configure action before the
// first evaluation.
func (m Model) Action() slots.Action {
	if m.Snapshot == nil {
		return slots.Action{Kind: slots.ActionConfigure, Label: "set recording times", Enabled: true}
	}
	return m.Snapshot.Action
}

func (m Model) View() string {
	if m.Snapshot == nil {
		content := titleStyle.Render("moodlog")
		if m.Err != nil {
			content = lipgloss.JoinVertical(lipgloss.Center, content, hintStyle.Render(errors.UserMessage(m.Err)))
		}
		return m.place(content)
	}

	snap := m.Snapshot
	action := snap.Action
	button := disabledButtonStyle
	if action.Enabled {
		button = buttonStyle
	}

	parts := []string{
		titleStyle.Render(fmt.Sprintf("Now: %s", snap.Now.Format(constants.TimeFormat))),
		m.viewSlots(),
		button.Render(action.Label),
	}
	if action.Kind == slots.ActionStartCapture {
		parts = append(parts, hintStyle.Render(fmt.Sprintf("camera: %s (c to switch)", m.Facing)))
	}
	if err := action.Err(); err != nil {
		parts = append(parts, hintStyle.Render(errors.UserMessage(err)))
	}
	if m.Err != nil {
		parts = append(parts, hintStyle.Render(errors.UserMessage(m.Err)))
	}
	if len(snap.Slots) > 0 && m.Locked {
		parts = append(parts, hintStyle.Render("times can be changed again tomorrow"))
	}
	return m.place(lipgloss.JoinVertical(lipgloss.Center, parts...))
}

func (m Model) viewSlots() string {
	snap := m.Snapshot
	if len(snap.Slots) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range snap.Slots {
		mark := "○"
		switch {
		case s.Completed:
			mark = "●"
		case s.Actionable(snap.Now):
			mark = "◉"
		case !snap.Now.Before(s.At):
			mark = "✗"
		}
		if i > 0 {
			b.WriteString("   ")
		}
		fmt.Fprintf(&b, "%s %s", mark, s.At.Format(constants.TimeFormat))
	}
	return slotStyle.Render(b.String())
}

func (m Model) place(content string) string {
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	return content
}
