package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moodlog/internal/capture"
	"github.com/julianstephens/moodlog/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateHome:
		content = m.homeModel.View()
	case StateRecords:
		content = docStyle.Render(m.recordsModel.View())
	case StateEditTimes:
		content = m.viewForm("Recording times")
	case StateSelectMood:
		content = m.viewForm("Mood")
	case StateCapture:
		content = m.viewCapture()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatusBar(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Home", "Records"} {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewForm(title string) string {
	parts := []string{activeTabStyle.Render(title), "", m.form.View()}
	if m.formError != "" {
		parts = append(parts, dangerStyle.Render(m.formError))
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewCapture() string {
	flow := m.app.Capture
	var body string
	switch flow.State() {
	case capture.StateLocating:
		body = m.spinner.View() + " Getting your location..."
	case capture.StateRecording:
		min, max := flow.Limits()
		elapsed := flow.Elapsed().Truncate(time.Second)
		if elapsed > max {
			elapsed = max
		}
		hint := fmt.Sprintf("enter to stop (from %s)", min)
		if !flow.CanStop() {
			hint = fmt.Sprintf("keep going, at least %s", min)
		}
		body = lipgloss.JoinVertical(lipgloss.Center,
			recordingStyle.Render(fmt.Sprintf("● REC %s / %s", elapsed, max)),
			fmt.Sprintf("%s  mood %d  %s camera", models.SlotID(flow.Slot()), flow.Mood(), flow.Facing()),
			warningStyle.Render(hint),
		)
	default:
		body = m.spinner.View() + " Saving..."
	}
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height-4, lipgloss.Center, lipgloss.Center, body)
	}
	return body
}

// viewStatusBar shows upload progress, the latest notice or a message.
func (m Model) viewStatusBar() string {
	switch {
	case m.uploadStatus.Busy:
		return statusBarStyle.Render(m.spinner.View() + " " + m.uploadStatus.Message)
	case m.notice != nil:
		style := dangerStyle
		if m.notice.Success {
			style = successStyle
		}
		return statusBarStyle.Render(style.Render(m.notice.Title) + " " + m.notice.Message)
	case m.message != "":
		return statusBarStyle.Render(m.message)
	default:
		return ""
	}
}
