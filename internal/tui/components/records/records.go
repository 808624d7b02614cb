package records

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
)

// RetryMsg asks the parent to re-send failed uploads.
type RetryMsg struct{}

type Item struct {
	Record models.Record
}

func (i Item) Title() string {
	var mark string
	switch i.Record.Status {
	case constants.RecordStatusUploaded:
		mark = "✓"
	case constants.RecordStatusFailed:
		mark = "✗"
	default:
		mark = "…"
	}
	return fmt.Sprintf("%s %s  %s  mood %d",
		mark, i.Record.CreatedAt.Local().Format("Jan 02 15:04"), models.SlotID(i.Record.Slot), i.Record.MoodScore)
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%ds | %s", i.Record.DurationSeconds, i.Record.Status)
	switch i.Record.Status {
	case constants.RecordStatusUploaded:
		desc += " | #" + i.Record.RemoteID
	case constants.RecordStatusFailed:
		desc += " | retry with 'r'"
	}
	return desc
}

func (i Item) FilterValue() string { return i.Record.ID }

type KeyMap struct {
	Retry key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry failed"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(records []models.Record, width, height int) Model {
	l := list.New(items(records), list.NewDefaultDelegate(), width, height)
	l.Title = "Records"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Retry}
	}
	return Model{list: l, keys: keys}
}

func items(records []models.Record) []list.Item {
	out := make([]list.Item, len(records))
	for i, r := range records {
		out[i] = Item{Record: r}
	}
	return out
}

func (m *Model) SetRecords(records []models.Record) {
	m.list.SetItems(items(records))
}

// Failed counts the listed records whose upload failed.
func (m Model) Failed() int {
	n := 0
	for _, it := range m.list.Items() {
		if i, ok := it.(Item); ok && i.Record.Status == constants.RecordStatusFailed {
			n++
		}
	}
	return n
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Retry) {
		if m.Failed() > 0 {
			return m, func() tea.Msg { return RetryMsg{} }
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No recordings yet."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
