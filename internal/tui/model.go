package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlog/internal/app"
	"github.com/julianstephens/moodlog/internal/tui/components/home"
	"github.com/julianstephens/moodlog/internal/tui/components/records"
	"github.com/julianstephens/moodlog/internal/upload"
)

type SessionState int

const (
	StateHome SessionState = iota
	StateRecords
	StateEditTimes
	StateSelectMood
	StateCapture
)

type TimesFormModel struct {
	Times [3]string
}

type MoodFormModel struct {
	Score int
}

type Model struct {
	app   *app.App
	ctx   context.Context
	state SessionState
	keys  KeyMap
	help  help.Model

	homeModel    home.Model
	recordsModel records.Model
	spinner      spinner.Model

	form      *huh.Form
	timesForm *TimesFormModel
	moodForm  *MoodFormModel
	formError string

	// captureCtx spans one capture; cancelling it discards the recording.
	captureCtx    context.Context
	captureCancel context.CancelFunc

	uploadStatus upload.Status
	statusCh     <-chan upload.Status
	unsubscribe  func()
	notices      chan upload.Notice
	notice       *upload.Notice

	// pollGen invalidates ticks scheduled before the last focus change.
	pollGen  int
	focused  bool
	message  string
	quitting bool
	width    int
	height   int
}

// NewModel builds the TUI around a. The manager's presenter is pointed at the
// model for the lifetime of the program.
func NewModel(a *app.App) Model {
	statusCh, unsubscribe := a.Uploads.Subscribe()
	notices := make(chan upload.Notice, 4)
	a.Uploads.SetPresenter(upload.PresenterFunc(func(n upload.Notice) {
		select {
		case notices <- n:
		default:
			// The model is not draining; keep the newest.
			select {
			case <-notices:
			default:
			}
			select {
			case notices <- n:
			default:
			}
		}
	}))

	hm := home.New()
	hm.Facing = a.Capture.Facing()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		app:          a,
		ctx:          context.Background(),
		state:        StateHome,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		homeModel:    hm,
		recordsModel: records.New(nil, 0, 0),
		spinner:      sp,
		statusCh:     statusCh,
		unsubscribe:  unsubscribe,
		notices:      notices,
		focused:      a.Lifecycle.Foreground(),
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateHome:
		keys = append(keys, m.keys.Action, m.keys.Times, m.keys.Camera)
	case StateCapture:
		keys = []key.Binding{m.keys.Stop, m.keys.Abort}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp()}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.evaluate(m.pollGen),
		m.tick(m.pollGen),
		m.loadRecords(),
		waitForStatus(m.statusCh),
		waitForNotice(m.notices),
		m.scheduleReminders(),
		m.spinner.Tick,
	}
	if m.app.Config.Upload.RetryOnLaunch {
		cmds = append(cmds, m.retryFailed())
	}
	return tea.Batch(cmds...)
}
