package tui

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlog/internal/capture"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/slots"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/tui/components/records"
	"github.com/julianstephens/moodlog/internal/upload"
	"github.com/julianstephens/moodlog/internal/utils"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.homeModel.SetSize(msg.Width, msg.Height-4)
		m.recordsModel.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.FocusMsg:
		return m.setFocus(true)
	case tea.BlurMsg:
		return m.setFocus(false)

	case tickMsg:
		if msg.gen != m.pollGen || !m.focused || m.state != StateHome {
			return m, nil
		}
		return m, tea.Batch(m.evaluate(msg.gen), m.tick(msg.gen))

	case snapshotMsg:
		if msg.gen != m.pollGen {
			return m, nil
		}
		m.homeModel.SetSnapshot(msg.snap, msg.err)
		m.homeModel.Locked = msg.locked
		return m, nil

	case recordsMsg:
		if msg.err != nil {
			m.message = errors.UserMessage(msg.err)
			return m, nil
		}
		m.recordsModel.SetRecords(msg.records)
		return m, nil

	case statusMsg:
		if !msg.ok {
			return m, nil
		}
		wasBusy := m.uploadStatus.Busy
		m.uploadStatus = msg.status
		cmds := []tea.Cmd{waitForStatus(m.statusCh)}
		if wasBusy && !msg.status.Busy {
			cmds = append(cmds, m.loadRecords())
		}
		return m, tea.Batch(cmds...)

	case noticeMsg:
		n := upload.Notice(msg)
		m.notice = &n
		return m, tea.Batch(waitForNotice(m.notices), m.loadRecords())

	case remindersMsg:
		if msg.err != nil {
			logErr("Failed to schedule reminders", msg.err)
			m.message = errors.UserMessage(msg.err)
		}
		return m, nil

	case retryMsg:
		if msg.err != nil {
			logErr("Retrying failed uploads", msg.err)
		}
		return m, m.loadRecords()

	case records.RetryMsg:
		m.message = ""
		return m, m.retryFailed()

	case captureStartedMsg:
		return m.handleCaptureStarted(msg)
	case captureDoneMsg:
		return m.handleCaptureDone(msg)
	case captureTickMsg:
		if m.state != StateCapture {
			return m, nil
		}
		return m, captureTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.state {
	case StateEditTimes:
		return m.updateTimesForm(msg)
	case StateSelectMood:
		return m.updateMoodForm(msg)
	case StateCapture:
		return m.updateCapture(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.unsubscribe()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			if m.state == StateHome {
				m.leaveHome(StateRecords)
				return m, m.loadRecords()
			}
			home := m.enterHome()
			return m, home
		}
	}

	switch m.state {
	case StateHome:
		return m.updateHome(msg)
	case StateRecords:
		var cmd tea.Cmd
		m.recordsModel, cmd = m.recordsModel.Update(msg)
		return m, cmd
	}
	return m, nil
}

// setFocus drives the foreground lifecycle: polling and notices run only
// while focused, and focus re-arms reminders.
func (m Model) setFocus(focused bool) (tea.Model, tea.Cmd) {
	if m.focused == focused {
		return m, nil
	}
	m.focused = focused
	m.pollGen++
	m.app.Lifecycle.SetForeground(focused)
	if !focused {
		return m, nil
	}
	if m.state != StateHome {
		return m, m.scheduleReminders()
	}
	return m, tea.Batch(m.evaluate(m.pollGen), m.tick(m.pollGen), m.scheduleReminders())
}

// leaveHome switches to next and ends the home screen's tick chain.
func (m *Model) leaveHome(next SessionState) {
	if m.state == StateHome {
		m.pollGen++
	}
	m.state = next
}

// enterHome shows the home screen and starts a fresh tick chain with an
// immediate evaluation.
func (m *Model) enterHome() tea.Cmd {
	m.state = StateHome
	m.pollGen++
	if !m.focused {
		return nil
	}
	return tea.Batch(m.evaluate(m.pollGen), m.tick(m.pollGen))
}

func (m Model) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.notice = nil

	switch {
	case key.Matches(keyMsg, m.keys.Times):
		return m.openTimesForm()
	case key.Matches(keyMsg, m.keys.Camera):
		facing, err := m.app.Capture.ToggleFacing()
		if err != nil {
			m.message = err.Error()
			return m, nil
		}
		m.homeModel.Facing = facing
		return m, nil
	case key.Matches(keyMsg, m.keys.Action):
		m.message = ""
		switch action := m.homeModel.Action(); action.Kind {
		case slots.ActionConfigure:
			return m.openTimesForm()
		case slots.ActionStartCapture:
			if m.uploadStatus.Busy {
				m.message = capture.ErrUploadBusy.Error()
				return m, nil
			}
			m.moodForm = &MoodFormModel{Score: 3}
			m.form = NewMoodForm(m.moodForm)
			m.leaveHome(StateSelectMood)
			return m, m.form.Init()
		}
	}
	return m, nil
}

func (m Model) openTimesForm() (tea.Model, tea.Cmd) {
	cfg, err := m.app.Store.GetTimeSettings()
	if err != nil {
		m.message = errors.UserMessage(err)
		return m, nil
	}
	if !cfg.CanEdit(utils.DateString(m.app.Now())) {
		m.message = storage.ErrTimesLocked.Error()
		return m, nil
	}
	m.timesForm = &TimesFormModel{}
	for i, t := range cfg.Times {
		if t != nil {
			m.timesForm.Times[i] = t.String()
		}
	}
	m.formError = ""
	m.form = NewTimesForm(m.timesForm)
	m.leaveHome(StateEditTimes)
	return m, m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	return m, cmd
}

func (m Model) updateTimesForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.formError = ""
		home := m.enterHome()
		return m, home
	}

	m, cmd := m.updateForm(msg)
	switch m.form.State {
	case huh.StateCompleted:
		cfg, err := models.ParseTimes(m.timesForm.Times[:])
		if err == nil {
			now := m.app.Now()
			err = storage.SaveTimes(m.app.Store, cfg, utils.DateString(now), false)
		}
		if err != nil {
			// Stay in the form so the user can correct it
			m.formError = errors.UserMessage(err)
			m.form = NewTimesForm(m.timesForm)
			return m, m.form.Init()
		}
		m.formError = ""
		m.message = "Recording times saved."
		home := m.enterHome()
		return m, tea.Batch(cmd, home, m.scheduleReminders())
	case huh.StateAborted:
		m.formError = ""
		home := m.enterHome()
		return m, tea.Batch(cmd, home)
	}
	return m, cmd
}

func (m Model) updateMoodForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		home := m.enterHome()
		return m, home
	}

	m, cmd := m.updateForm(msg)
	switch m.form.State {
	case huh.StateCompleted:
		if err := m.app.Capture.SelectMood(m.moodForm.Score); err != nil {
			m.message = err.Error()
			home := m.enterHome()
			return m, tea.Batch(cmd, home)
		}
		m.state = StateCapture
		m.captureCtx, m.captureCancel = context.WithCancel(m.ctx)
		return m, tea.Batch(cmd, m.startCapture())
	case huh.StateAborted:
		home := m.enterHome()
		return m, tea.Batch(cmd, home)
	}
	return m, cmd
}

func (m Model) updateCapture(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	flow := m.app.Capture
	switch {
	case key.Matches(keyMsg, m.keys.Abort), keyMsg.Type == tea.KeyCtrlC:
		// Start or Wait observes the cancellation and reports back.
		if m.captureCancel != nil {
			m.captureCancel()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Stop):
		err := flow.Stop()
		switch {
		case err == nil:
			m.message = ""
		case stderrors.Is(err, capture.ErrStopTooEarly):
			min, _ := flow.Limits()
			m.message = fmt.Sprintf("Keep going, recordings are at least %s.", min)
		case stderrors.Is(err, capture.ErrNotRecording):
		default:
			m.message = errors.UserMessage(err)
		}
	}
	return m, nil
}

func (m Model) handleCaptureStarted(msg captureStartedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		home := m.endCapture()
		m.message = errors.UserMessage(msg.err)
		if stderrors.Is(msg.err, context.Canceled) {
			m.message = "Recording discarded."
		}
		return m, home
	}
	m.message = ""
	return m, tea.Batch(m.waitCapture(), captureTick())
}

func (m Model) handleCaptureDone(msg captureDoneMsg) (tea.Model, tea.Cmd) {
	home := m.endCapture()
	switch {
	case msg.err == nil:
		m.message = fmt.Sprintf("Recorded %ds for %s.", msg.session.DurationSeconds, models.SlotID(msg.session.Slot))
	case stderrors.Is(msg.err, context.Canceled), stderrors.Is(msg.err, capture.ErrNotRecording):
		m.message = "Recording discarded."
	default:
		m.message = errors.UserMessage(msg.err)
	}
	return m, tea.Batch(home, m.loadRecords())
}

func (m *Model) endCapture() tea.Cmd {
	if m.captureCancel != nil {
		m.captureCancel()
	}
	m.captureCtx, m.captureCancel = nil, nil
	return m.enterHome()
}
