package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/slots"
	"github.com/julianstephens/moodlog/internal/upload"
	"github.com/julianstephens/moodlog/internal/utils"
)

type tickMsg struct{ gen int }

type snapshotMsg struct {
	gen    int
	snap   slots.Snapshot
	locked bool
	err    error
}

type recordsMsg struct {
	records []models.Record
	err     error
}

type statusMsg struct {
	status upload.Status
	ok     bool
}

type noticeMsg upload.Notice

type remindersMsg struct{ err error }

type retryMsg struct {
	res upload.RetryResult
	err error
}

type captureStartedMsg struct{ err error }

type captureDoneMsg struct {
	session models.CaptureSession
	err     error
}

type captureTickMsg struct{}

func (m Model) tick(gen int) tea.Cmd {
	return tea.Tick(constants.PollInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m Model) evaluate(gen int) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		snap, err := a.Evaluate()
		if err != nil {
			return snapshotMsg{gen: gen, err: err}
		}
		cfg, err := a.Store.GetTimeSettings()
		if err != nil {
			return snapshotMsg{gen: gen, snap: snap, err: err}
		}
		return snapshotMsg{gen: gen, snap: snap, locked: !cfg.CanEdit(utils.DateString(snap.Now))}
	}
}

func (m Model) loadRecords() tea.Cmd {
	store := m.app.Store
	return func() tea.Msg {
		recs, err := store.ListRecords("")
		return recordsMsg{records: recs, err: err}
	}
}

func (m Model) scheduleReminders() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return remindersMsg{err: a.ScheduleReminders(ctx)}
	}
}

func (m Model) retryFailed() tea.Cmd {
	uploads, ctx := m.app.Uploads, m.ctx
	return func() tea.Msg {
		res, err := uploads.ResubmitFailed(ctx)
		return retryMsg{res: res, err: err}
	}
}

func (m Model) startCapture() tea.Cmd {
	flow, ctx := m.app.Capture, m.captureCtx
	return func() tea.Msg {
		return captureStartedMsg{err: flow.Start(ctx)}
	}
}

func (m Model) waitCapture() tea.Cmd {
	flow, ctx := m.app.Capture, m.captureCtx
	return func() tea.Msg {
		session, err := flow.Wait(ctx)
		return captureDoneMsg{session: session, err: err}
	}
}

func captureTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return captureTickMsg{}
	})
}

func waitForStatus(ch <-chan upload.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		return statusMsg{status: st, ok: ok}
	}
}

func waitForNotice(ch <-chan upload.Notice) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-ch)
	}
}

func logErr(msg string, err error) {
	if err != nil {
		logger.Warn(msg, "error", err)
	}
}
