// Package upload runs the detached job that persists a finished capture,
// records it locally and posts it to the collection endpoint.
package upload

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/storage"
)

const (
	ProgressMessage = "Uploading your record… you can leave this screen, but keep moodlog running"
	RetryMessage    = "Retrying failed uploads…"
)

var (
	// ErrBusy is returned by Submit while a job is active.
	ErrBusy = stderrors.New("an upload is already in progress")
	// ErrStopped is returned by Submit once the task runner has shut down.
	ErrStopped = stderrors.New("uploads are stopped; the app is shutting down")
)

// Status is the manager's observable state.
type Status struct {
	Busy    bool
	Message string
}

// Notice is the outcome dialog for a finished job.
type Notice struct {
	Success  bool
	Title    string
	Message  string
	RecordID string
}

// Presenter shows notices to the user.
type Presenter interface {
	Present(Notice)
}

type PresenterFunc func(Notice)

func (f PresenterFunc) Present(n Notice) { f(n) }

// Runner starts work that must outlive the screen that requested it. Go
// returns false when the runner no longer accepts work.
type Runner interface {
	Go(fn func(ctx context.Context)) bool
}

// Lifecycle reports whether the app is in the foreground.
type Lifecycle interface {
	Foreground() bool
	OnChange(fn func(foreground bool)) (cancel func())
}

type Options struct {
	DeleteAfterUpload bool
}

type Manager struct {
	store   storage.Provider
	client  *Client
	media   *MediaStore
	tasks   Runner
	metrics MetricsProviderInterface
	opts    Options
	log     *log.Logger
	now     func() time.Time

	mu         sync.Mutex
	busy       bool
	message    string
	subs       map[int]chan Status
	nextSub    int
	foreground bool
	presenter  Presenter
	pending    *Notice
	unwatch    func()
}

func NewManager(store storage.Provider, client *Client, media *MediaStore, tasks Runner, life Lifecycle, metrics MetricsProviderInterface, opts Options) *Manager {
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	m := &Manager{
		store:      store,
		client:     client,
		media:      media,
		tasks:      tasks,
		metrics:    metrics,
		opts:       opts,
		log:        logger.Component("upload"),
		now:        time.Now,
		subs:       make(map[int]chan Status),
		foreground: life.Foreground(),
	}
	m.unwatch = life.OnChange(m.setForeground)
	return m
}

// Close detaches the manager from the lifecycle and closes subscriber
// channels. Jobs still running are owned by the Runner.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{Busy: m.busy, Message: m.message}
}

func (m *Manager) Busy() bool {
	return m.Status().Busy
}

// Subscribe returns a channel carrying the latest status. Slow readers only
// miss intermediate values.
func (m *Manager) Subscribe() (<-chan Status, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Status, 1)
	ch <- Status{Busy: m.busy, Message: m.message}
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.subs[id]; ok {
				close(c)
				delete(m.subs, id)
			}
		})
	}
}

// SetPresenter installs p and flushes a waiting notice if the app is in the
// foreground.
func (m *Manager) SetPresenter(p Presenter) {
	m.mu.Lock()
	m.presenter = p
	n := m.takePendingLocked()
	m.mu.Unlock()
	if n != nil {
		p.Present(*n)
	}
}

func (m *Manager) setForeground(fg bool) {
	m.mu.Lock()
	m.foreground = fg
	n := m.takePendingLocked()
	p := m.presenter
	m.mu.Unlock()
	if n != nil {
		p.Present(*n)
	}
}

func (m *Manager) takePendingLocked() *Notice {
	if !m.foreground || m.presenter == nil || m.pending == nil {
		return nil
	}
	n := m.pending
	m.pending = nil
	return n
}

// deliver shows n now when possible, otherwise parks it in the single pending
// slot, replacing any older notice.
func (m *Manager) deliver(n Notice) {
	m.mu.Lock()
	if !m.foreground || m.presenter == nil {
		m.pending = &n
		m.mu.Unlock()
		m.log.Debug("Notice deferred until foreground", "success", n.Success)
		return
	}
	p := m.presenter
	m.mu.Unlock()
	p.Present(n)
}

// Pending returns the notice waiting for the next foreground transition.
func (m *Manager) Pending() *Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil
	}
	n := *m.pending
	return &n
}

func (m *Manager) setStatus(busy bool, message string) {
	m.mu.Lock()
	m.busy = busy
	m.message = message
	m.publishLocked()
	m.mu.Unlock()
	m.metrics.SetBusy(busy)
}

func (m *Manager) publishLocked() {
	st := Status{Busy: m.busy, Message: m.message}
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (m *Manager) acquire(message string) bool {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return false
	}
	m.busy = true
	m.message = message
	m.publishLocked()
	m.mu.Unlock()
	m.metrics.SetBusy(true)
	return true
}

// Submit hands a finished capture to a background job and returns at once.
func (m *Manager) Submit(s models.CaptureSession) error {
	if s.VideoPath == "" {
		return errors.Capture("submit", fmt.Errorf("capture has no video"))
	}
	if s.Slot < 1 || s.Slot > constants.SlotCount {
		return fmt.Errorf("invalid slot %d", s.Slot)
	}
	if s.MoodScore < constants.MinMoodScore || s.MoodScore > constants.MaxMoodScore {
		return fmt.Errorf("invalid mood score %d", s.MoodScore)
	}
	if !m.acquire(ProgressMessage) {
		return ErrBusy
	}

	started := m.tasks.Go(func(ctx context.Context) {
		n := m.process(ctx, s)
		m.setStatus(false, "")
		m.deliver(n)
	})
	if !started {
		m.setStatus(false, "")
		return ErrStopped
	}
	return nil
}

func (m *Manager) process(ctx context.Context, s models.CaptureSession) Notice {
	path, err := m.media.Persist(s.VideoPath)
	if err != nil {
		m.log.Warn("Failed to move clip into media dir", "path", s.VideoPath, "error", err)
		path = s.VideoPath
	}

	created := s.CapturedAt
	if created.IsZero() {
		created = m.now()
	}
	rec := models.Record{
		ID:              uuid.NewString(),
		Slot:            s.Slot,
		MoodScore:       s.MoodScore,
		DurationSeconds: s.DurationSeconds,
		VideoPath:       path,
		Status:          constants.RecordStatusPending,
		CreatedAt:       created.UTC(),
	}
	if s.Location != nil {
		lat, lng := s.Location.Latitude, s.Location.Longitude
		rec.Latitude, rec.Longitude = &lat, &lng
	}
	if err := m.store.AddRecord(rec); err != nil {
		m.log.Error("Failed to record capture", "id", rec.ID, "error", err)
	}

	if err := m.send(ctx, &rec); err != nil {
		return Notice{
			Title:    "Upload failed",
			Message:  errors.UserMessage(err),
			RecordID: rec.ID,
		}
	}
	return Notice{
		Success:  true,
		Title:    "Upload complete",
		Message:  "Your recording was uploaded.",
		RecordID: rec.ID,
	}
}

// send performs the single network attempt for rec and stores the outcome.
func (m *Manager) send(ctx context.Context, rec *models.Record) error {
	start := m.now()
	remoteID, err := m.client.Upload(ctx, Payload{
		VideoPath:       rec.VideoPath,
		MoodScore:       rec.MoodScore,
		Slot:            rec.Slot,
		DurationSeconds: rec.DurationSeconds,
		Location:        rec.Location(),
		Timestamp:       rec.CreatedAt,
	})
	m.metrics.ObserveUploadDuration(m.now().Sub(start))

	if err != nil {
		m.metrics.IncUploads(OutcomeFailure)
		m.log.Warn("Upload failed; clip kept locally", "id", rec.ID, "path", rec.VideoPath, "error", err)
		rec.Status = constants.RecordStatusFailed
		rec.Error = err.Error()
		if uerr := m.store.UpdateRecord(*rec); uerr != nil {
			m.log.Error("Failed to update record", "id", rec.ID, "error", uerr)
		}
		return err
	}

	m.metrics.IncUploads(OutcomeSuccess)
	uploaded := m.now().UTC()
	rec.Status = constants.RecordStatusUploaded
	rec.RemoteID = remoteID
	rec.Error = ""
	rec.UploadedAt = &uploaded
	if m.opts.DeleteAfterUpload {
		if err := m.media.Remove(rec.VideoPath); err != nil {
			m.log.Warn("Failed to delete uploaded clip", "path", rec.VideoPath, "error", err)
		} else {
			rec.VideoPath = ""
		}
	}
	if err := m.store.UpdateRecord(*rec); err != nil {
		m.log.Error("Failed to update record", "id", rec.ID, "error", err)
	}
	m.log.Info("Upload complete", "id", rec.ID, "remote_id", remoteID)
	return nil
}

// RetryResult summarizes a ResubmitFailed pass.
type RetryResult struct {
	Attempted int
	Uploaded  int
	// Missing counts failed records whose clip no longer exists.
	Missing int
}

// ResubmitFailed re-runs the network step for failed records that still have
// their clip. It runs in the caller's goroutine and holds the busy flag.
func (m *Manager) ResubmitFailed(ctx context.Context) (RetryResult, error) {
	var res RetryResult
	if !m.acquire(RetryMessage) {
		return res, ErrBusy
	}
	released := false
	release := func() {
		if !released {
			released = true
			m.setStatus(false, "")
		}
	}
	defer release()

	failed, err := m.store.ListRecords(constants.RecordStatusFailed)
	if err != nil {
		return res, fmt.Errorf("failed to list records: %w", err)
	}

	var errs []error
	for i := range failed {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec := failed[i]
		if rec.VideoPath == "" {
			res.Missing++
			continue
		}
		if _, err := os.Stat(rec.VideoPath); err != nil {
			res.Missing++
			continue
		}
		res.Attempted++
		if err := m.send(ctx, &rec); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", rec.ID, err))
			continue
		}
		res.Uploaded++
	}

	release()
	if res.Attempted > 0 {
		m.deliver(retryNotice(res))
	}
	return res, stderrors.Join(errs...)
}

func retryNotice(res RetryResult) Notice {
	if res.Uploaded == res.Attempted {
		return Notice{
			Success: true,
			Title:   "Upload complete",
			Message: fmt.Sprintf("%d saved recording(s) uploaded.", res.Uploaded),
		}
	}
	return Notice{
		Title:   "Upload failed",
		Message: fmt.Sprintf("%d of %d saved recording(s) uploaded. The rest are still saved on this device.", res.Uploaded, res.Attempted),
	}
}
