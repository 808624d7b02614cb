// Package capture runs one recording session: mood selection, a bounded
// location attempt, the recording itself and the handoff to the uploader.
package capture

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/location"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/recorder"
	"github.com/julianstephens/moodlog/internal/slots"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/utils"
)

type State int

const (
	StateIdle State = iota
	StateLocating
	StateRecording
	StateHandoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocating:
		return "locating"
	case StateRecording:
		return "recording"
	case StateHandoff:
		return "handoff"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrStopTooEarly  = stderrors.New("recording is shorter than the minimum duration")
	ErrNoMood        = stderrors.New("select a mood score first")
	ErrNotIdle       = stderrors.New("a recording is already in progress")
	ErrNotRecording  = stderrors.New("not recording")
	ErrUploadBusy    = stderrors.New("the previous recording is still uploading")
	ErrNotActionable = stderrors.New("no recording is due right now")
)

// Submitter takes ownership of a finished session.
type Submitter interface {
	Submit(models.CaptureSession) error
	Busy() bool
}

type Options struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	// Grace is how long past MaxDuration the recorder may run before it is
	// cancelled.
	Grace         time.Duration
	LocateTimeout time.Duration
	TempDir       string
	Facing        models.Facing
	Location      *time.Location
}

type Flow struct {
	store    storage.Provider
	locator  location.Provider
	recorder recorder.Recorder
	uploader Submitter
	opts     Options
	log      *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	mood     int
	facing   models.Facing
	slot     int
	date     string
	loc      *models.Location
	output   string
	started  time.Time
	rec      recorder.Recording
	cancel   context.CancelFunc
	done     chan struct{}
	result   recorder.Result
	err      error
	finished time.Time
}

func NewFlow(store storage.Provider, locator location.Provider, rec recorder.Recorder, uploader Submitter, opts Options) *Flow {
	if opts.MinDuration <= 0 {
		opts.MinDuration = constants.DefaultMinRecordDuration
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = constants.DefaultMaxRecordDuration
	}
	if opts.Grace <= 0 {
		opts.Grace = constants.RecordCutoffGrace
	}
	if opts.LocateTimeout <= 0 {
		opts.LocateTimeout = constants.DefaultLocateTimeout
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Facing == "" {
		opts.Facing = models.FacingFront
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Flow{
		store:    store,
		locator:  locator,
		recorder: rec,
		uploader: uploader,
		opts:     opts,
		log:      logger.Component("capture"),
		now:      time.Now,
		facing:   opts.Facing,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Mood() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mood
}

func (f *Flow) Facing() models.Facing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.facing
}

// Slot is the slot being recorded, zero when idle.
func (f *Flow) Slot() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slot
}

func (f *Flow) Limits() (min, max time.Duration) {
	return f.opts.MinDuration, f.opts.MaxDuration
}

// Elapsed is the recording time so far.
func (f *Flow) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsedLocked()
}

func (f *Flow) elapsedLocked() time.Duration {
	switch {
	case f.started.IsZero():
		return 0
	case !f.finished.IsZero():
		return f.finished.Sub(f.started)
	default:
		return f.now().Sub(f.started)
	}
}

// CanStop reports whether Stop would be accepted now.
func (f *Flow) CanStop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateRecording && f.elapsedLocked() >= f.opts.MinDuration
}

// SelectMood sets the score for the next recording.
func (f *Flow) SelectMood(score int) error {
	if score < constants.MinMoodScore || score > constants.MaxMoodScore {
		return fmt.Errorf("mood score must be between %d and %d", constants.MinMoodScore, constants.MaxMoodScore)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return ErrNotIdle
	}
	f.mood = score
	return nil
}

// ToggleFacing switches cameras. It is only allowed before recording starts.
func (f *Flow) ToggleFacing() (models.Facing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return f.facing, ErrNotIdle
	}
	f.facing = f.facing.Toggle()
	return f.facing, nil
}

// Start resolves the actionable slot, makes one location attempt and starts
// the recorder. It returns once recording has begun.
func (f *Flow) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return ErrNotIdle
	}
	if f.mood == 0 {
		f.mu.Unlock()
		return ErrNoMood
	}
	if f.uploader.Busy() {
		f.mu.Unlock()
		return ErrUploadBusy
	}

	now := f.now().In(f.opts.Location)
	snap, err := slots.Load(f.store, now)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	if snap.Action.Kind != slots.ActionStartCapture {
		f.mu.Unlock()
		return fmt.Errorf("%w (%s)", ErrNotActionable, snap.Action.Label)
	}
	slot := snap.Action.TargetSlot
	f.slot = slot
	f.date = utils.DateString(now)
	f.state = StateLocating
	f.mu.Unlock()

	loc, err := f.locate(ctx)
	if err != nil {
		f.reset()
		return err
	}

	output := filepath.Join(f.opts.TempDir, fmt.Sprintf("moodlog-capture-%d%s", now.UnixNano(), constants.MediaFileSuffix))
	recCtx, cancel := context.WithTimeout(ctx, f.opts.MaxDuration+f.opts.Grace)
	rec, err := f.recorder.Start(recCtx, recorder.Request{
		Output:      output,
		MaxDuration: f.opts.MaxDuration,
		Facing:      f.Facing(),
	})
	if err != nil {
		cancel()
		_ = os.Remove(output)
		f.reset()
		return errors.Capture("start recording", err)
	}

	f.mu.Lock()
	f.loc = loc
	f.output = output
	f.rec = rec
	f.cancel = cancel
	f.started = f.now()
	f.finished = time.Time{}
	f.done = make(chan struct{})
	f.state = StateRecording
	done := f.done
	f.mu.Unlock()

	f.log.Info("Recording started", "slot", slot, "output", output)
	go func() {
		res, err := rec.Wait()
		f.mu.Lock()
		f.result, f.err = res, err
		f.finished = f.now()
		f.mu.Unlock()
		close(done)
	}()
	return nil
}

func (f *Flow) locate(ctx context.Context) (*models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.LocateTimeout)
	defer cancel()

	loc, err := f.locator.Locate(ctx)
	if err != nil {
		if errors.KindOf(err) == errors.KindPermissionDenied {
			return nil, err
		}
		return nil, fmt.Errorf("could not determine location: %w", err)
	}
	return loc, nil
}

// Stop ends the recording early. It is refused before MinDuration.
func (f *Flow) Stop() error {
	f.mu.Lock()
	if f.state != StateRecording {
		f.mu.Unlock()
		return ErrNotRecording
	}
	if f.elapsedLocked() < f.opts.MinDuration {
		f.mu.Unlock()
		return ErrStopTooEarly
	}
	rec := f.rec
	f.mu.Unlock()

	if err := rec.Stop(); err != nil {
		return errors.Capture("stop recording", err)
	}
	return nil
}

// Done is closed when the recorder finishes. It is nil when not recording.
func (f *Flow) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Wait blocks until the recording ends, then hands the session to the
// uploader and marks the slot completed. A cancelled ctx aborts the capture.
func (f *Flow) Wait(ctx context.Context) (models.CaptureSession, error) {
	done := f.Done()
	if done == nil {
		return models.CaptureSession{}, ErrNotRecording
	}

	select {
	case <-done:
	case <-ctx.Done():
		f.Abort()
		return models.CaptureSession{}, ctx.Err()
	}

	f.mu.Lock()
	if f.state != StateRecording {
		f.mu.Unlock()
		return models.CaptureSession{}, ErrNotRecording
	}
	f.state = StateHandoff
	f.cancel()
	res, recErr := f.result, f.err
	output := f.output
	elapsed := f.elapsedLocked()
	session := models.CaptureSession{
		Slot:       f.slot,
		MoodScore:  f.mood,
		Location:   f.loc,
		VideoPath:  output,
		CapturedAt: f.started,
	}
	date := f.date
	f.mu.Unlock()

	if recErr != nil {
		_ = os.Remove(output)
		f.reset()
		f.log.Warn("Recording failed", "slot", session.Slot, "error", recErr)
		return models.CaptureSession{}, errors.Capture("record", recErr)
	}

	if res.Path != "" {
		session.VideoPath = res.Path
	}
	d := elapsed
	if res.Duration > 0 {
		d = res.Duration
	}
	session.DurationSeconds = ClampSeconds(d, f.opts.MaxDuration)

	if err := f.uploader.Submit(session); err != nil {
		_ = os.Remove(session.VideoPath)
		f.reset()
		return models.CaptureSession{}, errors.Capture("hand off recording", err)
	}
	f.log.Info("Recording handed off", "slot", session.Slot, "duration", session.DurationSeconds)

	_, markErr := f.store.MarkSlotCompleted(session.Slot, date)
	f.reset()
	f.mu.Lock()
	f.mood = 0
	f.mu.Unlock()
	if markErr != nil {
		return session, fmt.Errorf("recording saved but slot %d could not be marked done: %w", session.Slot, markErr)
	}
	return session, nil
}

// Abort cancels a recording in progress and discards the partial clip.
func (f *Flow) Abort() {
	f.mu.Lock()
	if f.state != StateRecording {
		f.mu.Unlock()
		return
	}
	cancel, done, output := f.cancel, f.done, f.output
	f.mu.Unlock()

	cancel()
	<-done
	_ = os.Remove(output)
	f.reset()
	f.log.Info("Recording aborted")
}

func (f *Flow) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	f.state = StateIdle
	f.slot = 0
	f.date = ""
	f.loc = nil
	f.output = ""
	f.rec = nil
	f.cancel = nil
	f.done = nil
	f.started = time.Time{}
	f.finished = time.Time{}
	f.result = recorder.Result{}
	f.err = nil
}

// ClampSeconds converts d to whole seconds, never exceeding max. The recorder
// and the UI timer can disagree by a fraction past the cap.
func ClampSeconds(d, max time.Duration) int {
	if d > max {
		d = max
	}
	if d < 0 {
		d = 0
	}
	return int(math.Round(d.Seconds()))
}
