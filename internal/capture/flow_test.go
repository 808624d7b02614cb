package capture

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/location"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/recorder"
	"github.com/julianstephens/moodlog/internal/storage/sqlite"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeRecording struct {
	req  recorder.Request
	ctx  context.Context
	stop chan struct{}
	once sync.Once
	fail error
}

func (r *fakeRecording) Stop() error {
	r.once.Do(func() { close(r.stop) })
	return nil
}

func (r *fakeRecording) Wait() (recorder.Result, error) {
	select {
	case <-r.stop:
	case <-r.ctx.Done():
	}
	if r.fail != nil {
		return recorder.Result{}, r.fail
	}
	return recorder.Result{Path: r.req.Output}, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	last     *fakeRecording
	fail     error
	startErr error
}

func (f *fakeRecorder) Start(ctx context.Context, req recorder.Request) (recorder.Recording, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	if err := os.WriteFile(req.Output, []byte("clip"), 0600); err != nil {
		return nil, err
	}
	rec := &fakeRecording{req: req, ctx: ctx, stop: make(chan struct{}), fail: f.fail}
	f.mu.Lock()
	f.last = rec
	f.mu.Unlock()
	return rec, nil
}

func (f *fakeRecorder) recording() *fakeRecording {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeSubmitter struct {
	mu       sync.Mutex
	busy     bool
	err      error
	sessions []models.CaptureSession
}

func (s *fakeSubmitter) Submit(sess models.CaptureSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sessions = append(s.sessions, sess)
	return nil
}

func (s *fakeSubmitter) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

type failingLocator struct{ err error }

func (l failingLocator) Locate(context.Context) (*models.Location, error) { return nil, l.err }

type fixture struct {
	flow  *Flow
	clock *clock
	rec   *fakeRecorder
	sub   *fakeSubmitter
	store *sqlite.Store
	tmp   string
}

func newFixture(t *testing.T, now time.Time, locator location.Provider, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(dir, "moodlog.db"))
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cfg, err := models.ParseTimes([]string{"08:00", "14:00", "20:00"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTimeSettings(cfg, "2024-05-01"); err != nil {
		t.Fatal(err)
	}

	if locator == nil {
		locator = location.Static{Latitude: 10, Longitude: 20}
	}
	opts.TempDir = filepath.Join(dir, "tmp")
	opts.Location = time.UTC
	if err := os.MkdirAll(opts.TempDir, 0700); err != nil {
		t.Fatal(err)
	}

	fx := &fixture{
		clock: &clock{t: now},
		rec:   &fakeRecorder{},
		sub:   &fakeSubmitter{},
		store: store,
		tmp:   opts.TempDir,
	}
	fx.flow = NewFlow(store, locator, fx.rec, fx.sub, opts)
	fx.flow.now = fx.clock.Now
	return fx
}

func at(h, m, s int) time.Time { return time.Date(2024, 5, 1, h, m, s, 0, time.UTC) }

func TestFlowHappyPath(t *testing.T) {
	fx := newFixture(t, at(8, 2, 0), nil, Options{})
	f := fx.flow

	if err := f.SelectMood(4); err != nil {
		t.Fatal(err)
	}
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if f.State() != StateRecording || f.Slot() != 1 {
		t.Fatalf("state = %v slot = %d, want recording slot 1", f.State(), f.Slot())
	}
	if _, err := f.ToggleFacing(); !stderrors.Is(err, ErrNotIdle) {
		t.Errorf("ToggleFacing() while recording error = %v", err)
	}

	fx.clock.Advance(2 * time.Second)
	if f.CanStop() {
		t.Error("CanStop() before minimum duration")
	}
	if err := f.Stop(); !stderrors.Is(err, ErrStopTooEarly) {
		t.Errorf("Stop() at 2s error = %v, want ErrStopTooEarly", err)
	}

	fx.clock.Advance(10 * time.Second)
	if !f.CanStop() {
		t.Error("CanStop() false after minimum duration")
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	session, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if session.Slot != 1 || session.MoodScore != 4 || session.DurationSeconds != 12 {
		t.Errorf("session = %+v", session)
	}
	if session.Location == nil || session.Location.Latitude != 10 {
		t.Errorf("location = %+v", session.Location)
	}
	if len(fx.sub.sessions) != 1 {
		t.Fatalf("submitted %d sessions, want 1", len(fx.sub.sessions))
	}
	state, err := fx.store.LoadCompletionState("2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if !state.IsCompleted(1) || state.IsCompleted(2) {
		t.Errorf("completion = %+v, want only slot 1", state)
	}
	if f.State() != StateIdle || f.Mood() != 0 {
		t.Errorf("after handoff state = %v mood = %d", f.State(), f.Mood())
	}

	// The slot is now complete, so a second capture in the same window is refused.
	_ = f.SelectMood(3)
	if err := f.Start(context.Background()); !stderrors.Is(err, ErrNotActionable) {
		t.Errorf("second Start() error = %v, want ErrNotActionable", err)
	}
}

func TestStartPreconditions(t *testing.T) {
	fx := newFixture(t, at(8, 2, 0), nil, Options{})
	if err := fx.flow.Start(context.Background()); !stderrors.Is(err, ErrNoMood) {
		t.Errorf("Start() without mood error = %v, want ErrNoMood", err)
	}
	if err := fx.flow.SelectMood(9); err == nil {
		t.Error("SelectMood(9) should fail")
	}

	_ = fx.flow.SelectMood(2)
	fx.sub.busy = true
	if err := fx.flow.Start(context.Background()); !stderrors.Is(err, ErrUploadBusy) {
		t.Errorf("Start() while uploading error = %v, want ErrUploadBusy", err)
	}
	fx.sub.busy = false

	fx.clock.Advance(4 * time.Minute)
	if err := fx.flow.Start(context.Background()); !stderrors.Is(err, ErrNotActionable) {
		t.Errorf("Start() at 08:06 error = %v, want ErrNotActionable", err)
	}
	if fx.flow.State() != StateIdle {
		t.Errorf("state = %v, want idle", fx.flow.State())
	}
}

func TestLocateFailureReturnsToIdle(t *testing.T) {
	denied := errors.PermissionDenied("locate", nil)
	fx := newFixture(t, at(14, 0, 0), failingLocator{err: denied}, Options{})

	_ = fx.flow.SelectMood(5)
	err := fx.flow.Start(context.Background())
	if !stderrors.Is(err, errors.ErrPermissionDenied) {
		t.Fatalf("Start() error = %v, want PermissionDenied", err)
	}
	if fx.flow.State() != StateIdle || fx.flow.Mood() != 5 {
		t.Errorf("state = %v mood = %d, want idle with mood kept", fx.flow.State(), fx.flow.Mood())
	}
	if fx.rec.recording() != nil {
		t.Error("recorder started despite location failure")
	}

	unavailable := newFixture(t, at(14, 0, 0), failingLocator{err: stderrors.New("no fix")}, Options{})
	_ = unavailable.flow.SelectMood(5)
	if err := unavailable.flow.Start(context.Background()); err == nil {
		t.Error("Start() should surface location errors")
	}
}

func TestRecordingFailureDiscardsClip(t *testing.T) {
	fx := newFixture(t, at(20, 1, 0), nil, Options{})
	fx.rec.fail = stderrors.New("camera unplugged")

	_ = fx.flow.SelectMood(1)
	if err := fx.flow.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	output := fx.rec.recording().req.Output
	fx.clock.Advance(6 * time.Second)
	_ = fx.flow.Stop()

	_, err := fx.flow.Wait(context.Background())
	if !stderrors.Is(err, errors.ErrCapture) {
		t.Fatalf("Wait() error = %v, want CaptureFailure", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("partial clip was retained")
	}
	if len(fx.sub.sessions) != 0 {
		t.Error("failed capture was submitted")
	}
	state, _ := fx.store.LoadCompletionState("2024-05-01")
	if state.IsCompleted(3) {
		t.Error("failed capture marked the slot completed")
	}
	if fx.flow.State() != StateIdle {
		t.Errorf("state = %v, want idle", fx.flow.State())
	}
}

func TestRefusedHandoffLeavesSlotOpen(t *testing.T) {
	fx := newFixture(t, at(14, 1, 0), nil, Options{})
	fx.sub.err = stderrors.New("uploads are stopped")

	_ = fx.flow.SelectMood(2)
	if err := fx.flow.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	output := fx.rec.recording().req.Output
	fx.clock.Advance(8 * time.Second)
	_ = fx.flow.Stop()

	if _, err := fx.flow.Wait(context.Background()); !stderrors.Is(err, errors.ErrCapture) {
		t.Fatalf("Wait() error = %v, want CaptureFailure", err)
	}
	state, _ := fx.store.LoadCompletionState("2024-05-01")
	if state.IsCompleted(2) {
		t.Error("slot marked completed although nothing was handed off")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("refused clip was retained")
	}
	if fx.flow.State() != StateIdle {
		t.Errorf("state = %v, want idle", fx.flow.State())
	}
}

func TestHandoffAfterMidnightKeepsNewDay(t *testing.T) {
	fx := newFixture(t, at(23, 59, 50), nil, Options{})
	late, err := models.ParseTimes([]string{"05:00", "11:00", "23:58"})
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.store.SaveTimeSettings(late, "2024-05-01"); err != nil {
		t.Fatal(err)
	}

	_ = fx.flow.SelectMood(5)
	if err := fx.flow.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fx.flow.Slot() != 3 {
		t.Fatalf("slot = %d, want 3", fx.flow.Slot())
	}

	// A poll after midnight resets the blob for the new day.
	fx.clock.Advance(15 * time.Second)
	if _, err := fx.store.LoadCompletionState("2024-05-02"); err != nil {
		t.Fatal(err)
	}
	_ = fx.flow.Stop()
	if _, err := fx.flow.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	state, err := fx.store.LoadCompletionState("2024-05-02")
	if err != nil {
		t.Fatal(err)
	}
	if state.Date != "2024-05-02" || state.IsCompleted(3) {
		t.Errorf("state = %+v, want an untouched 2024-05-02", state)
	}
	if len(fx.sub.sessions) != 1 {
		t.Errorf("submitted %d sessions, want 1", len(fx.sub.sessions))
	}
}

func TestStartRecorderError(t *testing.T) {
	fx := newFixture(t, at(8, 0, 0), nil, Options{})
	fx.rec.startErr = stderrors.New("no device")
	_ = fx.flow.SelectMood(3)
	if err := fx.flow.Start(context.Background()); !stderrors.Is(err, errors.ErrCapture) {
		t.Errorf("Start() error = %v, want CaptureFailure", err)
	}
	if fx.flow.State() != StateIdle {
		t.Errorf("state = %v, want idle", fx.flow.State())
	}
}

func TestDurationClampedAtCutoff(t *testing.T) {
	fx := newFixture(t, at(8, 1, 0), nil, Options{})
	_ = fx.flow.SelectMood(3)
	if err := fx.flow.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// The recorder stops itself at the cap but the clock reads 21s.
	fx.clock.Advance(21 * time.Second)
	_ = fx.rec.recording().Stop()

	session, err := fx.flow.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if session.DurationSeconds != 20 {
		t.Errorf("DurationSeconds = %d, want 20", session.DurationSeconds)
	}
}

func TestHardCutoffCancelsRecorder(t *testing.T) {
	fx := newFixture(t, at(8, 1, 0), nil, Options{MinDuration: 10 * time.Millisecond, MaxDuration: 50 * time.Millisecond, Grace: 10 * time.Millisecond})
	_ = fx.flow.SelectMood(3)
	if err := fx.flow.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := fx.flow.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v, want the cutoff to finish the clip", err)
	}
}

func TestWaitCancelledAborts(t *testing.T) {
	fx := newFixture(t, at(8, 1, 0), nil, Options{})
	_ = fx.flow.SelectMood(3)
	if err := fx.flow.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	output := fx.rec.recording().req.Output

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fx.flow.Wait(ctx); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("aborted clip was retained")
	}
	if fx.flow.State() != StateIdle || len(fx.sub.sessions) != 0 {
		t.Error("abort should return to idle without submitting")
	}
}

func TestToggleFacing(t *testing.T) {
	fx := newFixture(t, at(8, 1, 0), nil, Options{})
	if fx.flow.Facing() != models.FacingFront {
		t.Fatalf("default facing = %v", fx.flow.Facing())
	}
	got, err := fx.flow.ToggleFacing()
	if err != nil || got != models.FacingBack {
		t.Errorf("ToggleFacing() = %v, %v", got, err)
	}
}

func TestClampSeconds(t *testing.T) {
	max := 20 * time.Second
	tests := []struct {
		d    time.Duration
		want int
	}{
		{21 * time.Second, 20},
		{20 * time.Second, 20},
		{12*time.Second + 400*time.Millisecond, 12},
		{5*time.Second + 600*time.Millisecond, 6},
		{-time.Second, 0},
	}
	for _, tt := range tests {
		if got := ClampSeconds(tt.d, max); got != tt.want {
			t.Errorf("ClampSeconds(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}
