package reminder

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/notifier"
)

type fakePlatform struct {
	granted      bool
	ceiling      int
	channelCalls int
	cancelCalls  int
	scheduled    []time.Duration
	notes        []notifier.Notification
	calls        []string
}

func (f *fakePlatform) RequestPermission(context.Context) (bool, error) {
	f.calls = append(f.calls, "permission")
	return f.granted, nil
}

func (f *fakePlatform) EnsureChannel(context.Context, Channel) error {
	f.calls = append(f.calls, "channel")
	f.channelCalls++
	return nil
}

func (f *fakePlatform) CancelAll(context.Context) error {
	f.calls = append(f.calls, "cancel")
	f.cancelCalls++
	f.scheduled = nil
	f.notes = nil
	return nil
}

func (f *fakePlatform) ScheduleCountdown(_ context.Context, n notifier.Notification, d time.Duration) (string, error) {
	f.scheduled = append(f.scheduled, d)
	f.notes = append(f.notes, n)
	return "id", nil
}

func (f *fakePlatform) MaxPending() int { return f.ceiling }

func tod(h, m int) *models.TimeOfDay { return &models.TimeOfDay{Hour: h, Minute: m} }

func newTestScheduler(p Platform, now time.Time, horizon int) *Scheduler {
	s := NewScheduler(p, Options{HorizonDays: horizon, Location: time.UTC})
	s.now = func() time.Time { return now }
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func TestSchedulePermissionDenied(t *testing.T) {
	p := &fakePlatform{granted: false, ceiling: 64}
	s := newTestScheduler(p, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 14)

	err := s.Schedule(context.Background(), Times{tod(9, 0), tod(15, 0), tod(21, 0)})
	if !stderrors.Is(err, errors.ErrPermissionDenied) {
		t.Fatalf("Schedule() error = %v, want PermissionDenied", err)
	}
	if len(p.scheduled) != 0 {
		t.Errorf("scheduled %d alarms after denial", len(p.scheduled))
	}
}

func TestScheduleRollingWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	p := &fakePlatform{granted: true, ceiling: 64}
	s := newTestScheduler(p, now, 14)

	if err := s.Schedule(context.Background(), Times{tod(9, 0), tod(15, 0), tod(21, 0)}); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if len(p.scheduled) != 42 {
		t.Fatalf("scheduled %d alarms, want 42", len(p.scheduled))
	}
	if p.scheduled[0] != time.Hour {
		t.Errorf("first countdown = %v, want 1h", p.scheduled[0])
	}
	if p.scheduled[1] != 25*time.Hour {
		t.Errorf("second day countdown = %v, want 25h", p.scheduled[1])
	}
	if p.notes[0].Title != "time to record mood" || p.notes[0].Body != "recording time 1 of 3" {
		t.Errorf("notification = %+v", p.notes[0])
	}
	if p.notes[14].Body != "recording time 2 of 3" {
		t.Errorf("slot 2 body = %q", p.notes[14].Body)
	}
}

func TestScheduleOrder(t *testing.T) {
	p := &fakePlatform{granted: true, ceiling: 64}
	s := newTestScheduler(p, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 1)

	if err := s.Schedule(context.Background(), Times{tod(9, 0), nil, nil}); err != nil {
		t.Fatal(err)
	}
	want := []string{"permission", "channel", "cancel"}
	for i, c := range want {
		if p.calls[i] != c {
			t.Fatalf("calls = %v, want prefix %v", p.calls, want)
		}
	}
}

func TestScheduleChannelOnce(t *testing.T) {
	p := &fakePlatform{granted: true, ceiling: 64}
	s := newTestScheduler(p, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 14)
	times := Times{tod(9, 0), tod(15, 0), tod(21, 0)}

	for i := 0; i < 3; i++ {
		if err := s.Schedule(context.Background(), times); err != nil {
			t.Fatal(err)
		}
	}
	if p.channelCalls != 1 {
		t.Errorf("EnsureChannel called %d times, want 1", p.channelCalls)
	}
	if p.cancelCalls != 3 {
		t.Errorf("CancelAll called %d times, want 3", p.cancelCalls)
	}
	// Repeat scheduling replaces rather than accumulates.
	if len(p.scheduled) != 42 {
		t.Errorf("pending = %d, want 42", len(p.scheduled))
	}
}

func TestScheduleSkipsUnconfigured(t *testing.T) {
	p := &fakePlatform{granted: true, ceiling: 64}
	s := newTestScheduler(p, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 14)

	if err := s.Schedule(context.Background(), Times{nil, tod(15, 0), nil}); err != nil {
		t.Fatal(err)
	}
	if len(p.scheduled) != 14 {
		t.Errorf("scheduled %d, want 14", len(p.scheduled))
	}
	for _, n := range p.notes {
		if n.Body != "recording time 2 of 3" {
			t.Fatalf("unexpected body %q", n.Body)
		}
	}
}

func TestPlanPastTimeStartsTomorrow(t *testing.T) {
	now := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	alarms := Plan(now, Times{tod(9, 0), nil, nil}, 2, 64)
	if len(alarms) != 2 {
		t.Fatalf("len = %d, want 2", len(alarms))
	}
	if want := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC); !alarms[0].FireAt.Equal(want) {
		t.Errorf("FireAt = %v, want %v", alarms[0].FireAt, want)
	}
	if alarms[0].Countdown != 11*time.Hour {
		t.Errorf("Countdown = %v, want 11h", alarms[0].Countdown)
	}
}

func TestPlanExactTimeIsTomorrow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	alarms := Plan(now, Times{tod(9, 0), nil, nil}, 1, 64)
	if alarms[0].Countdown != 24*time.Hour {
		t.Errorf("Countdown = %v, want 24h", alarms[0].Countdown)
	}
}

func TestPlanCountdownFloor(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 59, 59, 999_000_000, time.UTC)
	alarms := Plan(now, Times{tod(9, 0), nil, nil}, 1, 64)
	if alarms[0].Countdown != constants.CountdownFloor {
		t.Errorf("Countdown = %v, want floor %v", alarms[0].Countdown, constants.CountdownFloor)
	}
}

func TestPlanKeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := time.Date(2024, 3, 9, 8, 0, 0, 0, ny)
	alarms := Plan(now, Times{tod(9, 0), nil, nil}, 3, 64)
	for _, a := range alarms {
		if a.FireAt.Hour() != 9 || a.FireAt.Minute() != 0 {
			t.Errorf("FireAt = %v, want 09:00 local", a.FireAt)
		}
	}
	// The spring-forward day is 23 hours long.
	if got := alarms[1].Countdown - alarms[0].Countdown; got != 23*time.Hour {
		t.Errorf("gap across DST = %v, want 23h", got)
	}
}

func TestHorizonRespectsCeiling(t *testing.T) {
	tests := []struct {
		days, n, ceiling, want int
	}{
		{14, 3, 64, 14},
		{30, 3, 64, 21},
		{30, 1, 64, 30},
		{100, 2, 64, 32},
		{14, 0, 64, 0},
	}
	for _, tt := range tests {
		got := Horizon(tt.days, tt.n, tt.ceiling)
		if got != tt.want {
			t.Errorf("Horizon(%d, %d, %d) = %d, want %d", tt.days, tt.n, tt.ceiling, got, tt.want)
		}
		if got*tt.n > tt.ceiling {
			t.Errorf("Horizon(%d, %d, %d) exceeds ceiling", tt.days, tt.n, tt.ceiling)
		}
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	got   []notifier.Notification
	fired chan struct{}
}

func (r *recordingNotifier) Notify(_ context.Context, n notifier.Notification) error {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func TestTimerPlatformDelivers(t *testing.T) {
	rn := &recordingNotifier{fired: make(chan struct{}, 1)}
	p := NewTimerPlatform(rn, true, 4)
	ctx := context.Background()

	if _, err := p.ScheduleCountdown(ctx, notifier.Notification{Body: "x"}, time.Millisecond); err == nil {
		t.Fatal("ScheduleCountdown() before EnsureChannel should fail")
	}
	if err := p.EnsureChannel(ctx, Channel{ID: "default"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ScheduleCountdown(ctx, notifier.Notification{Title: "t", Body: "b"}, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	select {
	case <-rn.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reminder was not delivered")
	}
	if p.Pending() != 0 {
		t.Errorf("Pending() = %d after firing, want 0", p.Pending())
	}
}

func TestTimerPlatformCeilingAndCancel(t *testing.T) {
	rn := &recordingNotifier{fired: make(chan struct{}, 8)}
	p := NewTimerPlatform(rn, true, 2)
	ctx := context.Background()
	_ = p.EnsureChannel(ctx, Channel{})

	for i := 0; i < 2; i++ {
		if _, err := p.ScheduleCountdown(ctx, notifier.Notification{}, time.Hour); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.ScheduleCountdown(ctx, notifier.Notification{}, time.Hour); !stderrors.Is(err, ErrTooManyPending) {
		t.Errorf("third alarm error = %v, want ErrTooManyPending", err)
	}
	if err := p.CancelAll(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Pending() != 0 {
		t.Errorf("Pending() = %d after CancelAll", p.Pending())
	}
}

func TestTimerPlatformPermission(t *testing.T) {
	p := NewTimerPlatform(nil, false, 64)
	if ok, _ := p.RequestPermission(context.Background()); ok {
		t.Error("disabled platform granted permission")
	}
}

func TestRunReschedulesOnChange(t *testing.T) {
	p := &fakePlatform{granted: true, ceiling: 64}
	s := newTestScheduler(p, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 1)

	ctx, cancel := context.WithCancel(context.Background())
	loads := 0
	load := func() (Times, error) {
		loads++
		switch loads {
		case 1, 2:
			return Times{tod(9, 0), nil, nil}, nil
		default:
			cancel()
			return Times{tod(10, 0), nil, nil}, nil
		}
	}

	err := s.Run(ctx, time.Hour, time.Millisecond, load)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	// Unchanged times on the second load do not reschedule.
	if p.cancelCalls != 2 {
		t.Errorf("Schedule ran %d times, want 2", p.cancelCalls)
	}
}
