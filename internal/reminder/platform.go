package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/notifier"
)

// ErrTooManyPending is returned when the platform ceiling is reached.
var ErrTooManyPending = errors.New("too many pending notifications")

// Channel describes how the platform presents reminders.
type Channel struct {
	ID               string
	Name             string
	MaxImportance    bool
	VibrationPattern []time.Duration
}

// Platform is the notification facility reminders are registered with.
type Platform interface {
	RequestPermission(ctx context.Context) (bool, error)
	EnsureChannel(ctx context.Context, ch Channel) error
	// CancelAll removes every pending alarm.
	CancelAll(ctx context.Context) error
	// ScheduleCountdown registers a one-shot alarm firing after countdown.
	ScheduleCountdown(ctx context.Context, n notifier.Notification, countdown time.Duration) (string, error)
	MaxPending() int
}

// TimerPlatform keeps one time.Timer per alarm in this process and hands
// fired reminders to a notifier.
type TimerPlatform struct {
	notifier notifier.Notifier
	enabled  bool
	ceiling  int
	log      *log.Logger

	mu      sync.Mutex
	nextID  int
	pending map[string]*time.Timer
	channel *Channel
}

func NewTimerPlatform(n notifier.Notifier, enabled bool, ceiling int) *TimerPlatform {
	return &TimerPlatform{
		notifier: n,
		enabled:  enabled,
		ceiling:  ceiling,
		log:      logger.Component("reminder"),
		pending:  make(map[string]*time.Timer),
	}
}

func (p *TimerPlatform) RequestPermission(context.Context) (bool, error) {
	return p.enabled, nil
}

func (p *TimerPlatform) EnsureChannel(_ context.Context, ch Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = &ch
	return nil
}

func (p *TimerPlatform) CancelAll(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.pending {
		t.Stop()
		delete(p.pending, id)
	}
	return nil
}

func (p *TimerPlatform) ScheduleCountdown(_ context.Context, n notifier.Notification, countdown time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return "", errors.New("notification channel not configured")
	}
	if len(p.pending) >= p.ceiling {
		return "", fmt.Errorf("%w (limit %d)", ErrTooManyPending, p.ceiling)
	}

	p.nextID++
	id := fmt.Sprintf("alarm-%d", p.nextID)
	p.pending[id] = time.AfterFunc(countdown, func() { p.fire(id, n) })
	return id, nil
}

func (p *TimerPlatform) fire(id string, n notifier.Notification) {
	p.mu.Lock()
	_, live := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()
	if !live {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.notifier.Notify(ctx, n); err != nil {
		p.log.Warn("Failed to deliver reminder", "id", id, "error", err)
	}
}

func (p *TimerPlatform) MaxPending() int {
	return p.ceiling
}

// Pending returns the number of armed alarms.
func (p *TimerPlatform) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
