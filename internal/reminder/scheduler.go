// Package reminder arms countdown alarms for the configured recording times
// over a rolling window of days.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/notifier"
	"github.com/julianstephens/moodlog/internal/utils"
)

const reminderTitle = "time to record mood"

// Times is the per-slot configuration; nil entries are skipped.
type Times = [constants.SlotCount]*models.TimeOfDay

// Alarm is one planned reminder.
type Alarm struct {
	Slot      int
	FireAt    time.Time
	Countdown time.Duration
}

// Notification returns what the user sees when a is delivered.
func (a Alarm) Notification() notifier.Notification {
	return notifier.Notification{
		Title: reminderTitle,
		Body:  fmt.Sprintf("recording time %d of %d", a.Slot, constants.SlotCount),
	}
}

type Options struct {
	HorizonDays int
	SettleDelay time.Duration
	Location    *time.Location
}

type Scheduler struct {
	platform Platform
	opts     Options
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	log      *log.Logger

	mu           sync.Mutex
	channelReady bool
}

func NewScheduler(p Platform, opts Options) *Scheduler {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = constants.DefaultReminderHorizonDays
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Scheduler{
		platform: p,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepCtx,
		log:      logger.Component("reminder"),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Horizon returns how many days fit under the platform ceiling for n
// configured slots.
func Horizon(days, n, ceiling int) int {
	if n == 0 {
		return 0
	}
	if n*days > ceiling {
		days = ceiling / n
	}
	return days
}

// Plan computes the alarms Schedule would register at now, ordered by slot
// then day.
func Plan(now time.Time, times Times, horizonDays, ceiling int) []Alarm {
	configured := 0
	for _, t := range times {
		if t != nil {
			configured++
		}
	}
	days := Horizon(horizonDays, configured, ceiling)

	var alarms []Alarm
	for i, t := range times {
		if t == nil {
			continue
		}
		first := utils.NextOccurrence(now, t.Hour, t.Minute)
		for d := 0; d < days; d++ {
			fire := first
			if d > 0 {
				fire = utils.AtClock(first.AddDate(0, 0, d), t.Hour, t.Minute)
			}
			countdown := fire.Sub(now)
			if countdown < constants.CountdownFloor {
				countdown = constants.CountdownFloor
			}
			alarms = append(alarms, Alarm{Slot: i + 1, FireAt: fire, Countdown: countdown})
		}
	}
	return alarms
}

// Schedule replaces every pending reminder with a fresh rolling window for
// times. It is the only renewal mechanism, so callers run it on launch, on
// focus and daily.
func (s *Scheduler) Schedule(ctx context.Context, times Times) error {
	granted, err := s.platform.RequestPermission(ctx)
	if err != nil {
		return errors.PermissionDenied("request notification permission", err)
	}
	if !granted {
		return errors.PermissionDenied("request notification permission", nil)
	}

	if err := s.ensureChannel(ctx); err != nil {
		return fmt.Errorf("failed to configure notification channel: %w", err)
	}

	if err := s.platform.CancelAll(ctx); err != nil {
		return fmt.Errorf("failed to cancel pending reminders: %w", err)
	}
	if err := s.sleep(ctx, s.opts.SettleDelay); err != nil {
		return err
	}

	now := s.now().In(s.opts.Location)
	alarms := Plan(now, times, s.opts.HorizonDays, s.platform.MaxPending())
	for _, a := range alarms {
		if _, err := s.platform.ScheduleCountdown(ctx, a.Notification(), a.Countdown); err != nil {
			return fmt.Errorf("failed to schedule reminder for slot %d at %s: %w", a.Slot, a.FireAt.Format(time.RFC3339), err)
		}
	}

	s.log.Info("Reminders scheduled", "count", len(alarms))
	return nil
}

func (s *Scheduler) ensureChannel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelReady {
		return nil
	}
	err := s.platform.EnsureChannel(ctx, Channel{
		ID:               constants.ReminderChannelID,
		Name:             constants.ReminderChannelName,
		MaxImportance:    true,
		VibrationPattern: []time.Duration{0, 250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond},
	})
	if err != nil {
		return err
	}
	s.channelReady = true
	return nil
}

// Run keeps reminders armed until ctx ends. Every check interval it reloads
// the times and reschedules when they changed or refresh has elapsed since the
// last successful schedule.
func (s *Scheduler) Run(ctx context.Context, refresh, check time.Duration, load func() (Times, error)) error {
	ticker := time.NewTicker(check)
	defer ticker.Stop()

	var (
		lastKey string
		lastAt  time.Time
		armed   bool
	)
	for {
		times, err := load()
		if err != nil {
			s.log.Error("Failed to load recording times", "error", err)
		} else if key := timesKey(times); !armed || key != lastKey || s.now().Sub(lastAt) >= refresh {
			if err := s.Schedule(ctx, times); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Error("Failed to schedule reminders", "error", err)
			} else {
				armed, lastKey, lastAt = true, key, s.now()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func timesKey(times Times) string {
	var b strings.Builder
	for _, t := range times {
		if t != nil {
			b.WriteString(t.String())
		}
		b.WriteByte('|')
	}
	return b.String()
}
