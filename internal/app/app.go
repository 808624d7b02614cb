// Package app holds the long-lived services one moodlog process shares.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/moodlog/internal/capture"
	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/notifier"
	"github.com/julianstephens/moodlog/internal/reminder"
	"github.com/julianstephens/moodlog/internal/slots"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/upload"
)

type App struct {
	Config    *config.Config
	Store     storage.Provider
	Location  *time.Location
	Lifecycle *Lifecycle
	Tasks     *Tasks
	Notifier  notifier.Notifier
	Registry  *prometheus.Registry
	Uploads   *upload.Manager
	Platform  reminder.Platform
	Reminders *reminder.Scheduler
	Capture   *capture.Flow

	now func() time.Time
}

func NewApp(
	cfg *config.Config,
	store storage.Provider,
	loc *time.Location,
	life *Lifecycle,
	tasks *Tasks,
	n notifier.Notifier,
	reg *prometheus.Registry,
	uploads *upload.Manager,
	platform reminder.Platform,
	reminders *reminder.Scheduler,
	flow *capture.Flow,
) *App {
	return &App{
		Config:    cfg,
		Store:     store,
		Location:  loc,
		Lifecycle: life,
		Tasks:     tasks,
		Notifier:  n,
		Registry:  reg,
		Uploads:   uploads,
		Platform:  platform,
		Reminders: reminders,
		Capture:   flow,
		now:       time.Now,
	}
}

// Now is the current time in the configured timezone.
func (a *App) Now() time.Time {
	return a.now().In(a.Location)
}

// Evaluate runs the slot evaluator against the store at the current time.
func (a *App) Evaluate() (slots.Snapshot, error) {
	return slots.Load(a.Store, a.Now())
}

// LoadTimes returns the configured times in the shape the scheduler takes.
func (a *App) LoadTimes() (reminder.Times, error) {
	cfg, err := a.Store.GetTimeSettings()
	if err != nil {
		return reminder.Times{}, fmt.Errorf("failed to load recording times: %w", err)
	}
	return cfg.Times, nil
}

// ScheduleReminders re-arms the reminder window for the stored times. It is a
// no-op when reminders are disabled in the config.
func (a *App) ScheduleReminders(ctx context.Context) error {
	if !a.Config.Reminders.Enabled {
		return nil
	}
	times, err := a.LoadTimes()
	if err != nil {
		return err
	}
	return a.Reminders.Schedule(ctx, times)
}

// Close waits for background uploads, bounded by ctx, and releases the
// services. Pending reminders are cancelled with the process.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Tasks.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("background tasks did not finish: %w", err))
	}
	a.Uploads.Close()
	if err := a.Platform.CancelAll(context.Background()); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
