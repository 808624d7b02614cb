package reminders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/notifier"
	"github.com/julianstephens/moodlog/internal/reminder"
	"github.com/julianstephens/moodlog/internal/upload"
)

const (
	// refreshInterval re-arms the rolling window even when nothing changed.
	refreshInterval = 24 * time.Hour
	// checkInterval is how often the daemon reloads the stored times.
	checkInterval = time.Minute
)

// ScheduleCmd prints the reminders a daemon would arm for the stored times.
type ScheduleCmd struct {
	Days int `help:"Days to plan ahead (defaults to reminders.horizonDays)."`
}

func (c *ScheduleCmd) Run(ctx *cli.Context) error {
	cfg, err := ctx.Store.GetTimeSettings()
	if err != nil {
		return fmt.Errorf("failed to load recording times: %w", err)
	}
	if cfg.Configured() == 0 {
		fmt.Println("No recording times set. Use 'moodlog times set HH:MM HH:MM HH:MM'.")
		return nil
	}

	days := c.Days
	if days <= 0 {
		days = ctx.Config.Reminders.HorizonDays
	}
	alarms := reminder.Plan(ctx.Now(), cfg.Times, days, constants.MaxPendingNotifications)
	fmt.Printf("%d reminder(s) over %d day(s):\n", len(alarms), reminder.Horizon(days, cfg.Configured(), constants.MaxPendingNotifications))
	for _, a := range alarms {
		fmt.Printf("  %s  %s  in %s\n", a.FireAt.Format("Mon 2006-01-02 15:04"), models.SlotID(a.Slot), a.Countdown.Round(time.Minute))
	}
	if !ctx.Config.Reminders.Enabled {
		fmt.Println("\n⚠ Reminders are disabled (reminders.enabled=false).")
	}
	return nil
}

// RunCmd keeps reminders armed until interrupted.
type RunCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address, e.g. :9090."`
}

func (c *RunCmd) Run(ctx *cli.Context) error {
	if !ctx.Config.Reminders.Enabled {
		return fmt.Errorf("reminders are disabled in the config (reminders.enabled=false)")
	}
	if c.MetricsAddr != "" {
		ctx.Config.Metrics.Enabled = true
	}

	a, err := ctx.NewApp(nil, true)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			logger.Warn("Shutdown incomplete", "error", err)
		}
	}()
	// No screen to show notices on; they go out as notifications.
	a.Uploads.SetPresenter(upload.PresenterFunc(func(n upload.Notice) {
		if err := a.Notifier.Notify(context.Background(), notifier.Notification{Title: n.Title, Body: n.Message}); err != nil {
			logger.Warn("Failed to deliver upload notice", "error", err)
		}
	}))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		fmt.Printf("Serving metrics on %s\n", c.MetricsAddr)
	}

	if a.Config.Upload.RetryOnLaunch {
		if _, err := a.Uploads.ResubmitFailed(sigCtx); err != nil {
			logger.Warn("Retrying failed uploads", "error", err)
		}
	}

	fmt.Println("Keeping reminders scheduled. Press Ctrl-C to stop.")
	err = a.Reminders.Run(sigCtx, refreshInterval, checkInterval, a.LoadTimes)
	if errors.Is(err, context.Canceled) {
		fmt.Println("Stopped.")
		return nil
	}
	return err
}
