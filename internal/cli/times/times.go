package times

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/reminder"
	"github.com/julianstephens/moodlog/internal/slots"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/utils"
)

type SetCmd struct {
	Times []string `arg:"" help:"Three recording times as HH:MM, each at least 6 hours after the previous one."`
	Force bool     `help:"Save even if the times were already set today."`
}

func (c *SetCmd) Run(ctx *cli.Context) error {
	if len(c.Times) != constants.SlotCount {
		return fmt.Errorf("expected %d times, got %d", constants.SlotCount, len(c.Times))
	}
	cfg, err := models.ParseTimes(c.Times)
	if err != nil {
		return err
	}

	now := ctx.Now()
	if err := storage.SaveTimes(ctx.Store, cfg, utils.DateString(now), c.Force); err != nil {
		if errors.Is(err, storage.ErrTimesLocked) {
			return fmt.Errorf("%w (use --force to override)", err)
		}
		return err
	}
	ctx.PerformAutomaticBackup()

	fmt.Printf("✓ Recording times saved: %s, %s, %s\n", cfg.Times[0], cfg.Times[1], cfg.Times[2])
	if alarms := reminder.Plan(now, cfg.Times, 1, constants.MaxPendingNotifications); len(alarms) > 0 {
		fmt.Printf("  Next reminder: %s (in %s)\n", alarms[0].FireAt.Format("Mon 15:04"), alarms[0].Countdown.Round(time.Minute))
	}
	fmt.Println("  Run 'moodlog reminders run' to keep reminders scheduled.")
	return nil
}

type ShowCmd struct{}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	cfg, err := ctx.Store.GetTimeSettings()
	if err != nil {
		return fmt.Errorf("failed to load recording times: %w", err)
	}
	if cfg.Configured() == 0 {
		fmt.Println("No recording times set. Use 'moodlog times set HH:MM HH:MM HH:MM'.")
		return nil
	}

	now := ctx.Now()
	state, err := ctx.Store.LoadCompletionState(utils.DateString(now))
	if err != nil {
		return fmt.Errorf("failed to load completion state: %w", err)
	}

	fmt.Printf("Recording times (%s):\n", now.Format(constants.DateFormat))
	for _, s := range slots.Build(cfg, state, now) {
		mark := " "
		switch {
		case s.Completed:
			mark = "✓"
		case s.Actionable(now):
			mark = "●"
		}
		fmt.Printf("  %s %s  %s\n", mark, models.SlotID(s.Index), s.At.Format(constants.TimeFormat))
	}
	if cfg.CanEdit(utils.DateString(now)) {
		fmt.Println("\nTimes can be changed today.")
	} else {
		fmt.Println("\nTimes were set today and can be changed again tomorrow.")
	}
	return nil
}
