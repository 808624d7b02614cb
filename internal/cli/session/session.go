package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/moodlog/internal/capture"
	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/poll"
	"github.com/julianstephens/moodlog/internal/recorder"
	"github.com/julianstephens/moodlog/internal/slots"
	"github.com/julianstephens/moodlog/internal/upload"
)

// uploadWait bounds how long record waits for its upload before exiting.
const uploadWait = 3 * time.Minute

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	snap, err := slots.Load(ctx.Store, ctx.Now())
	if err != nil {
		return err
	}
	printSnapshot(snap)

	pending, err := ctx.Store.ListRecords(constants.RecordStatusPending)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	failed, err := ctx.Store.ListRecords(constants.RecordStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if len(pending)+len(failed) > 0 {
		fmt.Printf("\nUploads: %d pending, %d failed\n", len(pending), len(failed))
	}
	return snap.Action.Err()
}

func printSnapshot(snap slots.Snapshot) {
	fmt.Printf("%s  %s\n", snap.Now.Format("15:04:05"), snap.Action.Label)
	for _, s := range snap.Slots {
		state := "upcoming"
		switch {
		case s.Completed:
			state = "done"
		case s.Actionable(snap.Now):
			state = "open"
		case !snap.Now.Before(s.At):
			state = "missed"
		}
		fmt.Printf("  %s %s  %s\n", models.SlotID(s.Index), s.At.Format(constants.TimeFormat), state)
	}
}

// WatchCmd re-evaluates the schedule on the poll interval and prints the
// action whenever it changes.
type WatchCmd struct {
	Interval time.Duration `help:"How often to re-evaluate." default:"5s"`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	if c.Interval <= 0 {
		c.Interval = constants.PollInterval
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var last string
	h := poll.Start(sigCtx, c.Interval, func(context.Context) {
		snap, err := slots.Load(ctx.Store, ctx.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			return
		}
		if snap.Action.Label == last {
			return
		}
		last = snap.Action.Label
		printSnapshot(snap)
	})
	<-h.Done()
	return nil
}

type RecordCmd struct {
	Mood     int           `required:"" help:"Mood score from 1 (worst) to 5 (best)."`
	Video    string        `help:"Import an existing clip instead of recording one." type:"existingfile"`
	Duration time.Duration `help:"Length of the imported clip." default:"10s"`
	Facing   string        `help:"Camera to record with (front or back). Defaults to capture.facing."`
}

func (c *RecordCmd) Run(ctx *cli.Context) error {
	if c.Facing != "" && c.Facing != string(models.FacingFront) && c.Facing != string(models.FacingBack) {
		return fmt.Errorf("--facing must be front or back")
	}
	var rec recorder.Recorder
	if c.Video != "" {
		rec = &recorder.File{Source: c.Video, Duration: c.Duration}
	} else if ctx.Config.Capture.Recorder == "file" {
		return fmt.Errorf("the file recorder needs --video")
	}

	a, err := ctx.NewApp(rec, true)
	if err != nil {
		return err
	}
	a.Uploads.SetPresenter(upload.PresenterFunc(cli.PrintNotice))
	defer func() {
		if a.Uploads.Busy() {
			fmt.Println(upload.ProgressMessage)
		}
		waitCtx, cancel := context.WithTimeout(context.Background(), uploadWait)
		defer cancel()
		if err := a.Close(waitCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}()

	flow := a.Capture
	if err := flow.SelectMood(c.Mood); err != nil {
		return err
	}
	if c.Facing != "" && models.Facing(c.Facing) != flow.Facing() {
		if _, err := flow.ToggleFacing(); err != nil {
			return err
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := flow.Start(sigCtx); err != nil {
		return err
	}
	minDur, maxDur := flow.Limits()
	fmt.Printf("● Recording %s with the %s camera (mood %d)\n", models.SlotID(flow.Slot()), flow.Facing(), flow.Mood())
	if c.Video == "" {
		fmt.Printf("  Press Enter to stop (after %s, stops on its own at %s). Ctrl-C discards.\n", minDur, maxDur)
		in := ctx.In
		if in == nil {
			in = os.Stdin
		}
		go stopOnEnter(in, flow, minDur)
	}

	session, err := flow.Wait(sigCtx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Recording discarded.")
			return nil
		}
		return err
	}
	fmt.Printf("✓ Recorded %ds for %s\n", session.DurationSeconds, models.SlotID(session.Slot))
	return nil
}

func stopOnEnter(in io.Reader, flow *capture.Flow, minDur time.Duration) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		err := flow.Stop()
		switch {
		case err == nil, errors.Is(err, capture.ErrNotRecording):
			return
		case errors.Is(err, capture.ErrStopTooEarly):
			fmt.Printf("  Keep going, recordings are at least %s.\n", minDur)
		default:
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			return
		}
	}
}
