package records

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/upload"
)

type ListCmd struct {
	Status string `help:"Only show records with this status." enum:"all,pending,uploaded,failed" default:"all"`
	Limit  int    `help:"Maximum number of records to show (0 for all)." default:"20"`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	status := c.Status
	if status == "all" {
		status = ""
	}
	records, err := ctx.Store.ListRecords(status)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	shown := records
	if c.Limit > 0 && len(shown) > c.Limit {
		shown = shown[:c.Limit]
	}
	loc := ctx.Location()
	for _, r := range shown {
		fmt.Printf("  %s  %s  mood %d  %2ds  %-8s %s\n",
			r.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			models.SlotID(r.Slot), r.MoodScore, r.DurationSeconds, r.Status, detail(r))
	}
	if len(shown) < len(records) {
		fmt.Printf("\n%d of %d records shown\n", len(shown), len(records))
	}
	return nil
}

func detail(r models.Record) string {
	switch r.Status {
	case constants.RecordStatusUploaded:
		return "#" + r.RemoteID
	case constants.RecordStatusFailed:
		return r.Error
	default:
		return ""
	}
}

// RetryCmd re-sends failed records whose clip is still on disk.
type RetryCmd struct{}

func (c *RetryCmd) Run(ctx *cli.Context) error {
	a, err := ctx.NewApp(nil, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	a.Uploads.SetPresenter(upload.PresenterFunc(cli.PrintNotice))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Uploads.ResubmitFailed(sigCtx)
	if res.Attempted == 0 {
		fmt.Println("No failed uploads to retry.")
	}
	if res.Missing > 0 {
		fmt.Printf("⚠ %d failed record(s) no longer have a clip on disk\n", res.Missing)
	}
	return err
}

type ClearCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *ClearCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		fmt.Println("⚠️  This deletes the local upload history. Saved clips are not removed.")
		ok, err := ctx.Confirm("Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Clear cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()
	n, err := ctx.Store.ClearRecords()
	if err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	fmt.Printf("✓ Cleared %d record(s)\n", n)
	return nil
}
