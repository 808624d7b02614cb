package system

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/tui"
)

// shutdownTimeout bounds how long quitting waits for an in-flight upload.
const shutdownTimeout = 2 * time.Minute

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	ctx.PerformAutomaticBackup()

	a, err := ctx.NewApp(nil, true)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(a), tea.WithAltScreen(), tea.WithReportFocus())
	_, runErr := p.Run()
	// The program is gone; park any late notice so it can be printed.
	a.Lifecycle.SetForeground(false)

	if a.Uploads.Busy() {
		fmt.Println("Finishing upload before exit...")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := a.Close(shutdownCtx)
	if n := a.Uploads.Pending(); n != nil {
		fmt.Printf("%s: %s\n", n.Title, n.Message)
	}

	if runErr != nil {
		return fmt.Errorf("tui exited with error: %w", runErr)
	}
	return closeErr
}
