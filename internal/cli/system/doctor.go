package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/julianstephens/moodlog/internal/backup"
	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/storage/sqlite"
	"github.com/julianstephens/moodlog/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func(*cli.Context) error
	// warnOnly checks report ⚠ instead of failing the run.
	warnOnly bool
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
}

var checks = []check{
	{name: "Schema version", run: checkSchemaVersion, needsDB: true},
	{name: "Recording times", run: checkRecordingTimes, needsDB: true},
	{name: "Failed uploads", run: checkFailedUploads, needsDB: true, warnOnly: true},
	{name: "Configuration", run: checkConfig},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Media directory", run: checkMediaDir},
	{name: "Upload endpoint", run: checkUploadEndpoint, warnOnly: true},
	{name: "Capture command", run: checkCaptureCommand, warnOnly: true},
	{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false

	dbReachable := true
	if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	if sqliteStore, ok := ctx.Store.(*sqlite.Store); ok {
		db := sqliteStore.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	reporter, ok := ctx.Store.(storage.SchemaReporter)
	if !ok {
		return nil
	}
	current, latest, err := reporter.SchemaStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkRecordingTimes(ctx *cli.Context) error {
	cfg, err := ctx.Store.GetTimeSettings()
	if err != nil {
		return fmt.Errorf("failed to read recording times: %w", err)
	}
	if cfg.Configured() == 0 {
		// Not an error: the home screen offers to configure them.
		return nil
	}
	return cfg.Validate()
}

func checkFailedUploads(ctx *cli.Context) error {
	failed, err := ctx.Store.ListRecords(constants.RecordStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d recording(s) failed to upload - retry with 'moodlog records retry'", len(failed))
	}
	return nil
}

func checkConfig(ctx *cli.Context) error {
	if ctx.Config == nil {
		return fmt.Errorf("no configuration loaded")
	}
	return ctx.Config.Validate()
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if ctx.Config != nil {
		if _, err := utils.LoadLocation(ctx.Config.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", ctx.Config.Timezone, err)
		}
	}
	return nil
}

func checkMediaDir(ctx *cli.Context) error {
	if ctx.Config == nil {
		return nil
	}
	dir := ctx.Config.MediaDir
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("cannot create media directory %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("media directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

func checkUploadEndpoint(ctx *cli.Context) error {
	if ctx.Config == nil || ctx.Config.Upload.Endpoint == "" {
		return fmt.Errorf("upload.endpoint is not set; recordings will stay on this device")
	}
	return nil
}

func checkCaptureCommand(ctx *cli.Context) error {
	if ctx.Config == nil || ctx.Config.Capture.Recorder != "command" {
		return nil
	}
	if len(ctx.Config.Capture.Command) == 0 {
		return fmt.Errorf("capture.command is empty")
	}
	bin := ctx.Config.Capture.Command[0]
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("capture command %q not found in PATH", filepath.Base(bin))
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'moodlog backup create'")
	}
	return nil
}
