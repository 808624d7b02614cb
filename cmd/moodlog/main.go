package main

import (
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/cli/backups"
	"github.com/julianstephens/moodlog/internal/cli/records"
	"github.com/julianstephens/moodlog/internal/cli/reminders"
	"github.com/julianstephens/moodlog/internal/cli/session"
	"github.com/julianstephens/moodlog/internal/cli/system"
	"github.com/julianstephens/moodlog/internal/cli/times"
	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/utils"
)

var CLI struct {
	Version kong.VersionFlag
	DB      string `name:"db" help:"SQLite database path, a PostgreSQL URL without a password, or \"postgres\" to use the connection string from MOODLOG_DB_CONNECTION or the OS keyring." default:"~/.config/moodlog/moodlog.db"`
	Config  string `help:"Config file path." type:"string" default:"~/.config/moodlog/config.yaml"`
	Debug   bool   `help:"Enable debug logging."`

	Init   system.InitCmd    `cmd:"" help:"Initialize moodlog storage and write a default config."`
	Doctor system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Tui    system.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Status session.StatusCmd `cmd:"" help:"Show what can be recorded right now."`
	Watch  session.WatchCmd  `cmd:"" help:"Print the home action whenever it changes."`
	Record session.RecordCmd `cmd:"" help:"Record a mood entry for the open slot and upload it."`
	Times  struct {
		Set  times.SetCmd  `cmd:"" help:"Set the three daily recording times."`
		Show times.ShowCmd `cmd:"" help:"Show today's recording times." default:"1"`
	} `cmd:"" help:"Manage recording times."`
	Records struct {
		List  records.ListCmd  `cmd:"" help:"List recorded entries and their upload status." default:"1"`
		Retry records.RetryCmd `cmd:"" help:"Retry failed uploads whose clip is still saved."`
		Clear records.ClearCmd `cmd:"" help:"Delete the local upload history."`
	} `cmd:"" help:"Manage recorded entries."`
	Reminders struct {
		Schedule reminders.ScheduleCmd `cmd:"" help:"Print the upcoming reminders." default:"1"`
		Run      reminders.RunCmd      `cmd:"" help:"Keep reminders scheduled until interrupted."`
	} `cmd:"" help:"Manage recording reminders."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string (password masked)."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check OS keyring availability." default:"1"`
	} `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Three-times-a-day mood journal with video check-ins"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	configFile, err := utils.ExpandHome(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		errors.Fatal(err)
	}

	var selected, group string
	if node := ctx.Selected(); node != nil {
		selected = node.Name
		if node.Parent != nil {
			group = node.Parent.Name
		}
	}
	err = logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: filepath.Dir(configFile),
		Level:     cfg.Log.Level,
		Quiet:     selected == "tui",
	})
	if err != nil {
		errors.Fatal(err)
	}

	store, err := cli.OpenStore(CLI.DB)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()

	appCtx := &cli.Context{
		Store:      store,
		Config:     cfg,
		ConfigFile: configFile,
	}

	// init, doctor and the keyring commands manage their own storage
	if selected != "init" && selected != "doctor" && group != "keyring" {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		errors.Fatal(err)
	}
}
