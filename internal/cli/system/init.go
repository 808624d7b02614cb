package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/config"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing SQLite database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force && ctx.IsSQLite() {
		dbPath := ctx.Store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			// Close first so the file is not held open
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized moodlog storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.ConfigFile == "" {
		return nil
	}
	written, err := config.WriteDefault(ctx.ConfigFile)
	if err != nil {
		return err
	}
	if written {
		fmt.Printf("Wrote default config to: %s\n", ctx.ConfigFile)
		fmt.Println("  Set upload.endpoint before recording.")
	}
	return nil
}
