package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/moodlog/internal/app"
	"github.com/julianstephens/moodlog/internal/backup"
	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/di"
	"github.com/julianstephens/moodlog/internal/keyring"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/recorder"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/storage/postgres"
	"github.com/julianstephens/moodlog/internal/storage/sqlite"
	"github.com/julianstephens/moodlog/internal/upload"
	"github.com/julianstephens/moodlog/internal/utils"
)

// PostgresFromKeyring is the --db value that reads the connection string from
// MOODLOG_DB_CONNECTION or the OS keyring.
const PostgresFromKeyring = "postgres"

type Context struct {
	Store  storage.Provider
	Config *config.Config
	// ConfigFile is the --config path, whether or not the file exists.
	ConfigFile string
	// In is read by confirmation prompts.
	In io.Reader
}

// OpenStore picks the backend for a --db value: a SQLite file path, a
// password-less PostgreSQL URL, or "postgres" for a stored connection string.
func OpenStore(db string) (storage.Provider, error) {
	connStr := db
	if db == PostgresFromKeyring {
		resolved, source, err := keyring.ResolveConnectionString()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("no PostgreSQL connection string found; set %s or run 'moodlog keyring set'", keyring.ConnectionEnvVar)
			}
			return nil, err
		}
		logger.Debug("Using PostgreSQL connection string", "source", source)
		return postgres.New(resolved), nil
	}

	if postgres.IsConnString(connStr) {
		if _, err := postgres.ValidateConnString(connStr); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL connection strings with embedded credentials are not allowed; store it with 'moodlog keyring set' and pass --db=postgres, or use %s or .pgpass", keyring.ConnectionEnvVar)
			}
			return nil, err
		}
		return postgres.New(connStr), nil
	}

	path, err := utils.ExpandHome(db)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	return sqlite.NewStore(path), nil
}

// IsSQLite reports whether the store is a local database file.
func (c *Context) IsSQLite() bool {
	_, ok := c.Store.(*sqlite.Store)
	return ok
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if !c.IsSQLite() {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Location is the configured timezone.
func (c *Context) Location() *time.Location {
	loc, err := utils.LoadLocation(c.Config.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Now is the current time in the configured timezone.
func (c *Context) Now() time.Time {
	return time.Now().In(c.Location())
}

// NewApp assembles the process services around the already-loaded store. A
// nil recorder selects the one named in the config.
func (c *Context) NewApp(rec recorder.Recorder, foreground bool) (*app.App, error) {
	if rec == nil {
		rec = di.ProvideRecorder(c.Config)
	}
	return di.InitApp(c.Config, c.Store, rec, di.Foreground(foreground))
}

// Confirm asks a yes/no question on stdout and reads the answer from c.In.
func (c *Context) Confirm(question string) (bool, error) {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	fmt.Printf("%s [y/N]: ", question)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// PrintNotice writes an upload outcome the way every command reports it.
func PrintNotice(n upload.Notice) {
	mark := "❌"
	if n.Success {
		mark = "✓"
	}
	fmt.Printf("%s %s: %s\n", mark, n.Title, n.Message)
	if n.RecordID != "" {
		fmt.Printf("  Record: %s\n", n.RecordID)
	}
}
