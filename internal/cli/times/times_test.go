package times

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/storage/sqlite"
	"github.com/julianstephens/moodlog/internal/utils"
)

func setupTestDB(t *testing.T) *cli.Context {
	t.Helper()
	dir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(dir, "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &cli.Context{Store: store, Config: config.Default(dir)}
}

func TestSetCmd(t *testing.T) {
	ctx := setupTestDB(t)

	if err := (&SetCmd{Times: []string{"08:00", "14:00", "20:00"}}).Run(ctx); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	cfg, err := ctx.Store.GetTimeSettings()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Times[1].String() != "14:00" {
		t.Errorf("time 2 = %v, want 14:00", cfg.Times[1])
	}
	if cfg.LastSetDate != utils.DateString(ctx.Now()) {
		t.Errorf("LastSetDate = %q", cfg.LastSetDate)
	}

	err = (&SetCmd{Times: []string{"09:00", "15:00", "21:00"}}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second set the same day error = %v, want lock error", err)
	}
	if err := (&SetCmd{Times: []string{"09:00", "15:00", "21:00"}, Force: true}).Run(ctx); err != nil {
		t.Errorf("forced set failed: %v", err)
	}
}

func TestSetCmd_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		times []string
	}{
		{"too few", []string{"08:00", "14:00"}},
		{"gap too small", []string{"08:00", "13:59", "20:00"}},
		{"bad format", []string{"8am", "14:00", "20:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestDB(t)
			if err := (&SetCmd{Times: tt.times}).Run(ctx); err == nil {
				t.Error("expected an error")
			}
			cfg, _ := ctx.Store.GetTimeSettings()
			if cfg.Configured() != 0 {
				t.Error("invalid times were persisted")
			}
		})
	}
}

func TestShowCmd(t *testing.T) {
	ctx := setupTestDB(t)
	if err := (&ShowCmd{}).Run(ctx); err != nil {
		t.Errorf("show with no times failed: %v", err)
	}
	if err := (&SetCmd{Times: []string{"06:00", "12:00", "18:00"}}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&ShowCmd{}).Run(ctx); err != nil {
		t.Errorf("show failed: %v", err)
	}
}
