package session

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/moodlog/internal/cli"
	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
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

	cfg := config.Default(dir)
	cfg.Reminders.Enabled = false
	return &cli.Context{Store: store, Config: cfg}
}

// openSlotNow saves times that put one slot in its window right now.
func openSlotNow(t *testing.T, ctx *cli.Context) int {
	t.Helper()
	now := ctx.Now()
	if now.Hour() == 23 && now.Minute() >= 54 {
		t.Skip("too close to midnight for a same-day slot window")
	}
	at := models.TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}
	gap := int(constants.MinSlotGap / time.Hour)

	var values []string
	slot := 1
	if at.Hour < 12 {
		values = []string{at.String(), hm(at.Hour+gap, at.Minute), hm(at.Hour+2*gap, at.Minute)}
	} else {
		values = []string{hm(at.Hour-2*gap, at.Minute), hm(at.Hour-gap, at.Minute), at.String()}
		slot = 3
	}
	cfg, err := models.ParseTimes(values)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.Store.SaveTimeSettings(cfg, utils.DateString(now)); err != nil {
		t.Fatal(err)
	}
	return slot
}

func hm(h, m int) string {
	return models.TimeOfDay{Hour: h, Minute: m}.String()
}

func TestStatusCmd(t *testing.T) {
	ctx := setupTestDB(t)
	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Errorf("status with no times failed: %v", err)
	}
	openSlotNow(t, ctx)
	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Errorf("status failed: %v", err)
	}
}

func TestRecordCmd_ImportedClip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	ctx := setupTestDB(t)
	ctx.Config.Upload.Endpoint = srv.URL
	slot := openSlotNow(t, ctx)

	clip := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(clip, []byte("not really a video"), 0600); err != nil {
		t.Fatal(err)
	}

	cmd := &RecordCmd{Mood: 4, Video: clip, Duration: 12 * time.Second}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	state, err := ctx.Store.LoadCompletionState(utils.DateString(ctx.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if !state.IsCompleted(slot) {
		t.Errorf("slot %d not marked completed: %+v", slot, state)
	}
	records, err := ctx.Store.ListRecords("")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Status != constants.RecordStatusUploaded || rec.RemoteID != "42" || rec.MoodScore != 4 || rec.DurationSeconds != 12 {
		t.Errorf("record = %+v", rec)
	}
	if _, err := os.Stat(clip); err != nil {
		t.Errorf("imported source should be left in place: %v", err)
	}

	// The slot is done, so a second capture is refused.
	if err := cmd.Run(ctx); err == nil {
		t.Error("second record for the same slot should fail")
	}
}

func TestRecordCmd_Validation(t *testing.T) {
	ctx := setupTestDB(t)
	if err := (&RecordCmd{Mood: 3, Facing: "sideways"}).Run(ctx); err == nil {
		t.Error("expected an error for an unknown facing")
	}
	ctx.Config.Capture.Recorder = "file"
	if err := (&RecordCmd{Mood: 3}).Run(ctx); err == nil {
		t.Error("file recorder without --video should fail")
	}
	clip := filepath.Join(t.TempDir(), "clip.mp4")
	_ = os.WriteFile(clip, []byte("x"), 0600)
	if err := (&RecordCmd{Mood: 9, Video: clip}).Run(ctx); err == nil {
		t.Error("out of range mood should fail")
	}
}
