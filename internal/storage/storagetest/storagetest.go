// Package storagetest holds the behaviour checks every storage.Provider must
// pass. Each backend's tests call Run with a constructor for a fresh store.
package storagetest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/storage"
)

// Run exercises newStore's provider. newStore must return an initialized,
// empty store and register its own cleanup.
func Run(t *testing.T, newStore func(t *testing.T) storage.Provider) {
	t.Run("TimeSettingsRoundTrip", func(t *testing.T) { testTimeSettingsRoundTrip(t, newStore(t)) })
	t.Run("SaveTimesLock", func(t *testing.T) { testSaveTimesLock(t, newStore(t)) })
	t.Run("SaveTimesRejectsInvalid", func(t *testing.T) { testSaveTimesRejectsInvalid(t, newStore(t)) })
	t.Run("CompletionRollover", func(t *testing.T) { testCompletionRollover(t, newStore(t)) })
	t.Run("CompletionMonotonic", func(t *testing.T) { testCompletionMonotonic(t, newStore(t)) })
	t.Run("LateMarkKeepsNewDay", func(t *testing.T) { testLateMarkKeepsNewDay(t, newStore(t)) })
	t.Run("ConcurrentMarks", func(t *testing.T) { testConcurrentMarks(t, newStore(t)) })
	t.Run("SaveTimesResetsCompletion", func(t *testing.T) { testSaveTimesResetsCompletion(t, newStore(t)) })
	t.Run("Records", func(t *testing.T) { testRecords(t, newStore(t)) })
}

func times(t *testing.T, values ...string) models.TimeSlotConfig {
	t.Helper()
	cfg, err := models.ParseTimes(values)
	if err != nil {
		t.Fatalf("ParseTimes() error = %v", err)
	}
	return cfg
}

func testTimeSettingsRoundTrip(t *testing.T, s storage.Provider) {
	empty, err := s.GetTimeSettings()
	if err != nil {
		t.Fatalf("GetTimeSettings() on empty store error = %v", err)
	}
	if empty.Configured() != 0 {
		t.Errorf("empty store has %d configured slots", empty.Configured())
	}

	if err := s.SaveTimeSettings(times(t, "08:00", "14:00", "20:30"), "2024-05-01"); err != nil {
		t.Fatalf("SaveTimeSettings() error = %v", err)
	}
	got, err := s.GetTimeSettings()
	if err != nil {
		t.Fatalf("GetTimeSettings() error = %v", err)
	}
	if got.LastSetDate != "2024-05-01" {
		t.Errorf("LastSetDate = %q", got.LastSetDate)
	}
	want := []string{"08:00", "14:00", "20:30"}
	for i, w := range want {
		if got.Times[i] == nil || got.Times[i].String() != w {
			t.Errorf("time %d = %v, want %s", i+1, got.Times[i], w)
		}
	}
}

func testSaveTimesLock(t *testing.T, s storage.Provider) {
	cfg := times(t, "08:00", "14:00", "20:00")
	if err := storage.SaveTimes(s, cfg, "2024-05-01", false); err != nil {
		t.Fatalf("first SaveTimes() error = %v", err)
	}
	if err := storage.SaveTimes(s, cfg, "2024-05-01", false); !errors.Is(err, storage.ErrTimesLocked) {
		t.Errorf("second SaveTimes() same day error = %v, want ErrTimesLocked", err)
	}
	if err := storage.SaveTimes(s, cfg, "2024-05-01", true); err != nil {
		t.Errorf("forced SaveTimes() error = %v", err)
	}
	if err := storage.SaveTimes(s, cfg, "2024-05-02", false); err != nil {
		t.Errorf("next-day SaveTimes() error = %v", err)
	}
}

func testSaveTimesRejectsInvalid(t *testing.T, s storage.Provider) {
	err := storage.SaveTimes(s, times(t, "08:00", "13:00", "20:00"), "2024-05-01", false)
	if err == nil {
		t.Fatal("SaveTimes() with a 5h gap should fail")
	}
	got, err := s.GetTimeSettings()
	if err != nil {
		t.Fatalf("GetTimeSettings() error = %v", err)
	}
	if got.Configured() != 0 || got.LastSetDate != "" {
		t.Errorf("invalid config was persisted: %+v", got)
	}
}

func testCompletionRollover(t *testing.T, s storage.Provider) {
	if _, err := s.MarkSlotCompleted(1, "2024-05-01"); err != nil {
		t.Fatalf("MarkSlotCompleted() error = %v", err)
	}
	state, err := s.LoadCompletionState("2024-05-02")
	if err != nil {
		t.Fatalf("LoadCompletionState() error = %v", err)
	}
	if state.Date != "2024-05-02" {
		t.Errorf("Date = %q, want 2024-05-02", state.Date)
	}
	for i := 1; i <= constants.SlotCount; i++ {
		if state.IsCompleted(i) {
			t.Errorf("slot %d completed after rollover", i)
		}
	}
}

func testCompletionMonotonic(t *testing.T, s storage.Provider) {
	const today = "2024-05-01"
	if _, err := s.MarkSlotCompleted(2, today); err != nil {
		t.Fatalf("MarkSlotCompleted(2) error = %v", err)
	}
	if _, err := s.MarkSlotCompleted(1, today); err != nil {
		t.Fatalf("MarkSlotCompleted(1) error = %v", err)
	}
	state, err := s.LoadCompletionState(today)
	if err != nil {
		t.Fatalf("LoadCompletionState() error = %v", err)
	}
	if !state.IsCompleted(1) || !state.IsCompleted(2) || state.IsCompleted(3) {
		t.Errorf("state = %+v, want slots 1 and 2 completed", state)
	}
	if _, err := s.MarkSlotCompleted(4, today); err == nil {
		t.Error("MarkSlotCompleted(4) should fail")
	}
}

func testLateMarkKeepsNewDay(t *testing.T, s storage.Provider) {
	// The day rolled over while a capture from the previous evening was
	// still recording.
	if _, err := s.MarkSlotCompleted(1, "2024-05-02"); err != nil {
		t.Fatalf("MarkSlotCompleted() error = %v", err)
	}
	state, err := s.MarkSlotCompleted(3, "2024-05-01")
	if err != nil {
		t.Fatalf("MarkSlotCompleted() for the previous day error = %v", err)
	}
	if state.Date != "2024-05-02" {
		t.Errorf("returned Date = %q, want the stored 2024-05-02", state.Date)
	}

	state, err = s.LoadCompletionState("2024-05-02")
	if err != nil {
		t.Fatalf("LoadCompletionState() error = %v", err)
	}
	if !state.IsCompleted(1) || state.IsCompleted(3) {
		t.Errorf("state = %+v, want only slot 1 completed on 2024-05-02", state)
	}
}

func testConcurrentMarks(t *testing.T, s storage.Provider) {
	const today = "2024-05-01"
	var wg sync.WaitGroup
	errs := make(chan error, constants.SlotCount)
	for slot := 1; slot <= constants.SlotCount; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			if _, err := s.MarkSlotCompleted(slot, today); err != nil {
				errs <- err
			}
		}(slot)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("MarkSlotCompleted() error = %v", err)
	}

	state, err := s.LoadCompletionState(today)
	if err != nil {
		t.Fatalf("LoadCompletionState() error = %v", err)
	}
	for i := 1; i <= constants.SlotCount; i++ {
		if !state.IsCompleted(i) {
			t.Errorf("slot %d lost its completion flag", i)
		}
	}
}

func testSaveTimesResetsCompletion(t *testing.T, s storage.Provider) {
	const today = "2024-05-01"
	if _, err := s.MarkSlotCompleted(1, today); err != nil {
		t.Fatalf("MarkSlotCompleted() error = %v", err)
	}
	if err := s.SaveTimeSettings(times(t, "09:00", "15:00", "21:00"), today); err != nil {
		t.Fatalf("SaveTimeSettings() error = %v", err)
	}
	state, err := s.LoadCompletionState(today)
	if err != nil {
		t.Fatalf("LoadCompletionState() error = %v", err)
	}
	if state.IsCompleted(1) {
		t.Error("saving times should reset today's completion")
	}
}

func testRecords(t *testing.T, s storage.Provider) {
	lat, lng := 52.52, 13.405
	older := models.Record{
		ID: uuid.NewString(), Slot: 1, MoodScore: 3, Latitude: &lat, Longitude: &lng,
		DurationSeconds: 12, VideoPath: "/tmp/a.mp4", Status: constants.RecordStatusPending,
		CreatedAt: time.Date(2024, 5, 1, 8, 1, 0, 0, time.UTC),
	}
	newer := models.Record{
		ID: uuid.NewString(), Slot: 2, MoodScore: 5, DurationSeconds: 20,
		VideoPath: "/tmp/b.mp4", Status: constants.RecordStatusPending,
		CreatedAt: time.Date(2024, 5, 1, 14, 2, 0, 0, time.UTC),
	}
	for _, r := range []models.Record{older, newer} {
		if err := s.AddRecord(r); err != nil {
			t.Fatalf("AddRecord() error = %v", err)
		}
	}

	got, err := s.GetRecord(older.ID)
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if loc := got.Location(); loc == nil || loc.Latitude != lat || loc.Longitude != lng {
		t.Errorf("location = %+v", got.Location())
	}
	if !got.CreatedAt.Equal(older.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, older.CreatedAt)
	}

	uploadedAt := time.Date(2024, 5, 1, 8, 2, 0, 0, time.UTC)
	got.Status = constants.RecordStatusUploaded
	got.RemoteID = "srv-42"
	got.UploadedAt = &uploadedAt
	if err := s.UpdateRecord(got); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}

	newer.Status = constants.RecordStatusFailed
	newer.Error = "server said no"
	if err := s.UpdateRecord(newer); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}

	all, err := s.ListRecords("")
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID {
		t.Fatalf("ListRecords() = %d records, first %v; want newest first", len(all), all)
	}
	failed, err := s.ListRecords(constants.RecordStatusFailed)
	if err != nil {
		t.Fatalf("ListRecords(failed) error = %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "server said no" {
		t.Errorf("ListRecords(failed) = %+v", failed)
	}
	uploaded, _ := s.GetRecord(older.ID)
	if uploaded.RemoteID != "srv-42" || uploaded.UploadedAt == nil || !uploaded.UploadedAt.Equal(uploadedAt) {
		t.Errorf("uploaded record = %+v", uploaded)
	}

	if _, err := s.GetRecord("missing"); !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("GetRecord(missing) error = %v, want ErrRecordNotFound", err)
	}
	if err := s.UpdateRecord(models.Record{ID: "missing"}); !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("UpdateRecord(missing) error = %v, want ErrRecordNotFound", err)
	}

	n, err := s.ClearRecords()
	if err != nil || n != 2 {
		t.Errorf("ClearRecords() = %d, %v; want 2", n, err)
	}
	if left, _ := s.ListRecords(""); len(left) != 0 {
		t.Errorf("%d records left after clear", len(left))
	}
}
