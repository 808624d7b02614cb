package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/storage"
)

const upsertSetting = `INSERT INTO settings (key, value) VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

func (s *Store) GetTimeSettings() (models.TimeSlotConfig, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.TimeSlotConfig{}, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.TimeSlotConfig{}, err
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.TimeSlotConfig{}, err
	}
	return storage.DecodeTimeSettings(values)
}

func (s *Store) SaveTimeSettings(cfg models.TimeSlotConfig, today string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := storage.EncodeCompletionState(models.NewCompletionState(today))
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, value := range storage.TimeValues(cfg) {
		if _, err := tx.Exec(upsertSetting, constants.TimeSettingKeys[i], value); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(upsertSetting, constants.SettingLastSetDate, today); err != nil {
		return err
	}
	if _, err := tx.Exec(upsertSetting, constants.SettingRecordingStatus, status); err != nil {
		return err
	}
	return tx.Commit()
}

// lockStatus reads recordingStatus with a row lock so concurrent processes
// sharing the database serialize on it.
func lockStatus(tx *sql.Tx) (string, error) {
	var raw string
	err := tx.QueryRow("SELECT value FROM settings WHERE key = $1 FOR UPDATE", constants.SettingRecordingStatus).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return raw, err
}

func (s *Store) LoadCompletionState(today string) (models.DailyCompletionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return models.DailyCompletionState{}, err
	}
	defer tx.Rollback()

	raw, err := lockStatus(tx)
	if err != nil {
		return models.DailyCompletionState{}, err
	}
	state, stale := storage.DecodeCompletionState(raw, today)
	if !stale {
		return state, nil
	}

	logger.Debug("Resetting completion state", "stored", raw, "today", today)
	encoded, err := storage.EncodeCompletionState(state)
	if err != nil {
		return models.DailyCompletionState{}, err
	}
	if _, err := tx.Exec(upsertSetting, constants.SettingRecordingStatus, encoded); err != nil {
		return models.DailyCompletionState{}, err
	}
	return state, tx.Commit()
}

func (s *Store) MarkSlotCompleted(slot int, today string) (models.DailyCompletionState, error) {
	if slot < 1 || slot > constants.SlotCount {
		return models.DailyCompletionState{}, fmt.Errorf("invalid slot %d", slot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return models.DailyCompletionState{}, err
	}
	defer tx.Rollback()

	raw, err := lockStatus(tx)
	if err != nil {
		return models.DailyCompletionState{}, err
	}
	state, write := storage.MarkCompletion(raw, slot, today)
	if !write {
		logger.Warn("Skipping completion for a past day", "slot", slot, "date", today, "stored", state.Date)
		return state, nil
	}

	encoded, err := storage.EncodeCompletionState(state)
	if err != nil {
		return models.DailyCompletionState{}, err
	}
	if _, err := tx.Exec(upsertSetting, constants.SettingRecordingStatus, encoded); err != nil {
		return models.DailyCompletionState{}, err
	}
	return state, tx.Commit()
}
