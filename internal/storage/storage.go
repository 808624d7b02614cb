package storage

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
)

var (
	ErrTimesLocked    = errors.New("recording times were already set today; they can be changed again tomorrow")
	ErrRecordNotFound = errors.New("record not found")
)

// SaveTimes validates cfg and persists it for today. Unless force is set, a
// second save on the same calendar day fails with ErrTimesLocked.
func SaveTimes(p Provider, cfg models.TimeSlotConfig, today string, force bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !force {
		current, err := p.GetTimeSettings()
		if err != nil {
			return fmt.Errorf("failed to read current times: %w", err)
		}
		if !current.CanEdit(today) {
			return ErrTimesLocked
		}
	}
	return p.SaveTimeSettings(cfg, today)
}

// TimeValues encodes cfg as the per-slot settings values, "" for unset.
func TimeValues(cfg models.TimeSlotConfig) [constants.SlotCount]string {
	var out [constants.SlotCount]string
	for i, t := range cfg.Times {
		if t != nil {
			out[i] = t.String()
		}
	}
	return out
}

// DecodeTimeSettings builds a config from raw settings rows. Unknown keys are
// ignored and empty values leave a slot unset.
func DecodeTimeSettings(values map[string]string) (models.TimeSlotConfig, error) {
	var cfg models.TimeSlotConfig
	for i, key := range constants.TimeSettingKeys {
		raw := values[key]
		if raw == "" {
			continue
		}
		t, err := models.ParseTimeOfDay(raw)
		if err != nil {
			return models.TimeSlotConfig{}, fmt.Errorf("parsing %s: %w", key, err)
		}
		cfg.Times[i] = &t
	}
	cfg.LastSetDate = values[constants.SettingLastSetDate]
	return cfg, nil
}

// DecodeCompletionState parses the recordingStatus blob for today. It reports
// stale=true when the stored state is missing, unreadable or from another
// date, in which case the returned state is a fresh one the caller should
// persist.
func DecodeCompletionState(raw string, today string) (state models.DailyCompletionState, stale bool) {
	if raw == "" {
		return models.NewCompletionState(today), true
	}
	var stored models.DailyCompletionState
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return models.NewCompletionState(today), true
	}
	if stored.Date != today {
		return models.NewCompletionState(today), true
	}
	return stored, false
}

// MarkCompletion applies a completed slot on date to the stored blob. It
// returns write=false, with the stored state, when the blob already belongs
// to a later day.
func MarkCompletion(raw string, slot int, date string) (state models.DailyCompletionState, write bool) {
	if raw != "" {
		var stored models.DailyCompletionState
		if err := json.Unmarshal([]byte(raw), &stored); err == nil && stored.Date > date {
			return stored, false
		}
	}
	state, _ = DecodeCompletionState(raw, date)
	state.MarkCompleted(slot)
	return state, true
}

// EncodeCompletionState serializes state for the recordingStatus key.
func EncodeCompletionState(state models.DailyCompletionState) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
