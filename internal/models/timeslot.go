package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
)

// TimeOfDay is a wall-clock time with minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On anchors t on day's calendar date in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// SlotID is the wire identifier for a 1-based slot index: "t1", "t2", "t3".
func SlotID(index int) string {
	return fmt.Sprintf("t%d", index)
}

// ParseSlotID is the inverse of SlotID.
func ParseSlotID(id string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(id, "t%d", &n); err != nil || n < 1 || n > constants.SlotCount || SlotID(n) != id {
		return 0, fmt.Errorf("invalid slot id %q", id)
	}
	return n, nil
}

// TimeSlotConfig holds the three user-chosen recording times. A nil entry is
// an unconfigured slot.
type TimeSlotConfig struct {
	Times       [constants.SlotCount]*TimeOfDay
	LastSetDate string
}

// Configured reports how many slots have a time.
func (c TimeSlotConfig) Configured() int {
	n := 0
	for _, t := range c.Times {
		if t != nil {
			n++
		}
	}
	return n
}

// Validate enforces the write-time invariant: every slot set and each slot at
// least MinSlotGap after the previous one.
func (c TimeSlotConfig) Validate() error {
	for i, t := range c.Times {
		if t == nil {
			return errors.Configuration("validate times", fmt.Sprintf("time %d is not set", i+1))
		}
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return errors.Configuration("validate times", fmt.Sprintf("time %d is out of range", i+1))
		}
	}
	gap := int(constants.MinSlotGap / time.Minute)
	for i := 1; i < len(c.Times); i++ {
		if c.Times[i].Minutes() < c.Times[i-1].Minutes()+gap {
			return errors.Configuration("validate times", fmt.Sprintf(
				"time %d (%s) must be at least %d hours after time %d (%s)",
				i+1, c.Times[i], gap/60, i, c.Times[i-1]))
		}
	}
	return nil
}

// CanEdit reports whether times may be saved on today; they can be set once
// per calendar day.
func (c TimeSlotConfig) CanEdit(today string) bool {
	return c.LastSetDate != today
}

// ParseTimes builds a config from "HH:MM" strings. Empty strings leave the
// slot unset.
func ParseTimes(values []string) (TimeSlotConfig, error) {
	var cfg TimeSlotConfig
	if len(values) > constants.SlotCount {
		return cfg, errors.Configuration("parse times", fmt.Sprintf("at most %d times allowed", constants.SlotCount))
	}
	for i, v := range values {
		if v == "" {
			continue
		}
		t, err := ParseTimeOfDay(v)
		if err != nil {
			return cfg, errors.Configuration("parse times", err.Error())
		}
		cfg.Times[i] = &t
	}
	return cfg, nil
}
