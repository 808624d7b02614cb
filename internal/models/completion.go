package models

import (
	"github.com/goccy/go-json"

	"github.com/julianstephens/moodlog/internal/constants"
)

// DailyCompletionState records which slots were captured on Date.
type DailyCompletionState struct {
	Date      string
	Completed [constants.SlotCount]bool
}

// NewCompletionState returns an all-false state for date.
func NewCompletionState(date string) DailyCompletionState {
	return DailyCompletionState{Date: date}
}

// completionWire is the persisted recordingStatus layout.
type completionWire struct {
	Date        string `json:"date"`
	T1Completed bool   `json:"t1_completed"`
	T2Completed bool   `json:"t2_completed"`
	T3Completed bool   `json:"t3_completed"`
}

func (s DailyCompletionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(completionWire{
		Date:        s.Date,
		T1Completed: s.Completed[0],
		T2Completed: s.Completed[1],
		T3Completed: s.Completed[2],
	})
}

func (s *DailyCompletionState) UnmarshalJSON(data []byte) error {
	var w completionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Date = w.Date
	s.Completed = [constants.SlotCount]bool{w.T1Completed, w.T2Completed, w.T3Completed}
	return nil
}

// ForDate returns s if it belongs to today, otherwise a fresh state.
func (s DailyCompletionState) ForDate(today string) DailyCompletionState {
	if s.Date != today {
		return NewCompletionState(today)
	}
	return s
}

// MarkCompleted flips the flag for the 1-based slot index. Flags never revert.
func (s *DailyCompletionState) MarkCompleted(index int) {
	if index >= 1 && index <= constants.SlotCount {
		s.Completed[index-1] = true
	}
}

// IsCompleted reports the flag for the 1-based slot index.
func (s DailyCompletionState) IsCompleted(index int) bool {
	if index < 1 || index > constants.SlotCount {
		return false
	}
	return s.Completed[index-1]
}
