package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestDailyCompletionStateJSON(t *testing.T) {
	state := NewCompletionState("2024-05-01")
	state.MarkCompleted(2)

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, want := range []string{`"date":"2024-05-01"`, `"t1_completed":false`, `"t2_completed":true`, `"t3_completed":false`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("marshalled %s, missing %s", data, want)
		}
	}

	var decoded DailyCompletionState
	if err := json.Unmarshal([]byte(`{"date":"2024-05-02","t1_completed":true,"t2_completed":false,"t3_completed":true}`), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Date != "2024-05-02" || !decoded.IsCompleted(1) || decoded.IsCompleted(2) || !decoded.IsCompleted(3) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDailyCompletionStateForDate(t *testing.T) {
	state := NewCompletionState("2024-05-01")
	state.MarkCompleted(1)

	if same := state.ForDate("2024-05-01"); !same.IsCompleted(1) {
		t.Error("same-day state should be kept")
	}
	fresh := state.ForDate("2024-05-02")
	if fresh.Date != "2024-05-02" || fresh.IsCompleted(1) || fresh.IsCompleted(2) || fresh.IsCompleted(3) {
		t.Errorf("rollover state = %+v, want all false for new date", fresh)
	}
}

func TestMarkCompletedIsMonotonic(t *testing.T) {
	state := NewCompletionState("2024-05-01")
	state.MarkCompleted(3)
	state.MarkCompleted(3)
	state.MarkCompleted(0)
	state.MarkCompleted(4)
	if !state.IsCompleted(3) || state.IsCompleted(1) || state.IsCompleted(2) {
		t.Errorf("state = %+v", state)
	}
}
