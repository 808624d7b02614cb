package models

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/julianstephens/moodlog/internal/errors"
)

func mustTimes(t *testing.T, values ...string) TimeSlotConfig {
	t.Helper()
	cfg, err := ParseTimes(values)
	if err != nil {
		t.Fatalf("ParseTimes(%v) error = %v", values, err)
	}
	return cfg
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "08:00", want: TimeOfDay{8, 0}},
		{in: "23:59", want: TimeOfDay{23, 59}},
		{in: "7:05", want: TimeOfDay{7, 5}},
		{in: "24:00", wantErr: true},
		{in: "noon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeOfDay(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	if s := (TimeOfDay{7, 5}).String(); s != "07:05" {
		t.Errorf("String() = %q, want 07:05", s)
	}
}

func TestTimeSlotConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		times   []string
		wantErr bool
	}{
		{name: "six hour gaps", times: []string{"08:00", "14:00", "20:00"}},
		{name: "wider gaps", times: []string{"06:30", "13:00", "22:15"}},
		{name: "second too early", times: []string{"08:00", "13:00", "20:00"}, wantErr: true},
		{name: "third too early", times: []string{"08:00", "14:00", "19:59"}, wantErr: true},
		{name: "out of order", times: []string{"20:00", "14:00", "08:00"}, wantErr: true},
		{name: "missing time", times: []string{"08:00", "", "20:00"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mustTimes(t, tt.times...).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrConfiguration) {
				t.Errorf("Validate() error kind = %v, want configuration", apperrors.KindOf(err))
			}
		})
	}
}

func TestTimeSlotConfigCanEdit(t *testing.T) {
	cfg := mustTimes(t, "08:00", "14:00", "20:00")
	cfg.LastSetDate = "2024-05-01"
	if cfg.CanEdit("2024-05-01") {
		t.Error("times set today should be locked")
	}
	if !cfg.CanEdit("2024-05-02") {
		t.Error("lock should lift on the next day")
	}
	if cfg.Configured() != 3 {
		t.Errorf("Configured() = %d, want 3", cfg.Configured())
	}
}

func TestTimeOfDayOn(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Berlin")
	day := time.Date(2024, 5, 1, 23, 10, 0, 0, loc)
	got := TimeOfDay{8, 30}.On(day)
	if got.Hour() != 8 || got.Minute() != 30 || got.Day() != 1 || got.Location() != loc {
		t.Errorf("On() = %v", got)
	}
}

func TestSlotID(t *testing.T) {
	for i := 1; i <= 3; i++ {
		n, err := ParseSlotID(SlotID(i))
		if err != nil || n != i {
			t.Errorf("ParseSlotID(SlotID(%d)) = %d, %v", i, n, err)
		}
	}
	for _, bad := range []string{"t0", "t4", "slot1", "t01"} {
		if _, err := ParseSlotID(bad); err == nil {
			t.Errorf("ParseSlotID(%q) should fail", bad)
		}
	}
}
