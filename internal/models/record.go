package models

import "time"

// Record is the local ledger entry for one capture and its upload outcome.
type Record struct {
	ID              string
	Slot            int
	MoodScore       int
	Latitude        *float64
	Longitude       *float64
	DurationSeconds int
	VideoPath       string
	Status          string
	RemoteID        string
	Error           string
	CreatedAt       time.Time
	UploadedAt      *time.Time
}

// Location returns the record's coordinates, or nil when none were captured.
func (r Record) Location() *Location {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
}
