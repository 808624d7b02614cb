package models

import "time"

type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

// Toggle returns the other camera.
func (f Facing) Toggle() Facing {
	if f == FacingBack {
		return FacingFront
	}
	return FacingBack
}

// Location is a single geolocation fix.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CaptureSession is one in-progress entry. It lives only in memory and is
// handed to the uploader once recording ends.
type CaptureSession struct {
	Slot            int
	MoodScore       int
	Location        *Location
	VideoPath       string
	DurationSeconds int
	CapturedAt      time.Time
}
