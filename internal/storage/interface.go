package storage

import "github.com/julianstephens/moodlog/internal/models"

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Time slots. SaveTimeSettings persists the times with LastSetDate=today
	// and resets today's completion state in the same transaction.
	GetTimeSettings() (models.TimeSlotConfig, error)
	SaveTimeSettings(cfg models.TimeSlotConfig, today string) error

	// Completion state. LoadCompletionState replaces a record from another
	// date with a fresh all-false one for today. MarkSlotCompleted is a single
	// read-modify-write transaction and leaves a later day's state untouched.
	LoadCompletionState(today string) (models.DailyCompletionState, error)
	MarkSlotCompleted(slot int, today string) (models.DailyCompletionState, error)

	// Records
	AddRecord(models.Record) error
	UpdateRecord(models.Record) error
	GetRecord(id string) (models.Record, error)
	// ListRecords returns records newest first; an empty status lists all.
	ListRecords(status string) ([]models.Record, error)
	ClearRecords() (int, error)

	// Utils
	GetConfigPath() string
}

// SchemaReporter is implemented by stores backed by versioned migrations.
type SchemaReporter interface {
	SchemaStatus() (current, latest int, err error)
}
