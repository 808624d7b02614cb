package constants

import "time"

const (
	AppName            = "moodlog"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/moodlog"
	DefaultDBPath      = "~/.config/moodlog/moodlog.db"
	DefaultConfigFile  = "~/.config/moodlog/config.yaml"
	Version            = "v0.2.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Slot constants
	SlotCount        = 3
	ActionableWindow = 5 * time.Minute
	MinSlotGap       = 6 * time.Hour
	PollInterval     = 5 * time.Second

	// Mood scale bounds
	MinMoodScore = 1
	MaxMoodScore = 5

	// Capture constants
	DefaultMinRecordDuration = 5 * time.Second
	DefaultMaxRecordDuration = 20 * time.Second
	RecordCutoffGrace        = 2 * time.Second
	DefaultLocateTimeout     = 10 * time.Second

	// Reminder constants
	DefaultReminderHorizonDays = 14
	MaxPendingNotifications    = 64
	CountdownFloor             = time.Second
	DefaultCancelSettleDelay   = 250 * time.Millisecond
	ReminderChannelID          = "default"
	ReminderChannelName        = "Mood journal reminders"

	// Upload constants
	DefaultUploadPath    = "/upload/full_record"
	DefaultUploadTimeout = 2 * time.Minute
	MediaDirName         = "vlogs"
	MediaFilePrefix      = "vlog_"
	MediaFileSuffix      = ".mp4"
	VideoMimeType        = "video/mp4"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "moodlog-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName   = "moodlog-notifier.lock"
	NotificationDurationMs = 8000
	TrayAppIdentifier      = "com.julianstephens.moodlog"
)
