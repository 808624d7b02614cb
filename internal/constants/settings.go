package constants

const (
	// Settings store keys
	SettingTime1           = "time1"
	SettingTime2           = "time2"
	SettingTime3           = "time3"
	SettingLastSetDate     = "lastSetDate"
	SettingRecordingStatus = "recordingStatus"

	// Record status values
	RecordStatusPending  = "pending"
	RecordStatusUploaded = "uploaded"
	RecordStatusFailed   = "failed"
)

// TimeSettingKeys lists the per-slot time keys in slot order.
var TimeSettingKeys = [SlotCount]string{SettingTime1, SettingTime2, SettingTime3}
