package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/julianstephens/moodlog/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	conf, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if conf.Path != "" {
		t.Errorf("Path = %q, want empty for a missing file", conf.Path)
	}
	if conf.Upload.Path != "/upload/full_record" {
		t.Errorf("Upload.Path = %q", conf.Upload.Path)
	}
	if !conf.Upload.DeleteAfterUpload {
		t.Error("DeleteAfterUpload should default to true")
	}
	if conf.Capture.MaxDuration != 20*time.Second || conf.Capture.MinDuration != 5*time.Second {
		t.Errorf("capture durations = %v/%v", conf.Capture.MinDuration, conf.Capture.MaxDuration)
	}
	if conf.Reminders.HorizonDays != 14 {
		t.Errorf("HorizonDays = %d, want 14", conf.Reminders.HorizonDays)
	}
	if want := filepath.Join(dir, "vlogs"); conf.MediaDir != want {
		t.Errorf("MediaDir = %q, want %q", conf.MediaDir, want)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
upload:
  endpoint: https://journal.example.com
  timeout: 30s
  deleteAfterUpload: false
capture:
  recorder: file
  maxDuration: 15s
location:
  provider: static
  latitude: 52.52
  longitude: 13.40
reminders:
  horizonDays: 7
`)
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if conf.Path != path {
		t.Errorf("Path = %q, want %q", conf.Path, path)
	}
	if conf.Upload.Timeout != 30*time.Second {
		t.Errorf("Upload.Timeout = %v", conf.Upload.Timeout)
	}
	if conf.Upload.DeleteAfterUpload {
		t.Error("DeleteAfterUpload should be false")
	}
	if conf.Capture.Recorder != "file" || conf.Capture.MaxDuration != 15*time.Second {
		t.Errorf("capture = %+v", conf.Capture)
	}
	if conf.Location.Latitude != 52.52 {
		t.Errorf("Latitude = %v", conf.Location.Latitude)
	}
	if conf.Reminders.HorizonDays != 7 {
		t.Errorf("HorizonDays = %d", conf.Reminders.HorizonDays)
	}
	if got := conf.UploadURL(); got != "https://journal.example.com/upload/full_record" {
		t.Errorf("UploadURL() = %q", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MOODLOG_UPLOAD_ENDPOINT", "http://127.0.0.1:8000/")
	t.Setenv("MOODLOG_LOG_LEVEL", "debug")

	conf, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if conf.Upload.Endpoint != "http://127.0.0.1:8000/" {
		t.Errorf("Endpoint = %q", conf.Upload.Endpoint)
	}
	if conf.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", conf.Log.Level)
	}
	if got := conf.UploadURL(); got != "http://127.0.0.1:8000/upload/full_record" {
		t.Errorf("UploadURL() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown recorder", mutate: func(c *Config) { c.Capture.Recorder = "webcam" }},
		{name: "unknown facing", mutate: func(c *Config) { c.Capture.Facing = "sideways" }},
		{name: "max below min", mutate: func(c *Config) { c.Capture.MaxDuration = 3 * time.Second }},
		{name: "command recorder without command", mutate: func(c *Config) { c.Capture.Command = nil }},
		{name: "http location without url", mutate: func(c *Config) { c.Location.Provider = "http" }},
		{name: "latitude out of range", mutate: func(c *Config) { c.Location.Latitude = 123 }},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Moon/Base" }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "chatty" }},
		{name: "relative endpoint", mutate: func(c *Config) { c.Upload.Endpoint = "journal.local" }},
		{name: "zero horizon", mutate: func(c *Config) { c.Reminders.HorizonDays = 0 }},
	}

	if err := Default(t.TempDir()).Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default(t.TempDir())
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, apperrors.ErrConfiguration) {
				t.Errorf("Validate() error = %v, want a configuration error", err)
			}
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "capture:\n  facing: [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed yaml")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	ok, err := WriteDefault(path)
	if err != nil || !ok {
		t.Fatalf("WriteDefault() = %v, %v", ok, err)
	}
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written defaults error = %v", err)
	}
	if conf.Path != path {
		t.Errorf("Path = %q, want %q", conf.Path, path)
	}
	if conf.Capture.MaxDuration != 20*time.Second || conf.Reminders.HorizonDays != 14 {
		t.Errorf("round-tripped config = %+v", conf)
	}

	ok, err = WriteDefault(path)
	if err != nil || ok {
		t.Errorf("second WriteDefault() = %v, %v, want false, nil", ok, err)
	}
}
