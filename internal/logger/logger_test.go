package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message", "slot", 1)
	Error("Test error message")
}

func TestInitLevelOverride(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir, Level: "info"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := Logger.GetLevel().String(); got != "info" {
		t.Errorf("level = %q, want info", got)
	}

	if err := Init(Config{ConfigDir: configDir, Level: "chatty"}); err == nil {
		t.Error("Init() with unknown level should fail")
	}
}

func TestComponent(t *testing.T) {
	Logger = nil
	// Must not panic before Init.
	Component("upload").Info("dropped")

	if err := Init(Config{ConfigDir: t.TempDir(), Debug: true, Quiet: true}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := Component("upload").GetPrefix(); got != "moodlog/upload" {
		t.Errorf("Component prefix = %q, want moodlog/upload", got)
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}
