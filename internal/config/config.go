package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/utils"
)

const envPrefix = "MOODLOG"

type UploadConfig struct {
	Endpoint          string        `mapstructure:"endpoint" validate:"fullUrl"`
	Path              string        `mapstructure:"path" validate:"required|startsWith:/"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"required|min:1"`
	DeleteAfterUpload bool          `mapstructure:"deleteAfterUpload"`
	RetryOnLaunch     bool          `mapstructure:"retryOnLaunch"`
}

type CaptureConfig struct {
	// Recorder is "command" (run Command) or "file" (import an existing clip).
	Recorder    string        `mapstructure:"recorder" validate:"required|in:command,file"`
	Command     []string      `mapstructure:"command"`
	Facing      string        `mapstructure:"facing" validate:"required|in:front,back"`
	MinDuration time.Duration `mapstructure:"minDuration" validate:"required|min:1"`
	MaxDuration time.Duration `mapstructure:"maxDuration" validate:"required|min:1"`
}

type LocationConfig struct {
	Provider  string        `mapstructure:"provider" validate:"required|in:static,http"`
	Latitude  float64       `mapstructure:"latitude" validate:"min:-90|max:90"`
	Longitude float64       `mapstructure:"longitude" validate:"min:-180|max:180"`
	URL       string        `mapstructure:"url" validate:"fullUrl"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"required|min:1"`
}

type ReminderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	HorizonDays int           `mapstructure:"horizonDays" validate:"required|min:1|max:60"`
	SettleDelay time.Duration `mapstructure:"settleDelay" validate:"min:0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"in:debug,info,warn,error"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the decoded config.yaml, after defaults and MOODLOG_* overrides.
type Config struct {
	Timezone  string         `mapstructure:"timezone"`
	MediaDir  string         `mapstructure:"mediaDir"`
	Log       LogConfig      `mapstructure:"log"`
	Upload    UploadConfig   `mapstructure:"upload"`
	Capture   CaptureConfig  `mapstructure:"capture"`
	Location  LocationConfig `mapstructure:"location"`
	Reminders ReminderConfig `mapstructure:"reminders"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`

	// Path is the file the config was read from, empty when none existed.
	Path string `mapstructure:"-"`
}

// DefaultCaptureCommand records from the first V4L2 camera and the default
// ALSA input, stopping at the duration cap on its own.
var DefaultCaptureCommand = []string{
	"ffmpeg", "-y", "-loglevel", "error",
	"-f", "v4l2", "-i", "/dev/video0",
	"-f", "alsa", "-i", "default",
	"-t", "{max_seconds}", "{output}",
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("timezone", "Local")
	v.SetDefault("mediaDir", filepath.Join(configDir, constants.MediaDirName))
	v.SetDefault("log.level", "")

	v.SetDefault("upload.endpoint", "")
	v.SetDefault("upload.path", constants.DefaultUploadPath)
	v.SetDefault("upload.timeout", constants.DefaultUploadTimeout)
	v.SetDefault("upload.deleteAfterUpload", true)
	v.SetDefault("upload.retryOnLaunch", false)

	v.SetDefault("capture.recorder", "command")
	v.SetDefault("capture.command", DefaultCaptureCommand)
	v.SetDefault("capture.facing", "front")
	v.SetDefault("capture.minDuration", constants.DefaultMinRecordDuration)
	v.SetDefault("capture.maxDuration", constants.DefaultMaxRecordDuration)

	v.SetDefault("location.provider", "static")
	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("location.url", "")
	v.SetDefault("location.timeout", constants.DefaultLocateTimeout)

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.horizonDays", constants.DefaultReminderHorizonDays)
	v.SetDefault("reminders.settleDelay", constants.DefaultCancelSettleDelay)

	v.SetDefault("metrics.enabled", false)
}

// Load reads path (optional; a missing file yields defaults), applies
// MOODLOG_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	expanded, err := utils.ExpandHome(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	v := viper.New()
	setDefaults(v, filepath.Dir(expanded))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// camelCase keys would otherwise map to run-together env names
	_ = v.BindEnv("upload.endpoint", "MOODLOG_UPLOAD_ENDPOINT")
	_ = v.BindEnv("upload.deleteAfterUpload", "MOODLOG_UPLOAD_DELETE_AFTER_UPLOAD")
	_ = v.BindEnv("upload.retryOnLaunch", "MOODLOG_UPLOAD_RETRY_ON_LAUNCH")
	_ = v.BindEnv("log.level", "MOODLOG_LOG_LEVEL")
	_ = v.BindEnv("mediaDir", "MOODLOG_MEDIA_DIR")
	_ = v.BindEnv("reminders.horizonDays", "MOODLOG_REMINDERS_HORIZON_DAYS")

	var source string
	if expanded != "" {
		if _, statErr := os.Stat(expanded); statErr == nil {
			v.SetConfigFile(expanded)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", expanded, err)
			}
			source = expanded
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	conf.Path = source

	if conf.MediaDir, err = utils.ExpandHome(conf.MediaDir); err != nil {
		return nil, fmt.Errorf("failed to resolve media dir: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Default returns the configuration used when no file or environment
// overrides exist.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v, configDir)
	var conf Config
	_ = v.Unmarshal(&conf)
	return &conf
}

// WriteDefault writes a config file holding every default to path. An
// existing file is left untouched and reported with ok=false.
func WriteDefault(path string) (ok bool, err error) {
	expanded, err := utils.ExpandHome(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve config path: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, filepath.Dir(expanded))
	v.SetConfigType("yaml")
	if err := v.SafeWriteConfigAs(expanded); err != nil {
		return false, fmt.Errorf("failed to write config %s: %w", expanded, err)
	}
	return true, nil
}

// Validate checks field tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	for _, section := range []interface{}{&c.Log, &c.Upload, &c.Capture, &c.Location, &c.Reminders} {
		v := validate.Struct(section)
		if !v.Validate() {
			return errors.Configuration("config", v.Errors.One())
		}
	}

	if !utils.ValidateTimezone(c.Timezone) {
		return errors.Configuration("config", fmt.Sprintf("unknown timezone %q", c.Timezone))
	}
	if c.Capture.MaxDuration <= c.Capture.MinDuration {
		return errors.Configuration("config", "capture.maxDuration must be greater than capture.minDuration")
	}
	if c.Capture.Recorder == "command" && len(c.Capture.Command) == 0 {
		return errors.Configuration("config", "capture.command is required for the command recorder")
	}
	if c.Location.Provider == "http" && c.Location.URL == "" {
		return errors.Configuration("config", "location.url is required for the http provider")
	}
	return nil
}

// UploadURL joins the endpoint base and the upload path.
func (c *Config) UploadURL() string {
	return strings.TrimRight(c.Upload.Endpoint, "/") + c.Upload.Path
}
