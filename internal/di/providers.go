package di

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/moodlog/internal/app"
	"github.com/julianstephens/moodlog/internal/capture"
	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/location"
	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/notifier"
	"github.com/julianstephens/moodlog/internal/recorder"
	"github.com/julianstephens/moodlog/internal/reminder"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/upload"
	"github.com/julianstephens/moodlog/internal/utils"
)

// Foreground is the lifecycle state the process starts in.
type Foreground bool

func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	return utils.LoadLocation(cfg.Timezone)
}

func ProvideLifecycle(fg Foreground) *app.Lifecycle {
	return app.NewLifecycle(bool(fg))
}

func ProvideNotifier() notifier.Notifier {
	return notifier.Default()
}

func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) upload.MetricsProviderInterface {
	return upload.NewMetricsProvider(cfg.Metrics.Enabled, reg)
}

func ProvideUploadClient(cfg *config.Config) *upload.Client {
	return upload.NewClient(cfg.UploadURL(), cfg.Upload.Timeout)
}

func ProvideMediaStore(cfg *config.Config) *upload.MediaStore {
	return upload.NewMediaStore(cfg.MediaDir)
}

func ProvideUploadManager(
	store storage.Provider,
	client *upload.Client,
	media *upload.MediaStore,
	tasks *app.Tasks,
	life *app.Lifecycle,
	metrics upload.MetricsProviderInterface,
	cfg *config.Config,
) *upload.Manager {
	return upload.NewManager(store, client, media, tasks, life, metrics, upload.Options{
		DeleteAfterUpload: cfg.Upload.DeleteAfterUpload,
	})
}

func ProvideTimerPlatform(n notifier.Notifier, cfg *config.Config) *reminder.TimerPlatform {
	return reminder.NewTimerPlatform(n, cfg.Reminders.Enabled, constants.MaxPendingNotifications)
}

func ProvideScheduler(p reminder.Platform, cfg *config.Config, loc *time.Location) *reminder.Scheduler {
	return reminder.NewScheduler(p, reminder.Options{
		HorizonDays: cfg.Reminders.HorizonDays,
		SettleDelay: cfg.Reminders.SettleDelay,
		Location:    loc,
	})
}

func ProvideLocator(cfg *config.Config) (location.Provider, error) {
	return location.New(cfg.Location)
}

// ProvideRecorder builds the recorder named in the config. Commands that take
// a clip on the command line pass their own recorder to InitApp instead.
func ProvideRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Capture.Recorder == "file" {
		return &recorder.File{}
	}
	return recorder.NewCommand(cfg.Capture.Command)
}

func ProvideFlow(
	store storage.Provider,
	locator location.Provider,
	rec recorder.Recorder,
	uploads capture.Submitter,
	cfg *config.Config,
	loc *time.Location,
) *capture.Flow {
	return capture.NewFlow(store, locator, rec, uploads, capture.Options{
		MinDuration:   cfg.Capture.MinDuration,
		MaxDuration:   cfg.Capture.MaxDuration,
		Grace:         constants.RecordCutoffGrace,
		LocateTimeout: cfg.Location.Timeout,
		Facing:        models.Facing(cfg.Capture.Facing),
		Location:      loc,
	})
}
