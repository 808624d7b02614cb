//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"github.com/julianstephens/moodlog/internal/app"
	"github.com/julianstephens/moodlog/internal/capture"
	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/recorder"
	"github.com/julianstephens/moodlog/internal/reminder"
	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/upload"
)

func InitApp(cfg *config.Config, store storage.Provider, rec recorder.Recorder, fg Foreground) (*app.App, error) {

	wire.Build(
		ProvideLocation,
		ProvideLifecycle,
		app.NewTasks,
		ProvideNotifier,
		ProvideRegistry,
		ProvideMetrics,

		ProvideUploadClient,
		ProvideMediaStore,
		ProvideUploadManager,
		wire.Bind(new(capture.Submitter), new(*upload.Manager)),

		ProvideTimerPlatform,
		wire.Bind(new(reminder.Platform), new(*reminder.TimerPlatform)),
		ProvideScheduler,

		ProvideLocator,
		ProvideFlow,
		app.NewApp,
	)

	return nil, nil
}
