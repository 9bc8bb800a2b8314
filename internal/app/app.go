package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/common"
	"github.com/ternarybob/tabula/internal/handlers"
	"github.com/ternarybob/tabula/internal/interfaces"
	"github.com/ternarybob/tabula/internal/jobs"
	"github.com/ternarybob/tabula/internal/services/scheduler"
	badgerstore "github.com/ternarybob/tabula/internal/storage/badger"
	memorystore "github.com/ternarybob/tabula/internal/storage/memory"
	s3store "github.com/ternarybob/tabula/internal/storage/s3"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	BlobStorage interfaces.BlobStorage
	IndexCache  *jobs.IndexCache
	JobRepo     interfaces.JobRepository
	Scheduler   *scheduler.Service

	// HTTP handlers
	APIHandler *handlers.APIHandler
	JobHandler *handlers.JobHandler
}

// New wires the application: storage driver, the process-wide index cache,
// the job repository, handlers and the cleanup scheduler.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storage, err := newBlobStorage(config, logger)
	if err != nil {
		return nil, err
	}

	// One cache per process; every component shares this instance
	cache := jobs.NewIndexCache(
		storage,
		logger,
		config.Storage.Bucket,
		config.Index.IndexKey,
		config.Index.MaxJobs,
	)

	repo := jobs.NewRepository(cache, storage, logger, config.Storage.Bucket, &config.Index, &config.Cleanup)

	app := &App{
		Config:      config,
		Logger:      logger,
		BlobStorage: storage,
		IndexCache:  cache,
		JobRepo:     repo,
		Scheduler:   scheduler.NewService(repo, &config.Cleanup, logger),
		APIHandler:  handlers.NewAPIHandler(),
		JobHandler:  handlers.NewJobHandler(repo, &config.Cleanup, logger),
	}

	if err := app.Scheduler.Start(); err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to start cleanup scheduler: %w", err)
	}

	logger.Info().
		Str("driver", config.Storage.Driver).
		Str("bucket", config.Storage.Bucket).
		Msg("Application initialized")

	return app, nil
}

// newBlobStorage selects the configured blob store driver
func newBlobStorage(config *common.Config, logger arbor.ILogger) (interfaces.BlobStorage, error) {
	switch config.Storage.Driver {
	case "badger":
		db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger storage: %w", err)
		}
		return badgerstore.NewBlobStorage(db, logger), nil
	case "s3":
		return s3store.NewBlobStorage(&config.Storage.S3, logger)
	case "memory":
		return memorystore.NewBlobStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", config.Storage.Driver)
	}
}

// Close stops the scheduler, flushes the job index and releases storage.
func (a *App) Close() error {
	a.Scheduler.Stop()

	// Flush before shutdown regardless of which update paths ran
	if err := a.JobRepo.ForcePersist(context.Background()); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to persist job index during shutdown")
	}

	if err := a.BlobStorage.Close(); err != nil {
		return fmt.Errorf("failed to close blob storage: %w", err)
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
