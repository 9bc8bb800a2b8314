// -----------------------------------------------------------------------
// Scheduler - periodic retention and stuck-job sweeps
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/common"
	"github.com/ternarybob/tabula/internal/interfaces"
)

// sweepEntry represents a registered sweep with metadata
type sweepEntry struct {
	name     string
	schedule string
	handler  func(ctx context.Context) error
	cronID   cron.EntryID
	lastRun  *time.Time
	lastErr  string
}

// Service runs the periodic cleanup sweeps against the job repository. Each
// sweep ends with a ForcePersist so deletions and rewrites survive the
// process.
type Service struct {
	repo   interfaces.JobRepository
	config *common.CleanupConfig
	cron   *cron.Cron
	logger arbor.ILogger

	mu      sync.Mutex
	sweeps  map[string]*sweepEntry
	running bool
}

// NewService creates a scheduler for the configured cleanup sweeps
func NewService(repo interfaces.JobRepository, config *common.CleanupConfig, logger arbor.ILogger) *Service {
	return &Service{
		repo:   repo,
		config: config,
		cron:   cron.New(),
		logger: logger,
		sweeps: make(map[string]*sweepEntry),
	}
}

// Start registers the sweeps and begins the cron loop
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Cleanup scheduler disabled by configuration")
		return nil
	}

	if err := s.registerLocked("retention", s.config.RetentionSchedule, s.runRetentionSweep); err != nil {
		return err
	}
	if err := s.registerLocked("stuck-jobs", s.config.StuckSchedule, s.runStuckSweep); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("retention", s.config.RetentionSchedule).
		Str("stuck", s.config.StuckSchedule).
		Msg("Cleanup scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for any running sweep to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Cleanup scheduler stopped")
}

func (s *Service) registerLocked(name, schedule string, handler func(ctx context.Context) error) error {
	entry := &sweepEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
	}

	id, err := s.cron.AddFunc(schedule, func() { s.runSweep(entry) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s sweep (%s): %w", name, schedule, err)
	}

	entry.cronID = id
	s.sweeps[name] = entry
	return nil
}

func (s *Service) runSweep(entry *sweepEntry) {
	now := time.Now()

	s.mu.Lock()
	entry.lastRun = &now
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := entry.handler(ctx); err != nil {
		s.logger.Error().Err(err).Str("sweep", entry.name).Msg("Sweep failed")
		s.mu.Lock()
		entry.lastErr = err.Error()
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	entry.lastErr = ""
	s.mu.Unlock()
}

// runRetentionSweep deletes jobs past the retention window, then persists
// the index once for the whole batch.
func (s *Service) runRetentionSweep(ctx context.Context) error {
	deleted, err := s.repo.CleanupOldJobs(ctx, s.config.RetentionDays)
	if err != nil {
		return err
	}

	if deleted > 0 {
		if err := s.repo.ForcePersist(ctx); err != nil {
			return fmt.Errorf("retention sweep deleted %d jobs but failed to persist: %w", deleted, err)
		}
	}

	s.logger.Debug().Int("deleted", deleted).Msg("Retention sweep completed")
	return nil
}

// runStuckSweep marks abandoned jobs failed. CleanupStuckJobs persists the
// index itself after its batched rewrite.
func (s *Service) runStuckSweep(ctx context.Context) error {
	marked, err := s.repo.CleanupStuckJobs(ctx, s.config.StuckTimeoutMinutes)
	if err != nil {
		return err
	}

	s.logger.Debug().Int("marked", marked).Msg("Stuck-job sweep completed")
	return nil
}
