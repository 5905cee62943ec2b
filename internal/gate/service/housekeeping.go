package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/copperline/gate/internal/gate/store"
)

// HousekeepingService periodically removes expired security-key challenges
// and stale login-session rows so the tables do not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// SessionMaxAge is how long an untouched login-session row survives.
	SessionMaxAge time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour; sessionMaxAge
// defaults to 30 days.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, sessionMaxAge time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if sessionMaxAge <= 0 {
		sessionMaxAge = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:         store,
		Logger:        logger,
		Interval:      interval,
		SessionMaxAge: sessionMaxAge,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Non-blocking; call Stop() to shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker. Blocks until any
// in-progress cleanup finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records. Each deletion is
// independent; a failure in one does not stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()

	if err := s.Store.Challenges().DeleteExpired(ctx); err != nil {
		s.Logger.Error("failed to delete expired challenges", "error", err)
	} else {
		s.Logger.Debug("deleted expired challenges")
	}

	cutoff := time.Now().Add(-s.SessionMaxAge)
	if err := s.Store.Sessions().DeleteStale(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete stale login sessions", "error", err)
	} else {
		s.Logger.Debug("deleted stale login sessions", "cutoff", cutoff)
	}
}
