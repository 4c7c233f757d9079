package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/x402gateway/gateway/internal/config"
	"github.com/x402gateway/gateway/internal/metrics"
)

// ArchivalService removes Payment/RequestLog rows past their retention
// window on a schedule (spec §9 supplement: bounded retention, off by
// default).
type ArchivalService struct {
	store    Store
	config   config.ArchivalConfig
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewArchivalService creates a new archival service.
func NewArchivalService(store Store, cfg config.ArchivalConfig, metricsCollector *metrics.Metrics, logger zerolog.Logger) *ArchivalService {
	return &ArchivalService{
		store:    store,
		config:   cfg,
		logger:   logger,
		metrics:  metricsCollector,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the archival service background loop.
func (s *ArchivalService) Start() {
	if !s.config.Enabled {
		s.logger.Info().Msg("archival: service disabled")
		close(s.doneChan)
		return
	}

	s.logger.Info().
		Dur("retentionPeriod", s.config.RetentionPeriod.Duration).
		Dur("runInterval", s.config.RunInterval.Duration).
		Msg("archival: service started")

	go s.run()
}

// Stop gracefully stops the archival service.
func (s *ArchivalService) Stop() {
	close(s.stopChan)
	<-s.doneChan
	s.logger.Info().Msg("archival: service stopped")
}

func (s *ArchivalService) run() {
	defer close(s.doneChan)

	s.runArchival()

	ticker := time.NewTicker(s.config.RunInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runArchival()
		case <-s.stopChan:
			return
		}
	}
}

func (s *ArchivalService) runArchival() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoffTime := time.Now().Add(-s.config.RetentionPeriod.Duration)

	count, err := s.store.ArchiveOldRecords(ctx, cutoffTime)
	if err != nil {
		s.logger.Error().Err(err).Msg("archival: failed to archive old records")
		return
	}
	if count > 0 {
		s.logger.Info().Int64("count", count).Time("olderThan", cutoffTime).Msg("archival: archived old records")
	}
	if s.metrics != nil && count > 0 {
		s.metrics.ObserveArchival(count)
	}
}

// RunNow immediately runs an archival pass (manual trigger, e.g. an admin endpoint).
func (s *ArchivalService) RunNow() error {
	if !s.config.Enabled {
		return fmt.Errorf("archival service is disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoffTime := time.Now().Add(-s.config.RetentionPeriod.Duration)

	count, err := s.store.ArchiveOldRecords(ctx, cutoffTime)
	if err != nil {
		return fmt.Errorf("archive old records: %w", err)
	}
	if s.metrics != nil && count > 0 {
		s.metrics.ObserveArchival(count)
	}

	s.logger.Info().Int64("recordsArchived", count).Msg("archival: manual archival completed")
	return nil
}
