// internal/services/scrape_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/brawlrec-backend/internal/metrics"
	"github.com/javajoker/brawlrec-backend/internal/runlock"
)

const (
	RunLockKey = "brawlrec:scrape"

	// DefaultAggregateTimeout bounds the aggregation that follows a
	// cancelled ingestion.
	DefaultAggregateTimeout = 10 * time.Minute
)

// RunReport describes one finished scrape run. IngestErr is set when
// ingestion stopped early; aggregation still ran over what was stored.
type RunReport struct {
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Ingest    *IngestResult    `json:"ingest"`
	IngestErr error            `json:"-"`
	Aggregate *AggregateResult `json:"aggregate"`
}

// ScrapeService runs ingestion followed by aggregation, one run at a time.
type ScrapeService struct {
	ingestion        *IngestionService
	stats            *StatsService
	locker           runlock.Locker
	baseCtx          context.Context
	aggregateTimeout time.Duration
	wg               sync.WaitGroup
	log              *logrus.Entry
}

// NewScrapeService builds the orchestrator. Runs started by Trigger use
// baseCtx, so cancelling it stops background runs.
func NewScrapeService(baseCtx context.Context, ingestion *IngestionService, stats *StatsService, locker runlock.Locker) *ScrapeService {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if locker == nil {
		locker = runlock.NewLocal()
	}
	return &ScrapeService{
		ingestion:        ingestion,
		stats:            stats,
		locker:           locker,
		baseCtx:          baseCtx,
		aggregateTimeout: DefaultAggregateTimeout,
		log:              logrus.WithField("service", "scrape"),
	}
}

// Run ingests new decks and then recomputes statistics. Aggregation runs
// even if ingestion stopped early or ctx was cancelled. It returns
// ErrRunInProgress when another run holds the lock.
func (s *ScrapeService) Run(ctx context.Context) (*RunReport, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	report := &RunReport{StartedAt: time.Now().UTC()}
	s.log.Info("Scrape run started")

	report.Ingest, report.IngestErr = s.ingestion.Ingest(ctx)
	if report.IngestErr != nil {
		s.log.WithError(report.IngestErr).Error("Ingestion stopped early, aggregating stored decks")
	}

	// Stats are recomputed even when ctx was cancelled during ingestion, so
	// whatever was stored gets consistent numbers.
	aggCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.aggregateTimeout)
	defer cancel()

	agg, aggErr := s.stats.Aggregate(aggCtx)
	report.Aggregate = agg
	report.Duration = time.Since(report.StartedAt)

	switch {
	case aggErr != nil:
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("aggregate: %w", aggErr)
	case report.IngestErr != nil:
		metrics.RunsTotal.WithLabelValues("partial").Inc()
		return report, fmt.Errorf("ingest: %w", report.IngestErr)
	}

	metrics.RunsTotal.WithLabelValues("succeeded").Inc()
	s.log.WithField("duration", report.Duration.String()).Info("Scrape run finished")
	return report, nil
}

// AggregateOnly recomputes statistics without fetching anything.
func (s *ScrapeService) AggregateOnly(ctx context.Context) (*AggregateResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.stats.Aggregate(ctx)
}

// Trigger starts a run in the background and returns immediately. A trigger
// that arrives while a run is active is logged and dropped.
func (s *ScrapeService) Trigger() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		_, err := s.Run(s.baseCtx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.log.Warn("Scrape already running, trigger ignored")
		case err != nil:
			s.log.WithError(err).Error("Background scrape run failed")
		}
	}()
}

// Wait blocks until every run started by Trigger has returned.
func (s *ScrapeService) Wait() {
	s.wg.Wait()
}

func (s *ScrapeService) acquire(ctx context.Context) (func(), error) {
	release, err := s.locker.TryLock(ctx, RunLockKey)
	if errors.Is(err, runlock.ErrLocked) {
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	return release, nil
}
