// Package app assembles the crawler and aggregator from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/brawlrec-backend/internal/config"
	"github.com/javajoker/brawlrec-backend/internal/moxfield"
	"github.com/javajoker/brawlrec-backend/internal/runlock"
	"github.com/javajoker/brawlrec-backend/internal/services"
	"github.com/javajoker/brawlrec-backend/internal/store"
)

// Services holds the wired service graph. Close releases the Redis client
// when one was opened.
type Services struct {
	Ingestion *services.IngestionService
	Stats     *services.StatsService
	Scrape    *services.ScrapeService
	redis     *redis.Client
}

// Build wires the services over db. Background runs started through
// Scrape.Trigger use baseCtx.
func Build(baseCtx context.Context, cfg *config.Config, db *gorm.DB) (*Services, error) {
	st := store.New(db)

	client := moxfield.NewClient(moxfield.Options{
		BaseURL:   cfg.Moxfield.BaseURL,
		UserAgent: cfg.Moxfield.UserAgent,
		Format:    cfg.Moxfield.Format,
		Timeout:   cfg.Moxfield.RequestTimeout,
	}, moxfield.NewThrottle(cfg.Moxfield.RequestDelay))

	ingestion := services.NewIngestionService(st, client, services.NewCardService(), services.IngestionOptions{
		Format:   cfg.Moxfield.Format,
		PageSize: cfg.Moxfield.PageSize,
		MaxDecks: cfg.Ingestion.MaxDecksPerRun,
	})
	stats := services.NewStatsService(st)

	out := &Services{Ingestion: ingestion, Stats: stats}

	var locker runlock.Locker = runlock.NewLocal()
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(baseCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logrus.WithField("addr", cfg.Redis.Addr).Info("Using Redis run lock")
		locker = runlock.NewRedis(rdb, cfg.Redis.LockTTL)
		out.redis = rdb
	}

	out.Scrape = services.NewScrapeService(baseCtx, ingestion, stats, locker)
	return out, nil
}

func (s *Services) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}
}
