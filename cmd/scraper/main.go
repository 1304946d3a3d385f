// cmd/scraper/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/brawlrec-backend/internal/app"
	"github.com/javajoker/brawlrec-backend/internal/config"
	"github.com/javajoker/brawlrec-backend/internal/database"
	"github.com/javajoker/brawlrec-backend/internal/services"
	"github.com/javajoker/brawlrec-backend/internal/utils"
)

func main() {
	maxDecks := flag.Int("max-decks", 0, "deck ceiling for this run (default MAX_DECKS_PER_RUN)")
	statsOnly := flag.Bool("stats-only", false, "recompute statistics without fetching decks")
	flag.Parse()

	os.Exit(run(*maxDecks, *statsOnly))
}

func run(maxDecks int, statsOnly bool) int {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Error("Failed to load configuration")
		return 1
	}
	if maxDecks > 0 {
		cfg.Ingestion.MaxDecksPerRun = maxDecks
	}

	if err := utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		logrus.WithError(err).Error("Failed to configure logger")
		return 1
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize database")
		return 1
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Error("Failed to run migrations")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.Build(ctx, cfg, db)
	if err != nil {
		logrus.WithError(err).Error("Failed to build services")
		return 1
	}
	defer svc.Close()

	if statsOnly {
		result, err := svc.Scrape.AggregateOnly(ctx)
		if err != nil {
			logrus.WithError(err).Error("Aggregation failed")
			return 1
		}
		logrus.WithField("stats_written", result.StatsWritten).Info("Aggregation complete")
		return 0
	}

	report, err := svc.Scrape.Run(ctx)
	logReport(report, err)
	if err != nil {
		return 1
	}
	return 0
}

// logReport logs the run tallies, including those of a run that ingested
// only part of the source before failing.
func logReport(report *services.RunReport, err error) {
	fields := logrus.Fields{}
	if report != nil {
		if report.Ingest != nil {
			fields["processed"] = report.Ingest.Processed
			fields["skipped"] = report.Ingest.Skipped
			fields["failed"] = report.Ingest.Failed
		}
		if report.Aggregate != nil {
			fields["stats_written"] = report.Aggregate.StatsWritten
		}
		fields["duration"] = report.Duration.String()
	}

	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("Scrape run failed")
		return
	}
	logrus.WithFields(fields).Info("Scrape run complete")
}
