// internal/services/stats_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/brawlrec-backend/internal/metrics"
	"github.com/javajoker/brawlrec-backend/internal/models"
	"github.com/javajoker/brawlrec-backend/internal/store"
)

// CardStatValues are the derived numbers for one (commander, card) pair.
// Rates are percentages.
type CardStatValues struct {
	DeckCount     int64
	InclusionRate float64
	BaselineRate  float64
	SynergyScore  float64
}

// ComputeCardStat derives inclusion rate and synergy score.
//
//	inclusion = deckCount / commanderDecks * 100
//	baseline  = (globalUsage - deckCount) / (formatDecks - commanderDecks) * 100
//	synergy   = inclusion - baseline
//
// globalUsage counts every deck in the format containing the card, this
// commander's decks included. A zero denominator yields a zero rate.
func ComputeCardStat(deckCount, commanderDecks, globalUsage, formatDecks int64) CardStatValues {
	values := CardStatValues{DeckCount: deckCount}
	if commanderDecks <= 0 {
		return values
	}
	values.InclusionRate = float64(deckCount) / float64(commanderDecks) * 100

	usageElsewhere := globalUsage - deckCount
	if usageElsewhere < 0 {
		usageElsewhere = 0
	}
	if otherDecks := formatDecks - commanderDecks; otherDecks > 0 {
		values.BaselineRate = float64(usageElsewhere) / float64(otherDecks) * 100
	}

	values.SynergyScore = values.InclusionRate - values.BaselineRate
	return values
}

// AggregateResult tallies one aggregation pass.
type AggregateResult struct {
	TotalDecks   int64 `json:"total_decks"`
	Commanders   int   `json:"commanders"`
	Skipped      int   `json:"skipped"`
	Failed       int   `json:"failed"`
	StatsWritten int   `json:"stats_written"`
}

type StatsService struct {
	store store.Store
	log   *logrus.Entry
}

func NewStatsService(st store.Store) *StatsService {
	return &StatsService{
		store: st,
		log:   logrus.WithField("service", "stats"),
	}
}

// Aggregate recomputes DeckCount on every commander and upserts a CardStat
// for every non-commander card found in that commander's decks. Each
// commander is written in its own transaction; a failing commander is logged
// and the pass moves on.
func (s *StatsService) Aggregate(ctx context.Context) (*AggregateResult, error) {
	start := time.Now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	}()

	totalDecks, err := s.store.CountAllDecks(ctx)
	if err != nil {
		return nil, persistenceErr("count decks", err)
	}

	globalRows, err := s.store.GroupDeckCardsByCard(ctx, store.DeckCardFilter{ExcludeCommanderRows: true})
	if err != nil {
		return nil, persistenceErr("group global card usage", err)
	}
	globalUsage := make(map[uuid.UUID]int64, len(globalRows))
	for _, row := range globalRows {
		globalUsage[row.CardID] = row.DeckCount
	}

	commanders, err := s.store.ListCommanders(ctx)
	if err != nil {
		return nil, persistenceErr("list commanders", err)
	}

	result := &AggregateResult{TotalDecks: totalDecks}
	for i := range commanders {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		commander := &commanders[i]
		log := s.log.WithField("commander_id", commander.ID)

		written, err := s.aggregateCommander(ctx, commander, totalDecks, globalUsage)
		switch {
		case err != nil:
			result.Failed++
			metrics.CommandersTotal.WithLabelValues("failed").Inc()
			log.WithError(err).Error("Failed to aggregate commander")
		case written < 0:
			result.Skipped++
			metrics.CommandersTotal.WithLabelValues("skipped").Inc()
			log.Debug("Commander has no decks, skipping")
		default:
			result.Commanders++
			result.StatsWritten += written
			metrics.CommandersTotal.WithLabelValues("aggregated").Inc()
			metrics.CardStatsWritten.Add(float64(written))
		}
	}

	s.log.WithFields(logrus.Fields{
		"total_decks":   result.TotalDecks,
		"commanders":    result.Commanders,
		"skipped":       result.Skipped,
		"failed":        result.Failed,
		"stats_written": result.StatsWritten,
	}).Info("Aggregation finished")

	return result, nil
}

// aggregateCommander returns the number of stats written, or -1 when the
// commander has no decks and was left untouched.
func (s *StatsService) aggregateCommander(ctx context.Context, commander *models.Commander, formatDecks int64, globalUsage map[uuid.UUID]int64) (int, error) {
	written := 0
	err := s.store.InTx(ctx, func(tx store.Store) error {
		commanderDecks, err := tx.CountDecksByCommander(ctx, commander.ID)
		if err != nil {
			return persistenceErr("count commander decks", err)
		}
		if commanderDecks == 0 {
			written = -1
			return nil
		}

		if err := tx.UpdateCommanderDeckCount(ctx, commander.ID, commanderDecks); err != nil {
			return persistenceErr("update commander deck count", err)
		}

		commanderID := commander.ID
		usage, err := tx.GroupDeckCardsByCard(ctx, store.DeckCardFilter{
			CommanderID:          &commanderID,
			ExcludeCommanderRows: true,
		})
		if err != nil {
			return persistenceErr("group commander card usage", err)
		}

		for _, row := range usage {
			values := ComputeCardStat(row.DeckCount, commanderDecks, globalUsage[row.CardID], formatDecks)
			stat := &models.CardStat{
				CommanderID:   commander.ID,
				CardID:        row.CardID,
				DeckCount:     values.DeckCount,
				InclusionRate: values.InclusionRate,
				SynergyScore:  values.SynergyScore,
			}
			if err := tx.UpsertCardStat(ctx, stat); err != nil {
				return persistenceErr("upsert card stat", err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
