// internal/services/ingestion_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/brawlrec-backend/internal/metrics"
	"github.com/javajoker/brawlrec-backend/internal/models"
	"github.com/javajoker/brawlrec-backend/internal/moxfield"
	"github.com/javajoker/brawlrec-backend/internal/store"
)

const DefaultMaxDecksPerRun = 1000

// DeckSource is the part of the Moxfield client the pipeline needs.
type DeckSource interface {
	Search(ctx context.Context, page, pageSize int) (*moxfield.SearchPage, error)
	GetDeck(ctx context.Context, deckID string) (*moxfield.Deck, error)
}

type IngestionOptions struct {
	Format   string
	PageSize int
	// MaxDecks bounds how many decks one run examines, skipped and failed
	// decks included.
	MaxDecks int
}

// IngestResult tallies one ingestion run.
type IngestResult struct {
	Pages          int  `json:"pages"`
	Examined       int  `json:"examined"`
	Processed      int  `json:"processed"`
	Skipped        int  `json:"skipped"`
	Failed         int  `json:"failed"`
	CeilingReached bool `json:"ceiling_reached"`
}

type IngestionService struct {
	store  store.Store
	source DeckSource
	cards  *CardService
	opts   IngestionOptions
	log    *logrus.Entry
}

func NewIngestionService(st store.Store, source DeckSource, cards *CardService, opts IngestionOptions) *IngestionService {
	if opts.Format == "" {
		opts.Format = models.FormatBrawl
	}
	if opts.PageSize <= 0 {
		opts.PageSize = moxfield.DefaultPageSize
	}
	if opts.MaxDecks <= 0 {
		opts.MaxDecks = DefaultMaxDecksPerRun
	}
	if cards == nil {
		cards = NewCardService()
	}

	return &IngestionService{
		store:  st,
		source: source,
		cards:  cards,
		opts:   opts,
		log:    logrus.WithField("service", "ingestion"),
	}
}

// Ingest walks search pages from page 1 until a page reports no more
// results or the deck ceiling is reached. Per-deck failures are counted and
// the walk continues; a failed page stops it and is returned with the
// partial tally.
func (s *IngestionService) Ingest(ctx context.Context) (*IngestResult, error) {
	result := &IngestResult{}
	start := time.Now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues("ingest").Observe(time.Since(start).Seconds())
	}()

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if result.Examined >= s.opts.MaxDecks {
			result.CeilingReached = true
			break
		}

		searchPage, err := s.source.Search(ctx, page, s.opts.PageSize)
		if err != nil {
			s.log.WithError(err).WithField("page", page).Error("Failed to fetch search page, stopping ingestion")
			return result, &FetchError{Page: page, Err: err}
		}
		result.Pages++

		s.log.WithFields(logrus.Fields{
			"page":  page,
			"decks": len(searchPage.Decks),
		}).Info("Processing search page")

		for _, summary := range searchPage.Decks {
			if result.Examined >= s.opts.MaxDecks {
				result.CeilingReached = true
				break
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}

			result.Examined++
			outcome, _ := s.ProcessDeck(ctx, summary.ID)
			switch outcome {
			case OutcomeProcessed:
				result.Processed++
			case OutcomeSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
		}

		if result.CeilingReached || !searchPage.HasMore {
			break
		}
	}

	s.log.WithFields(logrus.Fields{
		"pages":     result.Pages,
		"examined":  result.Examined,
		"processed": result.Processed,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("Ingestion finished")

	return result, nil
}

// ProcessDeck ingests one deck. The returned error carries the skip reason
// for OutcomeSkipped and the cause for OutcomeFailed. Everything written for
// a deck is committed together, so a failed deck leaves no rows behind and
// is retried by the next run.
func (s *IngestionService) ProcessDeck(ctx context.Context, externalID string) (Outcome, error) {
	log := s.log.WithField("deck_id", externalID)

	outcome, err := s.processDeck(ctx, externalID)
	metrics.DecksTotal.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case OutcomeProcessed:
		log.Debug("Deck ingested")
	case OutcomeSkipped:
		log.WithField("reason", err.Error()).Debug("Deck skipped")
	default:
		log.WithError(err).Warn("Deck failed")
	}
	return outcome, err
}

func (s *IngestionService) processDeck(ctx context.Context, externalID string) (Outcome, error) {
	_, err := s.store.FindDeckByExternalID(ctx, externalID)
	if err == nil {
		return OutcomeSkipped, ErrAlreadyIngested
	}
	if !errors.Is(err, store.ErrNotFound) {
		return OutcomeFailed, persistenceErr("find deck", err)
	}

	deck, err := s.source.GetDeck(ctx, externalID)
	if err != nil {
		return OutcomeFailed, &FetchError{DeckID: externalID, Err: err}
	}

	commanderEntry, ok := deck.Commander()
	if !ok {
		return OutcomeSkipped, ErrNoCommander
	}

	err = s.store.InTx(ctx, func(tx store.Store) error {
		return s.persistDeck(ctx, tx, externalID, deck, commanderEntry.Card)
	})
	switch {
	case err == nil:
		return OutcomeProcessed, nil
	case errors.Is(err, ErrAlreadyIngested):
		return OutcomeSkipped, err
	default:
		return OutcomeFailed, err
	}
}

func (s *IngestionService) persistDeck(ctx context.Context, tx store.Store, externalID string, deck *moxfield.Deck, commanderCard moxfield.Card) error {
	card, err := s.cards.Upsert(ctx, tx, commanderCard)
	if err != nil {
		return persistenceErr("upsert commander card", err)
	}

	commander, err := tx.UpsertCommander(ctx, card.ID, card.ColorIdentity)
	if err != nil {
		return persistenceErr("upsert commander", err)
	}

	row := &models.Deck{
		ExternalID:      externalID,
		Name:            deck.Name,
		CommanderID:     commander.ID,
		Colors:          card.ColorIdentity,
		Format:          s.opts.Format,
		PublicURL:       nullableString(deck.PublicURL),
		Author:          nullableString(deck.CreatedByUser.UserName),
		SourceCreatedAt: deck.CreatedAtUTC.Time,
		SourceUpdatedAt: deck.LastUpdatedAtUTC.Time,
	}
	if err := tx.CreateDeck(ctx, row); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAlreadyIngested
		}
		return persistenceErr("create deck", err)
	}

	commanderIDs := deck.ZoneIDs(models.ZoneCommander)
	companionIDs := deck.ZoneIDs(models.ZoneCompanion)

	for _, entry := range deck.Entries() {
		card, err := s.cards.Upsert(ctx, tx, entry.Card)
		if err != nil {
			return persistenceErr("upsert card", err)
		}

		canonicalID := entry.Card.CanonicalID()
		deckCard := &models.DeckCard{
			DeckID:      row.ID,
			CardID:      card.ID,
			Zone:        entry.Zone,
			Quantity:    entry.Quantity,
			IsCommander: commanderIDs[canonicalID],
			IsCompanion: companionIDs[canonicalID],
		}
		if err := tx.CreateDeckCard(ctx, deckCard); err != nil {
			return persistenceErr("create deck card", err)
		}
	}

	return nil
}
