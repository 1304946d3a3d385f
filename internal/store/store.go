// Package store is the entity store the crawler and the statistics
// aggregator write to. Uniqueness of card external ids, deck external ids and
// (commander, card) stat pairs is enforced by the database.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/javajoker/brawlrec-backend/internal/models"
)

var ErrNotFound = errors.New("record not found")

// DeckCardFilter narrows GroupDeckCardsByCard.
type DeckCardFilter struct {
	// CommanderID restricts rows to decks led by this commander when set.
	CommanderID *uuid.UUID
	// ExcludeCommanderRows drops rows flagged is_commander.
	ExcludeCommanderRows bool
}

// CardUsage is the number of distinct decks containing a card.
type CardUsage struct {
	CardID    uuid.UUID
	DeckCount int64
}

type Store interface {
	// UpsertCard inserts the card or refreshes every attribute of the row with
	// the same external id, and returns the stored row.
	UpsertCard(ctx context.Context, card *models.Card) (*models.Card, error)
	FindDeckByExternalID(ctx context.Context, externalID string) (*models.Deck, error)
	CreateDeck(ctx context.Context, deck *models.Deck) error
	// UpsertCommander returns the commander for cardID, creating it with the
	// given color identity when absent. Existing rows are left untouched.
	UpsertCommander(ctx context.Context, cardID uuid.UUID, colorIdentity []string) (*models.Commander, error)
	ListCommanders(ctx context.Context) ([]models.Commander, error)
	UpdateCommanderDeckCount(ctx context.Context, commanderID uuid.UUID, count int64) error
	CreateDeckCard(ctx context.Context, deckCard *models.DeckCard) error
	CountDecksByCommander(ctx context.Context, commanderID uuid.UUID) (int64, error)
	CountAllDecks(ctx context.Context) (int64, error)
	GroupDeckCardsByCard(ctx context.Context, filter DeckCardFilter) ([]CardUsage, error)
	UpsertCardStat(ctx context.Context, stat *models.CardStat) error
	// InTx runs fn against a store bound to a single transaction. The
	// transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
