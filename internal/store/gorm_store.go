package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/brawlrec-backend/internal/database"
	"github.com/javajoker/brawlrec-backend/internal/models"
)

// ErrDuplicate is returned when a create hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// New returns a Store backed by db. db should be opened with TranslateError
// so unique violations surface as ErrDuplicate.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) UpsertCard(ctx context.Context, card *models.Card) (*models.Card, error) {
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(models.CardRefreshedColumns),
		}).
		Create(card).Error
	if err != nil {
		return nil, fmt.Errorf("upsert card %s: %w", card.ExternalID, err)
	}

	// On conflict the generated id is discarded, so read back the stored row.
	var stored models.Card
	if err := s.db.WithContext(ctx).Where("external_id = ?", card.ExternalID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload card %s: %w", card.ExternalID, translate(err))
	}
	return &stored, nil
}

func (s *gormStore) FindDeckByExternalID(ctx context.Context, externalID string) (*models.Deck, error) {
	var deck models.Deck
	if err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&deck).Error; err != nil {
		return nil, translate(err)
	}
	return &deck, nil
}

func (s *gormStore) CreateDeck(ctx context.Context, deck *models.Deck) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(deck).Error; err != nil {
		return fmt.Errorf("create deck %s: %w", deck.ExternalID, translate(err))
	}
	return nil
}

func (s *gormStore) UpsertCommander(ctx context.Context, cardID uuid.UUID, colorIdentity []string) (*models.Commander, error) {
	commander := &models.Commander{
		CardID:        cardID,
		ColorIdentity: colorIdentity,
	}
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "card_id"}},
			DoNothing: true,
		}).
		Create(commander).Error
	if err != nil {
		return nil, fmt.Errorf("upsert commander for card %s: %w", cardID, err)
	}

	var stored models.Commander
	if err := s.db.WithContext(ctx).Where("card_id = ?", cardID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload commander for card %s: %w", cardID, translate(err))
	}
	return &stored, nil
}

func (s *gormStore) ListCommanders(ctx context.Context) ([]models.Commander, error) {
	var commanders []models.Commander
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&commanders).Error; err != nil {
		return nil, fmt.Errorf("list commanders: %w", err)
	}
	return commanders, nil
}

func (s *gormStore) UpdateCommanderDeckCount(ctx context.Context, commanderID uuid.UUID, count int64) error {
	res := s.db.WithContext(ctx).
		Model(&models.Commander{}).
		Where("id = ?", commanderID).
		Updates(map[string]interface{}{
			"deck_count": count,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update deck count of commander %s: %w", commanderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update deck count of commander %s: %w", commanderID, ErrNotFound)
	}
	return nil
}

func (s *gormStore) CreateDeckCard(ctx context.Context, deckCard *models.DeckCard) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(deckCard).Error; err != nil {
		return fmt.Errorf("create deck card %s/%s: %w", deckCard.DeckID, deckCard.CardID, translate(err))
	}
	return nil
}

func (s *gormStore) CountDecksByCommander(ctx context.Context, commanderID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Deck{}).Where("commander_id = ?", commanderID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count decks of commander %s: %w", commanderID, err)
	}
	return count, nil
}

func (s *gormStore) CountAllDecks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Deck{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count decks: %w", err)
	}
	return count, nil
}

func (s *gormStore) GroupDeckCardsByCard(ctx context.Context, filter DeckCardFilter) ([]CardUsage, error) {
	q := s.db.WithContext(ctx).
		Table("deck_cards").
		Select("deck_cards.card_id AS card_id, COUNT(DISTINCT deck_cards.deck_id) AS deck_count")

	if filter.CommanderID != nil {
		q = q.Joins("JOIN decks ON decks.id = deck_cards.deck_id").
			Where("decks.commander_id = ?", *filter.CommanderID)
	}
	if filter.ExcludeCommanderRows {
		q = q.Where("deck_cards.is_commander = ?", false)
	}

	var usage []CardUsage
	if err := q.Group("deck_cards.card_id").Order("deck_cards.card_id").Scan(&usage).Error; err != nil {
		return nil, fmt.Errorf("group deck cards: %w", err)
	}
	return usage, nil
}

func (s *gormStore) UpsertCardStat(ctx context.Context, stat *models.CardStat) error {
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "commander_id"}, {Name: "card_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"deck_count",
				"inclusion_rate",
				"synergy_score",
				"updated_at",
			}),
		}).
		Create(stat).Error
	if err != nil {
		return fmt.Errorf("upsert card stat %s/%s: %w", stat.CommanderID, stat.CardID, err)
	}
	return nil
}

func (s *gormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, inTx: true})
	})
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
