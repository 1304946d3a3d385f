// internal/services/card_service.go
package services

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/javajoker/brawlrec-backend/internal/models"
	"github.com/javajoker/brawlrec-backend/internal/moxfield"
	"github.com/javajoker/brawlrec-backend/internal/store"
)

// CardService maps source cards onto the store's card rows.
type CardService struct{}

func NewCardService() *CardService {
	return &CardService{}
}

// Upsert normalizes card and writes it through st, which may be bound to a
// transaction. Seeing the same card again refreshes the stored row.
func (s *CardService) Upsert(ctx context.Context, st store.Store, card moxfield.Card) (*models.Card, error) {
	normalized := NormalizeCard(card)
	if normalized.ExternalID == "" {
		return nil, fmt.Errorf("card %q has no id", card.Name)
	}
	return st.UpsertCard(ctx, &normalized)
}

// NormalizeCard converts a source card into the store schema. Empty or
// absent optional attributes become NULL.
func NormalizeCard(card moxfield.Card) models.Card {
	out := models.Card{
		ExternalID:      card.CanonicalID(),
		Name:            card.Name,
		SetCode:         nullableString(card.Set),
		CollectorNumber: nullableString(card.CN),
		ManaCost:        nullableString(card.ManaCost),
		CMC:             card.CMC,
		TypeLine:        nullableString(card.TypeLine),
		OracleText:      nullableString(card.OracleText),
		Power:           nullableString(card.Power),
		Toughness:       nullableString(card.Toughness),
		EDHRecRank:      card.EDHRecRank,
	}

	if len(card.Colors) > 0 {
		out.Colors = append([]string(nil), card.Colors...)
	}
	if len(card.ColorIdentity) > 0 {
		out.ColorIdentity = append([]string(nil), card.ColorIdentity...)
	}

	if card.Prices != nil {
		out.USD = nullableString(string(card.Prices.USD))
		out.USDFoil = nullableString(string(card.Prices.USDFoil))
		out.EUR = nullableString(string(card.Prices.EUR))
	}

	if len(card.ImageURIs) > 0 {
		out.ImageURIs = make(datatypes.JSONMap, len(card.ImageURIs))
		for size, uri := range card.ImageURIs {
			out.ImageURIs[size] = uri
		}
	}

	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
