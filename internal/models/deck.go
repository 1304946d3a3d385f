// internal/models/deck.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Deck is created once per external deck id and never updated; its presence
// is what makes later runs skip the deck.
type Deck struct {
	BaseModel
	ExternalID      string                      `json:"external_id" gorm:"size:64;not null;uniqueIndex"`
	Name            string                      `json:"name" gorm:"size:255;not null"`
	CommanderID     uuid.UUID                   `json:"commander_id" gorm:"type:uuid;not null;index"`
	Colors          datatypes.JSONSlice[string] `json:"colors"`
	Format          string                      `json:"format" gorm:"size:32;not null;default:'brawl'"`
	PublicURL       *string                     `json:"public_url" gorm:"size:255"`
	Author          *string                     `json:"author" gorm:"size:100"`
	SourceCreatedAt time.Time                   `json:"source_created_at"`
	SourceUpdatedAt time.Time                   `json:"source_updated_at"`

	// Relationships
	Commander Commander  `json:"commander,omitempty" gorm:"foreignKey:CommanderID"`
	Cards     []DeckCard `json:"cards,omitempty" gorm:"foreignKey:DeckID"`
}

// DeckCard is one card entry of one zone of a deck. The same card may appear
// in several rows of a deck when it occupies several zones.
type DeckCard struct {
	BaseModel
	DeckID      uuid.UUID `json:"deck_id" gorm:"type:uuid;not null;index"`
	CardID      uuid.UUID `json:"card_id" gorm:"type:uuid;not null;index"`
	Zone        Zone      `json:"zone" gorm:"type:varchar(20);not null"`
	Quantity    int       `json:"quantity" gorm:"not null;default:1"`
	IsCommander bool      `json:"is_commander" gorm:"not null;default:false"`
	IsCompanion bool      `json:"is_companion" gorm:"not null;default:false"`

	Card Card `json:"card,omitempty" gorm:"foreignKey:CardID"`
}
