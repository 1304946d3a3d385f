// internal/models/commander.go
package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Commander struct {
	BaseModel
	CardID        uuid.UUID                   `json:"card_id" gorm:"type:uuid;not null;uniqueIndex"`
	ColorIdentity datatypes.JSONSlice[string] `json:"color_identity"`
	DeckCount     int64                       `json:"deck_count" gorm:"default:0;index"`

	// Relationships
	Card  Card   `json:"card,omitempty" gorm:"foreignKey:CardID"`
	Decks []Deck `json:"decks,omitempty" gorm:"foreignKey:CommanderID"`
}
