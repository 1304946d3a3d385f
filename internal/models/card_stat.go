// internal/models/card_stat.go
package models

import (
	"github.com/google/uuid"
)

// CardStat holds the per-commander statistics of one card. Rows are fully
// overwritten by every aggregator run.
type CardStat struct {
	BaseModel
	CommanderID   uuid.UUID `json:"commander_id" gorm:"type:uuid;not null;uniqueIndex:idx_card_stats_commander_card"`
	CardID        uuid.UUID `json:"card_id" gorm:"type:uuid;not null;uniqueIndex:idx_card_stats_commander_card;index"`
	DeckCount     int64     `json:"deck_count" gorm:"not null;default:0"`
	InclusionRate float64   `json:"inclusion_rate" gorm:"not null;default:0"`
	SynergyScore  float64   `json:"synergy_score" gorm:"not null;default:0"`

	Commander Commander `json:"commander,omitempty" gorm:"foreignKey:CommanderID"`
	Card      Card      `json:"card,omitempty" gorm:"foreignKey:CardID"`
}
