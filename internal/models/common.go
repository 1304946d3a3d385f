// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields. Rows in this store are never deleted, so
// there is no soft-delete column.
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key client-side so the same models work on
// Postgres and SQLite.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Zone names the sub-list of a deck a card entry came from.
type Zone string

const (
	ZoneCommander      Zone = "commander"
	ZoneCompanion      Zone = "companion"
	ZoneSignatureSpell Zone = "signature_spell"
	ZoneMain           Zone = "main"
)

const FormatBrawl = "brawl"
