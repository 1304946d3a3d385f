// internal/models/card.go
package models

import (
	"gorm.io/datatypes"
)

// Card is the store's normalized card. Attributes are refreshed on every
// sighting in a newly processed deck; history is not kept.
type Card struct {
	BaseModel
	ExternalID      string                      `json:"external_id" gorm:"size:64;not null;uniqueIndex"`
	Name            string                      `json:"name" gorm:"size:255;not null;index"`
	SetCode         *string                     `json:"set_code" gorm:"size:16"`
	CollectorNumber *string                     `json:"collector_number" gorm:"size:16"`
	ManaCost        *string                     `json:"mana_cost" gorm:"size:64"`
	CMC             *float64                    `json:"cmc"`
	TypeLine        *string                     `json:"type_line" gorm:"size:255"`
	OracleText      *string                     `json:"oracle_text" gorm:"type:text"`
	Colors          datatypes.JSONSlice[string] `json:"colors"`
	ColorIdentity   datatypes.JSONSlice[string] `json:"color_identity"`
	Power           *string                     `json:"power" gorm:"size:16"`
	Toughness       *string                     `json:"toughness" gorm:"size:16"`
	EDHRecRank      *int                        `json:"edhrec_rank" gorm:"column:edhrec_rank"`
	USD             *string                     `json:"usd" gorm:"column:usd;size:32"`
	USDFoil         *string                     `json:"usd_foil" gorm:"column:usd_foil;size:32"`
	EUR             *string                     `json:"eur" gorm:"column:eur;size:32"`
	ImageURIs       datatypes.JSONMap           `json:"image_uris" gorm:"column:image_uris"`
}

// CardRefreshedColumns lists the columns overwritten when a card is seen again.
var CardRefreshedColumns = []string{
	"name",
	"set_code",
	"collector_number",
	"mana_cost",
	"cmc",
	"type_line",
	"oracle_text",
	"colors",
	"color_identity",
	"power",
	"toughness",
	"edhrec_rank",
	"usd",
	"usd_foil",
	"eur",
	"image_uris",
	"updated_at",
}
