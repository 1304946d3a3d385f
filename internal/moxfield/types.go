package moxfield

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DeckSummary is one search hit.
type DeckSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Format           string    `json:"format"`
	PublicURL        string    `json:"publicUrl"`
	CreatedByUser    User      `json:"createdByUser"`
	CreatedAtUTC     Timestamp `json:"createdAtUtc"`
	LastUpdatedAtUTC Timestamp `json:"lastUpdatedAtUtc"`
}

type User struct {
	UserName string `json:"userName"`
}

type searchResponse struct {
	Data         []DeckSummary `json:"data"`
	TotalResults int           `json:"totalResults"`
	PageNumber   int           `json:"pageNumber"`
	PageSize     int           `json:"pageSize"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Page         int
	Decks        []DeckSummary
	TotalResults int
	// HasMore is false once a page comes back empty or short.
	HasMore bool
}

// Deck is the full deck record with its per-zone card maps.
type Deck struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Format           string    `json:"format"`
	Visibility       string    `json:"visibility"`
	PublicURL        string    `json:"publicUrl"`
	CreatedByUser    User      `json:"createdByUser"`
	CreatedAtUTC     Timestamp `json:"createdAtUtc"`
	LastUpdatedAtUTC Timestamp `json:"lastUpdatedAtUtc"`
	Main             *Board    `json:"main,omitempty"`
	Commanders       *Board    `json:"commanders,omitempty"`
	Companions       *Board    `json:"companions,omitempty"`
	SignatureSpells  *Board    `json:"signatureSpells,omitempty"`
}

// Board is one zone of a deck, keyed by an opaque entry key.
type Board struct {
	Count int                  `json:"count"`
	Cards map[string]CardEntry `json:"cards"`
}

type CardEntry struct {
	Quantity int  `json:"quantity"`
	Card     Card `json:"card"`
}

// Card is the source's card representation.
type Card struct {
	ID            string            `json:"id"`
	ScryfallID    string            `json:"scryfall_id,omitempty"`
	Name          string            `json:"name"`
	Set           string            `json:"set,omitempty"`
	CN            string            `json:"cn,omitempty"`
	ManaCost      string            `json:"mana_cost,omitempty"`
	CMC           *float64          `json:"cmc,omitempty"`
	TypeLine      string            `json:"type_line,omitempty"`
	OracleText    string            `json:"oracle_text,omitempty"`
	Colors        []string          `json:"colors,omitempty"`
	ColorIdentity []string          `json:"color_identity,omitempty"`
	Power         string            `json:"power,omitempty"`
	Toughness     string            `json:"toughness,omitempty"`
	EDHRecRank    *int              `json:"edhrec_rank,omitempty"`
	Prices        *Prices           `json:"prices,omitempty"`
	ImageURIs     map[string]string `json:"image_uris,omitempty"`
}

// CanonicalID is the catalog id when known, else the source's own id.
func (c Card) CanonicalID() string {
	if c.ScryfallID != "" {
		return c.ScryfallID
	}
	return c.ID
}

type Prices struct {
	USD     Price `json:"usd,omitempty"`
	USDFoil Price `json:"usd_foil,omitempty"`
	EUR     Price `json:"eur,omitempty"`
}

// Price keeps a price snapshot as text. The API has sent both quoted and
// bare numbers.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("price %s: %w", data, err)
	}
	*p = Price(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Timestamp accepts RFC 3339 values with or without a zone suffix; values
// without one are taken as UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unrecognized layout", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}
