package moxfield

import (
	"sort"

	"github.com/javajoker/brawlrec-backend/internal/models"
)

// ZoneEntry is one card entry tagged with the zone it came from.
type ZoneEntry struct {
	Zone     models.Zone
	Quantity int
	Card     Card
}

// Entries returns every card entry in the order commanders, companions,
// signature spells, main deck. Entries within a zone are ordered by their
// map key. A missing quantity counts as one copy.
func (d *Deck) Entries() []ZoneEntry {
	var out []ZoneEntry
	for _, zone := range d.zones() {
		for _, entry := range zone.board.sorted() {
			qty := entry.Quantity
			if qty <= 0 {
				qty = 1
			}
			out = append(out, ZoneEntry{Zone: zone.name, Quantity: qty, Card: entry.Card})
		}
	}
	return out
}

// Commander returns the first commander-zone entry.
func (d *Deck) Commander() (CardEntry, bool) {
	entries := d.Commanders.sorted()
	if len(entries) == 0 {
		return CardEntry{}, false
	}
	return entries[0], true
}

// ZoneIDs returns the canonical ids of the cards in the given zone.
func (d *Deck) ZoneIDs(zone models.Zone) map[string]bool {
	ids := make(map[string]bool)
	for _, z := range d.zones() {
		if z.name != zone {
			continue
		}
		for _, entry := range z.board.sorted() {
			ids[entry.Card.CanonicalID()] = true
		}
	}
	return ids
}

type namedBoard struct {
	name  models.Zone
	board *Board
}

func (d *Deck) zones() []namedBoard {
	return []namedBoard{
		{models.ZoneCommander, d.Commanders},
		{models.ZoneCompanion, d.Companions},
		{models.ZoneSignatureSpell, d.SignatureSpells},
		{models.ZoneMain, d.Main},
	}
}

func (b *Board) sorted() []CardEntry {
	if b == nil || len(b.Cards) == 0 {
		return nil
	}
	keys := make([]string, 0, len(b.Cards))
	for k := range b.Cards {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]CardEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, b.Cards[k])
	}
	return out
}
