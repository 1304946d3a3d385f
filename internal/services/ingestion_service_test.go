package services

import (
	"errors"
	"fmt"

	"github.com/javajoker/brawlrec-backend/internal/models"
	"github.com/javajoker/brawlrec-backend/internal/moxfield"
)

func (s *pipelineSuite) TestIngest_PersistsDeck() {
	commander := mxCard("cmd-alela", "Alela, Cunning Conqueror", "W", "U", "B")
	companion := mxCard("lurrus", "Lurrus of the Dream-Den", "W", "B")
	deck := makeDeck("d1", commander, mxCard("sol-ring", "Sol Ring"), mxCard("island", "Island", "U"))
	deck.Companions = boardOf(companion)
	deck.PublicURL = "https://moxfield.com/decks/d1"
	deck.CreatedByUser = moxfield.User{UserName: "brewer"}
	s.source.addPage(deck)

	result, err := s.ingestion.Ingest(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Pages)
	s.Equal(1, result.Processed)
	s.Equal(0, result.Failed)

	var stored models.Deck
	s.Require().NoError(s.db.Where("external_id = ?", "d1").First(&stored).Error)
	s.Equal("Deck d1", stored.Name)
	s.Equal(models.FormatBrawl, stored.Format)
	s.Equal([]string{"W", "U", "B"}, []string(stored.Colors))
	s.Require().NotNil(stored.PublicURL)
	s.Equal("https://moxfield.com/decks/d1", *stored.PublicURL)
	s.Require().NotNil(stored.Author)
	s.Equal("brewer", *stored.Author)

	cmd := s.commanderFor("cmd-alela")
	s.Equal(cmd.ID, stored.CommanderID)
	s.Equal([]string{"W", "U", "B"}, []string(cmd.ColorIdentity))

	var rows []models.DeckCard
	s.Require().NoError(s.db.Preload("Card").Where("deck_id = ?", stored.ID).Find(&rows).Error)
	s.Len(rows, 4)

	byCard := make(map[string]models.DeckCard, len(rows))
	for _, r := range rows {
		byCard[r.Card.ExternalID] = r
	}
	s.True(byCard["cmd-alela"].IsCommander)
	s.Equal(models.ZoneCommander, byCard["cmd-alela"].Zone)
	s.True(byCard["lurrus"].IsCompanion)
	s.False(byCard["lurrus"].IsCommander)
	s.False(byCard["sol-ring"].IsCommander)
	s.False(byCard["sol-ring"].IsCompanion)
	s.Equal(models.ZoneMain, byCard["island"].Zone)
}

func (s *pipelineSuite) TestIngest_IsIdempotent() {
	s.source.addPage(
		makeDeck("d1", mxCard("c1", "Commander One"), mxCard("a", "A")),
		makeDeck("d2", mxCard("c1", "Commander One"), mxCard("b", "B")),
	)

	first, err := s.ingestion.Ingest(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, first.Processed)

	decks := s.count(&models.Deck{})
	deckCards := s.count(&models.DeckCard{})
	cards := s.count(&models.Card{})

	second, err := s.ingestion.Ingest(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, second.Processed)
	s.Equal(2, second.Skipped)

	s.Equal(decks, s.count(&models.Deck{}))
	s.Equal(deckCards, s.count(&models.DeckCard{}))
	s.Equal(cards, s.count(&models.Card{}))
	s.Equal(int64(1), s.count(&models.Commander{}))
	s.Equal(1, s.source.deckCalls["d1"], "known decks are not fetched again")
}

func (s *pipelineSuite) TestIngest_RefreshesCardAttributes() {
	older := mxCard("x", "Card X")
	older.Prices = &moxfield.Prices{USD: "1.00"}
	newer := mxCard("x", "Card X")
	newer.Prices = &moxfield.Prices{USD: "2.00"}
	rank := 42
	newer.EDHRecRank = &rank

	s.source.addPage(makeDeck("d1", mxCard("c1", "C"), older))
	s.source.addPage(makeDeck("d2", mxCard("c1", "C"), newer))

	_, err := s.ingestion.Ingest(s.ctx)
	s.Require().NoError(err)

	var cards []models.Card
	s.Require().NoError(s.db.Where("external_id = ?", "x").Find(&cards).Error)
	s.Require().Len(cards, 1)
	s.Require().NotNil(cards[0].USD)
	s.Equal("2.00", *cards[0].USD)
	s.Require().NotNil(cards[0].EDHRecRank)
	s.Equal(42, *cards[0].EDHRecRank)
}

func (s *pipelineSuite) TestProcessDeck_NoCommanderIsSkipped() {
	deck := &moxfield.Deck{ID: "loose", Name: "No commander", Main: boardOf(mxCard("a", "A"))}
	s.source.addPage(deck)

	outcome, err := s.ingestion.ProcessDeck(s.ctx, "loose")
	s.Equal(OutcomeSkipped, outcome)
	s.ErrorIs(err, ErrNoCommander)
	s.Equal(int64(0), s.count(&models.Deck{}))
	s.Equal(int64(0), s.count(&models.Card{}))
}

func (s *pipelineSuite) TestProcessDeck_AlreadyIngested() {
	s.source.addPage(makeDeck("d1", mxCard("c1", "C")))

	outcome, err := s.ingestion.ProcessDeck(s.ctx, "d1")
	s.Require().NoError(err)
	s.Equal(OutcomeProcessed, outcome)

	outcome, err = s.ingestion.ProcessDeck(s.ctx, "d1")
	s.Equal(OutcomeSkipped, outcome)
	s.ErrorIs(err, ErrAlreadyIngested)
}

func (s *pipelineSuite) TestIngest_FetchFailureFailsOnlyThatDeck() {
	var decks []*moxfield.Deck
	for i := 0; i < 10; i++ {
		decks = append(decks, makeDeck(fmt.Sprintf("d%02d", i), mxCard("c1", "C"), mxCard("a", "A")))
	}
	s.source.addPage(decks...)
	s.source.failDecks["d04"] = true

	result, err := s.ingestion.Ingest(s.ctx)
	s.Require().NoError(err)
	s.Equal(10, result.Examined)
	s.Equal(9, result.Processed)
	s.Equal(1, result.Failed)
	s.Equal(int64(9), s.count(&models.Deck{}))

	outcome, err := s.ingestion.ProcessDeck(s.ctx, "d04")
	s.Equal(OutcomeFailed, outcome)
	var fetchErr *FetchError
	s.Require().True(errors.As(err, &fetchErr))
	s.Equal("d04", fetchErr.DeckID)
}

func (s *pipelineSuite) TestIngest_PersistenceFailureRollsBackDeck() {
	s.source.addPage(
		makeDeck("good", mxCard("c1", "C"), mxCard("a", "A")),
		makeDeck("bad", mxCard("c2", "Other"), mxCard("a", "A"), mxCard("poison", "Poison")),
	)

	failing := NewIngestionService(&failingStore{Store: s.store, poison: "poison"}, s.source, nil, IngestionOptions{})
	result, err := failing.Ingest(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Equal(1, result.Failed)

	s.Equal(int64(1), s.count(&models.Deck{}))
	s.Equal(int64(1), s.count(&models.Commander{}), "the failed deck's commander is rolled back with it")
	s.Equal(int64(2), s.count(&models.DeckCard{}))

	outcome, err := failing.ProcessDeck(s.ctx, "bad")
	s.Equal(OutcomeFailed, outcome)
	var persistErr *PersistenceError
	s.Require().True(errors.As(err, &persistErr))
	s.Equal("upsert card", persistErr.Op)

	// A healthy store picks the deck up on the next run.
	result, err = s.ingestion.Ingest(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Equal(1, result.Skipped)
	s.Equal(int64(2), s.count(&models.Deck{}))
}

func (s *pipelineSuite) TestIngest_StopsAtDeckCeiling() {
	for p := 0; p < 3; p++ {
		s.source.addPage(
			makeDeck(fmt.Sprintf("p%d-a", p), mxCard("c1", "C")),
			makeDeck(fmt.Sprintf("p%d-b", p), mxCard("c1", "C")),
		)
	}
	s.source.failDecks["p0-b"] = true

	ingestion := NewIngestionService(s.store, s.source, nil, IngestionOptions{MaxDecks: 3})
	result, err := ingestion.Ingest(s.ctx)
	s.Require().NoError(err)
	s.True(result.CeilingReached)
	s.Equal(3, result.Examined, "failed decks count toward the ceiling")
	s.Equal(2, result.Processed)
	s.Equal(1, result.Failed)
	s.Equal(2, result.Pages)
	s.Zero(s.source.deckCalls["p1-b"])
}

func (s *pipelineSuite) TestIngest_PageFailureStopsWalk() {
	s.source.addPage(makeDeck("d1", mxCard("c1", "C")))
	s.source.addPage(makeDeck("d2", mxCard("c1", "C")))
	s.source.addPage(makeDeck("d3", mxCard("c1", "C")))
	s.source.failPage = 2

	result, err := s.ingestion.Ingest(s.ctx)
	s.Require().Error(err)

	var fetchErr *FetchError
	s.Require().True(errors.As(err, &fetchErr))
	s.Equal(2, fetchErr.Page)
	s.Equal(1, result.Pages)
	s.Equal(1, result.Processed)
	s.Zero(s.source.deckCalls["d3"])
}

func (s *pipelineSuite) TestIngest_CardInSeveralZones() {
	shared := mxCard("lurrus", "Lurrus of the Dream-Den", "W", "B")
	deck := makeDeck("d1", mxCard("c1", "C"), shared)
	deck.Companions = boardOf(shared)
	s.source.addPage(deck)

	_, err := s.ingestion.Ingest(s.ctx)
	s.Require().NoError(err)

	card := s.cardByExternalID("lurrus")
	var rows []models.DeckCard
	s.Require().NoError(s.db.Where("card_id = ?", card.ID).Order("zone").Find(&rows).Error)
	s.Require().Len(rows, 2)
	s.Equal(models.ZoneCompanion, rows[0].Zone)
	s.Equal(models.ZoneMain, rows[1].Zone)
	s.True(rows[0].IsCompanion)
	s.True(rows[1].IsCompanion, "flags follow the card, not the zone")
}
