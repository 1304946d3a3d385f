package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/javajoker/brawlrec-backend/internal/models"
	"github.com/javajoker/brawlrec-backend/internal/moxfield"
	"github.com/javajoker/brawlrec-backend/internal/runlock"
)

func (s *pipelineSuite) newScrape(locker runlock.Locker) *ScrapeService {
	return NewScrapeService(context.Background(), s.ingestion, s.stats, locker)
}

func (s *pipelineSuite) TestScrape_RunIngestsThenAggregates() {
	s.source.addPage(
		makeDeck("d1", mxCard("c1", "C"), mxCard("x", "X")),
		makeDeck("d2", mxCard("c1", "C")),
	)

	report, err := s.newScrape(nil).Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, report.Ingest.Processed)
	s.Require().NotNil(report.Aggregate)
	s.Equal(1, report.Aggregate.StatsWritten)
	s.NoError(report.IngestErr)
}

func (s *pipelineSuite) TestScrape_PageFailureStillAggregates() {
	s.source.addPage(makeDeck("d1", mxCard("c1", "C"), mxCard("x", "X")))
	s.source.addPage(makeDeck("d2", mxCard("c1", "C")))
	s.source.failPage = 2

	report, err := s.newScrape(nil).Run(s.ctx)
	s.Require().Error(err)

	var fetchErr *FetchError
	s.True(errors.As(err, &fetchErr))
	s.Require().NotNil(report)
	s.Equal(1, report.Ingest.Processed)
	s.Require().NotNil(report.Aggregate)
	s.Equal(1, report.Aggregate.Commanders)
	s.Equal(int64(1), s.count(&models.CardStat{}))
}

func (s *pipelineSuite) TestScrape_CancelledRunStillAggregates() {
	s.source.addPage(
		makeDeck("d1", mxCard("c1", "C"), mxCard("x", "X")),
		makeDeck("d2", mxCard("c1", "C"), mxCard("y", "Y")),
	)
	scrape := s.newScrape(nil)
	_, err := scrape.Run(s.ctx)
	s.Require().NoError(err)

	// Wipe the stats so only the cancelled run can restore them.
	s.Require().NoError(s.db.Where("1 = 1").Delete(&models.CardStat{}).Error)

	s.source.addPage(
		makeDeck("d3", mxCard("c1", "C"), mxCard("x", "X")),
		makeDeck("d4", mxCard("c1", "C")),
	)
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.source.afterGetDeck = func(string) { cancel() }

	report, err := scrape.Run(ctx)
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.Require().NotNil(report)
	s.Require().NotNil(report.Aggregate, "aggregation runs after cancellation")
	s.Zero(s.source.deckCalls["d4"])

	s.Equal(int64(2), s.count(&models.CardStat{}))
	stat, ok := s.statFor("c1", "x")
	s.Require().True(ok)
	s.Equal(int64(1), stat.DeckCount)
	s.InDelta(50.0, stat.InclusionRate, 0.01)
}

func (s *pipelineSuite) TestScrape_RejectsConcurrentRun() {
	locker := runlock.NewLocal()
	release, err := locker.TryLock(s.ctx, RunLockKey)
	s.Require().NoError(err)

	scrape := s.newScrape(locker)
	_, err = scrape.Run(s.ctx)
	s.ErrorIs(err, ErrRunInProgress)
	_, err = scrape.AggregateOnly(s.ctx)
	s.ErrorIs(err, ErrRunInProgress)

	release()
	_, err = scrape.AggregateOnly(s.ctx)
	s.NoError(err)
}

func (s *pipelineSuite) TestScrape_TriggerRunsInBackground() {
	s.source.addPage(makeDeck("d1", mxCard("c1", "C"), mxCard("x", "X")))

	scrape := s.newScrape(nil)
	scrape.Trigger()
	scrape.Wait()

	s.Equal(int64(1), s.count(&models.Deck{}))
	s.Equal(int64(1), s.count(&models.CardStat{}))
}

// TestScrape_AgainstHTTPSource drives the whole pipeline through the real
// client against a fake Moxfield server.
func (s *pipelineSuite) TestScrape_AgainstHTTPSource() {
	decks := map[string]*moxfield.Deck{
		"h1": makeDeck("h1", mxCard("c1", "C", "G"), mxCard("x", "X")),
		"h2": makeDeck("h2", mxCard("c1", "C", "G"), mxCard("x", "X"), mxCard("y", "Y")),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/decks/search":
			data := []moxfield.DeckSummary{}
			if r.URL.Query().Get("page") == "1" {
				data = append(data, moxfield.DeckSummary{ID: "h1"}, moxfield.DeckSummary{ID: "h2"})
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
		case strings.HasPrefix(r.URL.Path, "/decks/"):
			deck, ok := decks[strings.TrimPrefix(r.URL.Path, "/decks/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(deck)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := moxfield.NewClient(moxfield.Options{BaseURL: server.URL}, moxfield.NewThrottle(0))
	ingestion := NewIngestionService(s.store, client, nil, IngestionOptions{PageSize: 2})
	scrape := NewScrapeService(context.Background(), ingestion, s.stats, nil)

	report, err := scrape.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, report.Ingest.Pages, "a full first page asks for a second")
	s.Equal(2, report.Ingest.Processed)

	stat, ok := s.statFor("c1", "x")
	s.Require().True(ok)
	s.InDelta(100.0, stat.InclusionRate, 0.01)
	stat, ok = s.statFor("c1", "y")
	s.Require().True(ok)
	s.InDelta(50.0, stat.InclusionRate, 0.01)
}
