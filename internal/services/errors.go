// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Outcome is the terminal state of one deck in the ingestion pipeline.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Skip reasons. They are returned alongside OutcomeSkipped and are not
// failures.
var (
	ErrAlreadyIngested = errors.New("deck already ingested")
	ErrNoCommander     = errors.New("deck has no commander")
)

var ErrRunInProgress = errors.New("a scrape run is already in progress")

// FetchError wraps a failed call to the deck source. A failed search page
// ends the run; a failed deck fetch only fails that deck.
type FetchError struct {
	Page   int
	DeckID string
	Err    error
}

func (e *FetchError) Error() string {
	if e.DeckID != "" {
		return fmt.Sprintf("fetch deck %s: %v", e.DeckID, e.Err)
	}
	return fmt.Sprintf("fetch search page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
