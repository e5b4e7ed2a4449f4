// Package eventstore defines the append-only stat event log and its
// backends. Append is the durability boundary: once it returns nil the
// event is permanent and immutable.
package eventstore

import (
	"context"

	"github.com/courtside/courtside/internal/domain/model"
)

// Store is an ordered-per-game append-only log of stat events.
type Store interface {
	// Append persists one event. The event carries the sequence number
	// assigned by the ingestion gateway; backends enforce that sequences
	// per game are contiguous and refuse gaps or duplicates.
	Append(ctx context.Context, ev model.StatEvent) error

	// Read returns events for gameID with fromSeq <= seq <= toSeq,
	// ordered by sequence. toSeq == 0 means "to the end of the log".
	Read(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]model.StatEvent, error)

	// LastSeq returns the highest appended sequence for gameID, zero if
	// the game has no events.
	LastSeq(ctx context.Context, gameID string) (uint64, error)
}
