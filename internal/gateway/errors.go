package gateway

import (
	"errors"

	"github.com/courtside/courtside/internal/adapters/eventstore"
)

// Public rejection taxonomy. Submit returns exactly one of these kinds;
// internal failures of the store or aggregator are never exposed raw.
var (
	// ErrValidation marks malformed input. Clients must fix and resend.
	ErrValidation = errors.New("invalid event")

	// ErrUnknownGame means the game is not registered in the catalog.
	ErrUnknownGame = errors.New("unknown game")

	// ErrUnknownPlayer means the player is not rostered for the game.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrInvalidValue means the stat type/value pairing is not physically
	// consistent.
	ErrInvalidValue = errors.New("invalid value for stat type")

	// ErrGameNotLive rejects stats for games that are not in play.
	ErrGameNotLive = errors.New("game not live")

	// ErrGameClosed rejects anything submitted after the game finished.
	ErrGameClosed = errors.New("game closed")

	// ErrStaleEvent rejects events older than the tolerance window behind
	// the latest accepted timestamp. They are refused, not reordered.
	ErrStaleEvent = errors.New("stale event")

	// ErrStorageUnavailable is the event store's transient failure,
	// surfaced unchanged: retrying the identical payload is safe because
	// no sequence number was consumed.
	ErrStorageUnavailable = eventstore.ErrStorageUnavailable

	// ErrIngestionTimeout means the per-game section could not be
	// acquired in time. Retry after backoff.
	ErrIngestionTimeout = errors.New("ingestion timeout")
)

// ReasonOf maps a rejection to its wire/metric label.
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnknownGame):
		return "unknown_game"
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, ErrGameClosed):
		return "game_closed"
	case errors.Is(err, ErrGameNotLive):
		return "game_not_live"
	case errors.Is(err, ErrStaleEvent):
		return "stale_event"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrIngestionTimeout):
		return "ingestion_timeout"
	default:
		return "internal"
	}
}
