package api

import (
	"errors"
	"net/http"

	"github.com/courtside/courtside/internal/adapters/catalog"
	"github.com/courtside/courtside/internal/gateway"
)

// statusOf maps a rejection from the ingestion or catalog layer to the
// HTTP status and wire code the client sees. One rejection kind, one
// status; nothing internal leaks through raw.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, gateway.ErrInvalidValue):
		return http.StatusBadRequest, "invalid_value"
	case errors.Is(err, gateway.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, gateway.ErrUnknownGame), errors.Is(err, catalog.ErrGameNotFound):
		return http.StatusNotFound, "unknown_game"
	case errors.Is(err, gateway.ErrUnknownPlayer):
		return http.StatusNotFound, "unknown_player"
	case errors.Is(err, gateway.ErrGameClosed):
		return http.StatusConflict, "game_closed"
	case errors.Is(err, gateway.ErrGameNotLive):
		return http.StatusConflict, "game_not_live"
	case errors.Is(err, gateway.ErrStaleEvent):
		return http.StatusConflict, "stale_event"
	case errors.Is(err, gateway.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, gateway.ErrIngestionTimeout):
		return http.StatusTooManyRequests, "ingestion_timeout"
	case errors.Is(err, catalog.ErrGameExists):
		return http.StatusConflict, "game_exists"
	case errors.Is(err, catalog.ErrInvalidGame), errors.Is(err, catalog.ErrInvalidPlayer):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, catalog.ErrPlayerSideTaken):
		return http.StatusConflict, "player_side_taken"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
