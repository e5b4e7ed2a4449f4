package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/pkg/logger"
)

// EventsHandler serves the ingestion and history endpoints.
type EventsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{
		deps:   deps,
		logger: logger.Get().Named("api.events"),
	}
}

// submitRequest is the JSON body of POST /v1/games/{gameID}/events. The
// game ID comes from the path; a body game_id, if present, must match.
type submitRequest struct {
	GameID    string         `json:"game_id,omitempty"`
	PlayerID  string         `json:"player_id,omitempty"`
	Type      model.StatType `json:"type"`
	Value     int            `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
	DedupKey  string         `json:"dedup_key,omitempty"`
}

type submitResponse struct {
	GameID    string `json:"game_id"`
	Seq       uint64 `json:"seq"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent ingests one stat or game-control event.
//
//	POST /v1/games/{gameID}/events
//
// Returns 202 on acceptance, 200 for an idempotent duplicate, and the
// taxonomy status codes on rejection.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err)
		return
	}
	if req.GameID != "" && req.GameID != gameID {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation",
			Message: "body game_id does not match path",
		})
		return
	}

	draft := model.EventDraft{
		GameID:    gameID,
		PlayerID:  req.PlayerID,
		Type:      req.Type,
		Value:     req.Value,
		Timestamp: req.Timestamp,
		DedupKey:  req.DedupKey,
	}

	res, err := h.deps.Submit(r.Context(), draft)
	if err != nil {
		status, code := statusOf(err)
		if status == http.StatusInternalServerError {
			h.logger.Error(r.Context(), "submit failed",
				logger.String("game_id", gameID),
				logger.Error(err),
			)
		}
		writeError(w, status, code, err)
		return
	}

	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, submitResponse{
		GameID:    gameID,
		Seq:       res.Seq,
		Duplicate: res.Duplicate,
	})
}

type historyResponse struct {
	GameID string            `json:"game_id"`
	From   uint64            `json:"from"`
	To     uint64            `json:"to"`
	Count  int               `json:"count"`
	Events []model.StatEvent `json:"events"`
}

// HandleGetEvents returns the ordered event log slice for a game.
//
//	GET /v1/games/{gameID}/events?from=N&to=M
//
// from defaults to 1, to defaults to the end of the log.
func (h *EventsHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	from, ok := parseSeqParam(r, "from", 1)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation", Message: "invalid from parameter"})
		return
	}
	to, ok := parseSeqParam(r, "to", 0)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation", Message: "invalid to parameter"})
		return
	}

	events, err := h.deps.History(r.Context(), gameID, from, to)
	if err != nil {
		status, code := statusOf(err)
		writeError(w, status, code, err)
		return
	}

	last := to
	if len(events) > 0 {
		last = events[len(events)-1].Seq
	}
	writeJSON(w, http.StatusOK, historyResponse{
		GameID: gameID,
		From:   from,
		To:     last,
		Count:  len(events),
		Events: events,
	})
}

func parseSeqParam(r *http.Request, name string, def uint64) (uint64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
