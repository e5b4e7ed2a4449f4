package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/pkg/logger"
)

// GamesHandler serves catalog and state endpoints.
type GamesHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewGamesHandler creates a GamesHandler.
func NewGamesHandler(deps Dependencies) *GamesHandler {
	return &GamesHandler{
		deps:   deps,
		logger: logger.Get().Named("api.games"),
	}
}

type createGameRequest struct {
	GameID     string    `json:"game_id"`
	HomeTeamID string    `json:"home_team_id"`
	AwayTeamID string    `json:"away_team_id"`
	LeagueID   string    `json:"league_id,omitempty"`
	Venue      string    `json:"venue,omitempty"`
	Tipoff     time.Time `json:"tipoff"`
}

// HandleCreateGame registers a new game in the catalog.
//
//	POST /v1/games
func (h *GamesHandler) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err)
		return
	}

	info := model.GameInfo{
		GameID:     req.GameID,
		HomeTeamID: req.HomeTeamID,
		AwayTeamID: req.AwayTeamID,
		LeagueID:   req.LeagueID,
		Venue:      req.Venue,
		Tipoff:     req.Tipoff,
	}
	if err := h.deps.CreateGame(r.Context(), info); err != nil {
		status, code := statusOf(err)
		writeError(w, status, code, err)
		return
	}

	h.logger.Info(r.Context(), "game registered",
		logger.String("game_id", req.GameID),
		logger.String("home", req.HomeTeamID),
		logger.String("away", req.AwayTeamID),
	)
	writeJSON(w, http.StatusCreated, map[string]string{"game_id": req.GameID})
}

type addPlayerRequest struct {
	PlayerID string         `json:"player_id"`
	Side     model.TeamSide `json:"side"`
}

// HandleAddPlayer adds one player to a game's roster.
//
//	POST /v1/games/{gameID}/roster
func (h *GamesHandler) HandleAddPlayer(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req addPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err)
		return
	}

	if err := h.deps.AddPlayer(r.Context(), gameID, req.PlayerID, req.Side); err != nil {
		status, code := statusOf(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"game_id":   gameID,
		"player_id": req.PlayerID,
		"side":      string(req.Side),
	})
}

// gameSummary is one row of the game list: catalog identity plus the
// current scoreboard where a state exists.
type gameSummary struct {
	GameID     string           `json:"game_id"`
	HomeTeamID string           `json:"home_team_id"`
	AwayTeamID string           `json:"away_team_id"`
	LeagueID   string           `json:"league_id,omitempty"`
	Venue      string           `json:"venue,omitempty"`
	Tipoff     time.Time        `json:"tipoff"`
	Status     model.GameStatus `json:"status"`
	HomeScore  int              `json:"home_score"`
	AwayScore  int              `json:"away_score"`
	Period     int              `json:"period"`
}

// HandleListGames lists all registered games with their live scores.
//
//	GET /v1/games
func (h *GamesHandler) HandleListGames(w http.ResponseWriter, r *http.Request) {
	infos := h.deps.ListGames(r.Context())

	out := make([]gameSummary, 0, len(infos))
	for _, info := range infos {
		row := gameSummary{
			GameID:     info.GameID,
			HomeTeamID: info.HomeTeamID,
			AwayTeamID: info.AwayTeamID,
			LeagueID:   info.LeagueID,
			Venue:      info.Venue,
			Tipoff:     info.Tipoff,
			Status:     model.StatusScheduled,
		}
		if state, err := h.deps.Snapshot(r.Context(), info.GameID); err == nil {
			row.Status = state.Status
			row.HomeScore = state.HomeScore
			row.AwayScore = state.AwayScore
			row.Period = state.Period
		}
		out = append(out, row)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"games": out,
	})
}

// HandleGetState returns the full aggregated state of one game.
//
//	GET /v1/games/{gameID}/state
func (h *GamesHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	state, err := h.deps.Snapshot(r.Context(), gameID)
	if err != nil {
		status, code := statusOf(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
