// Package api declares the HTTP surface of the live core: game setup,
// event ingestion, history reads and the WebSocket live feed.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/courtside/courtside/internal/adapters/broadcast"
	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/internal/gateway"
	"github.com/courtside/courtside/pkg/metrics"
)

// Dependencies bundles what the handlers need from the application
// service, keeping this layer decoupled from concrete implementations.
type Dependencies interface {
	// Ingestion path.
	Submit(ctx context.Context, draft model.EventDraft) (gateway.SubmitResult, error)

	// Read path.
	Snapshot(ctx context.Context, gameID string) (*model.GameState, error)
	History(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]model.StatEvent, error)

	// Catalog.
	CreateGame(ctx context.Context, info model.GameInfo) error
	AddPlayer(ctx context.Context, gameID, playerID string, side model.TeamSide) error
	ListGames(ctx context.Context) []model.GameInfo

	// Live feed.
	Subscribe(ctx context.Context, connID, gameID string) (*broadcast.Subscriber, error)
	Unsubscribe(connID, gameID string)
	DropConnection(connID string)
}

// StatsProvider exposes operational counters for the /stats endpoint.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// RouterConfig carries the HTTP-level knobs.
type RouterConfig struct {
	CORSAllowOrigins  []string
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(deps Dependencies, stats StatsProvider, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(MetricsMiddleware)

	c := corslib.New(corslib.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	r.Use(c.Handler)

	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	games := NewGamesHandler(deps)
	events := NewEventsHandler(deps)
	live := NewLiveHandler(deps)

	r.Get("/healthz", HandleHealth)
	r.Get("/stats", NewStatsHandler(stats).HandleStats)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/games", func(r chi.Router) {
		r.Post("/", games.HandleCreateGame)
		r.Get("/", games.HandleListGames)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Post("/roster", games.HandleAddPlayer)
			r.Get("/state", games.HandleGetState)
			r.Post("/events", events.HandlePostEvent)
			r.Get("/events", events.HandleGetEvents)
			r.Get("/live", live.HandleLive)
		})
	})

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
