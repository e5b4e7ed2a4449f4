package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/courtside/courtside/internal/adapters/broadcast"
	"github.com/courtside/courtside/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LiveHandler upgrades HTTP requests to WebSocket live feeds. Each
// connection subscribes to one game and receives a snapshot followed by
// deltas in sequence order.
type LiveHandler struct {
	deps     Dependencies
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewLiveHandler creates a LiveHandler.
func NewLiveHandler(deps Dependencies) *LiveHandler {
	return &LiveHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS middleware upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.Get().Named("api.live"),
	}
}

// HandleLive serves GET /v1/games/{gameID}/live.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	connID := uuid.NewString()

	sub, err := h.deps.Subscribe(r.Context(), connID, gameID)
	if err != nil {
		status, code := statusOf(err)
		writeError(w, status, code, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.deps.Unsubscribe(connID, gameID)
		h.logger.Warn(r.Context(), "websocket upgrade failed",
			logger.String("game_id", gameID),
			logger.Error(err),
		)
		return
	}

	h.logger.Info(r.Context(), "live feed opened",
		logger.String("conn_id", connID),
		logger.String("game_id", gameID),
	)

	go h.readLoop(conn, connID)
	h.writeLoop(conn, sub)

	h.deps.Unsubscribe(connID, gameID)
	_ = conn.Close()

	h.logger.Info(r.Context(), "live feed closed",
		logger.String("conn_id", connID),
		logger.String("game_id", gameID),
	)
}

// writeLoop drains the subscription onto the socket and pings on an
// interval. It returns when the subscription channel closes, which
// happens after a terminal message or an unsubscribe, or when a write
// fails.
func (h *LiveHandler) writeLoop(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed ended"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client frames to detect disconnects and keep the
// pong deadline fresh. Any read error ends every subscription held by
// the connection.
func (h *LiveHandler) readLoop(conn *websocket.Conn, connID string) {
	defer h.deps.DropConnection(connID)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
