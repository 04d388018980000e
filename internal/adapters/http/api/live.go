package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pitchline/pitchline/internal/broadcast"
	"github.com/pitchline/pitchline/pkg/logger"
)

// Websocket write bounds. A subscriber that cannot take a frame within
// the deadline is cut loose; it may reconnect and resync.
const (
	liveWriteTimeout = 5 * time.Second
)

// LiveDependencies defines the interface for the live stream handler.
type LiveDependencies interface {
	Subscribe(matchID string) (*broadcast.Subscriber, error)
	Unsubscribe(matchID, subID string) error
}

// LiveHandler upgrades GET /live/{id} to a websocket and streams tick
// updates until the terminal marker.
type LiveHandler struct {
	deps     LiveDependencies
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewLiveHandler creates a live stream handler.
func NewLiveHandler(deps LiveDependencies) *LiveHandler {
	return &LiveHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		log: logger.Get().Named("live"),
	}
}

// HandleLive handles GET /live/{id}.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	sub, err := h.deps.Subscribe(matchID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = h.deps.Unsubscribe(matchID, sub.ID())
		h.log.Warn(r.Context(), "upgrade failed",
			logger.String("match_id", matchID),
			logger.Error(err),
		)
		return
	}

	// Reader goroutine: its only job is noticing the client went away.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		_ = h.deps.Unsubscribe(matchID, sub.ID())
		_ = conn.Close()
	}()

	for {
		select {
		case <-disconnected:
			return
		case msg, ok := <-sub.Updates():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			if msg.Kind == broadcast.KindTerminal {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(msg.Status))
				_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
				return
			}
		}
	}
}
