package handler

import (
	"context"
	"net/http"
	"time"

	"class-election/internal/domain"
	"class-election/internal/service"
	"class-election/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// LiveMessage is the frame pushed on /ws/live-results.
type LiveMessage struct {
	Type    string                  `json:"type"`
	Data    *domain.ResultsSnapshot `json:"data,omitempty"`
	Message string                  `json:"message,omitempty"`
}

type ResultsHandler struct {
	results  service.ResultsReader
	logger   *logger.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewResultsHandler creates a results handler. allowedOrigins restricts the
// websocket handshake; empty allows any origin.
func NewResultsHandler(results service.ResultsReader, allowedOrigins []string, log *logger.Logger) *ResultsHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &ResultsHandler{
		results: results,
		logger:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins["*"] || origins[origin]
			},
		},
		now: time.Now,
	}
}

// Status handles GET /api/status
func (h *ResultsHandler) Status(w http.ResponseWriter, r *http.Request) {
	overview, err := h.results.Overview(r.Context(), h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, overview)
}

// LiveResults handles GET /api/results/live (polling endpoint)
func (h *ResultsHandler) LiveResults(w http.ResponseWriter, r *http.Request) {
	positionID, err := optionalID(r, "position_id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	snapshot, err := h.results.LiveResults(r.Context(), positionID, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	// The timestamp changes on every call; leave it out of the ETag.
	tagged := *snapshot
	tagged.Timestamp = time.Time{}
	etag := generateETag(tagged)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, snapshot)
}

// FinalResults handles GET /api/results/final
func (h *ResultsHandler) FinalResults(w http.ResponseWriter, r *http.Request) {
	final, err := h.results.FinalResults(r.Context(), h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if !final.CanShowResults {
		respondJSON(w, http.StatusForbidden, final)
		return
	}
	respondJSON(w, http.StatusOK, final)
}

// LiveResultsSocket handles GET /ws/live-results. The snapshot is pushed
// immediately and then every results refresh interval.
func (h *ResultsHandler) LiveResultsSocket(w http.ResponseWriter, r *http.Request) {
	positionID, err := optionalID(r, "position_id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	first, err := h.results.LiveResults(r.Context(), positionID, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.readPump(conn, cancel)

	log := h.logger.WithField("client_ip", r.RemoteAddr)
	log.Debug("Live results subscriber connected")
	defer log.Debug("Live results subscriber disconnected")

	snapshot := first
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		if err := writeFrame(conn, LiveMessage{Type: "results", Data: snapshot}); err != nil {
			return
		}

		refresh := time.NewTimer(time.Duration(snapshot.RefreshInterval) * time.Second)
	wait:
		for {
			select {
			case <-ctx.Done():
				refresh.Stop()
				return
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					refresh.Stop()
					return
				}
			case <-refresh.C:
				break wait
			}
		}

		next, err := h.results.LiveResults(ctx, positionID, h.now())
		if err != nil {
			_ = writeFrame(conn, LiveMessage{Type: "error", Message: "Live results are unavailable"})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "live results unavailable"),
				time.Now().Add(writeWait))
			return
		}
		snapshot = next
	}
}

// readPump drains client frames so pongs and close are processed.
func (h *ResultsHandler) readPump(conn *websocket.Conn, done context.CancelFunc) {
	defer done()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Live results socket closed unexpectedly")
			}
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, msg LiveMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
