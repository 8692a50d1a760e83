package activity

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/workshop-concierge/pkg/logging"
	"golang.org/x/net/websocket"
)

// Handler serves the activity snapshot and its live websocket feed.
type Handler struct {
	activity *Logger
	logger   *logging.Logger

	interval time.Duration
	maxAge   time.Duration
}

func NewHandler(activity *Logger, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		activity: activity,
		logger:   logger,
		interval: 2 * time.Second,
		maxAge:   5 * time.Minute,
	}
}

// HandleSnapshot handles GET /api/activity.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.activity.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("activity snapshot failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Activity fetch failed: " + err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(snap)
}

// HandleStream handles GET /api/activity/stream, pushing a snapshot every interval
// until the client disconnects or maxAge elapses.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()
		h.serveStream(conn)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveStream(conn *websocket.Conn) {
	ctx := conn.Request().Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(h.maxAge)
	defer deadline.Stop()

	send := func() bool {
		snap, err := h.activity.Snapshot(ctx)
		if err != nil {
			return websocket.JSON.Send(conn, map[string]string{"error": err.Error()}) == nil
		}
		return websocket.JSON.Send(conn, snap) == nil
	}

	if !send() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			if !send() {
				h.logger.Debug("activity stream client gone")
				return
			}
		}
	}
}
