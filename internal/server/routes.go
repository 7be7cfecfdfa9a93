// Package server wires the HTTP surface of the relay.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/metrics"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ratelimit"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/signaling"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/store"
)

// NewRouter wires up all HTTP routes and middleware.
func NewRouter(cfg config.Server, log *slog.Logger, hub *signaling.Hub, sink store.Sink) http.Handler {
	limiter := ratelimit.New(cfg.UpgradeRate, cfg.UpgradeWindow)
	history := &HistoryAPI{Sink: sink, Limit: cfg.Store.HistoryLimit, Log: log}

	mux := http.NewServeMux()

	// Health / stats / metrics
	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.HandleFunc("GET /stats", statsHandler(hub))
	mux.Handle("GET /metrics", metrics.Handler())

	// WebSocket endpoint, throttled per client IP
	mux.Handle("/ws", limiter.Middleware(ServeWs(hub, cfg, log)))

	// Chat history
	mux.HandleFunc("GET /api/sessions", history.List)
	mux.HandleFunc("GET /api/sessions/{id}/messages", history.Messages)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllow,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// ServeWs returns an http.HandlerFunc that upgrades the request and hands
// the connection to the hub.
func ServeWs(hub *signaling.Hub, cfg config.Server, log *slog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin:     originChecker(cfg.CORSAllow),
	}
	opts := signaling.ClientOptions{
		SendBuffer:     cfg.SendBuffer,
		MaxMessageSize: cfg.MaxMessageSize,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			log.Debug("ws.upgrade", "remote", r.RemoteAddr, "err", err)
			return
		}

		client := signaling.NewClient(hub, conn, opts)
		if !hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			conn.Close()
			return
		}

		// Start the client's read and write pumps in separate goroutines
		go client.WritePump()
		go client.ReadPump()
	}
}

// originChecker allows browsers from the CORS allowlist. Requests without an
// Origin header (non-browser clients) are always accepted.
func originChecker(allow []string) func(*http.Request) bool {
	if slices.Contains(allow, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allow, origin)
	}
}

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Nocturne relay is healthy."))
}

func statsHandler(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := hub.Stats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// HistoryAPI serves recorded chat payloads.
type HistoryAPI struct {
	Sink  store.Sink
	Limit int
	Log   *slog.Logger
}

// List returns the ids of sessions with history.
func (a *HistoryAPI) List(w http.ResponseWriter, r *http.Request) {
	ids, err := a.Sink.Sessions(r.Context())
	if err != nil {
		a.Log.Error("history.list", "err", err)
		http.Error(w, "history unavailable", http.StatusBadGateway)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

// Messages returns the history of one session, oldest first.
func (a *HistoryAPI) Messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	limit := a.Limit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		if a.Limit <= 0 || n < a.Limit {
			limit = n
		}
	}

	msgs, err := a.Sink.History(r.Context(), id, limit)
	if err != nil {
		a.Log.Error("history.get", "session", id, "err", err)
		http.Error(w, "history unavailable", http.StatusBadGateway)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
