// Package server exposes the voice assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/voxgo-dev/voxgo/pkg/chat"
	"github.com/voxgo-dev/voxgo/pkg/observability"
	"github.com/voxgo-dev/voxgo/pkg/store"
)

// Config holds HTTP server configuration.
type Config struct {
	// Port to listen on.
	Port int
	// SessionMaxAge is the idle age after which /cleanup removes a
	// live session context.
	SessionMaxAge time.Duration
}

// Server routes HTTP requests to the chat service and message store.
type Server struct {
	cfg        Config
	chat       *chat.Service
	history    store.MessageStore
	health     *observability.HealthChecker
	httpServer *http.Server
}

// New creates a server. history may be nil when persistence is disabled;
// the history endpoints then report 503.
func New(cfg Config, chatSvc *chat.Service, history store.MessageStore) *Server {
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = time.Hour
	}

	health := observability.NewHealthChecker()
	health.RegisterCheck(observability.PingCheck())
	if history != nil {
		health.RegisterCheck(observability.StorageCheck(history.Ping))
	}

	return &Server{
		cfg:     cfg,
		chat:    chatSvc,
		history: history,
		health:  health,
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Handler returns the configured routes without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /reset-session", s.handleResetSession)
	mux.HandleFunc("GET /cleanup", s.handleCleanup)
	mux.HandleFunc("GET /history/{id}", s.handleHistory)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("DELETE /session/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /stats/{id}", s.handleStats)

	mux.HandleFunc("GET /health", s.health.Handler())
	mux.HandleFunc("GET /health/live", observability.LivenessHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	mux.Handle("GET /metrics", observability.MetricsHandler())

	return withMetrics(mux)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Voice assistant API is running",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	reply, err := s.chat.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Client went away; nothing useful to write.
		default:
			writeError(w, http.StatusInternalServerError, "chat request failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  reply,
		SessionID: req.SessionID,
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.chat.Reset(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Session reset successfully",
		"session_id": req.SessionID,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed := s.chat.CleanupExpired(s.cfg.SessionMaxAge)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Cleanup completed",
		"sessions_cleaned": removed,
		"active_sessions":  s.chat.ActiveSessions(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history storage is disabled")
		return
	}

	sessionID := r.PathValue("id")
	limit := queryInt(r, "limit", store.DefaultHistoryLimit)

	msgs, err := s.history.History(r.Context(), sessionID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   msgs,
		"count":      len(msgs),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history storage is disabled")
		return
	}

	limit := queryInt(r, "limit", store.DefaultSessionsLimit)

	sessions, err := s.history.ListSessions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history storage is disabled")
		return
	}

	sessionID := r.PathValue("id")

	// Drop the live context too so the session disappears everywhere.
	s.chat.Reset(sessionID)

	if err := s.history.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Session deleted successfully",
		"session_id": sessionID,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history storage is disabled")
		return
	}

	sessionID := r.PathValue("id")

	stats, err := s.history.Stats(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":         sessionID,
		"total_messages":     stats.TotalMessages,
		"user_messages":      stats.UserMessages,
		"assistant_messages": stats.AssistantMessages,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withMetrics(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		mux.ServeHTTP(rec, r)

		// Label by route pattern, not raw path, to bound cardinality.
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		observability.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start))
	})
}
