package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/network-analytics/internal/domain"
	"github.com/network-analytics/internal/websocket"
)

// AnalyticsService is the command surface backing the HTTP API
type AnalyticsService interface {
	Report(ctx context.Context) (string, error)
	PlayerVersion(ctx context.Context, query string) (domain.OnlinePlayerRecord, error)
	PlayerRecord(ctx context.Context, query string) (*domain.PlayerRecord, error)
	FleetPresence() ([]domain.InstanceSnapshot, int)
}

// Handler provides HTTP handlers for the analytics API
type Handler struct {
	service   AnalyticsService
	hub       *websocket.Hub
	authToken string
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler. An empty authToken leaves the
// command endpoints open.
func NewHandler(service AnalyticsService, hub *websocket.Hub, authToken string, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		hub:       hub,
		authToken: authToken,
		logger:    logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/presence", h.GetPresence)

		// Command endpoints are permission gated
		r.Group(func(r chi.Router) {
			r.Use(h.requirePermission)
			r.Get("/report", h.GetReport)
			r.Get("/players/{query}/version", h.GetPlayerVersion)
			r.Get("/players/{query}/record", h.GetPlayerRecord)
		})

		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// requirePermission gates the command endpoints behind a bearer token,
// standing in for the host's permission checker
func (h *Handler) requirePermission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token != h.authToken {
				h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetReport returns the formatted analytics summary
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Report(r.Context())
	if err != nil {
		h.logger.Error("failed to compile report", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrStatsUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(summary))
}

// GetPlayerVersion looks a player up across the fleet by username or id
func (h *Handler) GetPlayerVersion(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rec, err := h.service.PlayerVersion(r.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrPlayerNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to look up player version", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{
		"id":       rec.ID.String(),
		"username": rec.Username,
		"version":  rec.ProtocolVersion().Label(),
	})
}

// GetPlayerRecord returns a player's durable stats row by username or id
func (h *Handler) GetPlayerRecord(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rec, err := h.service.PlayerRecord(r.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrPlayerNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to fetch player record", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, rec)
}

// GetPresence returns the live fleet snapshots
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	snaps, online := h.service.FleetPresence()
	h.writeSuccess(w, map[string]interface{}{
		"instances":      snaps,
		"players_online": online,
	})
}
