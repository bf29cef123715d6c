// Package httphandler serves the local session bridge: a JSON API that lets UI
// surfaces drive and observe the session without holding the credential.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/searchpanel/internal/application"
	"github.com/ericfisherdev/searchpanel/internal/domain/model"
	"github.com/ericfisherdev/searchpanel/internal/metrics"
)

// Handler is the HTTP driving adapter that serves the session bridge.
type Handler struct {
	sessions *application.SessionManager
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(sessions *application.SessionManager, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging, recovery, and cross-origin protection middleware. Browsers may
// only send state-changing requests from the bridge's own origin.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.HandleFunc("POST /api/v1/session/login", h.Login)
	mux.HandleFunc("POST /api/v1/session/register", h.Register)
	mux.HandleFunc("POST /api/v1/session/logout", h.Logout)
	mux.HandleFunc("POST /api/v1/session/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/session/profile", h.Profile)
	mux.HandleFunc("GET /api/v1/session/events", h.Events)
	mux.Handle("GET /metrics", metrics.Handler())

	// Recovery inside logging so panics are caught before logging.
	wrapped := crossOriginMiddleware(logger, mux)
	wrapped = recoveryMiddleware(logger, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSession returns the current session snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.sessionResponse(r, h.sessions.State().Snapshot()))
}

// sessionResponse renders snap, adding the credential expiry while signed in.
func (h *Handler) sessionResponse(r *http.Request, snap model.Session) SessionResponse {
	if !snap.IsAuthenticated {
		return toSessionResponse(snap, nil)
	}
	return toSessionResponse(snap, h.sessions.Credential(r.Context()))
}
