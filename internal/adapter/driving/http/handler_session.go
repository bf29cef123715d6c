package httphandler

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

// maxRequestBody caps the size of login and register bodies.
const maxRequestBody = 64 << 10

// Login signs in with the credentials in the request body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp := h.sessions.Login(r.Context(), req.Email, req.Password)
	if !resp.Success {
		writeAPIError(w, resp.Error)
		return
	}
	writeOK(w, h.sessionResponse(r, h.sessions.State().Snapshot()))
}

// Register creates an account and signs in with it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp := h.sessions.Register(r.Context(), req.Name, req.Email, req.Password)
	if !resp.Success {
		writeAPIError(w, resp.Error)
		return
	}
	writeOK(w, h.sessionResponse(r, h.sessions.State().Snapshot()))
}

// Logout ends the session. It always succeeds locally.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	writeOK(w, h.sessionResponse(r, h.sessions.State().Snapshot()))
}

// Refresh renews the credential if it is close to expiry.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cred, err := h.sessions.RefreshIfNeeded(r.Context())
	if err != nil {
		writeAPIError(w, asAPIError(err))
		return
	}
	if cred == nil {
		writeAPIError(w, &model.APIError{Code: model.ErrUnauthorized, Message: "Not signed in"})
		return
	}
	writeOK(w, h.sessionResponse(r, h.sessions.State().Snapshot()))
}

// Profile re-fetches the signed-in user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	resp := h.sessions.ReloadProfile(r.Context())
	if !resp.Success {
		writeAPIError(w, resp.Error)
		return
	}
	writeOK(w, toUserResponse(resp.Data))
}

// Events streams session snapshots as Server-Sent Events until the client
// disconnects. The current snapshot is sent first.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("session events unsupported by response writer", "error", err)
		return
	}

	sub := h.sessions.State().Subscribe()
	defer sub.Close()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(h.sessionResponse(r, snap))
			if err != nil {
				h.logger.Error("encoding session event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// decodeBody reads a JSON request body into v, writing a VALIDATION_ERROR
// response and returning false when the body is malformed or not sent as
// application/json.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeAPIError(w, &model.APIError{Code: model.ErrValidation, Message: "request body must be application/json"})
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err = dec.Decode(v); err != nil {
		writeAPIError(w, &model.APIError{Code: model.ErrValidation, Message: "invalid request body"})
		return false
	}
	return true
}
