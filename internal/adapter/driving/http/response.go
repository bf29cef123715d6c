package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeOK writes data inside a successful envelope.
func writeOK[T any](w http.ResponseWriter, data T) {
	writeJSON(w, http.StatusOK, model.OK(data))
}

// writeAPIError writes apiErr inside a failed envelope with a status derived
// from its code.
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	writeJSON(w, statusForCode(apiErr.Code), model.Fail[any](apiErr))
}

// statusForCode maps an error kind back to the status the bridge answers with.
// Failures to reach the search API surface as 502.
func statusForCode(code model.ErrorKind) int {
	switch code {
	case model.ErrValidation:
		return http.StatusBadRequest
	case model.ErrUnauthorized:
		return http.StatusUnauthorized
	case model.ErrForbidden:
		return http.StatusForbidden
	case model.ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &model.APIError{Code: model.ErrRequest, Message: err.Error()}
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the JSON body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the JSON representation of the signed-in user.
type UserResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	CreatedAt  string `json:"created_at"`
	LastActive string `json:"last_active,omitempty"`
}

// SessionResponse is the JSON representation of the session record. The
// credential itself is never exposed; only its expiry is.
type SessionResponse struct {
	IsAuthenticated bool          `json:"is_authenticated"`
	User            *UserResponse `json:"user"`
	IsLoading       bool          `json:"is_loading"`
	Error           string        `json:"error,omitempty"`
	ExpiresAt       string        `json:"expires_at,omitempty"`
}

func toUserResponse(u model.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !u.LastActive.IsZero() {
		resp.LastActive = u.LastActive.UTC().Format(time.RFC3339)
	}
	return resp
}

// toSessionResponse converts a session snapshot and the credential backing it.
// cred may be nil.
func toSessionResponse(s model.Session, cred *model.Credential) SessionResponse {
	resp := SessionResponse{
		IsAuthenticated: s.IsAuthenticated,
		IsLoading:       s.IsLoading,
		Error:           s.Error,
	}
	if s.User != nil {
		u := toUserResponse(*s.User)
		resp.User = &u
	}
	if cred != nil {
		resp.ExpiresAt = cred.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}
