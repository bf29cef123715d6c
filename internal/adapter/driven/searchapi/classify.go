package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

// networkHint is appended to every NETWORK_ERROR message. A browser-side CORS
// rejection and an unreachable host look identical to the client.
const networkHint = "Check your network connection and that the search API allows requests from this origin (CORS)."

// errorEnvelope is the structured error body sent by the search platform:
// {"success": false, "error": {"code": "...", "message": "...", "details": ...}}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type structuredError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// classifyTransportError maps a failure where no response was received.
func classifyTransportError(err error) *model.APIError {
	msg := "Network error: unable to reach the search API. " + networkHint

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		msg = "Network error: the search API did not respond in time. " + networkHint
	case errors.Is(err, context.Canceled):
		msg = "Network error: the request was canceled before the search API responded. " + networkHint
	}

	return &model.APIError{Code: model.ErrNetwork, Message: msg}
}

// classifyResponse maps a received non-2xx response. A structured error code
// from the server always wins over the status-code guess so new server error
// kinds pass through without client changes. Anything else is reported with
// the HTTP status text, even when the body carries a loose "message".
func classifyResponse(status int, body []byte) *model.APIError {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = "Request failed"
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		if se, ok := parseStructuredError(env.Error); ok {
			msg := se.Message
			if msg == "" {
				msg = statusText
			}
			return &model.APIError{
				Code:    model.ErrorKind(se.Code),
				Message: msg,
				Details: decodeDetails(se.Details),
			}
		}
	}

	return &model.APIError{Code: model.KindForStatus(status), Message: statusText}
}

// parseStructuredError accepts only an object with a non-empty code; bare
// strings such as {"error": "boom"} fall through to status mapping.
func parseStructuredError(raw json.RawMessage) (structuredError, bool) {
	var se structuredError
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return se, false
	}
	if err := json.Unmarshal(raw, &se); err != nil || se.Code == "" {
		return se, false
	}
	return se, true
}

func decodeDetails(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// successEnvelope detects bodies shaped {"success": true, "data": ...}.
type successEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// decodeSuccess decodes a 2xx body into T, unwrapping the {success, data}
// envelope when the server uses it.
func decodeSuccess[T any](status int, body []byte) model.Response[T] {
	var out T
	if status == http.StatusNoContent || len(strings.TrimSpace(string(body))) == 0 {
		return model.OK(out)
	}

	payload := body
	var env successEnvelope
	if json.Unmarshal(body, &env) == nil && env.Success != nil {
		if !*env.Success {
			if se, ok := parseStructuredError(env.Error); ok {
				return model.Fail[T](&model.APIError{
					Code:    model.ErrorKind(se.Code),
					Message: se.Message,
					Details: decodeDetails(se.Details),
				})
			}
			return model.Failf[T](model.ErrRequest, http.StatusText(status))
		}
		if len(env.Data) > 0 {
			payload = env.Data
		}
	}

	if err := json.Unmarshal(payload, &out); err != nil {
		return model.Failf[T](model.ErrRequest, "Invalid response from the search API: "+err.Error())
	}
	return model.OK(out)
}
