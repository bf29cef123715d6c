package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the underlying writer to http.ResponseController so
// streaming handlers can flush through the middleware.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// requestIDHeader correlates a bridge request with its log line. The search
// API pipeline sends the same header upstream.
const requestIDHeader = "X-Request-ID"

// loggingMiddleware logs each bridge request with its request ID, status and
// duration. A caller-supplied X-Request-ID is kept, otherwise one is minted,
// and either way it is echoed on the response.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info("bridge request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// crossOriginMiddleware rejects cross-site POSTs using the Sec-Fetch-Site and
// Origin headers browsers attach. Requests without either header, such as
// those from the CLI or curl, pass through.
func crossOriginMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	cop := http.NewCrossOriginProtection()
	cop.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("cross-origin request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"origin", r.Header.Get("Origin"),
			"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
		)
		writeAPIError(w, &model.APIError{Code: model.ErrForbidden, Message: "cross-origin request rejected"})
	}))
	return cop.Handler(next)
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
				)
				writeAPIError(w, &model.APIError{Code: model.ErrInternal, Message: "internal server error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
