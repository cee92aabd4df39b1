package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/duty-roster/internal/application"
	"github.com/example/duty-roster/internal/logging"
)

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// SessionValidator resolves a session token to the acting principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// RequireSession rejects requests that do not carry a valid session token.
// The token is read from the Authorization header (Bearer scheme) or, as a
// fallback, from the session_token cookie. On success the principal is stored
// in the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) Middleware {
	respond := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if validator == nil {
				respond.writeError(req.Context(), w, http.StatusInternalServerError, nil)
				return
			}

			token := extractTokenFromRequest(req)
			if token == "" {
				respond.writeError(req.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
				return
			}

			principal, err := validator.ValidateSession(req.Context(), token)
			if err != nil {
				respond.handleServiceError(req.Context(), w, err)
				return
			}

			ctx := ContextWithPrincipal(req.Context(), principal)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// extractTokenFromRequest prefers the Authorization header over the cookie so
// API clients can override a stale browser session.
func extractTokenFromRequest(req *http.Request) string {
	if req == nil {
		return ""
	}

	header := req.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token
		}
	}

	if cookie, err := req.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequestLogger assigns each request a sequential id, attaches a scoped logger
// to the context, and emits a completion record with status and duration.
func RequestLogger(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			requestID := counter.Add(1)

			scoped := logger.With(
				"request_id", requestID,
				"method", req.Method,
				"path", req.URL.Path,
			)
			ctx := logging.ContextWithLogger(req.Context(), scoped)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, req.WithContext(ctx))

			scoped.InfoContext(ctx, "request completed",
				"status", recorder.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
