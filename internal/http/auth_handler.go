package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/duty-roster/internal/application"
)

const sessionCookieName = "session_token"

// AuthSessionService exposes the session lifecycle operations used by the
// authentication endpoints.
type AuthSessionService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
}

// AuthHandler serves login and logout requests.
type AuthHandler struct {
	service AuthSessionService
	respond responder
	logger  *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(service AuthSessionService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// CreateSession handles POST /login.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "auth service unavailable", http.StatusInternalServerError)
		return
	}

	var payload loginRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "session created", "user_id", result.User.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    result.Session.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("X-Session-Token", result.Session.Token)

	h.respond.writeJSON(ctx, w, http.StatusOK, loginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt.Format(time.RFC3339),
		User:      toUserDTO(result.User),
	})
}

// DeleteCurrentSession handles POST /logout for the session backing the request.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "auth service unavailable", http.StatusInternalServerError)
		return
	}

	token := extractTokenFromRequest(req)
	if token == "" {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	if err := h.service.RevokeSession(ctx, token); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "session revoked")

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// DeleteSession handles DELETE /sessions/{token}, letting administrators
// revoke a session other than their own.
func (h *AuthHandler) DeleteSession(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "auth service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}
	if !principal.IsAdmin() {
		h.respond.handleServiceError(ctx, w, application.ErrForbidden)
		return
	}

	token, ok := ResourceIDFromContext(ctx)
	if !ok || token == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	if err := h.service.RevokeSession(ctx, token); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "session revoked by admin", "admin_id", principal.UserID)
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *AuthHandler) log(ctx context.Context, message string, attrs ...any) {
	handlerLogger(ctx, h.logger, "auth", "", attrs...).InfoContext(ctx, message)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      userDTO `json:"user"`
}
