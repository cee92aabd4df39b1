package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/duty-roster/internal/application"
)

// UserAccountService exposes the account operations used by the user endpoints.
type UserAccountService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	GetUser(ctx context.Context, id string) (application.User, error)
	ListUsers(ctx context.Context) ([]application.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, id string) error
}

// UserHandler serves member account requests.
type UserHandler struct {
	service UserAccountService
	respond responder
	logger  *slog.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(service UserAccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "user service unavailable", http.StatusInternalServerError)
		return
	}

	users, err := h.service.ListUsers(ctx)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]userDTO, 0, len(users))
	for _, user := range users {
		payload = append(payload, toUserDTO(user))
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, payload)
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "user service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	user, err := h.service.GetUser(ctx, id)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, toUserDTO(user))
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "user service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload userRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	created, err := h.service.CreateUser(ctx, application.CreateUserParams{
		Principal: principal,
		Input:     payload.toInput(),
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "user created", "user_id", created.ID)
	h.respond.writeJSON(ctx, w, http.StatusCreated, toUserDTO(created))
}

// Update handles PUT /users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "user service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var payload userRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updated, err := h.service.UpdateUser(ctx, application.UpdateUserParams{
		Principal: principal,
		UserID:    id,
		Input:     payload.toInput(),
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "user updated", "user_id", updated.ID)
	h.respond.writeJSON(ctx, w, http.StatusOK, toUserDTO(updated))
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "user service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	if err := h.service.DeleteUser(ctx, principal, id); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "user deleted", "user_id", id)
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Current handles GET /sessions/current, returning the authenticated account.
func (h *UserHandler) Current(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "user service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	user, err := h.service.GetUser(ctx, principal.UserID)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, toUserDTO(user))
}

func (h *UserHandler) log(ctx context.Context, message string, attrs ...any) {
	handlerLogger(ctx, h.logger, "users", "", attrs...).InfoContext(ctx, message)
}

type userRequest struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Surname  string   `json:"surname"`
	Password string   `json:"password"`
	Enabled  *bool    `json:"enabled"`
	Roles    []string `json:"roles"`
}

func (r userRequest) toInput() application.UserInput {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return application.UserInput{
		Email:     r.Email,
		Name:      r.Name,
		Surname:   r.Surname,
		Password:  r.Password,
		Enabled:   enabled,
		RoleNames: r.Roles,
	}
}

type userDTO struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Surname   string   `json:"surname"`
	Enabled   bool     `json:"enabled"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Surname:   user.Surname,
		Enabled:   user.Enabled,
		Roles:     user.RoleNames,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
