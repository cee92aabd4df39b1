package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/duty-roster/internal/application"
)

// RoleCatalogService exposes the ordered role catalog operations used by the
// role endpoints.
type RoleCatalogService interface {
	CreateRole(ctx context.Context, params application.CreateRoleParams) (application.Role, error)
	UpdateRole(ctx context.Context, params application.UpdateRoleParams) (application.Role, error)
	DeleteRole(ctx context.Context, principal application.Principal, roleID string) error
	Reorder(ctx context.Context, params application.ReorderRolesParams) error
	GetRole(ctx context.Context, id string) (application.Role, error)
	ListRoles(ctx context.Context, filter application.RoleFilter) ([]application.Role, error)
}

// RoleHandler serves role catalog requests.
type RoleHandler struct {
	service RoleCatalogService
	respond responder
	logger  *slog.Logger
}

// NewRoleHandler constructs a RoleHandler.
func NewRoleHandler(service RoleCatalogService, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// List handles GET /roles. The type and visible_in_prints query parameters
// narrow the listing.
func (h *RoleHandler) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "role service unavailable", http.StatusInternalServerError)
		return
	}

	var filter application.RoleFilter
	if roleType := req.URL.Query().Get("type"); roleType != "" {
		filter.Type = &roleType
	}
	if visible := req.URL.Query().Get("visible_in_prints"); visible != "" {
		flag := visible == "true" || visible == "1"
		filter.VisibleInPrints = &flag
	}

	roles, err := h.service.ListRoles(ctx, filter)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]roleDTO, 0, len(roles))
	for _, role := range roles {
		payload = append(payload, toRoleDTO(role))
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, payload)
}

// Get handles GET /roles/{id}.
func (h *RoleHandler) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "role service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	role, err := h.service.GetRole(ctx, id)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, toRoleDTO(role))
}

// Create handles POST /roles.
func (h *RoleHandler) Create(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "role service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload roleRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	created, err := h.service.CreateRole(ctx, application.CreateRoleParams{
		Principal: principal,
		Input:     payload.toInput(),
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "role created", "role_id", created.ID, "role_name", created.Name)
	h.respond.writeJSON(ctx, w, http.StatusCreated, toRoleDTO(created))
}

// Update handles PUT /roles/{id}.
func (h *RoleHandler) Update(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "role service unavailable", http.StatusInternalServerError)
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

	var payload roleRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updated, err := h.service.UpdateRole(ctx, application.UpdateRoleParams{
		Principal: principal,
		RoleID:    id,
		Input:     payload.toInput(),
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "role updated", "role_id", updated.ID)
	h.respond.writeJSON(ctx, w, http.StatusOK, toRoleDTO(updated))
}

// Delete handles DELETE /roles/{id}.
func (h *RoleHandler) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "role service unavailable", http.StatusInternalServerError)
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

	if err := h.service.DeleteRole(ctx, principal, id); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "role deleted", "role_id", id)
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Reorder handles POST /roles/reorder, applying a batch of catalog moves.
func (h *RoleHandler) Reorder(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "role service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload reorderRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updates := make([]application.RoleOrderUpdate, 0, len(payload.Updates))
	for _, update := range payload.Updates {
		updates = append(updates, application.RoleOrderUpdate{
			RoleID:    update.RoleID,
			SortOrder: update.SortOrder,
		})
	}

	if err := h.service.Reorder(ctx, application.ReorderRolesParams{
		Principal: principal,
		Updates:   updates,
	}); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "roles reordered", "moves", len(updates))
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *RoleHandler) log(ctx context.Context, message string, attrs ...any) {
	handlerLogger(ctx, h.logger, "roles", "", attrs...).InfoContext(ctx, message)
}

type roleRequest struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	SortOrder       int    `json:"sort_order"`
	VisibleInPrints bool   `json:"visible_in_prints"`
}

func (r roleRequest) toInput() application.RoleInput {
	return application.RoleInput{
		Name:            r.Name,
		Type:            r.Type,
		SortOrder:       r.SortOrder,
		VisibleInPrints: r.VisibleInPrints,
	}
}

type reorderRequest struct {
	Updates []reorderEntry `json:"updates"`
}

type reorderEntry struct {
	RoleID    string `json:"role_id"`
	SortOrder int    `json:"sort_order"`
}

type roleDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	SortOrder       int    `json:"sort_order"`
	VisibleInPrints bool   `json:"visible_in_prints"`
}

func toRoleDTO(role application.Role) roleDTO {
	return roleDTO{
		ID:              role.ID,
		Name:            role.Name,
		Type:            role.Type,
		SortOrder:       role.SortOrder,
		VisibleInPrints: role.VisibleInPrints,
	}
}
