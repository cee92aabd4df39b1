package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/duty-roster/internal/application"
)

// ConflictMatrixService exposes the conflict pair operations used by the
// conflict endpoints.
type ConflictMatrixService interface {
	DeclareConflict(ctx context.Context, params application.DeclareConflictParams) (application.Conflict, error)
	UpdateConflict(ctx context.Context, params application.UpdateConflictParams) (application.Conflict, error)
	RemoveConflict(ctx context.Context, id string) error
	GetConflict(ctx context.Context, id string) (application.Conflict, error)
	ListConflicts(ctx context.Context) ([]application.Conflict, error)
}

// ConflictHandler serves conflict matrix requests.
type ConflictHandler struct {
	service ConflictMatrixService
	respond responder
	logger  *slog.Logger
}

// NewConflictHandler constructs a ConflictHandler.
func NewConflictHandler(service ConflictMatrixService, logger *slog.Logger) *ConflictHandler {
	return &ConflictHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// List handles GET /conflicts.
func (h *ConflictHandler) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "conflict service unavailable", http.StatusInternalServerError)
		return
	}

	conflicts, err := h.service.ListConflicts(ctx)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]conflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		payload = append(payload, toConflictDTO(conflict))
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, payload)
}

// Get handles GET /conflicts/{id}.
func (h *ConflictHandler) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "conflict service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	conflict, err := h.service.GetConflict(ctx, id)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, toConflictDTO(conflict))
}

// Create handles POST /conflicts.
func (h *ConflictHandler) Create(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "conflict service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload conflictRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	created, err := h.service.DeclareConflict(ctx, application.DeclareConflictParams{
		Principal: principal,
		Input:     payload.toInput(),
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "conflict declared", "conflict_id", created.ID)
	h.respond.writeJSON(ctx, w, http.StatusCreated, toConflictDTO(created))
}

// Update handles PUT /conflicts/{id}.
func (h *ConflictHandler) Update(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "conflict service unavailable", http.StatusInternalServerError)
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

	var payload conflictRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updated, err := h.service.UpdateConflict(ctx, application.UpdateConflictParams{
		Principal:  principal,
		ConflictID: id,
		Input:      payload.toInput(),
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "conflict updated", "conflict_id", updated.ID)
	h.respond.writeJSON(ctx, w, http.StatusOK, toConflictDTO(updated))
}

// Delete handles DELETE /conflicts/{id}.
func (h *ConflictHandler) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "conflict service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	if err := h.service.RemoveConflict(ctx, id); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "conflict removed", "conflict_id", id)
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *ConflictHandler) log(ctx context.Context, message string, attrs ...any) {
	handlerLogger(ctx, h.logger, "conflicts", "", attrs...).InfoContext(ctx, message)
}

type conflictRequest struct {
	TaskAID string `json:"task_a_id"`
	TaskBID string `json:"task_b_id"`
}

func (r conflictRequest) toInput() application.ConflictInput {
	return application.ConflictInput{
		TaskAID: r.TaskAID,
		TaskBID: r.TaskBID,
	}
}

type conflictDTO struct {
	ID      string `json:"id"`
	TaskAID string `json:"task_a_id"`
	TaskBID string `json:"task_b_id"`
}

func toConflictDTO(conflict application.Conflict) conflictDTO {
	return conflictDTO{
		ID:      conflict.ID,
		TaskAID: conflict.TaskAID,
		TaskBID: conflict.TaskBID,
	}
}
