package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/duty-roster/internal/application"
)

// ObstacleLedgerService exposes the leave request operations used by the
// obstacle endpoints.
type ObstacleLedgerService interface {
	CreateObstacle(ctx context.Context, params application.CreateObstacleParams) (application.Obstacle, error)
	PatchObstacle(ctx context.Context, params application.PatchObstacleParams) (application.Obstacle, error)
	DeleteObstacle(ctx context.Context, principal application.Principal, id string) error
	GetObstacle(ctx context.Context, id string) (application.Obstacle, error)
	ListObstacles(ctx context.Context, filter application.ObstacleFilter) ([]application.Obstacle, error)
}

// ObstacleHandler serves leave request endpoints.
type ObstacleHandler struct {
	service ObstacleLedgerService
	respond responder
	logger  *slog.Logger
}

// NewObstacleHandler constructs an ObstacleHandler.
func NewObstacleHandler(service ObstacleLedgerService, logger *slog.Logger) *ObstacleHandler {
	return &ObstacleHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// List handles GET /obstacles. The user_id, task_id, and status query
// parameters narrow the listing.
func (h *ObstacleHandler) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "obstacle service unavailable", http.StatusInternalServerError)
		return
	}

	query := req.URL.Query()
	filter := application.ObstacleFilter{
		UserID: query.Get("user_id"),
		TaskID: query.Get("task_id"),
		Status: query.Get("status"),
	}

	obstacles, err := h.service.ListObstacles(ctx, filter)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]obstacleDTO, 0, len(obstacles))
	for _, obstacle := range obstacles {
		payload = append(payload, toObstacleDTO(obstacle))
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, payload)
}

// Get handles GET /obstacles/{id}.
func (h *ObstacleHandler) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "obstacle service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	obstacle, err := h.service.GetObstacle(ctx, id)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, toObstacleDTO(obstacle))
}

// Create handles POST /obstacles.
func (h *ObstacleHandler) Create(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "obstacle service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload obstacleRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	created, err := h.service.CreateObstacle(ctx, application.CreateObstacleParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "obstacle filed", "obstacle_id", created.ID, "user_id", created.UserID)
	h.respond.writeJSON(ctx, w, http.StatusCreated, toObstacleDTO(created))
}

// Patch handles PATCH /obstacles/{id}, applying the reviewer's decision.
func (h *ObstacleHandler) Patch(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "obstacle service unavailable", http.StatusInternalServerError)
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

	var payload obstaclePatchRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patched, err := h.service.PatchObstacle(ctx, application.PatchObstacleParams{
		Principal:  principal,
		ObstacleID: id,
		Patch: application.ObstaclePatch{
			Status:          payload.Status,
			RecipientAnswer: payload.RecipientAnswer,
			RecipientUserID: payload.RecipientUserID,
		},
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "obstacle decided", "obstacle_id", patched.ID, "status", patched.Status)
	h.respond.writeJSON(ctx, w, http.StatusOK, toObstacleDTO(patched))
}

// Delete handles DELETE /obstacles/{id}.
func (h *ObstacleHandler) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "obstacle service unavailable", http.StatusInternalServerError)
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

	if err := h.service.DeleteObstacle(ctx, principal, id); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "obstacle deleted", "obstacle_id", id)
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *ObstacleHandler) log(ctx context.Context, message string, attrs ...any) {
	handlerLogger(ctx, h.logger, "obstacles", "", attrs...).InfoContext(ctx, message)
}

type obstacleRequest struct {
	UserID               string   `json:"user_id"`
	TaskIDs              []string `json:"task_ids"`
	FromDate             string   `json:"from_date"`
	ToDate               string   `json:"to_date"`
	ApplicantDescription string   `json:"applicant_description"`
}

func (r obstacleRequest) toInput() (application.ObstacleInput, error) {
	var input application.ObstacleInput

	from, err := parseDateParam(r.FromDate)
	if err != nil {
		return input, err
	}
	to, err := parseDateParam(r.ToDate)
	if err != nil {
		return input, err
	}

	input = application.ObstacleInput{
		UserID:               r.UserID,
		TaskIDs:              r.TaskIDs,
		FromDate:             from,
		ToDate:               to,
		ApplicantDescription: r.ApplicantDescription,
	}
	return input, nil
}

type obstaclePatchRequest struct {
	Status          string  `json:"status"`
	RecipientAnswer *string `json:"recipient_answer"`
	RecipientUserID *string `json:"recipient_user_id"`
}

type obstacleDTO struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"user_id"`
	TaskIDs              []string `json:"task_ids"`
	FromDate             string   `json:"from_date"`
	ToDate               string   `json:"to_date"`
	Status               string   `json:"status"`
	ApplicantDescription string   `json:"applicant_description,omitempty"`
	RecipientUserID      *string  `json:"recipient_user_id,omitempty"`
	RecipientAnswer      *string  `json:"recipient_answer,omitempty"`
	CreatedAt            string   `json:"created_at"`
}

func toObstacleDTO(obstacle application.Obstacle) obstacleDTO {
	return obstacleDTO{
		ID:                   obstacle.ID,
		UserID:               obstacle.UserID,
		TaskIDs:              obstacle.TaskIDs,
		FromDate:             obstacle.FromDate.Format(dateLayout),
		ToDate:               obstacle.ToDate.Format(dateLayout),
		Status:               obstacle.Status,
		ApplicantDescription: obstacle.ApplicantDescription,
		RecipientUserID:      obstacle.RecipientUserID,
		RecipientAnswer:      obstacle.RecipientAnswer,
		CreatedAt:            obstacle.CreatedAt.Format(time.RFC3339),
	}
}
