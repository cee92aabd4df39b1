package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/duty-roster/internal/application"
)

// TaskCatalogService exposes the task catalog operations used by the task
// endpoints.
type TaskCatalogService interface {
	CreateTask(ctx context.Context, params application.CreateTaskParams) (application.Task, error)
	UpdateTask(ctx context.Context, params application.UpdateTaskParams) (application.Task, error)
	GetTask(ctx context.Context, id string) (application.Task, error)
	ListTasks(ctx context.Context) ([]application.Task, error)
	DeleteTask(ctx context.Context, principal application.Principal, id string) error
}

// TaskHandler serves task catalog requests.
type TaskHandler struct {
	service TaskCatalogService
	respond responder
	logger  *slog.Logger
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(service TaskCatalogService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// List handles GET /tasks.
func (h *TaskHandler) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "task service unavailable", http.StatusInternalServerError)
		return
	}

	tasks, err := h.service.ListTasks(ctx)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]taskDTO, 0, len(tasks))
	for _, task := range tasks {
		payload = append(payload, toTaskDTO(task))
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, payload)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "task service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	task, err := h.service.GetTask(ctx, id)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, toTaskDTO(task))
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "task service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload taskRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	created, err := h.service.CreateTask(ctx, application.CreateTaskParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "task created", "task_id", created.ID, "task_name", created.Name)
	h.respond.writeJSON(ctx, w, http.StatusCreated, toTaskDTO(created))
}

// Update handles PUT /tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "task service unavailable", http.StatusInternalServerError)
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

	var payload taskRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.service.UpdateTask(ctx, application.UpdateTaskParams{
		Principal: principal,
		TaskID:    id,
		Input:     input,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "task updated", "task_id", updated.ID)
	h.respond.writeJSON(ctx, w, http.StatusOK, toTaskDTO(updated))
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "task service unavailable", http.StatusInternalServerError)
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

	if err := h.service.DeleteTask(ctx, principal, id); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "task deleted", "task_id", id)
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *TaskHandler) log(ctx context.Context, message string, attrs ...any) {
	handlerLogger(ctx, h.logger, "tasks", "", attrs...).InfoContext(ctx, message)
}

var errInvalidWeekday = errors.New("Dni tygodnia muszą być liczbami od 0 (niedziela) do 6 (sobota).")

type taskRequest struct {
	Name              string   `json:"name"`
	Abbreviation      string   `json:"abbreviation"`
	Category          string   `json:"category"`
	ParticipantsLimit int      `json:"participants_limit"`
	Permanent         bool     `json:"permanent"`
	WholePeriod       bool     `json:"whole_period"`
	DaysOfWeek        []int    `json:"days_of_week"`
	AllowedRoles      []string `json:"allowed_roles"`
	SupervisorRole    *string  `json:"supervisor_role"`
}

func (r taskRequest) toInput() (application.TaskInput, error) {
	days := make([]time.Weekday, 0, len(r.DaysOfWeek))
	for _, day := range r.DaysOfWeek {
		if day < 0 || day > 6 {
			return application.TaskInput{}, errInvalidWeekday
		}
		days = append(days, time.Weekday(day))
	}

	return application.TaskInput{
		Name:               r.Name,
		Abbreviation:       r.Abbreviation,
		Category:           r.Category,
		ParticipantsLimit:  r.ParticipantsLimit,
		Permanent:          r.Permanent,
		WholePeriod:        r.WholePeriod,
		DaysOfWeek:         days,
		AllowedRoleNames:   r.AllowedRoles,
		SupervisorRoleName: r.SupervisorRole,
	}, nil
}

type taskDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Abbreviation      string   `json:"abbreviation,omitempty"`
	Category          string   `json:"category,omitempty"`
	ParticipantsLimit int      `json:"participants_limit"`
	Permanent         bool     `json:"permanent"`
	WholePeriod       bool     `json:"whole_period"`
	DaysOfWeek        []int    `json:"days_of_week"`
	AllowedRoleIDs    []string `json:"allowed_role_ids"`
	SupervisorRole    *string  `json:"supervisor_role,omitempty"`
}

func toTaskDTO(task application.Task) taskDTO {
	days := make([]int, 0, len(task.DaysOfWeek))
	for _, day := range task.DaysOfWeek {
		days = append(days, int(day))
	}

	return taskDTO{
		ID:                task.ID,
		Name:              task.Name,
		Abbreviation:      task.Abbreviation,
		Category:          task.Category,
		ParticipantsLimit: task.ParticipantsLimit,
		Permanent:         task.Permanent,
		WholePeriod:       task.WholePeriod,
		DaysOfWeek:        days,
		AllowedRoleIDs:    task.AllowedRoleIDs,
		SupervisorRole:    task.SupervisorRoleName,
	}
}
