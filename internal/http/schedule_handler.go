package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/duty-roster/internal/application"
)

// ScheduleEngineService exposes the assignment operations used by the
// schedule endpoints.
type ScheduleEngineService interface {
	CreateAssignment(ctx context.Context, params application.CreateAssignmentParams) (application.Assignment, error)
	UpdateAssignment(ctx context.Context, params application.UpdateAssignmentParams) (application.Assignment, error)
	CreateForWholePeriod(ctx context.Context, params application.CreateWholePeriodParams) ([]application.Assignment, error)
	GetAssignment(ctx context.Context, id string) (application.Assignment, error)
	ListAssignments(ctx context.Context, filter application.AssignmentFilter) ([]application.Assignment, error)
	ListCurrentAssignments(ctx context.Context, filter application.AssignmentFilter) ([]application.Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
	AvailableTasks(ctx context.Context, params application.AvailableTasksParams) ([]application.Task, error)
	UserDependenciesForTask(ctx context.Context, params application.UserDependenciesParams) (application.UserDependencies, error)
	AllUserDependenciesForTask(ctx context.Context, params application.AllUserDependenciesParams) ([]application.UserDependencies, error)
}

// ScheduleHandler serves assignment requests.
type ScheduleHandler struct {
	service ScheduleEngineService
	respond responder
	logger  *slog.Logger
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(service ScheduleEngineService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// List handles GET /schedules. The user_id, task_id, date, from, and to query
// parameters narrow the listing; current=true clamps the window to today.
func (h *ScheduleHandler) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
		return
	}

	query := req.URL.Query()
	filter := application.AssignmentFilter{
		UserID: query.Get("user_id"),
		TaskID: query.Get("task_id"),
	}

	var err error
	if filter.Date, err = optionalDateQuery(query, "date"); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	if filter.From, err = optionalDateQuery(query, "from"); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	if filter.To, err = optionalDateQuery(query, "to"); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	var assignments []application.Assignment
	if query.Get("current") == "true" {
		assignments, err = h.service.ListCurrentAssignments(ctx, filter)
	} else {
		assignments, err = h.service.ListAssignments(ctx, filter)
	}
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]assignmentDTO, 0, len(assignments))
	for _, assignment := range assignments {
		payload = append(payload, toAssignmentDTO(assignment))
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, payload)
}

// Get handles GET /schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	assignment, err := h.service.GetAssignment(ctx, id)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, toAssignmentDTO(assignment))
}

// Create handles POST /schedules.
func (h *ScheduleHandler) Create(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload assignmentRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	created, err := h.service.CreateAssignment(ctx, application.CreateAssignmentParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "assignment created", "assignment_id", created.ID, "user_id", created.UserID, "task_id", created.TaskID)
	h.respond.writeJSON(ctx, w, http.StatusCreated, toAssignmentDTO(created))
}

// Update handles PUT /schedules/{id}. Omitted fields default to the stored
// assignment's values.
func (h *ScheduleHandler) Update(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
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

	var payload assignmentRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.service.UpdateAssignment(ctx, application.UpdateAssignmentParams{
		Principal:    principal,
		AssignmentID: id,
		Input:        input,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "assignment updated", "assignment_id", updated.ID)
	h.respond.writeJSON(ctx, w, http.StatusOK, toAssignmentDTO(updated))
}

// Delete handles DELETE /schedules/{id}.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(ctx)
	if !ok || id == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	if err := h.service.DeleteAssignment(ctx, id); err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "assignment deleted", "assignment_id", id)
	h.respond.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// CreatePeriod handles POST /schedules/period, booking one assignment per day
// of a Monday-to-Sunday week in a single transaction.
func (h *ScheduleHandler) CreatePeriod(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.respond.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var payload wholePeriodRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	created, err := h.service.CreateForWholePeriod(ctx, application.CreateWholePeriodParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	h.log(ctx, "whole period booked", "user_id", input.UserID, "task_id", input.TaskID, "assignments", len(created))

	payload2 := make([]assignmentDTO, 0, len(created))
	for _, assignment := range created {
		payload2 = append(payload2, toAssignmentDTO(assignment))
	}
	h.respond.writeJSON(ctx, w, http.StatusCreated, payload2)
}

// AvailableTasks handles GET /schedules/available-tasks. The from and to
// query parameters bound the window; supervisor_role optionally narrows the
// catalog to one supervisor's tasks.
func (h *ScheduleHandler) AvailableTasks(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
		return
	}

	query := req.URL.Query()
	from, err := parseDateParam(query.Get("from"))
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(query.Get("to"))
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	tasks, err := h.service.AvailableTasks(ctx, application.AvailableTasksParams{
		From:               from,
		To:                 to,
		SupervisorRoleName: query.Get("supervisor_role"),
	})
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

// Dependencies handles GET /schedules/task/{id}/dependencies. With a user_id
// query parameter the response carries one summary; without it, one summary
// per user eligible for the task.
func (h *ScheduleHandler) Dependencies(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "schedule service unavailable", http.StatusInternalServerError)
		return
	}

	taskID, ok := ResourceIDFromContext(ctx)
	if !ok || taskID == "" {
		h.respond.writeError(ctx, w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	query := req.URL.Query()
	from, err := parseDateParam(query.Get("from"))
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(query.Get("to"))
	if err != nil {
		h.respond.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	if userID := query.Get("user_id"); userID != "" {
		deps, err := h.service.UserDependenciesForTask(ctx, application.UserDependenciesParams{
			TaskID: taskID,
			UserID: userID,
			From:   from,
			To:     to,
		})
		if err != nil {
			h.respond.handleServiceError(ctx, w, err)
			return
		}
		h.respond.writeJSON(ctx, w, http.StatusOK, toDependenciesDTO(deps))
		return
	}

	all, err := h.service.AllUserDependenciesForTask(ctx, application.AllUserDependenciesParams{
		TaskID: taskID,
		From:   from,
		To:     to,
	})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]dependenciesDTO, 0, len(all))
	for _, deps := range all {
		payload = append(payload, toDependenciesDTO(deps))
	}
	h.respond.writeJSON(ctx, w, http.StatusOK, payload)
}

func (h *ScheduleHandler) log(ctx context.Context, message string, attrs ...any) {
	handlerLogger(ctx, h.logger, "schedules", "", attrs...).InfoContext(ctx, message)
}

type assignmentRequest struct {
	UserID          string `json:"user_id"`
	TaskID          string `json:"task_id"`
	Date            string `json:"date"`
	IgnoreConflicts bool   `json:"ignore_conflicts"`
}

func (r assignmentRequest) toInput() (application.AssignmentInput, error) {
	var date time.Time
	if r.Date != "" {
		parsed, err := parseDateParam(r.Date)
		if err != nil {
			return application.AssignmentInput{}, err
		}
		date = parsed
	}

	return application.AssignmentInput{
		UserID:          r.UserID,
		TaskID:          r.TaskID,
		Date:            date,
		IgnoreConflicts: r.IgnoreConflicts,
	}, nil
}

type wholePeriodRequest struct {
	UserID          string `json:"user_id"`
	TaskID          string `json:"task_id"`
	From            string `json:"from"`
	To              string `json:"to"`
	IgnoreConflicts bool   `json:"ignore_conflicts"`
}

func (r wholePeriodRequest) toInput() (application.WholePeriodInput, error) {
	from, err := parseDateParam(r.From)
	if err != nil {
		return application.WholePeriodInput{}, err
	}
	to, err := parseDateParam(r.To)
	if err != nil {
		return application.WholePeriodInput{}, err
	}

	return application.WholePeriodInput{
		UserID:          r.UserID,
		TaskID:          r.TaskID,
		From:            from,
		To:              to,
		IgnoreConflicts: r.IgnoreConflicts,
	}, nil
}

type assignmentDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at"`
}

func toAssignmentDTO(assignment application.Assignment) assignmentDTO {
	return assignmentDTO{
		ID:        assignment.ID,
		UserID:    assignment.UserID,
		TaskID:    assignment.TaskID,
		Date:      assignment.Date.Format(dateLayout),
		CreatedAt: assignment.CreatedAt.Format(time.RFC3339),
	}
}

type dependenciesDTO struct {
	UserID           string   `json:"user_id"`
	CompletionCount  int      `json:"completion_count"`
	LastAssignedDate *string  `json:"last_assigned_date,omitempty"`
	Summaries        []string `json:"summaries"`
	HasConflict      bool     `json:"has_conflict"`
	HasObstacle      bool     `json:"has_obstacle"`
}

func toDependenciesDTO(deps application.UserDependencies) dependenciesDTO {
	dto := dependenciesDTO{
		UserID:          deps.UserID,
		CompletionCount: deps.CompletionCount,
		Summaries:       deps.Summaries,
		HasConflict:     deps.HasConflict,
		HasObstacle:     deps.HasObstacle,
	}
	if deps.LastAssignedDate != nil {
		formatted := deps.LastAssignedDate.Format(dateLayout)
		dto.LastAssignedDate = &formatted
	}
	return dto
}
