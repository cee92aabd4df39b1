package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/duty-roster/internal/application"
	"github.com/example/duty-roster/internal/report"
)

// RosterReportService bundles the lookups the plain-text roster needs.
type RosterReportService interface {
	ListAssignments(ctx context.Context, filter application.AssignmentFilter) ([]application.Assignment, error)
	ListTasks(ctx context.Context) ([]application.Task, error)
	ListUsers(ctx context.Context) ([]application.User, error)
}

// ReportHandler serves printable roster requests.
type ReportHandler struct {
	service RosterReportService
	respond responder
	logger  *slog.Logger
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(service RosterReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		respond: newResponder(logger),
		logger:  defaultLogger(logger),
	}
}

// Schedules handles GET /reports/schedules?from=...&to=..., returning a
// text/plain roster for the window.
func (h *ReportHandler) Schedules(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if h == nil || h.service == nil {
		http.Error(w, "report service unavailable", http.StatusInternalServerError)
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
	if from.After(to) {
		h.respond.handleServiceError(ctx, w, application.ErrInvalidDateRange)
		return
	}

	assignments, err := h.service.ListAssignments(ctx, application.AssignmentFilter{From: &from, To: &to})
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	tasks, err := h.service.ListTasks(ctx)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}
	users, err := h.service.ListUsers(ctx)
	if err != nil {
		h.respond.handleServiceError(ctx, w, err)
		return
	}

	taskNames := make(map[string]string, len(tasks))
	for _, task := range tasks {
		taskNames[task.ID] = task.Name
	}
	userNames := make(map[string]string, len(users))
	for _, user := range users {
		userNames[user.ID] = user.Surname + " " + user.Name
	}

	entries := make([]report.Entry, 0, len(assignments))
	for _, assignment := range assignments {
		taskName := taskNames[assignment.TaskID]
		if taskName == "" {
			taskName = assignment.TaskID
		}
		userName := userNames[assignment.UserID]
		if userName == "" {
			userName = assignment.UserID
		}
		entries = append(entries, report.Entry{
			Date:     assignment.Date,
			TaskName: taskName,
			UserName: userName,
		})
	}

	rendered := report.RenderRoster(report.RosterInput{From: from, To: to, Entries: entries})

	handlerLogger(ctx, h.logger, "reports", "", "from", query.Get("from"), "to", query.Get("to")).InfoContext(ctx, "roster rendered")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rendered)); err != nil {
		handlerLogger(ctx, h.logger, "reports", "").ErrorContext(ctx, "failed to write roster", "error", err)
	}
}
