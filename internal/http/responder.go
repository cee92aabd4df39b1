package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/duty-roster/internal/application"
	"github.com/example/duty-roster/internal/logging"
)

var (
	errBadRequestBody      = errors.New("Nieprawidłowy format żądania.")
	errInvalidResourceID   = errors.New("Nieprawidłowy identyfikator zasobu.")
	errInvalidDateParam    = errors.New("Nieprawidłowy format daty. Oczekiwano RRRR-MM-DD.")
	errMissingSessionToken = errors.New("Podaj token uwierzytelniający.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application sentinels to the boundary status
// contract: missing resources map to 404, state clashes and protected entities
// to 409, validation-class failures to 400, authorization gates to 403, and
// session problems to 401.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "Nie znaleziono żądanego zasobu."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "Taki zasób już istnieje."})
	case errors.Is(err, application.ErrScheduleConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SCHEDULE_IN_CONFLICT",
			Message:   "Przydział koliduje z innym zadaniem zaplanowanym w tym dniu.",
		})
	case errors.Is(err, application.ErrObstaclePresent):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "OBSTACLE_PRESENT",
			Message:   "W wybranym terminie obowiązuje zatwierdzona przeszkoda.",
		})
	case errors.Is(err, application.ErrRoleRequirements):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ROLE_REQUIREMENTS_NOT_MET",
			Message:   "Użytkownik nie spełnia wymagań roli dla tego zadania.",
		})
	case errors.Is(err, application.ErrSensitiveEntity):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "Ten wpis systemowy jest chroniony i nie może zostać zmieniony."})
	case errors.Is(err, application.ErrSameTasksForConflict):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: "Konflikt musi dotyczyć dwóch różnych zadań."})
	case errors.Is(err, application.ErrInvalidDateRange):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: "Data początkowa nie może być późniejsza niż data końcowa."})
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "Brak uprawnień do wykonania tej operacji.",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "Nieprawidłowy adres e-mail lub hasło.",
		})
	case errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_ACCOUNT_DISABLED",
			Message:   "Konto zostało zablokowane.",
		})
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked), errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "Sesja wygasła. Zaloguj się ponownie.",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
				Message: "Dane wejściowe zawierają błędy.",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Wystąpił błąd wewnętrzny serwera."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Żądanie jest nieprawidłowe."
	case http.StatusUnauthorized:
		return "Wymagane uwierzytelnienie."
	case http.StatusForbidden:
		return "Brak uprawnień do wykonania tej operacji."
	case http.StatusNotFound:
		return "Nie znaleziono żądanego zasobu."
	case http.StatusConflict:
		return "Żądanie koliduje z bieżącym stanem zasobu."
	default:
		return "Wystąpił błąd wewnętrzny serwera."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email is required":
		return "Adres e-mail jest wymagany."
	case "email is invalid":
		return "Adres e-mail ma nieprawidłowy format."
	case "name is required":
		return "Nazwa jest wymagana."
	case "surname is required":
		return "Nazwisko jest wymagane."
	case "password is required":
		return "Hasło jest wymagane."
	case "type is required":
		return "Typ roli jest wymagany."
	case "type cannot be changed":
		return "Typ roli nie może zostać zmieniony."
	case "participants limit must be positive":
		return "Limit uczestników musi być liczbą dodatnią."
	case "at least one weekday is required":
		return "Wybierz co najmniej jeden dzień tygodnia."
	case "at least one allowed role is required":
		return "Wybierz co najmniej jedną uprawnioną rolę."
	case "unknown supervisor role":
		return "Wskazana rola opiekuna nie istnieje."
	case "role is not a supervisor role":
		return "Wskazana rola nie jest rolą opiekuna."
	case "user is required":
		return "Użytkownik jest wymagany."
	case "task is required":
		return "Zadanie jest wymagane."
	case "task id is required":
		return "Identyfikator zadania jest wymagany."
	case "at least one task is required":
		return "Wybierz co najmniej jedno zadanie."
	case "date is required":
		return "Data jest wymagana."
	case "from date is required":
		return "Data początkowa jest wymagana."
	case "to date is required":
		return "Data końcowa jest wymagana."
	case "day of week mismatch":
		return "Zadanie nie wypada w tym dniu tygodnia."
	case "from and to dates are required":
		return "Daty początkowa i końcowa są wymagane."
	case "period must run Monday through the following Sunday":
		return "Okres musi obejmować pełny tydzień od poniedziałku do niedzieli."
	case "status must be PENDING, APPROVED, or REJECTED":
		return "Status musi mieć wartość PENDING, APPROVED lub REJECTED."
	default:
		if strings.HasPrefix(message, "unknown role:") {
			return "Wskazana rola nie istnieje: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown role:"))
		}
		if strings.HasPrefix(message, "resulting order for type") {
			return "Numeracja ról musi pozostać ciągła w obrębie typu."
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
