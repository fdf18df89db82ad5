package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/event-manager/internal/application"
)

var (
	errInvalidID           = errors.New("invalid identifier")
	errMissingSessionToken = errors.New("authentication required")
	errReportFailed        = errors.New("report generation failed")
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

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)
	resp := errorResponse{Message: errorMessage(err)}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		resp.Errors = vErr.FieldErrors
	}
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err, "error_kind", application.ErrorKind(err))
	}
	r.writeJSON(ctx, w, status, resp)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// statusForError maps application errors onto HTTP status codes.
func statusForError(err error) int {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, application.ErrUnauthorized),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrSessionExpired),
		errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, application.ErrNotFound), errors.Is(err, errInvalidID):
		return http.StatusNotFound
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, application.ErrAlreadyExists), errors.Is(err, application.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the user facing text for err. Internal details are
// never exposed.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, application.ErrLastAdmin):
		return "The last administrator cannot be removed or demoted."
	case errors.Is(err, application.ErrSelfDelete):
		return "You cannot delete your own account."
	case errors.Is(err, application.ErrInUse):
		return "This record is still in use and cannot be deleted."
	case errors.Is(err, errReportFailed):
		return "Report generation failed"
	}
	return statusMessage(statusForError(err))
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request could not be understood."
	case http.StatusUnauthorized:
		return "Authentication required."
	case http.StatusForbidden:
		return "You do not have permission to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusUnprocessableEntity:
		return "Please correct the highlighted fields."
	default:
		return "An unexpected error occurred."
	}
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
