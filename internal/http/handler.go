package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/event-manager/internal/application"
	"github.com/gorilla/mux"
)

// crudHandler is implemented by every resource blueprint.
type crudHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	New(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Edit(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// handlerBase carries what every HTML handler needs.
type handlerBase struct {
	name      string
	pages     *Pages
	responder responder
	logger    *slog.Logger
}

func newHandlerBase(name string, pages *Pages, logger *slog.Logger) handlerBase {
	base := defaultLogger(logger)
	return handlerBase{name: name, pages: pages, responder: newResponder(base), logger: base}
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger from ctx and tags it with the
// handler, the operation and the principal when one is present.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if principal, ok := PrincipalFromContext(ctx); ok {
		pairs = append(pairs, "principal_id", principal.UserID)
	}
	return logger.With(append(pairs, attrs...)...)
}

func (b handlerBase) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, b.logger, b.name, operation, attrs...)
}

func (b handlerBase) principal(r *http.Request) application.Principal {
	principal, _ := PrincipalFromContext(r.Context())
	return principal
}

func (b handlerBase) render(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	data.Principal = b.principal(r)
	data.CSRFToken = csrfToken(r)
	if err := b.pages.Render(w, status, name, data); err != nil {
		b.log(r.Context(), "render", "template", name).ErrorContext(r.Context(), "failed to render template", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail answers err with the matching status page.
func (b handlerBase) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusForError(err)
	logger := b.log(r.Context(), operation)
	switch {
	case status == http.StatusUnauthorized:
		redirectToLogin(w, r)
		return
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "error", err, "error_kind", application.ErrorKind(err))
	default:
		logger.WarnContext(r.Context(), "request rejected", "status", status, "error", err, "error_kind", application.ErrorKind(err))
	}
	renderErrorPage(w, r, b.pages, b.logger, status, errorMessage(err))
}

// formError re-renders a form with field errors when err is a validation
// failure and reports whether it did.
func (b handlerBase) formError(w http.ResponseWriter, r *http.Request, err error, name string, data page) bool {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		return false
	}
	data.Errors = vErr.FieldErrors
	data.Message = statusMessage(http.StatusUnprocessableEntity)
	b.render(w, r, http.StatusUnprocessableEntity, name, data)
	return true
}

// parseForm parses the posted body and fails the request when it is malformed.
func (b handlerBase) parseForm(w http.ResponseWriter, r *http.Request, operation string) bool {
	if err := r.ParseForm(); err != nil {
		b.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to parse form", "error", err)
		renderErrorPage(w, r, b.pages, b.logger, http.StatusBadRequest, statusMessage(http.StatusBadRequest))
		return false
	}
	return true
}

// pathID returns the {id} route variable or answers 404.
func (b handlerBase) pathID(w http.ResponseWriter, r *http.Request, operation string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		b.fail(w, r, operation, errInvalidID)
		return 0, false
	}
	return id, true
}

func renderErrorPage(w http.ResponseWriter, r *http.Request, pages *Pages, logger *slog.Logger, status int, message string) {
	if isAPIRequest(r) || pages == nil {
		newResponder(logger).writeJSON(r.Context(), w, status, errorResponse{Message: message})
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	data := page{Title: http.StatusText(status), Message: message, Status: status, Principal: principal, CSRFToken: csrfToken(r)}
	if err := pages.Render(w, status, "error", data); err != nil {
		handlerLogger(r.Context(), logger, "errors", "render").ErrorContext(r.Context(), "failed to render error page", "error", err)
		http.Error(w, message, status)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/login")
}
