package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/example/event-manager/internal/metrics"
	"github.com/gorilla/mux"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// RequireSession resolves the session token into a principal. Anonymous
// HTML requests are redirected to /login; /api requests get a 401 body.
func RequireSession(validator SessionValidator, pages *Pages, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				rejectAnonymous(w, r, responder, false)
				return
			}

			principal, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrUnauthorized),
					errors.Is(err, application.ErrSessionExpired),
					errors.Is(err, application.ErrSessionRevoked):
					rejectAnonymous(w, r, responder, true)
				default:
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "session validation failed", "error", err, "error_kind", application.ErrorKind(err))
					renderErrorPage(w, r, pages, logger, http.StatusInternalServerError, statusMessage(http.StatusInternalServerError))
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if l := LoggerFromContext(ctx); l != nil {
				ctx = ContextWithLogger(ctx, l.With("principal_id", principal.UserID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectAnonymous(w http.ResponseWriter, r *http.Request, responder responder, stale bool) {
	if stale {
		clearSessionCookie(w, CookieOptions{})
	}
	if isAPIRequest(r) {
		responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: errMissingSessionToken.Error()})
		return
	}
	redirectToLogin(w, r)
}

// RequireCapability is the authorization gate. It consults the role policy
// for the principal placed in the context by RequireSession.
func RequireCapability(capability application.Capability, pages *Pages, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			err := application.Authorize(r.Context(), responder.loggerFor(r.Context()), principal, capability)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, application.ErrUnauthorized):
				rejectAnonymous(w, r, responder, false)
			default:
				metrics.ObserveDenial(string(capability))
				renderErrorPage(w, r, pages, logger, http.StatusForbidden, statusMessage(http.StatusForbidden))
			}
		})
	}
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			rec := newStatusRecorder(w)
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

// Recovery turns handler panics into a 500 response and logs the stack.
func Recovery(pages *Pages, base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					if recovered == http.ErrAbortHandler {
						panic(recovered)
					}
					logger := LoggerFromContext(r.Context())
					if logger == nil {
						logger = base
					}
					logger.ErrorContext(r.Context(), "panic recovered",
						"panic", fmt.Sprint(recovered),
						"stack", string(debug.Stack()),
					)
					metrics.ObservePanic()
					renderErrorPage(w, r, pages, base, http.StatusInternalServerError, statusMessage(http.StatusInternalServerError))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request counts and latency labelled by route template.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.ObserveHTTPRequest(r.Method, route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func isAPIRequest(r *http.Request) bool {
	return r != nil && strings.HasPrefix(r.URL.Path, "/api/")
}
