package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/example/event-manager/internal/metrics"
	"github.com/example/event-manager/internal/ratelimit"
)

const (
	sessionCookieName     = "session_token"
	invalidLoginMessage   = "Invalid username or password"
	throttledLoginMessage = "Too many login attempts. Try again later."
	maxUsernameFieldBytes = 256
)

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
}

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// ParseSameSite maps the configured SameSite name, defaulting to Lax.
func ParseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

type AuthHandler struct {
	handlerBase
	service authService
	cookie  CookieOptions
	limiter *ratelimit.Limiter
}

// NewAuthHandler builds the login handler. limiter caps attempts per client
// address; nil disables the cap.
func NewAuthHandler(service authService, pages *Pages, cookie CookieOptions, limiter *ratelimit.Limiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{handlerBase: newHandlerBase("AuthHandler", pages, logger), service: service, cookie: cookie, limiter: limiter}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", page{Title: "Log in", Form: newForm(nil)})
}

// Login authenticates the posted credentials. Failures re-render the form
// with a generic message and status 200; clients over the attempt limit get
// 429 without their credentials being checked.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "Login") {
		return
	}

	submitted := formFromRequest(r, "")
	username := submitted.Get("username")
	client := clientAddress(r)
	logger := h.log(r.Context(), "Login", "client", client)

	if !h.limiter.Allow(client) {
		metrics.ObserveLogin("throttled")
		retry := h.limiter.RetryAfter(client)
		logger.WarnContext(r.Context(), "login throttled", "retry_after", retry, "error_kind", "rate_limited")
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		h.renderLogin(w, r, http.StatusTooManyRequests, throttledLoginMessage, "")
		return
	}
	if len(username) > maxUsernameFieldBytes {
		metrics.ObserveLogin("failure")
		logger.WarnContext(r.Context(), "authentication rejected", "username_bytes", len(username), "error_kind", "invalid_credentials")
		h.renderLogin(w, r, http.StatusOK, invalidLoginMessage, "")
		return
	}
	logger = logger.With("username", username)

	result, err := h.service.Authenticate(r.Context(), application.AuthenticateParams{
		Username:    username,
		Password:    r.PostForm.Get("password"),
		Fingerprint: r.UserAgent(),
	})
	if err != nil {
		metrics.ObserveLogin("failure")
		if !errors.Is(err, application.ErrInvalidCredentials) {
			h.fail(w, r, "Login", err)
			return
		}
		logger.WarnContext(r.Context(), "authentication rejected", "error_kind", application.ErrorKind(err))
		h.renderLogin(w, r, http.StatusOK, invalidLoginMessage, username)
		return
	}

	metrics.ObserveLogin("success")
	h.limiter.Reset(client)
	setSessionCookie(w, result.Token, result.Session.ExpiresAt, h.cookie)
	logger.InfoContext(r.Context(), "user authenticated", "user_id", result.User.ID)
	redirect(w, r, "/")
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, message, username string) {
	h.render(w, r, status, "login", page{
		Title:   "Log in",
		Message: message,
		Form:    newForm(map[string]string{"username": username}),
	})
}

// clientAddress is the remote IP of r. Forwarding headers are ignored
// because any client can set them.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Logout revokes the current session, if any, and returns to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r.Context(), "Logout")

	if token := extractTokenFromRequest(r); token != "" {
		err := h.service.RevokeSession(r.Context(), token)
		switch {
		case err == nil:
			logger.InfoContext(r.Context(), "session revoked")
		case errors.Is(err, application.ErrInvalidCredentials):
			logger.DebugContext(r.Context(), "logout with unknown session")
		default:
			logger.ErrorContext(r.Context(), "failed to revoke session", "error", err, "error_kind", application.ErrorKind(err))
		}
	}

	clearSessionCookie(w, h.cookie)
	redirectToLogin(w, r)
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time, opts CookieOptions) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
