package http

import (
	"crypto/rand"
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
)

const (
	csrfFieldName      = "csrf_token"
	csrfCookieName     = "_event_manager_csrf"
	csrfFailureMessage = "The form has expired or did not come from this site. Reload the page and try again."
)

// CSRFOptions configures the form token check applied to every state
// changing request.
type CSRFOptions struct {
	// Key authenticates the token cookie. It must be 32 bytes; any other
	// length is replaced by a random per-process key.
	Key      []byte
	Secure   bool
	SameSite http.SameSite
}

// CSRFKey derives the token key from the application secret.
func CSRFKey(secret string) []byte {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}

// CSRFProtect rejects unsafe requests whose form token does not match the
// token cookie. Rejections render the 403 page.
func CSRFProtect(opts CSRFOptions, pages *Pages, logger *slog.Logger) func(http.Handler) http.Handler {
	key := opts.Key
	if len(key) != 32 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(err)
		}
	}

	protect := csrf.Protect(key,
		csrf.CookieName(csrfCookieName),
		csrf.FieldName(csrfFieldName),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.Secure(opts.Secure),
		csrf.SameSite(csrfSameSite(opts.SameSite)),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerLogger(r.Context(), logger, "csrf", "verify").WarnContext(r.Context(), "form token rejected",
				"error", csrf.FailureReason(r), "error_kind", "csrf")
			renderErrorPage(w, r, pages, logger, http.StatusForbidden, csrfFailureMessage)
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// TLS requests additionally get the Origin/Referer check.
			if r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfSameSite(mode http.SameSite) csrf.SameSiteMode {
	switch mode {
	case http.SameSiteStrictMode:
		return csrf.SameSiteStrictMode
	case http.SameSiteNoneMode:
		return csrf.SameSiteNoneMode
	default:
		return csrf.SameSiteLaxMode
	}
}

// csrfToken returns the masked token for r, or "" outside the middleware.
func csrfToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return csrf.Token(r)
}
