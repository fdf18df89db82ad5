package application

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CredentialStore exposes user lookups required by the auth service.
type CredentialStore interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
// Sessions are addressed by token digest.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, tokenDigest string) (Session, error)
	RevokeSession(ctx context.Context, tokenDigest string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// TokenDigest derives the stored lookup key for a bearer token.
type TokenDigest func(token string) string

// HMACTokenDigest keys token digests with secret so a leaked sessions table
// cannot be replayed.
func HMACTokenDigest(secret []byte) TokenDigest {
	key := append([]byte(nil), secret...)
	return func(token string) string {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(token))
		return hex.EncodeToString(mac.Sum(nil))
	}
}

// GenerateToken returns 32 random bytes encoded for use in a cookie.
func GenerateToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("application: read random token: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// AuthService coordinates login, logout and session validation.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	digest         TokenDigest
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, digest TokenDigest, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, digest, verify, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, digest TokenDigest, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if digest == nil {
		digest = HMACTokenDigest(nil)
	}
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = GenerateToken
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		digest:         digest,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

// SessionTTL reports how long issued sessions stay valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate",
		"username", username,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if username == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var user User
	user, err = s.credentials.GetUserByUsername(ctx, username)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(user.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now().UTC()
	token := s.tokenGenerator()
	if token == "" {
		err = fmt.Errorf("token generator returned an empty token")
		return
	}

	session := Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		TokenDigest: s.digest(token),
		Fingerprint: strings.TrimSpace(params.Fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}

	if _, err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}

	session, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		return
	}

	user.PasswordHash = ""
	result = AuthenticateResult{User: user, Session: session, Token: token}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", trimmed != "")

	if _, err := s.sessions.RevokeSession(ctx, s.digest(trimmed), s.now().UTC()); err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if _, err := s.sessions.DeleteExpiredSessions(ctx, s.now().UTC()); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active session and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, s.digest(trimmed))
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: user.ID, Username: user.Username, Role: Role(user.Role)}
	return
}
