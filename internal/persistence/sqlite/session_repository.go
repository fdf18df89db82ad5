package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = `id, user_id, token_digest, fingerprint, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session for a user.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.TokenDigest = strings.TrimSpace(session.TokenDigest)
	if session.ID == "" || session.UserID <= 0 || session.TokenDigest == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	session.Fingerprint = strings.TrimSpace(session.Fingerprint)
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()

	var revokedAt sql.NullString
	if session.RevokedAt != nil {
		revokedAt = sql.NullString{String: formatTime(*session.RevokedAt), Valid: true}
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_digest, fingerprint, expires_at, revoked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.UserID,
		session.TokenDigest,
		session.Fingerprint,
		formatTime(session.ExpiresAt),
		revokedAt,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	return session, nil
}

// GetSession retrieves a session by its token digest.
func (r *SessionRepository) GetSession(ctx context.Context, tokenDigest string) (persistence.Session, error) {
	tokenDigest = strings.TrimSpace(tokenDigest)
	if tokenDigest == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token_digest = ?`, tokenDigest)
	return r.scanSession(row)
}

// RevokeSession marks a session as revoked. Revoking twice keeps the first timestamp.
func (r *SessionRepository) RevokeSession(ctx context.Context, tokenDigest string, revokedAt time.Time) (persistence.Session, error) {
	tokenDigest = strings.TrimSpace(tokenDigest)
	if tokenDigest == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	stamp := formatTime(revokedAt)
	result, err := r.helper.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = COALESCE(revoked_at, ?), updated_at = ?
		WHERE token_digest = ?
	`, stamp, stamp, tokenDigest)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.Session{}, err
	}

	return r.GetSession(ctx, tokenDigest)
}

// DeleteExpiredSessions removes sessions that expired on or before reference.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}

func (r *SessionRepository) scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                                  persistence.Session
		expiresAtStr, createdAtStr, updatedAtStr string
		revokedAt                                sql.NullString
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenDigest,
		&session.Fingerprint,
		&expiresAtStr,
		&revokedAt,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	var err error
	if session.ExpiresAt, err = parseTime("expires_at", expiresAtStr); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Session{}, err
	}
	if revokedAt.Valid {
		revoked, err := parseTime("revoked_at", revokedAt.String)
		if err != nil {
			return persistence.Session{}, err
		}
		session.RevokedAt = &revoked
	}
	return session, nil
}
