package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

const userColumns = `id, username, password_hash, role, created_at, updated_at`

// CreateUser inserts a new user and returns it with its assigned ID.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}

	user.Username = strings.TrimSpace(user.Username)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	result, err := r.helper.Exec(ctx, `
		INSERT INTO users (username, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		user.Username,
		user.PasswordHash,
		user.Role,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}

	if user.ID, err = result.LastInsertId(); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// UpdateUser updates username, role and password hash of an existing user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID <= 0 {
		return persistence.ErrNotFound
	}
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = r.now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE users
		SET username = ?, password_hash = ?, role = ?, updated_at = ?
		WHERE id = ?
	`,
		strings.TrimSpace(user.Username),
		user.PasswordHash,
		user.Role,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetUser retrieves a user by ID from the database
func (r *UserRepository) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	if id <= 0 {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return r.scanUser(row)
}

// ListUsers returns all users ordered by username.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return users, nil
}

// CountAdmins returns the number of users holding the admin role.
func (r *UserRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteUser removes a user; the user's sessions are removed by cascade.
func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *UserRepository) scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                       persistence.User
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}

	var err error
	if user.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
