package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountAdmins(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, id int64) error
}

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users  UserRepository
	hash   PasswordHasher
	now    func() time.Time
	logger *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hash PasswordHasher, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = HashPassword
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hash: hash, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "role", user.Role).InfoContext(ctx, "user created")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageUsers); err != nil {
		return
	}

	input := normalizeUserInput(params.Input)
	vErr := validateUserInput(input, true)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	user, err = s.insert(ctx, input)
	return
}

// SeedAdmin creates an administrator named username when the database holds
// no administrator yet. It reports whether an account was created.
func (s *UserService) SeedAdmin(ctx context.Context, username, password string) (created bool, err error) {
	if s == nil || s.users == nil {
		return false, fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "SeedAdmin", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed administrator", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if created {
			logger.InfoContext(ctx, "administrator seeded")
		}
	}()

	var admins int
	if admins, err = s.users.CountAdmins(ctx); err != nil {
		return
	}
	if admins > 0 {
		return
	}

	// The seed password comes from configuration, which decides its own strength rules.
	input := normalizeUserInput(UserInput{Username: username, Password: password, Role: RoleAdmin})
	vErr := validateUserInput(input, true)
	delete(vErr.FieldErrors, "password")
	if input.Password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.insert(ctx, input); err != nil {
		return
	}
	created = true
	return
}

func (s *UserService) insert(ctx context.Context, input UserInput) (User, error) {
	hash, err := s.hash(input.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user, err := s.users.CreateUser(ctx, User{
		Username:     input.Username,
		PasswordHash: hash,
		Role:         string(input.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, duplicateAsField(mapRepoError(err), "username", "username is already taken")
	}
	user.PasswordHash = ""
	return user, nil
}

// GetUser returns a single user for administrators.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID int64) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "GetUser"), principal, CapManageUsers); err != nil {
		return User{}, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateUser changes username and role, and resets the password when one is
// given. Demoting the last administrator is rejected.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("role", user.Role).InfoContext(ctx, "user updated")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageUsers); err != nil {
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeUserInput(params.Input)
	vErr := validateUserInput(input, false)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if Role(existing.Role) == RoleAdmin && input.Role != RoleAdmin {
		if err = s.ensureAnotherAdmin(ctx); err != nil {
			return
		}
	}

	updated := existing
	updated.Username = input.Username
	updated.Role = string(input.Role)
	updated.UpdatedAt = s.now().UTC()
	if input.Password != "" {
		if updated.PasswordHash, err = s.hash(input.Password); err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	if err = s.users.UpdateUser(ctx, updated); err != nil {
		err = duplicateAsField(mapRepoError(err), "username", "username is already taken")
		return
	}

	updated.PasswordHash = ""
	user = updated
	return
}

// DeleteUser removes a user. Administrators cannot delete themselves or the
// last administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID int64) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)

	err := s.deleteUser(ctx, logger, principal, userID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

func (s *UserService) deleteUser(ctx context.Context, logger *slog.Logger, principal Principal, userID int64) error {
	if err := Authorize(ctx, logger, principal, CapManageUsers); err != nil {
		return err
	}
	if principal.UserID == userID {
		return ErrSelfDelete
	}

	existing, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return mapRepoError(err)
	}
	if Role(existing.Role) == RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	return mapRepoError(s.users.DeleteUser(ctx, userID))
}

func (s *UserService) ensureAnotherAdmin(ctx context.Context) error {
	admins, err := s.users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// ListUsers returns all users for administrators ordered by username.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "ListUsers"), principal, CapManageUsers); err != nil {
		return nil, err
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]User, len(users))
	for i, u := range users {
		u.PasswordHash = ""
		out[i] = u
	}

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Username, out[j].Username) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})

	return out, nil
}

func normalizeUserInput(input UserInput) UserInput {
	role := Role(strings.ToLower(strings.TrimSpace(string(input.Role))))
	if role == "" {
		role = RoleStaff
	}
	return UserInput{
		Username: strings.TrimSpace(input.Username),
		Password: input.Password,
		Role:     role,
	}
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Username == "" {
		vErr.add("username", "username is required")
	} else if !usernamePattern.MatchString(input.Username) {
		vErr.add("username", "username must be 3-64 letters, digits, dots, dashes or underscores")
	}

	switch {
	case input.Password == "" && requirePassword:
		vErr.add("password", "password is required")
	case input.Password != "" && len(input.Password) < minPasswordLength:
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if !input.Role.Valid() {
		vErr.add("role", "role must be admin or staff")
	}

	return vErr
}
