package application

import (
	"context"
	"errors"
	"testing"
)

func fakeHash(password string) (string, error) {
	return "hashed:" + password, nil
}

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepoStub(), fakeHash, fixedNow)
		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: staffPrincipal,
			Input:     UserInput{Username: "carol", Password: "password1"},
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}

		_, err = svc.CreateUser(context.Background(), CreateUserParams{Input: UserInput{Username: "carol", Password: "password1"}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for anonymous principal, got %v", err)
		}
	})

	t.Run("validates input fields", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepoStub(), fakeHash, fixedNow)
		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: adminPrincipal,
			Input:     UserInput{Username: "a b", Password: "short", Role: "owner"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"username", "password", "role"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s field error, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("persists users with hashed passwords", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub()
		svc := NewUserService(repo, fakeHash, fixedNow)
		user, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: adminPrincipal,
			Input:     UserInput{Username: " carol ", Password: "password1"},
		})
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.Username != "carol" || user.Role != string(RoleStaff) {
			t.Fatalf("unexpected user %+v", user)
		}
		if user.PasswordHash != "" {
			t.Fatalf("expected hash to be cleared from the returned user")
		}
		if stored := repo.users[user.ID]; stored.PasswordHash != "hashed:password1" {
			t.Fatalf("expected stored hash, got %q", stored.PasswordHash)
		}
	})

	t.Run("reports duplicate usernames as field errors", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub(User{ID: 1, Username: "carol", Role: "staff"})
		svc := NewUserService(repo, fakeHash, fixedNow)
		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: adminPrincipal,
			Input:     UserInput{Username: "CAROL", Password: "password1"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["username"] == "" {
			t.Fatalf("expected username field error, got %v", err)
		}
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	t.Parallel()

	t.Run("propagates ErrNotFound when the user is missing", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepoStub(), fakeHash, fixedNow)
		_, err := svc.UpdateUser(context.Background(), UpdateUserParams{
			Principal: adminPrincipal,
			UserID:    42,
			Input:     UserInput{Username: "someone", Role: RoleStaff},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("keeps the password hash unless a new password is given", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub(
			User{ID: 1, Username: "admin", Role: "admin", PasswordHash: "old"},
			User{ID: 2, Username: "staff", Role: "staff", PasswordHash: "old"},
		)
		svc := NewUserService(repo, fakeHash, fixedNow)

		if _, err := svc.UpdateUser(context.Background(), UpdateUserParams{
			Principal: adminPrincipal,
			UserID:    2,
			Input:     UserInput{Username: "staff-renamed", Role: RoleStaff},
		}); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		if got := repo.users[2]; got.PasswordHash != "old" || got.Username != "staff-renamed" {
			t.Fatalf("unexpected stored user %+v", got)
		}

		if _, err := svc.UpdateUser(context.Background(), UpdateUserParams{
			Principal: adminPrincipal,
			UserID:    2,
			Input:     UserInput{Username: "staff-renamed", Password: "new-password", Role: RoleStaff},
		}); err != nil {
			t.Fatalf("UpdateUser with password failed: %v", err)
		}
		if got := repo.users[2].PasswordHash; got != "hashed:new-password" {
			t.Fatalf("expected reset hash, got %q", got)
		}
	})

	t.Run("refuses to demote the last administrator", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub(User{ID: 1, Username: "admin", Role: "admin"})
		svc := NewUserService(repo, fakeHash, fixedNow)
		_, err := svc.UpdateUser(context.Background(), UpdateUserParams{
			Principal: adminPrincipal,
			UserID:    1,
			Input:     UserInput{Username: "admin", Role: RoleStaff},
		})
		if !errors.Is(err, ErrLastAdmin) {
			t.Fatalf("expected ErrLastAdmin, got %v", err)
		}
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	t.Parallel()

	t.Run("refuses self deletion", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub(User{ID: 1, Username: "admin", Role: "admin"}, User{ID: 5, Username: "other", Role: "admin"})
		svc := NewUserService(repo, fakeHash, fixedNow)
		if err := svc.DeleteUser(context.Background(), adminPrincipal, 1); !errors.Is(err, ErrSelfDelete) {
			t.Fatalf("expected ErrSelfDelete, got %v", err)
		}
	})

	t.Run("refuses to delete the last administrator", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub(User{ID: 5, Username: "only-admin", Role: "admin"})
		svc := NewUserService(repo, fakeHash, fixedNow)
		if err := svc.DeleteUser(context.Background(), adminPrincipal, 5); !errors.Is(err, ErrLastAdmin) {
			t.Fatalf("expected ErrLastAdmin, got %v", err)
		}
	})

	t.Run("deletes staff accounts", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepoStub(User{ID: 1, Username: "admin", Role: "admin"}, User{ID: 2, Username: "staff", Role: "staff"})
		svc := NewUserService(repo, fakeHash, fixedNow)
		if err := svc.DeleteUser(context.Background(), adminPrincipal, 2); err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}
		if _, ok := repo.users[2]; ok {
			t.Fatalf("expected user to be removed")
		}
	})

	t.Run("maps missing users to ErrNotFound", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepoStub(), fakeHash, fixedNow)
		if err := svc.DeleteUser(context.Background(), adminPrincipal, 99); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserService_ListUsers(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub(
		User{ID: 1, Username: "zed", Role: "admin", PasswordHash: "x"},
		User{ID: 2, Username: "Amy", Role: "staff", PasswordHash: "y"},
	)
	svc := NewUserService(repo, fakeHash, fixedNow)

	if _, err := svc.ListUsers(context.Background(), staffPrincipal); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for staff, got %v", err)
	}

	users, err := svc.ListUsers(context.Background(), adminPrincipal)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].Username != "Amy" || users[1].Username != "zed" {
		t.Fatalf("expected case-insensitive username order, got %+v", users)
	}
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Fatalf("expected password hashes to be cleared")
		}
	}
}

func TestUserService_SeedAdmin(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := NewUserService(repo, fakeHash, fixedNow)

	created, err := svc.SeedAdmin(context.Background(), "admin", "admin")
	if err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}
	if !created {
		t.Fatalf("expected administrator to be created")
	}

	created, err = svc.SeedAdmin(context.Background(), "admin2", "admin2")
	if err != nil {
		t.Fatalf("second SeedAdmin failed: %v", err)
	}
	if created {
		t.Fatalf("expected no account when an administrator already exists")
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected a single user, got %d", len(repo.users))
	}

	if _, err := NewUserService(newUserRepoStub(), fakeHash, fixedNow).SeedAdmin(context.Background(), "admin", ""); err == nil {
		t.Fatalf("expected empty seed password to be rejected")
	}
}
