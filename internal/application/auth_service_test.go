package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func plainVerifier(hashed, password string) error {
	if hashed != password {
		return ErrInvalidCredentials
	}
	return nil
}

func newTestAuthService(users *userRepoStub, sessions *sessionRepoStub, now time.Time, tokens ...string) *AuthService {
	return NewAuthService(users, sessions, HMACTokenDigest([]byte("test-secret")), plainVerifier, func() string {
		if len(tokens) == 0 {
			return "fallback-token"
		}
		token := tokens[0]
		tokens = tokens[1:]
		return token
	}, func() time.Time { return now }, time.Hour)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		now := fixedNow()
		users := newUserRepoStub(User{ID: 7, Username: "alice", PasswordHash: "secret", Role: "staff"})
		sessions := newSessionRepoStub()
		svc := newTestAuthService(users, sessions, now, "session-token")

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: " Alice ", Password: "secret", Fingerprint: " device "})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		if result.Token != "session-token" {
			t.Fatalf("expected issued token, got %s", result.Token)
		}
		if result.Session.TokenDigest == "" || result.Session.TokenDigest == result.Token {
			t.Fatalf("expected token digest to differ from token, got %q", result.Session.TokenDigest)
		}
		if result.Session.Fingerprint != "device" {
			t.Fatalf("expected fingerprint to be trimmed, got %q", result.Session.Fingerprint)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour ahead, got %v", result.Session.ExpiresAt)
		}
		if result.User.PasswordHash != "" {
			t.Fatalf("expected password hash to be cleared from the result")
		}
		if len(sessions.deleteCalls) != 1 || !sessions.deleteCalls[0].Equal(now) {
			t.Fatalf("expected DeleteExpiredSessions to be called with now, got %#v", sessions.deleteCalls)
		}
	})

	t.Run("rejects unknown users and wrong passwords alike", func(t *testing.T) {
		t.Parallel()

		users := newUserRepoStub(User{ID: 1, Username: "alice", PasswordHash: "secret", Role: "staff"})
		svc := newTestAuthService(users, newSessionRepoStub(), fixedNow())

		cases := []AuthenticateParams{
			{Username: "bob", Password: "secret"},
			{Username: "alice", Password: "wrong"},
			{Username: "", Password: "secret"},
			{Username: "alice", Password: ""},
			{Username: "admin'; DROP TABLE users; --", Password: "x"},
		}
		for _, params := range cases {
			_, err := svc.Authenticate(context.Background(), params)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for %+v, got %v", params, err)
			}
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		users := newUserRepoStub(User{ID: 1, Username: "alice", PasswordHash: "secret"})
		sessions := newSessionRepoStub()
		sessions.createErr = expected

		svc := newTestAuthService(users, sessions, fixedNow())
		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "alice", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected error %v, got %v", expected, err)
		}
	})

	t.Run("propagates cleanup failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("cleanup-failed")
		users := newUserRepoStub(User{ID: 1, Username: "alice", PasswordHash: "secret"})
		sessions := newSessionRepoStub()
		sessions.deleteErr = expected

		svc := newTestAuthService(users, sessions, fixedNow())
		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "alice", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected cleanup error %v, got %v", expected, err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, now time.Time) (*AuthService, *sessionRepoStub, *time.Time, string) {
		t.Helper()
		clock := now
		users := newUserRepoStub(User{ID: 3, Username: "admin", PasswordHash: "pw", Role: "admin"})
		sessions := newSessionRepoStub()
		svc := NewAuthService(users, sessions, HMACTokenDigest([]byte("k")), plainVerifier, GenerateToken, func() time.Time { return clock }, time.Hour)
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "admin", Password: "pw"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		return svc, sessions, &clock, result.Token
	}

	t.Run("returns the principal for active sessions", func(t *testing.T) {
		t.Parallel()

		svc, _, _, token := login(t, fixedNow())
		principal, err := svc.ValidateSession(context.Background(), token)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != 3 || principal.Role != RoleAdmin || principal.Username != "admin" {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("rejects unknown and empty tokens", func(t *testing.T) {
		t.Parallel()

		svc, _, _, _ := login(t, fixedNow())
		for _, token := range []string{"", "   ", "not-a-token"} {
			if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized for %q, got %v", token, err)
			}
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()

		svc, _, clock, token := login(t, fixedNow())
		*clock = clock.Add(2 * time.Hour)
		if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		svc, _, _, token := login(t, fixedNow())
		if err := svc.RevokeSession(context.Background(), token); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects sessions whose user was deleted", func(t *testing.T) {
		t.Parallel()

		users := newUserRepoStub(User{ID: 9, Username: "temp", PasswordHash: "pw", Role: "staff"})
		svc := NewAuthService(users, newSessionRepoStub(), nil, plainVerifier, nil, fixedNow, time.Hour)
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "temp", Password: "pw"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		delete(users.users, 9)

		if _, err := svc.ValidateSession(context.Background(), result.Token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(newUserRepoStub(), newSessionRepoStub(), fixedNow())

	if err := svc.RevokeSession(context.Background(), ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty token, got %v", err)
	}
	if err := svc.RevokeSession(context.Background(), "missing"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown token, got %v", err)
	}
}

func TestHMACTokenDigest(t *testing.T) {
	t.Parallel()

	a := HMACTokenDigest([]byte("one"))
	b := HMACTokenDigest([]byte("two"))

	if a("token") != a("token") {
		t.Fatalf("expected digest to be deterministic")
	}
	if a("token") == b("token") {
		t.Fatalf("expected digests under different keys to differ")
	}
	if len(a("token")) != 64 {
		t.Fatalf("expected hex encoded sha256 digest, got %d chars", len(a("token")))
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	first, second := GenerateToken(), GenerateToken()
	if first == second {
		t.Fatalf("expected distinct tokens")
	}
	if len(first) != 43 {
		t.Fatalf("expected 43 character token, got %d", len(first))
	}
}
