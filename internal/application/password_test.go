package application

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var fastArgon2Params = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestCreateAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct horse", fastArgon2Params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	other, err := CreatePasswordHash("correct horse", fastArgon2Params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if other == hash {
		t.Fatalf("expected salted hashes to differ")
	}
}

func TestVerifyPasswordBcrypt(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	if err := VerifyPassword(string(hash), "legacy-pass"); err != nil {
		t.Fatalf("expected bcrypt hash to verify, got %v", err)
	}
	if err := VerifyPassword(string(hash), "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		hash string
		want error
	}{
		{"empty", "", ErrInvalidPasswordHash},
		{"wrong algorithm", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", ErrInvalidPasswordHash},
		{"wrong version", "$argon2id$v=16$m=1,t=1,p=1$c2FsdA$aGFzaA", ErrIncompatiblePasswordVersion},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := VerifyPassword(tc.hash, "x"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
