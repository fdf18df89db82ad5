package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/shopspring/decimal"
)

func TestServiceFactorySessionsFollowClock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory(harness)

	if _, err := factory.UserService().SeedAdmin(ctx, "admin", "s3cret-pass"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	auth := factory.AuthService("test-secret", time.Hour)
	result, err := auth.Authenticate(ctx, application.AuthenticateParams{Username: "admin", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if result.Token != "session-1" {
		t.Fatalf("expected the first sequenced token, got %q", result.Token)
	}

	principal, err := auth.ValidateSession(ctx, result.Token)
	if err != nil {
		t.Fatalf("validate session: %v", err)
	}
	if principal.Role != application.RoleAdmin {
		t.Fatalf("expected admin principal, got %q", principal.Role)
	}

	harness.Clock.Advance(2 * time.Hour)
	if _, err := auth.ValidateSession(ctx, result.Token); !errors.Is(err, application.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after the TTL, got %v", err)
	}
}

func TestHarnessClientDeleteKeepsEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory(harness)
	admin := application.Principal{UserID: 1, Username: "admin", Role: application.RoleAdmin}

	client := harness.InsertClient(t, WithClientName("Globex"))
	location := harness.InsertLocation(t, "Main Hall")
	event := harness.InsertEvent(t, ForClient(client.ID), AtLocation(location.ID), InCategory(1))

	if err := factory.ClientService().DeleteClient(ctx, admin, client.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}

	got, err := factory.EventService().GetEvent(ctx, admin, event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.ClientID != nil {
		t.Fatalf("expected the client reference to be cleared, got %d", *got.ClientID)
	}
	if got.LocationName != "Main Hall" {
		t.Fatalf("expected location name to be joined, got %q", got.LocationName)
	}
}

func TestHarnessInsertElement(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	element := harness.InsertElement(t, "Speakers", "PA Left", decimal.RequireFromString("1250.50"))

	stored, err := harness.Storage.Elements.GetElement(context.Background(), element.ID)
	if err != nil {
		t.Fatalf("get element: %v", err)
	}
	if !stored.ReplacementValue.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("replacement value not preserved: %s", stored.ReplacementValue)
	}
	if stored.TypeName != "Speakers" {
		t.Fatalf("expected type name Speakers, got %q", stored.TypeName)
	}
}
