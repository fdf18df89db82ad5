package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/event-manager/internal/logging"
	"github.com/example/event-manager/internal/persistence"
	"github.com/example/event-manager/internal/persistence/sqlite"
	"github.com/shopspring/decimal"
)

// SQLiteHarness owns a migrated database file under the test's temp dir.
type SQLiteHarness struct {
	Storage *sqlite.Storage
	Path    string
	Clock   *Clock
}

// NewSQLiteHarness opens and migrates a fresh database. The storage is
// closed by t.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "events.db")
	storage, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path), logging.Discard())
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() {
		if err := storage.Close(); err != nil {
			tb.Errorf("close sqlite: %v", err)
		}
	})

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}

	return &SQLiteHarness{Storage: storage, Path: path, Clock: NewClock(ReferenceTime())}
}

// InsertClient stores a client built from opts.
func (h *SQLiteHarness) InsertClient(tb testing.TB, opts ...ClientOption) persistence.Client {
	tb.Helper()

	client, err := h.Storage.Clients.CreateClient(context.Background(), NewClient(h.Clock.Now(), opts...))
	if err != nil {
		tb.Fatalf("insert client: %v", err)
	}
	return client
}

// InsertLocation stores a location named name.
func (h *SQLiteHarness) InsertLocation(tb testing.TB, name string) persistence.Location {
	tb.Helper()

	now := h.Clock.Now()
	location, err := h.Storage.Locations.CreateLocation(context.Background(), persistence.Location{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		tb.Fatalf("insert location: %v", err)
	}
	return location
}

// InsertEvent stores an event built from opts.
func (h *SQLiteHarness) InsertEvent(tb testing.TB, opts ...EventOption) persistence.Event {
	tb.Helper()

	event, err := h.Storage.Events.CreateEvent(context.Background(), NewEvent(h.Clock.Now(), opts...))
	if err != nil {
		tb.Fatalf("insert event: %v", err)
	}
	return event
}

// InsertElement stores an element of a new element type named typeName.
func (h *SQLiteHarness) InsertElement(tb testing.TB, typeName, name string, value decimal.Decimal) persistence.Element {
	tb.Helper()

	ctx := context.Background()
	now := h.Clock.Now()
	elementType, err := h.Storage.ElementTypes.CreateElementType(ctx, persistence.ElementType{
		Name:      typeName,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		tb.Fatalf("insert element type: %v", err)
	}

	element := NewElement(now, elementType.ID, name)
	element.ReplacementValue = value
	element, err = h.Storage.Elements.CreateElement(ctx, element)
	if err != nil {
		tb.Fatalf("insert element: %v", err)
	}
	return element
}
