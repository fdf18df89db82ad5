// Package testfixtures provides deterministic records, a manual clock and a
// migrated SQLite harness for tests.
package testfixtures

import (
	"time"

	"github.com/example/event-manager/internal/persistence"
	"github.com/shopspring/decimal"
)

// ClientOption customizes a fixture client.
type ClientOption func(*persistence.Client)

// WithClientName overrides the client name.
func WithClientName(name string) ClientOption {
	return func(c *persistence.Client) { c.Name = name }
}

// WithClientColor overrides the calendar color.
func WithClientColor(color string) ClientOption {
	return func(c *persistence.Client) { c.Color = color }
}

// NewClient returns an unsaved client stamped with now.
func NewClient(now time.Time, opts ...ClientOption) persistence.Client {
	client := persistence.Client{
		Name:        "Acme Corp",
		Color:       "#3b82f6",
		ContactName: "Jordan Doe",
		Email:       "events@acme.test",
		Phone:       "+1 555 0100",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(&client)
	}
	return client
}

// EventOption customizes a fixture event.
type EventOption func(*persistence.Event)

// WithTitle overrides the event title.
func WithTitle(title string) EventOption {
	return func(e *persistence.Event) { e.Title = title }
}

// WithWindow sets the event start and duration.
func WithWindow(start time.Time, d time.Duration) EventOption {
	return func(e *persistence.Event) {
		e.Start = start
		e.End = start.Add(d)
	}
}

// WithStatus overrides the event status.
func WithStatus(status string) EventOption {
	return func(e *persistence.Event) { e.Status = status }
}

// ForClient attaches the event to a client.
func ForClient(id int64) EventOption {
	return func(e *persistence.Event) { e.ClientID = &id }
}

// AtLocation attaches the event to a location.
func AtLocation(id int64) EventOption {
	return func(e *persistence.Event) { e.LocationID = &id }
}

// InCategory sets the event category. The schema seeds ids 1 to 5.
func InCategory(id int64) EventOption {
	return func(e *persistence.Event) { e.CategoryID = &id }
}

// WithKits assigns kits to the event.
func WithKits(ids ...int64) EventOption {
	return func(e *persistence.Event) { e.KitIDs = append([]int64(nil), ids...) }
}

// NewEvent returns an unsaved booked event lasting four hours from the day
// after now.
func NewEvent(now time.Time, opts ...EventOption) persistence.Event {
	start := now.Add(24 * time.Hour)
	event := persistence.Event{
		Title:     "Product Launch",
		Start:     start,
		End:       start.Add(4 * time.Hour),
		Status:    "booked",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// NewElement returns an available unsaved element of the given type.
func NewElement(now time.Time, typeID int64, name string) persistence.Element {
	return persistence.Element{
		Name:             name,
		TypeID:           typeID,
		Status:           "available",
		ReplacementValue: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
