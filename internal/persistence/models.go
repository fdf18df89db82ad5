package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a login account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
// TokenDigest holds a keyed digest of the bearer token, never the token itself.
type Session struct {
	ID          string
	UserID      int64
	TokenDigest string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// Client is a customer that events are booked for.
type Client struct {
	ID          int64
	Name        string
	Color       string
	ContactName string
	Email       string
	Phone       string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location is a named place used by events and as the home of elements.
type Location struct {
	ID        int64
	Name      string
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category is a row of the seeded event category lookup table.
type Category struct {
	ID   int64
	Name string
}

// Event is a booking on the calendar.
//
// ClientName, ClientColor, LocationName and CategoryName are populated on
// reads and ignored on writes.
type Event struct {
	ID         int64
	Title      string
	ClientID   *int64
	LocationID *int64
	CategoryID *int64
	Start      time.Time
	End        time.Time
	Status     string
	Notes      string
	KitIDs     []int64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	ClientName   string
	ClientColor  string
	LocationName string
	CategoryName string
}

// EventFilter narrows event listings. Nil or empty fields do not filter.
// Start and End select events overlapping the half-open range [Start, End).
type EventFilter struct {
	Start       *time.Time
	End         *time.Time
	CategoryIDs []int64
	Statuses    []string
	ClientID    *int64
}

// ElementType is the category of an inventory element.
type ElementType struct {
	ID           int64
	Name         string
	Description  string
	ElementCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Element is a single piece of equipment.
type Element struct {
	ID               int64
	Name             string
	TypeID           int64
	SerialNumber     string
	Status           string
	LocationID       *int64
	ReplacementValue decimal.Decimal
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	TypeName     string
	LocationName string
}

// ElementFilter narrows element listings.
type ElementFilter struct {
	TypeID *int64
	Status string
}

// Kit is a named bundle of elements.
type Kit struct {
	ID          int64
	Name        string
	Description string
	ElementIDs  []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Elements is populated by GetKit.
	Elements []Element
}

// DashboardCounts aggregates row counts shown on the dashboard.
type DashboardCounts struct {
	Clients             int
	Events              int
	Elements            int
	Kits                int
	Locations           int
	ElementsMaintenance int
}
