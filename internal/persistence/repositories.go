package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountAdmins(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, id int64) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, tokenDigest string) (Session, error)
	RevokeSession(ctx context.Context, tokenDigest string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// ClientRepository exposes CRUD operations for clients.
type ClientRepository interface {
	CreateClient(ctx context.Context, client Client) (Client, error)
	UpdateClient(ctx context.Context, client Client) error
	GetClient(ctx context.Context, id int64) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	DeleteClient(ctx context.Context, id int64) error
}

// LocationRepository exposes CRUD operations for locations.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) (Location, error)
	UpdateLocation(ctx context.Context, location Location) error
	GetLocation(ctx context.Context, id int64) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

// CategoryRepository reads the event category lookup table.
type CategoryRepository interface {
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// EventRepository stores events and their kit assignments.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	UpdateEventStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error
	GetEvent(ctx context.Context, id int64) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// ElementTypeRepository exposes CRUD operations for element types.
type ElementTypeRepository interface {
	CreateElementType(ctx context.Context, elementType ElementType) (ElementType, error)
	UpdateElementType(ctx context.Context, elementType ElementType) error
	GetElementType(ctx context.Context, id int64) (ElementType, error)
	ListElementTypes(ctx context.Context) ([]ElementType, error)
	DeleteElementType(ctx context.Context, id int64) error
}

// ElementRepository exposes CRUD operations for elements.
type ElementRepository interface {
	CreateElement(ctx context.Context, element Element) (Element, error)
	UpdateElement(ctx context.Context, element Element) error
	GetElement(ctx context.Context, id int64) (Element, error)
	ListElements(ctx context.Context, filter ElementFilter) ([]Element, error)
	DeleteElement(ctx context.Context, id int64) error
}

// KitRepository stores kits and their member elements.
type KitRepository interface {
	CreateKit(ctx context.Context, kit Kit) (Kit, error)
	UpdateKit(ctx context.Context, kit Kit) error
	GetKit(ctx context.Context, id int64) (Kit, error)
	ListKits(ctx context.Context) ([]Kit, error)
	DeleteKit(ctx context.Context, id int64) error
}

// StatsRepository answers aggregate queries for the dashboard and operational tools.
type StatsRepository interface {
	DashboardCounts(ctx context.Context) (DashboardCounts, error)
	TableCounts(ctx context.Context) (map[string]int64, error)
	OrphanedEventReferences(ctx context.Context) (int, error)
}
