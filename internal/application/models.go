package application

import (
	"time"

	"github.com/example/event-manager/internal/persistence"
	"github.com/shopspring/decimal"
)

// Domain records share their shape with the persisted rows.
type (
	User            = persistence.User
	Session         = persistence.Session
	Client          = persistence.Client
	Location        = persistence.Location
	Category        = persistence.Category
	Event           = persistence.Event
	EventFilter     = persistence.EventFilter
	ElementType     = persistence.ElementType
	Element         = persistence.Element
	ElementFilter   = persistence.ElementFilter
	Kit             = persistence.Kit
	DashboardCounts = persistence.DashboardCounts
)

// Role is an access level attached to a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Roles lists the assignable roles in display order.
var Roles = []Role{RoleAdmin, RoleStaff}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Event statuses.
const (
	EventStatusBooked     = "booked"
	EventStatusConfirmed  = "confirmed"
	EventStatusInProgress = "in_progress"
	EventStatusCompleted  = "completed"
	EventStatusCancelled  = "cancelled"
)

// EventStatuses lists every event status in lifecycle order.
var EventStatuses = []string{
	EventStatusBooked,
	EventStatusConfirmed,
	EventStatusInProgress,
	EventStatusCompleted,
	EventStatusCancelled,
}

// ValidEventStatus reports whether status is one of EventStatuses.
func ValidEventStatus(status string) bool {
	for _, s := range EventStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Element statuses.
const (
	ElementStatusAvailable   = "available"
	ElementStatusInUse       = "in_use"
	ElementStatusMaintenance = "maintenance"
	ElementStatusRetired     = "retired"
)

// ElementStatuses lists every element status.
var ElementStatuses = []string{
	ElementStatusAvailable,
	ElementStatusInUse,
	ElementStatusMaintenance,
	ElementStatusRetired,
}

// ValidElementStatus reports whether status is one of ElementStatuses.
func ValidElementStatus(status string) bool {
	for _, s := range ElementStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   int64
	Username string
	Role     Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Authenticated reports whether the principal came from a valid session.
func (p Principal) Authenticated() bool {
	return p.UserID > 0
}

// UserInput captures caller provided user attributes. An empty Password on
// update keeps the current hash.
type UserInput struct {
	Username string
	Password string
	Role     Role
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    int64
	Input     UserInput
}

// ClientInput captures caller provided client fields.
type ClientInput struct {
	Name        string
	Color       string
	ContactName string
	Email       string
	Phone       string
	Notes       string
}

// CreateClientParams wraps the data required to create a client.
type CreateClientParams struct {
	Principal Principal
	Input     ClientInput
}

// UpdateClientParams wraps the data required to update a client.
type UpdateClientParams struct {
	Principal Principal
	ClientID  int64
	Input     ClientInput
}

// LocationInput captures caller provided location fields.
type LocationInput struct {
	Name    string
	Address string
	Notes   string
}

// CreateLocationParams wraps the data required to create a location.
type CreateLocationParams struct {
	Principal Principal
	Input     LocationInput
}

// UpdateLocationParams wraps the data required to update a location.
type UpdateLocationParams struct {
	Principal  Principal
	LocationID int64
	Input      LocationInput
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title      string
	ClientID   *int64
	LocationID *int64
	CategoryID *int64
	Start      time.Time
	End        time.Time
	Status     string
	Notes      string
	KitIDs     []int64
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an event.
type UpdateEventParams struct {
	Principal Principal
	EventID   int64
	Input     EventInput
}

// EventDetail is an event with its assigned kits fully loaded.
type EventDetail struct {
	Event Event
	Kits  []Kit
}

// TotalValue sums the replacement value of every element in the assigned kits.
func (d EventDetail) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, kit := range d.Kits {
		total = total.Add(KitValue(kit))
	}
	return total
}

// ElementTypeInput captures caller provided element type fields.
type ElementTypeInput struct {
	Name        string
	Description string
}

// CreateElementTypeParams wraps the data required to create an element type.
type CreateElementTypeParams struct {
	Principal Principal
	Input     ElementTypeInput
}

// UpdateElementTypeParams wraps the data required to update an element type.
type UpdateElementTypeParams struct {
	Principal     Principal
	ElementTypeID int64
	Input         ElementTypeInput
}

// ElementInput captures caller provided element fields. ReplacementValue is
// the decimal text entered in the form.
type ElementInput struct {
	Name             string
	TypeID           int64
	SerialNumber     string
	Status           string
	LocationID       *int64
	ReplacementValue string
	Notes            string
}

// CreateElementParams wraps the data required to create an element.
type CreateElementParams struct {
	Principal Principal
	Input     ElementInput
}

// UpdateElementParams wraps the data required to update an element.
type UpdateElementParams struct {
	Principal Principal
	ElementID int64
	Input     ElementInput
}

// KitInput captures caller provided kit fields.
type KitInput struct {
	Name        string
	Description string
	ElementIDs  []int64
}

// CreateKitParams wraps the data required to create a kit.
type CreateKitParams struct {
	Principal Principal
	Input     KitInput
}

// UpdateKitParams wraps the data required to update a kit.
type UpdateKitParams struct {
	Principal Principal
	KitID     int64
	Input     KitInput
}

// KitValue sums the replacement value of the kit's loaded elements.
func KitValue(kit Kit) decimal.Decimal {
	total := decimal.Zero
	for _, element := range kit.Elements {
		total = total.Add(element.ReplacementValue)
	}
	return total
}

// Dashboard is the landing page summary.
type Dashboard struct {
	Counts      DashboardCounts
	Upcoming    []Event
	Maintenance []Element
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username    string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
// Token is the bearer value handed to the client; only its digest is stored.
type AuthenticateResult struct {
	User    User
	Session Session
	Token   string
}
