package http

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/stretchr/testify/require"
)

var (
	adminPrincipal = application.Principal{UserID: 1, Username: "admin", Role: application.RoleAdmin}
	staffPrincipal = application.Principal{UserID: 2, Username: "staff", Role: application.RoleStaff}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPages(t *testing.T) *Pages {
	t.Helper()
	pages, err := NewPages(time.UTC)
	require.NoError(t, err)
	return pages
}

type fakeSessionValidator struct {
	sessions map[string]application.Principal
	err      error
}

func (f fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if f.err != nil {
		return application.Principal{}, f.err
	}
	principal, ok := f.sessions[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

type fakeAuthService struct {
	mu       sync.Mutex
	password string
	revoked  []string
	attempts int
}

func (f *fakeAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	f.mu.Lock()
	f.attempts++
	f.mu.Unlock()
	if params.Username != "admin" || params.Password != f.password {
		return application.AuthenticateResult{}, application.ErrInvalidCredentials
	}
	return application.AuthenticateResult{
		User:    application.User{ID: 1, Username: "admin", Role: string(application.RoleAdmin)},
		Session: application.Session{ID: "s1", UserID: 1, ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
		Token:   "admin-token",
	}, nil
}

func (f *fakeAuthService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeAuthService) RevokeSession(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return nil
}

type fakeClientService struct {
	mu      sync.Mutex
	clients []application.Client
	nextID  int64
	err     error
}

func (f *fakeClientService) CreateClient(ctx context.Context, params application.CreateClientParams) (application.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if params.Input.Name == "" {
		vErr := &application.ValidationError{}
		vErr.Add("name", "name is required")
		return application.Client{}, vErr
	}
	f.nextID++
	client := application.Client{ID: f.nextID, Name: params.Input.Name, Color: params.Input.Color}
	f.clients = append(f.clients, client)
	return client, nil
}

func (f *fakeClientService) UpdateClient(ctx context.Context, params application.UpdateClientParams) (application.Client, error) {
	return application.Client{ID: params.ClientID, Name: params.Input.Name}, f.err
}

func (f *fakeClientService) GetClient(ctx context.Context, principal application.Principal, clientID int64) (application.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.ID == clientID {
			return c, nil
		}
	}
	return application.Client{}, application.ErrNotFound
}

func (f *fakeClientService) ListClients(ctx context.Context, principal application.Principal) ([]application.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]application.Client(nil), f.clients...), f.err
}

func (f *fakeClientService) DeleteClient(ctx context.Context, principal application.Principal, clientID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.clients {
		if c.ID == clientID {
			f.clients = append(f.clients[:i], f.clients[i+1:]...)
			return nil
		}
	}
	return application.ErrNotFound
}

type fakeEventService struct {
	mu         sync.Mutex
	events     []application.Event
	lastFilter application.EventFilter
	statuses   map[int64]string
}

func (f *fakeEventService) CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error) {
	return application.Event{ID: 99, Title: params.Input.Title}, nil
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error) {
	return application.Event{ID: params.EventID, Title: params.Input.Title}, nil
}

func (f *fakeEventService) UpdateEventStatus(ctx context.Context, principal application.Principal, eventID int64, status string) error {
	if !application.ValidEventStatus(status) {
		vErr := &application.ValidationError{}
		vErr.Add("status", "status is invalid")
		return vErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[int64]string{}
	}
	f.statuses[eventID] = status
	return nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, principal application.Principal, eventID int64) (application.Event, error) {
	for _, e := range f.events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return application.Event{}, application.ErrNotFound
}

func (f *fakeEventService) GetEventDetail(ctx context.Context, principal application.Principal, eventID int64) (application.EventDetail, error) {
	event, err := f.GetEvent(ctx, principal, eventID)
	if err != nil {
		return application.EventDetail{}, err
	}
	return application.EventDetail{Event: event}, nil
}

func (f *fakeEventService) ListEvents(ctx context.Context, principal application.Principal, filter application.EventFilter) ([]application.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return append([]application.Event(nil), f.events...), nil
}

func (f *fakeEventService) ListCategories(ctx context.Context, principal application.Principal) ([]application.Category, error) {
	return []application.Category{{ID: 1, Name: "Wedding"}, {ID: 2, Name: "Corporate"}}, nil
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, principal application.Principal, eventID int64) error {
	return nil
}

type fakeLookups struct{}

func (fakeLookups) ListClients(ctx context.Context, principal application.Principal) ([]application.Client, error) {
	return nil, nil
}

func (fakeLookups) ListLocations(ctx context.Context, principal application.Principal) ([]application.Location, error) {
	return nil, nil
}

func (fakeLookups) ListKits(ctx context.Context, principal application.Principal) ([]application.Kit, error) {
	return nil, nil
}

type fakeReports struct {
	err error
}

func (f fakeReports) EventReport(detail application.EventDetail) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 event"), nil
}

func (f fakeReports) ScheduleReport(events []application.Event, from, to *time.Time) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 schedule"), nil
}
