package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

var (
	adminPrincipal = Principal{UserID: 1, Username: "admin", Role: RoleAdmin}
	staffPrincipal = Principal{UserID: 2, Username: "staff", Role: RoleStaff}
)

func fixedNow() time.Time {
	return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
}

func int64Ptr(v int64) *int64 { return &v }

// userRepoStub is an in-memory UserRepository and CredentialStore.
type userRepoStub struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]User

	createErr error
}

func newUserRepoStub(users ...User) *userRepoStub {
	r := &userRepoStub{users: make(map[int64]User)}
	for _, u := range users {
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *userRepoStub) CreateUser(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return User{}, r.createErr
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return User{}, persistence.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *userRepoStub) UpdateUser(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	for _, u := range r.users {
		if u.ID != user.ID && strings.EqualFold(u.Username, user.Username) {
			return persistence.ErrDuplicate
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *userRepoStub) GetUser(ctx context.Context, id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return u, nil
}

func (r *userRepoStub) GetUserByUsername(ctx context.Context, username string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (r *userRepoStub) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepoStub) CountAdmins(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.users {
		if u.Role == string(RoleAdmin) {
			count++
		}
	}
	return count, nil
}

func (r *userRepoStub) DeleteUser(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// sessionRepoStub stores sessions keyed by digest.
type sessionRepoStub struct {
	mu       sync.Mutex
	sessions map[string]Session

	createErr   error
	deleteErr   error
	deleteCalls []time.Time
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[string]Session)}
}

func (r *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Session{}, r.createErr
	}
	r.sessions[session.TokenDigest] = session
	return session, nil
}

func (r *sessionRepoStub) GetSession(ctx context.Context, digest string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[digest]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return s, nil
}

func (r *sessionRepoStub) RevokeSession(ctx context.Context, digest string, revokedAt time.Time) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[digest]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &revokedAt
	}
	r.sessions[digest] = s
	return s, nil
}

func (r *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls = append(r.deleteCalls, reference)
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	var removed int64
	for digest, s := range r.sessions {
		if !s.ExpiresAt.After(reference) {
			delete(r.sessions, digest)
			removed++
		}
	}
	return removed, nil
}

// clientRepoStub is an in-memory ClientRepository.
type clientRepoStub struct {
	nextID  int64
	clients map[int64]Client
	deleted []int64
}

func newClientRepoStub(clients ...Client) *clientRepoStub {
	r := &clientRepoStub{clients: make(map[int64]Client)}
	for _, c := range clients {
		if c.ID > r.nextID {
			r.nextID = c.ID
		}
		r.clients[c.ID] = c
	}
	return r
}

func (r *clientRepoStub) CreateClient(ctx context.Context, client Client) (Client, error) {
	r.nextID++
	client.ID = r.nextID
	r.clients[client.ID] = client
	return client, nil
}

func (r *clientRepoStub) UpdateClient(ctx context.Context, client Client) error {
	if _, ok := r.clients[client.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.clients[client.ID] = client
	return nil
}

func (r *clientRepoStub) GetClient(ctx context.Context, id int64) (Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return Client{}, persistence.ErrNotFound
	}
	return c, nil
}

func (r *clientRepoStub) ListClients(ctx context.Context) ([]Client, error) {
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *clientRepoStub) DeleteClient(ctx context.Context, id int64) error {
	if _, ok := r.clients[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.clients, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// locationRepoStub is an in-memory LocationRepository.
type locationRepoStub struct {
	nextID    int64
	locations map[int64]Location
}

func newLocationRepoStub(locations ...Location) *locationRepoStub {
	r := &locationRepoStub{locations: make(map[int64]Location)}
	for _, l := range locations {
		if l.ID > r.nextID {
			r.nextID = l.ID
		}
		r.locations[l.ID] = l
	}
	return r
}

func (r *locationRepoStub) CreateLocation(ctx context.Context, location Location) (Location, error) {
	for _, l := range r.locations {
		if strings.EqualFold(l.Name, location.Name) {
			return Location{}, persistence.ErrDuplicate
		}
	}
	r.nextID++
	location.ID = r.nextID
	r.locations[location.ID] = location
	return location, nil
}

func (r *locationRepoStub) UpdateLocation(ctx context.Context, location Location) error {
	if _, ok := r.locations[location.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.locations[location.ID] = location
	return nil
}

func (r *locationRepoStub) GetLocation(ctx context.Context, id int64) (Location, error) {
	l, ok := r.locations[id]
	if !ok {
		return Location{}, persistence.ErrNotFound
	}
	return l, nil
}

func (r *locationRepoStub) ListLocations(ctx context.Context) ([]Location, error) {
	out := make([]Location, 0, len(r.locations))
	for _, l := range r.locations {
		out = append(out, l)
	}
	return out, nil
}

func (r *locationRepoStub) DeleteLocation(ctx context.Context, id int64) error {
	if _, ok := r.locations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.locations, id)
	return nil
}

type categoryRepoStub struct {
	categories []Category
}

func newCategoryRepoStub() *categoryRepoStub {
	return &categoryRepoStub{categories: []Category{
		{ID: 1, Name: "Corporate"},
		{ID: 2, Name: "Wedding"},
	}}
}

func (r *categoryRepoStub) GetCategory(ctx context.Context, id int64) (Category, error) {
	for _, c := range r.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return Category{}, persistence.ErrNotFound
}

func (r *categoryRepoStub) ListCategories(ctx context.Context) ([]Category, error) {
	return append([]Category(nil), r.categories...), nil
}

// eventRepoStub is an in-memory EventRepository that records the last filter.
type eventRepoStub struct {
	nextID     int64
	events     map[int64]Event
	lastFilter EventFilter
	listResult []Event
}

func newEventRepoStub(events ...Event) *eventRepoStub {
	r := &eventRepoStub{events: make(map[int64]Event)}
	for _, e := range events {
		if e.ID > r.nextID {
			r.nextID = e.ID
		}
		r.events[e.ID] = e
	}
	return r
}

func (r *eventRepoStub) CreateEvent(ctx context.Context, event Event) (Event, error) {
	r.nextID++
	event.ID = r.nextID
	r.events[event.ID] = event
	return event, nil
}

func (r *eventRepoStub) UpdateEvent(ctx context.Context, event Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *eventRepoStub) UpdateEventStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	e, ok := r.events[id]
	if !ok {
		return persistence.ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = updatedAt
	r.events[id] = e
	return nil
}

func (r *eventRepoStub) GetEvent(ctx context.Context, id int64) (Event, error) {
	e, ok := r.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	return e, nil
}

func (r *eventRepoStub) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	r.lastFilter = filter
	return r.listResult, nil
}

func (r *eventRepoStub) DeleteEvent(ctx context.Context, id int64) error {
	if _, ok := r.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

// elementTypeRepoStub returns deleteErr from DeleteElementType when set.
type elementTypeRepoStub struct {
	nextID    int64
	types     map[int64]ElementType
	deleteErr error
}

func newElementTypeRepoStub(types ...ElementType) *elementTypeRepoStub {
	r := &elementTypeRepoStub{types: make(map[int64]ElementType)}
	for _, t := range types {
		if t.ID > r.nextID {
			r.nextID = t.ID
		}
		r.types[t.ID] = t
	}
	return r
}

func (r *elementTypeRepoStub) CreateElementType(ctx context.Context, t ElementType) (ElementType, error) {
	for _, existing := range r.types {
		if strings.EqualFold(existing.Name, t.Name) {
			return ElementType{}, persistence.ErrDuplicate
		}
	}
	r.nextID++
	t.ID = r.nextID
	r.types[t.ID] = t
	return t, nil
}

func (r *elementTypeRepoStub) UpdateElementType(ctx context.Context, t ElementType) error {
	if _, ok := r.types[t.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.types[t.ID] = t
	return nil
}

func (r *elementTypeRepoStub) GetElementType(ctx context.Context, id int64) (ElementType, error) {
	t, ok := r.types[id]
	if !ok {
		return ElementType{}, persistence.ErrNotFound
	}
	return t, nil
}

func (r *elementTypeRepoStub) ListElementTypes(ctx context.Context) ([]ElementType, error) {
	out := make([]ElementType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	return out, nil
}

func (r *elementTypeRepoStub) DeleteElementType(ctx context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.types[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.types, id)
	return nil
}

// elementRepoStub is an in-memory ElementRepository.
type elementRepoStub struct {
	nextID     int64
	elements   map[int64]Element
	lastFilter ElementFilter
}

func newElementRepoStub(elements ...Element) *elementRepoStub {
	r := &elementRepoStub{elements: make(map[int64]Element)}
	for _, e := range elements {
		if e.ID > r.nextID {
			r.nextID = e.ID
		}
		r.elements[e.ID] = e
	}
	return r
}

func (r *elementRepoStub) CreateElement(ctx context.Context, element Element) (Element, error) {
	if element.SerialNumber != "" {
		for _, e := range r.elements {
			if e.SerialNumber == element.SerialNumber {
				return Element{}, persistence.ErrDuplicate
			}
		}
	}
	r.nextID++
	element.ID = r.nextID
	r.elements[element.ID] = element
	return element, nil
}

func (r *elementRepoStub) UpdateElement(ctx context.Context, element Element) error {
	if _, ok := r.elements[element.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.elements[element.ID] = element
	return nil
}

func (r *elementRepoStub) GetElement(ctx context.Context, id int64) (Element, error) {
	e, ok := r.elements[id]
	if !ok {
		return Element{}, persistence.ErrNotFound
	}
	return e, nil
}

func (r *elementRepoStub) ListElements(ctx context.Context, filter ElementFilter) ([]Element, error) {
	r.lastFilter = filter
	var out []Element
	for _, e := range r.elements {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.TypeID != nil && e.TypeID != *filter.TypeID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *elementRepoStub) DeleteElement(ctx context.Context, id int64) error {
	if _, ok := r.elements[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.elements, id)
	return nil
}

// kitRepoStub is an in-memory KitRepository; GetKit fills Elements from elements.
type kitRepoStub struct {
	nextID   int64
	kits     map[int64]Kit
	elements *elementRepoStub
}

func newKitRepoStub(elements *elementRepoStub, kits ...Kit) *kitRepoStub {
	r := &kitRepoStub{kits: make(map[int64]Kit), elements: elements}
	for _, k := range kits {
		if k.ID > r.nextID {
			r.nextID = k.ID
		}
		r.kits[k.ID] = k
	}
	return r
}

func (r *kitRepoStub) CreateKit(ctx context.Context, kit Kit) (Kit, error) {
	for _, k := range r.kits {
		if strings.EqualFold(k.Name, kit.Name) {
			return Kit{}, persistence.ErrDuplicate
		}
	}
	r.nextID++
	kit.ID = r.nextID
	r.kits[kit.ID] = kit
	return kit, nil
}

func (r *kitRepoStub) UpdateKit(ctx context.Context, kit Kit) error {
	if _, ok := r.kits[kit.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.kits[kit.ID] = kit
	return nil
}

func (r *kitRepoStub) GetKit(ctx context.Context, id int64) (Kit, error) {
	k, ok := r.kits[id]
	if !ok {
		return Kit{}, persistence.ErrNotFound
	}
	k.Elements = nil
	if r.elements != nil {
		for _, elementID := range k.ElementIDs {
			if e, ok := r.elements.elements[elementID]; ok {
				k.Elements = append(k.Elements, e)
			}
		}
	}
	return k, nil
}

func (r *kitRepoStub) ListKits(ctx context.Context) ([]Kit, error) {
	out := make([]Kit, 0, len(r.kits))
	for _, k := range r.kits {
		out = append(out, k)
	}
	return out, nil
}

func (r *kitRepoStub) DeleteKit(ctx context.Context, id int64) error {
	if _, ok := r.kits[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.kits, id)
	return nil
}

type statsRepoStub struct {
	counts DashboardCounts
}

func (r *statsRepoStub) DashboardCounts(ctx context.Context) (DashboardCounts, error) {
	return r.counts, nil
}
