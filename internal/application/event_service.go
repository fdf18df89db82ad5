package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// EventRepository captures the persistence operations needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	UpdateEventStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error
	GetEvent(ctx context.Context, id int64) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// CategoryRepository reads the event category lookup table.
type CategoryRepository interface {
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// EventService orchestrates validation, authorization, and persistence for events.
type EventService struct {
	events     EventRepository
	clients    ClientRepository
	locations  LocationRepository
	categories CategoryRepository
	kits       KitRepository
	now        func() time.Time
	logger     *slog.Logger
}

// NewEventService constructs an event service. clients, locations, categories
// and kits are used to check references before writing.
func NewEventService(events EventRepository, clients ClientRepository, locations LocationRepository, categories CategoryRepository, kits KitRepository, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, clients, locations, categories, kits, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events EventRepository, clients ClientRepository, locations LocationRepository, categories CategoryRepository, kits KitRepository, now func() time.Time, logger *slog.Logger) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:     events,
		clients:    clients,
		locations:  locations,
		categories: categories,
		kits:       kits,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates input and persists a new event.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID, "status", event.Status).InfoContext(ctx, "event created")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageEvents); err != nil {
		return
	}

	input := normalizeEventInput(params.Input)
	if err = s.validateEventInput(ctx, input); err != nil {
		return
	}

	now := s.now().UTC()
	event, err = s.events.CreateEvent(ctx, Event{
		Title:      input.Title,
		ClientID:   input.ClientID,
		LocationID: input.LocationID,
		CategoryID: input.CategoryID,
		Start:      input.Start,
		End:        input.End,
		Status:     input.Status,
		Notes:      input.Notes,
		KitIDs:     input.KitIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	err = mapRepoError(err)
	return
}

// UpdateEvent validates input and replaces an existing event's fields and kits.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent",
		"principal_id", params.Principal.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", event.Status).InfoContext(ctx, "event updated")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageEvents); err != nil {
		return
	}

	var existing Event
	if existing, err = s.events.GetEvent(ctx, params.EventID); err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeEventInput(params.Input)
	if err = s.validateEventInput(ctx, input); err != nil {
		return
	}

	updated := existing
	updated.Title = input.Title
	updated.ClientID = input.ClientID
	updated.LocationID = input.LocationID
	updated.CategoryID = input.CategoryID
	updated.Start = input.Start
	updated.End = input.End
	updated.Status = input.Status
	updated.Notes = input.Notes
	updated.KitIDs = input.KitIDs
	updated.UpdatedAt = s.now().UTC()

	if err = s.events.UpdateEvent(ctx, updated); err != nil {
		err = mapRepoError(err)
		return
	}
	event = updated
	return
}

// UpdateEventStatus changes only the status of an event.
func (s *EventService) UpdateEventStatus(ctx context.Context, principal Principal, eventID int64, status string) (err error) {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	status = strings.TrimSpace(status)
	logger := s.loggerWith(ctx, "UpdateEventStatus",
		"principal_id", principal.UserID,
		"event_id", eventID,
		"status", status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event status updated")
	}()

	if err = Authorize(ctx, logger, principal, CapManageEvents); err != nil {
		return
	}
	if !ValidEventStatus(status) {
		err = NewValidationError("status", "status is not recognised")
		return
	}

	err = mapRepoError(s.events.UpdateEventStatus(ctx, eventID, status, s.now().UTC()))
	return
}

// GetEvent returns a single event.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, eventID int64) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "GetEvent"), principal, CapViewEvents); err != nil {
		return Event{}, err
	}
	event, err := s.events.GetEvent(ctx, eventID)
	return event, mapRepoError(err)
}

// GetEventDetail returns an event with its assigned kits and their elements.
func (s *EventService) GetEventDetail(ctx context.Context, principal Principal, eventID int64) (EventDetail, error) {
	event, err := s.GetEvent(ctx, principal, eventID)
	if err != nil {
		return EventDetail{}, err
	}

	detail := EventDetail{Event: event}
	if s.kits == nil {
		return detail, nil
	}
	for _, kitID := range event.KitIDs {
		kit, err := s.kits.GetKit(ctx, kitID)
		if err != nil {
			if errors.Is(mapRepoError(err), ErrNotFound) {
				continue
			}
			return EventDetail{}, err
		}
		detail.Kits = append(detail.Kits, kit)
	}
	return detail, nil
}

// ListEvents returns events matching filter ordered by start time. The result
// is never nil.
func (s *EventService) ListEvents(ctx context.Context, principal Principal, filter EventFilter) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}
	logger := s.loggerWith(ctx, "ListEvents", "principal_id", principal.UserID)
	if err := Authorize(ctx, logger, principal, CapViewEvents); err != nil {
		return nil, err
	}

	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

// ListCategories returns the event categories.
func (s *EventService) ListCategories(ctx context.Context, principal Principal) ([]Category, error) {
	if s == nil || s.categories == nil {
		return nil, fmt.Errorf("category repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "ListCategories"), principal, CapViewEvents); err != nil {
		return nil, err
	}
	categories, err := s.categories.ListCategories(ctx)
	return categories, mapRepoError(err)
}

// DeleteEvent removes an event and its kit assignments.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID int64) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent",
		"principal_id", principal.UserID,
		"event_id", eventID,
	)

	if err := Authorize(ctx, logger, principal, CapManageEvents); err != nil {
		return err
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

func normalizeEventInput(input EventInput) EventInput {
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = EventStatusBooked
	}
	return EventInput{
		Title:      strings.TrimSpace(input.Title),
		ClientID:   positiveID(input.ClientID),
		LocationID: positiveID(input.LocationID),
		CategoryID: positiveID(input.CategoryID),
		Start:      input.Start.UTC(),
		End:        input.End.UTC(),
		Status:     status,
		Notes:      strings.TrimSpace(input.Notes),
		KitIDs:     dedupeIDs(input.KitIDs),
	}
}

// validateEventInput checks field formats and that every reference resolves.
func (s *EventService) validateEventInput(ctx context.Context, input EventInput) error {
	vErr := &ValidationError{}

	if input.Title == "" {
		vErr.add("title", "title is required")
	} else if len(input.Title) > 200 {
		vErr.add("title", "title must be 200 characters or fewer")
	}

	switch {
	case input.Start.IsZero():
		vErr.add("start", "start is required")
	case input.End.IsZero():
		vErr.add("end", "end is required")
	case !input.End.After(input.Start):
		vErr.add("end", "end must be after start")
	}

	if !ValidEventStatus(input.Status) {
		vErr.add("status", "status is not recognised")
	}

	if input.ClientID != nil && s.clients != nil {
		if err := referenceExists(s.clients.GetClient(ctx, *input.ClientID)); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			vErr.add("client_id", "client does not exist")
		}
	}
	if input.LocationID != nil && s.locations != nil {
		if err := referenceExists(s.locations.GetLocation(ctx, *input.LocationID)); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			vErr.add("location_id", "location does not exist")
		}
	}
	if input.CategoryID != nil && s.categories != nil {
		if err := referenceExists(s.categories.GetCategory(ctx, *input.CategoryID)); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			vErr.add("category_id", "category does not exist")
		}
	}
	if s.kits != nil {
		for _, kitID := range input.KitIDs {
			if err := referenceExists(s.kits.GetKit(ctx, kitID)); err != nil {
				if !errors.Is(err, ErrNotFound) {
					return err
				}
				vErr.add("kit_ids", fmt.Sprintf("kit %d does not exist", kitID))
				break
			}
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// referenceExists discards a lookup result and maps its error.
func referenceExists[T any](_ T, err error) error {
	return mapRepoError(err)
}

func positiveID(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
