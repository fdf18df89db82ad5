package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

const eventSelect = `
	SELECT e.id, e.title, e.client_id, e.location_id, e.category_id,
		e.start_at, e.end_at, e.status, e.notes, e.created_at, e.updated_at,
		c.name, c.color, l.name, cat.name
	FROM events e
	LEFT JOIN clients c ON c.id = e.client_id
	LEFT JOIN locations l ON l.id = e.location_id
	LEFT JOIN event_categories cat ON cat.id = e.category_id
`

// CreateEvent inserts an event and its kit assignments in one transaction.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" || !event.End.After(event.Start) {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now().UTC()
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO events (title, client_id, location_id, category_id, start_at, end_at, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			event.Title,
			nullInt64(event.ClientID),
			nullInt64(event.LocationID),
			nullInt64(event.CategoryID),
			formatTime(event.Start),
			formatTime(event.End),
			event.Status,
			nullString(event.Notes),
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if event.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		return r.replaceKitsTx(ctx, tx, event.ID, event.KitIDs)
	})
	if err != nil {
		return persistence.Event{}, err
	}

	return event, nil
}

// UpdateEvent replaces an event's fields and kit assignments.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID <= 0 {
		return persistence.ErrNotFound
	}
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" || !event.End.After(event.Start) {
		return persistence.ErrConstraintViolation
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = r.now().UTC()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE events
			SET title = ?, client_id = ?, location_id = ?, category_id = ?, start_at = ?, end_at = ?,
				status = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`,
			event.Title,
			nullInt64(event.ClientID),
			nullInt64(event.LocationID),
			nullInt64(event.CategoryID),
			formatTime(event.Start),
			formatTime(event.End),
			event.Status,
			nullString(event.Notes),
			formatTime(event.UpdatedAt),
			event.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return r.replaceKitsTx(ctx, tx, event.ID, event.KitIDs)
	})
}

// UpdateEventStatus changes only the status of an event.
func (r *EventRepository) UpdateEventStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(updatedAt), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetEvent retrieves an event with its display names and kit IDs.
func (r *EventRepository) GetEvent(ctx context.Context, id int64) (persistence.Event, error) {
	if id <= 0 {
		return persistence.Event{}, persistence.ErrNotFound
	}

	event, err := r.scanEvent(r.helper.QueryRow(ctx, eventSelect+` WHERE e.id = ?`, id))
	if err != nil {
		return persistence.Event{}, err
	}

	rows, err := r.helper.Query(ctx, `SELECT kit_id FROM event_kits WHERE event_id = ? ORDER BY kit_id ASC`, id)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var kitID int64
		if err := rows.Scan(&kitID); err != nil {
			return persistence.Event{}, r.mapper.MapError(err)
		}
		event.KitIDs = append(event.KitIDs, kitID)
	}
	if err := rows.Err(); err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}

	return event, nil
}

// ListEvents returns events matching filter ordered by start time.
// Every condition is a fixed SQL fragment with bound parameters.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Start != nil {
		conditions = append(conditions, "e.end_at > ?")
		args = append(args, formatTime(*filter.Start))
	}
	if filter.End != nil {
		conditions = append(conditions, "e.start_at < ?")
		args = append(args, formatTime(*filter.End))
	}
	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, "e.category_id IN ("+placeholders(len(filter.CategoryIDs))+")")
		for _, id := range filter.CategoryIDs {
			args = append(args, id)
		}
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "e.status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.ClientID != nil {
		conditions = append(conditions, "e.client_id = ?")
		args = append(args, *filter.ClientID)
	}

	query := eventSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.start_at ASC, e.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// DeleteEvent removes an event; kit assignments are removed by cascade.
func (r *EventRepository) DeleteEvent(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *EventRepository) replaceKitsTx(ctx context.Context, tx *sql.Tx, eventID int64, kitIDs []int64) error {
	if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM event_kits WHERE event_id = ?`, eventID); err != nil {
		return r.mapper.MapError(err)
	}
	for _, kitID := range uniqueIDs(kitIDs) {
		if _, err := r.helper.ExecTx(ctx, tx, `INSERT INTO event_kits (event_id, kit_id) VALUES (?, ?)`, eventID, kitID); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *EventRepository) scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                                        persistence.Event
		clientID, locationID, categoryID             sql.NullInt64
		startStr, endStr, createdAtStr, updatedAtStr string
		notes, clientName, clientColor               sql.NullString
		locationName, categoryName                   sql.NullString
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&clientID,
		&locationID,
		&categoryID,
		&startStr,
		&endStr,
		&event.Status,
		&notes,
		&createdAtStr,
		&updatedAtStr,
		&clientName,
		&clientColor,
		&locationName,
		&categoryName,
	); err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}

	event.ClientID = int64Ptr(clientID)
	event.LocationID = int64Ptr(locationID)
	event.CategoryID = int64Ptr(categoryID)
	event.Notes = notes.String
	event.ClientName = clientName.String
	event.ClientColor = clientColor.String
	event.LocationName = locationName.String
	event.CategoryName = categoryName.String

	var err error
	if event.Start, err = parseTime("start_at", startStr); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime("end_at", endStr); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

// uniqueIDs drops duplicates while keeping the first occurrence order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
