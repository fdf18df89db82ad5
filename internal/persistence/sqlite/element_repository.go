package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
	"github.com/shopspring/decimal"
)

// ElementRepository implements persistence.ElementRepository using SQLite
type ElementRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewElementRepository creates a new SQLite element repository
func NewElementRepository(pool *ConnectionPool) *ElementRepository {
	return &ElementRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

const elementSelect = `
	SELECT el.id, el.name, el.type_id, el.serial_number, el.status, el.location_id,
		el.replacement_value, el.notes, el.created_at, el.updated_at,
		t.name, l.name
	FROM elements el
	JOIN element_types t ON t.id = el.type_id
	LEFT JOIN locations l ON l.id = el.location_id
`

// CreateElement inserts a new element.
func (r *ElementRepository) CreateElement(ctx context.Context, element persistence.Element) (persistence.Element, error) {
	element.Name = strings.TrimSpace(element.Name)
	if element.Name == "" || element.TypeID <= 0 {
		return persistence.Element{}, persistence.ErrConstraintViolation
	}
	if element.CreatedAt.IsZero() {
		element.CreatedAt = r.now().UTC()
	}
	if element.UpdatedAt.IsZero() {
		element.UpdatedAt = element.CreatedAt
	}

	result, err := r.helper.Exec(ctx, `
		INSERT INTO elements (name, type_id, serial_number, status, location_id, replacement_value, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		element.Name,
		element.TypeID,
		nullString(element.SerialNumber),
		element.Status,
		nullInt64(element.LocationID),
		element.ReplacementValue.String(),
		nullString(element.Notes),
		formatTime(element.CreatedAt),
		formatTime(element.UpdatedAt),
	)
	if err != nil {
		return persistence.Element{}, r.mapper.MapError(err)
	}

	if element.ID, err = result.LastInsertId(); err != nil {
		return persistence.Element{}, err
	}
	return element, nil
}

// UpdateElement updates an existing element.
func (r *ElementRepository) UpdateElement(ctx context.Context, element persistence.Element) error {
	if element.ID <= 0 {
		return persistence.ErrNotFound
	}
	element.Name = strings.TrimSpace(element.Name)
	if element.Name == "" || element.TypeID <= 0 {
		return persistence.ErrConstraintViolation
	}
	if element.UpdatedAt.IsZero() {
		element.UpdatedAt = r.now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE elements
		SET name = ?, type_id = ?, serial_number = ?, status = ?, location_id = ?,
			replacement_value = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		element.Name,
		element.TypeID,
		nullString(element.SerialNumber),
		element.Status,
		nullInt64(element.LocationID),
		element.ReplacementValue.String(),
		nullString(element.Notes),
		formatTime(element.UpdatedAt),
		element.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetElement retrieves an element with its type and location names.
func (r *ElementRepository) GetElement(ctx context.Context, id int64) (persistence.Element, error) {
	if id <= 0 {
		return persistence.Element{}, persistence.ErrNotFound
	}
	return r.scanElement(r.helper.QueryRow(ctx, elementSelect+` WHERE el.id = ?`, id))
}

// ListElements returns elements matching filter ordered by type then name.
func (r *ElementRepository) ListElements(ctx context.Context, filter persistence.ElementFilter) ([]persistence.Element, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.TypeID != nil {
		conditions = append(conditions, "el.type_id = ?")
		args = append(args, *filter.TypeID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		conditions = append(conditions, "el.status = ?")
		args = append(args, status)
	}

	query := elementSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.name ASC, el.name ASC, el.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var elements []persistence.Element
	for rows.Next() {
		element, err := r.scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return elements, nil
}

// DeleteElement removes an element; kit memberships are removed by cascade.
func (r *ElementRepository) DeleteElement(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM elements WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *ElementRepository) scanElement(row rowScanner) (persistence.Element, error) {
	var (
		element                    persistence.Element
		serial, notes, location    sql.NullString
		locationID                 sql.NullInt64
		value                      string
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&element.ID,
		&element.Name,
		&element.TypeID,
		&serial,
		&element.Status,
		&locationID,
		&value,
		&notes,
		&createdAtStr,
		&updatedAtStr,
		&element.TypeName,
		&location,
	); err != nil {
		return persistence.Element{}, r.mapper.MapError(err)
	}

	element.SerialNumber = serial.String
	element.Notes = notes.String
	element.LocationID = int64Ptr(locationID)
	element.LocationName = location.String

	var err error
	if element.ReplacementValue, err = decimal.NewFromString(value); err != nil {
		return persistence.Element{}, fmt.Errorf("failed to parse replacement_value: %w", err)
	}
	if element.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Element{}, err
	}
	if element.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Element{}, err
	}
	return element, nil
}
