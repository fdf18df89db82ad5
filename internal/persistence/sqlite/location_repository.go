package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

// LocationRepository implements persistence.LocationRepository using SQLite
type LocationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewLocationRepository creates a new SQLite location repository
func NewLocationRepository(pool *ConnectionPool) *LocationRepository {
	return &LocationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

const locationColumns = `id, name, address, notes, created_at, updated_at`

// CreateLocation inserts a new location into the database
func (r *LocationRepository) CreateLocation(ctx context.Context, location persistence.Location) (persistence.Location, error) {
	location.Name = strings.TrimSpace(location.Name)
	if location.Name == "" {
		return persistence.Location{}, persistence.ErrConstraintViolation
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = r.now().UTC()
	}
	if location.UpdatedAt.IsZero() {
		location.UpdatedAt = location.CreatedAt
	}

	result, err := r.helper.Exec(ctx, `
		INSERT INTO locations (name, address, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		location.Name,
		nullString(location.Address),
		nullString(location.Notes),
		formatTime(location.CreatedAt),
		formatTime(location.UpdatedAt),
	)
	if err != nil {
		return persistence.Location{}, r.mapper.MapError(err)
	}

	if location.ID, err = result.LastInsertId(); err != nil {
		return persistence.Location{}, err
	}
	return location, nil
}

// UpdateLocation updates an existing location in the database
func (r *LocationRepository) UpdateLocation(ctx context.Context, location persistence.Location) error {
	if location.ID <= 0 {
		return persistence.ErrNotFound
	}
	location.Name = strings.TrimSpace(location.Name)
	if location.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if location.UpdatedAt.IsZero() {
		location.UpdatedAt = r.now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE locations
		SET name = ?, address = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		location.Name,
		nullString(location.Address),
		nullString(location.Notes),
		formatTime(location.UpdatedAt),
		location.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetLocation retrieves a location by ID from the database
func (r *LocationRepository) GetLocation(ctx context.Context, id int64) (persistence.Location, error) {
	if id <= 0 {
		return persistence.Location{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	return r.scanLocation(row)
}

// ListLocations returns all locations ordered by name then ID
func (r *LocationRepository) ListLocations(ctx context.Context) ([]persistence.Location, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var locations []persistence.Location
	for rows.Next() {
		location, err := r.scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return locations, nil
}

// DeleteLocation removes a location and detaches the events and elements that used it.
func (r *LocationRepository) DeleteLocation(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(ctx, tx, "UPDATE events SET location_id = NULL WHERE location_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(ctx, tx, "UPDATE elements SET location_id = NULL WHERE location_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(ctx, tx, "DELETE FROM locations WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

func (r *LocationRepository) scanLocation(row rowScanner) (persistence.Location, error) {
	var (
		location                   persistence.Location
		address, notes             sql.NullString
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&location.ID,
		&location.Name,
		&address,
		&notes,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Location{}, r.mapper.MapError(err)
	}

	location.Address = address.String
	location.Notes = notes.String

	var err error
	if location.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Location{}, err
	}
	if location.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Location{}, err
	}
	return location, nil
}
