package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

// ElementTypeRepository implements persistence.ElementTypeRepository using SQLite
type ElementTypeRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewElementTypeRepository creates a new SQLite element type repository
func NewElementTypeRepository(pool *ConnectionPool) *ElementTypeRepository {
	return &ElementTypeRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

const elementTypeSelect = `
	SELECT t.id, t.name, t.description, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM elements el WHERE el.type_id = t.id)
	FROM element_types t
`

// CreateElementType inserts a new element type.
func (r *ElementTypeRepository) CreateElementType(ctx context.Context, elementType persistence.ElementType) (persistence.ElementType, error) {
	elementType.Name = strings.TrimSpace(elementType.Name)
	if elementType.Name == "" {
		return persistence.ElementType{}, persistence.ErrConstraintViolation
	}
	if elementType.CreatedAt.IsZero() {
		elementType.CreatedAt = r.now().UTC()
	}
	if elementType.UpdatedAt.IsZero() {
		elementType.UpdatedAt = elementType.CreatedAt
	}

	result, err := r.helper.Exec(ctx, `
		INSERT INTO element_types (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`,
		elementType.Name,
		nullString(elementType.Description),
		formatTime(elementType.CreatedAt),
		formatTime(elementType.UpdatedAt),
	)
	if err != nil {
		return persistence.ElementType{}, r.mapper.MapError(err)
	}

	if elementType.ID, err = result.LastInsertId(); err != nil {
		return persistence.ElementType{}, err
	}
	return elementType, nil
}

// UpdateElementType updates an existing element type.
func (r *ElementTypeRepository) UpdateElementType(ctx context.Context, elementType persistence.ElementType) error {
	if elementType.ID <= 0 {
		return persistence.ErrNotFound
	}
	elementType.Name = strings.TrimSpace(elementType.Name)
	if elementType.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if elementType.UpdatedAt.IsZero() {
		elementType.UpdatedAt = r.now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE element_types SET name = ?, description = ?, updated_at = ? WHERE id = ?
	`,
		elementType.Name,
		nullString(elementType.Description),
		formatTime(elementType.UpdatedAt),
		elementType.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetElementType retrieves an element type with its element count.
func (r *ElementTypeRepository) GetElementType(ctx context.Context, id int64) (persistence.ElementType, error) {
	if id <= 0 {
		return persistence.ElementType{}, persistence.ErrNotFound
	}
	return r.scanElementType(r.helper.QueryRow(ctx, elementTypeSelect+` WHERE t.id = ?`, id))
}

// ListElementTypes returns all element types ordered by name.
func (r *ElementTypeRepository) ListElementTypes(ctx context.Context) ([]persistence.ElementType, error) {
	rows, err := r.helper.Query(ctx, elementTypeSelect+` ORDER BY t.name ASC, t.id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var types []persistence.ElementType
	for rows.Next() {
		elementType, err := r.scanElementType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, elementType)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return types, nil
}

// DeleteElementType removes an element type. Types still used by elements
// are kept and ErrForeignKey is returned.
func (r *ElementTypeRepository) DeleteElementType(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var elementCount int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM elements WHERE type_id = ?", id).Scan(&elementCount); err != nil {
			return r.mapper.MapError(err)
		}
		if elementCount > 0 {
			return persistence.ErrForeignKey
		}

		result, err := r.helper.ExecTx(ctx, tx, "DELETE FROM element_types WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

func (r *ElementTypeRepository) scanElementType(row rowScanner) (persistence.ElementType, error) {
	var (
		elementType                persistence.ElementType
		description                sql.NullString
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&elementType.ID,
		&elementType.Name,
		&description,
		&createdAtStr,
		&updatedAtStr,
		&elementType.ElementCount,
	); err != nil {
		return persistence.ElementType{}, r.mapper.MapError(err)
	}

	elementType.Description = description.String

	var err error
	if elementType.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.ElementType{}, err
	}
	if elementType.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.ElementType{}, err
	}
	return elementType, nil
}
