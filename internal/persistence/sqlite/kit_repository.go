package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/event-manager/internal/persistence"
)

// KitRepository implements persistence.KitRepository using SQLite
type KitRepository struct {
	pool     *ConnectionPool
	helper   *QueryHelper
	mapper   *ErrorMapper
	elements *ElementRepository
	now      func() time.Time
}

// NewKitRepository creates a new SQLite kit repository
func NewKitRepository(pool *ConnectionPool) *KitRepository {
	return &KitRepository{
		pool:     pool,
		helper:   NewQueryHelper(pool),
		mapper:   NewErrorMapper(),
		elements: NewElementRepository(pool),
		now:      time.Now,
	}
}

const kitColumns = `id, name, description, created_at, updated_at`

// CreateKit inserts a kit and its member elements in one transaction.
func (r *KitRepository) CreateKit(ctx context.Context, kit persistence.Kit) (persistence.Kit, error) {
	kit.Name = strings.TrimSpace(kit.Name)
	if kit.Name == "" {
		return persistence.Kit{}, persistence.ErrConstraintViolation
	}
	if kit.CreatedAt.IsZero() {
		kit.CreatedAt = r.now().UTC()
	}
	if kit.UpdatedAt.IsZero() {
		kit.UpdatedAt = kit.CreatedAt
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO kits (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)
		`,
			kit.Name,
			nullString(kit.Description),
			formatTime(kit.CreatedAt),
			formatTime(kit.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if kit.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		return r.replaceElementsTx(ctx, tx, kit.ID, kit.ElementIDs)
	})
	if err != nil {
		return persistence.Kit{}, err
	}

	kit.ElementIDs = uniqueIDs(kit.ElementIDs)
	return kit, nil
}

// UpdateKit replaces a kit's fields and member elements.
func (r *KitRepository) UpdateKit(ctx context.Context, kit persistence.Kit) error {
	if kit.ID <= 0 {
		return persistence.ErrNotFound
	}
	kit.Name = strings.TrimSpace(kit.Name)
	if kit.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if kit.UpdatedAt.IsZero() {
		kit.UpdatedAt = r.now().UTC()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE kits SET name = ?, description = ?, updated_at = ? WHERE id = ?
		`,
			kit.Name,
			nullString(kit.Description),
			formatTime(kit.UpdatedAt),
			kit.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return r.replaceElementsTx(ctx, tx, kit.ID, kit.ElementIDs)
	})
}

// GetKit retrieves a kit with its member elements.
func (r *KitRepository) GetKit(ctx context.Context, id int64) (persistence.Kit, error) {
	if id <= 0 {
		return persistence.Kit{}, persistence.ErrNotFound
	}

	kit, err := r.scanKit(r.helper.QueryRow(ctx, `SELECT `+kitColumns+` FROM kits WHERE id = ?`, id))
	if err != nil {
		return persistence.Kit{}, err
	}

	rows, err := r.helper.Query(ctx, elementSelect+`
		JOIN kit_elements ke ON ke.element_id = el.id
		WHERE ke.kit_id = ?
		ORDER BY t.name ASC, el.name ASC, el.id ASC
	`, id)
	if err != nil {
		return persistence.Kit{}, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		element, err := r.elements.scanElement(rows)
		if err != nil {
			return persistence.Kit{}, err
		}
		kit.Elements = append(kit.Elements, element)
		kit.ElementIDs = append(kit.ElementIDs, element.ID)
	}
	if err := rows.Err(); err != nil {
		return persistence.Kit{}, r.mapper.MapError(err)
	}

	return kit, nil
}

// ListKits returns all kits with their member element IDs.
func (r *KitRepository) ListKits(ctx context.Context) ([]persistence.Kit, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+kitColumns+` FROM kits ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var kits []persistence.Kit
	index := make(map[int64]int)
	for rows.Next() {
		kit, err := r.scanKit(rows)
		if err != nil {
			return nil, err
		}
		index[kit.ID] = len(kits)
		kits = append(kits, kit)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	members, err := r.helper.Query(ctx, `SELECT kit_id, element_id FROM kit_elements ORDER BY kit_id ASC, element_id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer members.Close()

	for members.Next() {
		var kitID, elementID int64
		if err := members.Scan(&kitID, &elementID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if i, ok := index[kitID]; ok {
			kits[i].ElementIDs = append(kits[i].ElementIDs, elementID)
		}
	}
	if err := members.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return kits, nil
}

// DeleteKit removes a kit; memberships and event assignments are removed by cascade.
func (r *KitRepository) DeleteKit(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM kits WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *KitRepository) replaceElementsTx(ctx context.Context, tx *sql.Tx, kitID int64, elementIDs []int64) error {
	if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM kit_elements WHERE kit_id = ?`, kitID); err != nil {
		return r.mapper.MapError(err)
	}
	for _, elementID := range uniqueIDs(elementIDs) {
		if _, err := r.helper.ExecTx(ctx, tx, `INSERT INTO kit_elements (kit_id, element_id) VALUES (?, ?)`, kitID, elementID); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *KitRepository) scanKit(row rowScanner) (persistence.Kit, error) {
	var (
		kit                        persistence.Kit
		description                sql.NullString
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(&kit.ID, &kit.Name, &description, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.Kit{}, r.mapper.MapError(err)
	}

	kit.Description = description.String

	var err error
	if kit.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Kit{}, err
	}
	if kit.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Kit{}, err
	}
	return kit, nil
}
