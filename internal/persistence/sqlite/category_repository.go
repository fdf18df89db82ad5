package sqlite

import (
	"context"

	"github.com/example/event-manager/internal/persistence"
)

// CategoryRepository reads the seeded event_categories table.
type CategoryRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCategoryRepository creates a new SQLite category repository
func NewCategoryRepository(pool *ConnectionPool) *CategoryRepository {
	return &CategoryRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// GetCategory retrieves a category by ID.
func (r *CategoryRepository) GetCategory(ctx context.Context, id int64) (persistence.Category, error) {
	var category persistence.Category
	err := r.helper.QueryRow(ctx, `SELECT id, name FROM event_categories WHERE id = ?`, id).
		Scan(&category.ID, &category.Name)
	if err != nil {
		return persistence.Category{}, r.mapper.MapError(err)
	}
	return category, nil
}

// ListCategories returns all categories ordered by ID.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]persistence.Category, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, name FROM event_categories ORDER BY id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var categories []persistence.Category
	for rows.Next() {
		var category persistence.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, r.mapper.MapError(err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return categories, nil
}
