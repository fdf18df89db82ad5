package sqlite

import (
	"context"

	"github.com/example/event-manager/internal/persistence"
)

// CountedTables lists the tables reported in backup manifests and health reports.
var CountedTables = []string{
	"users",
	"clients",
	"events",
	"event_categories",
	"locations",
	"element_types",
	"elements",
	"kits",
	"kit_elements",
	"event_kits",
}

// StatsRepository implements persistence.StatsRepository using SQLite
type StatsRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewStatsRepository creates a new SQLite stats repository
func NewStatsRepository(pool *ConnectionPool) *StatsRepository {
	return &StatsRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// DashboardCounts returns the row counts shown on the dashboard.
func (r *StatsRepository) DashboardCounts(ctx context.Context) (persistence.DashboardCounts, error) {
	var counts persistence.DashboardCounts
	err := r.helper.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM elements),
			(SELECT COUNT(*) FROM kits),
			(SELECT COUNT(*) FROM locations),
			(SELECT COUNT(*) FROM elements WHERE status = 'maintenance')
	`).Scan(
		&counts.Clients,
		&counts.Events,
		&counts.Elements,
		&counts.Kits,
		&counts.Locations,
		&counts.ElementsMaintenance,
	)
	if err != nil {
		return persistence.DashboardCounts{}, r.mapper.MapError(err)
	}
	return counts, nil
}

// TableCounts returns the number of rows in each of CountedTables.
func (r *StatsRepository) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(CountedTables))
	for _, table := range CountedTables {
		var count int64
		// table comes from the fixed CountedTables list.
		if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
			return nil, r.mapper.MapError(err)
		}
		counts[table] = count
	}
	return counts, nil
}

// OrphanedEventReferences counts events whose client or location reference
// points at a row that no longer exists.
func (r *StatsRepository) OrphanedEventReferences(ctx context.Context) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx, `
		SELECT COUNT(*) FROM events e
		WHERE (e.client_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM clients c WHERE c.id = e.client_id))
		   OR (e.location_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM locations l WHERE l.id = e.location_id))
	`).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}
