package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StatsRepository answers the aggregate queries behind the dashboard.
type StatsRepository interface {
	DashboardCounts(ctx context.Context) (DashboardCounts, error)
}

// UpcomingWindow is how far ahead the dashboard lists events.
const UpcomingWindow = 14 * 24 * time.Hour

// DashboardService assembles the landing page summary.
type DashboardService struct {
	stats    StatsRepository
	events   EventRepository
	elements ElementRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewDashboardService constructs a dashboard service.
func NewDashboardService(stats StatsRepository, events EventRepository, elements ElementRepository, now func() time.Time) *DashboardService {
	return NewDashboardServiceWithLogger(stats, events, elements, now, nil)
}

// NewDashboardServiceWithLogger constructs a dashboard service with a specified logger.
func NewDashboardServiceWithLogger(stats StatsRepository, events EventRepository, elements ElementRepository, now func() time.Time, logger *slog.Logger) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{stats: stats, events: events, elements: elements, now: now, logger: defaultLogger(logger)}
}

// Dashboard returns counts, active events in the next UpcomingWindow and
// elements under maintenance.
func (s *DashboardService) Dashboard(ctx context.Context, principal Principal) (dashboard Dashboard, err error) {
	if s == nil || s.stats == nil || s.events == nil || s.elements == nil {
		err = fmt.Errorf("dashboard repositories not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "DashboardService", "Dashboard", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build dashboard", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = Authorize(ctx, logger, principal, CapViewDashboard); err != nil {
		return
	}

	if dashboard.Counts, err = s.stats.DashboardCounts(ctx); err != nil {
		err = mapRepoError(err)
		return
	}

	start := s.now().UTC()
	end := start.Add(UpcomingWindow)
	dashboard.Upcoming, err = s.events.ListEvents(ctx, EventFilter{
		Start:    &start,
		End:      &end,
		Statuses: []string{EventStatusBooked, EventStatusConfirmed, EventStatusInProgress},
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	dashboard.Maintenance, err = s.elements.ListElements(ctx, ElementFilter{Status: ElementStatusMaintenance})
	err = mapRepoError(err)
	return
}
