package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/event-manager/internal/application"
)

type dashboardService interface {
	Dashboard(ctx context.Context, principal application.Principal) (application.Dashboard, error)
}

type DashboardHandler struct {
	handlerBase
	service dashboardService
}

func NewDashboardHandler(service dashboardService, pages *Pages, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{handlerBase: newHandlerBase("DashboardHandler", pages, logger), service: service}
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context(), h.principal(r))
	if err != nil {
		h.fail(w, r, "Show", err)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", page{Title: "Dashboard", Data: dashboard})
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers the unauthenticated liveness probe.
type HealthHandler struct {
	db        Pinger
	responder responder
	logger    *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	base := defaultLogger(logger)
	return &HealthHandler{db: db, responder: newResponder(base), logger: base}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		handlerLogger(ctx, h.logger, "HealthHandler", "Check").ErrorContext(ctx, "database ping failed", "error", err)
		h.responder.writeJSON(ctx, w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Database: "unreachable"})
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}
