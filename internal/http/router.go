package http

import (
	"log/slog"
	"net/http"

	"github.com/example/event-manager/internal/application"
	"github.com/example/event-manager/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const idPattern = "{id:[0-9]+}"

type RouterConfig struct {
	Pages        *Pages
	Sessions     SessionValidator
	Auth         *AuthHandler
	Dashboard    *DashboardHandler
	Clients      *ClientHandler
	Events       *EventHandler
	Elements     *ElementHandler
	ElementTypes *ElementTypeHandler
	Kits         *KitHandler
	Locations    *LocationHandler
	Users        *UserHandler
	Health       *HealthHandler

	// CSRF protects the login form and every route behind the session check.
	CSRF CSRFOptions
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	// CORSAllowedOrigins enables CORS on /api when non-empty.
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// route declares one protected endpoint and the capability it requires.
type route struct {
	methods    []string
	path       string
	capability application.Capability
	handler    http.HandlerFunc
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ObserveHTTPRequest(r.Method, "unmatched", http.StatusNotFound, 0)
		renderErrorPage(w, r, cfg.Pages, logger, http.StatusNotFound, statusMessage(http.StatusNotFound))
	})
	router.Use(Metrics)

	csrfProtect := CSRFProtect(cfg.CSRF, cfg.Pages, logger)

	router.PathPrefix("/static/").Handler(staticHandler()).Methods(http.MethodGet, http.MethodHead)
	if cfg.Auth != nil {
		router.Handle("/login", csrfProtect(http.HandlerFunc(cfg.Auth.LoginForm))).Methods(http.MethodGet)
		router.Handle("/login", csrfProtect(http.HandlerFunc(cfg.Auth.Login))).Methods(http.MethodPost)
		router.Handle("/logout", csrfProtect(http.HandlerFunc(cfg.Auth.Logout))).Methods(http.MethodPost)
	}
	if cfg.Health != nil {
		router.HandleFunc("/healthz", cfg.Health.Check).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	requireSession := RequireSession(cfg.Sessions, cfg.Pages, logger)

	if cfg.Events != nil {
		api := router.PathPrefix("/api").Subrouter()
		methods := []string{http.MethodGet}
		if len(cfg.CORSAllowedOrigins) > 0 {
			c := cors.New(cors.Options{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowedMethods:   []string{http.MethodGet},
				AllowedHeaders:   []string{"Authorization", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			})
			api.Use(c.Handler)
			methods = append(methods, http.MethodOptions)
		}
		api.Use(requireSession)
		api.Handle("/events", gate(cfg, application.CapViewEvents, cfg.Events.APIList)).Methods(methods...)
	}

	protected := router.NewRoute().Subrouter()
	protected.Use(requireSession, csrfProtect)
	for _, rt := range cfg.routes() {
		protected.Handle(rt.path, gate(cfg, rt.capability, rt.handler)).Methods(rt.methods...)
	}

	return RequestLogger(logger)(Recovery(cfg.Pages, logger)(router))
}

func gate(cfg RouterConfig, capability application.Capability, handler http.HandlerFunc) http.Handler {
	return RequireCapability(capability, cfg.Pages, cfg.Logger)(handler)
}

// routes is the declarative route table behind the session check.
func (cfg RouterConfig) routes() []route {
	var routes []route
	add := func(capability application.Capability, handler http.HandlerFunc, path string, methods ...string) {
		routes = append(routes, route{methods: methods, path: path, capability: capability, handler: handler})
	}
	crud := func(prefix string, view, manage application.Capability, h crudHandler) {
		add(view, h.List, prefix, http.MethodGet)
		add(manage, h.New, prefix+"/new", http.MethodGet)
		add(manage, h.Create, prefix+"/new", http.MethodPost)
		add(manage, h.Create, prefix, http.MethodPost)
		add(manage, h.Edit, prefix+"/"+idPattern+"/edit", http.MethodGet)
		add(manage, h.Update, prefix+"/"+idPattern+"/edit", http.MethodPost)
		add(manage, h.Delete, prefix+"/"+idPattern+"/delete", http.MethodPost)
	}

	if cfg.Dashboard != nil {
		add(application.CapViewDashboard, cfg.Dashboard.Show, "/", http.MethodGet)
	}
	if cfg.Clients != nil {
		crud("/clients", application.CapViewClients, application.CapManageClients, cfg.Clients)
	}
	if cfg.Events != nil {
		add(application.CapViewEvents, cfg.Events.Calendar, "/calendar", http.MethodGet)
		add(application.CapExportReports, cfg.Events.ScheduleReport, "/events/report.pdf", http.MethodGet)
		add(application.CapExportReports, cfg.Events.Report, "/events/"+idPattern+"/report.pdf", http.MethodGet)
		add(application.CapManageEvents, cfg.Events.UpdateStatus, "/events/"+idPattern+"/status", http.MethodPost)
		crud("/events", application.CapViewEvents, application.CapManageEvents, cfg.Events)
	}
	if cfg.Elements != nil {
		crud("/elements", application.CapViewInventory, application.CapManageInventory, cfg.Elements)
	}
	if cfg.ElementTypes != nil {
		crud("/element-types", application.CapViewInventory, application.CapManageCatalog, cfg.ElementTypes)
	}
	if cfg.Kits != nil {
		crud("/kits", application.CapViewInventory, application.CapManageInventory, cfg.Kits)
	}
	if cfg.Locations != nil {
		crud("/locations", application.CapViewLocations, application.CapManageCatalog, cfg.Locations)
	}
	if cfg.Users != nil {
		crud("/users", application.CapManageUsers, application.CapManageUsers, cfg.Users)
	}
	return routes
}
