// Package app builds the application context: storage, services and the
// HTTP handler, wired from one config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/example/event-manager/internal/config"
	httptransport "github.com/example/event-manager/internal/http"
	"github.com/example/event-manager/internal/metrics"
	"github.com/example/event-manager/internal/persistence/sqlite"
	"github.com/example/event-manager/internal/ratelimit"
	"github.com/example/event-manager/internal/report"
)

// ErrDefaultAdminPassword is returned when production would seed an
// administrator with the shipped default password.
var ErrDefaultAdminPassword = errors.New("app: refusing to seed the default admin password in production")

const shutdownTimeout = 10 * time.Second

// Services groups the application services built for one App.
type Services struct {
	Auth         *application.AuthService
	Users        *application.UserService
	Clients      *application.ClientService
	Locations    *application.LocationService
	Events       *application.EventService
	ElementTypes *application.ElementTypeService
	Elements     *application.ElementService
	Kits         *application.KitService
	Dashboard    *application.DashboardService
}

// App owns the storage, the services and the HTTP handler.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Storage  *sqlite.Storage
	Services Services
	Handler  http.Handler
}

// New opens and migrates the database, seeds the first administrator when
// none exists and builds the router. The caller must Close the App.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.DatabasePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Storage: storage}
	if err := a.init(ctx); err != nil {
		if cerr := storage.Close(); cerr != nil {
			logger.ErrorContext(ctx, "failed to close storage", "error", cerr)
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	if err := a.Storage.Migrate(ctx); err != nil {
		return err
	}

	a.Services = newServices(a.Storage, a.Config, a.Logger)
	if err := a.seedAdmin(ctx); err != nil {
		return err
	}

	handler, err := newHandler(a.Services, a.Storage, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.Handler = handler
	return nil
}

func newServices(storage *sqlite.Storage, cfg config.Config, logger *slog.Logger) Services {
	now := time.Now
	return Services{
		Auth: application.NewAuthServiceWithLogger(
			storage.Users,
			storage.Sessions,
			application.HMACTokenDigest([]byte(cfg.SecretKey)),
			application.VerifyPassword,
			application.GenerateToken,
			now,
			cfg.Session.TTL,
			logger,
		),
		Users:        application.NewUserServiceWithLogger(storage.Users, application.HashPassword, now, logger),
		Clients:      application.NewClientServiceWithLogger(storage.Clients, now, logger),
		Locations:    application.NewLocationServiceWithLogger(storage.Locations, now, logger),
		Events:       application.NewEventServiceWithLogger(storage.Events, storage.Clients, storage.Locations, storage.Categories, storage.Kits, now, logger),
		ElementTypes: application.NewElementTypeServiceWithLogger(storage.ElementTypes, now, logger),
		Elements:     application.NewElementServiceWithLogger(storage.Elements, storage.ElementTypes, storage.Locations, now, logger),
		Kits:         application.NewKitServiceWithLogger(storage.Kits, storage.Elements, now, logger),
		Dashboard:    application.NewDashboardServiceWithLogger(storage.Stats, storage.Events, storage.Elements, now, logger),
	}
}

// AdminCounter reports how many administrators exist.
type AdminCounter interface {
	CountAdmins(ctx context.Context) (int, error)
}

// SeedAdmin creates cfg's administrator on a database without one and
// reports whether it did. Production refuses to seed the default password.
func SeedAdmin(ctx context.Context, cfg config.Config, admins AdminCounter, users *application.UserService, logger *slog.Logger) (bool, error) {
	if cfg.IsProduction() && cfg.AdminPassword == config.DefaultAdminPassword {
		count, err := admins.CountAdmins(ctx)
		if err != nil {
			return false, fmt.Errorf("count administrators: %w", err)
		}
		if count == 0 {
			return false, ErrDefaultAdminPassword
		}
		return false, nil
	}

	created, err := users.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("seed administrator: %w", err)
	}
	if created && cfg.AdminPassword == config.DefaultAdminPassword {
		logger.WarnContext(ctx, "administrator seeded with the default password", "username", cfg.AdminUsername)
	}
	return created, nil
}

func (a *App) seedAdmin(ctx context.Context) error {
	_, err := SeedAdmin(ctx, a.Config, a.Storage.Users, a.Services.Users, a.Logger)
	return err
}

func newHandler(services Services, storage *sqlite.Storage, cfg config.Config, logger *slog.Logger) (http.Handler, error) {
	pages, err := httptransport.NewPages(time.Local)
	if err != nil {
		return nil, err
	}

	cookie := httptransport.CookieOptions{
		Secure:   cfg.Session.CookieSecure,
		HTTPOnly: cfg.Session.CookieHTTPOnly,
		SameSite: httptransport.ParseSameSite(cfg.Session.CookieSameSite),
	}
	reports := report.NewRenderer("Event Manager", time.Local, time.Now)
	logins := ratelimit.NewLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow, time.Now)

	routerCfg := httptransport.RouterConfig{
		Pages:        pages,
		Sessions:     services.Auth,
		Auth:         httptransport.NewAuthHandler(services.Auth, pages, cookie, logins, logger),
		Dashboard:    httptransport.NewDashboardHandler(services.Dashboard, pages, logger),
		Clients:      httptransport.NewClientHandler(services.Clients, pages, logger),
		Events:       httptransport.NewEventHandler(services.Events, httptransport.EventLookups{Clients: services.Clients, Locations: services.Locations, Kits: services.Kits}, reports, pages, logger),
		Elements:     httptransport.NewElementHandler(services.Elements, services.ElementTypes, services.Locations, pages, logger),
		ElementTypes: httptransport.NewElementTypeHandler(services.ElementTypes, pages, logger),
		Kits:         httptransport.NewKitHandler(services.Kits, services.Elements, pages, logger),
		Locations:    httptransport.NewLocationHandler(services.Locations, pages, logger),
		Users:        httptransport.NewUserHandler(services.Users, pages, logger),
		Health:       httptransport.NewHealthHandler(storage, logger),

		CSRF: httptransport.CSRFOptions{
			Key:      httptransport.CSRFKey(cfg.SecretKey),
			Secure:   cfg.Session.CookieSecure,
			SameSite: cookie.SameSite,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger,
	}
	if cfg.MetricsEnabled {
		routerCfg.Metrics = metrics.Handler()
	}
	return httptransport.NewRouter(routerCfg), nil
}

// Server returns an http.Server for the App with the standard timeouts.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	server := a.Server()
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	return a.Serve(ctx, server, listener)
}

// Serve accepts connections on listener until ctx is cancelled. It returns
// only after in-flight requests have drained or shutdownTimeout has passed.
func (a *App) Serve(ctx context.Context, server *http.Server, listener net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	a.Logger.InfoContext(ctx, "event manager listening", "addr", listener.Addr().String(), "environment", a.Config.Environment)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("failed to shutdown server", "error", err)
		return fmt.Errorf("shutdown http: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Storage.Close()
}
