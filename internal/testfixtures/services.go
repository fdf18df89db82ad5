package testfixtures

import (
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/example/event-manager/internal/logging"
)

// ServiceFactory builds application services over a harness, sharing its
// clock so tests control every timestamp.
type ServiceFactory struct {
	harness *SQLiteHarness
	tokens  *TokenSequence
}

// NewServiceFactory returns a factory bound to h.
func NewServiceFactory(h *SQLiteHarness) *ServiceFactory {
	return &ServiceFactory{harness: h, tokens: NewTokenSequence("session")}
}

// Tokens exposes the session tokens issued by AuthService.
func (f *ServiceFactory) Tokens() *TokenSequence {
	return f.tokens
}

// AuthService builds an AuthService signing digests with secret and
// issuing tokens from Tokens.
func (f *ServiceFactory) AuthService(secret string, ttl time.Duration) *application.AuthService {
	s := f.harness.Storage
	return application.NewAuthServiceWithLogger(
		s.Users,
		s.Sessions,
		application.HMACTokenDigest([]byte(secret)),
		application.VerifyPassword,
		f.tokens.Next,
		f.harness.Clock.Now,
		ttl,
		logging.Discard(),
	)
}

func (f *ServiceFactory) UserService() *application.UserService {
	return application.NewUserServiceWithLogger(f.harness.Storage.Users, application.HashPassword, f.harness.Clock.Now, logging.Discard())
}

func (f *ServiceFactory) ClientService() *application.ClientService {
	return application.NewClientServiceWithLogger(f.harness.Storage.Clients, f.harness.Clock.Now, logging.Discard())
}

func (f *ServiceFactory) EventService() *application.EventService {
	s := f.harness.Storage
	return application.NewEventServiceWithLogger(s.Events, s.Clients, s.Locations, s.Categories, s.Kits, f.harness.Clock.Now, logging.Discard())
}

func (f *ServiceFactory) LocationService() *application.LocationService {
	return application.NewLocationServiceWithLogger(f.harness.Storage.Locations, f.harness.Clock.Now, logging.Discard())
}

func (f *ServiceFactory) ElementTypeService() *application.ElementTypeService {
	return application.NewElementTypeServiceWithLogger(f.harness.Storage.ElementTypes, f.harness.Clock.Now, logging.Discard())
}

func (f *ServiceFactory) ElementService() *application.ElementService {
	s := f.harness.Storage
	return application.NewElementServiceWithLogger(s.Elements, s.ElementTypes, s.Locations, f.harness.Clock.Now, logging.Discard())
}

func (f *ServiceFactory) KitService() *application.KitService {
	s := f.harness.Storage
	return application.NewKitServiceWithLogger(s.Kits, s.Elements, f.harness.Clock.Now, logging.Discard())
}
