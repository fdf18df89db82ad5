package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// ClientRepository captures the persistence operations needed by the client service.
type ClientRepository interface {
	CreateClient(ctx context.Context, client Client) (Client, error)
	UpdateClient(ctx context.Context, client Client) error
	GetClient(ctx context.Context, id int64) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	DeleteClient(ctx context.Context, id int64) error
}

// DefaultClientColor is the calendar color assigned when none is chosen.
const DefaultClientColor = "#3788d8"

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ClientService orchestrates validation, authorization, and persistence for clients.
// Deleting a client keeps its events and clears their client reference.
type ClientService struct {
	clients ClientRepository
	now     func() time.Time
	logger  *slog.Logger
}

// NewClientService constructs a client service with the provided dependencies.
func NewClientService(clients ClientRepository, now func() time.Time) *ClientService {
	return NewClientServiceWithLogger(clients, now, nil)
}

// NewClientServiceWithLogger constructs a client service with a specified logger.
func NewClientServiceWithLogger(clients ClientRepository, now func() time.Time, logger *slog.Logger) *ClientService {
	if now == nil {
		now = time.Now
	}
	return &ClientService{clients: clients, now: now, logger: defaultLogger(logger)}
}

func (s *ClientService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ClientService", operation, attrs...)
}

// CreateClient validates input and persists a new client.
func (s *ClientService) CreateClient(ctx context.Context, params CreateClientParams) (client Client, err error) {
	if s == nil {
		err = fmt.Errorf("ClientService is nil")
		return
	}
	if s.clients == nil {
		err = fmt.Errorf("client repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateClient", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("client_id", client.ID).InfoContext(ctx, "client created")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageClients); err != nil {
		return
	}

	input := normalizeClientInput(params.Input)
	if vErr := validateClientInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	client, err = s.clients.CreateClient(ctx, Client{
		Name:        input.Name,
		Color:       input.Color,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Notes:       input.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	err = mapRepoError(err)
	return
}

// UpdateClient validates input and updates an existing client.
func (s *ClientService) UpdateClient(ctx context.Context, params UpdateClientParams) (client Client, err error) {
	if s == nil {
		err = fmt.Errorf("ClientService is nil")
		return
	}
	if s.clients == nil {
		err = fmt.Errorf("client repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateClient",
		"principal_id", params.Principal.UserID,
		"client_id", params.ClientID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client updated")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageClients); err != nil {
		return
	}

	var existing Client
	if existing, err = s.clients.GetClient(ctx, params.ClientID); err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeClientInput(params.Input)
	if vErr := validateClientInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Color = input.Color
	updated.ContactName = input.ContactName
	updated.Email = input.Email
	updated.Phone = input.Phone
	updated.Notes = input.Notes
	updated.UpdatedAt = s.now().UTC()

	if err = s.clients.UpdateClient(ctx, updated); err != nil {
		err = mapRepoError(err)
		return
	}
	client = updated
	return
}

// GetClient returns a single client.
func (s *ClientService) GetClient(ctx context.Context, principal Principal, clientID int64) (Client, error) {
	if s == nil || s.clients == nil {
		return Client{}, fmt.Errorf("client repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "GetClient"), principal, CapViewClients); err != nil {
		return Client{}, err
	}
	client, err := s.clients.GetClient(ctx, clientID)
	return client, mapRepoError(err)
}

// ListClients returns every client ordered by name.
func (s *ClientService) ListClients(ctx context.Context, principal Principal) ([]Client, error) {
	if s == nil || s.clients == nil {
		return nil, fmt.Errorf("client repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "ListClients"), principal, CapViewClients); err != nil {
		return nil, err
	}
	clients, err := s.clients.ListClients(ctx)
	return clients, mapRepoError(err)
}

// DeleteClient removes a client. Events booked for it remain with no client.
func (s *ClientService) DeleteClient(ctx context.Context, principal Principal, clientID int64) error {
	if s == nil {
		return fmt.Errorf("ClientService is nil")
	}
	if s.clients == nil {
		return fmt.Errorf("client repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteClient",
		"principal_id", principal.UserID,
		"client_id", clientID,
	)

	if err := Authorize(ctx, logger, principal, CapManageClients); err != nil {
		return err
	}

	if err := s.clients.DeleteClient(ctx, clientID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete client", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "client deleted")
	return nil
}

func normalizeClientInput(input ClientInput) ClientInput {
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = DefaultClientColor
	}
	return ClientInput{
		Name:        strings.TrimSpace(input.Name),
		Color:       strings.ToLower(color),
		ContactName: strings.TrimSpace(input.ContactName),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:       strings.TrimSpace(input.Phone),
		Notes:       strings.TrimSpace(input.Notes),
	}
}

func validateClientInput(input ClientInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > 200 {
		vErr.add("name", "name must be 200 characters or fewer")
	}

	if !hexColorPattern.MatchString(input.Color) {
		vErr.add("color", "color must look like #RRGGBB")
	}

	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			vErr.add("email", "email is invalid")
		}
	}

	return vErr
}
