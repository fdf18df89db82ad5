package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LocationRepository captures the persistence operations needed by the service.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) (Location, error)
	UpdateLocation(ctx context.Context, location Location) error
	GetLocation(ctx context.Context, id int64) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

// LocationService orchestrates validation, authorization, and persistence for locations.
type LocationService struct {
	locations LocationRepository
	now       func() time.Time
	logger    *slog.Logger
}

// NewLocationService constructs a location service with the provided dependencies.
func NewLocationService(locations LocationRepository, now func() time.Time) *LocationService {
	return NewLocationServiceWithLogger(locations, now, nil)
}

// NewLocationServiceWithLogger constructs a location service with a specified logger.
func NewLocationServiceWithLogger(locations LocationRepository, now func() time.Time, logger *slog.Logger) *LocationService {
	if now == nil {
		now = time.Now
	}
	return &LocationService{locations: locations, now: now, logger: defaultLogger(logger)}
}

func (s *LocationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LocationService", operation, attrs...)
}

// CreateLocation validates input and persists a new location for administrators.
func (s *LocationService) CreateLocation(ctx context.Context, params CreateLocationParams) (location Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if s.locations == nil {
		err = fmt.Errorf("location repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateLocation", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create location", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("location_id", location.ID).InfoContext(ctx, "location created")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageCatalog); err != nil {
		return
	}

	input := normalizeLocationInput(params.Input)
	if vErr := validateLocationInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	location, err = s.locations.CreateLocation(ctx, Location{
		Name:      input.Name,
		Address:   input.Address,
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = duplicateAsField(mapRepoError(err), "name", "a location with this name already exists")
	}
	return
}

// UpdateLocation validates input and updates an existing location for administrators.
func (s *LocationService) UpdateLocation(ctx context.Context, params UpdateLocationParams) (location Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if s.locations == nil {
		err = fmt.Errorf("location repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateLocation",
		"principal_id", params.Principal.UserID,
		"location_id", params.LocationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update location", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "location updated")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageCatalog); err != nil {
		return
	}

	var existing Location
	if existing, err = s.locations.GetLocation(ctx, params.LocationID); err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeLocationInput(params.Input)
	if vErr := validateLocationInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Address = input.Address
	updated.Notes = input.Notes
	updated.UpdatedAt = s.now().UTC()

	if err = s.locations.UpdateLocation(ctx, updated); err != nil {
		err = duplicateAsField(mapRepoError(err), "name", "a location with this name already exists")
		return
	}
	location = updated
	return
}

// GetLocation returns a single location.
func (s *LocationService) GetLocation(ctx context.Context, principal Principal, locationID int64) (Location, error) {
	if s == nil || s.locations == nil {
		return Location{}, fmt.Errorf("location repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "GetLocation"), principal, CapViewLocations); err != nil {
		return Location{}, err
	}
	location, err := s.locations.GetLocation(ctx, locationID)
	return location, mapRepoError(err)
}

// ListLocations returns the catalog of locations for any authenticated user.
func (s *LocationService) ListLocations(ctx context.Context, principal Principal) ([]Location, error) {
	if s == nil || s.locations == nil {
		return nil, fmt.Errorf("location repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "ListLocations"), principal, CapViewLocations); err != nil {
		return nil, err
	}
	locations, err := s.locations.ListLocations(ctx)
	return locations, mapRepoError(err)
}

// DeleteLocation removes a location; events and elements referencing it keep
// existing without a location.
func (s *LocationService) DeleteLocation(ctx context.Context, principal Principal, locationID int64) error {
	if s == nil {
		return fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return fmt.Errorf("location repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteLocation",
		"principal_id", principal.UserID,
		"location_id", locationID,
	)

	if err := Authorize(ctx, logger, principal, CapManageCatalog); err != nil {
		return err
	}

	if err := s.locations.DeleteLocation(ctx, locationID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete location", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "location deleted")
	return nil
}

func normalizeLocationInput(input LocationInput) LocationInput {
	return LocationInput{
		Name:    strings.TrimSpace(input.Name),
		Address: strings.TrimSpace(input.Address),
		Notes:   strings.TrimSpace(input.Notes),
	}
}

func validateLocationInput(input LocationInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > 200 {
		vErr.add("name", "name must be 200 characters or fewer")
	}
	if len(input.Address) > 500 {
		vErr.add("address", "address must be 500 characters or fewer")
	}
	return vErr
}
