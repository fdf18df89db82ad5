package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ElementTypeRepository captures the persistence operations needed by the service.
type ElementTypeRepository interface {
	CreateElementType(ctx context.Context, elementType ElementType) (ElementType, error)
	UpdateElementType(ctx context.Context, elementType ElementType) error
	GetElementType(ctx context.Context, id int64) (ElementType, error)
	ListElementTypes(ctx context.Context) ([]ElementType, error)
	DeleteElementType(ctx context.Context, id int64) error
}

// ElementTypeService manages the element type catalog. A type that still has
// elements cannot be deleted.
type ElementTypeService struct {
	types  ElementTypeRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewElementTypeService constructs an element type service.
func NewElementTypeService(types ElementTypeRepository, now func() time.Time) *ElementTypeService {
	return NewElementTypeServiceWithLogger(types, now, nil)
}

// NewElementTypeServiceWithLogger constructs an element type service with a specified logger.
func NewElementTypeServiceWithLogger(types ElementTypeRepository, now func() time.Time, logger *slog.Logger) *ElementTypeService {
	if now == nil {
		now = time.Now
	}
	return &ElementTypeService{types: types, now: now, logger: defaultLogger(logger)}
}

func (s *ElementTypeService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ElementTypeService", operation, attrs...)
}

// CreateElementType validates input and persists a new element type.
func (s *ElementTypeService) CreateElementType(ctx context.Context, params CreateElementTypeParams) (elementType ElementType, err error) {
	if s == nil || s.types == nil {
		err = fmt.Errorf("element type repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateElementType", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create element type", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("element_type_id", elementType.ID).InfoContext(ctx, "element type created")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageCatalog); err != nil {
		return
	}

	input := normalizeElementTypeInput(params.Input)
	if vErr := validateElementTypeInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	elementType, err = s.types.CreateElementType(ctx, ElementType{
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		err = duplicateAsField(mapRepoError(err), "name", "an element type with this name already exists")
	}
	return
}

// UpdateElementType validates input and updates an existing element type.
func (s *ElementTypeService) UpdateElementType(ctx context.Context, params UpdateElementTypeParams) (elementType ElementType, err error) {
	if s == nil || s.types == nil {
		err = fmt.Errorf("element type repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateElementType",
		"principal_id", params.Principal.UserID,
		"element_type_id", params.ElementTypeID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update element type", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "element type updated")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageCatalog); err != nil {
		return
	}

	var existing ElementType
	if existing, err = s.types.GetElementType(ctx, params.ElementTypeID); err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeElementTypeInput(params.Input)
	if vErr := validateElementTypeInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Description = input.Description
	updated.UpdatedAt = s.now().UTC()

	if err = s.types.UpdateElementType(ctx, updated); err != nil {
		err = duplicateAsField(mapRepoError(err), "name", "an element type with this name already exists")
		return
	}
	elementType = updated
	return
}

// GetElementType returns a single element type.
func (s *ElementTypeService) GetElementType(ctx context.Context, principal Principal, id int64) (ElementType, error) {
	if s == nil || s.types == nil {
		return ElementType{}, fmt.Errorf("element type repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "GetElementType"), principal, CapViewInventory); err != nil {
		return ElementType{}, err
	}
	elementType, err := s.types.GetElementType(ctx, id)
	return elementType, mapRepoError(err)
}

// ListElementTypes returns every element type with its element count.
func (s *ElementTypeService) ListElementTypes(ctx context.Context, principal Principal) ([]ElementType, error) {
	if s == nil || s.types == nil {
		return nil, fmt.Errorf("element type repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "ListElementTypes"), principal, CapViewInventory); err != nil {
		return nil, err
	}
	types, err := s.types.ListElementTypes(ctx)
	return types, mapRepoError(err)
}

// DeleteElementType removes an element type. It returns ErrInUse while
// elements of the type exist.
func (s *ElementTypeService) DeleteElementType(ctx context.Context, principal Principal, id int64) error {
	if s == nil || s.types == nil {
		return fmt.Errorf("element type repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteElementType",
		"principal_id", principal.UserID,
		"element_type_id", id,
	)

	if err := Authorize(ctx, logger, principal, CapManageCatalog); err != nil {
		return err
	}

	if err := s.types.DeleteElementType(ctx, id); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete element type", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "element type deleted")
	return nil
}

func normalizeElementTypeInput(input ElementTypeInput) ElementTypeInput {
	return ElementTypeInput{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	}
}

func validateElementTypeInput(input ElementTypeInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > 100 {
		vErr.add("name", "name must be 100 characters or fewer")
	}
	return vErr
}
