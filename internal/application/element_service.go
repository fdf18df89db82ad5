package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ElementRepository captures the persistence operations needed by the element service.
type ElementRepository interface {
	CreateElement(ctx context.Context, element Element) (Element, error)
	UpdateElement(ctx context.Context, element Element) error
	GetElement(ctx context.Context, id int64) (Element, error)
	ListElements(ctx context.Context, filter ElementFilter) ([]Element, error)
	DeleteElement(ctx context.Context, id int64) error
}

// ElementService orchestrates validation, authorization, and persistence for elements.
type ElementService struct {
	elements  ElementRepository
	types     ElementTypeRepository
	locations LocationRepository
	now       func() time.Time
	logger    *slog.Logger
}

// NewElementService constructs an element service.
func NewElementService(elements ElementRepository, types ElementTypeRepository, locations LocationRepository, now func() time.Time) *ElementService {
	return NewElementServiceWithLogger(elements, types, locations, now, nil)
}

// NewElementServiceWithLogger constructs an element service with a specified logger.
func NewElementServiceWithLogger(elements ElementRepository, types ElementTypeRepository, locations LocationRepository, now func() time.Time, logger *slog.Logger) *ElementService {
	if now == nil {
		now = time.Now
	}
	return &ElementService{
		elements:  elements,
		types:     types,
		locations: locations,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *ElementService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ElementService", operation, attrs...)
}

// CreateElement validates input and persists a new element.
func (s *ElementService) CreateElement(ctx context.Context, params CreateElementParams) (element Element, err error) {
	if s == nil || s.elements == nil {
		err = fmt.Errorf("element repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateElement", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create element", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("element_id", element.ID, "type_id", element.TypeID).InfoContext(ctx, "element created")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageInventory); err != nil {
		return
	}

	var fields Element
	if fields, err = s.prepare(ctx, params.Input); err != nil {
		return
	}

	now := s.now().UTC()
	fields.CreatedAt = now
	fields.UpdatedAt = now

	element, err = s.elements.CreateElement(ctx, fields)
	if err != nil {
		err = duplicateAsField(mapRepoError(err), "serial_number", "serial number is already registered")
	}
	return
}

// UpdateElement validates input and updates an existing element.
func (s *ElementService) UpdateElement(ctx context.Context, params UpdateElementParams) (element Element, err error) {
	if s == nil || s.elements == nil {
		err = fmt.Errorf("element repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateElement",
		"principal_id", params.Principal.UserID,
		"element_id", params.ElementID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update element", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", element.Status).InfoContext(ctx, "element updated")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageInventory); err != nil {
		return
	}

	var existing Element
	if existing, err = s.elements.GetElement(ctx, params.ElementID); err != nil {
		err = mapRepoError(err)
		return
	}

	var fields Element
	if fields, err = s.prepare(ctx, params.Input); err != nil {
		return
	}

	fields.ID = existing.ID
	fields.CreatedAt = existing.CreatedAt
	fields.UpdatedAt = s.now().UTC()

	if err = s.elements.UpdateElement(ctx, fields); err != nil {
		err = duplicateAsField(mapRepoError(err), "serial_number", "serial number is already registered")
		return
	}
	element = fields
	return
}

// GetElement returns a single element.
func (s *ElementService) GetElement(ctx context.Context, principal Principal, id int64) (Element, error) {
	if s == nil || s.elements == nil {
		return Element{}, fmt.Errorf("element repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "GetElement"), principal, CapViewInventory); err != nil {
		return Element{}, err
	}
	element, err := s.elements.GetElement(ctx, id)
	return element, mapRepoError(err)
}

// ListElements returns elements matching filter.
func (s *ElementService) ListElements(ctx context.Context, principal Principal, filter ElementFilter) ([]Element, error) {
	if s == nil || s.elements == nil {
		return nil, fmt.Errorf("element repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "ListElements"), principal, CapViewInventory); err != nil {
		return nil, err
	}
	elements, err := s.elements.ListElements(ctx, filter)
	return elements, mapRepoError(err)
}

// DeleteElement removes an element and its kit memberships.
func (s *ElementService) DeleteElement(ctx context.Context, principal Principal, id int64) error {
	if s == nil || s.elements == nil {
		return fmt.Errorf("element repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteElement",
		"principal_id", principal.UserID,
		"element_id", id,
	)

	if err := Authorize(ctx, logger, principal, CapManageInventory); err != nil {
		return err
	}

	if err := s.elements.DeleteElement(ctx, id); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete element", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "element deleted")
	return nil
}

// prepare normalizes and validates input, returning the element fields to write.
func (s *ElementService) prepare(ctx context.Context, input ElementInput) (Element, error) {
	vErr := &ValidationError{}

	element := Element{
		Name:         strings.TrimSpace(input.Name),
		TypeID:       input.TypeID,
		SerialNumber: strings.TrimSpace(input.SerialNumber),
		Status:       strings.TrimSpace(input.Status),
		LocationID:   positiveID(input.LocationID),
		Notes:        strings.TrimSpace(input.Notes),
	}
	if element.Status == "" {
		element.Status = ElementStatusAvailable
	}

	if element.Name == "" {
		vErr.add("name", "name is required")
	} else if len(element.Name) > 200 {
		vErr.add("name", "name must be 200 characters or fewer")
	}

	if !ValidElementStatus(element.Status) {
		vErr.add("status", "status is not recognised")
	}

	value, vMsg := parseReplacementValue(input.ReplacementValue)
	if vMsg != "" {
		vErr.add("replacement_value", vMsg)
	}
	element.ReplacementValue = value

	if element.TypeID <= 0 {
		vErr.add("type_id", "element type is required")
	} else if s.types != nil {
		elementType, err := s.types.GetElementType(ctx, element.TypeID)
		if err != nil {
			if err = mapRepoError(err); !errors.Is(err, ErrNotFound) {
				return Element{}, err
			}
			vErr.add("type_id", "element type does not exist")
		}
		element.TypeName = elementType.Name
	}

	if element.LocationID != nil && s.locations != nil {
		location, err := s.locations.GetLocation(ctx, *element.LocationID)
		if err != nil {
			if err = mapRepoError(err); !errors.Is(err, ErrNotFound) {
				return Element{}, err
			}
			vErr.add("location_id", "location does not exist")
		}
		element.LocationName = location.Name
	}

	if vErr.HasErrors() {
		return Element{}, vErr
	}
	return element, nil
}

// parseReplacementValue accepts an empty string as zero. Values are rounded to cents.
func parseReplacementValue(raw string) (decimal.Decimal, string) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return decimal.Zero, ""
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "replacement value must be a number"
	}
	if value.IsNegative() {
		return decimal.Zero, "replacement value cannot be negative"
	}
	return value.Round(2), ""
}
