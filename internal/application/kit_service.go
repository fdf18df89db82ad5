package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// KitRepository captures the persistence operations needed by the kit service.
type KitRepository interface {
	CreateKit(ctx context.Context, kit Kit) (Kit, error)
	UpdateKit(ctx context.Context, kit Kit) error
	GetKit(ctx context.Context, id int64) (Kit, error)
	ListKits(ctx context.Context) ([]Kit, error)
	DeleteKit(ctx context.Context, id int64) error
}

// KitService orchestrates validation, authorization, and persistence for kits.
type KitService struct {
	kits     KitRepository
	elements ElementRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewKitService constructs a kit service.
func NewKitService(kits KitRepository, elements ElementRepository, now func() time.Time) *KitService {
	return NewKitServiceWithLogger(kits, elements, now, nil)
}

// NewKitServiceWithLogger constructs a kit service with a specified logger.
func NewKitServiceWithLogger(kits KitRepository, elements ElementRepository, now func() time.Time, logger *slog.Logger) *KitService {
	if now == nil {
		now = time.Now
	}
	return &KitService{kits: kits, elements: elements, now: now, logger: defaultLogger(logger)}
}

func (s *KitService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "KitService", operation, attrs...)
}

// CreateKit validates input and persists a new kit with its elements.
func (s *KitService) CreateKit(ctx context.Context, params CreateKitParams) (kit Kit, err error) {
	if s == nil || s.kits == nil {
		err = fmt.Errorf("kit repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateKit", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create kit", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("kit_id", kit.ID, "elements", len(kit.ElementIDs)).InfoContext(ctx, "kit created")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageInventory); err != nil {
		return
	}

	input := normalizeKitInput(params.Input)
	if err = s.validateKitInput(ctx, input); err != nil {
		return
	}

	now := s.now().UTC()
	kit, err = s.kits.CreateKit(ctx, Kit{
		Name:        input.Name,
		Description: input.Description,
		ElementIDs:  input.ElementIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		err = duplicateAsField(mapRepoError(err), "name", "a kit with this name already exists")
	}
	return
}

// UpdateKit validates input and replaces a kit's fields and elements.
func (s *KitService) UpdateKit(ctx context.Context, params UpdateKitParams) (kit Kit, err error) {
	if s == nil || s.kits == nil {
		err = fmt.Errorf("kit repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateKit",
		"principal_id", params.Principal.UserID,
		"kit_id", params.KitID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update kit", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("elements", len(kit.ElementIDs)).InfoContext(ctx, "kit updated")
	}()

	if err = Authorize(ctx, logger, params.Principal, CapManageInventory); err != nil {
		return
	}

	var existing Kit
	if existing, err = s.kits.GetKit(ctx, params.KitID); err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeKitInput(params.Input)
	if err = s.validateKitInput(ctx, input); err != nil {
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Description = input.Description
	updated.ElementIDs = input.ElementIDs
	updated.Elements = nil
	updated.UpdatedAt = s.now().UTC()

	if err = s.kits.UpdateKit(ctx, updated); err != nil {
		err = duplicateAsField(mapRepoError(err), "name", "a kit with this name already exists")
		return
	}
	kit = updated
	return
}

// GetKit returns a kit with its elements loaded.
func (s *KitService) GetKit(ctx context.Context, principal Principal, id int64) (Kit, error) {
	if s == nil || s.kits == nil {
		return Kit{}, fmt.Errorf("kit repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "GetKit"), principal, CapViewInventory); err != nil {
		return Kit{}, err
	}
	kit, err := s.kits.GetKit(ctx, id)
	return kit, mapRepoError(err)
}

// ListKits returns every kit with its member element IDs.
func (s *KitService) ListKits(ctx context.Context, principal Principal) ([]Kit, error) {
	if s == nil || s.kits == nil {
		return nil, fmt.Errorf("kit repository not configured")
	}
	if err := Authorize(ctx, s.loggerWith(ctx, "ListKits"), principal, CapViewInventory); err != nil {
		return nil, err
	}
	kits, err := s.kits.ListKits(ctx)
	return kits, mapRepoError(err)
}

// DeleteKit removes a kit along with its memberships and event assignments.
func (s *KitService) DeleteKit(ctx context.Context, principal Principal, id int64) error {
	if s == nil || s.kits == nil {
		return fmt.Errorf("kit repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteKit",
		"principal_id", principal.UserID,
		"kit_id", id,
	)

	if err := Authorize(ctx, logger, principal, CapManageInventory); err != nil {
		return err
	}

	if err := s.kits.DeleteKit(ctx, id); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete kit", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "kit deleted")
	return nil
}

func normalizeKitInput(input KitInput) KitInput {
	return KitInput{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		ElementIDs:  dedupeIDs(input.ElementIDs),
	}
}

func (s *KitService) validateKitInput(ctx context.Context, input KitInput) error {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	} else if len(input.Name) > 200 {
		vErr.add("name", "name must be 200 characters or fewer")
	}

	if s.elements != nil {
		for _, id := range input.ElementIDs {
			if err := referenceExists(s.elements.GetElement(ctx, id)); err != nil {
				if !errors.Is(err, ErrNotFound) {
					return err
				}
				vErr.add("element_ids", fmt.Sprintf("element %d does not exist", id))
				break
			}
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
