package application

import (
	"context"
	"fmt"
	"log/slog"
)

// Capability names an action gated by role.
type Capability string

const (
	CapViewDashboard   Capability = "view_dashboard"
	CapViewClients     Capability = "view_clients"
	CapViewEvents      Capability = "view_events"
	CapViewInventory   Capability = "view_inventory"
	CapViewLocations   Capability = "view_locations"
	CapExportReports   Capability = "export_reports"
	CapManageClients   Capability = "manage_clients"
	CapManageEvents    Capability = "manage_events"
	CapManageInventory Capability = "manage_inventory"
	CapManageCatalog   Capability = "manage_catalog"
	CapManageUsers     Capability = "manage_users"
)

var staffCapabilities = []Capability{
	CapViewDashboard,
	CapViewClients,
	CapViewEvents,
	CapViewInventory,
	CapViewLocations,
	CapExportReports,
	CapManageClients,
	CapManageEvents,
	CapManageInventory,
}

// Policy maps each role to the capabilities it holds. The HTTP gate and the
// services both consult it.
var Policy = map[Role][]Capability{
	RoleAdmin: append(append([]Capability{}, staffCapabilities...), CapManageCatalog, CapManageUsers),
	RoleStaff: staffCapabilities,
}

// HasCapability reports whether role holds capability.
func HasCapability(role Role, capability Capability) bool {
	for _, c := range Policy[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Can reports whether the principal holds capability.
func (p Principal) Can(capability Capability) bool {
	return p.Authenticated() && HasCapability(p.Role, capability)
}

// Authorize returns ErrUnauthorized for anonymous principals and ErrForbidden
// when the principal's role lacks capability. Denials are logged at warn.
func Authorize(ctx context.Context, logger *slog.Logger, principal Principal, capability Capability) error {
	if !principal.Authenticated() {
		return ErrUnauthorized
	}
	if HasCapability(principal.Role, capability) {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "permission denied",
		slog.Int64("principal_id", principal.UserID),
		slog.String("role", string(principal.Role)),
		slog.String("capability", string(capability)),
	)
	return fmt.Errorf("%w: %s role cannot %s", ErrForbidden, principal.Role, capability)
}
