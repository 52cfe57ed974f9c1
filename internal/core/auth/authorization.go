package auth

import (
	"github.com/artpar/sfadvisor/internal/core/domain"
)

// =============================================================================
// Catalog Authorization
// =============================================================================

// CanEditCatalog checks if the request may change catalog data.
// Only admins can edit.
func CanEditCatalog(ctx Context) bool {
	return ctx.IsAdmin()
}

// =============================================================================
// Session-scoped Authorization
// =============================================================================

// CanViewDeployment checks if a wizard session may see a deployment.
// Admins can see every deployment; sessions only their own.
func CanViewDeployment(ctx Context, sessionID string, d domain.Deployment) bool {
	return ctx.IsAdmin() || (sessionID != "" && sessionID == d.SessionID)
}

// CanManageDeployment checks if a wizard session may retry a deployment.
// Only the session that created it can.
func CanManageDeployment(sessionID string, d domain.Deployment) bool {
	return sessionID != "" && sessionID == d.SessionID
}
