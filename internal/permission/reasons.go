package permission

// Denial reasons form a closed, user-facing taxonomy. The text is
// suitable for direct display or logging; collaborators must not leak
// anything beyond these strings to end users.
const (
	// ReasonUnauthorized means there is no authenticated principal.
	ReasonUnauthorized = "Unauthorized"
	// ReasonInsufficient means the principal is authenticated but no
	// grant covers the request.
	ReasonInsufficient = "Insufficient Permissions"
	// ReasonOwnerOnly is an overlay denial for self-gated operations
	// that must go through the owner's own surface.
	ReasonOwnerOnly = "Owner-Only"
	// ReasonResourceAccessDenied is an overlay denial for cross-owner
	// mutation attempts.
	ReasonResourceAccessDenied = "Resource Access Denied"
	// ReasonSystemAdminRequired ties the denial to the SYSTEM.ADMIN capability.
	ReasonSystemAdminRequired = "System Admin Required"
	// ReasonRoleManagementRequired ties the denial to SYSTEM.ROLE_MANAGEMENT.
	ReasonRoleManagementRequired = "Role Management Required"
	// ReasonUserManagementRequired ties the denial to SYSTEM.USER_MANAGEMENT.
	ReasonUserManagementRequired = "User Management Required"
	// ReasonMalformedPermission flags a programmer or configuration
	// error in the required-permission argument itself. It must stay
	// distinguishable from ReasonInsufficient in logs.
	ReasonMalformedPermission = "Malformed Permission String"
	// ReasonHasDependents is the structural denial for deleting a
	// resource that still has dependent children.
	ReasonHasDependents = "Has Dependents"
)
