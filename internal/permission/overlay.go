package permission

// Role and user management guards. These sit on top of Check for the
// administrative surfaces: holding role/user management capability is
// not enough to touch system-level roles, admins, or yourself.

// HasSystemPermissions reports whether the role's permission set
// contains any SYSTEM.* entry.
func HasSystemPermissions(r Role) bool {
	for _, perm := range r.Permissions {
		if req, ok := Parse(perm); ok && req.IsSystem() {
			return true
		}
	}
	return false
}

// RoleAssignable reports whether a non-system-admin may hand out the
// role at all: anything flagged system, carrying SYSTEM.* permissions,
// or named after the reserved super-admin role is off limits.
func RoleAssignable(role Role) bool {
	return !role.IsSystem && role.Name != LegacySuperAdminRole && !HasSystemPermissions(role)
}

// CanAssignRole decides whether the actor may assign (or grant through
// create/edit) the given role. Non-system-admins need role management
// and may handle ordinary roles only.
func CanAssignRole(actor *User, role Role) Result {
	if actor == nil {
		return Deny(ReasonUnauthorized, System(CapRoleManagement))
	}
	if HasSystemAdminAccess(actor) {
		return Allow()
	}
	if !holdsSystemCapability(actor, CapRoleManagement) {
		return Deny(ReasonRoleManagementRequired, System(CapRoleManagement))
	}
	if !RoleAssignable(role) {
		return Deny(ReasonSystemAdminRequired, System(CapAdmin))
	}
	return Allow()
}

// CanMutateRole decides whether the actor may rename or delete the
// given role. The reserved super-admin role's identity is immutable for
// everyone; other system roles need SYSTEM.ADMIN.
func CanMutateRole(actor *User, role Role) Result {
	if actor == nil {
		return Deny(ReasonUnauthorized, System(CapRoleManagement))
	}
	if role.Name == LegacySuperAdminRole {
		return Deny(ReasonResourceAccessDenied, System(CapAdmin))
	}
	if HasSystemAdminAccess(actor) {
		return Allow()
	}
	if !holdsSystemCapability(actor, CapRoleManagement) {
		return Deny(ReasonRoleManagementRequired, System(CapRoleManagement))
	}
	if role.IsSystem || HasSystemPermissions(role) {
		return Deny(ReasonSystemAdminRequired, System(CapAdmin))
	}
	return Allow()
}

// CanManageUser decides whether the actor may administer the target
// user. Non-system-admins need SYSTEM.USER_MANAGEMENT, may never manage
// a user who holds system-admin access, and may never manage themselves
// through the administrative surface; self goes through the self-access
// rule instead.
func CanManageUser(actor, target *User) Result {
	if actor == nil {
		return Deny(ReasonUnauthorized, System(CapUserManagement))
	}
	if HasSystemAdminAccess(actor) {
		return Allow()
	}
	if !holdsSystemCapability(actor, CapUserManagement) {
		return Deny(ReasonUserManagementRequired, System(CapUserManagement))
	}
	if target != nil && target.ID == actor.ID {
		return Deny(ReasonOwnerOnly, System(CapUserManagement))
	}
	if HasSystemAdminAccess(target) {
		return Deny(ReasonSystemAdminRequired, System(CapAdmin))
	}
	return Allow()
}

// CheckDelete layers the structural dependents pre-condition over a
// plain permission check: resources such as journal issues and roles
// refuse deletion while children still reference them. The caller is
// responsible for reading dependents and deleting inside one consistent
// transaction; this function does not re-verify state.
func CheckDelete(u *User, resource string, ctx *Context, dependents int) Result {
	perm, err := Format(resource, OpDelete)
	if err != nil {
		return Deny(ReasonMalformedPermission, resource)
	}
	if result := Check(u, perm, ctx); !result.Allowed {
		return result
	}
	if dependents > 0 {
		return Deny(ReasonHasDependents, perm)
	}
	return Allow()
}
