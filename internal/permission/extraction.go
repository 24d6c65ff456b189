package permission

// LegacySuperAdminRole is the reserved role name that predates the
// SYSTEM.ADMIN permission string. Kept as a migration shim: checking it
// only inside HasSystemAdminAccess means the shim can be deleted in one
// place once all roles carry the permission-string form.
const LegacySuperAdminRole = "SUPER_ADMIN"

// Role is a named bundle of permission strings.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsSystem    bool
	Permissions []string
}

// User is the hydrated principal the engine evaluates. Callers must
// pre-join the role and its permission list; no lazy loading happens
// here. DirectPermissions are per-user grants beyond the role.
type User struct {
	ID                int64
	Email             string
	Name              string
	Role              Role
	DirectPermissions []string
}

// EffectivePermissions returns the deduplicated union of the user's
// role permissions and direct permissions. Neither source slice is
// mutated. A user with a zero-value role simply contributes no role
// permissions; hydrating the role remains the caller's contract.
func EffectivePermissions(u *User) []string {
	if u == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(u.Role.Permissions)+len(u.DirectPermissions))
	out := make([]string, 0, len(u.Role.Permissions)+len(u.DirectPermissions))
	for _, perm := range u.Role.Permissions {
		if _, ok := seen[perm]; ok {
			continue
		}
		seen[perm] = struct{}{}
		out = append(out, perm)
	}
	for _, perm := range u.DirectPermissions {
		if _, ok := seen[perm]; ok {
			continue
		}
		seen[perm] = struct{}{}
		out = append(out, perm)
	}
	return out
}

// HasSystemAdminAccess reports whether the user holds SYSTEM.ADMIN in
// either permission set, or carries the legacy super-admin role name.
func HasSystemAdminAccess(u *User) bool {
	if u == nil {
		return false
	}
	if u.Role.Name == LegacySuperAdminRole {
		return true
	}
	admin := System(CapAdmin)
	for _, perm := range u.Role.Permissions {
		if perm == admin {
			return true
		}
	}
	for _, perm := range u.DirectPermissions {
		if perm == admin {
			return true
		}
	}
	return false
}

// holdsSystemCapability reports whether any SYSTEM.<capability> string
// is present in the user's effective set.
func holdsSystemCapability(u *User, capability string) bool {
	want := System(capability)
	for _, perm := range EffectivePermissions(u) {
		if perm == want {
			return true
		}
	}
	return false
}
