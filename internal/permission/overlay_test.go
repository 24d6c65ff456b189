package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleManager() *User {
	return &User{ID: 21, Role: Role{Name: "Editorial Lead", Permissions: []string{"SYSTEM.ROLE_MANAGEMENT", "role.ALL"}}}
}

func userManager() *User {
	return &User{ID: 22, Role: Role{Name: "Support", Permissions: []string{"SYSTEM.USER_MANAGEMENT"}}}
}

func systemAdmin() *User {
	return &User{ID: 1, Role: Role{Name: "Platform", Permissions: []string{"SYSTEM.ADMIN"}}}
}

func TestCanAssignRoleGuards(t *testing.T) {
	ordinary := Role{ID: 5, Name: "Reviewer", Permissions: []string{"article.READ", "article.UPDATE"}}
	system := Role{ID: 6, Name: "Operators", IsSystem: true, Permissions: []string{"article.ALL"}}
	elevated := Role{ID: 7, Name: "Gatekeepers", Permissions: []string{"SYSTEM.USER_MANAGEMENT"}}

	mgr := roleManager()
	assert.True(t, CanAssignRole(mgr, ordinary).Allowed)

	result := CanAssignRole(mgr, system)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonSystemAdminRequired, result.Reason)

	result = CanAssignRole(mgr, elevated)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonSystemAdminRequired, result.Reason)

	// System admins may assign anything.
	assert.True(t, CanAssignRole(systemAdmin(), system).Allowed)
	assert.True(t, CanAssignRole(systemAdmin(), elevated).Allowed)
}

func TestCanAssignRoleRequiresRoleManagement(t *testing.T) {
	author := &User{ID: 9, Role: Role{Name: "Author", Permissions: []string{"article.ALL"}}}
	result := CanAssignRole(author, Role{Name: "Reviewer"})
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonRoleManagementRequired, result.Reason)

	result = CanAssignRole(nil, Role{Name: "Reviewer"})
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonUnauthorized, result.Reason)
}

func TestCanMutateRoleProtectsReservedRole(t *testing.T) {
	reserved := Role{Name: LegacySuperAdminRole, IsSystem: true}

	// Immutable even for system admins.
	result := CanMutateRole(systemAdmin(), reserved)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonResourceAccessDenied, result.Reason)

	result = CanMutateRole(roleManager(), Role{Name: "Operators", IsSystem: true})
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonSystemAdminRequired, result.Reason)

	assert.True(t, CanMutateRole(roleManager(), Role{Name: "Reviewer"}).Allowed)
	assert.True(t, CanMutateRole(systemAdmin(), Role{Name: "Operators", IsSystem: true}).Allowed)
}

func TestCanManageUserGuards(t *testing.T) {
	mgr := userManager()
	target := &User{ID: 40, Role: Role{Name: "Author", Permissions: []string{"article.ALL"}}}
	admin := systemAdmin()

	assert.True(t, CanManageUser(mgr, target).Allowed)

	// Never a user who holds system-admin access.
	result := CanManageUser(mgr, admin)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonSystemAdminRequired, result.Reason)

	// Never yourself through the administrative surface.
	result = CanManageUser(mgr, mgr)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonOwnerOnly, result.Reason)

	// System admins manage anyone, themselves included.
	assert.True(t, CanManageUser(admin, admin).Allowed)
	assert.True(t, CanManageUser(admin, mgr).Allowed)
}

func TestCanManageUserRequiresCapability(t *testing.T) {
	author := &User{ID: 3, Role: Role{Name: "Author", Permissions: []string{"user.ALL"}}}
	result := CanManageUser(author, &User{ID: 4})
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonUserManagementRequired, result.Reason)
}

func TestCheckDeleteDependentsPrecondition(t *testing.T) {
	u := &User{ID: 8, Role: Role{Name: "Managing Editor", Permissions: []string{"journalissue.ALL"}}}

	// One linked article blocks deletion even with an unconditional grant.
	result := CheckDelete(u, ResourceJournalIssue, nil, 1)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonHasDependents, result.Reason)

	// After unlinking the article the same call succeeds.
	assert.True(t, CheckDelete(u, ResourceJournalIssue, nil, 0).Allowed)
}

func TestCheckDeletePermissionStillRequired(t *testing.T) {
	u := &User{ID: 8, Role: Role{Name: "Reader", Permissions: []string{"journalissue.READ"}}}
	result := CheckDelete(u, ResourceJournalIssue, nil, 0)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonInsufficient, result.Reason)
}

func TestHasSystemPermissions(t *testing.T) {
	assert.True(t, HasSystemPermissions(Role{Permissions: []string{"article.READ", "SYSTEM.ADMIN"}}))
	assert.False(t, HasSystemPermissions(Role{Permissions: []string{"article.READ", "role.ALL"}}))
	assert.False(t, HasSystemPermissions(Role{}))
}
