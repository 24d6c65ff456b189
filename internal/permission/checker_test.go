package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userWith(role Role, direct ...string) *User {
	return &User{ID: 7, Email: "writer@chronicle.test", Name: "Writer", Role: role, DirectPermissions: direct}
}

func TestCheckNilUserIsUnauthorized(t *testing.T) {
	result := Check(nil, "article.READ", nil)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonUnauthorized, result.Reason)
}

func TestCheckMalformedPermissionDoesNotPanic(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.READ"}})
	for _, input := range []string{"not-a-permission", "", "article.WRITE"} {
		result := Check(u, input, nil)
		require.False(t, result.Allowed, "input %q", input)
		assert.Equal(t, ReasonMalformedPermission, result.Reason)
		assert.Equal(t, input, result.RequiredPermission)
	}
}

func TestCheckExactMatch(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.CREATE", "article.READ"}})
	assert.True(t, Check(u, "article.CREATE", nil).Allowed)
	assert.True(t, Check(u, "article.READ", nil).Allowed)

	result := Check(u, "article.DELETE", nil)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonInsufficient, result.Reason)
	assert.Equal(t, "article.DELETE", result.RequiredPermission)
}

func TestCheckAllSupremacy(t *testing.T) {
	u := userWith(Role{Name: "Editor", Permissions: []string{"article.ALL"}})
	for _, op := range []Operation{OpCreate, OpRead, OpUpdate, OpDelete} {
		perm, err := Format(ResourceArticle, op)
		require.NoError(t, err)
		assert.True(t, Check(u, perm, nil).Allowed, "article.ALL must cover %s", op)
	}
}

func TestCheckHierarchyMatch(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.UPDATE"}})
	// UPDATE implies READ on the same resource.
	assert.True(t, Check(u, "article.READ", nil).Allowed)
	assert.False(t, Check(u, "article.DELETE", nil).Allowed)
	// Never across resources.
	assert.False(t, Check(u, "media.READ", nil).Allowed)
}

func TestCheckSystemAdminBypassesEverything(t *testing.T) {
	admin := userWith(Role{Name: "Platform", Permissions: []string{"SYSTEM.ADMIN"}})
	for _, perm := range []string{"article.DELETE", "journalissue.CREATE", "SYSTEM.ROLE_MANAGEMENT", "media.UPDATE"} {
		assert.True(t, Check(admin, perm, nil).Allowed, "system admin must pass %s", perm)
	}
	// The bypass also skips the ownership overlay.
	result := Check(admin, "article.UPDATE", &Context{UserID: admin.ID, ResourceID: 9, ResourceOwnerID: 1234})
	assert.True(t, result.Allowed)
}

func TestCheckLegacySuperAdminRoleName(t *testing.T) {
	legacy := userWith(Role{Name: LegacySuperAdminRole})
	assert.True(t, HasSystemAdminAccess(legacy))
	assert.True(t, Check(legacy, "journalissue.DELETE", nil).Allowed)
}

func TestCheckSystemPermissionsNeverEnterHierarchy(t *testing.T) {
	u := userWith(Role{Name: "Editor", Permissions: []string{"article.ALL", "user.ALL", "role.ALL"}})
	result := Check(u, "SYSTEM.ROLE_MANAGEMENT", nil)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonInsufficient, result.Reason)

	holder := userWith(Role{Name: "Support", Permissions: []string{"SYSTEM.USER_MANAGEMENT"}})
	assert.True(t, Check(holder, "SYSTEM.USER_MANAGEMENT", nil).Allowed)
	assert.False(t, Check(holder, "SYSTEM.ROLE_MANAGEMENT", nil).Allowed)
}

func TestCheckSelfAccessPrecedesBaseGrant(t *testing.T) {
	// Zero user.* permissions anywhere.
	u := userWith(Role{Name: "Author", Permissions: []string{"article.CREATE"}})
	self := &Context{UserID: u.ID, ResourceID: u.ID}

	assert.True(t, Check(u, "user.READ", self).Allowed)
	assert.True(t, Check(u, "user.UPDATE", self).Allowed)

	// Self-access is scoped to READ/UPDATE only.
	result := Check(u, "user.DELETE", self)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonInsufficient, result.Reason)

	// Someone else's profile stays closed.
	other := &Context{UserID: u.ID, ResourceID: u.ID + 1}
	assert.False(t, Check(u, "user.READ", other).Allowed)
}

func TestCheckOwnerGatedMutation(t *testing.T) {
	author := userWith(Role{Name: "Author", Permissions: []string{"article.UPDATE"}})

	own := &Context{UserID: author.ID, ResourceID: 41, ResourceOwnerID: author.ID}
	assert.True(t, Check(author, "article.UPDATE", own).Allowed)

	foreign := &Context{UserID: author.ID, ResourceID: 41, ResourceOwnerID: author.ID + 5}
	result := Check(author, "article.UPDATE", foreign)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonResourceAccessDenied, result.Reason)

	// article.ALL lifts the gate: editors update any article.
	editor := userWith(Role{Name: "Editor", Permissions: []string{"article.ALL"}})
	foreign.UserID = editor.ID
	assert.True(t, Check(editor, "article.UPDATE", foreign).Allowed)
}

func TestCheckOwnerGateAppliesOnlyToMutations(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.UPDATE"}})
	foreign := &Context{UserID: u.ID, ResourceID: 3, ResourceOwnerID: 99}
	// READ via hierarchy is not owner-gated.
	assert.True(t, Check(u, "article.READ", foreign).Allowed)
}

func TestCheckWithoutContextSkipsOwnerGate(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.UPDATE"}})
	assert.True(t, Check(u, "article.UPDATE", nil).Allowed)
	assert.True(t, Check(u, "article.UPDATE", &Context{UserID: u.ID}).Allowed)
}

func TestEffectivePermissionsDeduplicates(t *testing.T) {
	u := userWith(
		Role{Name: "Author", Permissions: []string{"article.CREATE", "article.READ"}},
		"article.READ", "media.CREATE",
	)
	perms := EffectivePermissions(u)
	assert.ElementsMatch(t, []string{"article.CREATE", "article.READ", "media.CREATE"}, perms)

	count := 0
	for _, p := range perms {
		if p == "article.READ" {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicated grants must collapse to one entry")
}

func TestEffectivePermissionsDoesNotMutateSources(t *testing.T) {
	rolePerms := []string{"article.READ", "article.READ"}
	direct := []string{"media.CREATE"}
	u := &User{ID: 1, Role: Role{Name: "Author", Permissions: rolePerms}, DirectPermissions: direct}

	_ = EffectivePermissions(u)
	assert.Equal(t, []string{"article.READ", "article.READ"}, rolePerms)
	assert.Equal(t, []string{"media.CREATE"}, direct)
}

func TestCheckAllShortCircuits(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.CREATE", "article.READ"}})

	assert.True(t, CheckAll(u, []string{"article.CREATE", "article.READ"}, nil).Allowed)

	result := CheckAll(u, []string{"article.CREATE", "article.DELETE", "article.READ"}, nil)
	require.False(t, result.Allowed)
	assert.Equal(t, "article.DELETE", result.RequiredPermission)
}

func TestCheckAnyCombinator(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.UPDATE"}})

	assert.True(t, CheckAny(u, []string{"article.CREATE", "article.UPDATE"}, nil).Allowed)

	result := CheckAny(u, []string{"journalissue.CREATE", "journalissue.UPDATE"}, nil)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonInsufficient, result.Reason)
}

func TestCheckAnyAllMalformed(t *testing.T) {
	u := userWith(Role{Name: "Author", Permissions: []string{"article.UPDATE"}})
	result := CheckAny(u, []string{"bogus", "also-bogus"}, nil)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonMalformedPermission, result.Reason)
}

func TestCheckAnyNilUserUnauthorized(t *testing.T) {
	result := CheckAny(nil, []string{"article.CREATE", "article.UPDATE"}, nil)
	require.False(t, result.Allowed)
	assert.Equal(t, ReasonUnauthorized, result.Reason)
}

func TestCheckAnyEmptyListAllows(t *testing.T) {
	u := userWith(Role{Name: "Author"})
	assert.True(t, CheckAny(u, nil, nil).Allowed)
	assert.True(t, CheckAll(u, nil, nil).Allowed)
}
