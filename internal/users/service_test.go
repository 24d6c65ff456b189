package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

type mockRepository struct {
	users      map[int64]User
	principals map[int64]*permission.User
	assigned   map[int64]int64
	direct     map[int64][]string
	deleted    []int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:      make(map[int64]User),
		principals: make(map[int64]*permission.User),
		assigned:   make(map[int64]int64),
		direct:     make(map[int64][]string),
	}
}

func (m *mockRepository) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockRepository) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) CreateUser(ctx context.Context, email, name, passwordHash string, roleID int64) (User, error) {
	id := int64(len(m.users) + 1)
	u := User{ID: id, Email: email, Name: name, IsActive: true, RoleID: roleID}
	m.users[id] = u
	return u, nil
}

func (m *mockRepository) UpdateUser(ctx context.Context, id int64, name string, isActive bool) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.Name = name
	u.IsActive = isActive
	m.users[id] = u
	return u, nil
}

func (m *mockRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, ok := m.users[userID]; !ok {
		return shared.ErrNotFound
	}
	m.assigned[userID] = roleID
	return nil
}

func (m *mockRepository) SetDirectPermissions(ctx context.Context, userID int64, perms []string) error {
	m.direct[userID] = perms
	return nil
}

func (m *mockRepository) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

func (m *mockRepository) UserWithPermissions(ctx context.Context, userID int64) (*permission.User, error) {
	p, ok := m.principals[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

type mockRoles struct {
	roles map[int64]permission.Role
}

func (m *mockRoles) RoleForAssignment(ctx context.Context, roleID int64) (permission.Role, error) {
	role, ok := m.roles[roleID]
	if !ok {
		return permission.Role{}, shared.ErrNotFound
	}
	return role, nil
}

type mockInvalidator struct {
	invalidated []int64
}

func (m *mockInvalidator) Invalidate(ctx context.Context, userID int64) error {
	m.invalidated = append(m.invalidated, userID)
	return nil
}

func newTestService() (*Service, *mockRepository, *mockRoles, *mockInvalidator) {
	repo := newMockRepository()
	roles := &mockRoles{roles: map[int64]permission.Role{
		1: {ID: 1, Name: "Author", Permissions: []string{"article.CREATE", "article.READ", "article.UPDATE"}},
		2: {ID: 2, Name: "Operators", IsSystem: true},
		3: {ID: 3, Name: "Gatekeepers", Permissions: []string{"SYSTEM.USER_MANAGEMENT"}},
	}}
	inv := &mockInvalidator{}
	return NewService(repo, roles, inv, slog.New(slog.NewTextHandler(io.Discard, nil))), repo, roles, inv
}

func admin() *permission.User {
	return &permission.User{ID: 1, Role: permission.Role{Name: "Platform", Permissions: []string{"SYSTEM.ADMIN"}}}
}

func manager() *permission.User {
	return &permission.User{ID: 2, Role: permission.Role{Name: "Support", Permissions: []string{"SYSTEM.USER_MANAGEMENT"}}}
}

func author(id int64) *permission.User {
	return &permission.User{ID: id, Role: permission.Role{Name: "Author", Permissions: []string{"article.CREATE", "article.READ", "article.UPDATE"}}}
}

func requireDenied(t *testing.T, err error, reason string) {
	t.Helper()
	var denial *rbac.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, reason, denial.Result.Reason)
}

func TestGetUserSelfAccessWithoutGrants(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.users[9] = User{ID: 9, Email: "author@chronicle.test", Name: "Nine"}

	// The author role carries zero user.* permissions.
	u, err := svc.GetUser(context.Background(), author(9), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)

	// Another author's record stays closed.
	_, err = svc.GetUser(context.Background(), author(8), 9)
	requireDenied(t, err, permission.ReasonInsufficient)
}

func TestContextForStatesNoOwner(t *testing.T) {
	svc, _, _, _ := newTestService()

	// User records have no separate owner; the check context must not
	// claim one.
	ctx := svc.contextFor(author(8), 9)
	assert.Equal(t, int64(8), ctx.UserID)
	assert.Equal(t, int64(9), ctx.ResourceID)
	assert.Zero(t, ctx.ResourceOwnerID)
}

func TestUpdateUserSelfCannotDeactivate(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.users[9] = User{ID: 9, Name: "Nine", IsActive: true}

	u, err := svc.UpdateUser(context.Background(), author(9), 9, "New Name", false)
	require.NoError(t, err)
	assert.Equal(t, "New Name", u.Name)
	assert.True(t, u.IsActive, "self-service must not toggle is_active")
}

func TestUpdateOtherUserNeedsManagement(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.users[9] = User{ID: 9, Name: "Nine", IsActive: true}
	repo.principals[9] = author(9)

	_, err := svc.UpdateUser(context.Background(), author(8), 9, "Renamed", true)
	requireDenied(t, err, permission.ReasonUserManagementRequired)

	_, err = svc.UpdateUser(context.Background(), manager(), 9, "Renamed", false)
	require.NoError(t, err)
}

func TestManagerCannotTouchAdmins(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.users[1] = User{ID: 1, Name: "Root", IsActive: true}
	repo.principals[1] = admin()

	err := svc.DeleteUser(context.Background(), manager(), 1)
	requireDenied(t, err, permission.ReasonSystemAdminRequired)

	require.NoError(t, svc.DeleteUser(context.Background(), admin(), 1))
}

func TestManagerCannotManageSelf(t *testing.T) {
	svc, repo, _, _ := newTestService()
	mgr := manager()
	repo.users[mgr.ID] = User{ID: mgr.ID, Name: "Support", IsActive: true}
	repo.principals[mgr.ID] = mgr

	err := svc.DeleteUser(context.Background(), mgr, mgr.ID)
	requireDenied(t, err, permission.ReasonOwnerOnly)
}

func TestAssignRoleGuardsSystemRoles(t *testing.T) {
	svc, repo, _, inv := newTestService()
	repo.users[9] = User{ID: 9, Name: "Nine", IsActive: true}
	repo.principals[9] = author(9)

	mgr := &permission.User{ID: 2, Role: permission.Role{
		Name:        "Support",
		Permissions: []string{"SYSTEM.USER_MANAGEMENT", "SYSTEM.ROLE_MANAGEMENT"},
	}}

	// Ordinary role: fine.
	require.NoError(t, svc.AssignRole(context.Background(), mgr, 9, 1))
	assert.Contains(t, inv.invalidated, int64(9))

	// System-flagged role and SYSTEM.*-bearing role: admin only.
	err := svc.AssignRole(context.Background(), mgr, 9, 2)
	requireDenied(t, err, permission.ReasonSystemAdminRequired)

	err = svc.AssignRole(context.Background(), mgr, 9, 3)
	requireDenied(t, err, permission.ReasonSystemAdminRequired)

	require.NoError(t, svc.AssignRole(context.Background(), admin(), 9, 2))
}

func TestSetDirectPermissionsValidation(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.users[9] = User{ID: 9, Name: "Nine", IsActive: true}
	repo.principals[9] = author(9)

	err := svc.SetDirectPermissions(context.Background(), manager(), 9, []string{"article.PUBLISH"})
	assert.ErrorIs(t, err, ErrInvalidPermission)

	err = svc.SetDirectPermissions(context.Background(), manager(), 9, []string{"SYSTEM.ADMIN"})
	requireDenied(t, err, permission.ReasonSystemAdminRequired)

	require.NoError(t, svc.SetDirectPermissions(context.Background(), manager(), 9, []string{"media.CREATE"}))
	assert.Equal(t, []string{"media.CREATE"}, repo.direct[9])

	require.NoError(t, svc.SetDirectPermissions(context.Background(), admin(), 9, []string{"SYSTEM.ROLE_MANAGEMENT"}))
}

func TestCreateUserRequiresManagementAndAssignableRole(t *testing.T) {
	svc, _, _, _ := newTestService()

	input := CreateUserInput{Email: "New@Chronicle.Test", Name: "New User", Password: "longenough1", RoleID: 1}

	_, err := svc.CreateUser(context.Background(), author(5), input)
	requireDenied(t, err, permission.ReasonUserManagementRequired)

	u, err := svc.CreateUser(context.Background(), manager(), input)
	require.NoError(t, err)
	assert.Equal(t, "new@chronicle.test", u.Email, "emails are normalised to lower case")

	input.RoleID = 2
	_, err = svc.CreateUser(context.Background(), manager(), input)
	requireDenied(t, err, permission.ReasonSystemAdminRequired)
}
