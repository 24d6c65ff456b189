package editorial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

type mockRepository struct {
	members map[int64]BoardMember
	nextID  int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{members: make(map[int64]BoardMember), nextID: 1}
}

func (m *mockRepository) ListMembers(ctx context.Context) ([]BoardMember, error) {
	var out []BoardMember
	for _, member := range m.members {
		out = append(out, member)
	}
	return out, nil
}

func (m *mockRepository) GetMember(ctx context.Context, id int64) (BoardMember, error) {
	member, ok := m.members[id]
	if !ok {
		return BoardMember{}, shared.ErrNotFound
	}
	return member, nil
}

func (m *mockRepository) CreateMember(ctx context.Context, member BoardMember) (BoardMember, error) {
	member.ID = m.nextID
	m.nextID++
	m.members[member.ID] = member
	return member, nil
}

func (m *mockRepository) UpdateMember(ctx context.Context, member BoardMember) (BoardMember, error) {
	if _, ok := m.members[member.ID]; !ok {
		return BoardMember{}, shared.ErrNotFound
	}
	m.members[member.ID] = member
	return member, nil
}

func (m *mockRepository) DeleteMember(ctx context.Context, id int64) error {
	if _, ok := m.members[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.members, id)
	return nil
}

func boardManager() *permission.User {
	return &permission.User{ID: 3, Role: permission.Role{Name: "Site Editor", Permissions: []string{"editorialboard.ALL"}}}
}

func TestCreateMemberRequiresGrant(t *testing.T) {
	svc := NewService(newMockRepository())
	reader := &permission.User{ID: 9, Role: permission.Role{Permissions: []string{"editorialboard.READ"}}}

	_, err := svc.CreateMember(context.Background(), reader, MemberInput{Name: "Dr. Chen"})
	var denial *rbac.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, permission.ReasonInsufficient, denial.Result.Reason)
}

func TestCreateMemberNormalises(t *testing.T) {
	svc := NewService(newMockRepository())

	m, err := svc.CreateMember(context.Background(), boardManager(), MemberInput{
		Name:  "  Dr. Chen  ",
		Email: "Chen@Example.ORG",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Chen", m.Name)
	assert.Equal(t, "chen@example.org", m.Email)

	_, err = svc.CreateMember(context.Background(), boardManager(), MemberInput{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestDeleteMember(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	m, err := svc.CreateMember(context.Background(), boardManager(), MemberInput{Name: "Dr. Chen"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMember(context.Background(), boardManager(), m.ID))
	assert.ErrorIs(t, svc.DeleteMember(context.Background(), boardManager(), m.ID), shared.ErrNotFound)
}
