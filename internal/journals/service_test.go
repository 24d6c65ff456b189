package journals

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

type mockRepository struct {
	issues map[int64]Issue
	linked map[int64]int
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{issues: make(map[int64]Issue), linked: make(map[int64]int), nextID: 1}
}

func (m *mockRepository) ListIssues(ctx context.Context) ([]Issue, error) {
	var out []Issue
	for _, i := range m.issues {
		out = append(out, i)
	}
	return out, nil
}

func (m *mockRepository) GetIssue(ctx context.Context, id int64) (Issue, error) {
	i, ok := m.issues[id]
	if !ok {
		return Issue{}, shared.ErrNotFound
	}
	return i, nil
}

func (m *mockRepository) CreateIssue(ctx context.Context, i Issue) (Issue, error) {
	i.ID = m.nextID
	m.nextID++
	m.issues[i.ID] = i
	return i, nil
}

func (m *mockRepository) UpdateIssue(ctx context.Context, i Issue) (Issue, error) {
	if _, ok := m.issues[i.ID]; !ok {
		return Issue{}, shared.ErrNotFound
	}
	m.issues[i.ID] = i
	return i, nil
}

func (m *mockRepository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	i, ok := m.issues[id]
	if !ok {
		return shared.ErrNotFound
	}
	i.PublishedAt = &at
	m.issues[id] = i
	return nil
}

func (m *mockRepository) DeleteIssue(ctx context.Context, id int64) error {
	if _, ok := m.issues[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.issues, id)
	return nil
}

func (m *mockRepository) CountLinkedArticles(ctx context.Context, issueID int64) (int, error) {
	return m.linked[issueID], nil
}

func publisher() *permission.User {
	return &permission.User{ID: 4, Role: permission.Role{Name: "Managing Editor", Permissions: []string{
		"journalissue.CREATE", "journalissue.READ", "journalissue.UPDATE", "journalissue.DELETE",
	}}}
}

func requireDenied(t *testing.T, err error, reason string) {
	t.Helper()
	var denial *rbac.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, reason, denial.Result.Reason)
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestCreateIssueRequiresGrant(t *testing.T) {
	svc, _ := newTestService()
	reader := &permission.User{ID: 8, Role: permission.Role{Permissions: []string{"journalissue.READ"}}}

	_, err := svc.CreateIssue(context.Background(), reader, IssueInput{Title: "Vol 1"})
	requireDenied(t, err, permission.ReasonInsufficient)

	issue, err := svc.CreateIssue(context.Background(), publisher(), IssueInput{Title: "  Vol 1  ", Volume: 1, Number: 1, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, "Vol 1", issue.Title)
}

func TestPublishIssueOnce(t *testing.T) {
	svc, repo := newTestService()
	repo.issues[1] = Issue{ID: 1, Title: "Vol 1"}
	repo.nextID = 2

	issue, err := svc.PublishIssue(context.Background(), publisher(), 1)
	require.NoError(t, err)
	require.NotNil(t, issue.PublishedAt)

	_, err = svc.PublishIssue(context.Background(), publisher(), 1)
	assert.ErrorIs(t, err, ErrAlreadyPublished)
}

func TestDeleteIssueWithLinkedArticles(t *testing.T) {
	svc, repo := newTestService()
	repo.issues[1] = Issue{ID: 1, Title: "Vol 1"}
	repo.linked[1] = 1

	// Even an unconditional journalissue.DELETE grant cannot remove an
	// issue that still has articles attached.
	err := svc.DeleteIssue(context.Background(), publisher(), 1)
	requireDenied(t, err, permission.ReasonHasDependents)

	// After unlinking the article the same caller succeeds.
	repo.linked[1] = 0
	require.NoError(t, svc.DeleteIssue(context.Background(), publisher(), 1))
}

func TestDeleteIssueRequiresGrant(t *testing.T) {
	svc, repo := newTestService()
	repo.issues[1] = Issue{ID: 1, Title: "Vol 1"}
	reader := &permission.User{ID: 8, Role: permission.Role{Permissions: []string{"journalissue.READ"}}}

	err := svc.DeleteIssue(context.Background(), reader, 1)
	requireDenied(t, err, permission.ReasonInsufficient)
}
