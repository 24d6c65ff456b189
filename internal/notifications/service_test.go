package notifications

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
	rows    []Notification
	editors []int64
	nextID  int64
}

func (m *mockRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	var out []Notification
	for _, n := range m.rows {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *mockRepository) Insert(ctx context.Context, n Notification) error {
	m.nextID++
	n.ID = m.nextID
	n.CreatedAt = time.Now()
	m.rows = append(m.rows, n)
	return nil
}

func (m *mockRepository) MarkRead(ctx context.Context, userID, id int64, at time.Time) error {
	for i, n := range m.rows {
		if n.ID == id && n.UserID == userID && n.ReadAt == nil {
			m.rows[i].ReadAt = &at
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	var count int64
	for i, n := range m.rows {
		if n.UserID == userID && n.ReadAt == nil {
			m.rows[i].ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) EditorIDs(ctx context.Context) ([]int64, error) {
	return m.editors, nil
}

func reader(id int64) *permission.User {
	return &permission.User{ID: id, Role: permission.Role{Permissions: []string{"notification.READ", "notification.UPDATE"}}}
}

func newTestService(repo *mockRepository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListNotificationsScopedToActor(t *testing.T) {
	repo := &mockRepository{rows: []Notification{
		{ID: 1, UserID: 5, Title: "mine"},
		{ID: 2, UserID: 6, Title: "theirs"},
	}}
	svc := newTestService(repo)

	list, err := svc.ListNotifications(context.Background(), reader(5), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Title)
}

func TestListNotificationsRequiresGrant(t *testing.T) {
	svc := newTestService(&mockRepository{})
	stranger := &permission.User{ID: 5, Role: permission.Role{Permissions: []string{"article.READ"}}}

	_, err := svc.ListNotifications(context.Background(), stranger, false)
	var denial *rbac.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, permission.ReasonInsufficient, denial.Result.Reason)
}

func TestMarkReadOnlyOwnRows(t *testing.T) {
	repo := &mockRepository{rows: []Notification{{ID: 1, UserID: 6, Title: "theirs"}}}
	svc := newTestService(repo)

	// Another user's notification is invisible, not forbidden.
	err := svc.MarkRead(context.Background(), reader(5), 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.MarkRead(context.Background(), reader(6), 1))
	assert.NotNil(t, repo.rows[0].ReadAt)
}

func TestFanOutSubmissionSkipsActor(t *testing.T) {
	repo := &mockRepository{editors: []int64{1, 2, 5}}
	svc := newTestService(repo)

	sent, err := svc.FanOutSubmission(context.Background(), 42, "A Study", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	for _, n := range repo.rows {
		assert.NotEqual(t, int64(5), n.UserID, "the submitting editor should not notify themselves")
		assert.Equal(t, KindSubmission, n.Kind)
		assert.Equal(t, int64(42), n.ArticleID)
	}
}

func TestNotifyDecisionIncludesNote(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(repo)

	require.NoError(t, svc.NotifyDecision(context.Background(), 42, "A Study", 5, false, "needs sources"))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, KindDecision, repo.rows[0].Kind)
	assert.Contains(t, repo.rows[0].Body, "needs sources")
}
