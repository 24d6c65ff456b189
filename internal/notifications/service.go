package notifications

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// RepositoryPort defines data access methods for notifications.
type RepositoryPort interface {
	ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error)
	Insert(ctx context.Context, n Notification) error
	MarkRead(ctx context.Context, userID, id int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	EditorIDs(ctx context.Context) ([]int64, error)
}

// Service handles per-user notifications. Reads and updates are
// strictly scoped to the caller's own rows.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListNotifications returns the actor's own inbox.
func (s *Service) ListNotifications(ctx context.Context, actor *permission.User, unreadOnly bool) ([]Notification, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermNotificationRead, nil)); err != nil {
		return nil, err
	}
	return s.repo.ListForUser(ctx, actor.ID, unreadOnly)
}

// MarkRead stamps one of the actor's notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor *permission.User, id int64) error {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermNotificationUpdate, nil)); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, actor.ID, id, time.Now().UTC())
}

// MarkAllRead stamps the actor's whole inbox as read.
func (s *Service) MarkAllRead(ctx context.Context, actor *permission.User) (int64, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermNotificationUpdate, nil)); err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, actor.ID, time.Now().UTC())
}

// FanOutSubmission notifies every editor that an article entered
// review. Runs inside the worker, not on the request path.
func (s *Service) FanOutSubmission(ctx context.Context, articleID int64, articleTitle string, actorID int64) (int, error) {
	editors, err := s.repo.EditorIDs(ctx)
	if err != nil {
		return 0, err
	}
	n := Notification{
		Kind:      KindSubmission,
		Title:     "Article submitted for review",
		Body:      fmt.Sprintf("%q is awaiting an editorial decision.", articleTitle),
		ArticleID: articleID,
	}
	sent := 0
	for _, id := range editors {
		if id == actorID {
			continue
		}
		n.UserID = id
		if err := s.repo.Insert(ctx, n); err != nil {
			s.logger.Warn("insert notification", slog.Int64("user_id", id), slog.Any("error", err))
			continue
		}
		sent++
	}
	return sent, nil
}

// NotifyDecision tells the author their submission was approved or
// rejected.
func (s *Service) NotifyDecision(ctx context.Context, articleID int64, articleTitle string, authorID int64, approved bool, note string) error {
	title := "Article published"
	body := fmt.Sprintf("%q has been approved and published.", articleTitle)
	if !approved {
		title = "Article returned"
		body = fmt.Sprintf("%q was sent back to draft.", articleTitle)
		if note != "" {
			body += " Editor's note: " + note
		}
	}
	return s.repo.Insert(ctx, Notification{
		UserID:    authorID,
		Kind:      KindDecision,
		Title:     title,
		Body:      body,
		ArticleID: articleID,
	})
}
