package notifications

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle-cms/chronicle/internal/shared"
)

// Repository provides PostgreSQL persistence for notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForUser returns the user's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	const q = `
SELECT id, user_id, kind, title, body, article_id, read_at, created_at
FROM notifications
WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)
ORDER BY created_at DESC
LIMIT 200`
	rows, err := r.pool.Query(ctx, q, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		var n Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Body, &n.ArticleID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = Kind(kind)
		list = append(list, n)
	}
	return list, rows.Err()
}

// Insert stores one notification.
func (r *Repository) Insert(ctx context.Context, n Notification) error {
	const q = `
INSERT INTO notifications (user_id, kind, title, body, article_id, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())`
	_, err := r.pool.Exec(ctx, q, n.UserID, string(n.Kind), n.Title, n.Body, n.ArticleID)
	return err
}

// MarkRead stamps one of the user's notifications as read.
func (r *Repository) MarkRead(ctx context.Context, userID, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = $3 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		id, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead stamps every unread notification for the user.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL`, userID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// EditorIDs returns the users who should hear about new submissions:
// anyone granted article.ALL or SYSTEM.ADMIN through their role or a
// direct permission.
func (r *Repository) EditorIDs(ctx context.Context) ([]int64, error) {
	const q = `
SELECT DISTINCT u.id
FROM users u
LEFT JOIN role_permissions rp ON rp.role_id = u.role_id
LEFT JOIN user_permissions up ON up.user_id = u.id
WHERE u.is_active
  AND (rp.permission IN ('article.ALL', 'SYSTEM.ADMIN')
	OR up.permission IN ('article.ALL', 'SYSTEM.ADMIN'))`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
