package journals

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrDuplicateIssue indicates a volume/number collision.
var ErrDuplicateIssue = errors.New("journals: duplicate volume/number")

// Repository provides PostgreSQL persistence for journal issues.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListIssues returns all issues, newest first, with linked article
// counts.
func (r *Repository) ListIssues(ctx context.Context) ([]Issue, error) {
	const q = `
SELECT i.id, i.title, i.volume, i.number, i.year, i.description,
	(SELECT COUNT(*) FROM articles a WHERE a.issue_id = i.id) AS article_count,
	i.created_at, i.updated_at, i.published_at
FROM journal_issues i
ORDER BY i.year DESC, i.volume DESC, i.number DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Issue
	for rows.Next() {
		var i Issue
		if err := rows.Scan(&i.ID, &i.Title, &i.Volume, &i.Number, &i.Year, &i.Description,
			&i.ArticleCount, &i.CreatedAt, &i.UpdatedAt, &i.PublishedAt); err != nil {
			return nil, err
		}
		list = append(list, i)
	}
	return list, rows.Err()
}

// GetIssue fetches one issue by ID.
func (r *Repository) GetIssue(ctx context.Context, id int64) (Issue, error) {
	const q = `
SELECT i.id, i.title, i.volume, i.number, i.year, i.description,
	(SELECT COUNT(*) FROM articles a WHERE a.issue_id = i.id) AS article_count,
	i.created_at, i.updated_at, i.published_at
FROM journal_issues i
WHERE i.id = $1`
	var i Issue
	err := r.pool.QueryRow(ctx, q, id).Scan(&i.ID, &i.Title, &i.Volume, &i.Number, &i.Year, &i.Description,
		&i.ArticleCount, &i.CreatedAt, &i.UpdatedAt, &i.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, shared.ErrNotFound
		}
		return Issue{}, err
	}
	return i, nil
}

// CreateIssue inserts a new issue.
func (r *Repository) CreateIssue(ctx context.Context, i Issue) (Issue, error) {
	const q = `
INSERT INTO journal_issues (title, volume, number, year, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, i.Title, i.Volume, i.Number, i.Year, i.Description).
		Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return Issue{}, mapIssueConflict(err)
	}
	return i, nil
}

// UpdateIssue rewrites the editable fields.
func (r *Repository) UpdateIssue(ctx context.Context, i Issue) (Issue, error) {
	const q = `
UPDATE journal_issues
SET title = $2, volume = $3, number = $4, year = $5, description = $6, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, i.ID, i.Title, i.Volume, i.Number, i.Year, i.Description).Scan(&i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, shared.ErrNotFound
		}
		return Issue{}, mapIssueConflict(err)
	}
	return i, nil
}

// MarkPublished stamps the issue's publication time.
func (r *Repository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE journal_issues SET published_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteIssue removes an issue.
func (r *Repository) DeleteIssue(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM journal_issues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountLinkedArticles counts articles assigned to the issue.
func (r *Repository) CountLinkedArticles(ctx context.Context, issueID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles WHERE issue_id = $1`, issueID).Scan(&n)
	return n, err
}

func mapIssueConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateIssue
	}
	return err
}
