package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrDuplicateSlug indicates a slug collision on insert or update.
var ErrDuplicateSlug = errors.New("articles: duplicate slug")

// Repository provides PostgreSQL persistence for articles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const articleColumns = `a.id, a.title, a.slug, a.summary, a.body, a.status, a.author_id, u.name,
	a.issue_id, a.created_at, a.updated_at, a.published_at`

// ListArticles returns a filtered page of articles plus the total
// matching count.
func (r *Repository) ListArticles(ctx context.Context, filter ListFilter) ([]Article, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.AuthorID != 0 {
		args = append(args, filter.AuthorID)
		where = append(where, fmt.Sprintf("a.author_id = $%d", len(args)))
	}
	if filter.IssueID != 0 {
		args = append(args, filter.IssueID)
		where = append(where, fmt.Sprintf("a.issue_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQ := "SELECT COUNT(*) FROM articles a WHERE " + cond
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	listQ := fmt.Sprintf(`
SELECT %s
FROM articles a
JOIN users u ON u.id = a.author_id
WHERE %s
ORDER BY a.updated_at DESC, a.id DESC
LIMIT $%d OFFSET $%d`, articleColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetArticle fetches one article by ID.
func (r *Repository) GetArticle(ctx context.Context, id int64) (Article, error) {
	q := fmt.Sprintf(`
SELECT %s
FROM articles a
JOIN users u ON u.id = a.author_id
WHERE a.id = $1`, articleColumns)
	a, err := scanArticle(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, shared.ErrNotFound
		}
		return Article{}, err
	}
	return a, nil
}

// CreateArticle inserts a new draft.
func (r *Repository) CreateArticle(ctx context.Context, a Article) (Article, error) {
	const q = `
INSERT INTO articles (title, slug, summary, body, status, author_id, issue_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.Title, a.Slug, a.Summary, a.Body, string(a.Status), a.AuthorID, a.IssueID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Article{}, mapSlugConflict(err)
	}
	return a, nil
}

// UpdateArticle rewrites the editable fields of an article.
func (r *Repository) UpdateArticle(ctx context.Context, a Article) (Article, error) {
	const q = `
UPDATE articles
SET title = $2, slug = $3, summary = $4, body = $5, issue_id = $6, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, a.ID, a.Title, a.Slug, a.Summary, a.Body, a.IssueID).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, shared.ErrNotFound
		}
		return Article{}, mapSlugConflict(err)
	}
	return a, nil
}

// UpdateStatus moves an article to a new workflow state. publishedAt is
// only written when non-nil.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error {
	const q = `
UPDATE articles
SET status = $2, published_at = COALESCE($3, published_at), updated_at = NOW()
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, string(status), publishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteArticle removes an article.
func (r *Repository) DeleteArticle(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanArticle(row pgx.Row) (Article, error) {
	var (
		a      Article
		status string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Summary, &a.Body, &status, &a.AuthorID, &a.AuthorName,
		&a.IssueID, &a.CreatedAt, &a.UpdatedAt, &a.PublishedAt)
	if err != nil {
		return Article{}, err
	}
	a.Status = Status(status)
	return a, nil
}

func mapSlugConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSlug
	}
	return err
}
