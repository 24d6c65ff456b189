package editorial

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle-cms/chronicle/internal/shared"
)

// Repository provides PostgreSQL persistence for board members.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListMembers returns the board ordered for display.
func (r *Repository) ListMembers(ctx context.Context) ([]BoardMember, error) {
	const q = `
SELECT id, name, role_title, affiliation, email, sort_order, created_at, updated_at
FROM editorial_board
ORDER BY sort_order ASC, name ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []BoardMember
	for rows.Next() {
		var m BoardMember
		if err := rows.Scan(&m.ID, &m.Name, &m.RoleTitle, &m.Affiliation, &m.Email, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetMember fetches one board member by ID.
func (r *Repository) GetMember(ctx context.Context, id int64) (BoardMember, error) {
	const q = `
SELECT id, name, role_title, affiliation, email, sort_order, created_at, updated_at
FROM editorial_board
WHERE id = $1`
	var m BoardMember
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.Name, &m.RoleTitle, &m.Affiliation, &m.Email, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BoardMember{}, shared.ErrNotFound
		}
		return BoardMember{}, err
	}
	return m, nil
}

// CreateMember inserts a board member.
func (r *Repository) CreateMember(ctx context.Context, m BoardMember) (BoardMember, error) {
	const q = `
INSERT INTO editorial_board (name, role_title, affiliation, email, sort_order, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, m.Name, m.RoleTitle, m.Affiliation, m.Email, m.SortOrder).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return BoardMember{}, err
	}
	return m, nil
}

// UpdateMember rewrites a board member's fields.
func (r *Repository) UpdateMember(ctx context.Context, m BoardMember) (BoardMember, error) {
	const q = `
UPDATE editorial_board
SET name = $2, role_title = $3, affiliation = $4, email = $5, sort_order = $6, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, m.ID, m.Name, m.RoleTitle, m.Affiliation, m.Email, m.SortOrder).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BoardMember{}, shared.ErrNotFound
		}
		return BoardMember{}, err
	}
	return m, nil
}

// DeleteMember removes a board member.
func (r *Repository) DeleteMember(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM editorial_board WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
