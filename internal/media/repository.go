package media

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle-cms/chronicle/internal/shared"
)

// Repository provides PostgreSQL persistence for media assets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assetColumns = `m.id, m.filename, m.mime_type, m.size_bytes, m.alt, m.owner_id, u.name, m.created_at, m.updated_at`

// ListAssets returns assets newest first, optionally filtered by owner.
func (r *Repository) ListAssets(ctx context.Context, ownerID int64) ([]Asset, error) {
	q := `
SELECT ` + assetColumns + `
FROM media_assets m
JOIN users u ON u.id = m.owner_id
WHERE ($1 = 0 OR m.owner_id = $1)
ORDER BY m.created_at DESC`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetAsset fetches one asset by ID.
func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	q := `
SELECT ` + assetColumns + `
FROM media_assets m
JOIN users u ON u.id = m.owner_id
WHERE m.id = $1`
	a, err := scanAsset(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, shared.ErrNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

// CreateAsset inserts a new asset record.
func (r *Repository) CreateAsset(ctx context.Context, a Asset) (Asset, error) {
	const q = `
INSERT INTO media_assets (id, filename, mime_type, size_bytes, alt, owner_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.ID, a.Filename, a.MimeType, a.SizeBytes, a.Alt, a.OwnerID).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Asset{}, err
	}
	return a, nil
}

// UpdateAsset rewrites the editable metadata fields.
func (r *Repository) UpdateAsset(ctx context.Context, a Asset) (Asset, error) {
	const q = `
UPDATE media_assets
SET filename = $2, alt = $3, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, a.ID, a.Filename, a.Alt).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, shared.ErrNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

// DeleteAsset removes an asset record.
func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media_assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Filename, &a.MimeType, &a.SizeBytes, &a.Alt, &a.OwnerID, &a.OwnerName, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Asset{}, err
	}
	return a, nil
}
