package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrDuplicateEmail indicates the email is already registered.
var ErrDuplicateEmail = errors.New("users: email already registered")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.email, u.name, u.is_active, u.role_id, r.name, u.created_at, u.updated_at`

// ListUsers returns all users joined with their role name.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+`
FROM users u JOIN roles r ON r.id = u.role_id ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// GetUser fetches one user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+`
FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	perms, err := r.directPermissions(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.DirectPermissions = perms
	return u, nil
}

// CreateUser inserts a new user with a hashed password and role.
func (r *Repository) CreateUser(ctx context.Context, email, name, passwordHash string, roleID int64) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, is_active, role_id)
VALUES ($1, $2, $3, true, $4)
RETURNING id, email, name, is_active, role_id, '', created_at, updated_at`, email, name, passwordHash, roleID)
	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return u, nil
}

// UpdateUser updates name and active flag.
func (r *Repository) UpdateUser(ctx context.Context, id int64, name string, isActive bool) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET name = $2, is_active = $3, updated_at = NOW()
WHERE id = $1
RETURNING id, email, name, is_active, role_id, '', created_at, updated_at`, id, name, isActive)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// AssignRole switches the user's role.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetDirectPermissions replaces the user's direct permission grants.
func (r *Repository) SetDirectPermissions(ctx context.Context, userID int64, perms []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("users: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, perm := range perms {
		if _, err := tx.Exec(ctx, `INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2)`, userID, perm); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// DeleteUser removes a user. Returns shared.ErrNotFound when nothing was deleted.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UserWithPermissions hydrates the principal the permission engine
// evaluates: the user, its role with the role's permission strings, and
// the user's direct grants, in one round of queries.
func (r *Repository) UserWithPermissions(ctx context.Context, userID int64) (*permission.User, error) {
	var u permission.User
	err := r.pool.QueryRow(ctx, `SELECT u.id, u.email, u.name, r.id, r.name, r.description, r.is_system
FROM users u JOIN roles r ON r.id = u.role_id
WHERE u.id = $1`, userID).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role.ID, &u.Role.Name, &u.Role.Description, &u.Role.IsSystem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	rolePerms, err := r.stringColumn(ctx, `SELECT permission FROM role_permissions WHERE role_id = $1 ORDER BY permission`, u.Role.ID)
	if err != nil {
		return nil, err
	}
	u.Role.Permissions = rolePerms

	direct, err := r.directPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.DirectPermissions = direct
	return &u, nil
}

func (r *Repository) directPermissions(ctx context.Context, userID int64) ([]string, error) {
	return r.stringColumn(ctx, `SELECT permission FROM user_permissions WHERE user_id = $1 ORDER BY permission`, userID)
}

func (r *Repository) stringColumn(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
