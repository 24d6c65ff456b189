package users

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrInvalidPermission indicates a grant string that fails to parse.
var ErrInvalidPermission = errors.New("users: invalid permission string")

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string, roleID int64) (User, error)
	UpdateUser(ctx context.Context, id int64, name string, isActive bool) (User, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	SetDirectPermissions(ctx context.Context, userID int64, perms []string) error
	DeleteUser(ctx context.Context, id int64) error
	UserWithPermissions(ctx context.Context, userID int64) (*permission.User, error)
}

// RolePort resolves the role a user is being assigned, hydrated with
// its permission strings so the assignment guard can inspect them.
type RolePort interface {
	RoleForAssignment(ctx context.Context, roleID int64) (permission.Role, error)
}

// Invalidator drops cached principals after permission-affecting writes.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Service handles user management business logic. Coarse permission
// gating happens in route middleware; the guards here are the
// per-record overlay rules (self vs. admin, managing admins, system
// role assignment).
type Service struct {
	repo   RepositoryPort
	roles  RolePort
	cache  Invalidator
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RolePort, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, cache: cache, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user. Self-access lets any user read their own
// record without user.* grants; otherwise either a user.READ grant or
// the user-management capability opens the record.
func (s *Service) GetUser(ctx context.Context, actor *permission.User, id int64) (User, error) {
	result := permission.Check(actor, shared.PermUserRead, s.contextFor(actor, id))
	if !result.Allowed && !permission.CanManageUser(actor, nil).Allowed {
		return User{}, rbac.DenialOf(result)
	}
	return s.repo.GetUser(ctx, id)
}

// CreateUserInput carries validated input for CreateUser.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	RoleID   int64
}

// CreateUser registers an account with the given role.
func (s *Service) CreateUser(ctx context.Context, actor *permission.User, input CreateUserInput) (User, error) {
	if err := rbac.DenialOf(permission.CanManageUser(actor, nil)); err != nil {
		return User{}, err
	}
	if err := s.guardRoleGrant(ctx, actor, input.RoleID); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	return s.repo.CreateUser(ctx, email, strings.TrimSpace(input.Name), string(hash), input.RoleID)
}

// UpdateUser edits name/active state. Users may edit themselves through
// self-access; managing anyone else needs the user-management guard.
func (s *Service) UpdateUser(ctx context.Context, actor *permission.User, id int64, name string, isActive bool) (User, error) {
	if actor != nil && actor.ID == id {
		result := permission.Check(actor, shared.PermUserUpdate, s.contextFor(actor, id))
		if err := rbac.DenialOf(result); err != nil {
			return User{}, err
		}
		// Self-service cannot deactivate the account.
		current, err := s.repo.GetUser(ctx, id)
		if err != nil {
			return User{}, err
		}
		isActive = current.IsActive
	} else {
		target, err := s.hydrate(ctx, id)
		if err != nil {
			return User{}, err
		}
		if err := rbac.DenialOf(permission.CanManageUser(actor, target)); err != nil {
			return User{}, err
		}
	}
	u, err := s.repo.UpdateUser(ctx, id, strings.TrimSpace(name), isActive)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, id)
	return u, nil
}

// AssignRole switches a user's role, guarded against system-role
// escalation by non-admins.
func (s *Service) AssignRole(ctx context.Context, actor *permission.User, userID, roleID int64) error {
	target, err := s.hydrate(ctx, userID)
	if err != nil {
		return err
	}
	if err := rbac.DenialOf(permission.CanManageUser(actor, target)); err != nil {
		return err
	}
	if err := s.guardRoleGrant(ctx, actor, roleID); err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// SetDirectPermissions replaces a user's direct grants. Every string
// must parse, and granting SYSTEM.* capabilities is reserved for system
// admins.
func (s *Service) SetDirectPermissions(ctx context.Context, actor *permission.User, userID int64, perms []string) error {
	target, err := s.hydrate(ctx, userID)
	if err != nil {
		return err
	}
	if err := rbac.DenialOf(permission.CanManageUser(actor, target)); err != nil {
		return err
	}
	for _, perm := range perms {
		req, ok := permission.Parse(perm)
		if !ok {
			return ErrInvalidPermission
		}
		if req.IsSystem() && !permission.HasSystemAdminAccess(actor) {
			return rbac.DenialOf(permission.Deny(permission.ReasonSystemAdminRequired, perm))
		}
	}
	if err := s.repo.SetDirectPermissions(ctx, userID, perms); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// DeleteUser removes an account through the administrative surface.
func (s *Service) DeleteUser(ctx context.Context, actor *permission.User, id int64) error {
	target, err := s.hydrate(ctx, id)
	if err != nil {
		return err
	}
	if err := rbac.DenialOf(permission.CanManageUser(actor, target)); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// guardRoleGrant blocks non-system-admins from handing out roles that
// carry system semantics. The actor has already passed the
// user-management guard at this point.
func (s *Service) guardRoleGrant(ctx context.Context, actor *permission.User, roleID int64) error {
	role, err := s.roles.RoleForAssignment(ctx, roleID)
	if err != nil {
		return err
	}
	if !permission.HasSystemAdminAccess(actor) && !permission.RoleAssignable(role) {
		return rbac.DenialOf(permission.Deny(permission.ReasonSystemAdminRequired, permission.System(permission.CapAdmin)))
	}
	return nil
}

func (s *Service) contextFor(actor *permission.User, resourceID int64) *permission.Context {
	ctx := &permission.Context{ResourceID: resourceID}
	if actor != nil {
		ctx.UserID = actor.ID
	}
	return ctx
}

// hydrate loads the target as a principal so the guards can see its
// role and grants. A missing row surfaces as not-found, not a denial.
func (s *Service) hydrate(ctx context.Context, userID int64) (*permission.User, error) {
	return s.repo.UserWithPermissions(ctx, userID)
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil && s.logger != nil {
		s.logger.Warn("invalidate principal cache", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
