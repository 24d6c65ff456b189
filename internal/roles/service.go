package roles

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"log/slog"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrInvalidPermission indicates a permission string that fails to parse.
var ErrInvalidPermission = errors.New("roles: invalid permission string")

// ErrNameRequired indicates a missing role name.
var ErrNameRequired = errors.New("roles: role name required")

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string, perms []string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, perms []string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	CountAssignedUsers(ctx context.Context, roleID int64) (int, error)
	AssignedUserIDs(ctx context.Context, roleID int64) ([]int64, error)
}

// Invalidator drops cached principals after permission-affecting writes.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Auditor records role mutations in the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles role business logic: CRUD plus the role-management
// guards (system roles, SYSTEM.* permission bundles, the reserved
// super-admin role) and the delete pre-condition.
type Service struct {
	repo   RepositoryPort
	cache  Invalidator
	audit  Auditor
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache Invalidator, audit Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role after validating its permission set.
// Bundling SYSTEM.* permissions into a role is reserved for system
// admins; everything a role carries must parse.
func (s *Service) CreateRole(ctx context.Context, actor *permission.User, name, description string, perms []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	candidate := permission.Role{Name: name, Permissions: perms}
	if err := rbac.DenialOf(permission.CanAssignRole(actor, candidate)); err != nil {
		return Role{}, err
	}
	if err := validatePermissions(perms); err != nil {
		return Role{}, err
	}
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description), dedupe(perms))
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actor, "role.create", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// UpdateRole edits an existing role and replaces its permission set,
// refusing to touch protected roles and invalidating every affected
// principal afterwards.
func (s *Service) UpdateRole(ctx context.Context, actor *permission.User, id int64, name, description string, perms []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if err := rbac.DenialOf(permission.CanMutateRole(actor, asEngineRole(existing))); err != nil {
		return Role{}, err
	}
	// The new shape is held to the same bar as a fresh role.
	if err := rbac.DenialOf(permission.CanAssignRole(actor, permission.Role{Name: name, Permissions: perms})); err != nil {
		return Role{}, err
	}
	if err := validatePermissions(perms); err != nil {
		return Role{}, err
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), dedupe(perms))
	if err != nil {
		return Role{}, err
	}
	s.invalidateAssigned(ctx, id)
	s.recordAudit(ctx, actor, "role.update", id, map[string]any{"name": role.Name})
	return role, nil
}

// DeleteRole removes a role. A role with assigned users refuses
// deletion with a dependents denial distinct from a permission denial.
func (s *Service) DeleteRole(ctx context.Context, actor *permission.User, id int64) error {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if err := rbac.DenialOf(permission.CanMutateRole(actor, asEngineRole(existing))); err != nil {
		return err
	}
	assigned, err := s.repo.CountAssignedUsers(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return rbac.DenialOf(permission.Deny(permission.ReasonHasDependents, permission.System(permission.CapRoleManagement)))
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "role.delete", id, map[string]any{"name": existing.Name})
	return nil
}

// recordAudit is best-effort: a failed audit write never fails the request.
func (s *Service) recordAudit(ctx context.Context, actor *permission.User, action string, roleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) invalidateAssigned(ctx context.Context, roleID int64) {
	if s.cache == nil {
		return
	}
	ids, err := s.repo.AssignedUserIDs(ctx, roleID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("list assigned users", slog.Int64("role_id", roleID), slog.Any("error", err))
		}
		return
	}
	for _, id := range ids {
		if err := s.cache.Invalidate(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("invalidate principal cache", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
}

func asEngineRole(r Role) permission.Role {
	return permission.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: r.Permissions,
	}
}

func validatePermissions(perms []string) error {
	for _, perm := range perms {
		if _, ok := permission.Parse(perm); !ok {
			return ErrInvalidPermission
		}
	}
	return nil
}

func dedupe(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
