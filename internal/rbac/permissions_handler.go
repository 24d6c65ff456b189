package rbac

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/platform/httpx"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// PermissionsHandler exposes the caller's effective permissions for UI
// gating and debug panels.
type PermissionsHandler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/effective", h.effectivePermissions)
		r.Get("/check", h.checkPermission)
		r.Get("/catalog", h.catalog)
	})
}

type catalogResponse struct {
	Editorial []string `json:"editorial"`
	Admin     []string `json:"admin"`
}

// catalog lists the known permission vocabulary, grouped for role-builder UIs.
func (h *PermissionsHandler) catalog(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, catalogResponse{
		Editorial: shared.EditorialScopes(),
		Admin:     shared.AdminScopes(),
	})
}

type effectivePermissionsResponse struct {
	UserID      int64    `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	SystemAdmin bool     `json:"system_admin"`
}

func (h *PermissionsHandler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondDenied(w, permission.Deny(permission.ReasonUnauthorized, ""))
		return
	}
	httpx.JSON(w, http.StatusOK, effectivePermissionsResponse{
		UserID:      principal.ID,
		Role:        principal.Role.Name,
		Permissions: permission.EffectivePermissions(principal),
		SystemAdmin: permission.HasSystemAdminAccess(principal),
	})
}

type checkResponse struct {
	Allowed            bool   `json:"allowed"`
	Reason             string `json:"reason,omitempty"`
	RequiredPermission string `json:"required_permission,omitempty"`
}

func (h *PermissionsHandler) checkPermission(w http.ResponseWriter, r *http.Request) {
	perm := r.URL.Query().Get("permission")
	if perm == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission query parameter required")
		return
	}
	principal := PrincipalFromContext(r.Context())
	result := permission.Check(principal, perm, nil)
	httpx.JSON(w, http.StatusOK, checkResponse{
		Allowed:            result.Allowed,
		Reason:             result.Reason,
		RequiredPermission: result.RequiredPermission,
	})
}
