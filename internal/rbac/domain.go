// Package rbac contains the enforcement adapters that sit between the
// HTTP boundary and the pure permission engine: session resolution,
// principal hydration, chi middlewares and the diagnostics endpoint.
package rbac

import (
	"context"

	"github.com/chronicle-cms/chronicle/internal/permission"
)

// UserSource loads a fully hydrated principal: the user joined with its
// role and the role's permission strings plus any direct grants. The
// engine never lazy-loads; hydration happens here, before any check.
type UserSource interface {
	UserWithPermissions(ctx context.Context, userID int64) (*permission.User, error)
}

// Denial carries a permission denial through error-returning service
// layers. Handlers unwrap it with errors.As and convert it back to the
// structured result; it must never reach a client as raw error text.
type Denial struct {
	Result permission.Result
}

// Error implements the error interface.
func (d *Denial) Error() string {
	if d.Result.RequiredPermission != "" {
		return "denied: " + d.Result.Reason + " (" + d.Result.RequiredPermission + ")"
	}
	return "denied: " + d.Result.Reason
}

// DenialOf converts a check result into an error, or nil when allowed.
func DenialOf(result permission.Result) error {
	if result.Allowed {
		return nil
	}
	return &Denial{Result: result}
}

type principalContextKey struct{}

// ContextWithPrincipal stores the hydrated principal in context.
func ContextWithPrincipal(ctx context.Context, u *permission.User) context.Context {
	return context.WithValue(ctx, principalContextKey{}, u)
}

// PrincipalFromContext extracts the hydrated principal, or nil.
func PrincipalFromContext(ctx context.Context) *permission.User {
	u, _ := ctx.Value(principalContextKey{}).(*permission.User)
	return u
}
