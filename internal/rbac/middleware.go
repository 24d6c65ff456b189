package rbac

import (
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/platform/cache"
	"github.com/chronicle-cms/chronicle/internal/platform/httpx"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// Middleware wires permission enforcement for HTTP handlers. Every
// guard resolves the session, hydrates the principal (through the cache
// when possible) and delegates the decision to the permission engine.
// Unexpected hydration errors downgrade to a generic denial; the cause
// is logged server-side only.
type Middleware struct {
	Source UserSource
	Cache  *cache.PrincipalCache
	Logger *slog.Logger
}

// Require ensures the current user passes a single permission check.
func (m Middleware) Require(perm string) func(http.Handler) http.Handler {
	return m.guard(func(u *permission.User) permission.Result {
		return permission.Check(u, perm, nil)
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.guard(func(u *permission.User) permission.Result {
		return permission.CheckAny(u, perms, nil)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.guard(func(u *permission.User) permission.Result {
		return permission.CheckAll(u, perms, nil)
	})
}

// RequireAuthenticated only asserts a signed-in principal; fine-grained
// checks happen in the handler (self-access and ownership need resource
// context that is not known at routing time).
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return m.guard(func(u *permission.User) permission.Result {
		if u == nil {
			return permission.Deny(permission.ReasonUnauthorized, "")
		}
		return permission.Allow()
	})
}

func (m Middleware) guard(decide func(*permission.User) permission.Result) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := m.CurrentUser(r)
			result := decide(principal)
			if !result.Allowed {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("path", r.URL.Path),
						slog.String("reason", result.Reason),
						slog.String("required", result.RequiredPermission))
				}
				httpx.RespondDenied(w, result)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// CurrentUser resolves the hydrated principal for the request, or nil
// when there is no authenticated session. Errors while hydrating are
// treated as "no principal" so a backend hiccup reads as a denial, not
// a stack trace.
func (m Middleware) CurrentUser(r *http.Request) *permission.User {
	userID, ok := m.currentUserID(r)
	if !ok {
		return nil
	}
	ctx := r.Context()
	if u, ok := m.Cache.Get(ctx, userID); ok {
		return u
	}
	u, err := m.Source.UserWithPermissions(ctx, userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("hydrate principal", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil
	}
	if err := m.Cache.Set(ctx, u); err != nil && m.Logger != nil {
		m.Logger.Warn("cache principal", slog.Any("error", err))
	}
	return u
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
