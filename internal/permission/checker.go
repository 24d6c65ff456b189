package permission

import "strings"

// Context carries the optional situational facts a check may consult:
// the acting user, the target resource and its recorded owner. Only the
// overlay rules read it; the static role/permission union ignores it.
type Context struct {
	UserID          int64
	ResourceID      int64
	ResourceOwnerID int64
}

func (c *Context) selfAccess() bool {
	return c != nil && c.UserID != 0 && c.UserID == c.ResourceID
}

// Result is the structured outcome of a check. An ordinary denial is a
// value, never an error; Reason is drawn from the closed taxonomy and
// RequiredPermission echoes the permission that was asked for, for
// diagnostics.
type Result struct {
	Allowed            bool
	Reason             string
	RequiredPermission string
}

// Allow returns an allowing result.
func Allow() Result {
	return Result{Allowed: true}
}

// Deny returns a denial carrying the given reason and required permission.
func Deny(reason, required string) Result {
	return Result{Allowed: false, Reason: reason, RequiredPermission: required}
}

// ownerGatedResources lists the resource classes whose mutating
// operations stay owner-restricted even for holders of the base
// permission. Holding <resource>.ALL (or system admin) lifts the
// restriction; this is what separates an author role from an editor
// role when both carry "article.UPDATE".
var ownerGatedResources = map[string]struct{}{
	ResourceArticle: {},
	ResourceMedia:   {},
}

// Check answers "may this user perform this operation on this resource,
// in this context?". It never returns an error for an ordinary denial
// and never panics on malformed input.
//
// Decision order: missing principal, malformed permission, system-admin
// bypass, self-access overlay, base grant (exact or hierarchy), owner
// gating, denial.
func Check(u *User, required string, ctx *Context) Result {
	if u == nil {
		return Deny(ReasonUnauthorized, required)
	}
	req, ok := Parse(required)
	if !ok {
		return Deny(ReasonMalformedPermission, required)
	}
	// Break-glass escape valve: system admins bypass every downstream
	// rule, including the ownership overlay.
	if HasSystemAdminAccess(u) {
		return Allow()
	}
	// Self-access fires before the base grant is consulted: a user with
	// no user.* permission at all may still read and update themself.
	if !req.IsSystem() && req.Resource == ResourceUser &&
		(req.Operation == OpRead || req.Operation == OpUpdate) && ctx.selfAccess() {
		return Allow()
	}

	held := EffectivePermissions(u)
	grant, holdsAll := baseGrant(held, req)
	if !grant {
		return Deny(ReasonInsufficient, required)
	}
	if denied, result := ownerGateDenies(req, ctx, holdsAll, required); denied {
		return result
	}
	return Allow()
}

// CheckAll is the all-of combinator: it short-circuits on the first
// denial and returns it unchanged.
func CheckAll(u *User, required []string, ctx *Context) Result {
	for _, perm := range required {
		if result := Check(u, perm, ctx); !result.Allowed {
			return result
		}
	}
	return Allow()
}

// CheckAny is the any-of combinator: it allows if any single permission
// is granted. When every candidate fails to parse the malformed denial
// is surfaced; otherwise the denial lists all candidates.
func CheckAny(u *User, required []string, ctx *Context) Result {
	if len(required) == 0 {
		return Allow()
	}
	if u == nil {
		return Deny(ReasonUnauthorized, strings.Join(required, ", "))
	}
	allMalformed := true
	var firstMalformed Result
	for _, perm := range required {
		result := Check(u, perm, ctx)
		if result.Allowed {
			return result
		}
		if result.Reason == ReasonMalformedPermission {
			if firstMalformed.Reason == "" {
				firstMalformed = result
			}
			continue
		}
		allMalformed = false
	}
	if allMalformed {
		return firstMalformed
	}
	return Deny(ReasonInsufficient, strings.Join(required, ", "))
}

// baseGrant reports whether the held set covers the requirement, and
// whether it does so through <resource>.ALL. SYSTEM.* requirements are
// matched by exact string only; they never enter the CRUD hierarchy.
func baseGrant(held []string, req Requirement) (granted, viaAll bool) {
	want := req.String()
	for _, perm := range held {
		if perm == want {
			granted = true
			continue
		}
		if req.IsSystem() {
			continue
		}
		heldReq, ok := Parse(perm)
		if !ok || heldReq.IsSystem() || heldReq.Resource != req.Resource {
			continue
		}
		if heldReq.Operation == OpAll {
			granted = true
			viaAll = true
			continue
		}
		if heldReq.Operation.Implies(req.Operation) {
			granted = true
		}
	}
	return granted, viaAll
}

// ownerGateDenies applies the owner-only mutation rule: on owner-gated
// resources a mutating grant held without <resource>.ALL only covers
// the holder's own resources.
func ownerGateDenies(req Requirement, ctx *Context, holdsAll bool, required string) (bool, Result) {
	if req.IsSystem() || holdsAll {
		return false, Result{}
	}
	if req.Operation != OpUpdate && req.Operation != OpDelete {
		return false, Result{}
	}
	if _, gated := ownerGatedResources[req.Resource]; !gated {
		return false, Result{}
	}
	if ctx == nil || ctx.ResourceOwnerID == 0 {
		return false, Result{}
	}
	if ctx.ResourceOwnerID == ctx.UserID {
		return false, Result{}
	}
	return true, Deny(ReasonResourceAccessDenied, required)
}
