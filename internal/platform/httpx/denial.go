package httpx

import (
	"net/http"

	"github.com/chronicle-cms/chronicle/internal/permission"
)

// RespondDenied maps a permission denial onto an RFC7807 response.
// Actionable reasons surface verbatim; the malformed-permission case is
// a programmer error and collapses to a generic line so configuration
// detail never reaches the client.
func RespondDenied(w http.ResponseWriter, result permission.Result) {
	switch result.Reason {
	case permission.ReasonUnauthorized:
		Problem(w, http.StatusUnauthorized, "Unauthorized", "Sign in to continue.")
	case permission.ReasonHasDependents:
		Problem(w, http.StatusConflict, "Conflict", "Dependent records must be removed first.")
	case permission.ReasonMalformedPermission:
		Problem(w, http.StatusForbidden, "Forbidden", "Access denied.")
	default:
		Problem(w, http.StatusForbidden, "Forbidden", result.Reason)
	}
}
