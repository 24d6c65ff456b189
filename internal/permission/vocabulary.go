// Package permission implements the permission evaluation engine: a
// string-encoded RBAC vocabulary ("article.UPDATE", "SYSTEM.ADMIN"),
// effective-permission extraction, the check decision procedure and the
// ownership/business-rule overlay. Everything in this package is a pure
// function of its inputs and safe for concurrent use.
package permission

import (
	"errors"
	"strings"
)

// Operation enumerates the recognised CRUD operation tokens.
type Operation string

// Recognised operations.
const (
	OpCreate Operation = "CREATE"
	OpRead   Operation = "READ"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpAll    Operation = "ALL"
)

// Protected resource classes.
const (
	ResourceArticle        = "article"
	ResourceJournalIssue   = "journalissue"
	ResourceEditorialBoard = "editorialboard"
	ResourceMedia          = "media"
	ResourceNotification   = "notification"
	ResourceUser           = "user"
	ResourceRole           = "role"
)

// System capabilities not tied to a resource class.
const (
	CapAdmin          = "ADMIN"
	CapUserManagement = "USER_MANAGEMENT"
	CapRoleManagement = "ROLE_MANAGEMENT"
)

const systemResource = "SYSTEM"

// ErrInvalidOperation indicates an operation token outside the closed enumeration.
var ErrInvalidOperation = errors.New("permission: invalid operation")

// ErrInvalidResource indicates a resource name that is not a lowercase identifier.
var ErrInvalidResource = errors.New("permission: invalid resource")

// operationHierarchy maps each operation to the set it subsumes. Total
// over the enumeration and reflexive.
var operationHierarchy = map[Operation][]Operation{
	OpAll:    {OpCreate, OpRead, OpUpdate, OpDelete},
	OpUpdate: {OpRead, OpUpdate},
	OpDelete: {OpRead, OpDelete},
	OpCreate: {OpCreate},
	OpRead:   {OpRead},
}

// Valid reports whether op is one of the five recognised tokens.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete, OpAll:
		return true
	}
	return false
}

// Implies reports whether holding op grants the required operation.
func (op Operation) Implies(required Operation) bool {
	for _, implied := range Implied(op) {
		if implied == required {
			return true
		}
	}
	return false
}

// Implied returns the operations subsumed by op. Unknown operations
// imply only themselves so the result is never empty.
func Implied(op Operation) []Operation {
	if implied, ok := operationHierarchy[op]; ok {
		out := make([]Operation, len(implied))
		copy(out, implied)
		return out
	}
	return []Operation{op}
}

// Requirement is the parsed, tagged form of a permission string: either
// a resource operation or a system capability. Raw strings appear only
// at the storage and configuration boundary; checks flow through this
// type.
type Requirement struct {
	Resource   string
	Operation  Operation
	Capability string
}

// IsSystem reports whether the requirement names a SYSTEM.* capability.
func (r Requirement) IsSystem() bool {
	return r.Capability != ""
}

// String renders the requirement back to its wire form.
func (r Requirement) String() string {
	if r.IsSystem() {
		return systemResource + "." + r.Capability
	}
	return r.Resource + "." + string(r.Operation)
}

// Parse splits a permission string into its tagged form. It returns
// ok=false for anything that is not "<resource>.<OPERATION>" or
// "SYSTEM.<name>"; malformed input is rejected here, never treated as a
// valid-but-denied permission.
func Parse(s string) (Requirement, bool) {
	left, right, found := strings.Cut(s, ".")
	if !found || left == "" || right == "" {
		return Requirement{}, false
	}
	if left == systemResource {
		return Requirement{Capability: right}, true
	}
	if !validResourceName(left) {
		return Requirement{}, false
	}
	op := Operation(right)
	if !op.Valid() {
		return Requirement{}, false
	}
	return Requirement{Resource: left, Operation: op}, true
}

// Format builds a resource permission string, validating both halves.
func Format(resource string, op Operation) (string, error) {
	if !validResourceName(resource) {
		return "", ErrInvalidResource
	}
	if !op.Valid() {
		return "", ErrInvalidOperation
	}
	return resource + "." + string(op), nil
}

// System builds a SYSTEM.<capability> permission string.
func System(capability string) string {
	return systemResource + "." + capability
}

func validResourceName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_' && i > 0:
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
