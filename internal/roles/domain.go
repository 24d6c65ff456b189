package roles

import "time"

// Role represents a named bundle of permission strings.
type Role struct {
	ID            int64
	Name          string
	Description   string
	IsSystem      bool
	Permissions   []string
	AssignedUsers int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
