package users

import "time"

// User represents a user account for management.
type User struct {
	ID                int64
	Email             string
	Name              string
	IsActive          bool
	RoleID            int64
	RoleName          string
	DirectPermissions []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
