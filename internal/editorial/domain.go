package editorial

import "time"

// BoardMember is one entry on the journal's editorial board page.
type BoardMember struct {
	ID          int64
	Name        string
	RoleTitle   string
	Affiliation string
	Email       string
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
