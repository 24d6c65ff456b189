package journals

import "time"

// Issue is a journal issue grouping published articles.
type Issue struct {
	ID           int64
	Title        string
	Volume       int
	Number       int
	Year         int
	Description  string
	ArticleCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PublishedAt  *time.Time
}

// Published reports whether the issue has gone out.
func (i Issue) Published() bool {
	return i.PublishedAt != nil
}
