package notifications

import "time"

// Kind classifies a notification for client rendering.
type Kind string

const (
	// KindSubmission tells editors an article entered review.
	KindSubmission Kind = "article_submitted"
	// KindDecision tells an author their article was decided on.
	KindDecision Kind = "article_decision"
)

// Notification is a single per-user inbox entry.
type Notification struct {
	ID        int64
	UserID    int64
	Kind      Kind
	Title     string
	Body      string
	ArticleID int64
	ReadAt    *time.Time
	CreatedAt time.Time
}

// Read reports whether the notification has been seen.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}
