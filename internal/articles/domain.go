package articles

import "time"

// Status tracks an article through the editorial workflow.
type Status string

const (
	// StatusDraft is the initial state, editable by the author.
	StatusDraft Status = "draft"
	// StatusInReview means the article awaits an editorial decision.
	StatusInReview Status = "in_review"
	// StatusPublished means the article is live.
	StatusPublished Status = "published"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusPublished:
		return true
	}
	return false
}

// transitions maps each status to the states it may move into.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusInReview},
	StatusInReview:  {StatusPublished, StatusDraft},
	StatusPublished: {StatusDraft},
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Article is a single piece of content owned by its author.
type Article struct {
	ID          int64
	Title       string
	Slug        string
	Summary     string
	Body        string
	Status      Status
	AuthorID    int64
	AuthorName  string
	IssueID     *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// ListFilter narrows article listings.
type ListFilter struct {
	Status   Status
	AuthorID int64
	IssueID  int64
	Page     int
	PerPage  int
}
