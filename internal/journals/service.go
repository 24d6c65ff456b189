package journals

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrTitleRequired indicates a missing issue title.
var ErrTitleRequired = errors.New("journals: title required")

// ErrAlreadyPublished indicates a repeated publish call.
var ErrAlreadyPublished = errors.New("journals: issue already published")

// RepositoryPort defines data access methods for journal issues.
type RepositoryPort interface {
	ListIssues(ctx context.Context) ([]Issue, error)
	GetIssue(ctx context.Context, id int64) (Issue, error)
	CreateIssue(ctx context.Context, i Issue) (Issue, error)
	UpdateIssue(ctx context.Context, i Issue) (Issue, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
	DeleteIssue(ctx context.Context, id int64) error
	CountLinkedArticles(ctx context.Context, issueID int64) (int, error)
}

// Service handles journal issue business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListIssues returns all issues.
func (s *Service) ListIssues(ctx context.Context) ([]Issue, error) {
	return s.repo.ListIssues(ctx)
}

// GetIssue fetches one issue by ID.
func (s *Service) GetIssue(ctx context.Context, id int64) (Issue, error) {
	return s.repo.GetIssue(ctx, id)
}

// IssueInput carries the editable fields of an issue.
type IssueInput struct {
	Title       string
	Volume      int
	Number      int
	Year        int
	Description string
}

// CreateIssue inserts a new issue.
func (s *Service) CreateIssue(ctx context.Context, actor *permission.User, in IssueInput) (Issue, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermJournalIssueCreate, nil)); err != nil {
		return Issue{}, err
	}
	issue, err := fromInput(in)
	if err != nil {
		return Issue{}, err
	}
	return s.repo.CreateIssue(ctx, issue)
}

// UpdateIssue rewrites an issue's fields.
func (s *Service) UpdateIssue(ctx context.Context, actor *permission.User, id int64, in IssueInput) (Issue, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermJournalIssueUpdate, &permission.Context{UserID: actorID(actor), ResourceID: id})); err != nil {
		return Issue{}, err
	}
	issue, err := fromInput(in)
	if err != nil {
		return Issue{}, err
	}
	issue.ID = id
	return s.repo.UpdateIssue(ctx, issue)
}

// PublishIssue stamps the issue published. Publishing twice is refused.
func (s *Service) PublishIssue(ctx context.Context, actor *permission.User, id int64) (Issue, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermJournalIssueUpdate, &permission.Context{UserID: actorID(actor), ResourceID: id})); err != nil {
		return Issue{}, err
	}
	issue, err := s.repo.GetIssue(ctx, id)
	if err != nil {
		return Issue{}, err
	}
	if issue.Published() {
		return Issue{}, ErrAlreadyPublished
	}
	now := time.Now().UTC()
	if err := s.repo.MarkPublished(ctx, id, now); err != nil {
		return Issue{}, err
	}
	issue.PublishedAt = &now
	return issue, nil
}

// DeleteIssue removes an issue. Deletion is refused while articles are
// still linked, even for holders of an unconditional delete grant.
func (s *Service) DeleteIssue(ctx context.Context, actor *permission.User, id int64) error {
	linked, err := s.repo.CountLinkedArticles(ctx, id)
	if err != nil {
		return err
	}
	result := permission.CheckDelete(actor, permission.ResourceJournalIssue,
		&permission.Context{UserID: actorID(actor), ResourceID: id}, linked)
	if err := rbac.DenialOf(result); err != nil {
		return err
	}
	return s.repo.DeleteIssue(ctx, id)
}

func fromInput(in IssueInput) (Issue, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Issue{}, ErrTitleRequired
	}
	return Issue{
		Title:       title,
		Volume:      in.Volume,
		Number:      in.Number,
		Year:        in.Year,
		Description: strings.TrimSpace(in.Description),
	}, nil
}

func actorID(actor *permission.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
