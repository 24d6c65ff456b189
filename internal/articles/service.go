package articles

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrInvalidTransition indicates a workflow move the current status
// does not allow.
var ErrInvalidTransition = errors.New("articles: invalid status transition")

// ErrTitleRequired indicates a missing article title.
var ErrTitleRequired = errors.New("articles: title required")

// RepositoryPort defines data access methods for articles.
type RepositoryPort interface {
	ListArticles(ctx context.Context, filter ListFilter) ([]Article, int, error)
	GetArticle(ctx context.Context, id int64) (Article, error)
	CreateArticle(ctx context.Context, a Article) (Article, error)
	UpdateArticle(ctx context.Context, a Article) (Article, error)
	UpdateStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error
	DeleteArticle(ctx context.Context, id int64) error
}

// ReviewPort records and reads editorial review history.
type ReviewPort interface {
	Record(ctx context.Context, log shared.ReviewLog) error
	List(ctx context.Context, articleID int64) ([]shared.ReviewLog, error)
}

// Notifier fans out workflow notifications off the request path.
type Notifier interface {
	ArticleSubmitted(ctx context.Context, article Article, actorID int64) error
	ArticleDecided(ctx context.Context, article Article, approved bool, note string) error
}

// Service handles article business logic: CRUD with author ownership,
// the draft/in_review/published workflow and its review trail.
type Service struct {
	repo     RepositoryPort
	reviews  ReviewPort
	notifier Notifier
	logger   *slog.Logger
	titler   cases.Caser
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, reviews ReviewPort, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		reviews:  reviews,
		notifier: notifier,
		logger:   logger,
		titler:   cases.Title(language.English),
	}
}

// ListArticles returns a filtered page of articles.
func (s *Service) ListArticles(ctx context.Context, filter ListFilter) ([]Article, shared.Pagination, error) {
	list, total, err := s.repo.ListArticles(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// GetArticle fetches one article the actor may read.
func (s *Service) GetArticle(ctx context.Context, actor *permission.User, id int64) (Article, error) {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleRead, contextFor(actor, a))); err != nil {
		return Article{}, err
	}
	return a, nil
}

// ArticleInput carries the author-editable fields.
type ArticleInput struct {
	Title   string
	Slug    string
	Summary string
	Body    string
	IssueID *int64
}

// CreateArticle inserts a new draft owned by the actor. Titles get
// headline casing, slugs default to a slugified title.
func (s *Service) CreateArticle(ctx context.Context, actor *permission.User, in ArticleInput) (Article, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleCreate, nil)); err != nil {
		return Article{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Article{}, ErrTitleRequired
	}
	a := Article{
		Title:    s.titler.String(title),
		Slug:     s.slugOr(in.Slug, title),
		Summary:  strings.TrimSpace(in.Summary),
		Body:     in.Body,
		Status:   StatusDraft,
		AuthorID: actor.ID,
		IssueID:  in.IssueID,
	}
	return s.repo.CreateArticle(ctx, a)
}

// UpdateArticle edits article content. Authors holding a plain
// article.UPDATE grant may only touch their own articles; editors with
// article.ALL may touch any.
func (s *Service) UpdateArticle(ctx context.Context, actor *permission.User, id int64, in ArticleInput) (Article, error) {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleUpdate, contextFor(actor, a))); err != nil {
		return Article{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Article{}, ErrTitleRequired
	}
	a.Title = s.titler.String(title)
	a.Slug = s.slugOr(in.Slug, title)
	a.Summary = strings.TrimSpace(in.Summary)
	a.Body = in.Body
	a.IssueID = in.IssueID
	return s.repo.UpdateArticle(ctx, a)
}

// DeleteArticle removes an article, owner-gated like updates.
func (s *Service) DeleteArticle(ctx context.Context, actor *permission.User, id int64) error {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleDelete, contextFor(actor, a))); err != nil {
		return err
	}
	return s.repo.DeleteArticle(ctx, id)
}

// SubmitArticle moves a draft into review and records the submission.
func (s *Service) SubmitArticle(ctx context.Context, actor *permission.User, id int64) (Article, error) {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleUpdate, contextFor(actor, a))); err != nil {
		return Article{}, err
	}
	if !a.Status.CanTransition(StatusInReview) {
		return Article{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, a.ID, StatusInReview, nil); err != nil {
		return Article{}, err
	}
	a.Status = StatusInReview
	s.record(ctx, shared.ReviewLog{ArticleID: a.ID, ActorID: actor.ID, Action: shared.ReviewSubmit})
	s.notifySubmitted(ctx, a, actor.ID)
	return a, nil
}

// ApproveArticle publishes an article under review. Deciding on
// submissions is an editor operation: it needs article.ALL, a blanket
// article.UPDATE grant is not enough.
func (s *Service) ApproveArticle(ctx context.Context, actor *permission.User, id int64, note string) (Article, error) {
	a, err := s.decisionTarget(ctx, actor, id)
	if err != nil {
		return Article{}, err
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, a.ID, StatusPublished, &now); err != nil {
		return Article{}, err
	}
	a.Status = StatusPublished
	a.PublishedAt = &now
	s.record(ctx, shared.ReviewLog{ArticleID: a.ID, ActorID: actor.ID, Action: shared.ReviewApprove, Note: note})
	s.notifyDecided(ctx, a, true, note)
	return a, nil
}

// RejectArticle sends an article under review back to draft.
func (s *Service) RejectArticle(ctx context.Context, actor *permission.User, id int64, note string) (Article, error) {
	a, err := s.decisionTarget(ctx, actor, id)
	if err != nil {
		return Article{}, err
	}
	if err := s.repo.UpdateStatus(ctx, a.ID, StatusDraft, nil); err != nil {
		return Article{}, err
	}
	a.Status = StatusDraft
	s.record(ctx, shared.ReviewLog{ArticleID: a.ID, ActorID: actor.ID, Action: shared.ReviewReject, Note: note})
	s.notifyDecided(ctx, a, false, note)
	return a, nil
}

// UnpublishArticle pulls a published article back to draft.
func (s *Service) UnpublishArticle(ctx context.Context, actor *permission.User, id int64) (Article, error) {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleAll, contextFor(actor, a))); err != nil {
		return Article{}, err
	}
	if !a.Status.CanTransition(StatusDraft) {
		return Article{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, a.ID, StatusDraft, nil); err != nil {
		return Article{}, err
	}
	a.Status = StatusDraft
	return a, nil
}

// ReviewHistory returns the review trail for an article the actor may
// read.
func (s *Service) ReviewHistory(ctx context.Context, actor *permission.User, id int64) ([]shared.ReviewLog, error) {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleRead, contextFor(actor, a))); err != nil {
		return nil, err
	}
	if s.reviews == nil {
		return nil, nil
	}
	return s.reviews.List(ctx, id)
}

func (s *Service) decisionTarget(ctx context.Context, actor *permission.User, id int64) (Article, error) {
	a, err := s.repo.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermArticleAll, contextFor(actor, a))); err != nil {
		return Article{}, err
	}
	if a.Status != StatusInReview {
		return Article{}, ErrInvalidTransition
	}
	return a, nil
}

func (s *Service) record(ctx context.Context, log shared.ReviewLog) {
	if s.reviews == nil {
		return
	}
	if err := s.reviews.Record(ctx, log); err != nil {
		s.logger.Warn("record review", slog.Int64("article_id", log.ArticleID), slog.Any("error", err))
	}
}

func (s *Service) notifySubmitted(ctx context.Context, a Article, actorID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ArticleSubmitted(ctx, a, actorID); err != nil {
		s.logger.Warn("notify submitted", slog.Int64("article_id", a.ID), slog.Any("error", err))
	}
}

func (s *Service) notifyDecided(ctx context.Context, a Article, approved bool, note string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ArticleDecided(ctx, a, approved, note); err != nil {
		s.logger.Warn("notify decided", slog.Int64("article_id", a.ID), slog.Any("error", err))
	}
}

func (s *Service) slugOr(slug, title string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = title
	}
	return slugify(slug)
}

func contextFor(actor *permission.User, a Article) *permission.Context {
	ctx := &permission.Context{ResourceID: a.ID, ResourceOwnerID: a.AuthorID}
	if actor != nil {
		ctx.UserID = actor.ID
	}
	return ctx
}

// slugify lowercases and strips a string down to url-safe characters.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
