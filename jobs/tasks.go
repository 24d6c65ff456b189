package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/chronicle-cms/chronicle/internal/articles"
	"github.com/chronicle-cms/chronicle/internal/notifications"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifySubmission fans a submission notice out to editors.
	TaskTypeNotifySubmission = "notify:submission"
	// TaskTypeNotifyDecision tells an author about an editorial decision.
	TaskTypeNotifyDecision = "notify:decision"
	// TaskTypeSessionSweep removes expired session records.
	TaskTypeSessionSweep = "session:sweep"
)

// idempotencyScope namespaces notification dedup keys in the shared store.
const idempotencyScope = "notifications"

// SubmissionPayload carries a submission event into the worker.
type SubmissionPayload struct {
	EventID      string `json:"event_id"`
	ArticleID    int64  `json:"article_id"`
	ArticleTitle string `json:"article_title"`
	ActorID      int64  `json:"actor_id"`
}

// DecisionPayload carries an editorial decision into the worker.
type DecisionPayload struct {
	EventID      string `json:"event_id"`
	ArticleID    int64  `json:"article_id"`
	ArticleTitle string `json:"article_title"`
	AuthorID     int64  `json:"author_id"`
	Approved     bool   `json:"approved"`
	Note         string `json:"note,omitempty"`
}

// NewSubmissionTask constructs a submission fan-out task.
func NewSubmissionTask(payload SubmissionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifySubmission, data), nil
}

// NewDecisionTask constructs a decision notification task.
func NewDecisionTask(payload DecisionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyDecision, data), nil
}

// NewSessionSweepTask constructs the cron-triggered sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionSweep, nil)
}

// NotificationJob handles the notification task types. Each event
// carries a unique ID checked against the idempotency store so a
// double enqueue cannot double a user's inbox; asynq retries after a
// handler failure release the key first.
type NotificationJob struct {
	Service     *notifications.Service
	Idempotency *shared.IdempotencyStore
	Logger      *slog.Logger
}

// NewNotificationJob initialises the notification handler.
func NewNotificationJob(service *notifications.Service, idem *shared.IdempotencyStore, logger *slog.Logger) *NotificationJob {
	return &NotificationJob{Service: service, Idempotency: idem, Logger: logger}
}

// HandleSubmission processes TaskTypeNotifySubmission tasks.
func (j *NotificationJob) HandleSubmission(ctx context.Context, t *asynq.Task) error {
	var payload SubmissionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if done, err := j.claim(ctx, payload.EventID); done || err != nil {
		return err
	}
	sent, err := j.Service.FanOutSubmission(ctx, payload.ArticleID, payload.ArticleTitle, payload.ActorID)
	if err != nil {
		j.release(ctx, payload.EventID)
		return err
	}
	j.Logger.Info("submission fan-out",
		slog.Int64("article_id", payload.ArticleID),
		slog.Int("recipients", sent))
	return nil
}

// HandleDecision processes TaskTypeNotifyDecision tasks.
func (j *NotificationJob) HandleDecision(ctx context.Context, t *asynq.Task) error {
	var payload DecisionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if done, err := j.claim(ctx, payload.EventID); done || err != nil {
		return err
	}
	if err := j.Service.NotifyDecision(ctx, payload.ArticleID, payload.ArticleTitle, payload.AuthorID, payload.Approved, payload.Note); err != nil {
		j.release(ctx, payload.EventID)
		return err
	}
	return nil
}

func (j *NotificationJob) claim(ctx context.Context, eventID string) (bool, error) {
	if j.Idempotency == nil || eventID == "" {
		return false, nil
	}
	err := j.Idempotency.CheckAndInsert(ctx, eventID, idempotencyScope)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return true, nil
	}
	return false, err
}

func (j *NotificationJob) release(ctx context.Context, eventID string) {
	if j.Idempotency == nil || eventID == "" {
		return
	}
	if err := j.Idempotency.Delete(ctx, eventID); err != nil {
		j.Logger.Warn("release idempotency key", slog.String("event_id", eventID), slog.Any("error", err))
	}
}

// SessionSweeper deletes expired session rows.
type SessionSweeper interface {
	SweepSessions(ctx context.Context) (int64, error)
}

// idempotencyRetention is how long processed event keys are kept
// before the sweep reclaims them. Long past the queue's retry window.
const idempotencyRetention = 7 * 24 * time.Hour

// SessionSweepJob runs the scheduled housekeeping pass: expired
// session rows plus aged-out idempotency keys.
type SessionSweepJob struct {
	Sweeper     SessionSweeper
	Idempotency *shared.IdempotencyStore
	Logger      *slog.Logger
}

// NewSessionSweepJob initialises the sweep handler.
func NewSessionSweepJob(sweeper SessionSweeper, idem *shared.IdempotencyStore, logger *slog.Logger) *SessionSweepJob {
	return &SessionSweepJob{Sweeper: sweeper, Idempotency: idem, Logger: logger}
}

// Handle executes the sweep.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	removed, err := j.Sweeper.SweepSessions(ctx)
	if err != nil {
		return err
	}
	if err := j.Idempotency.Cleanup(ctx, idempotencyRetention); err != nil {
		j.Logger.Warn("idempotency cleanup", slog.Any("error", err))
	}
	j.Logger.Info("session sweep",
		slog.Int64("removed", removed),
		slog.Duration("took", time.Since(start)))
	return nil
}

// Enqueuer pushes notification work onto the queue. It satisfies the
// articles service's notifier port.
type Enqueuer struct {
	client *Client
}

// NewEnqueuer wraps a queue client.
func NewEnqueuer(client *Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// ArticleSubmitted enqueues the submission fan-out.
func (e *Enqueuer) ArticleSubmitted(ctx context.Context, article articles.Article, actorID int64) error {
	task, err := NewSubmissionTask(SubmissionPayload{
		EventID:      uuid.NewString(),
		ArticleID:    article.ID,
		ArticleTitle: article.Title,
		ActorID:      actorID,
	})
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(ctx, task)
	return err
}

// ArticleDecided enqueues the author notification.
func (e *Enqueuer) ArticleDecided(ctx context.Context, article articles.Article, approved bool, note string) error {
	task, err := NewDecisionTask(DecisionPayload{
		EventID:      uuid.NewString(),
		ArticleID:    article.ID,
		ArticleTitle: article.Title,
		AuthorID:     article.AuthorID,
		Approved:     approved,
		Note:         note,
	})
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(ctx, task)
	return err
}
