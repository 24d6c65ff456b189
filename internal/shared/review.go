package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewAction enumerates editorial review actions.
type ReviewAction string

const (
	// ReviewSubmit marks an author submitting an article for review.
	ReviewSubmit ReviewAction = "SUBMIT"
	// ReviewApprove marks an editor approving an article.
	ReviewApprove ReviewAction = "APPROVE"
	// ReviewReject marks an editor sending an article back.
	ReviewReject ReviewAction = "REJECT"
)

// ReviewLog represents a single editorial review record.
type ReviewLog struct {
	ID        int64
	ArticleID int64
	ActorID   int64
	Action    ReviewAction
	Note      string
	At        time.Time
}

// ReviewTrail persists editorial review history.
type ReviewTrail struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewReviewTrail constructs ReviewTrail.
func NewReviewTrail(pool *pgxpool.Pool, logger *slog.Logger) *ReviewTrail {
	return &ReviewTrail{pool: pool, logger: logger}
}

// Record writes a review entry to the database.
func (r *ReviewTrail) Record(ctx context.Context, log ReviewLog) error {
	if r == nil {
		return errors.New("review trail not initialised")
	}
	if log.ArticleID == 0 {
		return errors.New("review article id required")
	}
	if log.ActorID == 0 {
		return errors.New("review actor required")
	}
	if log.Action == "" {
		return errors.New("review action required")
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO article_reviews (article_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`, log.ArticleID, log.ActorID, string(log.Action), log.Note, log.At)
	if err != nil {
		r.logger.Error("record review", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns review history for an article, oldest first.
func (r *ReviewTrail) List(ctx context.Context, articleID int64) ([]ReviewLog, error) {
	if r == nil {
		return nil, errors.New("review trail not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, article_id, actor_id, action, note, at
FROM article_reviews WHERE article_id=$1 ORDER BY at ASC`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ReviewLog
	for rows.Next() {
		var l ReviewLog
		var action string
		if err := rows.Scan(&l.ID, &l.ArticleID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ReviewAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// EnsureSubmit records a submit entry if one does not exist yet.
func (r *ReviewTrail) EnsureSubmit(ctx context.Context, articleID, actorID int64, note string) error {
	if r == nil {
		return errors.New("review trail not initialised")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT true FROM article_reviews WHERE article_id=$1 AND action='SUBMIT' LIMIT 1`, articleID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.Record(ctx, ReviewLog{ArticleID: articleID, ActorID: actorID, Action: ReviewSubmit, Note: note})
		}
		return err
	}
	return nil
}
