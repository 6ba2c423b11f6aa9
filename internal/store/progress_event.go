package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// progressEventRepo implements ProgressEventRepo.
type progressEventRepo struct {
	store *Store
}

func (r *progressEventRepo) RecordAttempt(ctx context.Context, ev ProgressEvent) (bool, error) {
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now()
	}
	b := r.store.builder()

	upsert := b.Insert("progress_events").
		Columns("user_id", "category", "question_id", "is_correct", "attempts", "completed_at").
		Values(ev.UserID, ev.Category, ev.QuestionID, boolInt(ev.IsCorrect), 1, toMillis(ev.CompletedAt)).
		OnConflict(
			entsql.ConflictColumns("user_id", "category", "question_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("is_correct")
				u.SetExcluded("completed_at")
				u.Set("attempts", entsql.Expr("progress_events.attempts + 1"))
			}),
		)
	if _, err := r.store.execQ(ctx, upsert); err != nil {
		return false, apperr.Storage("record attempt", err)
	}

	if !ev.IsCorrect {
		return false, nil
	}

	// Only the first correct attempt sets first_correct_at; concurrent
	// duplicates race on this single conditional update.
	mark := b.Update("progress_events").
		Set("first_correct_at", toMillis(ev.CompletedAt)).
		Where(entsql.And(
			entsql.EQ("user_id", ev.UserID),
			entsql.EQ("category", ev.Category),
			entsql.EQ("question_id", ev.QuestionID),
			entsql.IsNull("first_correct_at"),
		))
	res, err := r.store.execQ(ctx, mark)
	if err != nil {
		return false, apperr.Storage("mark first correct", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("mark first correct", err)
	}
	return n == 1, nil
}

func (r *progressEventRepo) Get(ctx context.Context, userID, category, questionID string) (*ProgressEvent, error) {
	b := r.store.builder()
	q := b.Select("is_correct", "attempts", "completed_at", "first_correct_at").
		From(b.Table("progress_events")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("category", category),
			entsql.EQ("question_id", questionID),
		))

	var (
		correct, attempts int
		completedAt       int64
		firstCorrect      sql.NullInt64
	)
	err := r.store.queryRowQ(ctx, q).Scan(&correct, &attempts, &completedAt, &firstCorrect)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get progress event", err)
	}
	return &ProgressEvent{
		UserID:         userID,
		Category:       category,
		QuestionID:     questionID,
		IsCorrect:      correct == 1,
		Attempts:       attempts,
		CompletedAt:    fromMillis(completedAt),
		FirstCorrectAt: fromNullMillis(firstCorrect),
	}, nil
}

func (r *progressEventRepo) CountFirstCorrect(ctx context.Context, userID string, since time.Time) (int, error) {
	b := r.store.builder()
	q := b.Select(entsql.Count("*")).
		From(b.Table("progress_events")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.NotNull("first_correct_at"),
		))
	if !since.IsZero() {
		q.Where(entsql.GTE("first_correct_at", toMillis(since)))
	}

	var n int
	if err := r.store.queryRowQ(ctx, q).Scan(&n); err != nil {
		return 0, apperr.Storage("count first correct", err)
	}
	return n, nil
}

func (r *progressEventRepo) CorrectByCategory(ctx context.Context, userID string) (map[string]int, error) {
	b := r.store.builder()
	q := b.Select("category", entsql.Count("*")).
		From(b.Table("progress_events")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.NotNull("first_correct_at"),
		)).
		GroupBy("category")

	rows, err := r.store.queryQ(ctx, q)
	if err != nil {
		return nil, apperr.Storage("count correct by category", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, apperr.Storage("scan category count", err)
		}
		out[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("count correct by category", fmt.Errorf("iterate: %w", err))
	}
	return out, nil
}

func (r *progressEventRepo) CountAnswered(ctx context.Context, userID string, since time.Time) (int, error) {
	b := r.store.builder()
	q := b.Select(entsql.Count("*")).
		From(b.Table("progress_events")).
		Where(entsql.EQ("user_id", userID))
	if !since.IsZero() {
		q.Where(entsql.GTE("completed_at", toMillis(since)))
	}

	var n int
	if err := r.store.queryRowQ(ctx, q).Scan(&n); err != nil {
		return 0, apperr.Storage("count answered", err)
	}
	return n, nil
}
