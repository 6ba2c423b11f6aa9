package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// lessonProgressRepo implements LessonProgressRepo.
type lessonProgressRepo struct {
	store *Store
}

// Upsert applies the monotonic merge inside the database's own conflict
// resolution: score and xp_earned keep the max, completed keeps the OR and
// completed_at keeps the first completion time.
func (r *lessonProgressRepo) Upsert(ctx context.Context, lp LessonProgress) (*LessonProgress, error) {
	if lp.UpdatedAt.IsZero() {
		lp.UpdatedAt = time.Now()
	}
	if lp.Completed && lp.CompletedAt == nil {
		at := lp.UpdatedAt
		lp.CompletedAt = &at
	}
	if !lp.Completed {
		lp.CompletedAt = nil
	}

	s := r.store
	q := s.builder().Insert("lesson_progress").
		Columns("user_id", "category", "lesson_id", "completed", "score", "xp_earned", "completed_at", "updated_at").
		Values(lp.UserID, lp.Category, lp.LessonID, boolInt(lp.Completed), lp.Score, lp.XPEarned,
			nullMillis(lp.CompletedAt), toMillis(lp.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("user_id", "category", "lesson_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Set("completed", entsql.Expr(s.greatest("lesson_progress.completed", "excluded.completed")))
				u.Set("score", entsql.Expr(s.greatest("lesson_progress.score", "excluded.score")))
				u.Set("xp_earned", entsql.Expr(s.greatest("lesson_progress.xp_earned", "excluded.xp_earned")))
				u.Set("completed_at", entsql.Expr("COALESCE(lesson_progress.completed_at, excluded.completed_at)"))
				u.Set("updated_at", entsql.Expr(s.greatest("lesson_progress.updated_at", "excluded.updated_at")))
			}),
		)
	if _, err := s.execQ(ctx, q); err != nil {
		return nil, apperr.Storage("upsert lesson progress", err)
	}

	merged, err := r.Get(ctx, lp.UserID, lp.Category, lp.LessonID)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return nil, apperr.Storage("upsert lesson progress", errors.New("row missing after upsert"))
	}
	return merged, nil
}

func (r *lessonProgressRepo) Get(ctx context.Context, userID, category, lessonID string) (*LessonProgress, error) {
	b := r.store.builder()
	q := b.Select("completed", "score", "xp_earned", "completed_at", "updated_at").
		From(b.Table("lesson_progress")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("category", category),
			entsql.EQ("lesson_id", lessonID),
		))

	lp := LessonProgress{UserID: userID, Category: category, LessonID: lessonID}
	var (
		completed   int
		completedAt sql.NullInt64
		updatedAt   int64
	)
	err := r.store.queryRowQ(ctx, q).Scan(&completed, &lp.Score, &lp.XPEarned, &completedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get lesson progress", err)
	}
	lp.Completed = completed == 1
	lp.CompletedAt = fromNullMillis(completedAt)
	lp.UpdatedAt = fromMillis(updatedAt)
	return &lp, nil
}

func (r *lessonProgressRepo) ListByUser(ctx context.Context, userID string) ([]LessonProgress, error) {
	b := r.store.builder()
	q := b.Select("category", "lesson_id", "completed", "score", "xp_earned", "completed_at", "updated_at").
		From(b.Table("lesson_progress")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("category", "lesson_id")

	rows, err := r.store.queryQ(ctx, q)
	if err != nil {
		return nil, apperr.Storage("list lesson progress", err)
	}
	defer rows.Close()

	var out []LessonProgress
	for rows.Next() {
		lp := LessonProgress{UserID: userID}
		var (
			completed   int
			completedAt sql.NullInt64
			updatedAt   int64
		)
		if err := rows.Scan(&lp.Category, &lp.LessonID, &completed, &lp.Score, &lp.XPEarned, &completedAt, &updatedAt); err != nil {
			return nil, apperr.Storage("scan lesson progress", err)
		}
		lp.Completed = completed == 1
		lp.CompletedAt = fromNullMillis(completedAt)
		lp.UpdatedAt = fromMillis(updatedAt)
		out = append(out, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list lesson progress", err)
	}
	return out, nil
}

func (r *lessonProgressRepo) CompletedSince(ctx context.Context, userID string, since time.Time) (int, int, error) {
	b := r.store.builder()
	q := b.Select(entsql.Count("*"), "COALESCE(SUM(xp_earned), 0)").
		From(b.Table("lesson_progress")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("completed", 1),
			entsql.GTE("completed_at", toMillis(since)),
		))

	var count, xp int
	if err := r.store.queryRowQ(ctx, q).Scan(&count, &xp); err != nil {
		return 0, 0, apperr.Storage("lessons completed since", err)
	}
	return count, xp, nil
}
