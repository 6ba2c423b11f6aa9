package store

import (
	"context"
	"database/sql"
	"errors"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// streakRepo implements StreakRepo.
type streakRepo struct {
	store *Store
}

func (r *streakRepo) Get(ctx context.Context, userID string) (*StreakRecord, error) {
	b := r.store.builder()
	q := b.Select("current_streak", "longest_streak", "last_activity_date").
		From(b.Table("user_streaks")).
		Where(entsql.EQ("user_id", userID))

	rec := StreakRecord{UserID: userID}
	var last sql.NullString
	err := r.store.queryRowQ(ctx, q).Scan(&rec.CurrentStreak, &rec.LongestStreak, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get streak", err)
	}
	rec.LastActivityDate = last.String
	return &rec, nil
}

// RecordActivity upserts rec, but an existing row is only overwritten when
// the incoming date is later. Same-day repeats and stale replays are no-ops,
// and longest_streak never decreases.
func (r *streakRepo) RecordActivity(ctx context.Context, rec StreakRecord) (bool, error) {
	s := r.store
	q := s.builder().Insert("user_streaks").
		Columns("user_id", "current_streak", "longest_streak", "last_activity_date").
		Values(rec.UserID, rec.CurrentStreak, rec.LongestStreak, rec.LastActivityDate).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("current_streak")
				u.Set("longest_streak", entsql.Expr(s.greatest("user_streaks.longest_streak", "excluded.longest_streak")))
				u.SetExcluded("last_activity_date")
			}),
			entsql.UpdateWhere(entsql.ExprP(
				"user_streaks.last_activity_date IS NULL OR user_streaks.last_activity_date < excluded.last_activity_date",
			)),
		)
	res, err := s.execQ(ctx, q)
	if err != nil {
		return false, apperr.Storage("record streak activity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("record streak activity", err)
	}
	return n > 0, nil
}

func (r *streakRepo) ResetCurrent(ctx context.Context, userID, lastActivityDate string) error {
	q := r.store.builder().Update("user_streaks").
		Set("current_streak", 0).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("last_activity_date", lastActivityDate),
		))
	if _, err := r.store.execQ(ctx, q); err != nil {
		return apperr.Storage("reset streak", err)
	}
	return nil
}
