package store

import (
	"context"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// weeklyGoalRepo implements WeeklyGoalRepo.
type weeklyGoalRepo struct {
	store *Store
}

func (r *weeklyGoalRepo) Upsert(ctx context.Context, g WeeklyGoal) error {
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = time.Now()
	}
	q := r.store.builder().Insert("user_weekly_goals").
		Columns("user_id", "goal_type", "target_value", "is_active", "updated_at").
		Values(g.UserID, g.GoalType, g.TargetValue, boolInt(g.IsActive), toMillis(g.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("user_id", "goal_type"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("target_value")
				u.SetExcluded("is_active")
				u.SetExcluded("updated_at")
			}),
		)
	if _, err := r.store.execQ(ctx, q); err != nil {
		return apperr.Storage("upsert weekly goal", err)
	}
	return nil
}

func (r *weeklyGoalRepo) Deactivate(ctx context.Context, userID, goalType string, at time.Time) error {
	q := r.store.builder().Update("user_weekly_goals").
		Set("is_active", 0).
		Set("updated_at", toMillis(at)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("goal_type", goalType),
		))
	if _, err := r.store.execQ(ctx, q); err != nil {
		return apperr.Storage("deactivate weekly goal", err)
	}
	return nil
}

func (r *weeklyGoalRepo) ListActive(ctx context.Context, userID string) ([]WeeklyGoal, error) {
	b := r.store.builder()
	q := b.Select("goal_type", "target_value", "updated_at").
		From(b.Table("user_weekly_goals")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("is_active", 1),
		)).
		OrderBy("goal_type")

	rows, err := r.store.queryQ(ctx, q)
	if err != nil {
		return nil, apperr.Storage("list weekly goals", err)
	}
	defer rows.Close()

	var goals []WeeklyGoal
	for rows.Next() {
		g := WeeklyGoal{UserID: userID, IsActive: true}
		var updatedAt int64
		if err := rows.Scan(&g.GoalType, &g.TargetValue, &updatedAt); err != nil {
			return nil, apperr.Storage("scan weekly goal", err)
		}
		g.UpdatedAt = fromMillis(updatedAt)
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list weekly goals", err)
	}
	return goals, nil
}
