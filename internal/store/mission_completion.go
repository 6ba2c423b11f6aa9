package store

import (
	"context"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// missionLedgerRepo implements MissionLedgerRepo.
type missionLedgerRepo struct {
	store *Store
}

func (r *missionLedgerRepo) Record(ctx context.Context, mc MissionCompletion) (bool, error) {
	if mc.CompletedAt.IsZero() {
		mc.CompletedAt = time.Now()
	}
	q := r.store.builder().Insert("mission_completions").
		Columns("user_id", "mission_id", "period", "xp_reward", "completed_at").
		Values(mc.UserID, mc.MissionID, mc.Period, mc.XPReward, toMillis(mc.CompletedAt)).
		OnConflict(
			entsql.ConflictColumns("user_id", "mission_id", "period"),
			entsql.DoNothing(),
		)
	res, err := r.store.execQ(ctx, q)
	if err != nil {
		return false, apperr.Storage("record mission completion", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("record mission completion", err)
	}
	return n > 0, nil
}

func (r *missionLedgerRepo) TotalXP(ctx context.Context, userID string) (int, error) {
	b := r.store.builder()
	q := b.Select("COALESCE(SUM(xp_reward), 0)").
		From(b.Table("mission_completions")).
		Where(entsql.EQ("user_id", userID))

	var total int
	if err := r.store.queryRowQ(ctx, q).Scan(&total); err != nil {
		return 0, apperr.Storage("mission xp", err)
	}
	return total, nil
}
