package store

import (
	"context"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// badgeUnlockRepo implements BadgeUnlockRepo. Rows are insert-only: the
// first unlock time is a one-way fact.
type badgeUnlockRepo struct {
	store *Store
}

func (r *badgeUnlockRepo) Unlock(ctx context.Context, userID, badgeID string, at time.Time) (bool, error) {
	q := r.store.builder().Insert("badge_unlocks").
		Columns("user_id", "badge_id", "unlocked_at").
		Values(userID, badgeID, toMillis(at)).
		OnConflict(
			entsql.ConflictColumns("user_id", "badge_id"),
			entsql.DoNothing(),
		)
	res, err := r.store.execQ(ctx, q)
	if err != nil {
		return false, apperr.Storage("unlock badge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("unlock badge", err)
	}
	return n > 0, nil
}

func (r *badgeUnlockRepo) ListByUser(ctx context.Context, userID string) (map[string]time.Time, error) {
	b := r.store.builder()
	q := b.Select("badge_id", "unlocked_at").
		From(b.Table("badge_unlocks")).
		Where(entsql.EQ("user_id", userID))

	rows, err := r.store.queryQ(ctx, q)
	if err != nil {
		return nil, apperr.Storage("list badge unlocks", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			id string
			at int64
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, apperr.Storage("scan badge unlock", err)
		}
		out[id] = fromMillis(at)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list badge unlocks", err)
	}
	return out, nil
}
