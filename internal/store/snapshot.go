package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// snapshotRepo implements SnapshotRepo. Each (user, kind) has exactly one
// slot; every save overwrites it, last write wins.
type snapshotRepo struct {
	store *Store
}

func (r *snapshotRepo) Save(ctx context.Context, snap ExamSnapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	q := r.store.builder().Insert("exam_snapshots").
		Columns("user_id", "kind", "payload", "saved_at").
		Values(snap.UserID, snap.Kind, string(snap.Payload), toMillis(snap.SavedAt)).
		OnConflict(
			entsql.ConflictColumns("user_id", "kind"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("payload")
				u.SetExcluded("saved_at")
			}),
		)
	if _, err := r.store.execQ(ctx, q); err != nil {
		return apperr.Storage("save snapshot", err)
	}
	return nil
}

func (r *snapshotRepo) Load(ctx context.Context, userID, kind string) (*ExamSnapshot, error) {
	b := r.store.builder()
	q := b.Select("payload", "saved_at").
		From(b.Table("exam_snapshots")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("kind", kind),
		))

	var (
		payload string
		savedAt int64
	)
	err := r.store.queryRowQ(ctx, q).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("load snapshot", err)
	}
	return &ExamSnapshot{
		UserID:  userID,
		Kind:    kind,
		Payload: []byte(payload),
		SavedAt: fromMillis(savedAt),
	}, nil
}

func (r *snapshotRepo) Delete(ctx context.Context, userID, kind string) error {
	q := r.store.builder().Delete("exam_snapshots").
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("kind", kind),
		))
	if _, err := r.store.execQ(ctx, q); err != nil {
		return apperr.Storage("delete snapshot", err)
	}
	return nil
}
