package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/cache"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
)

// fakeStreakRepo implements store.StreakRepo with the same conditional
// write rules as the SQL repo.
type fakeStreakRepo struct {
	recs   map[string]store.StreakRecord
	err    error
	writes int
	resets int
}

func newFakeRepo() *fakeStreakRepo {
	return &fakeStreakRepo{recs: map[string]store.StreakRecord{}}
}

func (f *fakeStreakRepo) Get(_ context.Context, userID string) (*store.StreakRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.recs[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStreakRepo) RecordActivity(_ context.Context, rec store.StreakRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	cur, ok := f.recs[rec.UserID]
	if ok && cur.LastActivityDate >= rec.LastActivityDate {
		return false, nil
	}
	if cur.LongestStreak > rec.LongestStreak {
		rec.LongestStreak = cur.LongestStreak
	}
	f.recs[rec.UserID] = rec
	f.writes++
	return true, nil
}

func (f *fakeStreakRepo) ResetCurrent(_ context.Context, userID, last string) error {
	if f.err != nil {
		return f.err
	}
	cur, ok := f.recs[userID]
	if ok && cur.LastActivityDate == last {
		cur.CurrentStreak = 0
		f.recs[userID] = cur
		f.resets++
	}
	return nil
}

func newTestService(repo store.StreakRepo, now time.Time) (*Service, cache.Cache) {
	c := cache.NewMemory(time.Hour)
	svc := NewService(repo, c, logger.Nop(), time.UTC)
	svc.SetClock(func() time.Time { return now })
	return svc, c
}

func TestGetWithoutRecordIsZero(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), wed)

	st, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Status{State: StateNoActivity}, st)
}

func TestGetWithoutIdentity(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), wed)

	st, err := svc.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)

	_, err = svc.RecordActivityToday(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}

func TestGetHealsLapsedStreak(t *testing.T) {
	repo := newFakeRepo()
	repo.recs["u1"] = store.StreakRecord{UserID: "u1", CurrentStreak: 5, LongestStreak: 5, LastActivityDate: "2026-03-01"}
	svc, _ := newTestService(repo, wed)

	st, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 5, st.Longest)
	assert.Equal(t, StateLapsed, st.State)

	assert.Equal(t, 1, repo.resets)
	assert.Equal(t, 0, repo.recs["u1"].CurrentStreak, "corrected value written back")
	assert.Equal(t, 5, repo.recs["u1"].LongestStreak)
}

func TestGetActiveDoesNotWrite(t *testing.T) {
	repo := newFakeRepo()
	repo.recs["u1"] = store.StreakRecord{UserID: "u1", CurrentStreak: 3, LongestStreak: 8, LastActivityDate: "2026-03-03"}
	svc, _ := newTestService(repo, wed)

	st, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Current)
	assert.Equal(t, 0, repo.resets)
	assert.Equal(t, 0, repo.writes)
}

func TestRecordActivityTodayTwice(t *testing.T) {
	repo := newFakeRepo()
	repo.recs["u1"] = store.StreakRecord{UserID: "u1", CurrentStreak: 2, LongestStreak: 2, LastActivityDate: "2026-03-03"}
	svc, _ := newTestService(repo, wed)
	ctx := context.Background()

	first, err := svc.RecordActivityToday(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Current)

	second, err := svc.RecordActivityToday(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.Current, second.Current)
	assert.Equal(t, 1, repo.writes)
}

func TestRecordActivityAfterOtherWriter(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, wed)
	ctx := context.Background()

	// Another device already recorded today.
	repo.recs["u1"] = store.StreakRecord{UserID: "u1", CurrentStreak: 4, LongestStreak: 4, LastActivityDate: "2026-03-04"}
	st, err := svc.RecordActivityToday(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Current)
}

func TestGetFallsBackToCache(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, wed)
	ctx := context.Background()

	_, err := svc.RecordActivityToday(ctx, "u1")
	require.NoError(t, err)

	repo.err = apperr.Storage("get streak", errors.New("connection refused"))
	st, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, st.Stale)
	assert.Equal(t, 1, st.Current)
}

func TestRecordActivityReportsWriteFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.err = apperr.Storage("get streak", errors.New("down"))
	svc, _ := newTestService(repo, wed)

	_, err := svc.RecordActivityToday(context.Background(), "u1")
	assert.True(t, apperr.IsStorage(err))
}
