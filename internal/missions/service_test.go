package missions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/counters"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
)

type fakeCounters struct {
	c counters.Counters
}

func (f *fakeCounters) Collect(context.Context, string) (counters.Counters, error) {
	return f.c, nil
}

func newTestService(t *testing.T, mode XPMode) (*Service, *store.Store, *fakeCounters) {
	t.Helper()
	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fc := &fakeCounters{}
	svc := NewService(Deps{
		Counters: fc,
		Events:   s.ProgressEventRepo(),
		Lessons:  s.LessonProgressRepo(),
		Goals:    s.WeeklyGoalRepo(),
		Ledger:   s.MissionLedgerRepo(),
	}, mode, logger.Nop(), time.UTC)
	svc.SetClock(func() time.Time { return wed })
	return svc, s, fc
}

func TestMissionXPQualifying(t *testing.T) {
	svc, _, fc := newTestService(t, XPQualifying)
	ctx := context.Background()

	fc.c = counters.Counters{CurrentStreak: 1}
	got, err := svc.MissionXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	// Recomputed each read: not granted twice, and gone if the condition is.
	got, err = svc.MissionXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	fc.c = counters.Counters{}
	got, err = svc.MissionXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestMissionXPStaleCountersIsAnError(t *testing.T) {
	svc, _, fc := newTestService(t, XPQualifying)
	fc.c = counters.Counters{CurrentStreak: 1, Stale: true}

	_, err := svc.MissionXP(context.Background(), "u1")
	assert.True(t, apperr.IsStorage(err))
}

func TestMissionXPLedgered(t *testing.T) {
	svc, _, fc := newTestService(t, XPLedgered)
	ctx := context.Background()

	fc.c = counters.Counters{CurrentStreak: 1, PerfectLessons: 1}
	got, err := svc.MissionXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 110, got)

	// Same period: nothing new is recorded.
	got, err = svc.MissionXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 110, got)

	// Counters dropping does not take ledgered XP away.
	fc.c = counters.Counters{}
	got, err = svc.MissionXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 110, got)

	// Next day the daily mission can be earned again; the challenge cannot.
	svc.SetClock(func() time.Time { return wed.AddDate(0, 0, 1) })
	fc.c = counters.Counters{CurrentStreak: 2, PerfectLessons: 1}
	got, err = svc.MissionXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 120, got)
}

func TestMissionXPWithoutUser(t *testing.T) {
	svc, _, fc := newTestService(t, XPQualifying)
	fc.c = counters.Counters{CurrentStreak: 3}

	got, err := svc.MissionXP(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestGoals(t *testing.T) {
	svc, s, _ := newTestService(t, XPQualifying)
	ctx := context.Background()

	require.NoError(t, svc.SetGoal(ctx, "u1", "xp", 200))
	require.NoError(t, svc.SetGoal(ctx, "u1", "lessons", 4))
	require.NoError(t, svc.SetGoal(ctx, "u1", "questions", 2))

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	lastWeek := monday.Add(-time.Minute)

	events := s.ProgressEventRepo()
	for _, ev := range []store.ProgressEvent{
		{UserID: "u1", Category: "vocabulary", QuestionID: "old", IsCorrect: true, CompletedAt: lastWeek},
		{UserID: "u1", Category: "vocabulary", QuestionID: "q1", IsCorrect: true, CompletedAt: monday},
		{UserID: "u1", Category: "vocabulary", QuestionID: "q2", IsCorrect: false, CompletedAt: wed},
		{UserID: "u1", Category: "grammar", QuestionID: "q3", IsCorrect: true, CompletedAt: wed},
	} {
		_, err := events.RecordAttempt(ctx, ev)
		require.NoError(t, err)
	}
	_, err := s.LessonProgressRepo().Upsert(ctx, store.LessonProgress{
		UserID: "u1", Category: "grammar", LessonID: "l1", Completed: true, Score: 90, XPEarned: 40, UpdatedAt: wed,
	})
	require.NoError(t, err)
	_, err = s.LessonProgressRepo().Upsert(ctx, store.LessonProgress{
		UserID: "u1", Category: "grammar", LessonID: "l0", Completed: true, Score: 90, XPEarned: 40, UpdatedAt: lastWeek,
	})
	require.NoError(t, err)

	goals, err := svc.Goals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 3)

	byType := map[GoalType]GoalProgress{}
	for _, g := range goals {
		byType[g.GoalType] = g
	}
	assert.Equal(t, GoalProgress{GoalType: GoalXP, Target: 200, Progress: 140, Percent: 70}, byType[GoalXP])
	assert.Equal(t, GoalProgress{GoalType: GoalLessons, Target: 4, Progress: 1, Percent: 25}, byType[GoalLessons])
	assert.Equal(t, GoalProgress{GoalType: GoalQuestions, Target: 2, Progress: 3, Percent: 100}, byType[GoalQuestions])
}

func TestRemoveGoal(t *testing.T) {
	svc, _, _ := newTestService(t, XPQualifying)
	ctx := context.Background()

	require.NoError(t, svc.SetGoal(ctx, "u1", "xp", 100))
	require.NoError(t, svc.RemoveGoal(ctx, "u1", "xp"))

	goals, err := svc.Goals(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestSetGoalValidation(t *testing.T) {
	svc, _, _ := newTestService(t, XPQualifying)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetGoal(ctx, "", "xp", 10), apperr.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.SetGoal(ctx, "u1", "minutes", 10), apperr.ErrUnknownGoalType)
	assert.ErrorIs(t, svc.SetGoal(ctx, "u1", "xp", 0), apperr.ErrInvalidInput)
	assert.ErrorIs(t, svc.RemoveGoal(ctx, "u1", "minutes"), apperr.ErrUnknownGoalType)
}

func TestParseXPMode(t *testing.T) {
	m, err := ParseXPMode("")
	require.NoError(t, err)
	assert.Equal(t, XPQualifying, m)

	m, err = ParseXPMode("ledgered")
	require.NoError(t, err)
	assert.Equal(t, XPLedgered, m)

	_, err = ParseXPMode("forever")
	assert.Error(t, err)
}
