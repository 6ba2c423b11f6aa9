package progress

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/badges"
	"github.com/abhisek/lingua/internal/cache"
	"github.com/abhisek/lingua/internal/counters"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/missions"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/streak"
	"github.com/abhisek/lingua/internal/xp"
)

// Wednesday morning.
var now = time.Date(2026, 3, 4, 6, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *store.Store, *missions.Service) {
	t.Helper()
	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := func() time.Time { return now }
	c := cache.NewMemory(time.Hour)
	log := logger.Nop()

	streaks := streak.NewService(s.StreakRepo(), c, log, time.UTC)
	streaks.SetClock(clock)
	agg := counters.NewAggregator(s.ProgressEventRepo(), s.LessonProgressRepo(), s.ExamResultRepo(), streaks, c, log, time.UTC)
	agg.SetClock(clock)
	ms := missions.NewService(missions.Deps{
		Counters: agg,
		Events:   s.ProgressEventRepo(),
		Lessons:  s.LessonProgressRepo(),
		Goals:    s.WeeklyGoalRepo(),
		Ledger:   s.MissionLedgerRepo(),
	}, missions.XPQualifying, log, time.UTC)
	ms.SetClock(clock)
	ledger := xp.NewLedger(s.ProgressEventRepo(), s.LessonProgressRepo(), ms, c, log)
	ledger.SetClock(clock)
	bs := badges.NewService(s.BadgeUnlockRepo(), log)
	bs.SetClock(clock)

	return NewService(ledger, streaks, agg, ms, bs, log), s, ms
}

func ids(bs []badges.Badge) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}

func TestOverviewAnonymous(t *testing.T) {
	svc, _, _ := setup(t)
	ov, err := svc.Overview(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, ov.XP.Total)
	assert.Equal(t, streak.StateNoActivity, ov.Streak.State)
	assert.Len(t, ov.Missions, len(missions.Catalog))
	assert.Empty(t, ov.Goals)
	assert.False(t, ov.Stale)
	// The early-bird window is an instantaneous condition.
	assert.Contains(t, ids(unlocked(ov.Badges.Badges)), "early-bird")
}

func unlocked(bs []badges.Badge) []badges.Badge {
	var out []badges.Badge
	for _, b := range bs {
		if b.Unlocked {
			out = append(out, b)
		}
	}
	return out
}

func TestRecordAnswerFeedsEverything(t *testing.T) {
	svc, _, ms := setup(t)
	ctx := context.Background()
	require.NoError(t, ms.SetGoal(ctx, "u1", "questions", 4))

	out, err := svc.RecordAnswer(ctx, "u1", xp.Answer{Category: counters.CategoryVocabulary, QuestionID: "v1", IsCorrect: true})
	require.NoError(t, err)
	assert.Equal(t, 50, out.XPAwarded)
	assert.True(t, out.FirstCorrect)
	assert.Equal(t, 1, out.Streak.Current)
	assert.Contains(t, ids(out.NewlyUnlocked), "early-bird")

	// A replay awards nothing and unlocks nothing new.
	out, err = svc.RecordAnswer(ctx, "u1", xp.Answer{Category: counters.CategoryVocabulary, QuestionID: "v1", IsCorrect: true})
	require.NoError(t, err)
	assert.Equal(t, 0, out.XPAwarded)
	assert.Empty(t, out.NewlyUnlocked)

	ov, err := svc.Overview(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, ov.XP.Training)
	assert.Equal(t, 10, ov.XP.Mission)
	assert.Equal(t, 60, ov.XP.Total)
	assert.Equal(t, 60, ov.Counters.TotalXP)
	assert.Equal(t, 1, ov.Counters.VocabularyCorrect)
	require.Len(t, ov.Goals, 1)
	assert.Equal(t, 1, ov.Goals[0].Progress)
	assert.Equal(t, 25, ov.Goals[0].Percent)
	assert.False(t, ov.Stale)
}

func TestRecordLessonUnlocksLessonBadges(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	out, err := svc.RecordLesson(ctx, "u1", xp.Lesson{Category: "grammar", LessonID: "g1", Completed: true, Score: 100, XPEarned: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, out.XPGained)
	got := ids(out.NewlyUnlocked)
	assert.Contains(t, got, "lessons-1")
	assert.Contains(t, got, "perfect-1")

	// daily-lesson 20, daily-streak 10, challenge-perfect 100.
	res, err := svc.Badges(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, ids(unlocked(res.Badges)), "xp-100")

	ms, stale, err := svc.Missions(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, stale)
	done := 0
	for _, m := range ms {
		if m.Completed {
			done++
		}
	}
	assert.Equal(t, 3, done)
}

func TestWritesRequireIdentity(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.RecordAnswer(ctx, "", xp.Answer{Category: "vocabulary", QuestionID: "q"})
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	_, err = svc.RecordLesson(ctx, "", xp.Lesson{Category: "grammar", LessonID: "l"})
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	_, err = svc.RecordActivity(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}

func TestExamCompletedUnlocksExamBadge(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.ExamResultRepo().Insert(ctx, store.ExamResult{
		ID: "r1", UserID: "u1", Kind: "full", TotalScore: 650, CreatedAt: now,
	}))
	got := ids(svc.ExamCompleted(ctx, "u1"))
	assert.Contains(t, got, "exam-1")
	assert.Contains(t, got, "score-600")
	assert.NotContains(t, got, "score-900")
}
