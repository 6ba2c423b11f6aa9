package counters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/cache"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/streak"
)

var now = time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*store.Store, *Aggregator, cache.Cache) {
	t.Helper()
	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	c := cache.NewMemory(time.Hour)
	streaks := streak.NewService(s.StreakRepo(), c, logger.Nop(), time.UTC)
	streaks.SetClock(func() time.Time { return now })

	agg := NewAggregator(s.ProgressEventRepo(), s.LessonProgressRepo(), s.ExamResultRepo(), streaks, c, logger.Nop(), time.UTC)
	agg.SetClock(func() time.Time { return now })
	return s, agg, c
}

func TestCollect(t *testing.T) {
	s, agg, _ := setup(t)
	ctx := context.Background()

	events := s.ProgressEventRepo()
	for _, ev := range []store.ProgressEvent{
		{UserID: "u1", Category: CategoryVocabulary, QuestionID: "v1", IsCorrect: true},
		{UserID: "u1", Category: CategoryVocabulary, QuestionID: "v2", IsCorrect: true},
		{UserID: "u1", Category: CategoryGrammar, QuestionID: "g1", IsCorrect: true},
		{UserID: "u1", Category: CategoryGrammar, QuestionID: "g2", IsCorrect: false},
	} {
		ev.CompletedAt = now
		_, err := events.RecordAttempt(ctx, ev)
		require.NoError(t, err)
	}

	lessons := s.LessonProgressRepo()
	for _, lp := range []store.LessonProgress{
		{UserID: "u1", Category: "grammar", LessonID: "l1", Completed: true, Score: 100, XPEarned: 50},
		{UserID: "u1", Category: "grammar", LessonID: "l2", Completed: true, Score: 80, XPEarned: 40},
		{UserID: "u1", Category: "grammar", LessonID: "l3", Completed: false, Score: 100},
	} {
		lp.UpdatedAt = now
		_, err := lessons.Upsert(ctx, lp)
		require.NoError(t, err)
	}

	require.NoError(t, s.ExamResultRepo().Insert(ctx, store.ExamResult{ID: "e1", UserID: "u1", Kind: "full", TotalScore: 640, CreatedAt: now}))
	_, err := s.StreakRepo().RecordActivity(ctx, store.StreakRecord{UserID: "u1", CurrentStreak: 3, LongestStreak: 6, LastActivityDate: "2026-03-04"})
	require.NoError(t, err)

	c, err := agg.Collect(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Counters{
		CurrentStreak:     3,
		LongestStreak:     6,
		VocabularyCorrect: 2,
		GrammarCorrect:    1,
		QuestionsAnswered: 4,
		LessonsCompleted:  2,
		PerfectLessons:    1,
		ExamsTaken:        1,
		BestExamScore:     640,
		Hour:              23,
	}, c)
}

func TestCollectWithoutUser(t *testing.T) {
	_, agg, _ := setup(t)

	c, err := agg.Collect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Counters{Hour: 23}, c)
}

type failingExams struct{ store.ExamResultRepo }

func (failingExams) Stats(context.Context, string) (store.ExamStats, error) {
	return store.ExamStats{}, errors.New("db down")
}

func TestCollectFallsBackToCache(t *testing.T) {
	s, agg, c := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, cache.Key(cache.KindCounters, "u1"), Counters{LessonsCompleted: 7}))
	agg.exams = failingExams{s.ExamResultRepo()}

	got, err := agg.Collect(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.Stale)
	assert.Equal(t, 7, got.LessonsCompleted)
}

func TestIsPerfect(t *testing.T) {
	assert.True(t, IsPerfect(store.LessonProgress{Completed: true, Score: 100}))
	assert.False(t, IsPerfect(store.LessonProgress{Completed: true, Score: 99}))
	assert.False(t, IsPerfect(store.LessonProgress{Completed: false, Score: 100}))
}
