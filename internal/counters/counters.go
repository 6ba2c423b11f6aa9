// Package counters builds the aggregate snapshot that missions and badges
// are evaluated against.
package counters

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/lingua/internal/cache"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/streak"
)

// Question categories that feed the vocabulary and grammar badges.
const (
	CategoryVocabulary = "vocabulary"
	CategoryGrammar    = "grammar"
)

// PerfectScore is the lesson score that counts as a perfect lesson.
const PerfectScore = 100

// Counters is a point-in-time view of a user's progress.
type Counters struct {
	CurrentStreak     int `json:"current_streak"`
	LongestStreak     int `json:"longest_streak"`
	TotalXP           int `json:"total_xp"`
	VocabularyCorrect int `json:"vocabulary_correct"`
	GrammarCorrect    int `json:"grammar_correct"`
	QuestionsAnswered int `json:"questions_answered"`
	LessonsCompleted  int `json:"lessons_completed"`
	PerfectLessons    int `json:"perfect_lessons"`
	ExamsTaken        int `json:"exams_taken"`
	BestExamScore     int `json:"best_exam_score"`
	// Hour is the local hour of day (0-23) when the snapshot was taken.
	Hour int `json:"hour"`

	Stale bool `json:"-"`
}

// StreakReader is the part of the streak service the aggregator needs.
type StreakReader interface {
	Get(ctx context.Context, userID string) (streak.Status, error)
}

// Aggregator reads the counter snapshot from storage.
type Aggregator struct {
	events  store.ProgressEventRepo
	lessons store.LessonProgressRepo
	exams   store.ExamResultRepo
	streaks StreakReader
	cache   cache.Cache
	log     *logger.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewAggregator creates an aggregator. TotalXP is left zero; callers that
// need it fill it from the XP ledger.
func NewAggregator(
	events store.ProgressEventRepo,
	lessons store.LessonProgressRepo,
	exams store.ExamResultRepo,
	streaks StreakReader,
	c cache.Cache,
	log *logger.Logger,
	loc *time.Location,
) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator{
		events:  events,
		lessons: lessons,
		exams:   exams,
		streaks: streaks,
		cache:   c,
		log:     log.With("service", "CountersAggregator"),
		loc:     loc,
		now:     time.Now,
	}
}

// SetClock overrides the time source.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Collect builds the snapshot for userID. With no user it returns zero
// counters. When storage fails the last cached snapshot is returned with
// Stale set.
func (a *Aggregator) Collect(ctx context.Context, userID string) (Counters, error) {
	now := a.now().In(a.loc)
	if userID == "" {
		return Counters{Hour: now.Hour()}, nil
	}

	c, err := a.collect(ctx, userID)
	if err != nil {
		a.log.Warn("counters read degraded to cache", "user_id", userID, "error", err)
		c = Counters{}
		if a.cache != nil {
			if cerr := a.cache.Get(ctx, cache.Key(cache.KindCounters, userID), &c); cerr != nil && !errors.Is(cerr, cache.ErrMiss) {
				a.log.Debug("read cached counters failed", "user_id", userID, "error", cerr)
			}
		}
		c.Stale = true
		c.Hour = now.Hour()
		return c, nil
	}
	c.Hour = now.Hour()

	if a.cache != nil && !c.Stale {
		if err := a.cache.Set(ctx, cache.Key(cache.KindCounters, userID), c); err != nil {
			a.log.Debug("cache counters failed", "user_id", userID, "error", err)
		}
	}
	return c, nil
}

func (a *Aggregator) collect(ctx context.Context, userID string) (Counters, error) {
	var c Counters

	st, err := a.streaks.Get(ctx, userID)
	if err != nil {
		return c, err
	}
	c.CurrentStreak = st.Current
	c.LongestStreak = st.Longest
	c.Stale = st.Stale

	byCategory, err := a.events.CorrectByCategory(ctx, userID)
	if err != nil {
		return c, err
	}
	c.VocabularyCorrect = byCategory[CategoryVocabulary]
	c.GrammarCorrect = byCategory[CategoryGrammar]

	if c.QuestionsAnswered, err = a.events.CountAnswered(ctx, userID, time.Time{}); err != nil {
		return c, err
	}

	lessons, err := a.lessons.ListByUser(ctx, userID)
	if err != nil {
		return c, err
	}
	c.LessonsCompleted = lo.CountBy(lessons, func(lp store.LessonProgress) bool {
		return lp.Completed
	})
	c.PerfectLessons = lo.CountBy(lessons, IsPerfect)

	stats, err := a.exams.Stats(ctx, userID)
	if err != nil {
		return c, err
	}
	c.ExamsTaken = stats.Taken
	c.BestExamScore = stats.BestScore
	return c, nil
}

// IsPerfect reports whether lp is a completed lesson with a perfect score.
func IsPerfect(lp store.LessonProgress) bool {
	return lp.Completed && lp.Score >= PerfectScore
}
