package xp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/cache"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
)

// MissionXPSource supplies the mission share of XP.
type MissionXPSource interface {
	MissionXP(ctx context.Context, userID string) (int, error)
}

// Answer is one question attempt.
type Answer struct {
	Category   string    `json:"category"`
	QuestionID string    `json:"question_id"`
	IsCorrect  bool      `json:"is_correct"`
	At         time.Time `json:"-"`
}

// AnswerResult reports the XP effect of an attempt.
type AnswerResult struct {
	XPAwarded    int  `json:"xp_awarded"`
	FirstCorrect bool `json:"first_correct"`
}

// Lesson is one lesson submission.
type Lesson struct {
	Category  string    `json:"category"`
	LessonID  string    `json:"lesson_id"`
	Completed bool      `json:"completed"`
	Score     int       `json:"score"`
	XPEarned  int       `json:"xp_earned"`
	At        time.Time `json:"-"`
}

// LessonResult is the stored lesson after merging and the XP it added.
type LessonResult struct {
	Progress store.LessonProgress `json:"progress"`
	XPGained int                  `json:"xp_gained"`
}

// Ledger reads XP totals and records XP-bearing events.
type Ledger struct {
	events   store.ProgressEventRepo
	lessons  store.LessonProgressRepo
	missions MissionXPSource
	cache    cache.Cache
	log      *logger.Logger
	now      func() time.Time
}

// NewLedger creates a ledger. missions may be nil, in which case mission XP
// is always zero.
func NewLedger(events store.ProgressEventRepo, lessons store.LessonProgressRepo, missions MissionXPSource, c cache.Cache, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{
		events:   events,
		lessons:  lessons,
		missions: missions,
		cache:    c,
		log:      log.With("service", "XPLedger"),
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// ComputeTrainingXP is PerCorrectAnswer times the number of questions with
// a recorded first correct answer.
func (l *Ledger) ComputeTrainingXP(ctx context.Context, userID string) (int, error) {
	n, err := l.events.CountFirstCorrect(ctx, userID, time.Time{})
	if err != nil {
		return 0, err
	}
	return n * PerCorrectAnswer, nil
}

// ComputeLessonXP sums xp_earned across the user's lessons.
func (l *Ledger) ComputeLessonXP(ctx context.Context, userID string) (int, error) {
	lessons, err := l.lessons.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return lo.SumBy(lessons, func(lp store.LessonProgress) int { return lp.XPEarned }), nil
}

// ComputeMissionXP delegates to the mission source.
func (l *Ledger) ComputeMissionXP(ctx context.Context, userID string) (int, error) {
	if l.missions == nil {
		return 0, nil
	}
	return l.missions.MissionXP(ctx, userID)
}

// Breakdown computes every source. A failing source falls back to its last
// cached value and marks the result stale; it never fails the whole read.
func (l *Ledger) Breakdown(ctx context.Context, userID string) Breakdown {
	if userID == "" {
		return Breakdown{}
	}
	var b Breakdown
	var stale bool
	b.Training, stale = l.source(ctx, userID, cache.KindTrainingXP, l.ComputeTrainingXP)
	b.Stale = b.Stale || stale
	b.Lesson, stale = l.source(ctx, userID, cache.KindLessonXP, l.ComputeLessonXP)
	b.Stale = b.Stale || stale
	b.Mission, stale = l.source(ctx, userID, cache.KindMissionXP, l.ComputeMissionXP)
	b.Stale = b.Stale || stale
	b.Total = b.Training + b.Lesson + b.Mission
	return b
}

// Total returns the summed XP.
func (l *Ledger) Total(ctx context.Context, userID string) int {
	return l.Breakdown(ctx, userID).Total
}

func (l *Ledger) source(ctx context.Context, userID, kind string, compute func(context.Context, string) (int, error)) (int, bool) {
	key := cache.Key(kind, userID)
	v, err := compute(ctx, userID)
	if err == nil {
		if l.cache != nil {
			if err := l.cache.Set(ctx, key, v); err != nil {
				l.log.Debug("cache xp failed", "user_id", userID, "kind", kind, "error", err)
			}
		}
		return v, false
	}

	l.log.Warn("xp read degraded to cache", "user_id", userID, "kind", kind, "error", err)
	var cached int
	if l.cache != nil {
		if cerr := l.cache.Get(ctx, key, &cached); cerr != nil && !errors.Is(cerr, cache.ErrMiss) {
			l.log.Debug("read cached xp failed", "user_id", userID, "kind", kind, "error", cerr)
		}
	}
	return cached, true
}

// RecordAnswer stores an attempt. XP is awarded only by the attempt that
// first marks the question correct; replays and later attempts award none.
func (l *Ledger) RecordAnswer(ctx context.Context, userID string, a Answer) (AnswerResult, error) {
	if userID == "" {
		return AnswerResult{}, apperr.ErrNotAuthenticated
	}
	a.Category = strings.TrimSpace(a.Category)
	a.QuestionID = strings.TrimSpace(a.QuestionID)
	if a.Category == "" || a.QuestionID == "" {
		return AnswerResult{}, apperr.ErrInvalidInput
	}
	if a.At.IsZero() {
		a.At = l.now()
	}

	first, err := l.events.RecordAttempt(ctx, store.ProgressEvent{
		UserID:      userID,
		Category:    a.Category,
		QuestionID:  a.QuestionID,
		IsCorrect:   a.IsCorrect,
		CompletedAt: a.At,
	})
	if err != nil {
		return AnswerResult{}, err
	}

	res := AnswerResult{FirstCorrect: first}
	if first {
		res.XPAwarded = PerCorrectAnswer
	}
	l.log.Debug("answer recorded", "user_id", userID, "question_id", a.QuestionID, "correct", a.IsCorrect, "xp", res.XPAwarded)
	return res, nil
}

// RecordLesson merges a lesson submission into storage. A lower score or
// XP than already stored never regresses the record.
func (l *Ledger) RecordLesson(ctx context.Context, userID string, in Lesson) (LessonResult, error) {
	if userID == "" {
		return LessonResult{}, apperr.ErrNotAuthenticated
	}
	in.Category = strings.TrimSpace(in.Category)
	in.LessonID = strings.TrimSpace(in.LessonID)
	if in.Category == "" || in.LessonID == "" || in.Score < 0 || in.XPEarned < 0 {
		return LessonResult{}, apperr.ErrInvalidInput
	}
	if in.At.IsZero() {
		in.At = l.now()
	}

	prev, err := l.lessons.Get(ctx, userID, in.Category, in.LessonID)
	if err != nil {
		return LessonResult{}, err
	}
	merged, err := l.lessons.Upsert(ctx, store.LessonProgress{
		UserID:    userID,
		Category:  in.Category,
		LessonID:  in.LessonID,
		Completed: in.Completed,
		Score:     in.Score,
		XPEarned:  in.XPEarned,
		UpdatedAt: in.At,
	})
	if err != nil {
		return LessonResult{}, err
	}

	gained := merged.XPEarned
	if prev != nil {
		gained -= prev.XPEarned
	}
	return LessonResult{Progress: *merged, XPGained: max(gained, 0)}, nil
}
