// Package progress composes the XP ledger, streak tracker, missions, weekly
// goals and badges into the per-user progression read model and the write
// paths that feed it.
package progress

import (
	"context"

	"github.com/abhisek/lingua/internal/badges"
	"github.com/abhisek/lingua/internal/counters"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/missions"
	"github.com/abhisek/lingua/internal/streak"
	"github.com/abhisek/lingua/internal/xp"
)

// Overview is everything the progress screen shows. Stale is set when any
// part was served from the last-known-good cache.
type Overview struct {
	XP       xp.Breakdown            `json:"xp"`
	Streak   streak.Status           `json:"streak"`
	Missions []missions.Mission      `json:"missions"`
	Goals    []missions.GoalProgress `json:"goals"`
	Badges   badges.Result           `json:"badges"`
	Counters counters.Counters       `json:"counters"`
	Stale    bool                    `json:"stale"`
}

// AnswerOutcome is the effect of recording a question attempt.
type AnswerOutcome struct {
	xp.AnswerResult
	Streak        streak.Status  `json:"streak"`
	NewlyUnlocked []badges.Badge `json:"newly_unlocked,omitempty"`
}

// LessonOutcome is the effect of recording a lesson submission.
type LessonOutcome struct {
	xp.LessonResult
	Streak        streak.Status  `json:"streak"`
	NewlyUnlocked []badges.Badge `json:"newly_unlocked,omitempty"`
}

// CounterSource builds the shared counter snapshot.
type CounterSource interface {
	Collect(ctx context.Context, userID string) (counters.Counters, error)
}

// Service is the progression facade.
type Service struct {
	ledger   *xp.Ledger
	streaks  *streak.Service
	counters CounterSource
	missions *missions.Service
	badges   *badges.Service
	log      *logger.Logger
}

// NewService wires the progression components together.
func NewService(ledger *xp.Ledger, streaks *streak.Service, c CounterSource, m *missions.Service, b *badges.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		ledger:   ledger,
		streaks:  streaks,
		counters: c,
		missions: m,
		badges:   b,
		log:      log.With("service", "ProgressService"),
	}
}

// Overview computes the full read model for userID. Storage failures
// degrade to cached values; only a failure with nothing to fall back to is
// returned.
func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	var ov Overview

	ov.XP = s.ledger.Breakdown(ctx, userID)

	st, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	ov.Streak = st

	c, err := s.snapshot(ctx, userID, ov.XP.Total)
	if err != nil {
		return Overview{}, err
	}
	ov.Counters = c
	ov.Missions = s.missions.EvaluateCounters(c)

	goals, err := s.missions.Goals(ctx, userID)
	if err != nil {
		s.log.Warn("weekly goals unavailable", "user_id", userID, "error", err)
		ov.Stale = true
	}
	ov.Goals = goals

	ov.Badges = s.badges.Evaluate(ctx, userID, c)

	ov.Stale = ov.Stale || ov.XP.Stale || ov.Streak.Stale || c.Stale || ov.Badges.Stale
	return ov, nil
}

// Badges evaluates the badge catalog for userID.
func (s *Service) Badges(ctx context.Context, userID string) (badges.Result, error) {
	c, err := s.snapshot(ctx, userID, s.ledger.Total(ctx, userID))
	if err != nil {
		return badges.Result{}, err
	}
	return s.badges.Evaluate(ctx, userID, c), nil
}

// Missions evaluates the mission catalog for userID.
func (s *Service) Missions(ctx context.Context, userID string) ([]missions.Mission, bool, error) {
	return s.missions.Missions(ctx, userID)
}

// RecordAnswer stores a question attempt, marks the user active today and
// reports badges the attempt unlocked.
func (s *Service) RecordAnswer(ctx context.Context, userID string, a xp.Answer) (AnswerOutcome, error) {
	res, err := s.ledger.RecordAnswer(ctx, userID, a)
	if err != nil {
		return AnswerOutcome{}, err
	}
	out := AnswerOutcome{AnswerResult: res}
	out.Streak, out.NewlyUnlocked = s.afterActivity(ctx, userID)
	return out, nil
}

// RecordLesson stores a lesson submission, marks the user active today and
// reports badges it unlocked.
func (s *Service) RecordLesson(ctx context.Context, userID string, l xp.Lesson) (LessonOutcome, error) {
	res, err := s.ledger.RecordLesson(ctx, userID, l)
	if err != nil {
		return LessonOutcome{}, err
	}
	out := LessonOutcome{LessonResult: res}
	out.Streak, out.NewlyUnlocked = s.afterActivity(ctx, userID)
	return out, nil
}

// RecordActivity marks the user active today.
func (s *Service) RecordActivity(ctx context.Context, userID string) (streak.Status, error) {
	return s.streaks.RecordActivityToday(ctx, userID)
}

// ExamCompleted updates streak and badges after an exam result is stored.
func (s *Service) ExamCompleted(ctx context.Context, userID string) []badges.Badge {
	_, unlocked := s.afterActivity(ctx, userID)
	return unlocked
}

// afterActivity runs the follow-up effects of a stored write. The write
// itself already succeeded, so failures here are logged and the streak
// falls back to a plain read.
func (s *Service) afterActivity(ctx context.Context, userID string) (streak.Status, []badges.Badge) {
	st, err := s.streaks.RecordActivityToday(ctx, userID)
	if err != nil {
		s.log.Warn("record streak activity failed", "user_id", userID, "error", err)
		if st, err = s.streaks.Get(ctx, userID); err != nil {
			st = streak.Status{Stale: true}
		}
	}

	c, err := s.snapshot(ctx, userID, s.ledger.Total(ctx, userID))
	if err != nil {
		s.log.Warn("badge evaluation skipped", "user_id", userID, "error", err)
		return st, nil
	}
	return st, s.badges.Evaluate(ctx, userID, c).NewlyUnlocked
}

func (s *Service) snapshot(ctx context.Context, userID string, totalXP int) (counters.Counters, error) {
	c, err := s.counters.Collect(ctx, userID)
	if err != nil {
		return counters.Counters{}, err
	}
	c.TotalXP = totalXP
	return c, nil
}
