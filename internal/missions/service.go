package missions

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/counters"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/xp"
)

// XPMode selects how mission XP is counted.
type XPMode string

const (
	// XPQualifying counts the rewards of missions completed right now.
	XPQualifying XPMode = "qualifying"
	// XPLedgered records each completion per period and counts the ledger.
	XPLedgered XPMode = "ledgered"
)

// ParseXPMode validates s; empty means XPQualifying.
func ParseXPMode(s string) (XPMode, error) {
	switch XPMode(s) {
	case "", XPQualifying:
		return XPQualifying, nil
	case XPLedgered:
		return XPLedgered, nil
	default:
		return "", fmt.Errorf("unknown mission xp mode %q", s)
	}
}

// CounterSource provides the counter snapshot missions are evaluated on.
type CounterSource interface {
	Collect(ctx context.Context, userID string) (counters.Counters, error)
}

// Service evaluates missions and weekly goals.
type Service struct {
	counters CounterSource
	events   store.ProgressEventRepo
	lessons  store.LessonProgressRepo
	goals    store.WeeklyGoalRepo
	ledger   store.MissionLedgerRepo
	mode     XPMode
	log      *logger.Logger
	loc      *time.Location
	now      func() time.Time
}

// Deps groups the service's storage dependencies.
type Deps struct {
	Counters CounterSource
	Events   store.ProgressEventRepo
	Lessons  store.LessonProgressRepo
	Goals    store.WeeklyGoalRepo
	Ledger   store.MissionLedgerRepo
}

// NewService creates a mission service.
func NewService(deps Deps, mode XPMode, log *logger.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	if mode == "" {
		mode = XPQualifying
	}
	return &Service{
		counters: deps.Counters,
		events:   deps.Events,
		lessons:  deps.Lessons,
		goals:    deps.Goals,
		ledger:   deps.Ledger,
		mode:     mode,
		log:      log.With("service", "MissionService"),
		loc:      loc,
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Mode returns the configured XP mode.
func (s *Service) Mode() XPMode {
	return s.mode
}

// Missions evaluates the catalog for userID. The bool reports whether the
// counters came from cache.
func (s *Service) Missions(ctx context.Context, userID string) ([]Mission, bool, error) {
	c, err := s.counters.Collect(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	ref := s.now().In(s.loc)
	ms := Evaluate(Catalog, c, ref)
	if s.mode == XPLedgered && userID != "" && !c.Stale {
		s.record(ctx, userID, ms, ref)
	}
	return ms, c.Stale, nil
}

// EvaluateCounters evaluates the catalog against an existing snapshot.
func (s *Service) EvaluateCounters(c counters.Counters) []Mission {
	return Evaluate(Catalog, c, s.now().In(s.loc))
}

// MissionXP returns the mission share of a user's XP under the configured mode.
func (s *Service) MissionXP(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	ms, stale, err := s.Missions(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.mode != XPLedgered {
		if stale {
			return 0, apperr.Storage("mission xp", fmt.Errorf("counters unavailable"))
		}
		return QualifyingXP(ms), nil
	}
	return s.ledger.TotalXP(ctx, userID)
}

func (s *Service) record(ctx context.Context, userID string, ms []Mission, ref time.Time) {
	for _, m := range ms {
		if !m.Completed {
			continue
		}
		added, err := s.ledger.Record(ctx, store.MissionCompletion{
			UserID:      userID,
			MissionID:   m.ID,
			Period:      Period(m.Type, ref),
			XPReward:    m.XPReward,
			CompletedAt: ref,
		})
		if err != nil {
			s.log.Warn("record mission completion failed", "user_id", userID, "mission_id", m.ID, "error", err)
			continue
		}
		if added {
			s.log.Info("mission completed", "user_id", userID, "mission_id", m.ID, "xp", m.XPReward)
		}
	}
}

// Goals evaluates the user's active weekly goals against activity since
// the most recent Monday 00:00 local time.
func (s *Service) Goals(ctx context.Context, userID string) ([]GoalProgress, error) {
	if userID == "" {
		return nil, nil
	}
	goals, err := s.goals.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return nil, nil
	}

	since := WeekStart(s.now().In(s.loc))
	week, err := s.weekTotals(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		gt := GoalType(g.GoalType)
		progress := week[gt]
		out = append(out, GoalProgress{
			GoalType: gt,
			Target:   g.TargetValue,
			Progress: progress,
			Percent:  Percent(progress, g.TargetValue),
		})
	}
	return out, nil
}

func (s *Service) weekTotals(ctx context.Context, userID string, since time.Time) (map[GoalType]int, error) {
	correct, err := s.events.CountFirstCorrect(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	lessons, lessonXP, err := s.lessons.CompletedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	answered, err := s.events.CountAnswered(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return map[GoalType]int{
		GoalXP:        correct*xp.PerCorrectAnswer + lessonXP,
		GoalLessons:   lessons,
		GoalQuestions: answered,
	}, nil
}

// SetGoal creates or replaces the user's goal of the given type.
func (s *Service) SetGoal(ctx context.Context, userID, goalType string, target int) error {
	if userID == "" {
		return apperr.ErrNotAuthenticated
	}
	gt, err := ParseGoalType(goalType)
	if err != nil {
		return err
	}
	if target <= 0 {
		return fmt.Errorf("%w: target must be positive", apperr.ErrInvalidInput)
	}
	return s.goals.Upsert(ctx, store.WeeklyGoal{
		UserID:      userID,
		GoalType:    string(gt),
		TargetValue: target,
		IsActive:    true,
		UpdatedAt:   s.now(),
	})
}

// RemoveGoal deactivates the user's goal of the given type.
func (s *Service) RemoveGoal(ctx context.Context, userID, goalType string) error {
	if userID == "" {
		return apperr.ErrNotAuthenticated
	}
	gt, err := ParseGoalType(goalType)
	if err != nil {
		return err
	}
	return s.goals.Deactivate(ctx, userID, string(gt), s.now())
}
