package missions

import (
	"time"

	"github.com/abhisek/lingua/internal/apperr"
)

// GoalType is what a weekly goal counts.
type GoalType string

const (
	GoalXP        GoalType = "xp"
	GoalLessons   GoalType = "lessons"
	GoalQuestions GoalType = "questions"
)

// AllGoalTypes returns the goal types in display order.
func AllGoalTypes() []GoalType {
	return []GoalType{GoalXP, GoalLessons, GoalQuestions}
}

// ParseGoalType validates s.
func ParseGoalType(s string) (GoalType, error) {
	for _, t := range AllGoalTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", apperr.ErrUnknownGoalType
}

// GoalProgress is a weekly goal evaluated for the current week.
type GoalProgress struct {
	GoalType GoalType `json:"goal_type"`
	Target   int      `json:"target_value"`
	Progress int      `json:"progress"`
	Percent  int      `json:"percent"`
}

// WeekStart returns the most recent Monday 00:00 in ref's location.
func WeekStart(ref time.Time) time.Time {
	daysSinceMonday := (int(ref.Weekday()) + 6) % 7
	y, m, d := ref.AddDate(0, 0, -daysSinceMonday).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ref.Location())
}

// Percent returns progress as a whole percentage of target, capped at 100.
func Percent(progress, target int) int {
	if target <= 0 {
		return 0
	}
	return min(100, 100*progress/target)
}
