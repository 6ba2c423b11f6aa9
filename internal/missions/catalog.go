package missions

import "github.com/abhisek/lingua/internal/counters"

// Catalog is the fixed mission list, in display order.
var Catalog = []Definition{
	{
		ID:          "daily-lesson",
		Title:       "Complete a lesson",
		Type:        TypeDaily,
		Requirement: 1,
		XPReward:    20,
		Progress:    func(c counters.Counters) int { return boolProgress(c.LessonsCompleted > 0) },
	},
	{
		ID:          "daily-streak",
		Title:       "Keep your streak alive",
		Type:        TypeDaily,
		Requirement: 1,
		XPReward:    10,
		Progress:    func(c counters.Counters) int { return boolProgress(c.CurrentStreak > 0) },
	},
	{
		ID:          "weekly-toeic",
		Title:       "Take a mock exam",
		Type:        TypeWeekly,
		Requirement: 1,
		XPReward:    50,
		Progress:    func(c counters.Counters) int { return min(c.ExamsTaken, 1) },
	},
	{
		ID:          "weekly-lessons",
		Title:       "Complete 5 lessons",
		Type:        TypeWeekly,
		Requirement: 5,
		XPReward:    75,
		Progress:    func(c counters.Counters) int { return min(c.LessonsCompleted, 5) },
	},
	{
		ID:          "challenge-perfect",
		Title:       "Finish a lesson with a perfect score",
		Type:        TypeChallenge,
		Requirement: 1,
		XPReward:    100,
		Progress:    func(c counters.Counters) int { return min(c.PerfectLessons, 1) },
	},
}

func boolProgress(b bool) int {
	if b {
		return 1
	}
	return 0
}
