// Package xp computes total XP from three non-overlapping sources:
// first-correct training answers, lesson progress and missions.
package xp

import (
	"github.com/abhisek/lingua/internal/store"
)

// PerCorrectAnswer is awarded once per question, on its first correct answer.
const PerCorrectAnswer = 50

// Breakdown is a user's XP by source.
type Breakdown struct {
	Training int `json:"training"`
	Lesson   int `json:"lesson"`
	Mission  int `json:"mission"`
	Total    int `json:"total"`
	// Stale is set when any source came from cache.
	Stale bool `json:"stale,omitempty"`
}

// ReconcileLessonWrite merges an incoming lesson write into the previous
// record. Score and XP take the max, completion is sticky and the first
// completion time is kept. The merge is commutative and idempotent.
func ReconcileLessonWrite(prev *store.LessonProgress, incoming store.LessonProgress) store.LessonProgress {
	if !incoming.Completed {
		incoming.CompletedAt = nil
	}
	if prev == nil {
		return incoming
	}

	merged := incoming
	merged.Completed = prev.Completed || incoming.Completed
	merged.Score = max(prev.Score, incoming.Score)
	merged.XPEarned = max(prev.XPEarned, incoming.XPEarned)
	if prev.UpdatedAt.After(incoming.UpdatedAt) {
		merged.UpdatedAt = prev.UpdatedAt
	}
	switch {
	case prev.CompletedAt == nil:
		merged.CompletedAt = incoming.CompletedAt
	case incoming.CompletedAt == nil || prev.CompletedAt.Before(*incoming.CompletedAt):
		merged.CompletedAt = prev.CompletedAt
	}
	return merged
}
