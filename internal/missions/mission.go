// Package missions evaluates the mission catalog and user weekly goals.
// Nothing here is stored as completed: every read recomputes from counters.
package missions

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/lingua/internal/counters"
)

// Type is the time box of a mission.
type Type string

const (
	TypeDaily     Type = "daily"
	TypeWeekly    Type = "weekly"
	TypeChallenge Type = "challenge"
)

// Definition is one catalog row.
type Definition struct {
	ID          string
	Title       string
	Type        Type
	Requirement int
	XPReward    int
	Progress    func(counters.Counters) int
}

// Mission is a definition evaluated against a counter snapshot.
type Mission struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Type            Type       `json:"type"`
	Requirement     int        `json:"requirement"`
	CurrentProgress int        `json:"current_progress"`
	Completed       bool       `json:"completed"`
	XPReward        int        `json:"xp_reward"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// Evaluate computes every definition against c relative to ref.
func Evaluate(defs []Definition, c counters.Counters, ref time.Time) []Mission {
	return lo.Map(defs, func(d Definition, _ int) Mission {
		raw := d.Progress(c)
		return Mission{
			ID:              d.ID,
			Title:           d.Title,
			Type:            d.Type,
			Requirement:     d.Requirement,
			CurrentProgress: min(raw, d.Requirement),
			Completed:       raw >= d.Requirement,
			XPReward:        d.XPReward,
			ExpiresAt:       ExpiresAt(d.Type, ref),
		}
	})
}

// ExpiresAt returns the last instant of the mission's time box containing
// ref, in ref's location. Challenges never expire.
func ExpiresAt(t Type, ref time.Time) *time.Time {
	var end time.Time
	switch t {
	case TypeDaily:
		end = endOfDay(ref)
	case TypeWeekly:
		daysAhead := (7 - int(ref.Weekday())) % 7
		end = endOfDay(ref.AddDate(0, 0, daysAhead))
	default:
		return nil
	}
	return &end
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Period names the time box containing ref: the date for daily missions,
// the ISO week for weekly ones and empty for challenges.
func Period(t Type, ref time.Time) string {
	switch t {
	case TypeDaily:
		return ref.Format("2006-01-02")
	case TypeWeekly:
		y, w := ref.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	default:
		return ""
	}
}

// QualifyingXP sums the rewards of the missions currently completed.
func QualifyingXP(ms []Mission) int {
	return lo.SumBy(ms, func(m Mission) int {
		if m.Completed {
			return m.XPReward
		}
		return 0
	})
}
