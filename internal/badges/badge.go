// Package badges evaluates the achievement catalog against counters and
// persists first-unlock times.
package badges

import (
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/lingua/internal/counters"
)

// Badge is a definition evaluated against a counter snapshot.
type Badge struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Category        Category   `json:"category"`
	Rarity          Rarity     `json:"rarity"`
	Requirement     int        `json:"requirement"`
	CurrentProgress int        `json:"current_progress"`
	Unlocked        bool       `json:"unlocked"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty"`
}

// Evaluate computes every definition against c. unlocks holds persisted
// first-unlock times; a badge with one stays unlocked even if its
// condition no longer holds.
func Evaluate(defs []Definition, c counters.Counters, unlocks map[string]time.Time) []Badge {
	return lo.Map(defs, func(d Definition, _ int) Badge {
		v := d.Value(c)
		b := Badge{
			ID:              d.ID,
			Name:            d.Name,
			Description:     d.Description,
			Category:        d.Category,
			Rarity:          d.Rarity,
			Requirement:     d.Requirement,
			CurrentProgress: min(v, d.Requirement),
			Unlocked:        v >= d.Requirement,
		}
		if at, ok := unlocks[d.ID]; ok {
			b.Unlocked = true
			b.UnlockedAt = &at
		}
		return b
	})
}

// NextTier is the next locked badge of a category and how close it is.
type NextTier struct {
	Category Category `json:"category"`
	Badge    Badge    `json:"badge"`
	Percent  int      `json:"percent"`
}

// NextTiers returns, per category, the lowest-requirement locked badge.
// Categories with every badge unlocked are omitted.
func NextTiers(badges []Badge) []NextTier {
	byCat := lo.GroupBy(badges, func(b Badge) Category { return b.Category })
	var out []NextTier
	for _, cat := range AllCategories() {
		locked := lo.Filter(byCat[cat], func(b Badge, _ int) bool { return !b.Unlocked })
		if len(locked) == 0 {
			continue
		}
		next := lo.MinBy(locked, func(a, b Badge) bool { return a.Requirement < b.Requirement })
		out = append(out, NextTier{
			Category: cat,
			Badge:    next,
			Percent:  percent(next.CurrentProgress, next.Requirement),
		})
	}
	return out
}

func percent(progress, requirement int) int {
	if requirement <= 0 {
		return 100
	}
	return min(100, 100*progress/requirement)
}
