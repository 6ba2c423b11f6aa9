package badges

import (
	"context"
	"time"

	"github.com/abhisek/lingua/internal/counters"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
)

// Result is the evaluated catalog for one user.
type Result struct {
	Badges    []Badge    `json:"badges"`
	NextTiers []NextTier `json:"next_tiers"`
	// NewlyUnlocked lists badges whose first unlock was recorded by this call.
	NewlyUnlocked []Badge `json:"newly_unlocked,omitempty"`
	Stale         bool    `json:"stale,omitempty"`
}

// Service evaluates badges and records first unlocks.
type Service struct {
	unlocks store.BadgeUnlockRepo
	log     *logger.Logger
	now     func() time.Time
}

// NewService creates a badge service.
func NewService(unlocks store.BadgeUnlockRepo, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		unlocks: unlocks,
		log:     log.With("service", "BadgeService"),
		now:     time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Evaluate computes the catalog for userID against c and persists the
// unlock time of any badge seen unlocked for the first time. Persisted
// times are never overwritten.
func (s *Service) Evaluate(ctx context.Context, userID string, c counters.Counters) Result {
	if userID == "" {
		badges := Evaluate(Catalog, c, nil)
		return Result{Badges: badges, NextTiers: NextTiers(badges)}
	}

	res := Result{Stale: c.Stale}
	unlocks, err := s.unlocks.ListByUser(ctx, userID)
	if err != nil {
		s.log.Warn("badge unlocks read failed", "user_id", userID, "error", err)
		unlocks = nil
		res.Stale = true
	}

	badges := Evaluate(Catalog, c, unlocks)
	if err == nil && !c.Stale {
		now := s.now()
		for i, b := range badges {
			if !b.Unlocked || b.UnlockedAt != nil {
				continue
			}
			added, err := s.unlocks.Unlock(ctx, userID, b.ID, now)
			if err != nil {
				s.log.Warn("record badge unlock failed", "user_id", userID, "badge_id", b.ID, "error", err)
				continue
			}
			if added {
				at := now
				badges[i].UnlockedAt = &at
				res.NewlyUnlocked = append(res.NewlyUnlocked, badges[i])
				s.log.Info("badge unlocked", "user_id", userID, "badge_id", b.ID, "rarity", string(b.Rarity))
			}
		}
	}

	res.Badges = badges
	res.NextTiers = NextTiers(badges)
	return res
}
