package streak

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/cache"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
)

// Status is the streak as presented to callers.
type Status struct {
	Current          int    `json:"current_streak"`
	Longest          int    `json:"longest_streak"`
	LastActivityDate string `json:"last_activity_date,omitempty"`
	State            State  `json:"state"`
	// Stale is set when storage was unreachable and the value came from cache.
	Stale bool `json:"stale,omitempty"`
}

// Service reads and records streak activity.
type Service struct {
	repo  store.StreakRepo
	cache cache.Cache
	log   *logger.Logger
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a streak service. loc sets the calendar-day boundary;
// nil means time.Local.
func NewService(repo store.StreakRepo, c cache.Cache, log *logger.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:  repo,
		cache: c,
		log:   log.With("service", "StreakService"),
		loc:   loc,
		now:   time.Now,
	}
}

// SetClock overrides the time source. Intended for tests and the CLI.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Location returns the calendar location used for day boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Get returns the effective streak for userID. A lapsed streak is corrected
// in storage as a side effect. Storage failures degrade to the cached value.
func (s *Service) Get(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{State: StateNoActivity}, nil
	}
	now := s.now()

	rec, err := s.load(ctx, userID)
	if err != nil {
		return s.fallback(ctx, userID, now, err), nil
	}

	eff, heal := Effective(rec, now, s.loc)
	if heal {
		if err := s.repo.ResetCurrent(ctx, userID, rec.LastActivityDate); err != nil {
			s.log.Warn("streak self-heal failed", "user_id", userID, "error", err)
		}
	}
	s.remember(ctx, userID, eff)
	return toStatus(eff, now, s.loc), nil
}

// RecordActivityToday marks userID active today. Calling it again on the
// same calendar day changes nothing.
func (s *Service) RecordActivityToday(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{}, apperr.ErrNotAuthenticated
	}
	now := s.now()

	rec, err := s.load(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	next, changed := Advance(rec, now, s.loc)
	if changed {
		wrote, err := s.repo.RecordActivity(ctx, next)
		if err != nil {
			return Status{}, err
		}
		if !wrote {
			// Another writer already recorded today; report what is stored.
			if next, err = s.load(ctx, userID); err != nil {
				return Status{}, err
			}
		}
		s.log.Debug("streak activity recorded", "user_id", userID, "current", next.CurrentStreak, "wrote", wrote)
	}
	s.remember(ctx, userID, next)
	return toStatus(next, now, s.loc), nil
}

func (s *Service) load(ctx context.Context, userID string) (store.StreakRecord, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return store.StreakRecord{}, err
	}
	if rec == nil {
		return store.StreakRecord{UserID: userID}, nil
	}
	return *rec, nil
}

func (s *Service) remember(ctx context.Context, userID string, rec store.StreakRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.Key(cache.KindStreak, userID), rec); err != nil {
		s.log.Debug("cache streak failed", "user_id", userID, "error", err)
	}
}

func (s *Service) fallback(ctx context.Context, userID string, now time.Time, cause error) Status {
	s.log.Warn("streak read degraded to cache", "user_id", userID, "error", cause)
	var rec store.StreakRecord
	if s.cache != nil {
		if err := s.cache.Get(ctx, cache.Key(cache.KindStreak, userID), &rec); err != nil && !errors.Is(err, cache.ErrMiss) {
			s.log.Debug("read cached streak failed", "user_id", userID, "error", err)
		}
	}
	eff, _ := Effective(rec, now, s.loc)
	st := toStatus(eff, now, s.loc)
	st.Stale = true
	return st
}

func toStatus(rec store.StreakRecord, now time.Time, loc *time.Location) Status {
	return Status{
		Current:          rec.CurrentStreak,
		Longest:          rec.LongestStreak,
		LastActivityDate: rec.LastActivityDate,
		State:            StateOf(rec, now, loc),
	}
}
