// Package app builds the service graph from configuration and owns the
// resources it opens.
package app

import (
	"fmt"
	"time"

	"github.com/abhisek/lingua/internal/badges"
	"github.com/abhisek/lingua/internal/cache"
	"github.com/abhisek/lingua/internal/config"
	"github.com/abhisek/lingua/internal/counters"
	"github.com/abhisek/lingua/internal/exam"
	"github.com/abhisek/lingua/internal/identity"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/missions"
	"github.com/abhisek/lingua/internal/progress"
	"github.com/abhisek/lingua/internal/questionbank"
	"github.com/abhisek/lingua/internal/store"
	"github.com/abhisek/lingua/internal/streak"
	"github.com/abhisek/lingua/internal/xp"
)

// Options overrides parts of the graph. Zero fields are built from config.
type Options struct {
	Store *store.Store
	Cache cache.Cache
	Bank  *questionbank.Bank
	// Now replaces the wall clock in every service.
	Now func() time.Time
}

// App holds the wired services.
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Store    *store.Store
	Cache    cache.Cache
	Verifier *identity.Verifier

	Ledger   *xp.Ledger
	Streaks  *streak.Service
	Counters *counters.Aggregator
	Missions *missions.Service
	Badges   *badges.Service
	Progress *progress.Service
	Exams    *exam.Service
	Bank     *questionbank.Bank

	ownStore bool
	ownCache bool
}

// New opens storage and cache per cfg and wires every service.
func New(cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	mode, err := missions.ParseXPMode(cfg.Missions.XPMode)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, Store: opts.Store, Cache: opts.Cache, Bank: opts.Bank}
	if a.Store == nil {
		if a.Store, err = OpenStore(cfg); err != nil {
			return nil, err
		}
		a.ownStore = true
	}
	if a.Cache == nil {
		if a.Cache, err = openCache(cfg); err != nil {
			a.Close()
			return nil, err
		}
		a.ownCache = true
	}
	if a.Bank == nil {
		if a.Bank, err = loadBank(cfg, log); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Verifier = identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	st := a.Store
	a.Streaks = streak.NewService(st.StreakRepo(), a.Cache, log, loc)
	a.Counters = counters.NewAggregator(st.ProgressEventRepo(), st.LessonProgressRepo(), st.ExamResultRepo(), a.Streaks, a.Cache, log, loc)
	a.Missions = missions.NewService(missions.Deps{
		Counters: a.Counters,
		Events:   st.ProgressEventRepo(),
		Lessons:  st.LessonProgressRepo(),
		Goals:    st.WeeklyGoalRepo(),
		Ledger:   st.MissionLedgerRepo(),
	}, mode, log, loc)
	a.Ledger = xp.NewLedger(st.ProgressEventRepo(), st.LessonProgressRepo(), a.Missions, a.Cache, log)
	a.Badges = badges.NewService(st.BadgeUnlockRepo(), log)
	a.Progress = progress.NewService(a.Ledger, a.Streaks, a.Counters, a.Missions, a.Badges, log)
	a.Exams = exam.NewService(st.SnapshotRepo(), st.ExamResultRepo(), a.Bank, exam.Config{
		DurationSeconds: cfg.Exam.DurationSeconds,
		AutosaveEvery:   cfg.Exam.AutosaveEvery,
		Clock:           exam.ClockFor(cfg.Exam.Clock),
	}, log)

	if opts.Now != nil {
		a.SetClock(opts.Now)
	}
	return a, nil
}

// SetClock replaces the time source of every clocked service.
func (a *App) SetClock(now func() time.Time) {
	a.Streaks.SetClock(now)
	a.Counters.SetClock(now)
	a.Missions.SetClock(now)
	a.Ledger.SetClock(now)
	a.Badges.SetClock(now)
	a.Exams.SetClock(now)
}

// Close releases what New opened.
func (a *App) Close() error {
	var firstErr error
	if a.ownCache && a.Cache != nil {
		firstErr = a.Cache.Close()
	}
	if a.ownStore && a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenStore opens the configured database, resolving the default sqlite
// path when no DSN is set.
func OpenStore(cfg *config.Config) (*store.Store, error) {
	dsn := cfg.DB.DSN
	if cfg.DB.Driver == "sqlite" {
		var err error
		if dsn == "" {
			dsn, err = store.DefaultDBPath()
		} else {
			err = store.EnsureDir(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
	}
	st, err := store.Open(cfg.DB.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func openCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Driver == "redis" {
		c, err := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemory(cfg.Cache.TTL), nil
}

func loadBank(cfg *config.Config, log *logger.Logger) (*questionbank.Bank, error) {
	if cfg.Exam.QuestionBank == "" {
		return questionbank.Sample(), nil
	}
	b, rep, err := questionbank.Load(cfg.Exam.QuestionBank)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	if rep.Skipped > 0 {
		log.Warn("question bank rows skipped", "path", cfg.Exam.QuestionBank, "skipped", rep.Skipped, "loaded", rep.Loaded)
	}
	return b, nil
}
