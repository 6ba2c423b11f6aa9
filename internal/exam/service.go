package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/store"
)

// Exam kinds.
const (
	KindFull      = "full"
	KindListening = "listening"
	KindReading   = "reading"
)

// QuestionSource supplies the question set for an exam kind.
type QuestionSource interface {
	Questions(ctx context.Context, kind string) ([]Question, error)
}

// Config tunes the service.
type Config struct {
	DurationSeconds int
	// AutosaveEvery is the number of ticked seconds between snapshot saves.
	// Answers always save.
	AutosaveEvery int
	Clock         Clock
}

// View is a session as shown to the user.
type View struct {
	Kind          string          `json:"kind"`
	State         State           `json:"state"`
	Index         int             `json:"current_index"`
	Total         int             `json:"total_questions"`
	TimeRemaining int             `json:"time_remaining"`
	Current       *PublicQuestion `json:"current,omitempty"`
	LastResult    *Result         `json:"last_result,omitempty"`
	Score         *Score          `json:"score,omitempty"`
	ResultID      string          `json:"result_id,omitempty"`
	// Finalized is set on the one view that follows the result write.
	Finalized bool `json:"finalized,omitempty"`
}

// completedRetention is how long a completed session stays live in memory.
const completedRetention = 15 * time.Minute

type liveSession struct {
	mu        sync.Mutex
	sess      *Session
	unsaved   int
	resultID  string
	persisted bool
	// announce marks a result write not yet reported by a view.
	announce bool
	doneAt   time.Time
}

// idle reports whether the entry holds nothing worth keeping at now.
// Callers hold e.mu.
func (e *liveSession) idle(now time.Time) bool {
	if e.sess == nil {
		return true
	}
	return e.persisted && !e.announce && now.Sub(e.doneAt) >= completedRetention
}

// Service keeps live sessions in memory, autosaves them to the snapshot
// slot and writes the result record when a session completes.
type Service struct {
	snapshots store.SnapshotRepo
	results   store.ExamResultRepo
	source    QuestionSource
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
	newID     func() string

	mu   sync.Mutex
	live map[string]*liveSession
}

// NewService creates an exam service.
func NewService(snapshots store.SnapshotRepo, results store.ExamResultRepo, source QuestionSource, cfg Config, log *logger.Logger) *Service {
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = DefaultDurationSeconds
	}
	if cfg.AutosaveEvery <= 0 {
		cfg.AutosaveEvery = 10
	}
	if cfg.Clock == nil {
		cfg.Clock = ClientClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		snapshots: snapshots,
		results:   results,
		source:    source,
		cfg:       cfg,
		log:       log.With("service", "ExamService"),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		live:      make(map[string]*liveSession),
	}
}

// SetClock overrides the wall-clock source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) entry(userID, kind string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "/" + kind
	e, ok := s.live[key]
	if !ok {
		s.sweepLocked()
		e = &liveSession{}
		s.live[key] = e
	}
	return e
}

// sweepLocked drops entries that are empty or completed long enough ago.
// Entries busy with a request are skipped. Callers hold s.mu.
func (s *Service) sweepLocked() {
	now := s.now()
	for key, e := range s.live {
		if !e.mu.TryLock() {
			continue
		}
		if e.idle(now) {
			delete(s.live, key)
		}
		e.mu.Unlock()
	}
}

func (s *Service) drop(userID, kind string, e *liveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "/" + kind
	if s.live[key] == e {
		delete(s.live, key)
	}
}

// Live returns the number of sessions held in memory.
func (s *Service) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func normalizeKind(kind string) (string, error) {
	switch kind {
	case "":
		return KindFull, nil
	case KindFull, KindListening, KindReading:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown exam kind %q", apperr.ErrInvalidInput, kind)
	}
}

// Start discards any saved session of this kind and begins a new one.
func (s *Service) Start(ctx context.Context, userID, kind string) (View, error) {
	if userID == "" {
		return View{}, apperr.ErrNotAuthenticated
	}
	kind, err := normalizeKind(kind)
	if err != nil {
		return View{}, err
	}
	questions, err := s.source.Questions(ctx, kind)
	if err != nil {
		return View{}, err
	}
	sess, err := NewSession(kind, questions, s.cfg.DurationSeconds)
	if err != nil {
		return View{}, err
	}

	e := s.entry(userID, kind)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.snapshots.Delete(ctx, userID, kind); err != nil {
		return View{}, err
	}
	if err := sess.Start(s.now()); err != nil {
		return View{}, err
	}
	e.sess, e.unsaved, e.resultID, e.persisted, e.announce = sess, 0, "", false, false
	if err := s.save(ctx, userID, e); err != nil {
		return View{}, err
	}
	s.log.Info("exam started", "user_id", userID, "kind", kind, "questions", sess.Len())
	return view(e, nil), nil
}

// Status returns the live or saved session. Without one it reports
// not started; an unreadable snapshot counts as none.
func (s *Service) Status(ctx context.Context, userID, kind string) (View, error) {
	kind, err := normalizeKind(kind)
	if err != nil {
		return View{}, err
	}
	if userID == "" {
		return View{Kind: kind, State: StateNotStarted}, nil
	}
	e := s.entry(userID, kind)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.resume(ctx, userID, kind, e); err != nil {
		if errors.Is(err, apperr.ErrNoSession) {
			return View{Kind: kind, State: StateNotStarted}, nil
		}
		return View{}, err
	}
	return view(e, nil), nil
}

// Answer submits selected for the current question.
func (s *Service) Answer(ctx context.Context, userID, kind, selected string) (View, error) {
	return s.mutate(ctx, userID, kind, func(sess *Session) (*Result, error) {
		r, err := sess.SubmitAnswer(selected)
		if err != nil {
			return nil, err
		}
		return &r, nil
	}, true)
}

// VisibilityLost forfeits the current question.
func (s *Service) VisibilityLost(ctx context.Context, userID, kind string) (View, error) {
	return s.mutate(ctx, userID, kind, func(sess *Session) (*Result, error) {
		r, err := sess.VisibilityLost()
		if err != nil {
			return nil, err
		}
		return &r, nil
	}, true)
}

// Tick counts down seconds of exam time.
func (s *Service) Tick(ctx context.Context, userID, kind string, seconds int) (View, error) {
	return s.mutate(ctx, userID, kind, func(sess *Session) (*Result, error) {
		_, err := sess.Tick(seconds)
		return nil, err
	}, false)
}

// Complete ends the session, stores the result and clears the snapshot.
// Retrying after a failed result write stores it without rescoring;
// completing an already completed session returns it unchanged.
func (s *Service) Complete(ctx context.Context, userID, kind string) (View, error) {
	if userID == "" {
		return View{}, apperr.ErrNotAuthenticated
	}
	kind, err := normalizeKind(kind)
	if err != nil {
		return View{}, err
	}
	e := s.entry(userID, kind)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.resume(ctx, userID, kind, e); err != nil {
		return View{}, err
	}
	if e.sess.State() == StateInProgress {
		if _, err := e.sess.Complete(); err != nil {
			return View{}, err
		}
	}
	if err := s.finalize(ctx, userID, e); err != nil {
		return View{}, err
	}
	return view(e, nil), nil
}

// Abandon discards the session without writing a result.
func (s *Service) Abandon(ctx context.Context, userID, kind string) error {
	if userID == "" {
		return apperr.ErrNotAuthenticated
	}
	kind, err := normalizeKind(kind)
	if err != nil {
		return err
	}
	e := s.entry(userID, kind)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.snapshots.Delete(ctx, userID, kind); err != nil {
		return err
	}
	e.sess, e.unsaved, e.resultID, e.persisted, e.announce = nil, 0, "", false, false
	s.drop(userID, kind, e)
	s.log.Info("exam abandoned", "user_id", userID, "kind", kind)
	return nil
}

// Flush saves the live session if ticks are pending.
func (s *Service) Flush(ctx context.Context, userID, kind string) error {
	if userID == "" {
		return nil
	}
	kind, err := normalizeKind(kind)
	if err != nil {
		return err
	}
	e := s.entry(userID, kind)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil || e.sess.State() != StateInProgress || e.unsaved == 0 {
		return nil
	}
	return s.save(ctx, userID, e)
}

// History lists the user's completed exams, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]store.ExamResult, error) {
	if userID == "" {
		return nil, nil
	}
	return s.results.ListByUser(ctx, userID, limit)
}

func (s *Service) mutate(ctx context.Context, userID, kind string, op func(*Session) (*Result, error), saveAlways bool) (View, error) {
	if userID == "" {
		return View{}, apperr.ErrNotAuthenticated
	}
	kind, err := normalizeKind(kind)
	if err != nil {
		return View{}, err
	}
	e := s.entry(userID, kind)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.resume(ctx, userID, kind, e); err != nil {
		return View{}, err
	}
	before := e.sess.TimeRemaining()
	last, opErr := op(e.sess)
	e.unsaved += before - e.sess.TimeRemaining()

	// An op may complete the session even when it is rejected.
	if e.sess.State() == StateCompleted {
		if err := s.finalize(ctx, userID, e); err != nil {
			return View{}, err
		}
		return view(e, last), opErr
	}
	if opErr != nil {
		return View{}, opErr
	}
	if saveAlways || e.unsaved >= s.cfg.AutosaveEvery {
		if err := s.save(ctx, userID, e); err != nil {
			return View{}, err
		}
	}
	return view(e, last), nil
}

// resume loads the session for kind from the snapshot slot unless one is
// already live. A completed session stays live until the next start.
func (s *Service) resume(ctx context.Context, userID, kind string, e *liveSession) error {
	if e.sess != nil {
		return nil
	}

	raw, err := s.snapshots.Load(ctx, userID, kind)
	if err != nil {
		return err
	}
	if raw == nil {
		return apperr.ErrNoSession
	}
	snap, err := DecodeSnapshot(raw.Payload)
	if err != nil {
		s.log.Warn("discarding invalid exam snapshot", "user_id", userID, "kind", kind, "error", err)
		return apperr.ErrNoSession
	}

	snap.Kind = kind
	remaining := s.cfg.Clock.Remaining(snap, s.now())
	if remaining <= 0 {
		// Time ran out while away: score what was answered.
		e.sess = Restore(snap, 0)
		e.sess.finish()
		return s.finalize(ctx, userID, e)
	}
	e.sess = Restore(snap, remaining)
	s.log.Debug("exam resumed", "user_id", userID, "kind", kind, "index", snap.CurrentQuestionIndex, "time_remaining", remaining)
	return nil
}

func (s *Service) save(ctx context.Context, userID string, e *liveSession) error {
	now := s.now()
	raw, err := EncodeSnapshot(e.sess.Snapshot(now))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.snapshots.Save(ctx, store.ExamSnapshot{
		UserID:  userID,
		Kind:    e.sess.Kind(),
		Payload: raw,
		SavedAt: now,
	}); err != nil {
		return err
	}
	e.unsaved = 0
	return nil
}

// finalize writes the result of a completed session once and clears the
// snapshot slot.
func (s *Service) finalize(ctx context.Context, userID string, e *liveSession) error {
	if e.persisted {
		return nil
	}
	sc := e.sess.Score()
	if e.resultID == "" {
		e.resultID = s.newID()
	}
	err := s.results.Insert(ctx, store.ExamResult{
		ID:             e.resultID,
		UserID:         userID,
		Kind:           e.sess.Kind(),
		TotalScore:     sc.Total,
		ListeningScore: sc.Listening,
		ReadingScore:   sc.Reading,
		CategoryScores: sc.CategoryScores(),
		Answered:       sc.Answered,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return err
	}
	e.persisted = true
	e.announce = true
	e.doneAt = s.now()
	if err := s.snapshots.Delete(ctx, userID, e.sess.Kind()); err != nil {
		s.log.Warn("clear exam snapshot failed", "user_id", userID, "error", err)
	}
	s.log.Info("exam completed", "user_id", userID, "kind", e.sess.Kind(), "total", sc.Total, "answered", sc.Answered)
	return nil
}

// view renders e and consumes its pending result announcement.
func view(e *liveSession, last *Result) View {
	sess := e.sess
	v := View{
		Kind:          sess.Kind(),
		State:         sess.State(),
		Index:         sess.Index(),
		Total:         sess.Len(),
		TimeRemaining: sess.TimeRemaining(),
		LastResult:    last,
		Score:         sess.Score(),
		ResultID:      e.resultID,
		Finalized:     e.announce,
	}
	e.announce = false
	if q := sess.Current(); q != nil {
		pq := q.Public()
		v.Current = &pq
	}
	return v
}
