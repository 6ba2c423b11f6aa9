// Package exam runs the timed mock exam: a fixed, strictly ordered question
// sequence under a countdown, with single-slot snapshots for resume.
package exam

import (
	"fmt"
	"time"

	"github.com/abhisek/lingua/internal/apperr"
)

// State is the lifecycle state of a session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// DefaultDurationSeconds is the standard exam time budget.
const DefaultDurationSeconds = 7200

// Session is one exam attempt. The question index only moves forward and
// always equals the number of results.
type Session struct {
	kind          string
	questions     []Question
	index         int
	results       []Result
	duration      int
	timeRemaining int
	savedAt       time.Time
	state         State
	score         *Score
}

// NewSession creates a not-started session over questions.
func NewSession(kind string, questions []Question, durationSeconds int) (*Session, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question set", apperr.ErrInvalidInput)
	}
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", apperr.ErrInvalidInput)
	}
	for _, q := range questions {
		if _, ok := Lookup(q.Category); !ok {
			return nil, fmt.Errorf("%w: question %s has unknown category %q", apperr.ErrInvalidInput, q.ID, q.Category)
		}
	}
	qs := make([]Question, len(questions))
	copy(qs, questions)
	return &Session{
		kind:      kind,
		questions: qs,
		duration:  durationSeconds,
		state:     StateNotStarted,
	}, nil
}

// Start begins the countdown from the full duration.
func (s *Session) Start(now time.Time) error {
	if s.state != StateNotStarted {
		return apperr.IllegalTransition(string(s.state), "start")
	}
	s.index = 0
	s.results = nil
	s.timeRemaining = s.duration
	s.savedAt = now
	s.state = StateInProgress
	return nil
}

// SubmitAnswer grades selected against the current question, records the
// result and advances. Submitting past the last question completes the
// session and is rejected.
func (s *Session) SubmitAnswer(selected string) (Result, error) {
	if err := s.requireNext("submit_answer"); err != nil {
		return Result{}, err
	}
	q := s.questions[s.index]
	r := Result{
		QuestionID: q.ID,
		Category:   q.Category,
		Selected:   selected,
		Correct:    q.Check(selected),
	}
	if r.Correct {
		r.Points = q.Worth()
	}
	s.append(r)
	return r, nil
}

// VisibilityLost scores the current question as incorrect and advances.
// The clock is not paused.
func (s *Session) VisibilityLost() (Result, error) {
	if err := s.requireNext("visibility_lost"); err != nil {
		return Result{}, err
	}
	q := s.questions[s.index]
	r := Result{
		QuestionID: q.ID,
		Category:   q.Category,
		Forfeited:  true,
	}
	s.append(r)
	return r, nil
}

func (s *Session) requireNext(op string) error {
	if s.state != StateInProgress {
		return apperr.IllegalTransition(string(s.state), op)
	}
	if s.index >= len(s.questions) {
		s.finish()
		return apperr.IllegalTransition(string(StateCompleted), op)
	}
	return nil
}

func (s *Session) append(r Result) {
	s.results = append(s.results, r)
	s.index++
}

// Tick counts down elapsed seconds. Reaching zero completes the session
// regardless of how many questions remain; it reports whether it did.
func (s *Session) Tick(seconds int) (bool, error) {
	if seconds <= 0 {
		return false, fmt.Errorf("%w: tick must be positive", apperr.ErrInvalidInput)
	}
	if s.state != StateInProgress {
		return false, apperr.IllegalTransition(string(s.state), "tick")
	}
	s.timeRemaining = max(s.timeRemaining-seconds, 0)
	if s.timeRemaining == 0 {
		s.finish()
		return true, nil
	}
	return false, nil
}

// Complete ends the session and returns its score.
func (s *Session) Complete() (Score, error) {
	if s.state != StateInProgress {
		return Score{}, apperr.IllegalTransition(string(s.state), "complete")
	}
	s.finish()
	return *s.score, nil
}

func (s *Session) finish() {
	sc := ScoreResults(s.questions, s.results)
	s.score = &sc
	s.state = StateCompleted
}

func (s *Session) Kind() string { return s.kind }
func (s *Session) State() State { return s.state }
func (s *Session) Index() int { return s.index }
func (s *Session) Len() int { return len(s.questions) }
func (s *Session) TimeRemaining() int { return s.timeRemaining }
func (s *Session) SavedAt() time.Time { return s.savedAt }
func (s *Session) Duration() int { return s.duration }
func (s *Session) Questions() []Question { return s.questions }

// Results returns a copy of the recorded results.
func (s *Session) Results() []Result {
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// Current returns the question awaiting an answer, or nil when none does.
func (s *Session) Current() *Question {
	if s.state != StateInProgress || s.index >= len(s.questions) {
		return nil
	}
	q := s.questions[s.index]
	return &q
}

// Score returns the final score once the session is completed.
func (s *Session) Score() *Score {
	return s.score
}
