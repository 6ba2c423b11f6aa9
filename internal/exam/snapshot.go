package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/abhisek/lingua/internal/apperr"
)

// SnapshotVersion is the current snapshot format. Snapshots with a
// different major version, or a newer one, are rejected.
const SnapshotVersion = "v1.1.0"

// Snapshot is the recoverable serialization of an in-progress session.
type Snapshot struct {
	Version              string     `json:"version"`
	Kind                 string     `json:"kind"`
	AllQuestions         []Question `json:"allQuestions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Results              []Result   `json:"results"`
	TimeRemaining        int        `json:"timeRemaining"`
	Duration             int        `json:"duration,omitempty"`
	SavedAt              int64      `json:"savedAt"`
}

const snapshotSchema = `{
	"type": "object",
	"required": ["version", "allQuestions", "currentQuestionIndex", "results", "timeRemaining", "savedAt"],
	"properties": {
		"version": {"type": "string", "pattern": "^v[0-9]+\\.[0-9]+\\.[0-9]+$"},
		"kind": {"type": "string"},
		"allQuestions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "category", "answer"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"category": {"type": "string"},
					"prompt": {"type": "string"},
					"options": {"type": "array", "items": {"type": "string"}},
					"answer": {"type": "string"},
					"points": {"type": "integer", "minimum": 0}
				}
			}
		},
		"currentQuestionIndex": {"type": "integer", "minimum": 0},
		"results": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["questionId", "category", "correct", "points"],
				"properties": {
					"questionId": {"type": "string"},
					"category": {"type": "string"},
					"selected": {"type": "string"},
					"correct": {"type": "boolean"},
					"points": {"type": "integer", "minimum": 0},
					"forfeited": {"type": "boolean"}
				}
			}
		},
		"timeRemaining": {"type": "integer", "minimum": 0},
		"duration": {"type": "integer", "minimum": 0},
		"savedAt": {"type": "integer", "minimum": 0}
	}
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(snapshotSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse snapshot schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://exam-snapshot.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// Snapshot captures an in-progress session as of now.
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.savedAt = now
	return Snapshot{
		Version:              SnapshotVersion,
		Kind:                 s.kind,
		AllQuestions:         s.questions,
		CurrentQuestionIndex: s.index,
		Results:              s.Results(),
		TimeRemaining:        s.timeRemaining,
		Duration:             s.duration,
		SavedAt:              now.UnixMilli(),
	}
}

// EncodeSnapshot serializes snap.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	if snap.Results == nil {
		snap.Results = []Result{}
	}
	return json.Marshal(snap)
}

// DecodeSnapshot parses and validates raw. Any failure wraps
// apperr.ErrInvalidSnapshot.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	sch, err := schema()
	if err != nil {
		return Snapshot{}, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Snapshot{}, invalid("parse: %v", err)
	}
	if err := sch.Validate(doc); err != nil {
		return Snapshot{}, invalid("schema: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, invalid("decode: %v", err)
	}
	if err := checkVersion(snap.Version); err != nil {
		return Snapshot{}, err
	}
	if err := checkConsistency(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func checkVersion(v string) error {
	if !semver.IsValid(v) {
		return invalid("version %q is not semver", v)
	}
	if semver.Major(v) != semver.Major(SnapshotVersion) {
		return invalid("version %s incompatible with %s", v, SnapshotVersion)
	}
	if semver.Compare(v, SnapshotVersion) > 0 {
		return invalid("version %s is newer than %s", v, SnapshotVersion)
	}
	return nil
}

func checkConsistency(snap Snapshot) error {
	n := len(snap.AllQuestions)
	if snap.CurrentQuestionIndex > n {
		return invalid("index %d past %d questions", snap.CurrentQuestionIndex, n)
	}
	if len(snap.Results) != snap.CurrentQuestionIndex {
		return invalid("%d results at index %d", len(snap.Results), snap.CurrentQuestionIndex)
	}
	for i, q := range snap.AllQuestions {
		if _, ok := Lookup(q.Category); !ok {
			return invalid("question %d has unknown category %q", i, q.Category)
		}
	}
	for i, r := range snap.Results {
		q := snap.AllQuestions[i]
		if r.QuestionID != q.ID {
			return invalid("result %d is for %q, want %q", i, r.QuestionID, q.ID)
		}
		if r.Category != q.Category {
			return invalid("result %d has category %q, want %q", i, r.Category, q.Category)
		}
		// Scoring is re-derived from the answer key; a row may not claim more.
		correct := !r.Forfeited && q.Check(r.Selected)
		if r.Correct != correct {
			return invalid("result %d marked correct=%t, answer key says %t", i, r.Correct, correct)
		}
		want := 0
		if correct {
			want = q.Worth()
		}
		if r.Points != want {
			return invalid("result %d has %d points, want %d", i, r.Points, want)
		}
	}
	if snap.Duration > 0 && snap.TimeRemaining > snap.Duration {
		return invalid("time remaining %d exceeds duration %d", snap.TimeRemaining, snap.Duration)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalidSnapshot, fmt.Sprintf(format, args...))
}

// Restore rebuilds an in-progress session from a validated snapshot.
// timeRemaining is the budget to resume with, chosen by the caller's Clock.
func Restore(snap Snapshot, timeRemaining int) *Session {
	duration := snap.Duration
	if duration <= 0 {
		duration = max(snap.TimeRemaining, DefaultDurationSeconds)
	}
	results := make([]Result, len(snap.Results))
	copy(results, snap.Results)
	return &Session{
		kind:          snap.Kind,
		questions:     snap.AllQuestions,
		index:         snap.CurrentQuestionIndex,
		results:       results,
		duration:      duration,
		timeRemaining: timeRemaining,
		savedAt:       time.UnixMilli(snap.SavedAt),
		state:         StateInProgress,
	}
}
