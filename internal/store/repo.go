package store

import (
	"context"
	"time"
)

// ProgressEvent is one question attempt record, unique per
// (user, category, question). FirstCorrectAt is set once, on the first
// correct attempt, and never cleared; it alone decides XP.
type ProgressEvent struct {
	UserID         string
	Category       string
	QuestionID     string
	IsCorrect      bool
	Attempts       int
	CompletedAt    time.Time
	FirstCorrectAt *time.Time
}

// LessonProgress is the per-lesson record. Writes merge with the stored row:
// Score and XPEarned take the max, Completed is sticky.
type LessonProgress struct {
	UserID      string
	Category    string
	LessonID    string
	Completed   bool
	Score       int
	XPEarned    int
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// StreakRecord holds the persisted streak counters. LastActivityDate is a
// YYYY-MM-DD calendar date, empty when the user has never been active.
type StreakRecord struct {
	UserID           string
	CurrentStreak    int
	LongestStreak    int
	LastActivityDate string
}

// WeeklyGoal is a user-authored weekly target, soft-deleted via IsActive.
type WeeklyGoal struct {
	UserID      string
	GoalType    string
	TargetValue int
	IsActive    bool
	UpdatedAt   time.Time
}

// ExamResult is the append-only aggregate written when an exam completes.
type ExamResult struct {
	ID             string
	UserID         string
	Kind           string
	TotalScore     int
	ListeningScore int
	ReadingScore   int
	CategoryScores map[string]int
	Answered       int
	CreatedAt      time.Time
}

// ExamStats summarizes a user's exam history.
type ExamStats struct {
	Taken     int
	BestScore int
}

// MissionCompletion is a one-way record of a mission completed in a period.
type MissionCompletion struct {
	UserID      string
	MissionID   string
	Period      string
	XPReward    int
	CompletedAt time.Time
}

// ExamSnapshot is the raw single-slot recoverable exam state.
type ExamSnapshot struct {
	UserID  string
	Kind    string
	Payload []byte
	SavedAt time.Time
}

// ProgressEventRepo manages per-question attempt records.
type ProgressEventRepo interface {
	// RecordAttempt upserts the attempt. It reports true only when this call
	// is the one that first marked the question correct.
	RecordAttempt(ctx context.Context, ev ProgressEvent) (bool, error)

	// Get returns the record, or nil if the question was never attempted.
	Get(ctx context.Context, userID, category, questionID string) (*ProgressEvent, error)

	// CountFirstCorrect counts questions first answered correctly at or
	// after since. A zero since counts all of them.
	CountFirstCorrect(ctx context.Context, userID string, since time.Time) (int, error)

	// CorrectByCategory counts XP-bearing questions per category.
	CorrectByCategory(ctx context.Context, userID string) (map[string]int, error)

	// CountAnswered counts distinct questions last attempted at or after since.
	CountAnswered(ctx context.Context, userID string, since time.Time) (int, error)
}

// LessonProgressRepo manages per-lesson progress with monotonic merges.
type LessonProgressRepo interface {
	// Upsert merges lp into the stored row atomically and returns the result.
	Upsert(ctx context.Context, lp LessonProgress) (*LessonProgress, error)
	Get(ctx context.Context, userID, category, lessonID string) (*LessonProgress, error)
	ListByUser(ctx context.Context, userID string) ([]LessonProgress, error)

	// CompletedSince counts lessons first completed at or after since and
	// sums their XP.
	CompletedSince(ctx context.Context, userID string, since time.Time) (count, xp int, err error)
}

// StreakRepo manages the per-user streak row.
type StreakRepo interface {
	// Get returns the record, or nil if none exists yet.
	Get(ctx context.Context, userID string) (*StreakRecord, error)

	// RecordActivity writes rec if rec.LastActivityDate is later than the
	// stored date. Returns false when the stored row was already as recent.
	RecordActivity(ctx context.Context, rec StreakRecord) (bool, error)

	// ResetCurrent zeroes current_streak if the stored last activity date
	// still equals lastActivityDate.
	ResetCurrent(ctx context.Context, userID, lastActivityDate string) error
}

// WeeklyGoalRepo manages user-authored weekly goals.
type WeeklyGoalRepo interface {
	Upsert(ctx context.Context, g WeeklyGoal) error
	Deactivate(ctx context.Context, userID, goalType string, at time.Time) error
	ListActive(ctx context.Context, userID string) ([]WeeklyGoal, error)
}

// ExamResultRepo stores completed exam aggregates.
type ExamResultRepo interface {
	Insert(ctx context.Context, r ExamResult) error
	ListByUser(ctx context.Context, userID string, limit int) ([]ExamResult, error)
	Stats(ctx context.Context, userID string) (ExamStats, error)
}

// BadgeUnlockRepo stores first-unlock timestamps.
type BadgeUnlockRepo interface {
	// Unlock records badgeID at time at unless already recorded.
	Unlock(ctx context.Context, userID, badgeID string, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string) (map[string]time.Time, error)
}

// MissionLedgerRepo stores one-way mission completions.
type MissionLedgerRepo interface {
	Record(ctx context.Context, mc MissionCompletion) (bool, error)
	TotalXP(ctx context.Context, userID string) (int, error)
}

// SnapshotRepo manages the single-slot exam snapshot per (user, kind).
type SnapshotRepo interface {
	// Save overwrites the slot.
	Save(ctx context.Context, snap ExamSnapshot) error

	// Load returns the slot, or nil if it is empty.
	Load(ctx context.Context, userID, kind string) (*ExamSnapshot, error)

	Delete(ctx context.Context, userID, kind string) error
}
