package store

import (
	"context"
	"fmt"
)

// schema lists the tables in creation order. Column types are portable
// between SQLite and Postgres: timestamps are unix milliseconds, booleans
// are 0/1 integers so MAX/GREATEST implement a sticky OR.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS progress_events (
		user_id          TEXT    NOT NULL,
		category         TEXT    NOT NULL,
		question_id      TEXT    NOT NULL,
		is_correct       INTEGER NOT NULL DEFAULT 0,
		attempts         INTEGER NOT NULL DEFAULT 1,
		completed_at     BIGINT  NOT NULL,
		first_correct_at BIGINT,
		PRIMARY KEY (user_id, category, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lesson_progress (
		user_id      TEXT    NOT NULL,
		category     TEXT    NOT NULL,
		lesson_id    TEXT    NOT NULL,
		completed    INTEGER NOT NULL DEFAULT 0,
		score        INTEGER NOT NULL DEFAULT 0,
		xp_earned    INTEGER NOT NULL DEFAULT 0,
		completed_at BIGINT,
		updated_at   BIGINT  NOT NULL,
		PRIMARY KEY (user_id, category, lesson_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_streaks (
		user_id            TEXT    NOT NULL PRIMARY KEY,
		current_streak     INTEGER NOT NULL DEFAULT 0,
		longest_streak     INTEGER NOT NULL DEFAULT 0,
		last_activity_date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS user_weekly_goals (
		user_id      TEXT    NOT NULL,
		goal_type    TEXT    NOT NULL,
		target_value INTEGER NOT NULL,
		is_active    INTEGER NOT NULL DEFAULT 1,
		updated_at   BIGINT  NOT NULL,
		PRIMARY KEY (user_id, goal_type)
	)`,
	`CREATE TABLE IF NOT EXISTS exam_results (
		id              TEXT    NOT NULL PRIMARY KEY,
		user_id         TEXT    NOT NULL,
		kind            TEXT    NOT NULL,
		total_score     INTEGER NOT NULL,
		listening_score INTEGER NOT NULL,
		reading_score   INTEGER NOT NULL,
		category_scores TEXT    NOT NULL,
		answered        INTEGER NOT NULL,
		created_at      BIGINT  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS exam_results_user_created ON exam_results (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS badge_unlocks (
		user_id     TEXT   NOT NULL,
		badge_id    TEXT   NOT NULL,
		unlocked_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, badge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS mission_completions (
		user_id      TEXT    NOT NULL,
		mission_id   TEXT    NOT NULL,
		period       TEXT    NOT NULL,
		xp_reward    INTEGER NOT NULL,
		completed_at BIGINT  NOT NULL,
		PRIMARY KEY (user_id, mission_id, period)
	)`,
	`CREATE TABLE IF NOT EXISTS exam_snapshots (
		user_id  TEXT   NOT NULL,
		kind     TEXT   NOT NULL,
		payload  TEXT   NOT NULL,
		saved_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, kind)
	)`,
}

// userTables lists every per-user table, used by DeleteUser.
var userTables = []string{
	"progress_events",
	"lesson_progress",
	"user_streaks",
	"user_weekly_goals",
	"exam_results",
	"badge_unlocks",
	"mission_completions",
	"exam_snapshots",
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
