package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open creates a new Store for driver ("sqlite" or "postgres") at dsn.
// It applies recommended pragmas for SQLite and creates missing tables.
func Open(driver, dsn string) (*Store, error) {
	var (
		sqlDriver string
		dial      string
	)
	switch driver {
	case "sqlite", "":
		sqlDriver, dial = "sqlite", dialect.SQLite
	case "postgres":
		sqlDriver, dial = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dial == dialect.SQLite {
		// A single connection keeps pragmas and in-process writes consistent.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, dialect: dial}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the backend.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ProgressEventRepo() ProgressEventRepo {
	return &progressEventRepo{store: s}
}

func (s *Store) LessonProgressRepo() LessonProgressRepo {
	return &lessonProgressRepo{store: s}
}

func (s *Store) StreakRepo() StreakRepo {
	return &streakRepo{store: s}
}

func (s *Store) WeeklyGoalRepo() WeeklyGoalRepo {
	return &weeklyGoalRepo{store: s}
}

func (s *Store) ExamResultRepo() ExamResultRepo {
	return &examResultRepo{store: s}
}

func (s *Store) BadgeUnlockRepo() BadgeUnlockRepo {
	return &badgeUnlockRepo{store: s}
}

func (s *Store) MissionLedgerRepo() MissionLedgerRepo {
	return &missionLedgerRepo{store: s}
}

// SnapshotRepo returns the single-slot exam snapshot repo backed by this store.
func (s *Store) SnapshotRepo() SnapshotRepo {
	return &snapshotRepo{store: s}
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// greatest renders the two-argument maximum for the current dialect.
func (s *Store) greatest(a, b string) string {
	if s.dialect == dialect.Postgres {
		return fmt.Sprintf("GREATEST(%s, %s)", a, b)
	}
	return fmt.Sprintf("MAX(%s, %s)", a, b)
}

func (s *Store) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// querier is the common shape of ent's query builders.
type querier interface {
	Query() (string, []any)
}

func (s *Store) execQ(ctx context.Context, q querier) (sql.Result, error) {
	query, args := q.Query()
	return s.exec(ctx, query, args)
}

func (s *Store) queryQ(ctx context.Context, q querier) (*sql.Rows, error) {
	query, args := q.Query()
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRowQ(ctx context.Context, q querier) *sql.Row {
	query, args := q.Query()
	return s.db.QueryRowContext(ctx, query, args...)
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LINGUA_DB environment variable
// 2. $XDG_DATA_HOME/lingua/lingua.db
// 3. ~/.local/share/lingua/lingua.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LINGUA_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "lingua", "lingua.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func nullMillis(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
