package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// DeleteUser removes every per-user row across all collections in one
// transaction and returns the number of rows deleted.
func (s *Store) DeleteUser(ctx context.Context, userID string) (int64, error) {
	return s.deleteUserRows(ctx, userID, userTables)
}

func (s *Store) deleteUserRows(ctx context.Context, userID string, tables []string) (int64, error) {
	if userID == "" {
		return 0, apperr.ErrNotAuthenticated
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("begin delete user", err)
	}
	defer tx.Rollback()

	var total int64
	for _, table := range tables {
		query, args := s.builder().Delete(table).Where(entsql.EQ("user_id", userID)).Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, apperr.Storage(fmt.Sprintf("delete user rows from %s", table), err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage("commit delete user", err)
	}
	return total, nil
}
