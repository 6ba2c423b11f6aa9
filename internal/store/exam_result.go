package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingua/internal/apperr"
)

// examResultRepo implements ExamResultRepo.
type examResultRepo struct {
	store *Store
}

func (r *examResultRepo) Insert(ctx context.Context, res ExamResult) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	scores, err := json.Marshal(res.CategoryScores)
	if err != nil {
		return fmt.Errorf("marshal category scores: %w", err)
	}
	q := r.store.builder().Insert("exam_results").
		Columns("id", "user_id", "kind", "total_score", "listening_score", "reading_score",
			"category_scores", "answered", "created_at").
		Values(res.ID, res.UserID, res.Kind, res.TotalScore, res.ListeningScore, res.ReadingScore,
			string(scores), res.Answered, toMillis(res.CreatedAt))
	if _, err := r.store.execQ(ctx, q); err != nil {
		return apperr.Storage("insert exam result", err)
	}
	return nil
}

func (r *examResultRepo) ListByUser(ctx context.Context, userID string, limit int) ([]ExamResult, error) {
	b := r.store.builder()
	q := b.Select("id", "kind", "total_score", "listening_score", "reading_score",
		"category_scores", "answered", "created_at").
		From(b.Table("exam_results")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		q.Limit(limit)
	}

	rows, err := r.store.queryQ(ctx, q)
	if err != nil {
		return nil, apperr.Storage("list exam results", err)
	}
	defer rows.Close()

	var out []ExamResult
	for rows.Next() {
		res := ExamResult{UserID: userID}
		var (
			scores    string
			createdAt int64
		)
		if err := rows.Scan(&res.ID, &res.Kind, &res.TotalScore, &res.ListeningScore, &res.ReadingScore,
			&scores, &res.Answered, &createdAt); err != nil {
			return nil, apperr.Storage("scan exam result", err)
		}
		if err := json.Unmarshal([]byte(scores), &res.CategoryScores); err != nil {
			return nil, fmt.Errorf("unmarshal category scores for %s: %w", res.ID, err)
		}
		res.CreatedAt = fromMillis(createdAt)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list exam results", err)
	}
	return out, nil
}

func (r *examResultRepo) Stats(ctx context.Context, userID string) (ExamStats, error) {
	b := r.store.builder()
	q := b.Select(entsql.Count("*"), "COALESCE(MAX(total_score), 0)").
		From(b.Table("exam_results")).
		Where(entsql.EQ("user_id", userID))

	var st ExamStats
	if err := r.store.queryRowQ(ctx, q).Scan(&st.Taken, &st.BestScore); err != nil {
		return ExamStats{}, apperr.Storage("exam stats", err)
	}
	return st, nil
}
