package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openexam/session-engine/internal/model"
)

// ResultRepository handles durable exam result storage.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// SaveResult inserts a result record. Inserting the same result ID twice
// is a no-op, so retried writes stay idempotent.
func (r *ResultRepository) SaveResult(ctx context.Context, res *model.Result) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO results
		   (id, exam_id, user_id, score, correct_count, total_questions,
		    passed, time_spent_minutes, answers, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		res.ID, res.ExamID, res.UserID, res.Score, res.CorrectCount,
		res.TotalQuestions, res.Passed, res.TimeSpentMinutes, answers, res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// GetByExamAndUser retrieves a candidate's result for an exam, for the
// post-exam screen after a reload.
func (r *ResultRepository) GetByExamAndUser(ctx context.Context, examID uuid.UUID, userID int) (*model.Result, error) {
	res := &model.Result{}
	var answers []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, score, correct_count, total_questions,
		        passed, time_spent_minutes, answers, completed_at
		 FROM results
		 WHERE exam_id = $1 AND user_id = $2
		 ORDER BY completed_at DESC
		 LIMIT 1`, examID, userID,
	).Scan(&res.ID, &res.ExamID, &res.UserID, &res.Score, &res.CorrectCount,
		&res.TotalQuestions, &res.Passed, &res.TimeSpentMinutes, &answers, &res.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return res, nil
}

// ListByExam retrieves all results for an exam, newest first.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, score, correct_count, total_questions,
		        passed, time_spent_minutes, answers, completed_at
		 FROM results
		 WHERE exam_id = $1
		 ORDER BY completed_at DESC`, examID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		var answers []byte
		if err := rows.Scan(&res.ID, &res.ExamID, &res.UserID, &res.Score, &res.CorrectCount,
			&res.TotalQuestions, &res.Passed, &res.TimeSpentMinutes, &answers, &res.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(answers, &res.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
