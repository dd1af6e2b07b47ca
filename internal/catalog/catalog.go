package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openexam/session-engine/internal/model"
)

// Catalog is the question/exam authoring collaborator, read-only to the
// session engine. Sessions never write back to it.
type Catalog interface {
	GetExamDefinition(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error)
	GetQuestions(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// PostgresCatalog reads exam definitions and questions from the authoring
// database.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a new PostgresCatalog.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

// GetExamDefinition retrieves one exam definition. question_ids is stored
// as a jsonb array so ordering and duplicate occurrences survive.
func (c *PostgresCatalog) GetExamDefinition(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	def := &model.ExamDefinition{}
	var questionIDs []byte

	err := c.pool.QueryRow(ctx,
		`SELECT id, title, duration_seconds, question_ids, shuffle_questions, passing_score_percent
		 FROM exams
		 WHERE id = $1`, examID,
	).Scan(&def.ID, &def.Title, &def.DurationSeconds, &questionIDs, &def.ShuffleQuestions, &def.PassingScorePercent)
	if err != nil {
		return nil, fmt.Errorf("get exam definition: %w", err)
	}

	if err := json.Unmarshal(questionIDs, &def.QuestionIDs); err != nil {
		return nil, fmt.Errorf("decode question ids: %w", err)
	}

	return def, nil
}

// GetQuestions retrieves the catalog entries for the given IDs. Missing
// IDs are simply absent from the response; the question-set builder is
// responsible for filtering dangling references.
func (c *PostgresCatalog) GetQuestions(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, type, prompt, options, correct_answer
		 FROM questions
		 WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options, correct []byte
		if err := rows.Scan(&q.ID, &q.Type, &q.Prompt, &options, &correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if options != nil {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("decode options: %w", err)
			}
		}
		if err := json.Unmarshal(correct, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("decode correct answer: %w", err)
		}
		q.CorrectAnswer = q.CorrectAnswer.CoerceFor(q.Type)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
