package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of one exam attempt. It is built exactly once, at
// the Submitting→Submitted transition, and is immutable afterwards. The
// in-memory copy is authoritative for the post-exam screen even if the
// durable write fails.
type Result struct {
	ID               uuid.UUID            `json:"id"`
	ExamID           uuid.UUID            `json:"exam_id"`
	UserID           int                  `json:"user_id"`
	Score            int                  `json:"score"`
	CorrectCount     int                  `json:"correct_count"`
	TotalQuestions   int                  `json:"total_questions"`
	Passed           bool                 `json:"passed"`
	TimeSpentMinutes int                  `json:"time_spent_minutes"`
	Answers          map[uuid.UUID]Answer `json:"answers"`
	CompletedAt      time.Time            `json:"completed_at"`
}
