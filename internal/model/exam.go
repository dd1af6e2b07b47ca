package model

import (
	"github.com/google/uuid"
)

// ExamDefinition describes an exam as authored in the catalog. It is
// immutable once a session starts: the session works off its own captured
// question snapshot even if an admin edits the definition mid-attempt.
type ExamDefinition struct {
	ID                  uuid.UUID   `json:"id"`
	Title               string      `json:"title"`
	DurationSeconds     int         `json:"duration_seconds"`
	QuestionIDs         []uuid.UUID `json:"question_ids"`
	ShuffleQuestions    bool        `json:"shuffle_questions"`
	PassingScorePercent int         `json:"passing_score_percent"`
}

// DurationMinutes returns the exam duration in whole minutes.
func (d *ExamDefinition) DurationMinutes() int {
	return d.DurationSeconds / 60
}
