package model

import (
	"github.com/google/uuid"
)

// SessionStatus enumerates the submission state machine states.
// SUBMITTED is terminal: a session never re-enters IN_PROGRESS.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitting SessionStatus = "SUBMITTING"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
)

// SessionState is a point-in-time snapshot of a running session, sent to
// the exam-taking client (page reloads restore from this).
type SessionState struct {
	ExamID                 uuid.UUID            `json:"exam_id"`
	UserID                 int                  `json:"user_id"`
	Status                 SessionStatus        `json:"status"`
	CurrentIndex           int                  `json:"current_index"`
	TotalQuestions         int                  `json:"total_questions"`
	AnsweredCount          int                  `json:"answered_count"`
	TimeLeftSeconds        int                  `json:"time_left_seconds"`
	Answers                map[uuid.UUID]Answer `json:"answers"`
	MarkedQuestions        []uuid.UUID          `json:"marked_questions"`
	QuestionElapsedSeconds map[uuid.UUID]int    `json:"question_elapsed_seconds"`
}

// Progress is the lightweight answered-count view for the navigation bar.
type Progress struct {
	AnsweredCount  int `json:"answered_count"`
	TotalQuestions int `json:"total_questions"`
}

// SetAnswerRequest is the payload for answering the current question.
// Answer accepts a bare string (option key, true/false literal or free
// text) or an array form for multi-answer questions.
type SetAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     Answer    `json:"answer" binding:"required"`
}

// GoToQuestionRequest is the payload for jumping to a question by position.
type GoToQuestionRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// ToggleMarkRequest is the payload for flagging a question for review.
// The mark is advisory only and has no scoring effect.
type ToggleMarkRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}
