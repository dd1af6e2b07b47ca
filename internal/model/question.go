package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question variants.
type QuestionType string

const (
	QuestionTypeSingleAnswer        QuestionType = "SINGLE_ANSWER"
	QuestionTypeMultipleAnswers     QuestionType = "MULTIPLE_ANSWERS"
	QuestionTypeTrueFalse           QuestionType = "TRUE_FALSE"
	QuestionTypeConstructedResponse QuestionType = "CONSTRUCTED_RESPONSE"
)

// TrueFalse answers are one of two literal values.
const (
	AnswerTrue  = "true"
	AnswerFalse = "false"
)

// Question is a single catalog question. It is owned by the catalog and
// read-only to a running session.
type Question struct {
	ID            uuid.UUID         `json:"id"`
	Type          QuestionType      `json:"type"`
	Prompt        string            `json:"prompt"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer Answer            `json:"correct_answer"`
}

// QuestionForCandidate is a question stripped of its correct answer,
// safe to send to the exam-taking client.
type QuestionForCandidate struct {
	ID      uuid.UUID         `json:"id"`
	Type    QuestionType      `json:"type"`
	Prompt  string            `json:"prompt"`
	Options map[string]string `json:"options,omitempty"`
}

// ForCandidate returns the candidate-facing view of the question.
func (q *Question) ForCandidate() QuestionForCandidate {
	return QuestionForCandidate{
		ID:      q.ID,
		Type:    q.Type,
		Prompt:  q.Prompt,
		Options: q.Options,
	}
}
