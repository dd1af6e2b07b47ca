package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/model"
)

// AnswerStore maps question ID → candidate answer, independent of display
// order. Entries are only ever added or overwritten; there is no clear
// affordance, so a key present once stays present.
type AnswerStore struct {
	mu      sync.Mutex
	answers map[uuid.UUID]model.Answer
}

// NewAnswerStore creates an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[uuid.UUID]model.Answer)}
}

// Set records an answer for a question, dispatching on the question type:
//
//   - SingleAnswer / TrueFalse: unconditional overwrite with the option key.
//   - MultipleAnswers: a single incoming key toggles membership in the
//     selected set (added if absent, removed if present); an incoming key
//     array replaces the selection wholesale (state-restore path).
//   - ConstructedResponse: unconditional overwrite with the free text. No
//     validation; an empty string still counts as answered once set.
func (s *AnswerStore) Set(q *model.Question, in model.Answer) {
	in = in.CoerceFor(q.Type)

	s.mu.Lock()
	defer s.mu.Unlock()

	if q.Type == model.QuestionTypeMultipleAnswers && in.Kind == model.AnswerKindChoices && len(in.Choices) == 1 {
		s.answers[q.ID] = toggleChoice(s.answers[q.ID], in.Choices[0])
		return
	}

	s.answers[q.ID] = in
}

// toggleChoice flips one key's membership in a multi-answer selection.
// Toggling the last key off leaves an empty selection; the entry itself
// is kept, so the question still counts as answered.
func toggleChoice(current model.Answer, key string) model.Answer {
	selected := current.Choices
	for i, k := range selected {
		if k == key {
			out := make([]string, 0, len(selected)-1)
			out = append(out, selected[:i]...)
			out = append(out, selected[i+1:]...)
			return model.ChoicesAnswer(out...)
		}
	}
	out := make([]string, 0, len(selected)+1)
	out = append(out, selected...)
	out = append(out, key)
	return model.ChoicesAnswer(out...)
}

// Get returns the recorded answer for a question, if any.
func (s *AnswerStore) Get(id uuid.UUID) (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[id]
	return a, ok
}

// AnsweredCount returns the number of questions with a recorded answer,
// regardless of answer quality.
func (s *AnswerStore) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Snapshot returns a copy of the answer map.
func (s *AnswerStore) Snapshot() map[uuid.UUID]model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]model.Answer, len(s.answers))
	for id, a := range s.answers {
		out[id] = a
	}
	return out
}
