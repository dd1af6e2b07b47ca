package session

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/model"
)

// BuildQuestionSet resolves an exam definition's question ID list against
// the catalog and returns the ordered question list the candidate will see.
//
// IDs with no catalog entry are filtered out silently: a dangling
// reference must not crash session start. Duplicate IDs are preserved as
// distinct positions; because answers and dwell time are keyed by question
// ID, duplicate occurrences share one answer and one time entry. That is a
// documented limitation, not something this function papers over.
//
// When the definition asks for shuffling, a single Fisher–Yates pass is
// applied at build time and the order is frozen for the session. A nil rng
// gets a time-seeded source; tests pass a fixed seed for reproducibility.
func BuildQuestionSet(def *model.ExamDefinition, catalog []model.Question, rng *rand.Rand) []model.Question {
	byID := make(map[uuid.UUID]model.Question, len(catalog))
	for _, q := range catalog {
		byID[q.ID] = q
	}

	ordered := make([]model.Question, 0, len(def.QuestionIDs))
	for _, id := range def.QuestionIDs {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}

	if def.ShuffleQuestions && len(ordered) > 1 {
		if rng == nil {
			rng = newRand()
		}
		for i := len(ordered) - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	return ordered
}
