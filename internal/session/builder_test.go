package session

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCatalog(n int) []model.Question {
	catalog := make([]model.Question, n)
	for i := range catalog {
		catalog[i] = model.Question{
			ID:            uuid.New(),
			Type:          model.QuestionTypeSingleAnswer,
			Prompt:        "q",
			Options:       map[string]string{"a": "A", "b": "B"},
			CorrectAnswer: model.ChoiceAnswer("a"),
		}
	}
	return catalog
}

func questionIDs(qs []model.Question) []uuid.UUID {
	ids := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func TestBuildQuestionSetPreservesCatalogOrder(t *testing.T) {
	catalog := makeCatalog(5)
	def := &model.ExamDefinition{QuestionIDs: questionIDs(catalog)}

	got := BuildQuestionSet(def, catalog, nil)

	require.Len(t, got, 5)
	assert.Equal(t, questionIDs(catalog), questionIDs(got))
}

func TestBuildQuestionSetFiltersDanglingIDs(t *testing.T) {
	catalog := makeCatalog(3)
	ids := questionIDs(catalog)
	// Splice in references to questions that no longer exist.
	ids = append([]uuid.UUID{uuid.New()}, ids...)
	ids = append(ids, uuid.New())

	def := &model.ExamDefinition{QuestionIDs: ids}
	got := BuildQuestionSet(def, catalog, nil)

	require.Len(t, got, 3, "dangling references are dropped silently")
	assert.Equal(t, questionIDs(catalog), questionIDs(got))
}

func TestBuildQuestionSetPreservesDuplicates(t *testing.T) {
	catalog := makeCatalog(2)
	def := &model.ExamDefinition{
		QuestionIDs: []uuid.UUID{catalog[0].ID, catalog[1].ID, catalog[0].ID},
	}

	got := BuildQuestionSet(def, catalog, nil)

	require.Len(t, got, 3)
	assert.Equal(t, catalog[0].ID, got[0].ID)
	assert.Equal(t, catalog[0].ID, got[2].ID)
}

func TestBuildQuestionSetShuffleIsPermutation(t *testing.T) {
	catalog := makeCatalog(30)
	def := &model.ExamDefinition{
		QuestionIDs:      questionIDs(catalog),
		ShuffleQuestions: true,
	}

	got := BuildQuestionSet(def, catalog, rand.New(rand.NewSource(1)))

	require.Len(t, got, 30)
	assert.ElementsMatch(t, questionIDs(catalog), questionIDs(got),
		"shuffle must keep the same identity multiset")
	assert.NotEqual(t, questionIDs(catalog), questionIDs(got),
		"shuffle must actually reorder a 30-question exam")
}

func TestBuildQuestionSetShuffleIsReproducibleWithFixedSeed(t *testing.T) {
	catalog := makeCatalog(20)
	def := &model.ExamDefinition{
		QuestionIDs:      questionIDs(catalog),
		ShuffleQuestions: true,
	}

	first := BuildQuestionSet(def, catalog, rand.New(rand.NewSource(42)))
	second := BuildQuestionSet(def, catalog, rand.New(rand.NewSource(42)))

	assert.Equal(t, questionIDs(first), questionIDs(second))
}

func TestBuildQuestionSetNoShuffleIgnoresRand(t *testing.T) {
	catalog := makeCatalog(4)
	def := &model.ExamDefinition{QuestionIDs: questionIDs(catalog)}

	got := BuildQuestionSet(def, catalog, rand.New(rand.NewSource(7)))

	assert.Equal(t, questionIDs(catalog), questionIDs(got))
}
