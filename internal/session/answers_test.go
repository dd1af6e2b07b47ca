package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleQ() *model.Question {
	return &model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeSingleAnswer,
		Options:       map[string]string{"a": "A", "b": "B"},
		CorrectAnswer: model.ChoiceAnswer("a"),
	}
}

func multiQ() *model.Question {
	return &model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeMultipleAnswers,
		Options:       map[string]string{"a": "A", "b": "B", "c": "C"},
		CorrectAnswer: model.ChoicesAnswer("a", "b"),
	}
}

func TestAnswerStoreOverwritesSingleAnswer(t *testing.T) {
	store := NewAnswerStore()
	q := singleQ()

	store.Set(q, model.ChoiceAnswer("a"))
	store.Set(q, model.ChoiceAnswer("b"))

	got, ok := store.Get(q.ID)
	require.True(t, ok)
	assert.Equal(t, "b", got.Choice)
	assert.Equal(t, 1, store.AnsweredCount())
}

func TestAnswerStoreTogglesMultipleAnswers(t *testing.T) {
	store := NewAnswerStore()
	q := multiQ()

	store.Set(q, model.ChoiceAnswer("a"))
	store.Set(q, model.ChoiceAnswer("c"))
	store.Set(q, model.ChoiceAnswer("a"))

	got, ok := store.Get(q.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"c"}, got.Choices)
}

func TestAnswerStoreToggleTwiceReturnsToEmptySet(t *testing.T) {
	store := NewAnswerStore()
	q := multiQ()

	store.Set(q, model.ChoiceAnswer("a"))
	store.Set(q, model.ChoiceAnswer("a"))

	got, ok := store.Get(q.ID)
	require.True(t, ok)
	assert.Empty(t, got.Choices)
	// The key stays: once answered, an entry is never removed.
	assert.Equal(t, 1, store.AnsweredCount())
}

func TestAnswerStoreReplacesMultiSelectionWholesale(t *testing.T) {
	store := NewAnswerStore()
	q := multiQ()

	store.Set(q, model.ChoiceAnswer("c"))
	store.Set(q, model.ChoicesAnswer("a", "b"))

	got, _ := store.Get(q.ID)
	assert.ElementsMatch(t, []string{"a", "b"}, got.Choices)
}

func TestAnswerStoreEmptyFreeTextCountsAsAnswered(t *testing.T) {
	store := NewAnswerStore()
	q := &model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeConstructedResponse,
		CorrectAnswer: model.TextAnswer("x"),
	}

	store.Set(q, model.TextAnswer(""))

	assert.Equal(t, 1, store.AnsweredCount(),
		"answered count is a key count, not a quality judgement")
}

func TestAnswerStoreCoercesDecodedAnswers(t *testing.T) {
	store := NewAnswerStore()
	q := &model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeConstructedResponse,
		CorrectAnswer: model.TextAnswer("42"),
	}

	// JSON decoding cannot tell a choice key from free text; the store
	// re-tags by question type.
	store.Set(q, model.ChoiceAnswer("some essay text"))

	got, _ := store.Get(q.ID)
	assert.Equal(t, model.AnswerKindText, got.Kind)
	assert.Equal(t, "some essay text", got.Text)
}
