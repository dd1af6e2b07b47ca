package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerEqualsIsSetEqualityForChoices(t *testing.T) {
	assert.True(t, ChoicesAnswer("a", "b").Equals(ChoicesAnswer("b", "a")))
	assert.False(t, ChoicesAnswer("a", "b").Equals(ChoicesAnswer("a")))
	assert.False(t, ChoicesAnswer("a", "a").Equals(ChoicesAnswer("a", "b")))
	assert.False(t, ChoicesAnswer("a").Equals(ChoiceAnswer("a")),
		"a key set and a single key are different shapes")
}

func TestAnswerEqualsIgnoresScalarKind(t *testing.T) {
	// The CHOICE/TEXT split is a wire detail; grading compares values.
	assert.True(t, ChoiceAnswer("x").Equals(TextAnswer("x")))
	assert.False(t, TextAnswer("x").Equals(TextAnswer("y")))
}

func TestAnswerZeroNeverEquals(t *testing.T) {
	assert.False(t, Answer{}.Equals(ChoiceAnswer("")))
	assert.False(t, ChoiceAnswer("").Equals(Answer{}))
}

func TestAnswerJSONUsesBareValues(t *testing.T) {
	raw, err := json.Marshal(ChoicesAnswer("a", "b"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(raw))

	raw, err = json.Marshal(ChoiceAnswer("a"))
	require.NoError(t, err)
	assert.JSONEq(t, `"a"`, string(raw))

	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`["b","a"]`), &a))
	assert.Equal(t, AnswerKindChoices, a.Kind)

	require.NoError(t, json.Unmarshal([]byte(`"free text"`), &a))
	assert.Equal(t, AnswerKindChoice, a.Kind)
	assert.Equal(t, AnswerKindText, a.CoerceFor(QuestionTypeConstructedResponse).Kind)

	assert.Error(t, json.Unmarshal([]byte(`42`), &a))
}
