package model

import (
	"encoding/json"
	"fmt"
)

// AnswerKind tags the shape of an Answer value.
type AnswerKind string

const (
	// AnswerKindChoice is a single option key (SingleAnswer, TrueFalse).
	AnswerKindChoice AnswerKind = "CHOICE"
	// AnswerKindChoices is an unordered option key set (MultipleAnswers).
	AnswerKindChoices AnswerKind = "CHOICES"
	// AnswerKindText is free text (ConstructedResponse). Not validated;
	// an empty string still counts as an answer once set.
	AnswerKindText AnswerKind = "TEXT"
)

// Answer is a tagged union over the candidate answer shapes. Exactly one of
// Choice, Choices or Text is meaningful, selected by Kind. The zero value
// means "not answered".
type Answer struct {
	Kind    AnswerKind `json:"kind"`
	Choice  string     `json:"choice,omitempty"`
	Choices []string   `json:"choices,omitempty"`
	Text    string     `json:"text,omitempty"`
}

// ChoiceAnswer builds a single-choice answer.
func ChoiceAnswer(key string) Answer {
	return Answer{Kind: AnswerKindChoice, Choice: key}
}

// ChoicesAnswer builds a multi-choice answer from the given option keys.
func ChoicesAnswer(keys ...string) Answer {
	return Answer{Kind: AnswerKindChoices, Choices: keys}
}

// TextAnswer builds a free-text answer.
func TextAnswer(text string) Answer {
	return Answer{Kind: AnswerKindText, Text: text}
}

// IsZero reports whether the answer has never been set.
func (a Answer) IsZero() bool {
	return a.Kind == ""
}

// scalar returns the single-string payload for non-set kinds.
func (a Answer) scalar() string {
	if a.Kind == AnswerKindText {
		return a.Text
	}
	return a.Choice
}

// Equals compares two answers for grading. CHOICES compares as sets:
// ["a","b"] equals ["b","a"]. Everything else compares the scalar value,
// so a CHOICE and a TEXT holding the same string are equal (the kind is a
// wire detail, not part of the grade).
func (a Answer) Equals(b Answer) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}

	if a.Kind == AnswerKindChoices || b.Kind == AnswerKindChoices {
		if a.Kind != b.Kind {
			return false
		}
		return sameKeySet(a.Choices, b.Choices)
	}

	return a.scalar() == b.scalar()
}

func sameKeySet(xs, ys []string) bool {
	if len(xs) != len(ys) {
		return false
	}
	seen := make(map[string]int, len(xs))
	for _, x := range xs {
		seen[x]++
	}
	for _, y := range ys {
		seen[y]--
		if seen[y] < 0 {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the answer as its bare value: a string for CHOICE and
// TEXT, an array for CHOICES. This matches the catalog storage format where
// correct_answer is either "a" or ["a","b"].
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerKindChoices:
		if a.Choices == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(a.Choices)
	case AnswerKindText:
		return json.Marshal(a.Text)
	case AnswerKindChoice, "":
		return json.Marshal(a.Choice)
	default:
		return nil, fmt.Errorf("unknown answer kind %q", a.Kind)
	}
}

// UnmarshalJSON decodes a bare value: arrays become CHOICES, strings become
// CHOICE. A decoded string is re-tagged as TEXT by the session when the
// target question is ConstructedResponse (the JSON alone cannot tell the
// two apart).
func (a *Answer) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err == nil {
		*a = ChoicesAnswer(keys...)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("answer must be a string or an array of strings: %w", err)
	}
	*a = ChoiceAnswer(s)
	return nil
}

// CoerceFor re-tags a decoded answer to the shape the question type expects.
func (a Answer) CoerceFor(qt QuestionType) Answer {
	switch qt {
	case QuestionTypeConstructedResponse:
		if a.Kind == AnswerKindChoice {
			return TextAnswer(a.Choice)
		}
	case QuestionTypeMultipleAnswers:
		if a.Kind == AnswerKindChoice {
			return ChoicesAnswer(a.Choice)
		}
	}
	return a
}
