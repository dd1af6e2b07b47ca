package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	results []*model.Result
	err     error
}

func (s *recordingSink) SaveResult(_ context.Context, r *model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func gradingCatalog() []model.Question {
	return []model.Question{
		{
			ID:            uuid.New(),
			Type:          model.QuestionTypeMultipleAnswers,
			Prompt:        "pick two",
			Options:       map[string]string{"a": "A", "b": "B", "c": "C"},
			CorrectAnswer: model.ChoicesAnswer("a", "b"),
		},
		{
			ID:            uuid.New(),
			Type:          model.QuestionTypeTrueFalse,
			Prompt:        "true or false",
			CorrectAnswer: model.ChoiceAnswer(model.AnswerTrue),
		},
		{
			ID:            uuid.New(),
			Type:          model.QuestionTypeConstructedResponse,
			Prompt:        "write",
			CorrectAnswer: model.TextAnswer("x"),
		},
	}
}

func defFor(catalog []model.Question, passing int) *model.ExamDefinition {
	return &model.ExamDefinition{
		ID:                  uuid.New(),
		Title:               "Unit Exam",
		DurationSeconds:     600,
		QuestionIDs:         questionIDs(catalog),
		PassingScorePercent: passing,
	}
}

func newTestSession(t *testing.T, def *model.ExamDefinition, catalog []model.Question, sink ResultSink) *Session {
	t.Helper()
	s, err := New(def, catalog, 7, sink, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSessionScoringUsesSetEquality(t *testing.T) {
	catalog := gradingCatalog()
	sink := &recordingSink{}
	s := newTestSession(t, defFor(catalog, 70), catalog, sink)

	// Multi-answer in reversed order must still grade correct.
	require.NoError(t, s.SetAnswer(catalog[0].ID, model.ChoicesAnswer("b", "a")))
	require.NoError(t, s.SetAnswer(catalog[1].ID, model.ChoiceAnswer(model.AnswerTrue)))
	require.NoError(t, s.SetAnswer(catalog[2].ID, model.TextAnswer("y")))

	result, err := s.Submit()
	require.NoError(t, err)

	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 67, result.Score)
	assert.False(t, result.Passed, "67 < 70")
	assert.Equal(t, model.SessionStatusSubmitted, s.Status())
}

func TestSessionSubmitIsIdempotent(t *testing.T) {
	catalog := gradingCatalog()
	sink := &recordingSink{}
	s := newTestSession(t, defFor(catalog, 50), catalog, sink)

	first, err := s.Submit()
	require.NoError(t, err)
	second, err := s.Submit()
	require.NoError(t, err)

	assert.Same(t, first, second, "re-entrant submit returns the one Result")

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	// Give a stray duplicate write a chance to show up.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.count(), "exactly one Result may be persisted")
}

func TestSessionSubmittedDespitePersistFailure(t *testing.T) {
	catalog := gradingCatalog()
	sink := &recordingSink{err: context.DeadlineExceeded}
	s := newTestSession(t, defFor(catalog, 50), catalog, sink)

	result, err := s.Submit()
	require.NoError(t, err)

	require.NotNil(t, result)
	assert.Equal(t, model.SessionStatusSubmitted, s.Status())
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	// The attempt is spent: no re-submission after a failed write.
	again, err := s.Submit()
	require.NoError(t, err)
	assert.Same(t, result, again)
}

func TestSessionAutoSubmitsOnTimeout(t *testing.T) {
	catalog := []model.Question{{
		ID:            uuid.New(),
		Type:          model.QuestionTypeSingleAnswer,
		Options:       map[string]string{"a": "A", "b": "B"},
		CorrectAnswer: model.ChoiceAnswer("a"),
	}}
	def := &model.ExamDefinition{
		ID:                  uuid.New(),
		Title:               "Timed",
		DurationSeconds:     1,
		QuestionIDs:         questionIDs(catalog),
		PassingScorePercent: 50,
	}

	sink := &recordingSink{}
	s := newTestSession(t, def, catalog, sink)

	clock := newFakeClock()
	s.timer.timer.clock = clock.Now
	s.timer.timer.interval = testInterval

	s.Start()
	clock.Advance(time.Second)

	// The candidate never acts: expiry alone must submit.
	require.Eventually(t, func() bool {
		return s.Status() == model.SessionStatusSubmitted
	}, 2*time.Second, testInterval)

	result := s.Result()
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Passed)
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionDuplicateQuestionSharesOneEntry(t *testing.T) {
	catalog := makeCatalog(1)
	def := &model.ExamDefinition{
		ID:                  uuid.New(),
		Title:               "Dup",
		DurationSeconds:     60,
		QuestionIDs:         []uuid.UUID{catalog[0].ID, catalog[0].ID},
		PassingScorePercent: 50,
	}

	s := newTestSession(t, def, catalog, &recordingSink{})

	require.NoError(t, s.SetAnswer(catalog[0].ID, model.ChoiceAnswer("a")))

	// Both positions point at the same question, so one answer entry
	// grades both. Known limitation, kept on purpose.
	progress := s.Progress()
	assert.Equal(t, 1, progress.AnsweredCount)
	assert.Equal(t, 2, progress.TotalQuestions)

	result, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, 100, result.Score)
}

func TestSessionNavigation(t *testing.T) {
	catalog := gradingCatalog()
	s := newTestSession(t, defFor(catalog, 50), catalog, &recordingSink{})

	assert.Equal(t, catalog[0].ID, s.CurrentQuestion().ID)

	require.NoError(t, s.GoToQuestion(2))
	assert.Equal(t, catalog[2].ID, s.CurrentQuestion().ID)

	assert.ErrorIs(t, s.GoToQuestion(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.GoToQuestion(3), ErrIndexOutOfRange)
}

func TestSessionRejectsLateAndUnknownAnswers(t *testing.T) {
	catalog := gradingCatalog()
	s := newTestSession(t, defFor(catalog, 50), catalog, &recordingSink{})

	assert.ErrorIs(t, s.SetAnswer(uuid.New(), model.ChoiceAnswer("a")), ErrUnknownQuestion)

	_, err := s.Submit()
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetAnswer(catalog[0].ID, model.ChoiceAnswer("a")), ErrAlreadySubmitted)
}

func TestSessionMarksAreAdvisory(t *testing.T) {
	catalog := gradingCatalog()
	s := newTestSession(t, defFor(catalog, 0), catalog, &recordingSink{})

	require.NoError(t, s.ToggleMark(catalog[1].ID))
	assert.Len(t, s.State().MarkedQuestions, 1)

	require.NoError(t, s.ToggleMark(catalog[1].ID))
	assert.Empty(t, s.State().MarkedQuestions)

	assert.ErrorIs(t, s.ToggleMark(uuid.New()), ErrUnknownQuestion)

	result, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 0, result.CorrectCount, "marks never affect the score")
}

func TestSessionConfigurationErrors(t *testing.T) {
	catalog := gradingCatalog()
	sink := &recordingSink{}
	log := zerolog.Nop()

	_, err := New(nil, catalog, 1, sink, log)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	def := defFor(catalog, 50)
	def.DurationSeconds = 0
	_, err = New(def, catalog, 1, sink, log)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	def = defFor(catalog, 101)
	_, err = New(def, catalog, 1, sink, log)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	// Every referenced question dangles: nothing to take.
	def = defFor(catalog, 50)
	def.QuestionIDs = []uuid.UUID{uuid.New(), uuid.New()}
	_, err = New(def, catalog, 1, sink, log)
	assert.ErrorIs(t, err, ErrNoQuestions)
}
