package session

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/model"
	"github.com/rs/zerolog"
)

// SubmitTrigger records what caused a submission.
type SubmitTrigger string

const (
	TriggerManual           SubmitTrigger = "manual"
	TriggerTimeout          SubmitTrigger = "timeout"
	TriggerForcedNavigation SubmitTrigger = "forced_navigation"
)

// ResultSink is the persistence collaborator. SaveResult may be backed by a
// remote store or a local fallback; the session treats both uniformly and
// never inspects which backend handled the write.
type ResultSink interface {
	SaveResult(ctx context.Context, r *model.Result) error
}

// persistTimeout bounds the fire-and-forget result write.
const persistTimeout = 30 * time.Second

// Session is one candidate's single attempt at one exam, from start to
// submission. It exclusively owns its mutable state; collaborator data
// (definition, questions) is captured as a read-only snapshot at creation
// and survives concurrent catalog edits untouched.
type Session struct {
	mu sync.Mutex

	def       model.ExamDefinition
	questions []model.Question
	byID      map[uuid.UUID]*model.Question

	currentIndex int
	answers      *AnswerStore
	marked       map[uuid.UUID]struct{}
	tracker      *TimeTracker
	timer        *SessionTimer

	status model.SessionStatus
	result *model.Result

	observers  map[int]func(TimerEvent)
	observerID int

	userID int
	sink   ResultSink
	log    zerolog.Logger
	clock  func() time.Time
}

// New builds a session for one candidate: the question set is resolved and
// (optionally) shuffled once, then frozen. Configuration problems are the
// only fatal errors: a malformed definition or an empty question list
// after dangling-ID filtering means the session is never created.
func New(def *model.ExamDefinition, catalog []model.Question, userID int, sink ResultSink, log zerolog.Logger) (*Session, error) {
	return newSession(def, catalog, userID, sink, log, nil)
}

func newSession(def *model.ExamDefinition, catalog []model.Question, userID int, sink ResultSink, log zerolog.Logger, rng *rand.Rand) (*Session, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: definition is nil", ErrInvalidDefinition)
	}
	if def.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidDefinition)
	}
	if def.PassingScorePercent < 0 || def.PassingScorePercent > 100 {
		return nil, fmt.Errorf("%w: passing score must be 0..100", ErrInvalidDefinition)
	}

	questions := BuildQuestionSet(def, catalog, rng)
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	s := &Session{
		def:       *def,
		questions: questions,
		byID:      make(map[uuid.UUID]*model.Question, len(questions)),
		answers:   NewAnswerStore(),
		marked:    make(map[uuid.UUID]struct{}),
		tracker:   NewTimeTracker(),
		timer:     NewSessionTimer(),
		observers: make(map[int]func(TimerEvent)),
		status:    model.SessionStatusInProgress,
		userID:    userID,
		sink:      sink,
		clock:     time.Now,
		log: log.With().
			Str("exam_id", def.ID.String()).
			Int("user_id", userID).
			Logger(),
	}
	for i := range s.questions {
		s.byID[s.questions[i].ID] = &s.questions[i]
	}

	// Timer ticks drive dwell-time recomputation at the same cadence and
	// fan out to any registered observers (e.g. a WebSocket stream).
	s.timer.SetListener(func(ev TimerEvent) {
		if ev.Type == TimerTick {
			s.tracker.Tick()
		}
		s.mu.Lock()
		obs := make([]func(TimerEvent), 0, len(s.observers))
		for _, fn := range s.observers {
			obs = append(obs, fn)
		}
		s.mu.Unlock()
		for _, fn := range obs {
			fn(ev)
		}
	})

	return s, nil
}

// AddTimerObserver registers fn to receive every timer event and returns
// its removal function. Observers run on the timer goroutine and must not
// block.
func (s *Session) AddTimerObserver(fn func(TimerEvent)) func() {
	s.mu.Lock()
	id := s.observerID
	s.observerID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Start begins the countdown and dwell-time accounting. Timer expiry
// auto-submits without any user action.
func (s *Session) Start() {
	s.mu.Lock()
	first := s.questions[s.currentIndex].ID
	duration := s.def.DurationSeconds
	s.mu.Unlock()

	s.tracker.SetActive(first)
	s.timer.StartTimer(duration, func() {
		if _, err := s.submit(TriggerTimeout); err != nil {
			s.log.Error().Err(err).Msg("Auto-submit failed")
		}
	})
}

// Timer exposes the session timer hook ({TimeLeft, IsRunning}, resync).
func (s *Session) Timer() *SessionTimer {
	return s.timer
}

// CurrentQuestion returns the candidate-facing view of the active question.
func (s *Session) CurrentQuestion() model.QuestionForCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.currentIndex].ForCandidate()
}

// GoToQuestion navigates to a question by display position, carrying the
// dwell-time accounting over to it.
func (s *Session) GoToQuestion(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.questions) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	s.currentIndex = index
	id := s.questions[index].ID
	s.mu.Unlock()

	s.tracker.SetActive(id)
	return nil
}

// SetAnswer records the candidate's answer for a question. The answer map
// only grows: entries are overwritten, never removed.
func (s *Session) SetAnswer(questionID uuid.UUID, answer model.Answer) error {
	s.mu.Lock()
	q, ok := s.byID[questionID]
	submitted := s.status != model.SessionStatusInProgress
	s.mu.Unlock()

	if !ok {
		return ErrUnknownQuestion
	}
	if submitted {
		return ErrAlreadySubmitted
	}

	s.answers.Set(q, answer)
	return nil
}

// ToggleMark flips the advisory review flag on a question. Marks have no
// scoring effect.
func (s *Session) ToggleMark(questionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[questionID]; !ok {
		return ErrUnknownQuestion
	}
	if _, marked := s.marked[questionID]; marked {
		delete(s.marked, questionID)
	} else {
		s.marked[questionID] = struct{}{}
	}
	return nil
}

// Progress returns the answered count against the total.
func (s *Session) Progress() model.Progress {
	s.mu.Lock()
	total := len(s.questions)
	s.mu.Unlock()

	return model.Progress{
		AnsweredCount:  s.answers.AnsweredCount(),
		TotalQuestions: total,
	}
}

// Questions returns the candidate-facing question list in display order.
func (s *Session) Questions() []model.QuestionForCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.QuestionForCandidate, len(s.questions))
	for i := range s.questions {
		out[i] = s.questions[i].ForCandidate()
	}
	return out
}

// State returns a full snapshot for the client, e.g. after a page reload.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	state := model.SessionState{
		ExamID:         s.def.ID,
		UserID:         s.userID,
		Status:         s.status,
		CurrentIndex:   s.currentIndex,
		TotalQuestions: len(s.questions),
	}
	marked := make([]uuid.UUID, 0, len(s.marked))
	for id := range s.marked {
		marked = append(marked, id)
	}
	s.mu.Unlock()

	sort.Slice(marked, func(i, j int) bool { return marked[i].String() < marked[j].String() })

	state.MarkedQuestions = marked
	state.Answers = s.answers.Snapshot()
	state.AnsweredCount = len(state.Answers)
	state.TimeLeftSeconds = s.timer.TimeLeft()
	state.QuestionElapsedSeconds = s.tracker.Snapshot()
	return state
}

// Submit finishes the attempt on the candidate's request.
func (s *Session) Submit() (*model.Result, error) {
	return s.submit(TriggerManual)
}

// ForceSubmit finishes the attempt on behalf of an external collaborator
// (forced navigation away from the exam).
func (s *Session) ForceSubmit() (*model.Result, error) {
	return s.submit(TriggerForcedNavigation)
}

// Result returns the produced result once the session is submitted.
func (s *Session) Result() *model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Status returns the lifecycle state.
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// submit drives InProgress → Submitting → Submitted. Re-entrant calls are
// no-ops returning the already-produced result: a double click racing the
// timer expiry yields exactly one Result, persisted at most once. The exam
// is spent once this transition is reached; a failed write is logged and
// the in-memory result stays authoritative, rather than re-prompting the
// candidate to redo the exam.
func (s *Session) submit(trigger SubmitTrigger) (*model.Result, error) {
	s.mu.Lock()
	if s.status != model.SessionStatusInProgress {
		result := s.result
		s.mu.Unlock()
		return result, nil
	}
	s.status = model.SessionStatusSubmitting

	// Capture the displayed remaining time before silencing the timer.
	timeLeft := s.timer.TimeLeft()

	correct := 0
	for i := range s.questions {
		q := &s.questions[i]
		if got, ok := s.answers.Get(q.ID); ok && got.Equals(q.CorrectAnswer) {
			correct++
		}
	}
	total := len(s.questions)
	score := int(math.Round(100 * float64(correct) / float64(total)))

	result := &model.Result{
		ID:               uuid.New(),
		ExamID:           s.def.ID,
		UserID:           s.userID,
		Score:            score,
		CorrectCount:     correct,
		TotalQuestions:   total,
		Passed:           score >= s.def.PassingScorePercent,
		TimeSpentMinutes: s.def.DurationMinutes() - timeLeft/60,
		Answers:          s.answers.Snapshot(),
		CompletedAt:      s.clock(),
	}
	s.result = result
	s.status = model.SessionStatusSubmitted
	s.mu.Unlock()

	s.timer.StopTimer()
	s.tracker.Stop()

	s.log.Info().
		Str("trigger", string(trigger)).
		Int("score", score).
		Int("correct", correct).
		Int("total", total).
		Bool("passed", result.Passed).
		Msg("Session submitted")

	// Fire-and-forget: the session is Submitted regardless of the write
	// outcome. Losing a write is preferable to corrupting session state
	// by allowing re-submission.
	if s.sink != nil {
		go s.persist(result)
	}

	return result, nil
}

func (s *Session) persist(result *model.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.sink.SaveResult(ctx, result); err != nil {
		s.log.Warn().Err(err).
			Str("result_id", result.ID.String()).
			Msg("Result persist failed, in-memory result remains authoritative")
	}
}

// Close tears the session down without submitting: the countdown and the
// dwell tracker stop, so neither can fire against a destroyed session.
func (s *Session) Close() {
	s.timer.Close()
	s.tracker.Stop()
}

// newRand returns a time-seeded source for the one-time shuffle.
func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
