package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/catalog"
	"github.com/openexam/session-engine/internal/config"
	"github.com/openexam/session-engine/internal/model"
	"github.com/openexam/session-engine/internal/session"
	"github.com/openexam/session-engine/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Common session service errors.
var (
	ErrSessionNotFound = errors.New("no active session for this exam")
	ErrResultNotFound  = errors.New("no result for this exam")
)

type sessionKey struct {
	examID uuid.UUID
	userID int
}

// SessionService owns the in-memory registry of live exam attempts. One
// candidate gets at most one Session per exam; joining again returns the
// existing attempt rather than restarting the clock.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*session.Session

	papers     *catalog.PayloadCache
	resultRepo *storage.ResultRepository
	sink       session.ResultSink
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	papers *catalog.PayloadCache,
	resultRepo *storage.ResultRepository,
	sink session.ResultSink,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:   make(map[sessionKey]*session.Session),
		papers:     papers,
		resultRepo: resultRepo,
		sink:       sink,
		rdb:        rdb,
		log:        log.With().Str("component", "session_service").Logger(),
	}
}

// StartSession loads the exam paper and starts a live attempt for the
// candidate. Idempotent: a second join returns the running attempt.
func (s *SessionService) StartSession(ctx context.Context, examID uuid.UUID, userID int) (*session.Session, error) {
	key := sessionKey{examID: examID, userID: userID}

	s.mu.RLock()
	existing, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return existing, nil
	}

	paper, err := s.papers.LoadExamPaper(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam paper: %w", err)
	}

	sess, err := session.New(&paper.Definition, paper.Questions, userID, s.sink, s.log)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	if racing, ok := s.sessions[key]; ok {
		// Concurrent join: keep the first attempt, discard ours.
		s.mu.Unlock()
		sess.Close()
		return racing, nil
	}
	s.sessions[key] = sess
	s.mu.Unlock()

	sess.Start()
	s.log.Info().
		Str("exam_id", examID.String()).
		Int("user_id", userID).
		Msg("Session started")

	return sess, nil
}

// Get returns the live attempt for a candidate, if one exists.
func (s *SessionService) Get(examID uuid.UUID, userID int) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey{examID: examID, userID: userID}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Submit finishes the attempt. The session stays in the registry so a
// retried submit or a post-exam state read keeps hitting the same
// in-memory result; only its timer machinery is torn down.
func (s *SessionService) Submit(examID uuid.UUID, userID int) (*model.Result, error) {
	sess, err := s.Get(examID, userID)
	if err != nil {
		return nil, err
	}

	result, err := sess.Submit()
	if err != nil {
		return nil, err
	}

	sess.Close()
	return result, nil
}

// ForceSubmit finishes the attempt on a proctor's behalf.
func (s *SessionService) ForceSubmit(examID uuid.UUID, userID int) (*model.Result, error) {
	sess, err := s.Get(examID, userID)
	if err != nil {
		return nil, err
	}

	result, err := sess.ForceSubmit()
	if err != nil {
		return nil, err
	}

	sess.Close()
	return result, nil
}

// GetResult retrieves a finished result: live session first, then the
// Redis snapshot written at submit time, then PostgreSQL.
func (s *SessionService) GetResult(ctx context.Context, examID uuid.UUID, userID int) (*model.Result, error) {
	s.mu.RLock()
	sess, live := s.sessions[sessionKey{examID: examID, userID: userID}]
	s.mu.RUnlock()

	if live {
		if r := sess.Result(); r != nil {
			return r, nil
		}
	}

	raw, err := s.rdb.Get(ctx, config.CacheKey.CandidateResultKey(examID.String(), userID)).Result()
	if err == nil {
		var r model.Result
		if err := json.Unmarshal([]byte(raw), &r); err == nil {
			return &r, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt cached result, falling back to database")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis result lookup failed, falling back to database")
	}

	r, err := s.resultRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		return nil, ErrResultNotFound
	}
	return r, nil
}

// CloseAll tears down every live attempt without submitting. Used on
// shutdown so no timer goroutine outlives the process.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, key)
	}
}
