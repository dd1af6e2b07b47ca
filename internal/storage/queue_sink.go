package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openexam/session-engine/internal/config"
	"github.com/openexam/session-engine/internal/model"
	"github.com/openexam/session-engine/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// QueueSink is the primary result sink: it enqueues results for the
// background persistence worker instead of writing to PostgreSQL on the
// submit path. When Redis is down it falls back to the direct repository
// write; the session treats both backends uniformly.
type QueueSink struct {
	rdb      *redis.Client
	fallback session.ResultSink
	log      zerolog.Logger
}

// NewQueueSink creates a QueueSink. fallback may be nil, in which case a
// Redis failure is surfaced to the caller (and logged by the session).
func NewQueueSink(rdb *redis.Client, fallback session.ResultSink, log zerolog.Logger) *QueueSink {
	return &QueueSink{
		rdb:      rdb,
		fallback: fallback,
		log:      log.With().Str("component", "queue_sink").Logger(),
	}
}

// SaveResult pushes the result onto the persistence queue. The candidate's
// result snapshot is also cached so the post-exam screen survives a reload
// before the worker has flushed.
func (s *QueueSink) SaveResult(ctx context.Context, r *model.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		if s.fallback == nil {
			return fmt.Errorf("enqueue result: %w", err)
		}
		s.log.Warn().Err(err).Msg("Enqueue failed, writing result directly")
		return s.fallback.SaveResult(ctx, r)
	}

	resultKey := config.CacheKey.CandidateResultKey(r.ExamID.String(), r.UserID)
	if err := s.rdb.Set(ctx, resultKey, raw, 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache result snapshot")
	}

	return nil
}
