package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openexam/session-engine/internal/config"
	"github.com/openexam/session-engine/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ExamPaper is a fully resolved exam: the definition plus every catalog
// question it references. It contains correct answers and must never be
// sent to the candidate as-is.
type ExamPaper struct {
	Definition model.ExamDefinition `json:"definition"`
	Questions  []model.Question     `json:"questions"`
}

// PayloadCache is a Redis read-through over the catalog. Session start is
// the hot path (a whole class joins at once), so resolved exam papers are
// cached; the catalog remains the source of truth and repopulates the
// cache on miss.
type PayloadCache struct {
	rdb   *redis.Client
	inner Catalog
	ttl   time.Duration
	log   zerolog.Logger
}

// NewPayloadCache creates a new PayloadCache.
func NewPayloadCache(rdb *redis.Client, inner Catalog, ttl time.Duration, log zerolog.Logger) *PayloadCache {
	return &PayloadCache{
		rdb:   rdb,
		inner: inner,
		ttl:   ttl,
		log:   log.With().Str("component", "payload_cache").Logger(),
	}
}

// LoadExamPaper returns the resolved paper for an exam, from cache when
// possible. A Redis outage degrades to direct catalog reads; the cache
// must never block a session from starting.
func (p *PayloadCache) LoadExamPaper(ctx context.Context, examID uuid.UUID) (*ExamPaper, error) {
	key := config.CacheKey.ExamPayloadKey(examID.String())

	raw, err := p.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var paper ExamPaper
		if jsonErr := json.Unmarshal([]byte(raw), &paper); jsonErr == nil {
			paper.normalize()
			return &paper, nil
		}
		// Corrupt cache entry: fall through and rebuild it.
		p.log.Warn().Str("key", key).Msg("Discarding undecodable cached paper")
	case errors.Is(err, redis.Nil):
		// Cache miss, load below.
	default:
		p.log.Warn().Err(err).Msg("Redis read failed, loading paper from catalog")
	}

	paper, err := p.loadFromCatalog(ctx, examID)
	if err != nil {
		return nil, err
	}

	// Self-heal: repopulate so the next join is served from cache.
	if raw, jsonErr := json.Marshal(paper); jsonErr == nil {
		if setErr := p.rdb.Set(ctx, key, raw, p.ttl).Err(); setErr != nil {
			p.log.Warn().Err(setErr).Msg("Failed to cache exam paper")
		}
	}

	return paper, nil
}

func (p *PayloadCache) loadFromCatalog(ctx context.Context, examID uuid.UUID) (*ExamPaper, error) {
	def, err := p.inner.GetExamDefinition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}

	questions, err := p.inner.GetQuestions(ctx, def.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	return &ExamPaper{Definition: *def, Questions: questions}, nil
}

// normalize re-tags correct answers after JSON decoding, which cannot
// distinguish free text from an option key on its own.
func (paper *ExamPaper) normalize() {
	for i := range paper.Questions {
		q := &paper.Questions[i]
		q.CorrectAnswer = q.CorrectAnswer.CoerceFor(q.Type)
	}
}
