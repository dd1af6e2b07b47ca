package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openexam/session-engine/internal/config"
	"github.com/openexam/session-engine/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains the result persistence queue into PostgreSQL. The
// submit path is fire-and-forget; this worker is where durability
// actually happens, in batches, off the candidate's critical path.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.Result, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var r model.Result
			if err := json.Unmarshal([]byte(item[1]), &r); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &r)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.Result) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsertResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

		for _, r := range batch {
			if err := w.persistSingle(ctx, r); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(r)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST + alias
// ----------------------------------------------------------------

func (w *ResultWorker) bulkInsertResults(ctx context.Context, batch []*model.Result) error {
	n := len(batch)

	ids := make([]uuid.UUID, 0, n)
	examIDs := make([]uuid.UUID, 0, n)
	users := make([]int, 0, n)
	scores := make([]int, 0, n)
	corrects := make([]int, 0, n)
	totals := make([]int, 0, n)
	passes := make([]bool, 0, n)
	minutes := make([]int, 0, n)
	answersBytes := make([][]byte, 0, n)
	completedAts := make([]time.Time, 0, n)

	for _, r := range batch {
		ab, err := json.Marshal(r.Answers)
		if err != nil {
			return err
		}

		ids = append(ids, r.ID)
		examIDs = append(examIDs, r.ExamID)
		users = append(users, r.UserID)
		scores = append(scores, r.Score)
		corrects = append(corrects, r.CorrectCount)
		totals = append(totals, r.TotalQuestions)
		passes = append(passes, r.Passed)
		minutes = append(minutes, r.TimeSpentMinutes)
		answersBytes = append(answersBytes, ab)
		completedAts = append(completedAts, r.CompletedAt)
	}

	query := `
		INSERT INTO results
			(id, exam_id, user_id, score, correct_count, total_questions,
			 passed, time_spent_minutes, answers, completed_at)
		SELECT
			u.id, u.exam_id, u.user_id, u.score, u.correct_count, u.total_questions,
			u.passed, u.time_spent_minutes, u.answers, u.completed_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::int[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::bool[],
			$8::int[],
			$9::jsonb[],
			$10::timestamptz[]
		) AS u (id, exam_id, user_id, score, correct_count, total_questions,
		        passed, time_spent_minutes, answers, completed_at)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query,
		ids, examIDs, users, scores, corrects, totals, passes, minutes, answersBytes, completedAts)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single insert
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, r *model.Result) error {
	ab, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO results
		   (id, exam_id, user_id, score, correct_count, total_questions,
		    passed, time_spent_minutes, answers, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		r.ID, r.ExamID, r.UserID, r.Score, r.CorrectCount,
		r.TotalQuestions, r.Passed, r.TimeSpentMinutes, ab, r.CompletedAt,
	)

	return err
}
