package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// AttemptApplier folds attempt events into the attempt log.
type AttemptApplier interface {
	Apply(ctx context.Context, events []model.AttemptEvent) error
}

// AttemptWorker drains the attempt event queue into the attempt log.
type AttemptWorker struct {
	attempts AttemptApplier
	rdb      *redis.Client
	log      zerolog.Logger

	requeueBackoff time.Duration
}

func NewAttemptWorker(attempts AttemptApplier, rdb *redis.Client, log zerolog.Logger) *AttemptWorker {
	return &AttemptWorker{
		attempts:       attempts,
		rdb:            rdb,
		log:            log.With().Str("component", "attempt_worker").Logger(),
		requeueBackoff: 2 * time.Second,
	}
}

func (w *AttemptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptWorker started")

	buffer := make([]model.AttemptEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 2. Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 3. Fetch from Redis. BLPop returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.AttemptEventsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				continue // shutdown is handled at the top of the loop
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleep(ctx, 3*time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var ev model.AttemptEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			// Malformed payloads can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed attempt event")
			continue
		}
		if ev.SessionID == "" {
			w.log.Error().Str("data", result[1]).Msg("Discarding attempt event without session id")
			continue
		}

		buffer = append(buffer, ev)
	}
}

// flushSafe applies the whole batch in one rewrite, falling back to one
// rewrite per event and requeueing what still fails.
func (w *AttemptWorker) flushSafe(ctx context.Context, batch []model.AttemptEvent) {
	err := w.attempts.Apply(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Attempt batch applied")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Batch apply failed, attempting event-by-event recovery")

	requeueList := make([]model.AttemptEvent, 0)
	for _, ev := range batch {
		if err := w.attempts.Apply(ctx, []model.AttemptEvent{ev}); err != nil {
			w.log.Error().Err(err).Str("session_id", ev.SessionID).Msg("Apply failed, requeueing")
			requeueList = append(requeueList, ev)
		}
	}
	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *AttemptWorker) requeue(ctx context.Context, items []model.AttemptEvent) {
	// The shutdown context may already be spent; requeueing must still happen.
	ctx = context.WithoutCancel(ctx)

	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.AttemptEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue attempt events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed attempt events")
	// Avoid thrashing while the store is down.
	time.Sleep(w.requeueBackoff)
}

func (w *AttemptWorker) shutdown(buffer []model.AttemptEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
