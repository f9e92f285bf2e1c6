package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MaxMailAttempts bounds how often a result e-mail job is requeued.
const MaxMailAttempts = 5

// ResultLoader fetches a recorded result.
type ResultLoader interface {
	GetByID(ctx context.Context, id string) (*model.ExamResult, error)
}

// ResultSender e-mails a result to its student.
type ResultSender interface {
	SendResult(ctx context.Context, res *model.ExamResult) error
}

// ResultMailWorker sends queued result e-mails one at a time.
type ResultMailWorker struct {
	results ResultLoader
	mailer  ResultSender
	rdb     *redis.Client
	log     zerolog.Logger
}

func NewResultMailWorker(results ResultLoader, mailer ResultSender, rdb *redis.Client, log zerolog.Logger) *ResultMailWorker {
	return &ResultMailWorker{
		results: results,
		mailer:  mailer,
		rdb:     rdb,
		log:     log.With().Str("component", "result_mail_worker").Logger(),
	}
}

func (w *ResultMailWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultMailWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ResultMailWorker stopped")
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.ResultMailQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error")
				sleep(ctx, 3*time.Second)
			}
			continue
		}
		if len(item) < 2 {
			continue
		}

		var job service.ResultMailJob
		if err := json.Unmarshal([]byte(item[1]), &job); err != nil || job.ResultID == "" {
			w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed mail job")
			continue
		}
		w.process(ctx, job)
	}
}

func (w *ResultMailWorker) process(ctx context.Context, job service.ResultMailJob) {
	res, err := w.results.GetByID(ctx, job.ResultID)
	if errors.Is(err, service.ErrResultNotFound) {
		w.log.Warn().Str("result_id", job.ResultID).Msg("Result no longer exists, dropping mail job")
		return
	}
	if err == nil {
		err = w.mailer.SendResult(ctx, res)
	}
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= MaxMailAttempts {
		w.log.Error().Err(err).Str("result_id", job.ResultID).Int("attempts", job.Attempts).Msg("Giving up on result e-mail")
		return
	}
	w.log.Warn().Err(err).Str("result_id", job.ResultID).Int("attempts", job.Attempts).Msg("Result e-mail failed, requeueing")

	raw, _ := json.Marshal(job)
	if err := w.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.ResultMailQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("result_id", job.ResultID).Msg("CRITICAL: Failed to requeue mail job")
	}
}
