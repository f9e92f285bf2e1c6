package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const attemptBufferSize = 1024

// AttemptPublisher forwards session lifecycle events to the attempt worker
// queue. Observe never blocks: events are buffered in memory and pushed to
// Redis by Run. When the buffer is full the event is dropped and logged.
type AttemptPublisher struct {
	rdb    *redis.Client
	events chan model.AttemptEvent
	log    zerolog.Logger
}

// NewAttemptPublisher creates a new AttemptPublisher.
func NewAttemptPublisher(rdb *redis.Client, log zerolog.Logger) *AttemptPublisher {
	return &AttemptPublisher{
		rdb:    rdb,
		events: make(chan model.AttemptEvent, attemptBufferSize),
		log:    log.With().Str("component", "attempt_publisher").Logger(),
	}
}

// Observe implements exam.Observer.
func (p *AttemptPublisher) Observe(ev model.AttemptEvent) {
	select {
	case p.events <- ev:
	default:
		p.log.Warn().
			Str("session_id", ev.SessionID).
			Str("kind", string(ev.Kind)).
			Msg("Attempt buffer full, dropping event")
	}
}

// Run pushes buffered events until ctx is cancelled, then drains what is
// left with a short deadline.
func (p *AttemptPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case ev := <-p.events:
			// A dequeued event is pushed even if shutdown starts meanwhile.
			p.push(context.WithoutCancel(ctx), ev)
		}
	}
}

func (p *AttemptPublisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case ev := <-p.events:
			p.push(ctx, ev)
		default:
			return
		}
	}
}

func (p *AttemptPublisher) push(ctx context.Context, ev model.AttemptEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to encode attempt event")
		return
	}
	if err := p.rdb.RPush(ctx, config.WorkerKey.AttemptEventsQueue, data).Err(); err != nil {
		p.log.Error().Err(err).Str("session_id", ev.SessionID).Msg("Failed to queue attempt event")
	}
}
