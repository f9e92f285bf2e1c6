package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptPublisher_PushesToQueue(t *testing.T) {
	e := newEnv(t)
	pub := NewAttemptPublisher(e.rdb, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(done)
	}()

	pub.Observe(model.AttemptEvent{Kind: model.AttemptEventStarted, SessionID: "s1", ClassID: "c1"})
	pub.Observe(model.AttemptEvent{Kind: model.AttemptEventFocusLost, SessionID: "s1", ClassID: "c1", TabSwitches: 1})

	require.Eventually(t, func() bool {
		items, _ := e.mr.List(config.WorkerKey.AttemptEventsQueue)
		return len(items) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	items, err := e.mr.List(config.WorkerKey.AttemptEventsQueue)
	require.NoError(t, err)
	var ev model.AttemptEvent
	require.NoError(t, json.Unmarshal([]byte(items[1]), &ev))
	assert.Equal(t, model.AttemptEventFocusLost, ev.Kind)
	assert.Equal(t, 1, ev.TabSwitches)
}

func TestAttemptPublisher_DrainsOnShutdown(t *testing.T) {
	e := newEnv(t)
	pub := NewAttemptPublisher(e.rdb, zerolog.Nop())

	for i := 0; i < 3; i++ {
		pub.Observe(model.AttemptEvent{Kind: model.AttemptEventStarted, SessionID: "s1"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Run(ctx)

	items, err := e.mr.List(config.WorkerKey.AttemptEventsQueue)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestAttemptPublisher_ObserveNeverBlocks(t *testing.T) {
	e := newEnv(t)
	pub := NewAttemptPublisher(e.rdb, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < attemptBufferSize+10; i++ {
			pub.Observe(model.AttemptEvent{SessionID: "s1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Observe blocked on a full buffer")
	}
	assert.Len(t, pub.events, attemptBufferSize)
}
