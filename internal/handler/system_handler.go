package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const metricsInterval = 7 * time.Second

// SessionCounter reports the number of live exam sessions.
type SessionCounter interface {
	Count() int
}

// SystemHandler reports process health and streams runtime metrics via SSE.
type SystemHandler struct {
	rdb       *redis.Client
	sessions  SessionCounter
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, sessions SessionCounter, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		sessions:  sessions,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Exam runtime
	LiveSessions int  `json:"live_sessions"`
	RedisOK      bool `json:"redis_ok"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Worker Queues
	QueueAttemptEvents int64 `json:"queue_attempt_events"`
	QueueResultMail    int64 `json:"queue_result_mail"`
}

// Health godoc
// GET /health
// Reports liveness; 503 when Redis is unreachable.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Health check: Redis unreachable")
		response.Success(c, http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": "down"})
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"status":        "ok",
		"live_sessions": h.sessions.Count(),
	})
}

// MetricsSSE godoc
// GET /api/v1/admin/system/metrics
// Streams live session counts, queue depths and Go runtime stats.
func (h *SystemHandler) MetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Admin connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	// Send immediately on connect, then every tick
	h.writeMetrics(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	m := h.collect(c.Request.Context())
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp:    time.Now().Unix(),
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		LiveSessions: h.sessions.Count(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.Sys
	m.NumGC = ms.NumGC

	// ── Worker Queues (pipelined LLEN) ──
	pipe := h.rdb.Pipeline()
	attemptsCmd := pipe.LLen(ctx, config.WorkerKey.AttemptEventsQueue)
	mailCmd := pipe.LLen(ctx, config.WorkerKey.ResultMailQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		m.RedisOK = true
		m.QueueAttemptEvents, _ = attemptsCmd.Result()
		m.QueueResultMail, _ = mailCmd.Result()
	}

	return m
}
