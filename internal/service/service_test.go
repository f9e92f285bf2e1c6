package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type env struct {
	mr  *miniredis.Miniredis
	rdb *redis.Client
	cfg *config.Config

	classes   *repository.ClassRepository
	questions *repository.QuestionRepository
	students  *repository.StudentRepository
	results   *repository.ResultRepository
	attempts  *repository.AttemptRepository
	snapshots *repository.SnapshotRepository

	auth *AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	records := store.NewCSVStore(store.NewMemoryBackend())
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		Exam: config.ExamConfig{
			SnapshotTTL:          time.Hour,
			MaxIntegrityWarnings: 3,
			TimeWarnings:         []int{300, 60},
			PassPercentage:       50,
			IdleSessionTimeout:   30 * time.Minute,
		},
	}

	return &env{
		mr:        mr,
		rdb:       rdb,
		cfg:       cfg,
		classes:   repository.NewClassRepository(records),
		questions: repository.NewQuestionRepository(records, zerolog.Nop()),
		students:  repository.NewStudentRepository(records),
		results:   repository.NewResultRepository(records),
		attempts:  repository.NewAttemptRepository(records),
		snapshots: repository.NewSnapshotRepository(rdb, cfg.Exam.SnapshotTTL),
		auth:      NewAuthService(cfg),
	}
}

func (e *env) sessionService(hooks SessionHooks) *ExamSessionService {
	return NewExamSessionService(e.classes, e.questions, e.students, e.results, e.snapshots, e.auth, hooks, e.cfg.Exam, zerolog.Nop())
}

// seedClass creates a class with one question per correct answer, options
// A|B|C|D, access key ABC123.
func (e *env) seedClass(t *testing.T, minutes int, correct ...string) *model.ExamDefinition {
	t.Helper()
	ctx := context.Background()

	def := &model.ExamDefinition{Name: "Physics", AccessKey: "ABC123", DurationMinutes: minutes}
	require.NoError(t, e.classes.Create(ctx, def))

	qs := make([]model.Question, len(correct))
	for i, c := range correct {
		qs[i] = model.Question{
			ID:            "q" + string(rune('1'+i)),
			Text:          "Question " + string(rune('1'+i)),
			Options:       model.NewDelimitedOptions("A", "B", "C", "D"),
			CorrectAnswer: c,
		}
	}
	if len(qs) > 0 {
		require.NoError(t, e.questions.AppendMany(ctx, def.ID, qs))
	}
	return def
}

type fakeMailer struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeMailer) Enqueue(_ context.Context, resultID string) error {
	f.mu.Lock()
	f.ids = append(f.ids, resultID)
	f.mu.Unlock()
	return nil
}

func (f *fakeMailer) queued() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []model.AttemptEvent
}

func (r *recordingObserver) Observe(ev model.AttemptEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingObserver) kinds() []model.AttemptEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AttemptEventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

var ada = model.StudentIdentity{Name: "Ada", Email: "ada@example.com"}
