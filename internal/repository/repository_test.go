package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *store.CSVStore {
	return store.NewCSVStore(store.NewMemoryBackend())
}

func TestClassRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewClassRepository(newTestStore())

	expiry := time.Date(2030, 1, 2, 15, 4, 5, 0, time.UTC)
	c := &model.ExamDefinition{
		Name:            "Physics 101",
		AccessKey:       "ABC123",
		DurationMinutes: 45,
		QuestionCount:   10,
		ExpiryDate:      &expiry,
	}
	require.NoError(t, repo.Create(ctx, c))
	require.NotEmpty(t, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics 101", got.Name)
	assert.Equal(t, "ABC123", got.AccessKey)
	assert.Equal(t, 45, got.DurationMinutes)
	assert.Equal(t, 10, got.QuestionCount)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, expiry.Equal(*got.ExpiryDate))

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestQuestionRepository_BothEncodingsAndMalformed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.ReplaceAll(ctx, []store.Record{
		{"id": "q1", "question": "Capital of France?", "options": "Paris|London|Rome", "correctAnswer": "Paris"},
		{"id": "q2", "question": "2+2?", "options": `[{"id":"a","text":"3"},{"id":"b","text":"4"}]`, "correctAnswer": "4"},
		{"id": "q3", "question": "Broken", "options": `[{"id":`, "correctAnswer": "x"},
	}, store.EntityQuestions, "c1"))

	repo := NewQuestionRepository(s, zerolog.Nop())
	qs, err := repo.ListByClass(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, qs, 3)

	assert.Equal(t, []string{"Paris", "London", "Rome"}, qs[0].Options.Texts())
	assert.Equal(t, []string{"3", "4"}, qs[1].Options.Texts())
	assert.Empty(t, qs[2].Options.Texts())
	assert.Equal(t, "c1", qs[2].ClassID)

	empty, err := repo.ListByClass(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestQuestionRepository_CreateAndAppendMany(t *testing.T) {
	ctx := context.Background()
	repo := NewQuestionRepository(newTestStore(), zerolog.Nop())

	require.NoError(t, repo.Create(ctx, &model.Question{
		ClassID: "c1", Text: "Q1", Options: model.NewJSONOptions("a", "b"), CorrectAnswer: "a",
	}))
	require.NoError(t, repo.AppendMany(ctx, "c1", []model.Question{
		{Text: "Q2", Options: model.NewDelimitedOptions("x", "y"), CorrectAnswer: "y"},
		{Text: "Q3", Options: model.NewDelimitedOptions("1", "2"), CorrectAnswer: "1"},
	}))

	qs, err := repo.ListByClass(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "Q1", qs[0].Text)
	assert.Equal(t, model.OptionEncodingJSON, qs[0].Options.Encoding)
	assert.Equal(t, "y", qs[1].CorrectAnswer)
	assert.NotEmpty(t, qs[2].ID)
}

func TestStudentRepository_Register(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newTestStore())
	repo.now = func() time.Time { return time.UnixMilli(1700000000123) }

	entry, err := repo.Register(ctx, "c1", model.StudentIdentity{Name: "Ada", Email: "ada@example.com", MatricNumber: "M-1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(entry.ID, "student_1700000000123_"), entry.ID)

	roster, err := repo.ListByClass(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, entry.ID, roster[0].ID)
	assert.Equal(t, "Ada", roster[0].Name)
	assert.Equal(t, "M-1", roster[0].MatricNumber)
}

func TestStudentRepository_SameMillisecondIDsAreDistinct(t *testing.T) {
	ctx := context.Background()
	records := newTestStore()
	repo := NewStudentRepository(records)
	repo.now = func() time.Time { return time.UnixMilli(1777885200000) }

	first, err := repo.Register(ctx, "c1", model.StudentIdentity{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	second, err := repo.Register(ctx, "c1", model.StudentIdentity{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	require.NoError(t, records.DeleteByID(ctx, first.ID, store.EntityStudents, "c1"))
	roster, err := repo.ListByClass(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Bob", roster[0].Name)
}

func TestResultRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(newTestStore())

	res := &model.ExamResult{
		ID: "result_1", ClassID: "c1", ClassName: "Physics",
		Student: model.StudentIdentity{Name: "Ada", Email: "ada@example.com"},
		Score:   3, TotalQuestions: 4, Percentage: 75, Passed: true, Grade: "D",
		DurationMinutes: 30, DurationUsedSeconds: 600, IntegrityWarnings: 1,
		SubmitReason: model.SubmitReasonManual,
		SubmittedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, res))
	require.NoError(t, repo.Create(ctx, &model.ExamResult{ID: "result_2", ClassID: "c2"}))

	got, err := repo.GetByID(ctx, "result_1")
	require.NoError(t, err)
	assert.True(t, res.SubmittedAt.Equal(got.SubmittedAt))
	got.SubmittedAt = res.SubmittedAt
	assert.Equal(t, res, got)

	byClass, err := repo.ListByClass(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, byClass, 1)

	_, err = repo.GetByID(ctx, "result_9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttemptRepository_Apply(t *testing.T) {
	ctx := context.Background()
	repo := NewAttemptRepository(newTestStore())
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Apply(ctx, []model.AttemptEvent{
		{Kind: model.AttemptEventStarted, SessionID: "s1", ClassID: "c1", StudentEmail: "ada@example.com", At: start},
		{Kind: model.AttemptEventFocusLost, SessionID: "s1", ClassID: "c1", TabSwitches: 1, At: start.Add(time.Minute)},
		{Kind: model.AttemptEventStarted, SessionID: "s2", ClassID: "c1", At: start},
	}))
	require.NoError(t, repo.Apply(ctx, []model.AttemptEvent{
		{Kind: model.AttemptEventCompleted, SessionID: "s1", ClassID: "c1", TabSwitches: 2, At: start.Add(5 * time.Minute)},
		{Kind: model.AttemptEventAbandoned, SessionID: "s1", ClassID: "c1", At: start.Add(6 * time.Minute)},
	}))

	attempts, err := repo.ListByClass(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	a := attempts[0]
	assert.Equal(t, "s1", a.ID)
	assert.Equal(t, model.AttemptStatusCompleted, a.Status)
	assert.Equal(t, 2, a.TabSwitches)
	assert.True(t, start.Equal(a.StartTime))
	require.NotNil(t, a.EndTime)
	assert.True(t, start.Add(5*time.Minute).Equal(*a.EndTime))

	assert.Equal(t, model.AttemptStatusInProgress, attempts[1].Status)
	assert.Nil(t, attempts[1].EndTime)
}

func TestSnapshotRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	repo := NewSnapshotRepository(rdb, time.Hour)

	snap, err := repo.Load(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := &model.Snapshot{
		Answers:              map[string]string{"q1": "B"},
		CurrentIndex:         2,
		TimeRemainingSeconds: 1200,
		QuestionOrder:        []string{"q2", "q1", "q3"},
	}
	require.NoError(t, repo.Save(ctx, "c1", "s1", want))

	key := "exam:c1:session:s1:snapshot"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.Contains(t, raw, `"currentIndex":2`)
	assert.Contains(t, raw, `"timeRemainingSeconds":1200`)

	got, err := repo.Load(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, want.Answers, got.Answers)
	assert.Equal(t, want.QuestionOrder, got.QuestionOrder)

	require.NoError(t, repo.Clear(ctx, "c1", "s1"))
	got, err = repo.Load(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
