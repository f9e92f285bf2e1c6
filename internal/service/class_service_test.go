package service

import (
	"context"
	"strings"
	"testing"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassService(e *env) *ClassService {
	return NewClassService(e.classes, e.questions, e.students, e.attempts)
}

func TestClassService_CreateAndList(t *testing.T) {
	e := newEnv(t)
	svc := newClassService(e)
	ctx := context.Background()

	def, err := svc.Create(ctx, &model.CreateClassRequest{
		Name: "  Chemistry ", AccessKey: "KEY-1", DurationMinutes: 45, QuestionCount: 10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID)
	assert.Equal(t, "Chemistry", def.Name)

	got, err := svc.GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, got.DurationMinutes)
	assert.Equal(t, 10, got.QuestionCount)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestClassService_AddQuestion(t *testing.T) {
	e := newEnv(t)
	def := e.seedClass(t, 30)
	svc := newClassService(e)
	ctx := context.Background()

	q, err := svc.AddQuestion(ctx, def.ID, &model.AddQuestionRequest{
		Question:      "Capital of France?",
		Options:       []string{"Paris ", "Rome"},
		CorrectAnswer: "Paris",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OptionEncodingJSON, q.Options.Encoding)

	bank, err := svc.ListQuestions(ctx, def.ID)
	require.NoError(t, err)
	require.Len(t, bank, 1)
	assert.Equal(t, []string{"Paris", "Rome"}, bank[0].Options.Texts())
	assert.Equal(t, "Paris", bank[0].CorrectAnswer)

	_, err = svc.AddQuestion(ctx, def.ID, &model.AddQuestionRequest{
		Question: "Q", Options: []string{"A", "B"}, CorrectAnswer: "C",
	})
	assert.ErrorIs(t, err, ErrCorrectAnswerNotInOptions)

	_, err = svc.AddQuestion(ctx, def.ID, &model.AddQuestionRequest{
		Question: "Q", Options: []string{"A", "A"}, CorrectAnswer: "A",
	})
	assert.ErrorIs(t, err, ErrDuplicateOptions)

	_, err = svc.AddQuestion(ctx, "missing", &model.AddQuestionRequest{
		Question: "Q", Options: []string{"A", "B"}, CorrectAnswer: "A",
	})
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestClassService_ImportQuestions(t *testing.T) {
	e := newEnv(t)
	def := e.seedClass(t, 30)
	svc := newClassService(e)
	ctx := context.Background()

	input := strings.Join([]string{
		`question,options,correct_answer`,
		`Capital of France?,Paris|London|Rome,Paris`,
		`"2 + 2?","[{""id"":""a"",""text"":""3""},{""id"":""b"",""text"":""4""}]",4`,
		`Broken options,Paris,Paris`,
		`Wrong answer,A|B,C`,
		`,,`,
		`No text,,A`,
	}, "\n")

	report, err := svc.ImportQuestions(ctx, def.ID, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)

	skippedRows := make([]int, len(report.Skipped))
	for i, s := range report.Skipped {
		skippedRows[i] = s.Row
	}
	assert.Equal(t, []int{4, 5, 7}, skippedRows)

	bank, err := svc.ListQuestions(ctx, def.ID)
	require.NoError(t, err)
	require.Len(t, bank, 2)
	assert.Equal(t, model.OptionEncodingDelimited, bank[0].Options.Encoding)
	assert.Equal(t, model.OptionEncodingJSON, bank[1].Options.Encoding)
	assert.Equal(t, []string{"3", "4"}, bank[1].Options.Texts())
}

func TestClassService_ImportQuestionsRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	def := e.seedClass(t, 30)
	svc := newClassService(e)
	ctx := context.Background()

	_, err := svc.ImportQuestions(ctx, def.ID, strings.NewReader("text,answer\nx,y\n"))
	assert.ErrorIs(t, err, ErrImportHeader)

	_, err = svc.ImportQuestions(ctx, def.ID, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrImportHeader)

	report, err := svc.ImportQuestions(ctx, def.ID, strings.NewReader("question,options,correctAnswer\nQ,A|B,Z\n"))
	assert.ErrorIs(t, err, ErrImportEmpty)
	require.NotNil(t, report)
	assert.Len(t, report.Skipped, 1)
}

func TestClassService_RosterAndAttempts(t *testing.T) {
	e := newEnv(t)
	def := e.seedClass(t, 30, "A")
	svc := newClassService(e)
	ctx := context.Background()

	_, err := e.students.Register(ctx, def.ID, ada)
	require.NoError(t, err)
	require.NoError(t, e.attempts.Apply(ctx, []model.AttemptEvent{
		{Kind: model.AttemptEventStarted, SessionID: "s1", ClassID: def.ID, StudentEmail: ada.Email},
	}))

	roster, err := svc.Roster(ctx, def.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Ada", roster[0].Name)

	attempts, err := svc.Attempts(ctx, def.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, model.AttemptStatusInProgress, attempts[0].Status)

	_, err = svc.Roster(ctx, "missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
}
