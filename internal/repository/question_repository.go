package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuestionRepository loads and stores the question bank of a class.
type QuestionRepository struct {
	records store.BatchStore
	log     zerolog.Logger
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(records store.BatchStore, log zerolog.Logger) *QuestionRepository {
	return &QuestionRepository{
		records: records,
		log:     log.With().Str("component", "question_repository").Logger(),
	}
}

// ListByClass retrieves all questions of a class in stored order. A question
// whose options cannot be parsed is kept with an empty option list.
func (r *QuestionRepository) ListByClass(ctx context.Context, classID string) ([]model.Question, error) {
	recs, err := r.records.ReadAll(ctx, store.EntityQuestions, classID)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	questions := make([]model.Question, 0, len(recs))
	for _, rec := range recs {
		opts, err := model.ParseOptionSet(rec["options"])
		if err != nil {
			r.log.Warn().Err(err).
				Str("class_id", classID).
				Str("question_id", rec.ID()).
				Msg("Malformed options, serving question without options")
		}
		questions = append(questions, model.Question{
			ID:            rec.ID(),
			ClassID:       classID,
			Text:          rec["question"],
			Options:       opts,
			CorrectAnswer: rec["correctAnswer"],
			CreatedAt:     parseTime(rec["createdAt"]),
		})
	}
	return questions, nil
}

// Create appends a question to its class bank.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	prepareQuestion(q)
	return r.records.AppendOne(ctx, questionToRecord(q), store.EntityQuestions, q.ClassID)
}

// AppendMany adds a batch of questions to a class bank in one rewrite.
func (r *QuestionRepository) AppendMany(ctx context.Context, classID string, questions []model.Question) error {
	added := make([]store.Record, len(questions))
	for i := range questions {
		questions[i].ClassID = classID
		prepareQuestion(&questions[i])
		added[i] = questionToRecord(&questions[i])
	}
	return r.records.Modify(ctx, store.EntityQuestions, classID, func(recs []store.Record) ([]store.Record, error) {
		return append(recs, added...), nil
	})
}

func prepareQuestion(q *model.Question) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
}

func questionToRecord(q *model.Question) store.Record {
	return store.Record{
		"id":            q.ID,
		"question":      q.Text,
		"options":       q.Options.Encode(),
		"correctAnswer": q.CorrectAnswer,
		"createdAt":     formatTime(q.CreatedAt),
	}
}
