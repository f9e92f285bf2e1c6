package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/store"
)

// ResultRepository handles the unscoped results collection.
type ResultRepository struct {
	records store.RecordStore
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(records store.RecordStore) *ResultRepository {
	return &ResultRepository{records: records}
}

// Create appends a result. Results are never updated afterwards.
func (r *ResultRepository) Create(ctx context.Context, res *model.ExamResult) error {
	if err := r.records.AppendOne(ctx, resultToRecord(res), store.EntityResults, ""); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by its ID.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*model.ExamResult, error) {
	recs, err := r.records.ReadAll(ctx, store.EntityResults, "")
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	for _, rec := range recs {
		if rec.ID() == id {
			return resultFromRecord(rec), nil
		}
	}
	return nil, ErrNotFound
}

// ListByClass retrieves the results of one class in submission order.
func (r *ResultRepository) ListByClass(ctx context.Context, classID string) ([]model.ExamResult, error) {
	recs, err := r.records.ReadAll(ctx, store.EntityResults, "")
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	out := make([]model.ExamResult, 0)
	for _, rec := range recs {
		if rec["classId"] == classID {
			out = append(out, *resultFromRecord(rec))
		}
	}
	return out, nil
}

func resultToRecord(res *model.ExamResult) store.Record {
	return store.Record{
		"id":                  res.ID,
		"classId":             res.ClassID,
		"className":           res.ClassName,
		"sessionId":           res.SessionID,
		"studentName":         res.Student.Name,
		"studentEmail":        res.Student.Email,
		"matricNumber":        res.Student.MatricNumber,
		"department":          res.Student.Department,
		"score":               strconv.Itoa(res.Score),
		"totalQuestions":      strconv.Itoa(res.TotalQuestions),
		"percentage":          strconv.Itoa(res.Percentage),
		"passed":              strconv.FormatBool(res.Passed),
		"grade":               res.Grade,
		"duration":            strconv.Itoa(res.DurationMinutes),
		"durationUsedSeconds": strconv.Itoa(res.DurationUsedSeconds),
		"integrityWarnings":   strconv.Itoa(res.IntegrityWarnings),
		"submitReason":        string(res.SubmitReason),
		"submittedAt":         formatTime(res.SubmittedAt),
	}
}

func resultFromRecord(rec store.Record) *model.ExamResult {
	return &model.ExamResult{
		ID:        rec.ID(),
		ClassID:   rec["classId"],
		ClassName: rec["className"],
		SessionID: rec["sessionId"],
		Student: model.StudentIdentity{
			Name:         rec["studentName"],
			Email:        rec["studentEmail"],
			MatricNumber: rec["matricNumber"],
			Department:   rec["department"],
		},
		Score:               atoi(rec["score"]),
		TotalQuestions:      atoi(rec["totalQuestions"]),
		Percentage:          atoi(rec["percentage"]),
		Passed:              parseBool(rec["passed"]),
		Grade:               rec["grade"],
		DurationMinutes:     atoi(rec["duration"]),
		DurationUsedSeconds: atoi(rec["durationUsedSeconds"]),
		IntegrityWarnings:   atoi(rec["integrityWarnings"]),
		SubmitReason:        model.SubmitReason(rec["submitReason"]),
		SubmittedAt:         parseTime(rec["submittedAt"]),
	}
}
