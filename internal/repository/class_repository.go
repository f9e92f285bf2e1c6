package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/google/uuid"
)

// ClassRepository handles class (exam definition) data access.
type ClassRepository struct {
	records store.RecordStore
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(records store.RecordStore) *ClassRepository {
	return &ClassRepository{records: records}
}

// GetByID retrieves a class by its ID.
func (r *ClassRepository) GetByID(ctx context.Context, id string) (*model.ExamDefinition, error) {
	recs, err := r.records.ReadAll(ctx, store.EntityClasses, "")
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	for _, rec := range recs {
		if rec.ID() == id {
			return classFromRecord(rec), nil
		}
	}
	return nil, ErrNotFound
}

// List retrieves all classes.
func (r *ClassRepository) List(ctx context.Context) ([]model.ExamDefinition, error) {
	recs, err := r.records.ReadAll(ctx, store.EntityClasses, "")
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	classes := make([]model.ExamDefinition, 0, len(recs))
	for _, rec := range recs {
		classes = append(classes, *classFromRecord(rec))
	}
	return classes, nil
}

// Create inserts a new class, assigning its ID and creation time.
func (r *ClassRepository) Create(ctx context.Context, c *model.ExamDefinition) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return r.records.AppendOne(ctx, classToRecord(c), store.EntityClasses, "")
}

func classToRecord(c *model.ExamDefinition) store.Record {
	rec := store.Record{
		"id":           c.ID,
		"name":         c.Name,
		"description":  c.Description,
		"creatorId":    c.CreatorID,
		"accessKey":    c.AccessKey,
		"duration":     strconv.Itoa(c.DurationMinutes),
		"numQuestions": strconv.Itoa(c.QuestionCount),
		"expiryDate":   "",
		"createdAt":    formatTime(c.CreatedAt),
	}
	if c.ExpiryDate != nil {
		rec["expiryDate"] = formatTime(*c.ExpiryDate)
	}
	return rec
}

func classFromRecord(rec store.Record) *model.ExamDefinition {
	return &model.ExamDefinition{
		ID:              rec.ID(),
		Name:            rec["name"],
		Description:     rec["description"],
		CreatorID:       rec["creatorId"],
		AccessKey:       rec["accessKey"],
		DurationMinutes: atoi(rec["duration"]),
		QuestionCount:   atoi(rec["numQuestions"]),
		ExpiryDate:      parseTimePtr(rec["expiryDate"]),
		CreatedAt:       parseTime(rec["createdAt"]),
	}
}
