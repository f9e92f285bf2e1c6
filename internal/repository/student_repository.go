package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/google/uuid"
)

// StudentRepository handles the per-class student roster.
type StudentRepository struct {
	records store.RecordStore
	now     func() time.Time
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(records store.RecordStore) *StudentRepository {
	return &StudentRepository{records: records, now: time.Now}
}

// Register appends a student to the roster of a class. Ids carry a random
// suffix so registrations within the same millisecond stay distinct.
func (r *StudentRepository) Register(ctx context.Context, classID string, identity model.StudentIdentity) (*model.RosterEntry, error) {
	now := r.now()
	entry := &model.RosterEntry{
		ID:              fmt.Sprintf("student_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
		ClassID:         classID,
		CreatedAt:       now,
		StudentIdentity: identity,
	}
	rec := store.Record{
		"id":           entry.ID,
		"name":         identity.Name,
		"email":        identity.Email,
		"matricNumber": identity.MatricNumber,
		"department":   identity.Department,
		"createdAt":    formatTime(now),
	}
	if err := r.records.AppendOne(ctx, rec, store.EntityStudents, classID); err != nil {
		return nil, fmt.Errorf("append student: %w", err)
	}
	return entry, nil
}

// ListByClass retrieves the roster of a class in registration order.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]model.RosterEntry, error) {
	recs, err := r.records.ReadAll(ctx, store.EntityStudents, classID)
	if err != nil {
		return nil, fmt.Errorf("read students: %w", err)
	}
	out := make([]model.RosterEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.RosterEntry{
			ID:        rec.ID(),
			ClassID:   classID,
			CreatedAt: parseTime(rec["createdAt"]),
			StudentIdentity: model.StudentIdentity{
				Name:         rec["name"],
				Email:        rec["email"],
				MatricNumber: rec["matricNumber"],
				Department:   rec["department"],
			},
		})
	}
	return out, nil
}
