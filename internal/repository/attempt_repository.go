package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/store"
)

// AttemptRepository mirrors session lifecycle events into the attempts
// collection, one record per session.
type AttemptRepository struct {
	records store.BatchStore
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(records store.BatchStore) *AttemptRepository {
	return &AttemptRepository{records: records}
}

// Apply folds a batch of events into the collection with a single rewrite.
func (r *AttemptRepository) Apply(ctx context.Context, events []model.AttemptEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.records.Modify(ctx, store.EntityAttempts, "", func(recs []store.Record) ([]store.Record, error) {
		byID := make(map[string]store.Record, len(recs))
		for _, rec := range recs {
			byID[rec.ID()] = rec
		}
		for _, ev := range events {
			rec, ok := byID[ev.SessionID]
			if !ok {
				rec = store.Record{
					"id":           ev.SessionID,
					"classId":      ev.ClassID,
					"studentEmail": ev.StudentEmail,
					"status":       string(model.AttemptStatusInProgress),
					"tabSwitches":  "0",
					"startTime":    formatTime(ev.At),
					"endTime":      "",
				}
				byID[ev.SessionID] = rec
				recs = append(recs, rec)
			}
			applyAttemptEvent(rec, ev)
		}
		return recs, nil
	})
}

func applyAttemptEvent(rec store.Record, ev model.AttemptEvent) {
	if ev.StudentEmail != "" {
		rec["studentEmail"] = ev.StudentEmail
	}
	if ev.TabSwitches > atoi(rec["tabSwitches"]) {
		rec["tabSwitches"] = strconv.Itoa(ev.TabSwitches)
	}

	// A finished attempt stays finished even if a late event arrives.
	if rec["status"] != string(model.AttemptStatusInProgress) {
		return
	}
	switch ev.Kind {
	case model.AttemptEventCompleted:
		rec["status"] = string(model.AttemptStatusCompleted)
		rec["endTime"] = formatTime(ev.At)
	case model.AttemptEventAbandoned:
		rec["status"] = string(model.AttemptStatusAbandoned)
		rec["endTime"] = formatTime(ev.At)
	}
}

// ListByClass retrieves the attempts of one class.
func (r *AttemptRepository) ListByClass(ctx context.Context, classID string) ([]model.Attempt, error) {
	recs, err := r.records.ReadAll(ctx, store.EntityAttempts, "")
	if err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	out := make([]model.Attempt, 0)
	for _, rec := range recs {
		if rec["classId"] != classID {
			continue
		}
		out = append(out, model.Attempt{
			ID:           rec.ID(),
			ClassID:      rec["classId"],
			StudentEmail: rec["studentEmail"],
			Status:       model.AttemptStatus(rec["status"]),
			TabSwitches:  atoi(rec["tabSwitches"]),
			StartTime:    parseTime(rec["startTime"]),
			EndTime:      parseTimePtr(rec["endTime"]),
		})
	}
	return out, nil
}
