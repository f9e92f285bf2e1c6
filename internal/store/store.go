// Package store is the flat-file record database: every collection of
// records is serialized to CSV text and kept under a single key of a
// key-value backend.
package store

import (
	"context"
	"errors"

	"github.com/examforge/examforge-backend/internal/config"
)

// EntityType names a record collection.
type EntityType string

const (
	EntityClasses   EntityType = "classes"
	EntityQuestions EntityType = "questions" // scoped by class id
	EntityStudents  EntityType = "students"  // scoped by class id
	EntityResults   EntityType = "results"
	EntityAttempts  EntityType = "attempts"
)

// IDColumn is the column every record is addressed by.
const IDColumn = "id"

// Record is one row of a collection, column name to value.
type Record map[string]string

// ID returns the record's id column.
func (r Record) ID() string {
	return r[IDColumn]
}

// RecordStore is the record persistence contract consumed by the exam core.
// ReadAll never fails for an absent collection; it returns an empty list.
// There are no transactions: every mutation rewrites the whole collection.
type RecordStore interface {
	ReadAll(ctx context.Context, entity EntityType, scope string) ([]Record, error)
	AppendOne(ctx context.Context, rec Record, entity EntityType, scope string) error
	// UpdateByID merges fields into the record with the given id. It is a
	// no-op when the id is absent.
	UpdateByID(ctx context.Context, id string, fields Record, entity EntityType, scope string) error
	DeleteByID(ctx context.Context, id string, entity EntityType, scope string) error
	ReplaceAll(ctx context.Context, recs []Record, entity EntityType, scope string) error
}

// BatchStore is a RecordStore that can also apply an arbitrary change to a
// collection in one read-modify-write cycle.
type BatchStore interface {
	RecordStore
	Modify(ctx context.Context, entity EntityType, scope string, fn func([]Record) ([]Record, error)) error
}

// Backend is a key-value slot holding serialized collections.
type Backend interface {
	// Get returns the text stored under key; ok is false when absent.
	Get(ctx context.Context, key string) (text string, ok bool, err error)
	Put(ctx context.Context, key, text string) error
}

// AtomicBackend is a backend that can run a read-modify-write cycle on one
// key without interference from other processes.
type AtomicBackend interface {
	Backend
	Update(ctx context.Context, key string, fn func(text string, ok bool) (string, error)) error
}

// ErrNoChange may be returned by an update function to skip the write.
var ErrNoChange = errors.New("store: no change")

// CollectionKey returns the backend key of a collection.
func CollectionKey(entity EntityType, scope string) string {
	return config.CacheKey.RecordCollectionKey(string(entity), scope)
}
