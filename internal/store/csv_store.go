package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CSVStore implements RecordStore over a Backend. Every mutation is a
// read-all / modify / write-all cycle on the collection's key. Cycles on the
// same key are serialized inside the process; an AtomicBackend additionally
// makes them atomic across processes.
type CSVStore struct {
	backend Backend

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCSVStore creates a CSVStore on top of backend.
func NewCSVStore(backend Backend) *CSVStore {
	return &CSVStore{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

// ReadAll returns every record of a collection, or an empty list if the
// collection does not exist yet.
func (s *CSVStore) ReadAll(ctx context.Context, entity EntityType, scope string) ([]Record, error) {
	key := CollectionKey(entity, scope)
	text, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return []Record{}, nil
	}
	recs, err := DecodeCSV(text)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return recs, nil
}

// AppendOne adds rec at the end of the collection.
func (s *CSVStore) AppendOne(ctx context.Context, rec Record, entity EntityType, scope string) error {
	return s.mutate(ctx, entity, scope, func(recs []Record) ([]Record, error) {
		return append(recs, copyRecord(rec)), nil
	})
}

// UpdateByID merges fields into the record with the given id.
func (s *CSVStore) UpdateByID(ctx context.Context, id string, fields Record, entity EntityType, scope string) error {
	return s.mutate(ctx, entity, scope, func(recs []Record) ([]Record, error) {
		found := false
		for _, r := range recs {
			if r.ID() != id {
				continue
			}
			for k, v := range fields {
				if k == IDColumn {
					continue
				}
				r[k] = v
			}
			found = true
		}
		if !found {
			return nil, ErrNoChange
		}
		return recs, nil
	})
}

// DeleteByID removes every record with the given id.
func (s *CSVStore) DeleteByID(ctx context.Context, id string, entity EntityType, scope string) error {
	return s.mutate(ctx, entity, scope, func(recs []Record) ([]Record, error) {
		kept := recs[:0]
		for _, r := range recs {
			if r.ID() != id {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(recs) {
			return nil, ErrNoChange
		}
		return kept, nil
	})
}

// ReplaceAll overwrites the whole collection.
func (s *CSVStore) ReplaceAll(ctx context.Context, recs []Record, entity EntityType, scope string) error {
	return s.mutate(ctx, entity, scope, func([]Record) ([]Record, error) {
		out := make([]Record, len(recs))
		for i, r := range recs {
			out[i] = copyRecord(r)
		}
		return out, nil
	})
}

// Modify runs fn on the current records of a collection and writes back the
// returned list, as one cycle. Returning ErrNoChange skips the write.
func (s *CSVStore) Modify(ctx context.Context, entity EntityType, scope string, fn func([]Record) ([]Record, error)) error {
	return s.mutate(ctx, entity, scope, fn)
}

func (s *CSVStore) mutate(ctx context.Context, entity EntityType, scope string, fn func([]Record) ([]Record, error)) error {
	key := CollectionKey(entity, scope)

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	apply := func(text string, ok bool) (string, error) {
		recs := []Record{}
		if ok {
			var err error
			if recs, err = DecodeCSV(text); err != nil {
				return "", fmt.Errorf("decode %s: %w", key, err)
			}
		}
		next, err := fn(recs)
		if err != nil {
			return "", err
		}
		return EncodeCSV(next)
	}

	var err error
	if atomic, ok := s.backend.(AtomicBackend); ok {
		err = atomic.Update(ctx, key, apply)
	} else {
		err = s.readModifyWrite(ctx, key, apply)
	}
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	return err
}

func (s *CSVStore) readModifyWrite(ctx context.Context, key string, apply func(string, bool) (string, error)) error {
	text, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	next, err := apply(text, ok)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, key, next); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *CSVStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
