package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendFactories lists every backend that can run without external
// services. The PostgreSQL backend is covered by the integration tests.
func backendFactories(t *testing.T) map[string]func() Backend {
	t.Helper()
	return map[string]func() Backend{
		"memory": func() Backend { return NewMemoryBackend() },
		"file": func() Backend {
			b, err := NewFileBackend(t.TempDir())
			require.NoError(t, err)
			return b
		},
		"sqlite": func() Backend {
			b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "records.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			return b
		},
		"redis": func() Backend {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return NewRedisBackend(rdb)
		},
	}
}

func TestCSVStore_Contract(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewCSVStore(factory())

			recs, err := s.ReadAll(ctx, EntityStudents, "class-1")
			require.NoError(t, err)
			assert.Empty(t, recs, "absent collection reads as empty")
			assert.NotNil(t, recs)

			require.NoError(t, s.AppendOne(ctx, Record{"id": "s1", "name": "Ada"}, EntityStudents, "class-1"))
			require.NoError(t, s.AppendOne(ctx, Record{"id": "s2", "name": "Bob"}, EntityStudents, "class-1"))

			require.NoError(t, s.UpdateByID(ctx, "s2", Record{"name": "Bobby", "email": "bob@example.com"}, EntityStudents, "class-1"))
			require.NoError(t, s.UpdateByID(ctx, "missing", Record{"name": "x"}, EntityStudents, "class-1"))

			recs, err = s.ReadAll(ctx, EntityStudents, "class-1")
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "Ada", recs[0]["name"])
			assert.Equal(t, "Bobby", recs[1]["name"])
			assert.Equal(t, "bob@example.com", recs[1]["email"])

			other, err := s.ReadAll(ctx, EntityStudents, "class-2")
			require.NoError(t, err)
			assert.Empty(t, other, "scopes are isolated")

			require.NoError(t, s.DeleteByID(ctx, "s1", EntityStudents, "class-1"))
			recs, err = s.ReadAll(ctx, EntityStudents, "class-1")
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "s2", recs[0].ID())

			require.NoError(t, s.ReplaceAll(ctx, []Record{{"id": "s9"}}, EntityStudents, "class-1"))
			recs, err = s.ReadAll(ctx, EntityStudents, "class-1")
			require.NoError(t, err)
			assert.Equal(t, []Record{{"id": "s9"}}, recs)
		})
	}
}

func TestCSVStore_ConcurrentAppendsAreNotLost(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewCSVStore(factory())

			const n = 25
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, s.AppendOne(ctx, Record{"id": fmt.Sprintf("r%d", i)}, EntityResults, ""))
				}(i)
			}
			wg.Wait()

			recs, err := s.ReadAll(ctx, EntityResults, "")
			require.NoError(t, err)
			assert.Len(t, recs, n)
		})
	}
}

func TestCSVStore_TwoStoresOnOneAtomicBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Two stores share nothing but the backend, like two server instances.
	a := NewCSVStore(NewRedisBackend(rdb))
	b := NewCSVStore(NewRedisBackend(rdb))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, a.AppendOne(ctx, Record{"id": fmt.Sprintf("a%d", i)}, EntityResults, ""))
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, b.AppendOne(ctx, Record{"id": fmt.Sprintf("b%d", i)}, EntityResults, ""))
		}(i)
	}
	wg.Wait()

	recs, err := a.ReadAll(ctx, EntityResults, "")
	require.NoError(t, err)
	assert.Len(t, recs, 40)
}

func TestCSVStore_WriteFailureIsSurfaced(t *testing.T) {
	backend := NewMemoryBackend()
	s := NewCSVStore(backend)
	ctx := context.Background()

	require.NoError(t, s.AppendOne(ctx, Record{"id": "r1"}, EntityResults, ""))

	boom := errors.New("disk full")
	backend.SetFailWrites(boom)
	err := s.AppendOne(ctx, Record{"id": "r2"}, EntityResults, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	backend.SetFailWrites(nil)
	recs, err := s.ReadAll(ctx, EntityResults, "")
	require.NoError(t, err)
	assert.Len(t, recs, 1, "failed append must not be visible")
}

func TestCSVStore_ModifyNoChangeSkipsWrite(t *testing.T) {
	backend := NewMemoryBackend()
	s := NewCSVStore(backend)
	ctx := context.Background()

	backend.SetFailWrites(errors.New("should not write"))
	err := s.Modify(ctx, EntityAttempts, "", func([]Record) ([]Record, error) {
		return nil, ErrNoChange
	})
	assert.NoError(t, err)
}

func TestCollectionKey(t *testing.T) {
	assert.Equal(t, "examforge_classes", CollectionKey(EntityClasses, ""))
	assert.Equal(t, "examforge_questions_c1", CollectionKey(EntityQuestions, "c1"))
}
