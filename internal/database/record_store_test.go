package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRecordBackend_LocalDrivers(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		driver string
		want   any
	}{
		{driver: "memory", want: &store.MemoryBackend{}},
		{driver: "file", want: &store.FileBackend{}},
		{driver: "sqlite", want: &store.SQLiteBackend{}},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := &config.Config{
				StoreDriver:  tt.driver,
				StoreFileDir: filepath.Join(dir, "files"),
				SQLitePath:   filepath.Join(dir, "records.db"),
			}
			b, closeFn, err := OpenRecordBackend(context.Background(), cfg, nil, zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(closeFn)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestOpenRecordBackend_UnknownDriver(t *testing.T) {
	_, _, err := OpenRecordBackend(context.Background(), &config.Config{StoreDriver: "excel"}, nil, zerolog.Nop())
	assert.ErrorContains(t, err, "excel")
}
