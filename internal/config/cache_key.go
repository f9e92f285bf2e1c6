package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionSnapshotKey returns the cache key for a session's progress snapshot
func (r *CacheKeyStruct) SessionSnapshotKey(classID, sessionID string) string {
	return fmt.Sprintf("exam:%s:session:%s:snapshot", classID, sessionID)
}

// RecordCollectionKey returns the key of a serialized record collection,
// optionally scoped (e.g. questions of one class).
func (r *CacheKeyStruct) RecordCollectionKey(entity, scope string) string {
	if scope == "" {
		return fmt.Sprintf("examforge_%s", entity)
	}
	return fmt.Sprintf("examforge_%s_%s", entity, scope)
}

// RateLimitKey returns the counter key of one client in one limiter window
func (r *CacheKeyStruct) RateLimitKey(scope, client string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, client, window)
}

var CacheKey = NewCacheKeyStruct()
