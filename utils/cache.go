package utils

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const defaultCacheTTL = time.Hour

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

var (
	memCache   = map[string]memEntry{}
	memCacheMu sync.Mutex
)

// CacheGetBytes returns cached bytes for a key from Redis, or from process memory without redis.
func CacheGetBytes(key string) ([]byte, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b, err := rc.Get(ctx, key).Bytes()
		if err != nil {
			Sugar.Debugf("cache get miss key=%s err=%v", key, err)
			return nil, false
		}
		return b, true
	}

	memCacheMu.Lock()
	defer memCacheMu.Unlock()
	e, ok := memCache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(memCache, key)
		return nil, false
	}
	return e.value, true
}

// CacheSetBytes stores bytes with ttl, the default TTL when ttl <= 0.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
		return
	}
	memCacheMu.Lock()
	memCache[key] = memEntry{value: b, expiresAt: time.Now().Add(ttl)}
	memCacheMu.Unlock()
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(key, b, ttl)
}

// CacheGetJSON unmarshals a cached value into out and reports whether it was found.
func CacheGetJSON(key string, out interface{}) bool {
	b, ok := CacheGetBytes(key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// InvalidateByPrefix deletes keys that match the given prefix.
func InvalidateByPrefix(prefix string) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		var cursor uint64
		for i := 0; i < 10; i++ { // bounded number of SCAN rounds
			keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
			if err != nil {
				break
			}
			cursor = cur
			if len(keys) > 0 {
				pipe := rc.Pipeline()
				for _, k := range keys {
					pipe.Del(ctx, k)
				}
				_, _ = pipe.Exec(ctx)
			}
			if cursor == 0 {
				break
			}
		}
		return
	}

	memCacheMu.Lock()
	for k := range memCache {
		if strings.HasPrefix(k, prefix) {
			delete(memCache, k)
		}
	}
	memCacheMu.Unlock()
}

// UserCardKey is the cache key of a public user card.
func UserCardKey(username string) string {
	return "user:card:" + username
}
