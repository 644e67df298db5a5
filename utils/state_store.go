package utils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type stateEntry struct {
	provider  string
	expiresAt time.Time
}

var (
	stateStore   = map[string]stateEntry{}
	stateStoreMu sync.Mutex
)

// NewOAuthState issues a single-use state token bound to provider.
func NewOAuthState(provider string, ttl time.Duration) string {
	state := uuid.NewString()
	SaveState(state, provider, ttl)
	return state
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state, provider string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, "oauth:state:"+state, provider, ttl).Err()
		return
	}
	stateStoreMu.Lock()
	stateStore[state] = stateEntry{provider: provider, expiresAt: time.Now().Add(ttl)}
	stateStoreMu.Unlock()
}

// ConsumeState validates and removes a state token issued for provider.
func ConsumeState(state, provider string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return getDel(ctx, "oauth:state:"+state) == provider
	}

	stateStoreMu.Lock()
	entry, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	return ok && entry.provider == provider && time.Now().Before(entry.expiresAt)
}
