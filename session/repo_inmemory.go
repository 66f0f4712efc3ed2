package session

import (
	"context"
	"strings"
	"sync"
)

// InMemoryRepo is an in-memory implementation of Repo, used in tests and for
// single-process deployments without Redis.
type InMemoryRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{values: make(map[string]string)}
}

// SetAll applies the whole batch under one lock
func (r *InMemoryRepo) SetAll(_ context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		r.values[k] = v
	}
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *InMemoryRepo) DeleteSuffix(_ context.Context, suffix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for k := range r.values {
		if strings.HasSuffix(k, suffix) {
			delete(r.values, k)
			removed++
		}
	}
	return removed, nil
}

func (r *InMemoryRepo) Keys(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	return keys, nil
}
