// Package inflight keeps at most one pending invocation of a mutating action
// per key. A second Acquire while the first is held fails with ErrBusy
// instead of queueing.
package inflight

import (
	"context"
	"errors"
	"sync"
)

var ErrBusy = errors.New("action already in progress")

// Guard hands out per-key exclusive leases.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Memory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]struct{})}
}

func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.held[key]; busy {
		return nil, ErrBusy
	}
	m.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently leased.
func (m *Memory) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
