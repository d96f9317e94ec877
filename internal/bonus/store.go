// Package bonus keeps per-identity bonus point balances. Registration grants
// flow in through the bonus listener; balances are read by the HTTP layer.
package bonus

import (
	"context"
	"sync"

	id "signup/pkg/domain"
)

// Store accumulates and reads bonus point balances keyed by public id.
type Store interface {
	Grant(ctx context.Context, userID id.UserID, points int64) (int64, error)
	Balance(ctx context.Context, userID id.UserID) (int64, error)
}

// Memory is the in-process Store used in dev and tests.
type Memory struct {
	mu       sync.RWMutex
	balances map[id.UserID]int64
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[id.UserID]int64)}
}

func (m *Memory) Grant(_ context.Context, userID id.UserID, points int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[userID] += points
	return m.balances[userID], nil
}

// Balance returns the current balance, zero for unknown identities.
func (m *Memory) Balance(_ context.Context, userID id.UserID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[userID], nil
}
