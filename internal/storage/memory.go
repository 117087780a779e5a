package storage

import (
	"context"
	"sort"
	"sync"

	"weatherbot/internal/domain"
)

// Memory is a volatile Store for tests and dry runs.
type Memory struct {
	mu    sync.RWMutex
	users map[int64]*domain.User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]*domain.User)}
}

func (m *Memory) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (m *Memory) SaveUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	m.users[u.ID] = u.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Close() error { return nil }
