package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

// ErrNotFound is returned when no user record exists for the id.
var ErrNotFound = errors.New("user not found")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "memory": volatile in-process store (tests, dry runs)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API for user aggregates.
type Store interface {
	// GetUser returns the aggregate for id, or ErrNotFound.
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// SaveUser upserts the whole aggregate (user row + full subscription list).
	SaveUser(ctx context.Context, u *domain.User) error
	// ListUsers returns a snapshot of all aggregates.
	ListUsers(ctx context.Context) ([]*domain.User, error)
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
