// Package subscription is the in-process view over persistence, giving
// atomic read-modify-write on a user's subscription list.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"weatherbot/internal/domain"
	"weatherbot/internal/storage"
	"weatherbot/pkg/logx"
)

// Entry pairs a user with one of their subscriptions for fan-out stages.
type Entry struct {
	User         *domain.User
	Subscription domain.Subscription
}

// Service wraps the Store with whole-aggregate read-modify-write.
//
// The mutex serializes mutations from the command handlers and the scheduler;
// cross-user writes would be safe to interleave, but subscription traffic is
// low enough that one lock keeps the model simple (last-writer-wins at user
// granularity).
type Service struct {
	mu    sync.Mutex
	store storage.Store
	log   logx.Logger
}

func New(store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, log: log}
}

// GetOrCreateUser loads the user's aggregate, creating and persisting a
// default record if absent.
func (s *Service) GetOrCreateUser(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(ctx, id, "")
}

// TouchUser is GetOrCreateUser plus a display-name refresh.
func (s *Service) TouchUser(ctx context.Context, id int64, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.getOrCreateLocked(ctx, id, username)
	if err != nil {
		return nil, err
	}
	if username != "" && u.Username != username {
		u.Username = username
		if err := s.store.SaveUser(ctx, u); err != nil {
			return nil, fmt.Errorf("save user %d: %w", id, err)
		}
	}
	return u, nil
}

func (s *Service) getOrCreateLocked(ctx context.Context, id int64, username string) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	u = domain.NewUser(id, username)
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user %d: %w", id, err)
	}
	s.log.Info("user created", logx.Int64("user", id))
	return u, nil
}

// AddSubscription subscribes the user to a location. Fails with
// domain.ErrAlreadySubscribed on a case-insensitive duplicate.
func (s *Service) AddSubscription(ctx context.Context, userID int64, locationName string, coord domain.Coordinate, daily, emergency bool) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getOrCreateLocked(ctx, userID, "")
	if err != nil {
		return domain.Subscription{}, err
	}
	sub, err := u.Subscribe(locationName, coord, daily, emergency)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return domain.Subscription{}, fmt.Errorf("save user %d: %w", userID, err)
	}
	return sub, nil
}

// RemoveSubscription is idempotent: false means the location was not found.
func (s *Service) RemoveSubscription(ctx context.Context, userID int64, locationName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get user %d: %w", userID, err)
	}
	if !u.Unsubscribe(locationName) {
		return false, nil
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return false, fmt.Errorf("save user %d: %w", userID, err)
	}
	return true, nil
}

// UpdateFlags sets both delivery flags on the subscription.
func (s *Service) UpdateFlags(ctx context.Context, userID int64, locationName string, daily, emergency bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get user %d: %w", userID, err)
	}
	if !u.SetFlags(locationName, daily, emergency) {
		return false, nil
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return false, fmt.Errorf("save user %d: %w", userID, err)
	}
	return true, nil
}

// ToggleAlerts flips the emergency flag only and returns the new state.
func (s *Service) ToggleAlerts(ctx context.Context, userID int64, locationName string) (enabled bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, domain.ErrNotSubscribed
	}
	if err != nil {
		return false, fmt.Errorf("get user %d: %w", userID, err)
	}
	sub := u.FindSubscription(locationName)
	if sub == nil {
		return false, domain.ErrNotSubscribed
	}
	sub.EmergencyAlerts = !sub.EmergencyAlerts
	if err := s.store.SaveUser(ctx, u); err != nil {
		return false, fmt.Errorf("save user %d: %w", userID, err)
	}
	return sub.EmergencyAlerts, nil
}

// UpdateProfile replaces the user's profile attributes.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getOrCreateLocked(ctx, userID, "")
	if err != nil {
		return err
	}
	if p.Gender == "" {
		p.Gender = "unknown"
	}
	u.Profile = p
	if err := s.store.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("save user %d: %w", userID, err)
	}
	return nil
}

// ListSubscriptions returns the user's subscriptions (nil if user unknown).
func (s *Service) ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u.Subscriptions, nil
}

// ListDaily snapshots every (user, subscription) flagged for the daily digest.
func (s *Service) ListDaily(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, func(u *domain.User) []domain.Subscription { return u.DailySubscriptions() })
}

// ListAlerts snapshots every (user, subscription) flagged for emergency alerts.
func (s *Service) ListAlerts(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, func(u *domain.User) []domain.Subscription { return u.AlertSubscriptions() })
}

func (s *Service) list(ctx context.Context, pick func(*domain.User) []domain.Subscription) ([]Entry, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var out []Entry
	for _, u := range users {
		for _, sub := range pick(u) {
			out = append(out, Entry{User: u, Subscription: sub})
		}
	}
	return out, nil
}
