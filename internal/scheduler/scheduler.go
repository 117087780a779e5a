// Package scheduler runs the notification loop: every tick it polls
// emergency alerts, and once per UTC day it fans out the daily digest.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"weatherbot/internal/dispatch"
	"weatherbot/internal/domain"
	"weatherbot/internal/subscription"
	"weatherbot/pkg/logx"
)

// Subscriptions provides the fan-out views over subscription state.
type Subscriptions interface {
	ListDaily(ctx context.Context) ([]subscription.Entry, error)
	ListAlerts(ctx context.Context) ([]subscription.Entry, error)
}

// WeatherSource is the cache-fronted weather read side.
type WeatherSource interface {
	Current(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error)
	Alerts(ctx context.Context, coord domain.Coordinate) ([]domain.Alert, error)
}

// Advisor optionally enriches digests with a recommendation line.
type Advisor interface {
	Enabled() bool
	Recommend(ctx context.Context, snap domain.WeatherSnapshot, profile domain.Profile) string
}

// Dispatcher accepts outbound notifications.
type Dispatcher interface {
	Enqueue(n dispatch.Notification) error
}

type Config struct {
	Tick    string // tick schedule, see ParseTick; default "10m"
	DailyAt string // UTC wall-clock time for the digest, "HH:MM"; default "08:00"
}

// Service drives both stages off one loop. Stages run sequentially within
// a tick, alerts first, so a slow digest run never outpaces alert checks.
type Service struct {
	tick TickSpec
	log  logx.Logger

	subs    Subscriptions
	weather WeatherSource
	advisor Advisor
	out     Dispatcher
	clock   clockwork.Clock

	gate   dailyGate
	alerts alertState

	// runMu serializes tick runs against manual alert checks.
	runMu sync.Mutex

	mu       sync.Mutex
	stopCh   chan struct{}
	done     chan struct{}
	c        *cron.Cron
	observer func(stage string, took time.Duration)
}

func New(cfg Config, subs Subscriptions, weather WeatherSource, advisor Advisor, out Dispatcher, log logx.Logger) (*Service, error) {
	return NewWithClock(cfg, subs, weather, advisor, out, log, clockwork.NewRealClock())
}

func NewWithClock(cfg Config, subs Subscriptions, weather WeatherSource, advisor Advisor, out Dispatcher, log logx.Logger, clock clockwork.Clock) (*Service, error) {
	if cfg.Tick == "" {
		cfg.Tick = "10m"
	}
	if cfg.DailyAt == "" {
		cfg.DailyAt = "08:00"
	}
	tick, err := ParseTick(cfg.Tick)
	if err != nil {
		return nil, fmt.Errorf("scheduler tick: %w", err)
	}
	target, err := ParseTimeOfDay(cfg.DailyAt)
	if err != nil {
		return nil, fmt.Errorf("scheduler daily time: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		tick:    tick,
		log:     log,
		subs:    subs,
		weather: weather,
		advisor: advisor,
		out:     out,
		clock:   clock,
		gate:    dailyGate{target: target},
		alerts:  newAlertState(),
	}, nil
}

// SetObserver installs a per-stage duration hook. Call before Start.
func (s *Service) SetObserver(fn func(stage string, took time.Duration)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Start launches the loop. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return nil
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	switch s.tick.Kind {
	case TickCron:
		c := cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC))
		if _, err := c.AddFunc(s.tick.Cron, func() { s.runOnce(ctx) }); err != nil {
			s.stopCh = nil
			s.done = nil
			return fmt.Errorf("schedule tick: %w", err)
		}
		c.Start()
		s.c = c
		close(s.done)
		s.log.Info("scheduler started", logx.String("cron", s.tick.Cron))
	default:
		go s.loop(ctx, s.stopCh, s.done)
		s.log.Info("scheduler started", logx.Duration("tick", s.tick.Every))
	}
	return nil
}

// Stop halts the loop and waits for an in-flight tick to finish, bounded
// by ctx. Shutdown is observed between ticks, never mid-stage.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	stopCh, done, c := s.stopCh, s.done, s.c
	s.stopCh, s.done, s.c = nil, nil, nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	if c != nil {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return
		}
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Service) loop(ctx context.Context, stopCh chan struct{}, done chan struct{}) {
	defer close(done)
	t := s.clock.NewTicker(s.tick.Every)
	defer t.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-t.Chan():
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.timed("alerts", func() {
		n := s.pollAlerts(ctx)
		if n > 0 {
			s.log.Info("alert notifications enqueued", logx.Int("count", n))
		}
	})

	now := s.clock.Now()
	if s.gate.due(now) {
		s.timed("daily", func() {
			n := s.runDaily(ctx)
			s.log.Info("daily digest distributed", logx.Int("count", n))
		})
		s.gate.mark(now)
	}
}

// PollAlertsNow runs one alert poll outside the tick loop and reports how
// many notifications it enqueued. Used by the manual check command.
func (s *Service) PollAlertsNow(ctx context.Context) int {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.pollAlerts(ctx)
}

func (s *Service) timed(stage string, fn func()) {
	start := s.clock.Now()
	fn()
	s.mu.Lock()
	observer := s.observer
	s.mu.Unlock()
	if observer != nil {
		observer(stage, s.clock.Now().Sub(start))
	}
}
