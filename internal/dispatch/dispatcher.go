// Package dispatch fans (recipient, message) pairs out to the chat
// transport with bounded concurrency, global rate limiting, and
// per-recipient pacing. Failures are classified and swallowed here; nothing
// from this package ever aborts a scheduler run.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"weatherbot/pkg/logx"
)

// Transport is the outbound send primitive (implemented by the Telegram
// adapter). Implementations wrap permanent per-recipient failures with
// ErrRecipientUnreachable.
type Transport interface {
	SendText(ctx context.Context, recipient int64, text string) error
}

// Service implements the notification pipeline: queue + worker pool +
// rate limit + per-recipient pacing. Safe for concurrent use.
type Service struct {
	mu sync.Mutex

	transport Transport
	log       logx.Logger

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	queue     chan Notification
	workerWG  sync.WaitGroup
	enqueueWG sync.WaitGroup
	stopDone  chan struct{} // non-nil while stopping

	// lastSend reserves the next allowed send instant per recipient so
	// parallel workers keep the minimum inter-message gap.
	paceMu   sync.Mutex
	lastSend map[int64]time.Time

	// observer is notified after every delivery attempt (metrics hook).
	observer func(outcome Outcome)
	// dropObserver is notified when a full queue rejects a notification.
	dropObserver func()
}

func New(cfg Config, transport Transport, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		transport: transport,
		log:       log,
		lastSend:  map[int64]time.Time{},
	}
	s.applyLocked(cfg)
	return s
}

// SetTransport installs the outbound send primitive. Call before Start;
// the dispatcher refuses deliveries while it has no transport.
func (s *Service) SetTransport(t Transport) {
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
}

// SetObserver installs a delivery-outcome hook. Call before Start.
func (s *Service) SetObserver(fn func(outcome Outcome)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// SetDropObserver installs a queue-overflow hook. Call before Start.
func (s *Service) SetDropObserver(fn func()) {
	s.mu.Lock()
	s.dropObserver = fn
	s.mu.Unlock()
}

// Apply updates the pipeline configuration. Queue size takes effect on the
// next Start; rate and pacing apply immediately.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 512
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.PerRecipientDelay <= 0 {
		cfg.PerRecipientDelay = 150 * time.Millisecond
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start launches the worker pool. Idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.queue != nil || s.stopDone != nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan Notification, s.cfg.QueueSize)
	s.accepting = true
	workers := s.cfg.Workers
	q := s.queue
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			s.workerLoop(ctx, q)
		}()
	}
	s.log.Info("dispatcher started", logx.Int("workers", workers))
}

// Stop blocks intake and drains the queue until ctx expires. In-flight
// sends finish; queued work past the deadline is dropped with a warning.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	q := s.queue
	if q == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	s.accepting = false
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.enqueueWG.Wait()
		close(q)
		s.workerWG.Wait()

		s.mu.Lock()
		s.queue = nil
		s.stopDone = nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
		s.log.Info("dispatcher drained")
	case <-ctx.Done():
		s.log.Warn("dispatcher stop deadline reached; dropping queued messages")
	}
}

// Enqueue hands a notification to the worker pool without blocking.
func (s *Service) Enqueue(n Notification) error {
	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	dropped := s.dropObserver
	s.enqueueWG.Add(1)
	s.mu.Unlock()
	defer s.enqueueWG.Done()

	select {
	case q <- n:
		return nil
	default:
		s.log.Warn("dispatch queue full, dropping message", logx.Int64("recipient", n.Recipient))
		if dropped != nil {
			dropped()
		}
		return ErrQueueFull
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-q:
			if !ok {
				return
			}
			s.Deliver(ctx, n)
		}
	}
}

// Deliver sends one notification synchronously and classifies the result.
// It never returns an error: unreachable recipients and transient transport
// failures are logged and reported through the outcome only. One attempt,
// no retries.
func (s *Service) Deliver(ctx context.Context, n Notification) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	transport := s.transport
	lim := s.limiter
	perRecipient := s.cfg.PerRecipientDelay
	sendTimeout := s.cfg.SendTimeout
	observer := s.observer
	s.mu.Unlock()

	outcome := s.deliver(ctx, n, transport, lim, perRecipient, sendTimeout)
	if observer != nil {
		observer(outcome)
	}
	return outcome
}

func (s *Service) deliver(ctx context.Context, n Notification, transport Transport, lim *rate.Limiter, perRecipient, sendTimeout time.Duration) Outcome {
	if n.Text == "" {
		return OutcomeSent
	}
	if transport == nil {
		s.log.Error("no transport installed", logx.Int64("recipient", n.Recipient))
		return OutcomeTransient
	}
	if err := lim.Wait(ctx); err != nil {
		return OutcomeTransient
	}
	if wait := s.reservePace(n.Recipient, perRecipient); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return OutcomeTransient
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	err := transport.SendText(callCtx, n.Recipient, n.Text)
	cancel()

	switch {
	case err == nil:
		return OutcomeSent
	case errors.Is(err, ErrRecipientUnreachable):
		s.log.Warn("recipient unreachable", logx.Int64("recipient", n.Recipient), logx.Err(err))
		return OutcomeUnreachable
	default:
		s.log.Warn("send failed", logx.Int64("recipient", n.Recipient), logx.Err(err))
		return OutcomeTransient
	}
}

// reservePace returns how long the caller must wait before sending to the
// recipient and books that slot, so concurrent workers serialize their gaps.
func (s *Service) reservePace(recipient int64, gap time.Duration) time.Duration {
	now := time.Now()
	s.paceMu.Lock()
	defer s.paceMu.Unlock()

	next := s.lastSend[recipient].Add(gap)
	if next.Before(now) {
		next = now
	}
	s.lastSend[recipient] = next

	// Opportunistic cleanup: forget recipients whose slot is long past.
	if len(s.lastSend) > 4096 {
		cutoff := now.Add(-time.Minute)
		for id, at := range s.lastSend {
			if at.Before(cutoff) {
				delete(s.lastSend, id)
			}
		}
	}
	return next.Sub(now)
}
