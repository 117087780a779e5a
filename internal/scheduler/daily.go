package scheduler

import (
	"context"
	"time"

	"weatherbot/internal/dispatch"
	"weatherbot/internal/message"
	"weatherbot/pkg/logx"
)

// dailyGate fires at most once per UTC calendar day, at or after the target
// wall-clock time. The loop polls far more often than once a day, so the
// gate compares dates rather than instants: a process that was down at the
// target time still fires on its next tick, and never twice the same day.
// lastRun is in-memory only; a restart risks one duplicate digest, never a
// skipped day beyond the catch-up tick.
type dailyGate struct {
	target  time.Duration // offset from UTC midnight
	lastRun time.Time     // UTC midnight of the last fire, zero before first
}

func (g *dailyGate) due(now time.Time) bool {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return now.Sub(midnight) >= g.target && midnight.After(g.lastRun)
}

func (g *dailyGate) mark(now time.Time) {
	now = now.UTC()
	g.lastRun = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// runDaily fans the digest out to every daily-enabled subscription, using
// the stored coordinate (never re-geocoding). Per-subscription failures are
// logged and skipped. Returns the number of notifications enqueued. Caller
// holds runMu.
func (s *Service) runDaily(ctx context.Context) int {
	entries, err := s.subs.ListDaily(ctx)
	if err != nil {
		s.log.Error("list daily subscriptions", logx.Err(err))
		return 0
	}

	sent := 0
	for _, e := range entries {
		sub := e.Subscription
		snap, err := s.weather.Current(ctx, sub.Coordinate)
		if err != nil {
			s.log.Warn("fetch daily weather",
				logx.Int64("user", sub.UserID),
				logx.String("location", sub.LocationName),
				logx.Err(err))
			continue
		}

		// The advisory is best-effort: Recommend returns "" on any failure
		// and the digest goes out regardless.
		advisory := ""
		if s.advisor != nil && s.advisor.Enabled() {
			advisory = s.advisor.Recommend(ctx, snap, e.User.Profile)
		}

		err = s.out.Enqueue(dispatch.Notification{
			Recipient: sub.UserID,
			Text:      message.Digest(sub.LocationName, snap, advisory),
		})
		if err != nil {
			s.log.Warn("enqueue digest",
				logx.Int64("user", sub.UserID),
				logx.String("location", sub.LocationName),
				logx.Err(err))
			continue
		}
		sent++
	}
	return sent
}
