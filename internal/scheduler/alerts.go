package scheduler

import (
	"context"

	"github.com/google/uuid"

	"weatherbot/internal/dispatch"
	"weatherbot/internal/message"
	"weatherbot/pkg/logx"
)

// alertState tracks which alert fingerprints have been delivered per
// subscription. In-memory only: a restart may re-send an active alert,
// which beats missing one.
type alertState struct {
	seen map[uuid.UUID]map[uint64]struct{}
}

func newAlertState() alertState {
	return alertState{seen: map[uuid.UUID]map[uint64]struct{}{}}
}

// pollAlerts checks every alert-enabled subscription and enqueues a message
// for each alert not yet delivered to that subscription. Fetch failures are
// isolated per subscription and never produce a message. Returns the number
// of notifications enqueued. Caller holds runMu.
func (s *Service) pollAlerts(ctx context.Context) int {
	entries, err := s.subs.ListAlerts(ctx)
	if err != nil {
		s.log.Error("list alert subscriptions", logx.Err(err))
		return 0
	}

	sent := 0
	active := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		sub := e.Subscription
		active[sub.ID] = struct{}{}

		alerts, err := s.weather.Alerts(ctx, sub.Coordinate)
		if err != nil {
			// Keep the previous fingerprint set so a provider outage does
			// not trigger a re-send storm once it recovers.
			s.log.Warn("fetch alerts",
				logx.Int64("user", sub.UserID),
				logx.String("location", sub.LocationName),
				logx.Err(err))
			continue
		}

		key := sub.Coordinate.Key()
		current := make(map[uint64]struct{}, len(alerts))
		prev := s.alerts.seen[sub.ID]
		for _, a := range alerts {
			fp := a.Fingerprint(key)
			current[fp] = struct{}{}
			if _, delivered := prev[fp]; delivered {
				continue
			}
			err := s.out.Enqueue(dispatch.Notification{
				Recipient: sub.UserID,
				Text:      message.Alert(sub.LocationName, a),
			})
			if err != nil {
				s.log.Warn("enqueue alert",
					logx.Int64("user", sub.UserID),
					logx.String("location", sub.LocationName),
					logx.Err(err))
				// Not marked delivered; the next poll retries.
				delete(current, fp)
				continue
			}
			sent++
			s.log.Info("alert enqueued",
				logx.Int64("user", sub.UserID),
				logx.String("location", sub.LocationName),
				logx.String("event", a.Event),
				logx.String("fingerprint", a.FingerprintString(key)))
		}
		s.alerts.seen[sub.ID] = current
	}

	// Drop state for subscriptions that no longer exist.
	for id := range s.alerts.seen {
		if _, ok := active[id]; !ok {
			delete(s.alerts.seen, id)
		}
	}
	return sent
}
