package weather

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"weatherbot/internal/cache"
	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

// Cache TTLs per key class. Weather observations change every few minutes,
// alert lists a bit faster than that matters for notification latency.
const (
	weatherTTL = 15 * time.Minute
	alertsTTL  = 10 * time.Minute
)

// Provider is the upstream read contract (implemented by Client).
type Provider interface {
	CurrentWeather(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error)
	ActiveAlerts(ctx context.Context, coord domain.Coordinate) ([]domain.Alert, error)
}

// Service fronts a Provider with per-class TTL caches. The caches are owned
// here, not ambient: the service is the only component that reads them.
type Service struct {
	provider Provider
	weather  *cache.TTL[domain.WeatherSnapshot]
	alerts   *cache.TTL[[]domain.Alert]
	log      logx.Logger
}

func NewService(provider Provider, log logx.Logger) *Service {
	return NewServiceWithClock(provider, log, clockwork.NewRealClock())
}

func NewServiceWithClock(provider Provider, log logx.Logger, clock clockwork.Clock) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		provider: provider,
		weather:  cache.NewWithClock[domain.WeatherSnapshot](clock),
		alerts:   cache.NewWithClock[[]domain.Alert](clock),
		log:      log,
	}
}

// Current returns the current weather for the coordinate, cached ~15 minutes
// per rounded coordinate.
func (s *Service) Current(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	return s.weather.GetOrFetch(ctx, "weather:"+coord.Key(), weatherTTL,
		func(ctx context.Context) (domain.WeatherSnapshot, error) {
			return s.provider.CurrentWeather(ctx, coord)
		})
}

// Alerts returns active alerts for the coordinate, cached ~10 minutes.
func (s *Service) Alerts(ctx context.Context, coord domain.Coordinate) ([]domain.Alert, error) {
	return s.alerts.GetOrFetch(ctx, "alerts:"+coord.Key(), alertsTTL,
		func(ctx context.Context) ([]domain.Alert, error) {
			return s.provider.ActiveAlerts(ctx, coord)
		})
}

// CacheStats reports cumulative (hits, misses) over both caches.
func (s *Service) CacheStats() (hits, misses uint64) {
	h1, m1 := s.weather.Stats()
	h2, m2 := s.alerts.Stats()
	return h1 + h2, m1 + m2
}
