package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

type fakeProvider struct {
	weatherCalls int
	alertCalls   int
	weatherErr   error
	alerts       []domain.Alert
}

func (f *fakeProvider) CurrentWeather(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	f.weatherCalls++
	if f.weatherErr != nil {
		return domain.WeatherSnapshot{}, f.weatherErr
	}
	return domain.WeatherSnapshot{Temperature: domain.Celsius(20), WindSpeed: 2}, nil
}

func (f *fakeProvider) ActiveAlerts(ctx context.Context, coord domain.Coordinate) ([]domain.Alert, error) {
	f.alertCalls++
	return f.alerts, nil
}

func TestCurrentIsCachedPerRoundedCoordinate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &fakeProvider{}
	svc := NewServiceWithClock(p, logx.Nop(), clockwork.NewFakeClock())

	a, _ := domain.NewCoordinate(52.5211, 13.4049)
	b, _ := domain.NewCoordinate(52.5207, 13.4041) // same rounded key

	if _, err := svc.Current(ctx, a); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if _, err := svc.Current(ctx, b); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if p.weatherCalls != 1 {
		t.Fatalf("provider calls = %d, want 1", p.weatherCalls)
	}
}

func TestCurrentExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &fakeProvider{}
	clock := clockwork.NewFakeClock()
	svc := NewServiceWithClock(p, logx.Nop(), clock)
	coord, _ := domain.NewCoordinate(52.52, 13.405)

	svc.Current(ctx, coord)
	clock.Advance(weatherTTL + time.Minute)
	svc.Current(ctx, coord)

	if p.weatherCalls != 2 {
		t.Fatalf("provider calls = %d, want 2", p.weatherCalls)
	}
}

func TestCurrentErrorNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &fakeProvider{weatherErr: errors.New("upstream down")}
	svc := NewServiceWithClock(p, logx.Nop(), clockwork.NewFakeClock())
	coord, _ := domain.NewCoordinate(52.52, 13.405)

	if _, err := svc.Current(ctx, coord); err == nil {
		t.Fatal("expected error from provider")
	}
	p.weatherErr = nil
	if _, err := svc.Current(ctx, coord); err != nil {
		t.Fatalf("Current after recovery: %v", err)
	}
	if p.weatherCalls != 2 {
		t.Fatalf("provider calls = %d, want 2 (no negative caching)", p.weatherCalls)
	}
}

func TestAlertsCachedSeparatelyFromWeather(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &fakeProvider{alerts: []domain.Alert{{Event: "Storm warning"}}}
	svc := NewServiceWithClock(p, logx.Nop(), clockwork.NewFakeClock())
	coord, _ := domain.NewCoordinate(52.52, 13.405)

	svc.Current(ctx, coord)
	alerts, err := svc.Alerts(ctx, coord)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %+v", alerts)
	}
	svc.Alerts(ctx, coord)
	if p.alertCalls != 1 || p.weatherCalls != 1 {
		t.Fatalf("calls = weather:%d alerts:%d, want 1/1", p.weatherCalls, p.alertCalls)
	}
}
