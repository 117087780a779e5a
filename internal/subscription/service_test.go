package subscription

import (
	"context"
	"errors"
	"testing"

	"weatherbot/internal/domain"
	"weatherbot/internal/storage"
	"weatherbot/pkg/logx"
)

func newService() *Service {
	return New(storage.NewMemory(), logx.Nop())
}

func coord(t *testing.T, lat, lon float64) domain.Coordinate {
	t.Helper()
	c, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		t.Fatalf("NewCoordinate: %v", err)
	}
	return c
}

func TestGetOrCreateUserIsLazy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService()

	u, err := svc.GetOrCreateUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if u.ID != 42 || u.Username != "user_42" {
		t.Fatalf("created user = %+v", u)
	}

	again, err := svc.GetOrCreateUser(ctx, 42)
	if err != nil {
		t.Fatalf("second GetOrCreateUser: %v", err)
	}
	if again.Username != u.Username {
		t.Fatalf("second call returned different user: %+v", again)
	}
}

func TestAddSubscriptionDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService()
	berlin := coord(t, 52.52, 13.405)

	if _, err := svc.AddSubscription(ctx, 1, "Berlin", berlin, true, false); err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}
	_, err := svc.AddSubscription(ctx, 1, "BERLIN", berlin, true, true)
	if !errors.Is(err, domain.ErrAlreadySubscribed) {
		t.Fatalf("duplicate error = %v, want ErrAlreadySubscribed", err)
	}

	subs, err := svc.ListSubscriptions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if len(subs) != 1 || !subs[0].DailyWeather || subs[0].EmergencyAlerts {
		t.Fatalf("subscriptions = %+v", subs)
	}
}

func TestRemoveSubscriptionIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService()
	svc.AddSubscription(ctx, 1, "Paris", coord(t, 48.85, 2.35), true, true)

	removed, err := svc.RemoveSubscription(ctx, 1, "paris")
	if err != nil || !removed {
		t.Fatalf("RemoveSubscription = %v, %v; want true, nil", removed, err)
	}
	removed, err = svc.RemoveSubscription(ctx, 1, "paris")
	if err != nil || removed {
		t.Fatalf("second RemoveSubscription = %v, %v; want false, nil", removed, err)
	}
	// Unknown user is also a clean not-found.
	removed, err = svc.RemoveSubscription(ctx, 999, "paris")
	if err != nil || removed {
		t.Fatalf("unknown-user RemoveSubscription = %v, %v; want false, nil", removed, err)
	}
}

func TestToggleAlerts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService()
	svc.AddSubscription(ctx, 1, "Oslo", coord(t, 59.91, 10.75), true, false)

	on, err := svc.ToggleAlerts(ctx, 1, "oslo")
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v; want true, nil", on, err)
	}
	off, err := svc.ToggleAlerts(ctx, 1, "Oslo")
	if err != nil || off {
		t.Fatalf("second toggle = %v, %v; want false, nil", off, err)
	}

	// Daily flag must be untouched by the toggles.
	subs, _ := svc.ListSubscriptions(ctx, 1)
	if !subs[0].DailyWeather {
		t.Fatal("toggle must not clear the daily flag")
	}

	if _, err := svc.ToggleAlerts(ctx, 1, "Madrid"); !errors.Is(err, domain.ErrNotSubscribed) {
		t.Fatalf("toggle unknown location error = %v, want ErrNotSubscribed", err)
	}
}

func TestUpdateFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService()
	svc.AddSubscription(ctx, 1, "Oslo", coord(t, 59.91, 10.75), true, false)

	ok, err := svc.UpdateFlags(ctx, 1, "oslo", false, true)
	if err != nil || !ok {
		t.Fatalf("UpdateFlags = %v, %v; want true, nil", ok, err)
	}
	subs, _ := svc.ListSubscriptions(ctx, 1)
	if subs[0].DailyWeather || !subs[0].EmergencyAlerts {
		t.Fatalf("flags after update = %+v", subs[0])
	}

	ok, err = svc.UpdateFlags(ctx, 1, "Madrid", true, true)
	if err != nil || ok {
		t.Fatalf("unknown location = %v, %v; want false, nil", ok, err)
	}
	ok, err = svc.UpdateFlags(ctx, 99, "Oslo", true, true)
	if err != nil || ok {
		t.Fatalf("unknown user = %v, %v; want false, nil", ok, err)
	}
}

func TestListSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService()

	svc.AddSubscription(ctx, 1, "Berlin", coord(t, 52.52, 13.405), true, false)
	svc.AddSubscription(ctx, 1, "Oslo", coord(t, 59.91, 10.75), false, true)
	svc.AddSubscription(ctx, 2, "Kyiv", coord(t, 50.45, 30.52), true, true)

	daily, err := svc.ListDaily(ctx)
	if err != nil {
		t.Fatalf("ListDaily: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("daily entries = %d, want 2", len(daily))
	}

	alerts, err := svc.ListAlerts(ctx)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("alert entries = %d, want 2", len(alerts))
	}

	// Snapshots must reflect the latest persisted state.
	svc.RemoveSubscription(ctx, 2, "Kyiv")
	alerts, _ = svc.ListAlerts(ctx)
	if len(alerts) != 1 || alerts[0].Subscription.LocationName != "Oslo" {
		t.Fatalf("alerts after removal = %+v", alerts)
	}
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService()

	err := svc.UpdateProfile(ctx, 5, domain.Profile{Age: 25, Hobbies: "fishing", Motorist: true})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	u, _ := svc.GetOrCreateUser(ctx, 5)
	if u.Profile.Age != 25 || u.Profile.Hobbies != "fishing" || !u.Profile.Motorist {
		t.Fatalf("profile = %+v", u.Profile)
	}
	if u.Profile.Gender != "unknown" {
		t.Fatalf("gender default = %q, want unknown", u.Profile.Gender)
	}
}
