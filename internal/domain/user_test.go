package domain

import (
	"errors"
	"testing"
)

func mustCoord(t *testing.T, lat, lon float64) Coordinate {
	t.Helper()
	c, err := NewCoordinate(lat, lon)
	if err != nil {
		t.Fatalf("NewCoordinate: %v", err)
	}
	return c
}

func TestSubscribeDuplicateCaseInsensitive(t *testing.T) {
	t.Parallel()
	u := NewUser(42, "alice")
	berlin := mustCoord(t, 52.52, 13.405)

	if _, err := u.Subscribe("Berlin", berlin, true, false); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	_, err := u.Subscribe("berlin", berlin, false, true)
	if !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("second Subscribe error = %v, want ErrAlreadySubscribed", err)
	}
	if len(u.Subscriptions) != 1 {
		t.Fatalf("subscription count = %d, want 1", len(u.Subscriptions))
	}
	s := u.Subscriptions[0]
	if !s.DailyWeather || s.EmergencyAlerts {
		t.Fatalf("flags = daily:%v emergency:%v, want daily:true emergency:false", s.DailyWeather, s.EmergencyAlerts)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	t.Parallel()
	u := NewUser(7, "")
	u.Subscribe("Paris", mustCoord(t, 48.8566, 2.3522), true, true)

	if !u.Unsubscribe("PARIS") {
		t.Fatal("Unsubscribe existing = false, want true")
	}
	if u.Unsubscribe("Paris") {
		t.Fatal("Unsubscribe removed = true, want false")
	}
}

func TestFlagFilters(t *testing.T) {
	t.Parallel()
	u := NewUser(1, "bob")
	u.Subscribe("Berlin", mustCoord(t, 52.52, 13.405), true, false)
	u.Subscribe("Oslo", mustCoord(t, 59.91, 10.75), false, true)
	u.Subscribe("Kyiv", mustCoord(t, 50.45, 30.52), true, true)

	daily := u.DailySubscriptions()
	if len(daily) != 2 {
		t.Fatalf("daily count = %d, want 2", len(daily))
	}
	alerts := u.AlertSubscriptions()
	if len(alerts) != 2 {
		t.Fatalf("alert count = %d, want 2", len(alerts))
	}
	for _, s := range alerts {
		if !s.EmergencyAlerts {
			t.Fatalf("alert filter returned %s without emergency flag", s.LocationName)
		}
	}
}

func TestSetFlags(t *testing.T) {
	t.Parallel()
	u := NewUser(9, "")
	u.Subscribe("Lisbon", mustCoord(t, 38.72, -9.14), true, true)

	if !u.SetFlags("lisbon", true, false) {
		t.Fatal("SetFlags = false, want true")
	}
	s := u.FindSubscription("Lisbon")
	if s == nil || s.EmergencyAlerts {
		t.Fatalf("emergency flag not cleared: %+v", s)
	}
	if u.SetFlags("Madrid", true, true) {
		t.Fatal("SetFlags unknown location = true, want false")
	}
}

func TestDefaultUsername(t *testing.T) {
	t.Parallel()
	u := NewUser(1234, "")
	if u.Username != "user_1234" {
		t.Fatalf("Username = %q, want user_1234", u.Username)
	}
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()
	u := NewUser(5, "eve")
	u.Subscribe("Rome", mustCoord(t, 41.9, 12.5), true, false)

	cp := u.Clone()
	cp.Subscriptions[0].DailyWeather = false
	cp.Subscribe("Bari", mustCoord(t, 41.12, 16.87), true, true)

	if !u.Subscriptions[0].DailyWeather {
		t.Fatal("clone mutation leaked into original")
	}
	if len(u.Subscriptions) != 1 {
		t.Fatalf("original subscription count = %d, want 1", len(u.Subscriptions))
	}
}
