package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadySubscribed is returned when a user subscribes to a location
	// they already follow (case-insensitive match).
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrNotSubscribed is returned when an operation targets a location the
	// user does not follow.
	ErrNotSubscribed = errors.New("not subscribed")
)

// Profile holds optional user attributes. They only parameterize the
// advisory enrichment call and never gate notification delivery.
type Profile struct {
	Age      int
	Gender   string
	Hobbies  string
	Motorist bool
}

// User is the persistence aggregate: identity plus the full subscription
// list. All mutations go through methods so the location-name uniqueness
// invariant holds.
type User struct {
	ID            int64
	Username      string
	Profile       Profile
	Subscriptions []Subscription
}

// Subscription follows one location for one user. The coordinate is captured
// at subscribe time and never re-resolved; remove and re-add to refresh it.
type Subscription struct {
	ID              uuid.UUID
	UserID          int64
	LocationName    string
	Coordinate      Coordinate
	CreatedAt       time.Time
	DailyWeather    bool
	EmergencyAlerts bool
}

func NewUser(id int64, username string) *User {
	if username == "" {
		username = fmt.Sprintf("user_%d", id)
	}
	return &User{ID: id, Username: username, Profile: Profile{Gender: "unknown"}}
}

// Subscribe appends a new subscription, enforcing per-user location
// uniqueness.
func (u *User) Subscribe(locationName string, coord Coordinate, daily, emergency bool) (Subscription, error) {
	if u.FindSubscription(locationName) != nil {
		return Subscription{}, fmt.Errorf("%w: %s", ErrAlreadySubscribed, locationName)
	}
	sub := Subscription{
		ID:              uuid.New(),
		UserID:          u.ID,
		LocationName:    locationName,
		Coordinate:      coord,
		CreatedAt:       time.Now().UTC(),
		DailyWeather:    daily,
		EmergencyAlerts: emergency,
	}
	u.Subscriptions = append(u.Subscriptions, sub)
	return sub, nil
}

// Unsubscribe removes the subscription for the location.
// Returns false if no such subscription exists.
func (u *User) Unsubscribe(locationName string) bool {
	for i, s := range u.Subscriptions {
		if strings.EqualFold(s.LocationName, locationName) {
			u.Subscriptions = append(u.Subscriptions[:i], u.Subscriptions[i+1:]...)
			return true
		}
	}
	return false
}

// FindSubscription returns a pointer into the subscription list, or nil.
func (u *User) FindSubscription(locationName string) *Subscription {
	for i := range u.Subscriptions {
		if strings.EqualFold(u.Subscriptions[i].LocationName, locationName) {
			return &u.Subscriptions[i]
		}
	}
	return nil
}

// SetFlags updates both delivery flags for the location.
func (u *User) SetFlags(locationName string, daily, emergency bool) bool {
	s := u.FindSubscription(locationName)
	if s == nil {
		return false
	}
	s.DailyWeather = daily
	s.EmergencyAlerts = emergency
	return true
}

// DailySubscriptions returns the subscriptions flagged for the daily digest.
func (u *User) DailySubscriptions() []Subscription {
	var out []Subscription
	for _, s := range u.Subscriptions {
		if s.DailyWeather {
			out = append(out, s)
		}
	}
	return out
}

// AlertSubscriptions returns the subscriptions flagged for emergency alerts.
func (u *User) AlertSubscriptions() []Subscription {
	var out []Subscription
	for _, s := range u.Subscriptions {
		if s.EmergencyAlerts {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy, so store snapshots cannot alias caller state.
func (u *User) Clone() *User {
	cp := *u
	cp.Subscriptions = append([]Subscription(nil), u.Subscriptions...)
	return &cp
}
