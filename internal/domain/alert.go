package domain

import (
	"fmt"
	"hash/fnv"
)

// Alert is an active emergency weather alert for a location.
type Alert struct {
	Headline    string
	Event       string
	Description string
	Instruction string
}

// Fingerprint derives the delivery-dedup identity of an alert: the poller
// must not resend an alert with the same fingerprint for the same location
// unless its content changed. locationKey is the rounded-coordinate cache
// key of the subscription.
func (a Alert) Fingerprint(locationKey string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(locationKey))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(a.Event))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(a.Description))
	return h.Sum64()
}

// FingerprintString is Fingerprint rendered for logs.
func (a Alert) FingerprintString(locationKey string) string {
	return fmt.Sprintf("%x", a.Fingerprint(locationKey))
}
