package dispatch

import (
	"errors"
	"time"
)

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// OutcomeSent means the transport accepted the message.
	OutcomeSent Outcome = iota
	// OutcomeUnreachable means the recipient cannot receive messages
	// (blocked the bot, deactivated account). Permanent for this message.
	OutcomeUnreachable
	// OutcomeTransient covers every other transport failure. This layer
	// does not retry; delivery retries belong to the transport client.
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ErrRecipientUnreachable marks permanent per-recipient failures.
// Transport implementations wrap their platform error with it.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

var (
	ErrQueueFull = errors.New("dispatch queue full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// Notification is one (recipient, message) unit of work.
type Notification struct {
	Recipient int64
	Text      string
}

// Config controls the fan-out pipeline.
type Config struct {
	Workers           int           // in-flight send bound (default 5)
	QueueSize         int           // async queue capacity (default 512)
	RatePerSec        int           // global token-bucket rate (default 5)
	PerRecipientDelay time.Duration // min gap between sends to one recipient (default 150ms)
	SendTimeout       time.Duration // per-send transport bound (default 10s)
}
