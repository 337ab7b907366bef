// Package realtime keeps a local view of work-order activity timelines
// consistent with a server-pushed change stream across unreliable networks.
// It owns subscription lifecycles, offline buffering with ordered replay,
// reconnection backoff and heartbeat-based staleness detection.
package realtime

import (
	"github.com/rpattn/fleetline/internal/domain"
)

// ChannelStatus is the status set the transport reports for a channel.
type ChannelStatus string

const (
	StatusSubscribed   ChannelStatus = "SUBSCRIBED"
	StatusChannelError ChannelStatus = "CHANNEL_ERROR"
	StatusTimedOut     ChannelStatus = "TIMED_OUT"
	StatusClosed       ChannelStatus = "CLOSED"
	StatusConnecting   ChannelStatus = "CONNECTING"
)

// ChangeHandler receives the raw payload for one change event.
type ChangeHandler func(payload domain.ChangePayload)

// StatusHandler receives channel status transitions.
type StatusHandler func(status ChannelStatus)

// Channel is one live change-stream subscription handle. Implementations
// deliver `{new: <row>}` payloads for INSERT and UPDATE changes and report
// status transitions through the subscribe callback. A channel is owned
// exclusively by one subscription and must be released via Unsubscribe.
type Channel interface {
	// On registers a handler for one change type and returns the channel to
	// allow chained registration before Subscribe.
	On(change domain.ChangeType, handler ChangeHandler) Channel

	// Subscribe opens the channel and begins delivering events. The status
	// callback observes the channel's lifecycle from this point on.
	Subscribe(status StatusHandler) error

	// Unsubscribe tears the channel down. Safe to call more than once.
	Unsubscribe() error
}

// ChannelFactory creates channels keyed by a scoped name. The name includes
// the subscription id so independent subscriptions to the same work order
// never collide on one channel.
type ChannelFactory interface {
	Channel(name string) Channel
}
