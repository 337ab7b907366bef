package realtime

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/fleetline/internal/domain"
)

// SubscriptionConfig carries the consumer's callbacks for one subscription.
// WorkOrderID is required; every callback is optional.
type SubscriptionConfig struct {
	WorkOrderID        string
	OnActivityAdded    func(domain.Activity)
	OnActivityUpdated  func(domain.Activity)
	OnError            func(error)
	OnConnectionChange func(connected bool)
}

// Subscription is the stable external handle for one live channel. The
// transport resource behind it is looked up indirectly by id, so the handle
// stays valid across reconnections that replace the underlying channel.
type Subscription struct {
	ID          string
	WorkOrderID string
	manager     *Manager
}

// IsActive reports whether the subscription is still delivering events.
// A subscription that was unsubscribed, or that exhausted its reconnection
// attempts, is permanently inactive; a fresh Subscribe call is required.
func (s *Subscription) IsActive() bool {
	if s == nil || s.manager == nil {
		return false
	}
	return s.manager.subscriptionActive(s.ID)
}

// Unsubscribe releases the channel and permanently deactivates the
// subscription. Safe to call more than once; never returns an error to the
// caller, transport teardown failures are logged.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.manager == nil {
		return
	}
	s.manager.unsubscribe(s.ID)
}

// subscription is the manager-owned record behind a handle.
type subscription struct {
	id                string
	workOrderID       string
	config            SubscriptionConfig
	channel           Channel
	active            bool
	reconnectAttempts int
	lastActivity      time.Time
}

// newSubscriptionID derives a process-unique id from the work order id, the
// current time and a random suffix.
func newSubscriptionID(workOrderID string, now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%d_%s", workOrderID, now.UnixMilli(), suffix)
}

// queuedUpdate is one change event buffered while disconnected. It exists
// only between connection loss and sync completion.
type queuedUpdate struct {
	activity       domain.Activity
	receivedAt     time.Time
	subscriptionID string
	changeType     domain.ChangeType
}
