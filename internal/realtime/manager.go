package realtime

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/rpattn/fleetline/internal/domain"
	"github.com/rpattn/fleetline/pkg/validation"
)

// Manager composes the subscription registry, the offline update queue and
// the connection monitor behind one coordinator. It is explicitly constructed
// and owns its lifecycle: independent consumers each build their own instance
// and release it with Cleanup.
//
// Subscribe and Unsubscribe never return errors. Failures surface as logged
// messages, OnError callback invocations, or an inactive subscription state:
// no caller is waiting on a background channel, so long-lived subscriptions
// degrade instead of failing loudly.
type Manager struct {
	factory ChannelFactory
	cfg     Config

	mu               sync.Mutex
	subs             map[string]*subscription
	pending          []queuedUpdate
	syncInProgress   bool
	conn             ConnectionState
	heartbeatStop    chan struct{}
	heartbeatRunning bool

	// Overridable for tests.
	now      func() time.Time
	schedule func(time.Duration, func())
	sleep    func(time.Duration)
}

// NewManager creates a manager over the given channel factory. Zero config
// fields fall back to DefaultConfig values.
func NewManager(factory ChannelFactory, cfg Config) *Manager {
	return &Manager{
		factory:  factory,
		cfg:      cfg.withDefaults(),
		subs:     make(map[string]*subscription),
		conn:     newConnectionState(),
		now:      time.Now,
		schedule: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		sleep:    time.Sleep,
	}
}

// Factory exposes the transport factory, used by health checks.
func (m *Manager) Factory() ChannelFactory {
	return m.factory
}

// Subscribe opens a channel for one work order and registers the config's
// callbacks. It always returns a usable handle: on any failure opening the
// channel the config's OnError is invoked and the handle is inactive with a
// no-op Unsubscribe, never an error or a panic.
func (m *Manager) Subscribe(config SubscriptionConfig) *Subscription {
	handle := &Subscription{WorkOrderID: config.WorkOrderID, manager: m}

	if err := validation.WorkOrderID(config.WorkOrderID); err != nil {
		log.Printf("[realtime] subscribe rejected: %v", err)
		m.notifyError(config, err)
		return handle
	}

	sub := &subscription{
		id:           newSubscriptionID(config.WorkOrderID, m.now()),
		workOrderID:  config.WorkOrderID,
		config:       config,
		active:       true,
		lastActivity: m.now(),
	}
	handle.ID = sub.id

	m.mu.Lock()
	m.subs[sub.id] = sub
	m.startHeartbeatLocked()
	m.mu.Unlock()

	channel, err := m.openChannel(sub.id)
	if err != nil {
		log.Printf("[realtime] failed to open channel for %s: %v", sub.id, err)
		m.mu.Lock()
		sub.active = false
		delete(m.subs, sub.id)
		m.mu.Unlock()
		m.notifyError(config, err)
		return handle
	}

	m.storeChannel(sub.id, channel)
	log.Printf("[realtime] subscribed %s (work order %s)", sub.id, config.WorkOrderID)
	return handle
}

// openChannel creates, wires and subscribes a channel scoped to the
// subscription id. A panicking transport is reported as an error, never
// propagated to the caller.
func (m *Manager) openChannel(subID string) (channel Channel, err error) {
	defer func() {
		if r := recover(); r != nil {
			channel = nil
			err = fmt.Errorf("channel setup panicked: %v", r)
		}
	}()

	c := m.factory.Channel("work_order_activities:" + subID)
	c.On(domain.ChangeInsert, func(p domain.ChangePayload) {
		m.handleRealtimeUpdate(p, domain.ChangeInsert, subID)
	}).On(domain.ChangeUpdate, func(p domain.ChangePayload) {
		m.handleRealtimeUpdate(p, domain.ChangeUpdate, subID)
	})

	if err := c.Subscribe(func(status ChannelStatus) {
		m.handleStatusChange(status, subID)
	}); err != nil {
		_ = c.Unsubscribe()
		return nil, err
	}
	return c, nil
}

// storeChannel splices a channel handle into the subscription record. If the
// subscription went inactive while the channel was being opened, the channel
// is released instead.
func (m *Manager) storeChannel(subID string, channel Channel) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if !ok || !sub.active {
		m.mu.Unlock()
		if err := channel.Unsubscribe(); err != nil {
			log.Printf("[realtime] release orphaned channel for %s: %v", subID, err)
		}
		return
	}
	sub.channel = channel
	sub.lastActivity = m.now()
	m.mu.Unlock()
}

// handleRealtimeUpdate routes one inbound change event. Payloads that do not
// decode into a well-formed activity are logged and dropped; the store schema
// and the client types can drift. While disconnected the event is queued and
// no callback fires: UI state built from partial delivery would be incoherent.
func (m *Manager) handleRealtimeUpdate(payload domain.ChangePayload, changeType domain.ChangeType, subID string) {
	activity, err := domain.DecodeActivity(payload.New)
	if err != nil {
		log.Printf("[realtime] dropping %s payload on %s: %v", changeType, subID, err)
		return
	}

	m.mu.Lock()
	sub, ok := m.subs[subID]
	if !ok || !sub.active {
		m.mu.Unlock()
		return
	}
	sub.lastActivity = m.now()

	if m.conn.Status == Disconnected {
		m.pending = append(m.pending, queuedUpdate{
			activity:       activity,
			receivedAt:     m.now(),
			subscriptionID: subID,
			changeType:     changeType,
		})
		count := len(m.pending)
		m.mu.Unlock()
		log.Printf("[realtime] queued %s for %s while offline (%d pending)", changeType, subID, count)
		return
	}

	config := sub.config
	m.mu.Unlock()

	if err := dispatch(config, changeType, activity); err != nil {
		log.Printf("[realtime] callback failed for %s: %v", subID, err)
	}
}

// handleStatusChange reacts to the transport's channel status reports. The
// reporting subscription drives the manager-wide connection state.
func (m *Manager) handleStatusChange(status ChannelStatus, subID string) {
	switch status {
	case StatusSubscribed:
		m.mu.Lock()
		sub, ok := m.subs[subID]
		if !ok || !sub.active {
			m.mu.Unlock()
			return
		}
		sub.reconnectAttempts = 0
		sub.lastActivity = m.now()
		m.conn.Status = Connected
		m.conn.LastConnected = m.now()
		m.conn.ReconnectAttempts = 0
		config := sub.config
		m.mu.Unlock()

		log.Printf("[realtime] %s subscribed", subID)
		m.notifyConnectionChange(config, true)
		m.syncPendingUpdates()

	case StatusChannelError, StatusTimedOut, StatusClosed:
		m.mu.Lock()
		sub, ok := m.subs[subID]
		if !ok || !sub.active {
			m.mu.Unlock()
			return
		}
		m.conn.Status = Disconnected
		m.conn.LastDisconnected = m.now()
		config := sub.config
		m.mu.Unlock()

		log.Printf("[realtime] %s reported %s", subID, status)
		m.notifyConnectionChange(config, false)
		m.notifyError(config, fmt.Errorf("channel reported %s", status))
		m.scheduleSubscriptionReconnect(subID)

	case StatusConnecting:
		m.mu.Lock()
		m.conn.Status = Reconnecting
		m.mu.Unlock()
	}
}

// scheduleSubscriptionReconnect advances one subscription's backoff track.
// Past the attempt cap the subscription goes permanently inactive and OnError
// fires exactly once; the inactive state blocks any further attempt.
func (m *Manager) scheduleSubscriptionReconnect(subID string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if !ok || !sub.active {
		m.mu.Unlock()
		return
	}
	sub.reconnectAttempts++
	attempt := sub.reconnectAttempts

	if attempt > m.cfg.MaxReconnectAttempts {
		sub.active = false
		channel := sub.channel
		sub.channel = nil
		config := sub.config
		m.mu.Unlock()

		if channel != nil {
			_ = channel.Unsubscribe()
		}
		log.Printf("[realtime] %s exhausted %d reconnect attempts, giving up", subID, m.cfg.MaxReconnectAttempts)
		m.notifyError(config, fmt.Errorf("subscription %s exhausted %d reconnect attempts", subID, m.cfg.MaxReconnectAttempts))
		return
	}
	m.mu.Unlock()

	delay := m.cfg.backoffDelay(attempt)
	log.Printf("[realtime] reconnecting %s in %s (attempt %d/%d)", subID, delay, attempt, m.cfg.MaxReconnectAttempts)
	m.schedule(delay, func() { m.resubscribe(subID) })
}

// resubscribe replaces a subscription's channel with a freshly opened one,
// preserving the subscription id and callbacks so external holders of the
// handle remain valid. A subscription unsubscribed while the retry was in
// flight makes this a no-op.
func (m *Manager) resubscribe(subID string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if !ok || !sub.active {
		m.mu.Unlock()
		return
	}
	stale := sub.channel
	sub.channel = nil
	m.mu.Unlock()

	if stale != nil {
		if err := stale.Unsubscribe(); err != nil {
			log.Printf("[realtime] release stale channel for %s: %v", subID, err)
		}
	}

	channel, err := m.openChannel(subID)
	if err != nil {
		log.Printf("[realtime] reconnect of %s failed: %v", subID, err)
		m.scheduleSubscriptionReconnect(subID)
		return
	}
	m.storeChannel(subID, channel)
}

// syncPendingUpdates flushes the offline queue. Guarded by syncInProgress so
// concurrent triggers from multiple subscriptions reconnecting at once cannot
// double-deliver. Updates are replayed in receipt-timestamp order across all
// subscriptions, in fixed-size batches with a small yield in between. On any
// delivery failure the queue is left intact and the whole flush is retried on
// the next trigger (at-least-once).
func (m *Manager) syncPendingUpdates() {
	m.mu.Lock()
	if m.syncInProgress || len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	m.syncInProgress = true
	updates := make([]queuedUpdate, len(m.pending))
	copy(updates, m.pending)
	m.mu.Unlock()

	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].receivedAt.Before(updates[j].receivedAt)
	})

	err := m.deliverQueued(updates)

	m.mu.Lock()
	m.syncInProgress = false
	if err == nil {
		m.pending = nil
	}
	m.mu.Unlock()

	if err != nil {
		log.Printf("[realtime] sync failed, %d updates remain queued: %v", len(updates), err)
		return
	}
	log.Printf("[realtime] synced %d queued updates", len(updates))
}

func (m *Manager) deliverQueued(updates []queuedUpdate) error {
	batchSize := m.cfg.SyncBatchSize
	for start := 0; start < len(updates); start += batchSize {
		if start > 0 && m.cfg.SyncBatchYield > 0 {
			m.sleep(m.cfg.SyncBatchYield)
		}
		end := min(start+batchSize, len(updates))
		for _, update := range updates[start:end] {
			m.mu.Lock()
			sub, ok := m.subs[update.subscriptionID]
			active := ok && sub.active
			var config SubscriptionConfig
			if active {
				config = sub.config
			}
			m.mu.Unlock()

			// Updates whose subscription has since been unsubscribed
			// are dropped, not delivered to a dead callback.
			if !active {
				continue
			}
			if err := dispatch(config, update.changeType, update.activity); err != nil {
				return fmt.Errorf("deliver queued %s for %s: %w", update.changeType, update.subscriptionID, err)
			}
		}
	}
	return nil
}

// ForceSync triggers an immediate flush of the offline queue.
func (m *Manager) ForceSync() {
	m.syncPendingUpdates()
}

// HandleConnectionLoss records a transport-wide loss (e.g. a network
// "offline" signal) and starts the global backoff track.
func (m *Manager) HandleConnectionLoss() {
	m.mu.Lock()
	m.conn.Status = Disconnected
	m.conn.LastDisconnected = m.now()
	m.mu.Unlock()

	log.Printf("[realtime] connection lost")
	m.scheduleGlobalReconnect()
}

// HandleConnectionRestored reacts to a network "online" signal by
// reconnecting every active subscription, staggered to avoid a thundering
// herd against the backend.
func (m *Manager) HandleConnectionRestored() {
	m.mu.Lock()
	m.conn.Status = Reconnecting
	m.conn.ReconnectAttempts = 0
	m.mu.Unlock()

	log.Printf("[realtime] connection restored, reconnecting subscriptions")
	m.reconnectAllSubscriptions()
}

// HandleVisibilityChange records a page/tab visibility transition. Pause is
// advisory only: subscriptions keep running while hidden so no updates are
// missed, the transition is just logged.
func (m *Manager) HandleVisibilityChange(visible bool) {
	if visible {
		log.Printf("[realtime] became visible")
		return
	}
	log.Printf("[realtime] became hidden, subscriptions kept alive")
}

func (m *Manager) scheduleGlobalReconnect() {
	m.mu.Lock()
	m.conn.ReconnectAttempts++
	attempt := m.conn.ReconnectAttempts
	m.mu.Unlock()

	if attempt > m.cfg.MaxReconnectAttempts {
		log.Printf("[realtime] exhausted %d global reconnect attempts, staying offline", m.cfg.MaxReconnectAttempts)
		return
	}

	delay := m.cfg.backoffDelay(attempt)
	log.Printf("[realtime] global reconnect in %s (attempt %d/%d)", delay, attempt, m.cfg.MaxReconnectAttempts)
	m.schedule(delay, func() {
		m.mu.Lock()
		offline := m.conn.Status == Disconnected
		m.mu.Unlock()
		if !offline {
			return
		}
		m.reconnectAllSubscriptions()
	})
}

func (m *Manager) reconnectAllSubscriptions() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.subs))
	for id, sub := range m.subs {
		if sub.active {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	sort.Strings(ids)

	for i, id := range ids {
		subID := id
		m.schedule(time.Duration(i)*m.cfg.ReconnectStagger, func() {
			m.resubscribe(subID)
		})
	}
}

// startHeartbeatLocked starts the staleness scanner if it is not running.
// Caller must hold m.mu.
func (m *Manager) startHeartbeatLocked() {
	if m.heartbeatRunning {
		return
	}
	m.heartbeatRunning = true
	stop := make(chan struct{})
	m.heartbeatStop = stop

	go func() {
		ticker := time.NewTicker(m.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.checkStaleSubscriptions()
			}
		}
	}()
}

// checkStaleSubscriptions puts zombie channels, ones that report healthy but
// have delivered nothing for longer than the staleness threshold, through the
// per-subscription reconnection path.
func (m *Manager) checkStaleSubscriptions() {
	cutoff := m.now().Add(-m.cfg.StaleThreshold)

	m.mu.Lock()
	var stale []string
	for id, sub := range m.subs {
		if sub.active && sub.lastActivity.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		log.Printf("[realtime] %s is stale, forcing reconnection", id)
		m.scheduleSubscriptionReconnect(id)
	}
}

func (m *Manager) unsubscribe(subID string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if !ok {
		m.mu.Unlock()
		return
	}
	sub.active = false
	channel := sub.channel
	sub.channel = nil
	delete(m.subs, subID)
	m.mu.Unlock()

	if channel != nil {
		if err := channel.Unsubscribe(); err != nil {
			log.Printf("[realtime] unsubscribe %s: %v", subID, err)
		}
	}
	log.Printf("[realtime] unsubscribed %s", subID)
}

func (m *Manager) subscriptionActive(subID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[subID]
	return ok && sub.active
}

// ConnectionState returns a snapshot of the manager-wide connection.
func (m *Manager) ConnectionState() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// ActiveSubscriptionCount returns the number of live subscriptions.
func (m *Manager) ActiveSubscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, sub := range m.subs {
		if sub.active {
			count++
		}
	}
	return count
}

// PendingUpdateCount returns the number of queued offline updates.
func (m *Manager) PendingUpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Cleanup stops the heartbeat, releases every channel, drops the pending
// queue and resets the connection state. Idempotent and safe to call more
// than once.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	if m.heartbeatRunning {
		close(m.heartbeatStop)
		m.heartbeatRunning = false
		m.heartbeatStop = nil
	}
	channels := make([]Channel, 0, len(m.subs))
	for _, sub := range m.subs {
		sub.active = false
		if sub.channel != nil {
			channels = append(channels, sub.channel)
			sub.channel = nil
		}
	}
	m.subs = make(map[string]*subscription)
	m.pending = nil
	m.syncInProgress = false
	m.conn = newConnectionState()
	m.mu.Unlock()

	for _, channel := range channels {
		if err := channel.Unsubscribe(); err != nil {
			log.Printf("[realtime] cleanup unsubscribe: %v", err)
		}
	}
	log.Printf("[realtime] cleaned up %d subscriptions", len(channels))
}

// dispatch routes one decoded activity to the config's callback for the
// change type. A panicking callback is reported as an error so a flush can
// abort without losing the queue.
func dispatch(config SubscriptionConfig, changeType domain.ChangeType, activity domain.Activity) (err error) {
	var fn func(domain.Activity)
	switch changeType {
	case domain.ChangeInsert:
		fn = config.OnActivityAdded
	case domain.ChangeUpdate:
		fn = config.OnActivityUpdated
	}
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	fn(activity)
	return nil
}

func (m *Manager) notifyError(config SubscriptionConfig, err error) {
	if config.OnError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[realtime] OnError callback panicked: %v", r)
		}
	}()
	config.OnError(err)
}

func (m *Manager) notifyConnectionChange(config SubscriptionConfig, connected bool) {
	if config.OnConnectionChange == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[realtime] OnConnectionChange callback panicked: %v", r)
		}
	}()
	config.OnConnectionChange(connected)
}
