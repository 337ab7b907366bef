package realtime

import "time"

// Config carries the manager's tuning knobs. The zero value is not usable;
// start from DefaultConfig and override as needed.
type Config struct {
	// MaxReconnectAttempts caps both the global and the per-subscription
	// reconnection tracks. Past the cap a subscription goes permanently
	// inactive.
	MaxReconnectAttempts int

	// ReconnectBaseDelay is the first backoff delay; each further attempt
	// doubles it up to ReconnectMaxDelay.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// ReconnectStagger spaces out per-subscription reconnection attempts
	// during a global reconnect so the backend is not hit by a thundering
	// herd.
	ReconnectStagger time.Duration

	// HeartbeatInterval is how often active subscriptions are scanned for
	// staleness; StaleThreshold is how long a subscription may go without an
	// observed message before it is treated as a zombie channel.
	HeartbeatInterval time.Duration
	StaleThreshold    time.Duration

	// SyncBatchSize and SyncBatchYield shape offline-queue replay: updates
	// are delivered in fixed-size batches with a small yield in between so a
	// large backlog does not starve the caller.
	SyncBatchSize  int
	SyncBatchYield time.Duration
}

// DefaultConfig returns the manager's default tuning.
func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts: 10,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		ReconnectStagger:     time.Second,
		HeartbeatInterval:    30 * time.Second,
		StaleThreshold:       5 * time.Minute,
		SyncBatchSize:        10,
		SyncBatchYield:       100 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = d.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = d.ReconnectMaxDelay
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = d.StaleThreshold
	}
	if c.SyncBatchSize <= 0 {
		c.SyncBatchSize = d.SyncBatchSize
	}
	return c
}

// backoffDelay computes the capped exponential delay for the given attempt
// (1-based): min(base * 2^(attempt-1), max).
func (c Config) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.ReconnectBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.ReconnectMaxDelay {
			return c.ReconnectMaxDelay
		}
	}
	if delay > c.ReconnectMaxDelay {
		return c.ReconnectMaxDelay
	}
	return delay
}
