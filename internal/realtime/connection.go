package realtime

import "time"

// ConnectionStatus is the manager-wide transport health.
type ConnectionStatus string

const (
	Connected    ConnectionStatus = "connected"
	Disconnected ConnectionStatus = "disconnected"
	Reconnecting ConnectionStatus = "reconnecting"
)

// ConnectionState is a snapshot of the manager-wide connection, mutated only
// by the manager itself and read by health checks.
type ConnectionState struct {
	Status            ConnectionStatus
	LastConnected     time.Time
	LastDisconnected  time.Time
	ReconnectAttempts int
}

func newConnectionState() ConnectionState {
	return ConnectionState{Status: Disconnected}
}
