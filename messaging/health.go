package messaging

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus represents the health state of a fabric connection.
type HealthStatus struct {
	// Connected indicates if the client is connected.
	Connected bool `json:"connected"`

	// Latency is the round-trip time for a health ping.
	Latency time.Duration `json:"latency_ms"`

	// Error contains any error message if unhealthy.
	Error string `json:"error,omitempty"`
}

// CheckClientHealth verifies that a Client can reach the broker.
// A missing responder on the ping subject is not an error; the check only
// confirms the connection is usable.
func CheckClientHealth(ctx context.Context, client Client) HealthStatus {
	status := HealthStatus{}

	if client == nil {
		status.Error = "client is nil"
		return status
	}

	status.Connected = client.IsConnected()
	if !status.Connected {
		status.Error = "not connected to message broker"
		return status
	}

	start := time.Now()
	_, err := client.Request(ctx, "_HEALTH.ping", []byte("ping"), 2*time.Second)
	status.Latency = time.Since(start)

	if err != nil && !client.IsConnected() {
		status.Error = fmt.Sprintf("health check failed: %v", err)
	}

	return status
}
