package dbqueue

import (
	"context"
	"time"
)

// heartbeat enforces the per-tick invariants of spec.md §4.5. Failure of
// the health check is not fatal — the loop always returns control.
func (dq *DatabaseQueue) heartbeat(ctx context.Context) {
	dq.mu.Lock()
	dq.lastHeartbeat = time.Now()
	conn := dq.persistentConn
	connected := dq.isConnected
	dq.mu.Unlock()

	if conn != nil {
		healthy := dq.adapter != nil && dq.adapter.HealthCheck(ctx, conn.Native())
		if healthy {
			dq.mu.Lock()
			dq.isConnected = true
			dq.mu.Unlock()
			return
		}

		// Health check failed: release the connection and fall through
		// to the reconnect branch next tick is unnecessary — we
		// reconnect immediately within this tick, inline with the
		// dequeue-timeout loop's own heartbeat cadence.
		if dq.pool != nil {
			dq.pool.Discard(conn)
		}
		dq.mu.Lock()
		dq.persistentConn = nil
		dq.isConnected = false
		dq.mu.Unlock()
		connected = false
	}

	if connected {
		return
	}

	dq.reconnect(ctx)
}

// reconnect is the reconnect branch of spec.md §4.5 step 3: updates
// last_connection_attempt, tries pool_acquire, and installs the result
// as persistent_connection on success. Failure leaves state unchanged.
func (dq *DatabaseQueue) reconnect(ctx context.Context) {
	dq.mu.Lock()
	dq.lastConnectionAttempt = time.Now()
	dq.mu.Unlock()

	if dq.pool == nil {
		return
	}

	acquireCtx, cancel := context.WithTimeout(ctx, dq.HeartbeatInterval)
	defer cancel()

	h, err := dq.pool.Acquire(acquireCtx)
	if err != nil {
		return
	}

	dq.mu.Lock()
	dq.persistentConn = h
	dq.isConnected = true
	dq.mu.Unlock()
}

// LastHeartbeat returns the last time heartbeat() ran.
func (dq *DatabaseQueue) LastHeartbeat() time.Time {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	return dq.lastHeartbeat
}

// IsConnected reports the current connection state.
func (dq *DatabaseQueue) IsConnected() bool {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	return dq.isConnected
}
