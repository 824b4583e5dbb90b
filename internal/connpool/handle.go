// Package connpool implements the Connection Pool and its global
// registry (C3/C4): per-database pools of engine.Handle-wrapping
// ConnectionHandles with idle/busy accounting, registered in a
// designator-keyed Manager whose process-wide singleton is Global().
package connpool

import (
	"sync"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/engine"
	"github.com/hydrogen-project/hydrogen/internal/stmtcache"
)

// Handle is one pooled connection: an engine.Handle plus its private
// prepared-statement cache and a mutex serializing every operation
// against it (spec.md §5).
type Handle struct {
	mu        sync.Mutex
	native    engine.Handle
	kind      engine.Kind
	Stmts     *stmtcache.Cache
	createdAt time.Time
	lastUsed  time.Time
	busy      bool
}

// NewHandle wraps an engine.Handle freshly returned by Adapter.Connect.
func NewHandle(native engine.Handle, cacheSize int) *Handle {
	now := time.Now()
	return &Handle{
		native:    native,
		kind:      native.Kind(),
		Stmts:     stmtcache.New(cacheSize),
		createdAt: now,
		lastUsed:  now,
	}
}

// Kind reports the engine kind of the wrapped connection.
func (h *Handle) Kind() engine.Kind { return h.kind }

// Native returns the underlying engine.Handle for passing to
// engine.Adapter calls.
func (h *Handle) Native() engine.Handle { return h.native }

// Lock/Unlock expose the handle's serialization mutex to callers that
// perform a sequence of adapter calls against it (e.g. prepare then
// execute) that must not interleave with another goroutine's use of
// the same handle.
func (h *Handle) Lock()   { h.mu.Lock() }
func (h *Handle) Unlock() { h.mu.Unlock() }

// Touch records use of the handle, for idle-expiry accounting.
func (h *Handle) Touch() { h.lastUsed = time.Now() }

// IdleDuration reports how long the handle has sat unused.
func (h *Handle) IdleDuration() time.Duration { return time.Since(h.lastUsed) }

// Close releases the underlying native connection.
func (h *Handle) Close() error { return h.native.Close() }
