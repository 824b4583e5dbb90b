// Package queuemgr implements the Queue Manager (C7): a bounds-checked
// registry of dbqueue.DatabaseQueue instances with per-queue selection
// and submission counters and process-wide aggregates, per spec.md
// §4.7. Writes publish an atomic.Value snapshot so Snapshot readers do
// not take a lock; Get scans under the read lock.
package queuemgr

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/dbqueue"
	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
)

// QueueStats is the per-queue counter set maintained by the Manager.
type QueueStats struct {
	Submitted int64
	LastUsed  time.Time
}

// Manager is the bounds-checked queue registry (spec.md §3 "Queue
// Manager").
type Manager struct {
	mu                 sync.RWMutex
	capacity           int
	queues             []*dbqueue.DatabaseQueue
	selectionCounters  []int64
	perQueueStats      []QueueStats

	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64
	totalFailed    atomic.Int64
	totalTimeouts  atomic.Int64

	// snapshot is an atomic.Value holding []*dbqueue.DatabaseQueue, kept
	// in sync with queues so lock-free readers (e.g. the HTTP status
	// surface) never block behind mu.
	snapshot atomic.Value
}

// New returns a Manager bounded by capacity.
func New(capacity int) *Manager {
	if capacity <= 0 {
		capacity = 64
	}
	m := &Manager{
		capacity:          capacity,
		selectionCounters: make([]int64, capacity),
		perQueueStats:     make([]QueueStats, capacity),
	}
	m.snapshot.Store([]*dbqueue.DatabaseQueue{})
	return m
}

// Add registers queue, rejecting nil or a duplicate database name
// (spec.md §4.7).
func (m *Manager) Add(queue *dbqueue.DatabaseQueue) error {
	if queue == nil {
		return dqmerr.New(dqmerr.InvalidArgument, "cannot add a nil queue")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queues) >= m.capacity {
		return dqmerr.New(dqmerr.ResourceExhausted, "queue manager at capacity")
	}
	for _, existing := range m.queues {
		if existing.DatabaseName == queue.DatabaseName {
			return dqmerr.New(dqmerr.InvalidArgument, "duplicate database_name: "+queue.DatabaseName)
		}
	}

	idx := len(m.queues)
	m.queues = append(m.queues, queue)
	m.perQueueStats[idx] = QueueStats{LastUsed: time.Now()}
	m.publishLocked()
	return nil
}

// Get returns the queue named name via linear scan, or nil if absent.
func (m *Manager) Get(name string) *dbqueue.DatabaseQueue {
	if name == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, q := range m.queues {
		if q.DatabaseName == name {
			return q
		}
	}
	return nil
}

// Snapshot returns the current queue list without taking mu — readers
// get an eventually-consistent view via an atomic.Value swap on write.
func (m *Manager) Snapshot() []*dbqueue.DatabaseQueue {
	return m.snapshot.Load().([]*dbqueue.DatabaseQueue)
}

func (m *Manager) publishLocked() {
	cp := make([]*dbqueue.DatabaseQueue, len(m.queues))
	copy(cp, m.queues)
	m.snapshot.Store(cp)
}

// IncrementQueueSelection bumps the selection counter and the matching
// queue's submitted counter at idx. Out-of-range idx is a no-op
// (spec.md §4.7).
func (m *Manager) IncrementQueueSelection(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 0 || idx >= m.capacity {
		return
	}
	m.selectionCounters[idx]++
	if idx < len(m.queues) {
		m.perQueueStats[idx].Submitted++
		m.perQueueStats[idx].LastUsed = time.Now()
	}
	m.totalSubmitted.Add(1)
}

// RecordCompleted/RecordFailed/RecordTimeout bump the process-wide
// aggregates (spec.md §4.7 "total_queries_submitted/completed/failed/timeouts").
func (m *Manager) RecordCompleted() { m.totalCompleted.Add(1) }
func (m *Manager) RecordFailed()    { m.totalFailed.Add(1) }
func (m *Manager) RecordTimeout()   { m.totalTimeouts.Add(1) }

// Aggregates is the process-wide counter snapshot.
type Aggregates struct {
	Submitted int64
	Completed int64
	Failed    int64
	Timeouts  int64
}

// Aggregates returns the current aggregate counters.
func (m *Manager) Aggregates() Aggregates {
	return Aggregates{
		Submitted: m.totalSubmitted.Load(),
		Completed: m.totalCompleted.Load(),
		Failed:    m.totalFailed.Load(),
		Timeouts:  m.totalTimeouts.Load(),
	}
}

// InitStats zeros every aggregate and per-queue counter and resets
// every last_used to now (spec.md §4.7).
func (m *Manager) InitStats() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := range m.selectionCounters {
		m.selectionCounters[i] = 0
	}
	for i := range m.perQueueStats {
		m.perQueueStats[i] = QueueStats{LastUsed: now}
	}
	m.totalSubmitted.Store(0)
	m.totalCompleted.Store(0)
	m.totalFailed.Store(0)
	m.totalTimeouts.Store(0)
}

// FindMaxQueryAgeAcrossQueues scans every registered queue under the
// manager lock and returns the oldest standing query's age, or 0 if the
// manager holds no queues (spec.md §4.7).
func (m *Manager) FindMaxQueryAgeAcrossQueues() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.queues) == 0 {
		return 0
	}
	var max time.Duration
	for _, q := range m.queues {
		if age := q.OldestQueryAge(); age > max {
			max = age
		}
	}
	return max
}
