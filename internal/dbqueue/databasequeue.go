package dbqueue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/connpool"
	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
	"github.com/hydrogen-project/hydrogen/internal/engine"
	"github.com/hydrogen-project/hydrogen/internal/migration"
)

// defaultHeartbeatInterval is spec.md §3's default heartbeat_interval_seconds.
const defaultHeartbeatInterval = 30 * time.Second

// retirementCoolDownTicks is the number of consecutive zero-depth idle
// ticks a child queue must accrue before it becomes a retirement
// candidate. The original sources do not specify this duration
// (spec.md §9 Open Questions); two ticks were chosen so a single
// momentary lull doesn't thrash spawn/retire (documented in DESIGN.md).
const retirementCoolDownTicks = 2

// ProcessFunc executes one query against dq's persistent connection.
// The default implementation (used when a DatabaseQueue is built
// without one) dispatches through the engine adapter directly.
type ProcessFunc func(ctx context.Context, dq *DatabaseQueue, q *Query) error

// DatabaseQueue is one Lead or Worker/Child queue (C6): a named worker
// goroutine, its input Query Queue, and (for a Lead) a persistent
// Connection Handle plus child-queue and migration state.
type DatabaseQueue struct {
	DatabaseName string
	isLead       bool
	QueueType    Class
	Tag          string
	QueueNumber  int // -1 until numbered

	queue *Queue

	shutdownRequested atomic.Bool
	workerStarted     atomic.Bool

	HeartbeatInterval time.Duration

	mu                    sync.Mutex
	lastHeartbeat         time.Time
	lastConnectionAttempt time.Time
	isConnected           bool
	persistentConn        *connpool.Handle

	connLock sync.Mutex // try-lock: migration-connection reservation

	canSpawnQueues  bool
	maxChildQueues  int
	childQueues     []*DatabaseQueue
	childIdleStreak map[*DatabaseQueue]int

	engineKind engine.Kind
	adapter    engine.Adapter
	pool       *connpool.Pool

	autoMigration  bool
	migrationCache *migration.Cache
	available      atomic.Int64
	loaded         atomic.Int64
	applied        atomic.Int64

	process ProcessFunc
}

// Config configures a new DatabaseQueue.
type Config struct {
	DatabaseName      string
	IsLead            bool
	QueueType         Class
	QueueNumber       int
	QueueCapacity     int
	HeartbeatInterval time.Duration
	MaxChildQueues    int // Lead only
	AutoMigration     bool
	Adapter           engine.Adapter
	EngineKind        engine.Kind
	Pool              *connpool.Pool
	Process           ProcessFunc
}

// New constructs a DatabaseQueue. A Lead is given can_spawn_queues=true
// unconditionally (spec.md §3 invariant "is_lead ⇒ can_spawn_queues");
// workers start with queue_number=-1 until the Lead numbers them.
func New(cfg Config) *DatabaseQueue {
	hb := cfg.HeartbeatInterval
	if hb <= 0 {
		hb = defaultHeartbeatInterval
	}
	qn := cfg.QueueNumber
	if qn == 0 {
		qn = -1
	}
	dq := &DatabaseQueue{
		DatabaseName:      cfg.DatabaseName,
		isLead:            cfg.IsLead,
		QueueType:         cfg.QueueType,
		Tag:               cfg.QueueType.Tag(),
		QueueNumber:       qn,
		queue:             NewQueue(cfg.QueueCapacity),
		HeartbeatInterval: hb,
		canSpawnQueues:    cfg.IsLead,
		maxChildQueues:    cfg.MaxChildQueues,
		childIdleStreak:   make(map[*DatabaseQueue]int),
		engineKind:        cfg.EngineKind,
		adapter:           cfg.Adapter,
		pool:              cfg.Pool,
		autoMigration:     cfg.AutoMigration,
		migrationCache:    migration.NewCache(),
		process:           cfg.Process,
	}
	if dq.process == nil {
		dq.process = defaultProcess
	}
	return dq
}

// IsLead reports whether dq is the Lead queue for its database.
func (dq *DatabaseQueue) IsLead() bool { return dq.isLead }

// Submit enqueues q onto dq's FIFO.
func (dq *DatabaseQueue) Submit(q *Query) bool { return dq.queue.Submit(q) }

// Depth reports dq's current queue length.
func (dq *DatabaseQueue) Depth() int { return dq.queue.Depth() }

// OldestQueryAge reports how long the head-of-queue query has been
// waiting, or 0 if dq's queue is empty.
func (dq *DatabaseQueue) OldestQueryAge() time.Duration {
	t := dq.queue.OldestSubmittedAt()
	if t.IsZero() {
		return 0
	}
	return time.Since(t)
}

// RequestShutdown sets shutdown_requested; the worker exits at its next
// dequeue wake-up or after the in-flight query completes.
func (dq *DatabaseQueue) RequestShutdown() { dq.shutdownRequested.Store(true) }

// Run is the worker loop of spec.md §4.4. It blocks until shutdown is
// requested or ctx is cancelled; either is observed at the next dequeue
// wake-up.
func (dq *DatabaseQueue) Run(ctx context.Context) {
	dq.workerStarted.Store(true)
	defer dq.workerStarted.Store(false)

	for {
		if dq.shutdownRequested.Load() || ctx.Err() != nil {
			return
		}

		q, ok := dq.queue.Dequeue(dq.HeartbeatInterval)
		if !ok {
			dq.heartbeat(ctx)
			if dq.isLead {
				dq.manageChildQueues(ctx)
				if err := migration.Run(ctx, dq, 1); err != nil {
					slog.Warn("migration cycle failed", "subsystem", "dqm", "database", dq.DatabaseName, "tag", dq.Tag, "err", err)
				}
			}
			continue
		}

		if err := dq.process(ctx, dq, q); err != nil {
			q.ErrorMessage = err.Error()
		}
		if q.Done != nil {
			close(q.Done)
		}
	}
}

// defaultProcess dispatches a query per dq's own queue_type, not the
// query's class hint (spec.md §4.4).
func defaultProcess(ctx context.Context, dq *DatabaseQueue, q *Query) error {
	if q.QueryTemplate == "" {
		return dqmerr.New(dqmerr.InvalidArgument, "query_template is mandatory")
	}

	if dq.QueueType == Cache {
		// Cache-class queues may serve synthetic results without a
		// live connection (spec.md §4.5).
		q.Result = map[string]any{"synthetic": true}
		return nil
	}

	dq.mu.Lock()
	conn := dq.persistentConn
	dq.mu.Unlock()
	if conn == nil {
		return dqmerr.New(dqmerr.NotInitialized, "no persistent connection available")
	}

	conn.Lock()
	defer conn.Unlock()
	res, err := dq.adapter.Execute(ctx, conn.Native(), nil, q.QueryTemplate, nil)
	if err != nil {
		return err
	}
	q.Result = res
	return nil
}
