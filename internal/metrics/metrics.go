package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the Database Queue Manager.
type Collector struct {
	Registry           *prometheus.Registry
	connectionsActive  *prometheus.GaugeVec
	connectionsIdle    *prometheus.GaugeVec
	connectionsTotal   *prometheus.GaugeVec
	connectionsWaiting *prometheus.GaugeVec
	queryDuration      *prometheus.HistogramVec
	databaseHealth     *prometheus.GaugeVec
	poolExhausted      *prometheus.CounterVec

	// Health check metrics
	healthCheckDuration *prometheus.HistogramVec
	healthCheckErrors   *prometheus.CounterVec

	// Queue topology metrics
	queueDepth  *prometheus.GaugeVec
	childQueues *prometheus.GaugeVec

	// Migration metrics
	migrationAvailable *prometheus.GaugeVec
	migrationLoaded    *prometheus.GaugeVec
	migrationApplied   *prometheus.GaugeVec
	migrationFailures  *prometheus.CounterVec

	// Prepared statement cache metrics
	cacheHitsTotal   *prometheus.CounterVec
	cacheEvictsTotal *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics using a custom registry.
// Safe to call multiple times (e.g., in tests or on config reload) — each call
// creates an independent registry that doesn't conflict with others.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		connectionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_connections_active",
				Help: "Number of busy connections per database",
			},
			[]string{"database", "engine"},
		),
		connectionsIdle: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_connections_idle",
				Help: "Number of idle connections per database",
			},
			[]string{"database", "engine"},
		),
		connectionsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_connections_total",
				Help: "Total number of connections per database",
			},
			[]string{"database", "engine"},
		),
		connectionsWaiting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_connections_waiting",
				Help: "Number of goroutines waiting for a connection per database",
			},
			[]string{"database", "engine"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hydrogen_query_duration_seconds",
				Help:    "Duration of query processing by database and queue class",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
			},
			[]string{"database", "class"},
		),
		databaseHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_database_health",
				Help: "Health status of a database's Lead connection (1=healthy, 0=unhealthy)",
			},
			[]string{"database"},
		),
		poolExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydrogen_pool_exhausted_total",
				Help: "Total number of times a database's pool was exhausted",
			},
			[]string{"database"},
		),

		healthCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hydrogen_health_check_duration_seconds",
				Help:    "Duration of heartbeat health-check probes",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"database", "status"},
		),
		healthCheckErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydrogen_health_check_errors_total",
				Help: "Heartbeat health-check errors per database",
			},
			[]string{"database"},
		),

		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_queue_depth",
				Help: "Current FIFO depth by database and queue class",
			},
			[]string{"database", "class", "tag"},
		),
		childQueues: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_child_queues",
				Help: "Number of spawned child queues per Lead database",
			},
			[]string{"database"},
		),

		migrationAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_migration_available",
				Help: "Current AVAILABLE migration counter per database",
			},
			[]string{"database"},
		),
		migrationLoaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_migration_loaded",
				Help: "Current LOADED migration counter per database",
			},
			[]string{"database"},
		),
		migrationApplied: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hydrogen_migration_applied",
				Help: "Current APPLIED migration counter per database",
			},
			[]string{"database"},
		),
		migrationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydrogen_migration_failures_total",
				Help: "Migration cycle failures per database",
			},
			[]string{"database"},
		),

		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydrogen_stmt_cache_hits_total",
				Help: "Prepared statement cache hits (idempotent re-prepare) per database",
			},
			[]string{"database"},
		),
		cacheEvictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydrogen_stmt_cache_evictions_total",
				Help: "Prepared statement cache LRU evictions per database",
			},
			[]string{"database"},
		),
	}

	reg.MustRegister(
		c.connectionsActive,
		c.connectionsIdle,
		c.connectionsTotal,
		c.connectionsWaiting,
		c.queryDuration,
		c.databaseHealth,
		c.poolExhausted,
		c.healthCheckDuration,
		c.healthCheckErrors,
		c.queueDepth,
		c.childQueues,
		c.migrationAvailable,
		c.migrationLoaded,
		c.migrationApplied,
		c.migrationFailures,
		c.cacheHitsTotal,
		c.cacheEvictsTotal,
	)

	return c
}

// QueryDuration observes one query's processing duration.
func (c *Collector) QueryDuration(database, class string, d time.Duration) {
	c.queryDuration.WithLabelValues(database, class).Observe(d.Seconds())
}

// SetDatabaseHealth sets the health gauge for a database.
func (c *Collector) SetDatabaseHealth(database string, healthy bool) {
	val := 0.0
	if healthy {
		val = 1.0
	}
	c.databaseHealth.WithLabelValues(database).Set(val)
}

// PoolExhausted increments the pool exhausted counter.
func (c *Collector) PoolExhausted(database string) {
	c.poolExhausted.WithLabelValues(database).Inc()
}

// UpdatePoolStats updates the pool gauge metrics from a connpool.Stats
// snapshot.
func (c *Collector) UpdatePoolStats(database, engineName string, busy, idle, total, waiting int) {
	c.connectionsActive.WithLabelValues(database, engineName).Set(float64(busy))
	c.connectionsIdle.WithLabelValues(database, engineName).Set(float64(idle))
	c.connectionsTotal.WithLabelValues(database, engineName).Set(float64(total))
	c.connectionsWaiting.WithLabelValues(database, engineName).Set(float64(waiting))
}

// HealthCheckCompleted records a heartbeat health-check probe duration
// and result.
func (c *Collector) HealthCheckCompleted(database string, d time.Duration, healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	c.healthCheckDuration.WithLabelValues(database, status).Observe(d.Seconds())
	if !healthy {
		c.healthCheckErrors.WithLabelValues(database).Inc()
	}
}

// SetQueueDepth records a queue's current FIFO depth.
func (c *Collector) SetQueueDepth(database, class, tag string, depth int) {
	c.queueDepth.WithLabelValues(database, class, tag).Set(float64(depth))
}

// SetChildQueueCount records a Lead's current spawned-child count.
func (c *Collector) SetChildQueueCount(database string, count int) {
	c.childQueues.WithLabelValues(database).Set(float64(count))
}

// SetMigrationCounters records the AVAILABLE/LOADED/APPLIED triple.
func (c *Collector) SetMigrationCounters(database string, available, loaded, applied int64) {
	c.migrationAvailable.WithLabelValues(database).Set(float64(available))
	c.migrationLoaded.WithLabelValues(database).Set(float64(loaded))
	c.migrationApplied.WithLabelValues(database).Set(float64(applied))
}

// MigrationFailed increments the migration failure counter.
func (c *Collector) MigrationFailed(database string) {
	c.migrationFailures.WithLabelValues(database).Inc()
}

// CacheHit increments the prepared statement cache hit counter.
func (c *Collector) CacheHit(database string) {
	c.cacheHitsTotal.WithLabelValues(database).Inc()
}

// CacheEviction increments the prepared statement cache eviction counter.
func (c *Collector) CacheEviction(database string) {
	c.cacheEvictsTotal.WithLabelValues(database).Inc()
}

// RemoveDatabase removes all metric series for a database, e.g. when a
// database is deregistered from the Queue Manager at runtime.
func (c *Collector) RemoveDatabase(database string) {
	c.connectionsActive.DeletePartialMatch(prometheus.Labels{"database": database})
	c.connectionsIdle.DeletePartialMatch(prometheus.Labels{"database": database})
	c.connectionsTotal.DeletePartialMatch(prometheus.Labels{"database": database})
	c.connectionsWaiting.DeletePartialMatch(prometheus.Labels{"database": database})
	c.queryDuration.DeletePartialMatch(prometheus.Labels{"database": database})
	c.databaseHealth.DeleteLabelValues(database)
	c.poolExhausted.DeleteLabelValues(database)
	c.healthCheckDuration.DeletePartialMatch(prometheus.Labels{"database": database})
	c.healthCheckErrors.DeleteLabelValues(database)
	c.queueDepth.DeletePartialMatch(prometheus.Labels{"database": database})
	c.childQueues.DeleteLabelValues(database)
	c.migrationAvailable.DeleteLabelValues(database)
	c.migrationLoaded.DeleteLabelValues(database)
	c.migrationApplied.DeleteLabelValues(database)
	c.migrationFailures.DeleteLabelValues(database)
	c.cacheHitsTotal.DeleteLabelValues(database)
	c.cacheEvictsTotal.DeleteLabelValues(database)
}
