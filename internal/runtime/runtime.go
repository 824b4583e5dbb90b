// Package runtime binds every DQM subsystem together into a single
// process-wide Runtime (construct registry, pool manager, queue manager,
// metrics, readiness gate, api server, in that order) so
// cmd/hydrogend/main.go stays a thin shell.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/api"
	"github.com/hydrogen-project/hydrogen/internal/config"
	"github.com/hydrogen-project/hydrogen/internal/connpool"
	"github.com/hydrogen-project/hydrogen/internal/dbqueue"
	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
	"github.com/hydrogen-project/hydrogen/internal/engine"
	"github.com/hydrogen-project/hydrogen/internal/metrics"
	"github.com/hydrogen-project/hydrogen/internal/queuemgr"
	"github.com/hydrogen-project/hydrogen/internal/readiness"
)

// Options configures a Runtime at construction.
type Options struct {
	ConfigPath     string
	APIPort        int
	APIKeyHash     []byte // optional bcrypt hash; empty disables the middleware
	StatsInterval  time.Duration
	QueueCapacity  int // per-database FIFO capacity
	ManagerCap     int // queuemgr.Manager capacity
}

func (o Options) withDefaults() Options {
	if o.APIPort <= 0 {
		o.APIPort = 8089
	}
	if o.StatsInterval <= 0 {
		o.StatsInterval = 5 * time.Second
	}
	if o.ManagerCap <= 0 {
		o.ManagerCap = 64
	}
	return o
}

// Runtime is the process-wide collection of wired subsystems.
type Runtime struct {
	opts Options

	cfg      *config.AppConfig
	registry *engine.Registry
	pools    *connpool.Manager
	queues   *queuemgr.Manager
	metrics  *metrics.Collector
	gate     *readiness.Gate
	api      *api.Server
	watcher  *config.Watcher

	leads  []*dbqueue.DatabaseQueue
	cancel context.CancelFunc
	stopCh chan struct{}
}

// New loads opts.ConfigPath and wires every subsystem. Each pool's idle
// reaper and the config watcher start here; the queue worker loops, the
// stats loop, and the HTTP listener start only in Start.
func New(opts Options) (*Runtime, error) {
	opts = opts.withDefaults()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	registry := engine.NewRegistry(
		engine.NewPostgreSQLAdapter(),
		engine.NewMySQLAdapter(),
		engine.NewSQLiteAdapter(),
		engine.NewDB2Adapter(),
		engine.NewAIAdapter(),
	)

	rt := &Runtime{
		opts:     opts,
		cfg:      cfg,
		registry: registry,
		pools:    connpool.Global(),
		queues:   queuemgr.New(opts.ManagerCap),
		metrics:  metrics.New(),
		gate:     readiness.NewGate(),
		stopCh:   make(chan struct{}),
	}

	for _, dbCfg := range cfg.Databases {
		if err := rt.wireDatabase(dbCfg); err != nil {
			return nil, fmt.Errorf("wiring database %q: %w", dbCfg.Name, err)
		}
	}

	rt.registerReadiness()
	rt.api = api.NewServer(rt.queues, rt.gate, rt.metrics, opts.APIKeyHash)

	watcher, err := config.NewWatcher(opts.ConfigPath, rt.onConfigReload)
	if err != nil {
		slog.Warn("config hot-reload not available", "err", err)
	}
	rt.watcher = watcher

	return rt, nil
}

func parseEngineKind(name string) (engine.Kind, error) {
	switch name {
	case "postgresql":
		return engine.PostgreSQL, nil
	case "mysql":
		return engine.MySQL, nil
	case "sqlite":
		return engine.SQLite, nil
	case "db2":
		return engine.DB2, nil
	case "ai":
		return engine.AI, nil
	default:
		return 0, dqmerr.New(dqmerr.InvalidArgument, "unrecognized engine: "+name)
	}
}

func (rt *Runtime) wireDatabase(dbCfg config.DatabaseConfig) error {
	kind, err := parseEngineKind(dbCfg.Engine)
	if err != nil {
		return err
	}
	adapter, ok := rt.registry.Get(kind)
	if !ok {
		return dqmerr.New(dqmerr.NotInitialized, "engine unavailable: "+dbCfg.Engine)
	}

	engCfg := engine.Config{
		ConnectionString:           dbCfg.ConnectionString,
		PreparedStatementCacheSize: dbCfg.Workers.EffectiveCacheSize(),
	}

	p := rt.pools.Init(dbCfg.Name, kind, adapter, engCfg, connpool.Options{
		CacheSize: dbCfg.Workers.EffectiveCacheSize(),
	})

	lead := dbqueue.New(dbqueue.Config{
		DatabaseName:      dbCfg.Name,
		IsLead:            true,
		QueueType:         dbqueue.Medium,
		HeartbeatInterval: dbCfg.Workers.EffectiveHeartbeatInterval(),
		MaxChildQueues:    dbCfg.Workers.EffectiveMaxChildQueues(),
		AutoMigration:     rt.cfg.AutoMigration,
		Adapter:           adapter,
		EngineKind:        kind,
		Pool:              p,
		QueueCapacity:     rt.opts.QueueCapacity,
	})

	if err := rt.queues.Add(lead); err != nil {
		return err
	}
	rt.leads = append(rt.leads, lead)
	return nil
}

func (rt *Runtime) registerReadiness() {
	rt.gate.Register(readiness.Database, func() readiness.LaunchReadiness {
		for _, dbCfg := range rt.cfg.Databases {
			kind, err := parseEngineKind(dbCfg.Engine)
			if err != nil || !rt.registry.Available(kind) {
				return readiness.NewLaunchReadiness(readiness.Database, false,
					readiness.NoGoMessage(dbCfg.Name+": engine unavailable"))
			}
		}
		for _, lead := range rt.leads {
			available, _, applied := lead.Counters()
			if lead.AutoMigrationEnabled() && applied != available {
				return readiness.NewLaunchReadiness(readiness.Database, false,
					readiness.NoGoMessage(lead.DatabaseName+": migrations pending"))
			}
		}
		return readiness.NewLaunchReadiness(readiness.Database, true,
			readiness.GoMessage(fmt.Sprintf("%d databases configured", len(rt.cfg.Databases))))
	}, nil)

	rt.gate.Register(readiness.Logging, func() readiness.LaunchReadiness {
		return readiness.NewLaunchReadiness(readiness.Logging, true, readiness.GoMessage("structured logging active"))
	}, nil)

	rt.gate.Register(readiness.Print, func() readiness.LaunchReadiness {
		return readiness.NewLaunchReadiness(readiness.Print, true, readiness.GoMessage("console output ready"))
	}, nil)
}

func (rt *Runtime) onConfigReload(cfg *config.AppConfig) {
	slog.Info("runtime applying reloaded config", "databases", len(cfg.Databases))
	rt.cfg = cfg
}

// Start launches every Lead's worker loop, the stats-reporting loop, and
// the HTTP API server.
func (rt *Runtime) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel

	for _, lead := range rt.leads {
		go lead.Run(ctx)
	}

	go rt.statsLoop(ctx)

	if err := rt.api.Start(rt.opts.APIPort); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}
	return nil
}

func (rt *Runtime) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(rt.opts.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-rt.stopCh:
			return
		case <-ticker.C:
			rt.reportStats()
		}
	}
}

func (rt *Runtime) reportStats() {
	for _, s := range rt.pools.AllStats() {
		rt.metrics.UpdatePoolStats(s.Designator, s.Engine.String(), s.Busy, s.Idle, s.Total, s.Waiting)
	}
	for _, dq := range rt.queues.Snapshot() {
		rt.metrics.SetQueueDepth(dq.DatabaseName, dq.QueueType.String(), dq.Tag, dq.Depth())
	}
}

// Stop stops the config watcher and the API server, requests shutdown of
// every Lead, cancels the worker context, closes every pool, and runs the
// gate's landing pass in reverse startup order. It does not wait for the
// queue worker goroutines to exit.
func (rt *Runtime) Stop() error {
	close(rt.stopCh)

	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	if err := rt.api.Stop(); err != nil {
		slog.Warn("api server shutdown error", "err", err)
	}

	for _, lead := range rt.leads {
		lead.RequestShutdown()
	}
	if rt.cancel != nil {
		rt.cancel()
	}

	rt.pools.CloseAll()
	rt.gate.Land()
	return nil
}
