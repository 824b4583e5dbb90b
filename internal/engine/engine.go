// Package engine implements the Engine Adapter Registry (C1): a static,
// build-time mapping from EngineKind to a vtable-like Adapter
// implementation, replacing the original sources' runtime shared-library
// symbol lookup per the Design Notes in spec.md §9.
package engine

import (
	"context"
	"fmt"

	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
)

// Kind is the closed engine-kind tag set.
type Kind int

const (
	PostgreSQL Kind = iota
	MySQL
	SQLite
	DB2
	AI
)

func (k Kind) String() string {
	switch k {
	case PostgreSQL:
		return "postgresql"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	case DB2:
		return "db2"
	case AI:
		return "ai"
	default:
		return "unknown"
	}
}

// Config is the recognized connection configuration (spec.md §3
// ConnectionConfig). ConnectionString, when set, takes priority over the
// decomposed fields for every engine.
type Config struct {
	ConnectionString            string
	Host                        string
	Port                        int
	Database                    string
	Username                    string
	Password                    string
	PreparedStatementCacheSize  int
}

// EffectiveCacheSize returns the configured prepared-statement cache size
// or a default of 1000.
func (c Config) EffectiveCacheSize() int {
	if c.PreparedStatementCacheSize > 0 {
		return c.PreparedStatementCacheSize
	}
	return 1000
}

// Stmt is the adapter-side handle for a prepared statement.
type Stmt struct {
	Name   string
	SQL    string
	Native any // engine-specific prepared-statement handle
}

// Result is the outcome of Execute: rows affected for DML, or a result
// set for queries. The DQM does not parse SQL (spec.md §1 Non-goals), so
// Rows is passed through opaquely via database/sql.
type Result struct {
	RowsAffected int64
	Rows         [][]any
	Columns      []string
}

// Handle is the adapter-private connection state. Its concrete type is
// engine-specific (e.g. *sql.DB); callers never type-assert on it
// directly — engine.Adapter methods take it back by interface.
type Handle interface {
	// Kind reports which engine this handle belongs to, so callers and
	// the registry can enforce the engine-kind guard (spec.md §8
	// property 1) without dereferencing engine-private state.
	Kind() Kind
	Close() error
}

// Adapter is the per-engine vtable contract (spec.md §6 "Engine adapter
// ABI"). Implementations must fail every operation — without touching
// engine-private state — when called with a Handle of the wrong Kind.
type Adapter interface {
	Kind() Kind
	Connect(ctx context.Context, cfg Config) (Handle, error)
	Disconnect(h Handle) error
	HealthCheck(ctx context.Context, h Handle) bool
	Prepare(ctx context.Context, h Handle, name, sql string) (*Stmt, error)
	Unprepare(ctx context.Context, h Handle, stmt *Stmt) error
	Execute(ctx context.Context, h Handle, stmt *Stmt, sqlText string, params []any) (Result, error)
	ValidateConnectionString(s string) bool
	BuildConnectionString(cfg Config) string
	EngineVersion() string
	EngineIsAvailable() bool
	EngineDescription() string
}

// wrongKind produces the standard engine-kind-guard failure without ever
// touching the handle's engine-private state.
func wrongKind(expected, got Kind) error {
	return dqmerr.New(dqmerr.InvalidArgument,
		fmt.Sprintf("engine kind mismatch: expected %s, got %s", expected, got))
}

// Registry maps an EngineKind to its probed Adapter. Probing happens
// once at construction (NewRegistry); Get/Validate/Build never re-probe,
// per spec.md §4.1.
type Registry struct {
	adapters map[Kind]Adapter
	probed   map[Kind]bool
}

// NewRegistry probes every known adapter's availability once and returns
// a Registry reflecting the result. Adapters that fail their probe (or
// AI, which is always absent) are retained for BuildConnectionString/
// ValidateConnectionString but Get returns false for them.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[Kind]Adapter, len(adapters)),
		probed:   make(map[Kind]bool, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
		r.probed[a.Kind()] = a.EngineIsAvailable()
	}
	return r
}

// Get returns the adapter for kind if its probe succeeded at
// construction. AI always returns (nil, false).
func (r *Registry) Get(kind Kind) (Adapter, bool) {
	if kind == AI {
		return nil, false
	}
	a, ok := r.adapters[kind]
	if !ok || !r.probed[kind] {
		return nil, false
	}
	return a, true
}

// ValidateConnectionString requires s non-empty and delegates to the
// adapter; an adapter that failed its probe returns false without
// crashing (spec.md §4.1).
func (r *Registry) ValidateConnectionString(kind Kind, s string) bool {
	if s == "" {
		return false
	}
	a, ok := r.adapters[kind]
	if !ok {
		return false
	}
	return a.ValidateConnectionString(s)
}

// BuildConnectionString returns ConnectionString if set, else delegates
// to the adapter's engine-specific composition. Returns "" when kind has
// no registered adapter, or when the adapter has no composition of its
// own (AI).
func (r *Registry) BuildConnectionString(kind Kind, cfg Config) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	a, ok := r.adapters[kind]
	if !ok {
		return ""
	}
	return a.BuildConnectionString(cfg)
}

// Available reports the probe result recorded at registry construction,
// without re-probing.
func (r *Registry) Available(kind Kind) bool {
	return r.probed[kind]
}
