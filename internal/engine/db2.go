package engine

import (
	"context"

	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
)

// db2Adapter implements the DB2 engine kind structurally, but its probe
// permanently fails: DB2 connectivity requires IBM's proprietary CLI
// client library, which has no pure-Go or cgo-free driver in the
// ecosystem this pack draws from (see DESIGN.md). It still answers
// BuildConnectionString/ValidateConnectionString without a live driver,
// exercising the registry's "absent adapter must not crash callers"
// contract (spec.md §4.1) for a genuinely unavailable engine rather than
// a permanently-reserved one.
type db2Adapter struct{}

// NewDB2Adapter returns the DB2 adapter stub.
func NewDB2Adapter() Adapter { return &db2Adapter{} }

func (a *db2Adapter) Kind() Kind                { return DB2 }
func (a *db2Adapter) EngineVersion() string     { return "unavailable" }
func (a *db2Adapter) EngineDescription() string { return "DB2 engine adapter (requires IBM CLI driver, not present)" }
func (a *db2Adapter) EngineIsAvailable() bool    { return false }

func (a *db2Adapter) ValidateConnectionString(s string) bool { return s != "" }

// BuildConnectionString returns `database`, defaulting to the literal
// "SAMPLE" per spec.md §8 S3.
func (a *db2Adapter) BuildConnectionString(cfg Config) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	if cfg.Database != "" {
		return cfg.Database
	}
	return "SAMPLE"
}

func (a *db2Adapter) Connect(ctx context.Context, cfg Config) (Handle, error) {
	return nil, dqmerr.NewEngineError("db2", "", "engine not available", nil)
}
func (a *db2Adapter) Disconnect(h Handle) error { return wrongKind(DB2, DB2) }
func (a *db2Adapter) HealthCheck(ctx context.Context, h Handle) bool { return false }
func (a *db2Adapter) Prepare(ctx context.Context, h Handle, name, sql string) (*Stmt, error) {
	return nil, dqmerr.NewEngineError("db2", "", "engine not available", nil)
}
func (a *db2Adapter) Unprepare(ctx context.Context, h Handle, stmt *Stmt) error {
	return dqmerr.NewEngineError("db2", "", "engine not available", nil)
}
func (a *db2Adapter) Execute(ctx context.Context, h Handle, stmt *Stmt, sqlText string, params []any) (Result, error) {
	return Result{}, dqmerr.NewEngineError("db2", "", "engine not available", nil)
}
