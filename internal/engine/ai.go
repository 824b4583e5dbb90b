package engine

import (
	"context"

	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
)

// aiAdapter implements the reserved AI engine kind. It is permanently
// absent: spec.md §3 reserves the kind but states it is "always absent
// at runtime", and §9 Open Questions confirms it is reserved but never
// implemented.
type aiAdapter struct{}

// NewAIAdapter returns the permanently-unavailable AI adapter stub.
func NewAIAdapter() Adapter { return &aiAdapter{} }

func (a *aiAdapter) Kind() Kind                { return AI }
func (a *aiAdapter) EngineVersion() string     { return "reserved" }
func (a *aiAdapter) EngineDescription() string { return "AI engine kind (reserved, never implemented)" }
func (a *aiAdapter) EngineIsAvailable() bool    { return false }
func (a *aiAdapter) ValidateConnectionString(s string) bool { return false }
func (a *aiAdapter) BuildConnectionString(cfg Config) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	return ""
}
func (a *aiAdapter) Connect(ctx context.Context, cfg Config) (Handle, error) {
	return nil, dqmerr.NewEngineError("ai", "", "engine reserved, not implemented", nil)
}
func (a *aiAdapter) Disconnect(h Handle) error { return wrongKind(AI, AI) }
func (a *aiAdapter) HealthCheck(ctx context.Context, h Handle) bool { return false }
func (a *aiAdapter) Prepare(ctx context.Context, h Handle, name, sql string) (*Stmt, error) {
	return nil, dqmerr.NewEngineError("ai", "", "engine reserved, not implemented", nil)
}
func (a *aiAdapter) Unprepare(ctx context.Context, h Handle, stmt *Stmt) error {
	return dqmerr.NewEngineError("ai", "", "engine reserved, not implemented", nil)
}
func (a *aiAdapter) Execute(ctx context.Context, h Handle, stmt *Stmt, sqlText string, params []any) (Result, error) {
	return Result{}, dqmerr.NewEngineError("ai", "", "engine reserved, not implemented", nil)
}
