package engine

import (
	_ "modernc.org/sqlite"
)

// NewSQLiteAdapter returns the SQLite engine adapter, backed by the
// pure-Go modernc.org/sqlite driver (no cgo), matching the driver choice
// used by the GoClode example for its own embedded SQLite engine.
func NewSQLiteAdapter() Adapter {
	return &sqlAdapter{
		kind:        SQLite,
		driverName:  "sqlite",
		version:     "modernc.org/sqlite",
		description: "SQLite engine adapter",
		available:   true,
		build:       buildSQLiteDSN,
		validate:    validateSQLiteDSN,
	}
}

// buildSQLiteDSN returns the database path, defaulting to ":memory:"
// per spec.md §8 S2.
func buildSQLiteDSN(cfg Config) string {
	if cfg.Database != "" {
		return cfg.Database
	}
	return ":memory:"
}

func validateSQLiteDSN(s string) bool {
	return s != ""
}
