package engine

import (
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgreSQLAdapter returns the PostgreSQL engine adapter, backed by
// github.com/lib/pq. Always available: the driver is statically linked,
// so there is no shared-library probe to fail (spec.md Design Notes §9
// replaces runtime symbol lookup with a static, build-time registry).
func NewPostgreSQLAdapter() Adapter {
	return &sqlAdapter{
		kind:        PostgreSQL,
		driverName:  "postgres",
		version:     "lib/pq (PostgreSQL wire protocol 3.0)",
		description: "PostgreSQL engine adapter",
		available:   true,
		build:       buildPostgresDSN,
		validate:    validatePostgresDSN,
	}
}

// buildPostgresDSN composes a postgres:// URL from decomposed fields.
// Defaults: host=localhost, port=5432, empty user/pass/db.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Username, cfg.Password, host, port, cfg.Database)
}

func validatePostgresDSN(s string) bool {
	return s != ""
}
