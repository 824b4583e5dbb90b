package engine

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// NewMySQLAdapter returns the MySQL engine adapter, backed by
// github.com/go-sql-driver/mysql.
func NewMySQLAdapter() Adapter {
	return &sqlAdapter{
		kind:        MySQL,
		driverName:  "mysql",
		version:     "go-sql-driver/mysql",
		description: "MySQL engine adapter",
		available:   true,
		build:       buildMySQLDSN,
		validate:    validateMySQLDSN,
		driverDSN:   mysqlDriverDSN,
	}
}

// mysqlDriverDSN builds the go-sql-driver/mysql DSN form
// ("user:pass@tcp(host:port)/db"), which differs from the
// "mysql://..." display string BuildConnectionString returns.
func mysqlDriverDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cfg.Username, cfg.Password, host, port, cfg.Database)
}

// buildMySQLDSN composes a mysql:// URL from decomposed fields. Defaults:
// host=localhost, port=3306, empty user/pass/db. Spec.md §8 S1 fixes the
// exact literal output for each case.
func buildMySQLDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("mysql://%s:%s@%s:%d/%s", cfg.Username, cfg.Password, host, port, cfg.Database)
}

func validateMySQLDSN(s string) bool {
	return s != ""
}
