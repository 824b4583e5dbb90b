package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
)

// sqlAdapter is the shared implementation backing every database/sql
// driven engine adapter (PostgreSQL, MySQL, SQLite). Per-engine
// differences (DSN composition, driver name, descriptive strings) are
// supplied by the concrete wrapper in postgres.go/mysql.go/sqlite.go;
// this file carries the Prepare/Execute/HealthCheck logic common to all
// three, so each engine isn't reimplementing the same database/sql
// plumbing three times.
type sqlAdapter struct {
	kind        Kind
	driverName  string
	version     string
	description string
	available   bool // recorded once at adapter construction
	build       func(Config) string
	validate    func(string) bool
	// driverDSN composes the string actually handed to sql.Open, which
	// for some engines (MySQL) differs from BuildConnectionString's
	// display-form literal (spec.md §8 S1 fixes an exact "mysql://..."
	// form that go-sql-driver/mysql does not accept as a DSN). Nil means
	// BuildConnectionString doubles as the driver DSN (true for
	// PostgreSQL and SQLite).
	driverDSN func(Config) string
}

func (a *sqlAdapter) Kind() Kind { return a.kind }

func (a *sqlAdapter) EngineVersion() string     { return a.version }
func (a *sqlAdapter) EngineDescription() string { return a.description }
func (a *sqlAdapter) EngineIsAvailable() bool    { return a.available }

func (a *sqlAdapter) ValidateConnectionString(s string) bool {
	if s == "" || !a.available {
		return false
	}
	return a.validate(s)
}

func (a *sqlAdapter) BuildConnectionString(cfg Config) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	return a.build(cfg)
}

func (a *sqlAdapter) Connect(ctx context.Context, cfg Config) (Handle, error) {
	if !a.available {
		return nil, dqmerr.NewEngineError(a.kind.String(), "", "engine not available", nil)
	}
	dsn := a.BuildConnectionString(cfg)
	if cfg.ConnectionString == "" && a.driverDSN != nil {
		dsn = a.driverDSN(cfg)
	}
	db, err := sql.Open(a.driverName, dsn)
	if err != nil {
		return nil, dqmerr.NewEngineError(a.kind.String(), "", "open connection", err)
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(dialCtx); err != nil {
		db.Close()
		return nil, dqmerr.NewEngineError(a.kind.String(), "", "ping connection", err)
	}
	return &sqlHandle{kind: a.kind, db: db}, nil
}

func (a *sqlAdapter) Disconnect(h Handle) error {
	db, err := asSQL(a.kind, h)
	if err != nil {
		return err
	}
	_ = db.Close() // Disconnect always succeeds once engine-kind checks pass (spec.md §4.3)
	return nil
}

func (a *sqlAdapter) HealthCheck(ctx context.Context, h Handle) bool {
	db, err := asSQL(a.kind, h)
	if err != nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.PingContext(pingCtx) == nil
}

func (a *sqlAdapter) Prepare(ctx context.Context, h Handle, name, sqlText string) (*Stmt, error) {
	db, err := asSQL(a.kind, h)
	if err != nil {
		return nil, err
	}
	if name == "" || sqlText == "" {
		return nil, dqmerr.New(dqmerr.InvalidArgument, "prepare requires a non-empty name and sql")
	}
	native, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, dqmerr.NewEngineError(a.kind.String(), "", "prepare statement", err)
	}
	return &Stmt{Name: name, SQL: sqlText, Native: native}, nil
}

func (a *sqlAdapter) Unprepare(ctx context.Context, h Handle, stmt *Stmt) error {
	if _, err := asSQL(a.kind, h); err != nil {
		return err
	}
	if stmt == nil {
		return dqmerr.New(dqmerr.InvalidArgument, "unprepare requires a statement")
	}
	native, ok := stmt.Native.(*sql.Stmt)
	if !ok || native == nil {
		return nil
	}
	if err := native.Close(); err != nil {
		return dqmerr.NewEngineError(a.kind.String(), "", "finalize prepared statement", err)
	}
	return nil
}

// isQueryLike is the non-parsing heuristic used to decide whether
// Execute should return rows or an affected-row count — the DQM does
// not parse SQL (spec.md §1 Non-goals), so this only inspects the first
// keyword.
func isQueryLike(sqlText string) bool {
	trimmed := strings.TrimSpace(sqlText)
	upper := strings.ToUpper(trimmed)
	for _, kw := range []string{"SELECT", "SHOW", "DESCRIBE", "EXPLAIN", "WITH", "PRAGMA"} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

func (a *sqlAdapter) Execute(ctx context.Context, h Handle, stmt *Stmt, sqlText string, params []any) (Result, error) {
	db, err := asSQL(a.kind, h)
	if err != nil {
		return Result{}, err
	}

	var native *sql.Stmt
	if stmt != nil {
		native, _ = stmt.Native.(*sql.Stmt)
	}
	if sqlText == "" && native != nil {
		sqlText = stmt.SQL
	}
	if sqlText == "" {
		return Result{}, dqmerr.New(dqmerr.InvalidArgument, "execute requires sql text or a prepared statement")
	}

	if isQueryLike(sqlText) {
		var rows *sql.Rows
		if native != nil {
			rows, err = native.QueryContext(ctx, params...)
		} else {
			rows, err = db.QueryContext(ctx, sqlText, params...)
		}
		if err != nil {
			return Result{}, dqmerr.NewEngineError(a.kind.String(), "", "query", err)
		}
		defer rows.Close()
		return scanRows(rows)
	}

	var res sql.Result
	if native != nil {
		res, err = native.ExecContext(ctx, params...)
	} else {
		res, err = db.ExecContext(ctx, sqlText, params...)
	}
	if err != nil {
		return Result{}, dqmerr.NewEngineError(a.kind.String(), "", "exec", err)
	}
	affected, _ := res.RowsAffected()
	return Result{RowsAffected: affected}, nil
}

func scanRows(rows *sql.Rows) (Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("reading columns: %w", err)
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterating rows: %w", err)
	}
	return Result{Rows: out, Columns: cols}, nil
}
