package engine

import "database/sql"

// sqlHandle is the Handle implementation shared by every database/sql
// backed adapter (PostgreSQL, MySQL, SQLite). DB2 and AI never produce a
// live handle since their probes always fail.
type sqlHandle struct {
	kind Kind
	db   *sql.DB
}

func (h *sqlHandle) Kind() Kind    { return h.kind }
func (h *sqlHandle) Close() error  { return h.db.Close() }

// asSQL extracts the underlying *sql.DB after checking the engine-kind
// guard (spec.md §8 property 1): a mismatched kind fails before the
// handle's private state (the *sql.DB) is ever touched.
func asSQL(expected Kind, h Handle) (*sql.DB, error) {
	if h == nil {
		return nil, wrongKind(expected, expected)
	}
	if h.Kind() != expected {
		return nil, wrongKind(expected, h.Kind())
	}
	sh, ok := h.(*sqlHandle)
	if !ok {
		return nil, wrongKind(expected, h.Kind())
	}
	return sh.db, nil
}
