package dbqueue

import (
	"context"

	"github.com/hydrogen-project/hydrogen/internal/migration"
)

// This file satisfies migration.Lead structurally — see
// internal/migration/run.go for the interface contract.

// AutoMigrationEnabled reports whether migrations are enabled for dq's
// database, from AppConfig.auto_migration.
func (dq *DatabaseQueue) AutoMigrationEnabled() bool { return dq.autoMigration }

// MigrationCache returns dq's migration cache (Lead only in practice;
// workers carry an unused empty cache).
func (dq *DatabaseQueue) MigrationCache() *migration.Cache { return dq.migrationCache }

// Counters returns the AVAILABLE/LOADED/APPLIED triple (spec.md §4.6).
// AVAILABLE always tracks the migration cache's contents.
func (dq *DatabaseQueue) Counters() (available, loaded, applied int64) {
	return dq.migrationCache.Available(), dq.loaded.Load(), dq.applied.Load()
}

// AcquireMigrationConnection takes dq's connection_lock without
// blocking (spec.md §4.4). Fails if the lock is held or there is no
// persistent connection.
func (dq *DatabaseQueue) AcquireMigrationConnection(label string) (func(), bool) {
	if !dq.connLock.TryLock() {
		return nil, false
	}
	dq.mu.Lock()
	hasConn := dq.persistentConn != nil
	dq.mu.Unlock()
	if !hasConn {
		dq.connLock.Unlock()
		return nil, false
	}
	return dq.connLock.Unlock, true
}

// LoadMigration ingests id's forward SQL via the persistent connection
// and advances the Loaded counter on success.
func (dq *DatabaseQueue) LoadMigration(ctx context.Context, id int64, forwardSQL string) error {
	if err := dq.execMigrationSQL(ctx, forwardSQL); err != nil {
		return err
	}
	dq.loaded.Store(id)
	return nil
}

// ApplyMigration executes id's forward SQL via the persistent
// connection and advances the Applied counter on success.
func (dq *DatabaseQueue) ApplyMigration(ctx context.Context, id int64, forwardSQL string) error {
	if err := dq.execMigrationSQL(ctx, forwardSQL); err != nil {
		return err
	}
	dq.applied.Store(id)
	return nil
}

func (dq *DatabaseQueue) execMigrationSQL(ctx context.Context, sqlText string) error {
	dq.mu.Lock()
	conn := dq.persistentConn
	dq.mu.Unlock()
	if conn == nil {
		return nil
	}
	conn.Lock()
	defer conn.Unlock()
	_, err := dq.adapter.Execute(ctx, conn.Native(), nil, sqlText, nil)
	return err
}
