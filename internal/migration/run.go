package migration

import (
	"context"
	"log/slog"

	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
)

// Lead is the subset of a Lead DatabaseQueue's state the Migration
// Engine needs. Implemented structurally by dbqueue.DatabaseQueue —
// this package does not import dbqueue to avoid a cycle between the
// two (dbqueue imports migration for Cache, not the reverse).
type Lead interface {
	IsLead() bool
	AutoMigrationEnabled() bool
	MigrationCache() *Cache
	Counters() (available, loaded, applied int64)

	// AcquireMigrationConnection takes the Lead's connection_lock
	// without blocking; ok is false if the lock is held or no
	// persistent connection exists. release must be called exactly
	// once on success (spec.md §4.4).
	AcquireMigrationConnection(label string) (release func(), ok bool)

	// LoadMigration ingests id's forward SQL into the database's
	// migration table and advances the Loaded counter on success.
	LoadMigration(ctx context.Context, id int64, forwardSQL string) error
	// ApplyMigration executes id's forward SQL and advances the
	// Applied counter on success.
	ApplyMigration(ctx context.Context, id int64, forwardSQL string) error
}

// defaultMaxCycles bounds the loop when the caller passes <= 0.
const defaultMaxCycles = 16

// Run drives lead's migration counters toward convergence, recomputing
// the action each cycle and yielding to the heartbeat between cycles by
// releasing the connection lock (spec.md §4.6). Returns success
// trivially when auto_migration is disabled; fails for non-Lead queues.
func Run(ctx context.Context, lead Lead, maxCycles int) error {
	if !lead.AutoMigrationEnabled() {
		return nil
	}
	if !lead.IsLead() {
		return dqmerr.New(dqmerr.InvalidArgument, "run_migration called on a non-lead queue")
	}
	if maxCycles <= 0 {
		maxCycles = defaultMaxCycles
	}

	for cycle := 0; cycle < maxCycles; cycle++ {
		available, loaded, applied := lead.Counters()
		action := DetermineAction(available, loaded, applied)
		if action == None {
			return nil
		}

		release, ok := lead.AcquireMigrationConnection("migration")
		if !ok {
			return dqmerr.New(dqmerr.ResourceExhausted, "migration connection unavailable")
		}

		cache := lead.MigrationCache()
		err := applyOneStep(ctx, lead, cache, action, loaded, applied)
		release()

		if err != nil {
			slog.Warn("migration cycle failed", "action", action, "cycle", cycle, "err", err)
			return err
		}
	}
	return nil
}

// applyOneStep advances the counter for the given action to the next
// cached migration id above its current value.
func applyOneStep(ctx context.Context, lead Lead, cache *Cache, action Action, loaded, applied int64) error {
	nextAfter := func(current int64) (*Record, bool) {
		for _, id := range cache.sortedIDs() {
			if id > current {
				return cache.Get(id)
			}
		}
		return nil, false
	}
	switch action {
	case Load:
		rec, ok := nextAfter(loaded)
		if !ok {
			return dqmerr.New(dqmerr.NotFound, "no cached migration for load step")
		}
		return lead.LoadMigration(ctx, rec.ID, rec.Forward)
	case Apply:
		rec, ok := nextAfter(applied)
		if !ok {
			return dqmerr.New(dqmerr.NotFound, "no cached migration for apply step")
		}
		return lead.ApplyMigration(ctx, rec.ID, rec.Forward)
	default:
		return nil
	}
}
