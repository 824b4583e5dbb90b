package stmtcache

import (
	"context"
	"testing"

	"github.com/hydrogen-project/hydrogen/internal/engine"
)

// fakeAdapter is a minimal in-memory engine.Adapter stand-in so the
// cache can be tested without a real database driver.
type fakeAdapter struct {
	prepares   int
	unprepares int
}

func (f *fakeAdapter) Kind() engine.Kind { return engine.SQLite }
func (f *fakeAdapter) Connect(ctx context.Context, cfg engine.Config) (engine.Handle, error) {
	return nil, nil
}
func (f *fakeAdapter) Disconnect(h engine.Handle) error               { return nil }
func (f *fakeAdapter) HealthCheck(ctx context.Context, h engine.Handle) bool { return true }
func (f *fakeAdapter) Prepare(ctx context.Context, h engine.Handle, name, sql string) (*engine.Stmt, error) {
	f.prepares++
	return &engine.Stmt{Name: name, SQL: sql}, nil
}
func (f *fakeAdapter) Unprepare(ctx context.Context, h engine.Handle, stmt *engine.Stmt) error {
	f.unprepares++
	return nil
}
func (f *fakeAdapter) Execute(ctx context.Context, h engine.Handle, stmt *engine.Stmt, sqlText string, params []any) (engine.Result, error) {
	return engine.Result{RowsAffected: 1}, nil
}
func (f *fakeAdapter) ValidateConnectionString(s string) bool  { return true }
func (f *fakeAdapter) BuildConnectionString(cfg engine.Config) string { return "" }
func (f *fakeAdapter) EngineVersion() string                   { return "fake" }
func (f *fakeAdapter) EngineIsAvailable() bool                  { return true }
func (f *fakeAdapter) EngineDescription() string                { return "fake" }

type fakeHandle struct{}

func (fakeHandle) Kind() engine.Kind { return engine.SQLite }
func (fakeHandle) Close() error      { return nil }

// TestCacheMonotonicTicket covers spec.md §8 property 2: LRU tickets
// are strictly increasing and never reused.
func TestCacheMonotonicTicket(t *testing.T) {
	c := New(10)
	a := &fakeAdapter{}
	h := fakeHandle{}
	ctx := context.Background()

	e1, err := c.Prepare(ctx, a, h, "s1", "select 1", true)
	if err != nil {
		t.Fatalf("prepare s1: %v", err)
	}
	e2, err := c.Prepare(ctx, a, h, "s2", "select 2", true)
	if err != nil {
		t.Fatalf("prepare s2: %v", err)
	}
	if e2.lru <= e1.lru {
		t.Errorf("ticket did not increase: e1=%d e2=%d", e1.lru, e2.lru)
	}

	before := e1.lru
	if _, err := c.Prepare(ctx, a, h, "s1", "select 1", true); err != nil {
		t.Fatalf("re-prepare s1: %v", err)
	}
	if e1.lru <= before {
		t.Error("re-preparing a cached name must still bump its ticket")
	}
}

// TestCacheDuplicateNameIsIdempotent covers the add-of-existing-name
// contract: no duplicate adapter.Prepare call, same entry returned.
func TestCacheDuplicateNameIsIdempotent(t *testing.T) {
	c := New(10)
	a := &fakeAdapter{}
	h := fakeHandle{}
	ctx := context.Background()

	first, _ := c.Prepare(ctx, a, h, "s1", "select 1", true)
	second, _ := c.Prepare(ctx, a, h, "s1", "select 1", true)

	if first != second {
		t.Error("duplicate name must return the same cached entry")
	}
	if a.prepares != 1 {
		t.Errorf("adapter.Prepare should be called once, got %d", a.prepares)
	}
	if c.Len() != 1 {
		t.Errorf("cache should hold exactly one entry, got %d", c.Len())
	}
}

// TestCacheEvictsMinimumLRUWhenFull exercises bounded eviction.
func TestCacheEvictsMinimumLRUWhenFull(t *testing.T) {
	c := New(2)
	a := &fakeAdapter{}
	h := fakeHandle{}
	ctx := context.Background()

	c.Prepare(ctx, a, h, "s1", "select 1", true)
	c.Prepare(ctx, a, h, "s2", "select 2", true)
	// touch s2 so s1 becomes the minimum-LRU entry
	c.Prepare(ctx, a, h, "s2", "select 2", true)

	if _, err := c.Prepare(ctx, a, h, "s3", "select 3", true); err != nil {
		t.Fatalf("prepare s3: %v", err)
	}

	if _, ok := c.Lookup("s1"); ok {
		t.Error("s1 should have been evicted as the least-recently-used entry")
	}
	if _, ok := c.Lookup("s2"); !ok {
		t.Error("s2 should have survived eviction")
	}
	if a.unprepares != 1 {
		t.Errorf("expected exactly one eviction, got %d unprepare calls", a.unprepares)
	}
	if c.Len() != 2 {
		t.Errorf("cache should stay at capacity, got %d", c.Len())
	}
}

func TestUnprepareRemovesEntry(t *testing.T) {
	c := New(10)
	a := &fakeAdapter{}
	h := fakeHandle{}
	ctx := context.Background()

	c.Prepare(ctx, a, h, "s1", "select 1", true)
	if err := c.Unprepare(ctx, a, h, "s1"); err != nil {
		t.Fatalf("unprepare: %v", err)
	}
	if _, ok := c.Lookup("s1"); ok {
		t.Error("entry should be gone after Unprepare")
	}
	if err := c.Unprepare(ctx, a, h, "s1"); err == nil {
		t.Error("unpreparing a missing name should fail")
	}
}
