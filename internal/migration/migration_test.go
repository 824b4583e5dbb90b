package migration

import (
	"context"
	"sync"
	"testing"
)

func TestDetermineActionTable(t *testing.T) {
	cases := []struct {
		available, loaded, applied int64
		want                       Action
	}{
		{0, 0, 0, None},
		{1000, 0, 0, Load},     // bootstrap
		{1500, 1000, 0, Load},  // loaded behind available past bootstrap
		{1500, 1500, 500, Apply},
		{1500, 1500, 1500, None},
	}
	for _, tc := range cases {
		got := DetermineAction(tc.available, tc.loaded, tc.applied)
		if got != tc.want {
			t.Errorf("DetermineAction(%d,%d,%d) = %v, want %v", tc.available, tc.loaded, tc.applied, got, tc.want)
		}
	}
}

func TestFindNextReverseMigrationToApply(t *testing.T) {
	c := NewCache()
	c.Add(1000, "fwd-1000", "rev-1000", nil)
	c.Add(1001, "fwd-1001", "", nil)

	if got := FindNextReverseMigrationToApply(c, 0); got != 0 {
		t.Errorf("applied=0 should yield 0, got %d", got)
	}
	if got := FindNextReverseMigrationToApply(nil, 5); got != 0 {
		t.Errorf("nil cache should yield 0, got %d", got)
	}
	if got := FindNextReverseMigrationToApply(c, 1001); got != 1000 {
		t.Errorf("got %d, want 1000 (1001 has no reverse)", got)
	}
}

// fakeLead is a minimal migration.Lead for exercising Run.
type fakeLead struct {
	mu               sync.Mutex
	autoMigration    bool
	isLead           bool
	cache            *Cache
	available        int64
	loaded           int64
	applied          int64
	locked           bool
	hasConn          bool
	loadCalls        int
	applyCalls       int
}

func (f *fakeLead) IsLead() bool                 { return f.isLead }
func (f *fakeLead) AutoMigrationEnabled() bool    { return f.autoMigration }
func (f *fakeLead) MigrationCache() *Cache        { return f.cache }
func (f *fakeLead) Counters() (int64, int64, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available, f.loaded, f.applied
}
func (f *fakeLead) AcquireMigrationConnection(label string) (func(), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked || !f.hasConn {
		return nil, false
	}
	f.locked = true
	return func() {
		f.mu.Lock()
		f.locked = false
		f.mu.Unlock()
	}, true
}
func (f *fakeLead) LoadMigration(ctx context.Context, id int64, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	f.loaded = id
	return nil
}
func (f *fakeLead) ApplyMigration(ctx context.Context, id int64, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	f.applied = id
	return nil
}

func TestRunConvergesToApplied(t *testing.T) {
	c := NewCache()
	c.Add(1000, "fwd", "", nil)
	c.Add(1001, "fwd", "", nil)

	lead := &fakeLead{
		autoMigration: true,
		isLead:        true,
		cache:         c,
		available:     1001,
		hasConn:       true,
	}

	// Counters() must reflect mutation across cycles, so wrap Run's
	// repeated Counters() calls against the live struct directly.
	err := Run(context.Background(), &liveLead{fakeLead: lead}, 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lead.loaded != 1001 || lead.applied != 1001 {
		t.Errorf("expected convergence to 1001/1001, got loaded=%d applied=%d", lead.loaded, lead.applied)
	}
}

// liveLead re-reads available from the cache each call, mirroring how a
// real Lead's AVAILABLE tracks the migration cache rather than a frozen
// snapshot.
type liveLead struct{ *fakeLead }

func (l *liveLead) Counters() (int64, int64, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Available(), l.loaded, l.applied
}

func TestRunSkippedWhenAutoMigrationDisabled(t *testing.T) {
	lead := &fakeLead{autoMigration: false, isLead: true}
	if err := Run(context.Background(), lead, 5); err != nil {
		t.Errorf("disabled auto-migration should trivially succeed, got %v", err)
	}
	if lead.loadCalls != 0 || lead.applyCalls != 0 {
		t.Error("no migration steps should run when disabled")
	}
}

func TestRunFailsForNonLead(t *testing.T) {
	lead := &fakeLead{autoMigration: true, isLead: false}
	if err := Run(context.Background(), lead, 5); err == nil {
		t.Error("expected failure for non-lead queue")
	}
}
