package dbqueue

import (
	"context"
	"testing"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/connpool"
	"github.com/hydrogen-project/hydrogen/internal/engine"
)

const testHeartbeatUnit = time.Millisecond

type stubHandle struct{}

func (stubHandle) Kind() engine.Kind { return engine.SQLite }
func (stubHandle) Close() error      { return nil }

type stubAdapter struct{ healthy bool }

func (a *stubAdapter) Kind() engine.Kind { return engine.SQLite }
func (a *stubAdapter) Connect(ctx context.Context, cfg engine.Config) (engine.Handle, error) {
	return stubHandle{}, nil
}
func (a *stubAdapter) Disconnect(h engine.Handle) error { return nil }
func (a *stubAdapter) HealthCheck(ctx context.Context, h engine.Handle) bool {
	return a.healthy
}
func (a *stubAdapter) Prepare(ctx context.Context, h engine.Handle, name, sql string) (*engine.Stmt, error) {
	return &engine.Stmt{Name: name, SQL: sql}, nil
}
func (a *stubAdapter) Unprepare(ctx context.Context, h engine.Handle, stmt *engine.Stmt) error {
	return nil
}
func (a *stubAdapter) Execute(ctx context.Context, h engine.Handle, stmt *engine.Stmt, sqlText string, params []any) (engine.Result, error) {
	return engine.Result{RowsAffected: 1}, nil
}
func (a *stubAdapter) ValidateConnectionString(s string) bool         { return true }
func (a *stubAdapter) BuildConnectionString(cfg engine.Config) string { return "" }
func (a *stubAdapter) EngineVersion() string                          { return "stub" }
func (a *stubAdapter) EngineIsAvailable() bool                        { return true }
func (a *stubAdapter) EngineDescription() string                      { return "stub" }

// TestWorkerQueueConstruction covers spec.md §8 scenario S5.
func TestWorkerQueueConstruction(t *testing.T) {
	cases := []struct {
		class Class
		tag   string
	}{
		{Slow, "S"}, {Medium, "M"}, {Fast, "F"}, {Cache, "C"},
	}
	for _, tc := range cases {
		dq := New(Config{DatabaseName: "testdb", IsLead: false, QueueType: tc.class})
		if dq.isLead {
			t.Error("worker queue must have is_lead=false")
		}
		if dq.canSpawnQueues {
			t.Error("worker queue must have can_spawn_queues=false")
		}
		if dq.QueueType.String() != tc.class.String() {
			t.Errorf("queue_type = %q, want %q", dq.QueueType.String(), tc.class.String())
		}
		if dq.Tag != tc.tag {
			t.Errorf("tag = %q, want %q", dq.Tag, tc.tag)
		}
		if dq.QueueNumber != -1 {
			t.Errorf("queue_number = %d, want -1", dq.QueueNumber)
		}
	}
}

func TestLeadCanSpawnQueues(t *testing.T) {
	lead := New(Config{DatabaseName: "testdb", IsLead: true, QueueType: Medium, MaxChildQueues: 2})
	if !lead.canSpawnQueues {
		t.Error("lead queue must have can_spawn_queues=true")
	}
}

func TestMigrationReservationRequiresConnection(t *testing.T) {
	lead := New(Config{DatabaseName: "testdb", IsLead: true, QueueType: Medium, MaxChildQueues: 1})

	if _, ok := lead.AcquireMigrationConnection("test"); ok {
		t.Error("reservation must fail without a persistent connection")
	}

	lead.mu.Lock()
	lead.persistentConn = &connpool.Handle{}
	lead.mu.Unlock()

	release, ok := lead.AcquireMigrationConnection("test")
	if !ok {
		t.Fatal("reservation should succeed once a connection exists")
	}
	if _, ok := lead.AcquireMigrationConnection("test"); ok {
		t.Error("second concurrent reservation must fail while the first is held")
	}
	release()
	if _, ok := lead.AcquireMigrationConnection("test"); !ok {
		t.Error("reservation should succeed again after release")
	}
}

func TestSpawnChildRespectsMaxChildQueues(t *testing.T) {
	a := &stubAdapter{healthy: true}
	lead := New(Config{DatabaseName: "testdb", IsLead: true, QueueType: Medium, MaxChildQueues: 1, Adapter: a, HeartbeatInterval: 5 * testHeartbeatUnit})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c1 := lead.SpawnChild(ctx, Fast)
	if c1 == nil {
		t.Fatal("expected first spawn to succeed")
	}
	c1.RequestShutdown()

	if c2 := lead.SpawnChild(ctx, Fast); c2 != nil {
		t.Error("spawn beyond max_child_queues should return nil")
	}
}

func TestSpawnChildRejectsMissingInputs(t *testing.T) {
	lead := New(Config{DatabaseName: "", IsLead: true, QueueType: Medium, MaxChildQueues: 1})
	if c := lead.SpawnChild(context.Background(), Fast); c != nil {
		t.Error("spawn with empty database name must return nil")
	}
}

func TestCacheClassServesSyntheticResult(t *testing.T) {
	dq := New(Config{DatabaseName: "testdb", IsLead: false, QueueType: Cache})
	q := NewQuery("select 1", Cache)
	if err := defaultProcess(context.Background(), dq, q); err != nil {
		t.Fatalf("cache-class process: %v", err)
	}
	if q.Result == nil {
		t.Error("cache-class query should produce a synthetic result")
	}
}

func TestProcessRequiresQueryTemplate(t *testing.T) {
	dq := New(Config{DatabaseName: "testdb", IsLead: false, QueueType: Medium})
	q := &Query{}
	if err := defaultProcess(context.Background(), dq, q); err == nil {
		t.Error("empty query_template must fail")
	}
}
