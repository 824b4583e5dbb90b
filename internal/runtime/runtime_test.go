package runtime

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/readiness"
)

func writeTempConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestNewWiresConfiguredDatabases(t *testing.T) {
	path := writeTempConfig(t, `
databases:
  - name: primary
    engine: sqlite
    connection_string: ":memory:"
    workers:
      heartbeat_interval_seconds: 1
`)

	rt, err := New(Options{ConfigPath: path, APIPort: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(rt.leads) != 1 {
		t.Fatalf("expected 1 wired lead, got %d", len(rt.leads))
	}
	if got := rt.queues.Get("primary"); got == nil {
		t.Fatal("expected queuemgr to hold the primary database")
	}
}

func TestNewRejectsUnavailableEngine(t *testing.T) {
	path := writeTempConfig(t, `
databases:
  - name: primary
    engine: db2
    connection_string: "whatever"
`)

	if _, err := New(Options{ConfigPath: path}); err == nil {
		t.Error("expected wiring failure for an always-unavailable engine")
	}
}

func TestReadinessReportsGoWhenEnginesAvailable(t *testing.T) {
	path := writeTempConfig(t, `
databases:
  - name: primary
    engine: sqlite
    connection_string: ":memory:"
`)

	rt, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results := rt.gate.Launch()
	if !results.PerSubsystem[readiness.Database].Ready {
		t.Error("expected Database subsystem to report ready with sqlite configured")
	}
}

func TestStartAndStop(t *testing.T) {
	path := writeTempConfig(t, `
databases:
  - name: primary
    engine: sqlite
    connection_string: ":memory:"
    workers:
      heartbeat_interval_seconds: 1
`)

	rt, err := New(Options{ConfigPath: path, APIPort: 18099, StatsInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := rt.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := rt.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
