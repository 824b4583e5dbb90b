package queuemgr

import (
	"testing"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/dbqueue"
)

func TestAddRejectsNilAndDuplicates(t *testing.T) {
	m := New(4)
	if err := m.Add(nil); err == nil {
		t.Error("expected failure adding a nil queue")
	}

	q1 := dbqueue.New(dbqueue.Config{DatabaseName: "db1", IsLead: true, QueueType: dbqueue.Medium})
	if err := m.Add(q1); err != nil {
		t.Fatalf("add db1: %v", err)
	}
	q1dup := dbqueue.New(dbqueue.Config{DatabaseName: "db1", IsLead: true, QueueType: dbqueue.Medium})
	if err := m.Add(q1dup); err == nil {
		t.Error("expected failure on duplicate database_name")
	}
}

func TestGetByName(t *testing.T) {
	m := New(4)
	q1 := dbqueue.New(dbqueue.Config{DatabaseName: "db1", IsLead: true, QueueType: dbqueue.Medium})
	m.Add(q1)

	if got := m.Get("db1"); got != q1 {
		t.Error("Get should return the registered queue")
	}
	if got := m.Get("missing"); got != nil {
		t.Error("Get on an absent name should return nil")
	}
	if got := m.Get(""); got != nil {
		t.Error("Get on an empty name should return nil")
	}
}

func TestIncrementQueueSelectionBoundsChecked(t *testing.T) {
	m := New(2)
	q1 := dbqueue.New(dbqueue.Config{DatabaseName: "db1", IsLead: true, QueueType: dbqueue.Medium})
	m.Add(q1)

	m.IncrementQueueSelection(-1) // no-op
	m.IncrementQueueSelection(99) // no-op
	m.IncrementQueueSelection(0)

	if got := m.Aggregates().Submitted; got != 1 {
		t.Errorf("total submitted = %d, want 1", got)
	}
}

func TestInitStatsZeroesEverything(t *testing.T) {
	m := New(2)
	q1 := dbqueue.New(dbqueue.Config{DatabaseName: "db1", IsLead: true, QueueType: dbqueue.Medium})
	m.Add(q1)
	m.IncrementQueueSelection(0)
	m.RecordCompleted()
	m.RecordFailed()

	m.InitStats()

	agg := m.Aggregates()
	if agg.Submitted != 0 || agg.Completed != 0 || agg.Failed != 0 || agg.Timeouts != 0 {
		t.Errorf("expected zeroed aggregates, got %+v", agg)
	}
}

func TestFindMaxQueryAgeAcrossQueues(t *testing.T) {
	m := New(2)
	if got := m.FindMaxQueryAgeAcrossQueues(); got != 0 {
		t.Errorf("empty manager should report age 0, got %v", got)
	}

	q1 := dbqueue.New(dbqueue.Config{DatabaseName: "db1", IsLead: false, QueueType: dbqueue.Medium})
	m.Add(q1)
	q1.Submit(dbqueue.NewQuery("select 1", dbqueue.Medium))

	time.Sleep(5 * time.Millisecond)
	if got := m.FindMaxQueryAgeAcrossQueues(); got <= 0 {
		t.Errorf("expected positive max age, got %v", got)
	}
}
