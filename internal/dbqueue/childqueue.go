package dbqueue

import "context"

// SpawnChild creates and starts a new Child queue of class under dq,
// which must be the Lead (spec.md §4.4 "Spawning requires is_lead and
// valid database_name/connection_string/queue_type; any null input
// returns absent").
func (dq *DatabaseQueue) SpawnChild(ctx context.Context, class Class) *DatabaseQueue {
	if !dq.isLead || dq.DatabaseName == "" || dq.adapter == nil {
		return nil
	}
	dq.mu.Lock()
	if len(dq.childQueues) >= dq.maxChildQueues {
		dq.mu.Unlock()
		return nil
	}
	dq.mu.Unlock()

	child := New(Config{
		DatabaseName:      dq.DatabaseName,
		IsLead:            false,
		QueueType:         class,
		EngineKind:        dq.engineKind,
		Adapter:           dq.adapter,
		Pool:              dq.pool,
		HeartbeatInterval: dq.HeartbeatInterval,
		Process:           dq.process,
	})

	dq.mu.Lock()
	dq.childQueues = append(dq.childQueues, child)
	dq.childIdleStreak[child] = 0
	dq.mu.Unlock()

	go child.Run(ctx)
	return child
}

// ChildQueues returns a snapshot of dq's spawned children.
func (dq *DatabaseQueue) ChildQueues() []*DatabaseQueue {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	out := make([]*DatabaseQueue, len(dq.childQueues))
	copy(out, dq.childQueues)
	return out
}

// manageChildQueues implements the Lead-only scaling policy of spec.md
// §4.4: spawn a new child of class X when an existing X child is
// saturated and capacity remains; retire children that have sat idle
// for retirementCoolDownTicks consecutive ticks, never retiring the
// last child of a class.
func (dq *DatabaseQueue) manageChildQueues(ctx context.Context) {
	dq.mu.Lock()
	children := make([]*DatabaseQueue, len(dq.childQueues))
	copy(children, dq.childQueues)
	atCapacity := len(children) >= dq.maxChildQueues
	dq.mu.Unlock()

	classCounts := make(map[Class]int)
	for _, c := range children {
		classCounts[c.QueueType]++
	}

	for _, c := range children {
		if c.Depth() > 0 {
			dq.mu.Lock()
			dq.childIdleStreak[c] = 0
			dq.mu.Unlock()
			if !atCapacity && dq.isSaturated(c) {
				dq.SpawnChild(ctx, c.QueueType)
				atCapacity = true // re-evaluated capacity next tick
			}
			continue
		}

		dq.mu.Lock()
		dq.childIdleStreak[c]++
		streak := dq.childIdleStreak[c]
		dq.mu.Unlock()

		if streak >= retirementCoolDownTicks && classCounts[c.QueueType] > 1 {
			dq.retireChild(c)
			classCounts[c.QueueType]--
		}
	}
}

// isSaturated reports whether c's queue is effectively at capacity —
// i.e. backlogged — and therefore a candidate for another child of the
// same class. depth > 0 at an idle tick (the Lead only inspects
// children when it has nothing else to dequeue) is treated as
// saturation: any standing backlog means the existing worker of that
// class isn't draining it in time.
func (dq *DatabaseQueue) isSaturated(c *DatabaseQueue) bool {
	return c.Depth() > 0
}

// retireChild stops and removes c from dq's child set.
func (dq *DatabaseQueue) retireChild(c *DatabaseQueue) {
	c.RequestShutdown()

	dq.mu.Lock()
	defer dq.mu.Unlock()
	for i, existing := range dq.childQueues {
		if existing == c {
			dq.childQueues = append(dq.childQueues[:i], dq.childQueues[i+1:]...)
			break
		}
	}
	delete(dq.childIdleStreak, c)
}
