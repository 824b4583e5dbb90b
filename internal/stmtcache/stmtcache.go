// Package stmtcache implements the Prepared-Statement Cache (C2): a
// bounded, per-connection cache of named prepared statements with LRU
// eviction, as specified in spec.md §4.2.
package stmtcache

import (
	"context"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
	"github.com/hydrogen-project/hydrogen/internal/engine"
)

// Entry is a cached prepared statement (spec.md §3 PreparedStatement).
type Entry struct {
	Name       string
	SQLText    string
	UsageCount uint64
	Stmt       *engine.Stmt
	CreatedAt  time.Time
	lru        uint64
}

// Cache is the bounded, LRU-evicting cache attached to one
// connpool.Handle. It is not safe for concurrent use on its own — the
// owning connection handle's mutex serializes every call, per spec.md
// §5 ("Each ConnectionHandle carries its own mutex").
type Cache struct {
	capacity int
	entries  map[string]*Entry
	ticket   uint64 // monotonically increasing LRU ticket source
}

// New returns a Cache bounded by capacity, clamped to a default of
// 1000 when capacity <= 0.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{capacity: capacity, entries: make(map[string]*Entry, capacity)}
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// Lookup returns the entry for name, if cached.
func (c *Cache) Lookup(name string) (*Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// nextTicket issues a strictly increasing LRU ticket (spec.md §4.2
// "LRU counters are strictly monotonic per connection and never
// reused").
func (c *Cache) nextTicket() uint64 {
	c.ticket++
	return c.ticket
}

// Prepare adds sql under name to the cache via adapter.Prepare. If
// addToCache is true and the cache is full, the minimum-LRU entry is
// evicted (and finalized via the adapter) before insertion. Adding a
// name that's already cached is idempotent: it refreshes the LRU ticket
// without incrementing the count, and returns the existing entry.
func (c *Cache) Prepare(ctx context.Context, a engine.Adapter, h engine.Handle, name, sqlText string, addToCache bool) (*Entry, error) {
	if h == nil || name == "" || sqlText == "" {
		return nil, dqmerr.New(dqmerr.InvalidArgument, "prepare requires a connection, name, and sql")
	}

	if existing, ok := c.entries[name]; ok {
		existing.lru = c.nextTicket()
		return existing, nil
	}

	if addToCache && len(c.entries) >= c.capacity {
		if err := c.evictLRU(ctx, a, h); err != nil {
			return nil, err
		}
	}

	stmt, err := a.Prepare(ctx, h, name, sqlText)
	if err != nil {
		// Engine-level prepare failure: nothing was added, nothing to
		// free (spec.md §4.2).
		return nil, err
	}

	e := &Entry{
		Name:      name,
		SQLText:   sqlText,
		Stmt:      stmt,
		CreatedAt: time.Now(),
		lru:       c.nextTicket(),
	}
	if addToCache {
		c.entries[name] = e
	}
	return e, nil
}

// Execute runs stmt via the adapter, bumping its usage count and LRU
// ticket.
func (c *Cache) Execute(ctx context.Context, a engine.Adapter, h engine.Handle, e *Entry, params []any) (engine.Result, error) {
	if e == nil {
		return engine.Result{}, dqmerr.New(dqmerr.InvalidArgument, "execute requires a prepared entry")
	}
	res, err := a.Execute(ctx, h, e.Stmt, e.SQLText, params)
	if err != nil {
		return engine.Result{}, err
	}
	e.UsageCount++
	e.lru = c.nextTicket()
	return res, nil
}

// Unprepare removes name from the cache and finalizes its engine-private
// state.
func (c *Cache) Unprepare(ctx context.Context, a engine.Adapter, h engine.Handle, name string) error {
	e, ok := c.entries[name]
	if !ok {
		return dqmerr.New(dqmerr.NotFound, "no such prepared statement: "+name)
	}
	if err := a.Unprepare(ctx, h, e.Stmt); err != nil {
		return err
	}
	delete(c.entries, name)
	return nil
}

// evictLRU removes and finalizes the entry with the minimum LRU ticket.
func (c *Cache) evictLRU(ctx context.Context, a engine.Adapter, h engine.Handle) error {
	var victim *Entry
	for _, e := range c.entries {
		if victim == nil || e.lru < victim.lru {
			victim = e
		}
	}
	if victim == nil {
		return dqmerr.New(dqmerr.ResourceExhausted, "cache full but no entry to evict")
	}
	if err := a.Unprepare(ctx, h, victim.Stmt); err != nil {
		return err
	}
	delete(c.entries, victim.Name)
	return nil
}
