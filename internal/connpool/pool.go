package connpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hydrogen-project/hydrogen/internal/dqmerr"
	"github.com/hydrogen-project/hydrogen/internal/engine"
)

// Stats reports a Pool's idle/busy accounting (spec.md §4.3).
type Stats struct {
	Designator string
	Engine     engine.Kind
	Idle       int
	Busy       int
	Total      int
	MinConns   int
	MaxConns   int
	Waiting    int
	Exhausted  int64
}

// Pool manages connections for one database designator: idle/busy
// accounting with a background idle reap loop and idle-deque reuse on
// Acquire. Acquire never blocks; it either returns a handle or
// ResourceExhausted immediately.
type Pool struct {
	mu sync.Mutex

	designator string
	kind       engine.Kind
	adapter    engine.Adapter
	cfg        engine.Config

	minConns    int
	maxConns    int
	idleTimeout time.Duration
	cacheSize   int

	idle      []*Handle
	busy      map[*Handle]struct{}
	total     int
	waiting   int
	exhausted int64

	closed bool
	stopCh chan struct{}
}

// Options configures a Pool at construction.
type Options struct {
	MinConns    int
	MaxConns    int
	IdleTimeout time.Duration
	CacheSize   int
}

func (o Options) withDefaults() Options {
	if o.MaxConns <= 0 {
		o.MaxConns = 10
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	return o
}

// NewPool constructs a Pool bound to designator against adapter/cfg,
// starting its background idle reaper and (if MinConns > 0) warming up
// the configured minimum connection count.
func NewPool(designator string, kind engine.Kind, adapter engine.Adapter, cfg engine.Config, opts Options) *Pool {
	opts = opts.withDefaults()
	p := &Pool{
		designator:  designator,
		kind:        kind,
		adapter:     adapter,
		cfg:         cfg,
		minConns:    opts.MinConns,
		maxConns:    opts.MaxConns,
		idleTimeout: opts.IdleTimeout,
		cacheSize:   opts.CacheSize,
		busy:        make(map[*Handle]struct{}),
		stopCh:      make(chan struct{}),
	}

	go p.reapLoop()
	if p.minConns > 0 {
		go p.warmUp()
	}
	return p
}

func (p *Pool) dial(ctx context.Context) (*Handle, error) {
	native, err := p.adapter.Connect(ctx, p.cfg)
	if err != nil {
		return nil, err
	}
	return NewHandle(native, p.cacheSize), nil
}

func (p *Pool) warmUp() {
	for i := 0; i < p.minConns; i++ {
		p.mu.Lock()
		if p.closed || p.total >= p.minConns {
			p.mu.Unlock()
			return
		}
		p.total++
		p.mu.Unlock()

		h, err := p.dial(context.Background())
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			slog.Warn("pool warm-up connection failed", "designator", p.designator, "index", i+1, "err", err)
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			h.Close()
			return
		}
		p.idle = append(p.idle, h)
		p.mu.Unlock()
	}
	slog.Info("pool pre-warmed", "designator", p.designator, "count", p.minConns)
}

// Acquire returns an idle connection, dialing a new one if under
// maxConns. If no idle handle is available and the pool is already at
// maxConns, Acquire returns ResourceExhausted immediately rather than
// blocking — spec.md §4.3 step 4 specifies no blocking wait in the
// current design (spec.md §8 property 3: Busy+Idle never exceeds
// MaxConns).
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, dqmerr.New(dqmerr.Shutdown, fmt.Sprintf("pool closed for %s", p.designator))
	}

	for len(p.idle) > 0 {
		h := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if h.IdleDuration() > p.idleTimeout {
			p.total--
			p.mu.Unlock()
			h.Close()
			p.mu.Lock()
			continue
		}

		h.busy = true
		h.Touch()
		p.busy[h] = struct{}{}
		p.mu.Unlock()
		return h, nil
	}

	if p.total < p.maxConns {
		p.total++
		p.mu.Unlock()

		h, err := p.dial(ctx)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, dqmerr.Wrap(dqmerr.EngineError, fmt.Sprintf("dial %s", p.designator), err)
		}
		h.busy = true
		h.Touch()
		p.mu.Lock()
		p.busy[h] = struct{}{}
		p.mu.Unlock()
		return h, nil
	}

	p.exhausted++
	p.mu.Unlock()
	return nil, dqmerr.New(dqmerr.ResourceExhausted, fmt.Sprintf("pool exhausted for %s", p.designator))
}

// Release returns h to the idle set. It requires h to belong to the
// pool's busy set; releasing an unknown or already-released handle is
// a no-op that reports false and leaves pool state unchanged, so a
// double-release can never duplicate a handle into idle.
func (p *Pool) Release(h *Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.busy[h]; !ok {
		return false
	}
	delete(p.busy, h)
	h.busy = false

	if p.closed {
		h.Close()
		p.total--
		return true
	}

	h.Touch()
	p.idle = append(p.idle, h)
	return true
}

// Discard closes h and removes it from the pool's accounting entirely,
// instead of returning it to idle — used when a handle fails a health
// check and must not be reused (spec.md §4.5). Like Release, it is a
// no-op on a handle the pool does not currently consider busy.
func (p *Pool) Discard(h *Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.busy[h]; !ok {
		return false
	}
	delete(p.busy, h)
	h.Close()
	p.total--
	return true
}

// Stats snapshots the pool's current idle/busy accounting.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Designator: p.designator,
		Engine:     p.kind,
		Idle:       len(p.idle),
		Busy:       len(p.busy),
		Total:      p.total,
		MinConns:   p.minConns,
		MaxConns:   p.maxConns,
		Waiting:    p.waiting,
		Exhausted:  p.exhausted,
	}
}

// Close drains idle connections and marks the pool closed; busy
// connections are released to Close as Release is called on them.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, h := range p.idle {
		h.Close()
		p.total--
	}
	p.idle = nil
	close(p.stopCh)
	p.mu.Unlock()
}

func (p *Pool) reapLoop() {
	ticker := time.NewTicker(p.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

func (p *Pool) reapIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	kept := p.idle[:0]
	for _, h := range p.idle {
		if p.total > p.minConns && h.IdleDuration() > p.idleTimeout {
			h.Close()
			p.total--
			continue
		}
		kept = append(kept, h)
	}
	p.idle = kept
}
