// Package dbqueue implements the Query Queue and per-database
// Lead/Worker queue topology (C5/C6), including the embedded heartbeat
// cadence (C8) and Lead-only child-queue auto-scaling and migration
// reservation, per spec.md §4.4/§4.5.
package dbqueue

// Class is the closed queue-class tag set (spec.md §3 QueueClass).
type Class int

const (
	Slow Class = iota
	Medium
	Fast
	Cache
)

// String returns the lowercase, case-sensitive persisted form.
func (c Class) String() string {
	switch c {
	case Slow:
		return "slow"
	case Medium:
		return "medium"
	case Fast:
		return "fast"
	case Cache:
		return "cache"
	default:
		return "medium"
	}
}

// Tag returns the single-letter log tag for c.
func (c Class) Tag() string {
	switch c {
	case Slow:
		return "S"
	case Medium:
		return "M"
	case Fast:
		return "F"
	case Cache:
		return "C"
	default:
		return "M"
	}
}

// ParseClass parses the persisted string form. Unknown, empty, or
// unrecognized strings parse to Medium (spec.md §8 property 5 — the
// queue-type parse round-trip).
func ParseClass(s string) Class {
	switch s {
	case "slow":
		return Slow
	case "medium":
		return Medium
	case "fast":
		return Fast
	case "cache":
		return Cache
	default:
		return Medium
	}
}
