// Package readiness implements the Launch/Landing Gate (C10): the
// two-phase startup/shutdown handshake that gates DQM lifecycle against
// the surrounding subsystem registry, per spec.md §4.8.
package readiness

// Subsystem names, in the fixed order spec.md §4.8 mandates for the
// startup pass.
const (
	Registry   = "Registry"
	Payload    = "Payload"
	Threads    = "Threads"
	Network    = "Network"
	Database   = "Database"
	WebServer  = "WebServer"
	WebSocket  = "WebSocket"
	Terminal   = "Terminal"
	MDNS       = "mDNS"
	MailRelay  = "Mail Relay"
	OIDC       = "OIDC"
	Notify     = "Notify"
	Resources  = "Resources"
	Logging    = "Logging"
	Print      = "Print"
)

// StartupOrder is the fixed subsystem processing order for Launch.
var StartupOrder = []string{
	Registry, Payload, Threads, Network, Database, WebServer, WebSocket,
	Terminal, MDNS, MailRelay, OIDC, Notify, Resources, Logging, Print,
}

// LaunchReadiness is one subsystem's readiness report (spec.md §4.8).
// Messages follow the Go/No-Go/Decide lexical convention rendered by
// GoMessage/NoGoMessage/DecideMessage; the original C-style
// NULL-terminated string array is represented here as a plain Go slice
// — the length is carried by the slice header, so no sentinel is
// needed.
type LaunchReadiness struct {
	Subsystem string
	Ready     bool
	Messages  []string
}

// GoMessage, NoGoMessage, and DecideMessage render the fixed lexical
// convention of spec.md §4.8, verified byte-for-byte by tests.
func GoMessage(text string) string     { return "  Go: " + text }
func NoGoMessage(text string) string   { return "  No-Go: " + text }
func DecideMessage(text string) string { return "  Decide: " + text }

// NewLaunchReadiness builds a LaunchReadiness whose Messages carries
// subsystem as its first element, per spec.md §8 S6's
// [SR_WEBSERVER, "  Go: ...", ...] shape and Testable Property 7, with
// lines (typically built from GoMessage/NoGoMessage/DecideMessage)
// following it in order.
func NewLaunchReadiness(subsystem string, ready bool, lines ...string) LaunchReadiness {
	messages := make([]string, 0, len(lines)+1)
	messages = append(messages, subsystem)
	messages = append(messages, lines...)
	return LaunchReadiness{Subsystem: subsystem, Ready: ready, Messages: messages}
}

// ReadinessResults aggregates every subsystem's LaunchReadiness.
type ReadinessResults struct {
	PerSubsystem map[string]LaunchReadiness
	TotalGo      int
	TotalNoGo    int
	AnyReady     bool
}

// CheckFunc probes one subsystem's readiness.
type CheckFunc func() LaunchReadiness

// Gate coordinates the launch/landing handshake across registered
// subsystem checks.
type Gate struct {
	checks  map[string]CheckFunc
	landers map[string]func() bool
}

// NewGate returns an empty Gate.
func NewGate() *Gate {
	return &Gate{
		checks:  make(map[string]CheckFunc),
		landers: make(map[string]func() bool),
	}
}

// Register associates a readiness check (and, optionally, a landing
// check) with subsystem. Both may be nil — an unregistered subsystem is
// simply skipped by Launch/Land.
func (g *Gate) Register(subsystem string, check CheckFunc, canLand func() bool) {
	if check != nil {
		g.checks[subsystem] = check
	}
	if canLand != nil {
		g.landers[subsystem] = canLand
	}
}

// Launch runs every registered subsystem's readiness check in the
// fixed spec.md §4.8 order. A subsystem reporting ready=false prevents
// its own launch but never aborts the gate.
func (g *Gate) Launch() ReadinessResults {
	results := ReadinessResults{PerSubsystem: make(map[string]LaunchReadiness, len(StartupOrder))}

	for _, name := range StartupOrder {
		check, ok := g.checks[name]
		if !ok {
			continue
		}
		r := check()
		results.PerSubsystem[name] = r
		if r.Ready {
			results.TotalGo++
			results.AnyReady = true
		} else {
			results.TotalNoGo++
		}
	}
	return results
}

// HandleLandingPlan returns true iff results reports any_ready; empty
// or all-false results return false (spec.md §4.8).
func HandleLandingPlan(results ReadinessResults) bool {
	return results.AnyReady
}

// DependentsActive reports whether any dependent of subsystem is still
// active, consulting the registry's set of currently-active subsystem
// names.
type DependentsActive func(subsystem string, active map[string]bool) bool

// CheckDependentStates conservatively returns can_land = true only when
// every dependent of name is inactive (spec.md §4.8).
func CheckDependentStates(name string, active map[string]bool, dependents map[string][]string) bool {
	for _, dep := range dependents[name] {
		if active[dep] {
			return false
		}
	}
	return true
}

// Land runs every registered subsystem's landing check in reverse
// startup order, the mirrored "landing" pass of spec.md §4.8.
func (g *Gate) Land() map[string]bool {
	out := make(map[string]bool, len(g.landers))
	for i := len(StartupOrder) - 1; i >= 0; i-- {
		name := StartupOrder[i]
		canLand, ok := g.landers[name]
		if !ok {
			continue
		}
		out[name] = canLand()
	}
	return out
}
