package lifecycle

import "sync/atomic"

var draining atomic.Bool

// SetDraining marks the process as draining. Set on SIGTERM/SIGINT; the
// health handler answers 503 shutting-down while true so load balancers
// stop routing new trend lookups here.
func SetDraining(v bool) {
	draining.Store(v)
}

// IsDraining reports whether the process is shutting down.
func IsDraining() bool {
	return draining.Load()
}
