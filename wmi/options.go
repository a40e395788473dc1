package wmi

import "time"

// Options carries the solver-construction-time configuration spec.md §6
// calls out (enumerator/integrator choice is made by the enum/integ
// arguments passed to NewSolver directly; Options covers everything
// else): cache level, worker count, deadline, and best-effort mode.
// Grounded on teacher's constructor-argument pattern (NewExprBuilder(),
// NewZ3Solver(eb)) scaled up to a small option struct the way
// original_source/wmipa/integration/cache_integrator.py's
// CacheIntegrator.__init__(n_threads, stub_integrate) and rejection.py's
// RejectionIntegrator.__init__(n_samples, seed) do.
type Options struct {
	// Cache wraps the integrator in a fingerprint-keyed integrate.Cache
	// when true, so repeated assignments that resolve to the same
	// (polytope, polynomial) pair are only integrated once.
	Cache bool

	// Workers bounds how many base integrator calls run concurrently
	// inside ComputeMany's integrate.Dispatcher. 0 or negative means
	// unbounded.
	Workers int

	// Deadline, if nonzero, is applied to Compute/ComputeMany via
	// context.WithTimeout at the call boundary.
	Deadline time.Duration

	// BestEffort, when true and Deadline elapses mid-enumeration, makes
	// Compute return the partial sum accumulated so far wrapped in
	// ErrPartialResult instead of discarding it.
	BestEffort bool
}

// DefaultOptions returns the zero-configuration Options: no cache, no
// worker bound, no deadline, strict (non-best-effort) semantics.
func DefaultOptions() Options {
	return Options{}
}
