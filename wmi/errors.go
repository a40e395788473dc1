package wmi

import "errors"

// Sentinel errors a caller checks with errors.Is, one per taxonomy row:
// teacher's own error style is a bare fmt.Errorf string (expr_builder.go:
// fmt.Errorf("different sizes")), but distinguishing fatal from
// recoverable failures programmatically needs distinct values, so this
// one surface upgrades past that style -- see DESIGN.md.
var (
	// ErrUnsupportedWeight is returned when the weight term contains a
	// leaf that is not a linear combination of reals and constants once
	// every ITE has been stripped away.
	ErrUnsupportedWeight = errors.New("wmi: unsupported weight term")

	// ErrEnumerationTimeout is returned when the configured deadline
	// elapses while a Stream is still producing models.
	ErrEnumerationTimeout = errors.New("wmi: enumeration deadline exceeded")

	// ErrNoEnumerator is returned by NewSolver when enum is nil.
	ErrNoEnumerator = errors.New("wmi: no enumerator configured")

	// ErrNoIntegrator is returned by NewSolver when integ is nil.
	ErrNoIntegrator = errors.New("wmi: no integrator configured")

	// ErrLeafUnderdetermined is returned when a model's label assignment
	// does not fully determine the weight's leaf term -- an internal
	// invariant violation of weight.Decompose's skeleton construction.
	ErrLeafUnderdetermined = errors.New("wmi: model does not fully determine the weight leaf")

	// ErrInternalInconsistency wraps invariant violations met while
	// turning a model into its region (a polytope that cannot be built
	// from the assignment, cyclic aliases, an alias substitution that is
	// not linear) and an integrator that ComputeMany cannot dispatch.
	// Errors raised inside the integrator are returned as it reports them.
	ErrInternalInconsistency = errors.New("wmi: internal inconsistency")

	// ErrCancelled wraps a context cancellation observed at a Solver
	// boundary, distinguishing "the caller gave up" from every other
	// failure kind above.
	ErrCancelled = errors.New("wmi: computation cancelled")

	// ErrPartialResult is returned alongside a best-effort sum when
	// Options.BestEffort is set and the deadline elapsed before every
	// model's contribution was integrated.
	ErrPartialResult = errors.New("wmi: partial result, deadline exceeded before every model was integrated")
)
