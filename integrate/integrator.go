// Package integrate dispatches (Polytope, Polynomial) pairs from the
// polytope package to a base integration backend, with caching and bounded
// parallelism layered on top -- the component original_source/wmipa's
// integration/ subpackage (cache_integrator.py, rejection.py,
// latte_integrator.py, volesti_integrator.py) plays.
package integrate

import (
	"context"
	"errors"
	"math/big"

	"github.com/masinag/gowmi/polytope"
)

// Problem is one (polytope, polynomial) pair to integrate, the unit
// integrate.Dispatcher fans jobs out over.
type Problem struct {
	Polytope   *polytope.Polytope
	Polynomial *polytope.Polynomial
}

// Integrator is the shared contract every integration backend satisfies.
type Integrator interface {
	Integrate(ctx context.Context, p *polytope.Polytope, poly *polytope.Polynomial) (*big.Rat, error)
	IntegrateBatch(ctx context.Context, probs []Problem) ([]*big.Rat, error)
}

// ErrUnbounded is returned when a polytope is unbounded along some real
// variable the polynomial actually depends on -- the integral diverges
// and has no finite rational value.
var ErrUnbounded = errors.New("integrate: polytope is unbounded along a variable the weight depends on")

// ErrEmptyPolytope signals a polytope with no feasible points; callers
// normally short-circuit on this via the fast path below rather than
// reaching a backend, but backends return it too for direct callers.
var ErrEmptyPolytope = errors.New("integrate: polytope is empty")

// FastPath evaluates the spec's ordered fast-path checks -- empty
// polytope, zero polynomial, axis-aligned box with constant integrand --
// before any base integrator or cache lookup runs. ok is false when none
// of the fast paths apply and the caller must fall through to a real
// integrator.
func FastPath(p *polytope.Polytope, poly *polytope.Polynomial) (result *big.Rat, ok bool, err error) {
	empty, err := p.IsEmpty()
	if err != nil {
		return nil, false, err
	}
	if empty {
		return big.NewRat(0, 1), true, nil
	}
	if poly.IsZero() {
		return big.NewRat(0, 1), true, nil
	}
	if c, isConst := poly.ConstantValue(); isConst && p.IsAxisAligned() {
		vol, volOK, err := BoxVolume(p)
		if err != nil {
			return nil, false, err
		}
		if volOK {
			return new(big.Rat).Mul(c, vol), true, nil
		}
	}
	return nil, false, nil
}

// BoxVolume computes the Lebesgue volume of an axis-aligned polytope
// (product of per-variable interval widths), grounded on
// original_source/wmipa/integration/rejection.py's bounding-box
// computation generalized here to a closed form when the box *is* the
// polytope. ok is false if some axis is unbounded -- volume is then
// infinite and the caller's ConstantValue fast path cannot apply (a
// nonzero constant integrand over an unbounded box has no finite
// integral).
func BoxVolume(p *polytope.Polytope) (*big.Rat, bool, error) {
	bounds := p.Bounds()
	vol := big.NewRat(1, 1)
	for _, iv := range bounds {
		w := iv.Width()
		if w == nil {
			return nil, false, nil
		}
		vol.Mul(vol, w)
	}
	return vol, true, nil
}
