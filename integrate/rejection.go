package integrate

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"

	"github.com/masinag/gowmi/polytope"
)

// RejectionIntegrator estimates Integral_{p} poly dx by uniform rejection
// sampling over p's axis-aligned bounding box, a direct port of
// original_source/wmipa/integration/rejection.py's integrate: sample
// uniformly in the box, keep the samples landing inside p, and scale the
// box's volume times the mean sampled integrand value by the
// accepted/total ratio. Uses math/rand/v2 (no RNG library appears
// anywhere in the retrieved pack; see DESIGN.md) seeded per call for
// spec-mandated reproducibility.
type RejectionIntegrator struct {
	Samples int
	Seed    uint64
}

func NewRejectionIntegrator(samples int, seed uint64) *RejectionIntegrator {
	return &RejectionIntegrator{Samples: samples, Seed: seed}
}

func (r *RejectionIntegrator) Integrate(ctx context.Context, p *polytope.Polytope, poly *polytope.Polynomial) (*big.Rat, error) {
	if result, ok, err := FastPath(p, poly); err != nil {
		return nil, err
	} else if ok {
		return result, nil
	}

	vars := unionVars(p, poly)
	var bounds map[string]polytope.Interval
	if p.IsAxisAligned() {
		bounds = p.Bounds()
	} else {
		var err error
		bounds, err = p.LPBoundingBox(vars)
		if err != nil {
			return nil, err
		}
		if bounds == nil {
			return nil, ErrEmptyPolytope
		}
	}
	boxVolume := big.NewRat(1, 1)
	for _, v := range vars {
		iv, ok := bounds[v]
		if !ok || iv.Width() == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnbounded, v)
		}
		boxVolume.Mul(boxVolume, iv.Width())
	}

	rng := rand.New(rand.NewPCG(r.Seed, r.Seed^0x9e3779b97f4a7c15))
	total := new(Accumulator)
	accepted := 0
	n := r.Samples
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		point := samplePoint(rng, vars, bounds)
		if !satisfiesAll(p, point) {
			continue
		}
		accepted++
		total.AddFloat(polyToFloat(poly, point))
	}
	if accepted == 0 {
		return big.NewRat(0, 1), nil
	}
	mean := total.Float() / float64(accepted)
	ratio := float64(accepted) / float64(n)
	boxVol, _ := boxVolume.Float64()
	estimate := mean * ratio * boxVol
	result := new(big.Rat).SetFloat64(estimate)
	if result == nil {
		return nil, fmt.Errorf("integrate: rejection estimate %v is not representable as a finite rational", estimate)
	}
	return result, nil
}

func (r *RejectionIntegrator) IntegrateBatch(ctx context.Context, probs []Problem) ([]*big.Rat, error) {
	out := make([]*big.Rat, len(probs))
	for i, pr := range probs {
		v, err := r.Integrate(ctx, pr.Polytope, pr.Polynomial)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func samplePoint(rng *rand.Rand, vars []string, bounds map[string]polytope.Interval) map[string]*big.Rat {
	point := make(map[string]*big.Rat, len(vars))
	for _, v := range vars {
		iv := bounds[v]
		lo, _ := iv.Lo.Float64()
		hi, _ := iv.Hi.Float64()
		x := lo + rng.Float64()*(hi-lo)
		xr := new(big.Rat).SetFloat64(x)
		if xr == nil {
			xr = big.NewRat(0, 1)
		}
		point[v] = xr
	}
	return point
}

func satisfiesAll(p *polytope.Polytope, point map[string]*big.Rat) bool {
	for _, h := range p.HalfSpaces {
		if !h.Satisfies(point) {
			return false
		}
	}
	return true
}

func polyToFloat(poly *polytope.Polynomial, point map[string]*big.Rat) float64 {
	v := poly.Eval(point)
	f, _ := v.Float64()
	return f
}
