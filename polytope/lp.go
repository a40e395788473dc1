package polytope

import (
	"math/big"

	"github.com/masinag/gowmi/internal/lp"
)

// IsEmpty reports whether p's feasible region is empty, via the LP
// feasibility check in internal/lp.
func (p *Polytope) IsEmpty() (bool, error) {
	vars := p.Vars()
	if len(vars) == 0 {
		return len(p.HalfSpaces) > 0 && !p.satisfiesOrigin(), nil
	}
	prob := lpProblemFromHalfSpaces(vars, p.HalfSpaces)
	feasible, _, err := lp.Feasible(prob)
	if err != nil {
		return false, err
	}
	return !feasible, nil
}

func (p *Polytope) satisfiesOrigin() bool {
	for _, h := range p.HalfSpaces {
		if !h.Satisfies(nil) {
			return false
		}
	}
	return true
}

// LPBoundingBox computes, for every variable in vars, the tightest
// interval [min_x v, max_x v] over p's feasible region via one LP solve
// per side per variable -- the general (non-axis-aligned) analogue of
// Bounds(), used by the rejection integrator's sampling box when the
// polytope is not already a box. A nil Lo or Hi on the returned Interval
// means that side is unbounded.
func (p *Polytope) LPBoundingBox(vars []string) (map[string]Interval, error) {
	prob := lpProblemFromHalfSpaces(vars, p.HalfSpaces)
	out := make(map[string]Interval, len(vars))
	for _, v := range vars {
		unit := map[string]*big.Rat{v: big.NewRat(1, 1)}
		minRes, err := lp.Minimize(prob, unit)
		if err != nil {
			return nil, err
		}
		if !minRes.Feasible {
			return nil, nil
		}
		negUnit := map[string]*big.Rat{v: big.NewRat(-1, 1)}
		maxRes, err := lp.Minimize(prob, negUnit)
		if err != nil {
			return nil, err
		}
		iv := Interval{}
		if !minRes.Unbounded {
			iv.Lo = minRes.Optimum
		}
		if !maxRes.Unbounded {
			iv.Hi = new(big.Rat).Neg(maxRes.Optimum)
		}
		out[v] = iv
	}
	return out, nil
}

// RemoveRedundant filters out every half-space implied by the rest of p,
// via the standard "maximize this half-space's LHS over the others" LP
// test: a simplified, non-randomized analogue of
// original_source/wmipa/integration/cache_integrator.py's
// _remove_redundancy/_clarkson, backed by internal/lp instead of shelling
// out to optimathsat.
func RemoveRedundant(p *Polytope) (*Polytope, error) {
	vars := p.Vars()
	kept := make([]HalfSpace, 0, len(p.HalfSpaces))
	for i, h := range p.HalfSpaces {
		others := without(p.HalfSpaces, i)
		prob := lpProblemFromHalfSpaces(vars, others)
		negObjective := make(map[string]*big.Rat, len(h.Coeffs))
		for v, c := range h.Coeffs {
			negObjective[v] = new(big.Rat).Neg(c)
		}
		res, err := lp.Minimize(prob, negObjective)
		if err != nil {
			return nil, err
		}
		if !res.Feasible {
			// the rest of the polytope is already empty, so h cannot be
			// load-bearing for the (equally empty) intersection.
			continue
		}
		if res.Unbounded {
			kept = append(kept, h) // can't prove redundancy; keep defensively
			continue
		}
		maxVal := new(big.Rat).Neg(res.Optimum)
		bound := new(big.Rat).Neg(h.Const)
		if h.Strict {
			if maxVal.Cmp(bound) < 0 {
				continue
			}
		} else if maxVal.Cmp(bound) <= 0 {
			continue
		}
		kept = append(kept, h)
	}
	return &Polytope{HalfSpaces: kept}, nil
}

func lpProblemFromHalfSpaces(vars []string, hs []HalfSpace) lp.Problem {
	cs := make([]lp.Constraint, len(hs))
	for i, h := range hs {
		coeffs := make(map[string]*big.Rat, len(h.Coeffs))
		for v, c := range h.Coeffs {
			coeffs[v] = c
		}
		cs[i] = lp.Constraint{Coeffs: coeffs, RHS: new(big.Rat).Neg(h.Const)}
	}
	return lp.Problem{Vars: vars, Constraints: cs}
}

func without(hs []HalfSpace, i int) []HalfSpace {
	out := make([]HalfSpace, 0, len(hs)-1)
	for j, h := range hs {
		if j != i {
			out = append(out, h)
		}
	}
	return out
}
