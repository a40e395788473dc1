package polytope

import (
	"fmt"
	"sort"

	"github.com/masinag/gowmi/formula"
)

// HalfSpace is the closed (or, when Strict, open) region
// Sum(Coeffs[v]*v) + Const <= 0 (< 0 when Strict), grounded on
// original_source/wmipa/datastructures/polytope.py's Polytope.to_numpy
// (A,b) H-representation, re-expressed with a name-keyed coefficient map
// since this solver's variable set differs per assignment rather than
// sitting at a fixed global index.
type HalfSpace struct {
	Coeffs map[string]*formula.Rational
	Const  *formula.Rational
	Strict bool
}

func halfSpaceFromAtom(a formula.LinearAtom) HalfSpace {
	coeffs := make(map[string]*formula.Rational, len(a.Coeffs))
	for v, c := range a.Coeffs {
		coeffs[v] = new(formula.Rational).Set(c)
	}
	return HalfSpace{Coeffs: coeffs, Const: new(formula.Rational).Set(a.Const), Strict: a.Op == formula.AtomLT}
}

func (h HalfSpace) negate() HalfSpace {
	coeffs := make(map[string]*formula.Rational, len(h.Coeffs))
	for v, c := range h.Coeffs {
		coeffs[v] = new(formula.Rational).Neg(c)
	}
	strict := !h.Strict
	return HalfSpace{Coeffs: coeffs, Const: new(formula.Rational).Neg(h.Const), Strict: strict}
}

// Eval returns Sum(Coeffs[v]*point[v]) + Const.
func (h HalfSpace) Eval(point map[string]*formula.Rational) *formula.Rational {
	total := new(formula.Rational).Set(h.Const)
	for v, c := range h.Coeffs {
		x, ok := point[v]
		if !ok {
			continue
		}
		total.Add(total, new(formula.Rational).Mul(c, x))
	}
	return total
}

// Satisfies reports whether point lies in the closed (or open, if Strict)
// half-space.
func (h HalfSpace) Satisfies(point map[string]*formula.Rational) bool {
	v := h.Eval(point)
	s := v.Sign()
	if h.Strict {
		return s < 0
	}
	return s <= 0
}

// Polytope is the conjunction of its HalfSpaces: the convex feasible region
// of one totalized truth assignment's LRA atoms, grounded on
// original_source/wmipa/datastructures/polytope.py's Polytope class.
type Polytope struct {
	HalfSpaces []HalfSpace
}

// NewPolytope builds a Polytope directly from half-spaces, for callers
// (tests, the axis-aligned fast path) that already have them in hand.
func NewPolytope(hs ...HalfSpace) *Polytope { return &Polytope{HalfSpaces: hs} }

// FromAssignment builds the Polytope a total (or partially totalized)
// assignment induces over the LRA atoms named in atoms: an atom bound true
// contributes its half-space as-is, one bound false contributes its
// negation. An equality atom (Op == AtomEQ) bound true contributes both
// directions of the induced hyperplane (Sum <= 0 and Sum >= 0); bound false
// it contributes nothing, since formula.go's Not never produces a canonical
// negated-equality half-space and the excluded hyperplane is measure zero --
// omitting it changes no integral this solver computes. This mirrors
// original_source/wmipa/wmi.py's _assignment_to_polytope.
func FromAssignment(atoms map[string]*formula.Formula, assigned map[string]bool) (*Polytope, error) {
	var hs []HalfSpace
	for name, value := range assigned {
		f, ok := atoms[name]
		if !ok {
			continue
		}
		if f.Kind() != formula.KindLRA {
			continue // a Boolean atom: no LRA content to contribute
		}
		atom, ok := f.LRAAtom()
		if !ok {
			return nil, fmt.Errorf("polytope: %q reports KindLRA but has no LinearAtom", name)
		}
		switch atom.Op {
		case formula.AtomLE, formula.AtomLT:
			h := halfSpaceFromAtom(*atom)
			if !value {
				h = h.negate()
			}
			hs = append(hs, h)
		case formula.AtomEQ:
			if !value {
				continue
			}
			pos := halfSpaceFromAtom(*atom)
			neg := pos.negate()
			neg.Strict = false
			hs = append(hs, pos, neg)
		default:
			return nil, fmt.Errorf("polytope: atom %q has unknown LRAOp2 %v", name, atom.Op)
		}
	}
	return &Polytope{HalfSpaces: hs}, nil
}

// Vars returns the sorted set of real variables appearing in any
// half-space.
func (p *Polytope) Vars() []string {
	seen := map[string]bool{}
	for _, h := range p.HalfSpaces {
		for v := range h.Coeffs {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IsUnconstrained reports whether p has no half-spaces at all (the weight's
// free variables, if any, range over all of R^n). This is a syntactic
// check; callers must not confuse it with IsEmpty (lp.go), which is an
// LP feasibility question.
func (p *Polytope) IsUnconstrained() bool { return len(p.HalfSpaces) == 0 }

// IsAxisAligned reports whether every half-space constrains exactly one
// variable, the shape original_source/wmipa/integration/rejection.py's
// bounding-box computation exploits: when true, the polytope is exactly a
// (possibly half-open, possibly unbounded) box and the integral of a
// constant weight over it has a closed form (see integrate.BoxVolume).
func (p *Polytope) IsAxisAligned() bool {
	for _, h := range p.HalfSpaces {
		n := 0
		for _, c := range h.Coeffs {
			if c.Sign() != 0 {
				n++
			}
		}
		if n > 1 {
			return false
		}
	}
	return true
}

// Bounds reduces an axis-aligned polytope to a per-variable closed interval
// [lo, hi], using +-Inf sentinels (nil) for unbounded sides. The caller
// must have already checked IsAxisAligned: a half-space over several
// variables is read as a bound on just one of them (whichever nonzero
// coefficient map iteration reaches first), which gives a wrong box --
// which is why every call site in this module gates on it first.
func (p *Polytope) Bounds() map[string]Interval {
	out := map[string]Interval{}
	for _, h := range p.HalfSpaces {
		var v string
		var coeff *formula.Rational
		for name, c := range h.Coeffs {
			if c.Sign() != 0 {
				v, coeff = name, c
				break
			}
		}
		if v == "" {
			continue
		}
		// coeff*x + const <= 0  =>  x <= -const/coeff  (flip if coeff<0)
		bound := new(formula.Rational).Quo(new(formula.Rational).Neg(h.Const), coeff)
		iv := out[v]
		if coeff.Sign() > 0 {
			iv.setUpper(bound, h.Strict)
		} else {
			iv.setLower(bound, h.Strict)
		}
		out[v] = iv
	}
	return out
}

// Interval is a closed or half-open bound on one real variable; a nil Lo
// or Hi means unbounded on that side.
type Interval struct {
	Lo, Hi             *formula.Rational
	LoStrict, HiStrict bool
}

func (iv *Interval) setUpper(b *formula.Rational, strict bool) {
	if iv.Hi == nil || b.Cmp(iv.Hi) < 0 {
		iv.Hi, iv.HiStrict = b, strict
	}
}

func (iv *Interval) setLower(b *formula.Rational, strict bool) {
	if iv.Lo == nil || b.Cmp(iv.Lo) > 0 {
		iv.Lo, iv.LoStrict = b, strict
	}
}

// Width returns Hi-Lo, or nil if either side is unbounded.
func (iv Interval) Width() *formula.Rational {
	if iv.Lo == nil || iv.Hi == nil {
		return nil
	}
	return new(formula.Rational).Sub(iv.Hi, iv.Lo)
}
