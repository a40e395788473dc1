package polytope

import (
	"fmt"
	"sort"

	"github.com/masinag/gowmi/formula"
)

// Alias is a detected `x = e` equality, x a real variable not occurring
// free in e, assigned true in some model -- the shape
// original_source/wmipa/wmi.py's _apply_aliases/datastructures/equality.py
// singles out for substitution rather than H-representation: since e can
// reference other real variables, aliases must be resolved in dependency
// order before they're plugged into the rest of the polytope/polynomial.
type Alias struct {
	Var  string
	Expr *formula.Term
}

// CyclicAliasError reports a cyclic dependency among detected aliases
// (e.g. x = y, y = x), the Go analogue of
// original_source/wmipa's WMIParsingException.CYCLIC_ALIASES.
type CyclicAliasError struct {
	Vars []string
}

func (e *CyclicAliasError) Error() string {
	return fmt.Sprintf("polytope: cyclic alias dependency among %v", e.Vars)
}

// DetectAliases scans assigned's true LRA equality atoms for the `x = e`
// shape and returns every alias found, one per atom: every equality with
// at least one nonzero-coefficient variable yields an alias (see
// isolateVariable); one with no variables yields none.
func DetectAliases(pool *formula.Pool, atoms map[string]*formula.Formula, assigned map[string]bool) ([]Alias, error) {
	var out []Alias
	for name, value := range assigned {
		if !value {
			continue
		}
		f, ok := atoms[name]
		if !ok || f.Kind() != formula.KindLRA {
			continue
		}
		atom, ok := f.LRAAtom()
		if !ok || atom.Op != formula.AtomEQ {
			continue
		}
		v, expr, ok := isolateVariable(pool, *atom)
		if !ok {
			continue
		}
		out = append(out, Alias{Var: v, Expr: expr})
	}
	return out, nil
}

// isolateVariable solves atom's equality Sum(coeff*var)+const = 0 for x,
// the alphabetically first variable with a nonzero coefficient, and
// returns x = -(rest)/coeff as a Term; it reports false only when no
// variable has a nonzero coefficient. Because the atom was already
// linearized, x does not occur in "rest", which is exactly the atom's
// other coefficients negated and divided by x's coefficient.
func isolateVariable(pool *formula.Pool, atom formula.LinearAtom) (string, *formula.Term, bool) {
	nonzero := make([]string, 0, len(atom.Coeffs))
	for v, c := range atom.Coeffs {
		if c.Sign() != 0 {
			nonzero = append(nonzero, v)
		}
	}
	if len(nonzero) == 0 {
		return "", nil, false
	}
	sort.Strings(nonzero)
	target := nonzero[0]
	coeff := atom.Coeffs[target]

	expr := pool.RealConst(new(formula.Rational).Neg(divRat(atom.Const, coeff)))
	for _, v := range nonzero[1:] {
		c := divRat(atom.Coeffs[v], coeff)
		term := pool.Times(pool.RealConst(new(formula.Rational).Neg(c)), pool.RealVar(v))
		expr = pool.Plus(expr, term)
	}
	return target, expr, true
}

func divRat(a, b *formula.Rational) *formula.Rational {
	return new(formula.Rational).Quo(a, b)
}

// OrderAliases topologically sorts aliases by dependency (an alias for x
// whose Expr mentions y must come after y's own alias, if any) via Kahn's
// algorithm over a plain adjacency map -- no graph library appears in the
// retrieved pack and this is about 30 lines, which doesn't warrant
// importing one (see DESIGN.md). Returns CyclicAliasError if the
// dependency graph has a cycle.
func OrderAliases(aliases []Alias) ([]Alias, error) {
	byVar := make(map[string]Alias, len(aliases))
	for _, a := range aliases {
		byVar[a.Var] = a
	}
	deps := make(map[string][]string, len(aliases))
	indegree := make(map[string]int, len(aliases))
	for _, a := range aliases {
		indegree[a.Var] = 0
	}
	for _, a := range aliases {
		for dep := range a.Expr.RealsOf() {
			if _, isAlias := byVar[dep]; isAlias {
				deps[dep] = append(deps[dep], a.Var)
				indegree[a.Var]++
			}
		}
	}

	var queue []string
	for v, d := range indegree {
		if d == 0 {
			queue = append(queue, v)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		next := append([]string(nil), deps[v]...)
		sort.Strings(next)
		for _, w := range next {
			indegree[w]--
			if indegree[w] == 0 {
				queue = append(queue, w)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(aliases) {
		var cyclic []string
		for v, d := range indegree {
			if d > 0 {
				cyclic = append(cyclic, v)
			}
		}
		sort.Strings(cyclic)
		return nil, &CyclicAliasError{Vars: cyclic}
	}

	out := make([]Alias, len(order))
	for i, v := range order {
		out[i] = byVar[v]
	}
	return out, nil
}

// ApplySubstitute substitutes every alias into p's half-spaces and poly,
// eliminating the aliased variables entirely --
// original_source/wmipa/wmi.py's _apply_aliases. aliases must already be in
// dependency order (the output of OrderAliases): a caller resolving x=y+1
// before y's own alias is resolved would substitute a not-yet-eliminated
// variable into the polytope. ApplySubstitute does not re-sort -- callers
// that haven't already ordered aliases should call OrderAliases first.
func ApplySubstitute(pool *formula.Pool, p *Polytope, poly *Polynomial, aliases []Alias) (*Polytope, *Polynomial, error) {
	env := formula.Env{Reals: map[string]*formula.Term{}}
	for _, a := range aliases {
		resolved := pool.SubstituteTerm(a.Expr, env)
		env.Reals[a.Var] = resolved
	}

	newPoly := NewPolynomial()
	for key, m := range poly.monos {
		coeff := poly.terms[key]
		term := monomialToTerm(pool, m, coeff)
		substituted := pool.SubstituteTerm(term, env)
		contrib, err := FromLinearTerm(substituted)
		if err != nil {
			return nil, nil, fmt.Errorf("polytope: alias substitution produced a non-affine monomial %q: %w", key, err)
		}
		newPoly = newPoly.Add(contrib)
	}

	newHS := make([]HalfSpace, 0, len(p.HalfSpaces))
	for _, h := range p.HalfSpaces {
		term := halfSpaceToTerm(pool, h)
		substituted := pool.SubstituteTerm(term, env)
		coeffs, cst, err := formula.Linearize(substituted)
		if err != nil {
			return nil, nil, fmt.Errorf("polytope: alias substitution produced a non-linear half-space: %w", err)
		}
		newHS = append(newHS, HalfSpace{Coeffs: coeffs, Const: cst, Strict: h.Strict})
	}
	return &Polytope{HalfSpaces: newHS}, newPoly, nil
}

func monomialToTerm(pool *formula.Pool, m Monomial, coeff *formula.Rational) *formula.Term {
	factors := []*formula.Term{pool.RealConst(coeff)}
	vars := make([]string, 0, len(m))
	for v, e := range m {
		for i := 0; i < e; i++ {
			vars = append(vars, v)
		}
	}
	sort.Strings(vars)
	for _, v := range vars {
		factors = append(factors, pool.RealVar(v))
	}
	return pool.Times(factors...)
}

func halfSpaceToTerm(pool *formula.Pool, h HalfSpace) *formula.Term {
	sum := pool.RealConst(h.Const)
	vars := make([]string, 0, len(h.Coeffs))
	for v := range h.Coeffs {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	for _, v := range vars {
		sum = pool.Plus(sum, pool.Times(pool.RealConst(h.Coeffs[v]), pool.RealVar(v)))
	}
	return sum
}
