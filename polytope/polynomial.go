// Package polytope turns a model's truth assignment and the weight leaf
// it resolves to into the convex-region/polynomial pair the integrator
// consumes: a rational H-representation polytope and a sparse polynomial
// over its free real variables.
package polytope

import (
	"fmt"
	"sort"
	"strings"

	"github.com/masinag/gowmi/formula"
)

// Monomial is an exponent map over real variable names. An empty Monomial
// denotes the constant monomial 1.
type Monomial map[string]int

func (m Monomial) key() string {
	vars := make([]string, 0, len(m))
	for v, e := range m {
		if e != 0 {
			vars = append(vars, v)
		}
	}
	sort.Strings(vars)
	if len(vars) == 0 {
		return "1"
	}
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = fmt.Sprintf("%s^%d", v, m[v])
	}
	return strings.Join(parts, "*")
}

func (m Monomial) degree() int {
	d := 0
	for _, e := range m {
		d += e
	}
	return d
}

func (m Monomial) mul(o Monomial) Monomial {
	out := make(Monomial, len(m)+len(o))
	for v, e := range m {
		out[v] += e
	}
	for v, e := range o {
		out[v] += e
	}
	return out
}

// Polynomial is a sparse multivariate polynomial, canonical monomial key to
// rational coefficient, grounded on
// original_source/wmipa/datastructures/polynomial.py's Polynomial._parse
// (distribute Times over Plus, collect like terms by exponent-tuple key) --
// re-expressed with a string key since Go map keys must be comparable.
type Polynomial struct {
	terms map[string]*formula.Rational
	monos map[string]Monomial
}

// NewPolynomial returns the zero polynomial.
func NewPolynomial() *Polynomial {
	return &Polynomial{terms: map[string]*formula.Rational{}, monos: map[string]Monomial{}}
}

// AddTerm accumulates coeff*mono into p, dropping the entry if the running
// coefficient cancels to zero.
func (p *Polynomial) AddTerm(coeff *formula.Rational, mono Monomial) {
	if coeff.Sign() == 0 {
		return
	}
	key := mono.key()
	if cur, ok := p.terms[key]; ok {
		cur.Add(cur, coeff)
		if cur.Sign() == 0 {
			delete(p.terms, key)
			delete(p.monos, key)
		}
		return
	}
	p.terms[key] = new(formula.Rational).Set(coeff)
	p.monos[key] = mono
}

// Mul returns the product p*q as a fresh polynomial.
func (p *Polynomial) Mul(q *Polynomial) *Polynomial {
	out := NewPolynomial()
	for k1, c1 := range p.terms {
		for k2, c2 := range q.terms {
			out.AddTerm(new(formula.Rational).Mul(c1, c2), p.monos[k1].mul(q.monos[k2]))
		}
	}
	return out
}

// Add returns p+q as a fresh polynomial.
func (p *Polynomial) Add(q *Polynomial) *Polynomial {
	out := NewPolynomial()
	for k, c := range p.terms {
		out.AddTerm(c, p.monos[k])
	}
	for k, c := range q.terms {
		out.AddTerm(c, q.monos[k])
	}
	return out
}

// Sub returns p-q as a fresh polynomial.
func (p *Polynomial) Sub(q *Polynomial) *Polynomial {
	neg := NewPolynomial()
	for k, c := range q.terms {
		neg.AddTerm(new(formula.Rational).Neg(c), q.monos[k])
	}
	return p.Add(neg)
}

// Scale returns c*p as a fresh polynomial.
func (p *Polynomial) Scale(c *formula.Rational) *Polynomial {
	out := NewPolynomial()
	for k, coeff := range p.terms {
		out.AddTerm(new(formula.Rational).Mul(coeff, c), p.monos[k])
	}
	return out
}

// IntegrateVar returns the antiderivative of p with respect to x (the
// definite-integral convention: the constant of integration is left at
// zero since callers always evaluate the result at two bounds and
// subtract).
func (p *Polynomial) IntegrateVar(x string) *Polynomial {
	out := NewPolynomial()
	for key, m := range p.monos {
		coeff := p.terms[key]
		e := m[x]
		newExp := e + 1
		newCoeff := new(formula.Rational).Quo(coeff, formula.RationalFromInt64(int64(newExp)))
		newMono := make(Monomial, len(m))
		for v, ee := range m {
			if v != x {
				newMono[v] = ee
			}
		}
		newMono[x] = newExp
		out.AddTerm(newCoeff, newMono)
	}
	return out
}

// SubstituteVar replaces every occurrence of x in p with repl (itself a
// Polynomial, typically affine), expanding x^k into repl^k term by term.
// This is the evaluation step used after IntegrateVar: plugging a
// half-space's bound expression (itself a function of the remaining
// variables) in for x.
func (p *Polynomial) SubstituteVar(x string, repl *Polynomial) *Polynomial {
	out := NewPolynomial()
	for key, m := range p.monos {
		coeff := p.terms[key]
		e := m[x]
		rest := make(Monomial, len(m))
		for v, ee := range m {
			if v != x {
				rest[v] = ee
			}
		}
		term := NewPolynomial()
		term.AddTerm(coeff, rest)
		for i := 0; i < e; i++ {
			term = term.Mul(repl)
		}
		out = out.Add(term)
	}
	return out
}

// AffineFromHalfSpace converts degree-<=1 half-space data into a
// Polynomial representing -(Const + Sum_{v != x} Coeffs[v]*v) / Coeffs[x],
// the expression x is bound by/against once isolated -- the piece the
// exact integrator's variable-elimination step needs to plug a bound into
// IntegrateVar's antiderivative via SubstituteVar.
func AffineFromHalfSpace(coeffs map[string]*formula.Rational, cst *formula.Rational, x string) *Polynomial {
	pivot := coeffs[x]
	out := NewPolynomial()
	constTerm := new(formula.Rational).Quo(cst, pivot)
	constTerm.Neg(constTerm)
	out.AddTerm(constTerm, Monomial{})
	for v, c := range coeffs {
		if v == x {
			continue
		}
		out.AddTerm(new(formula.Rational).Neg(new(formula.Rational).Quo(c, pivot)), Monomial{v: 1})
	}
	return out
}

// ToAffineHalfSpace converts a degree-<=1 polynomial into half-space
// coefficient/constant maps, the inverse direction AffineFromHalfSpace
// needs when the exact integrator encodes a bound-ordering case split as
// a fresh constraint over the remaining variables.
func (p *Polynomial) ToAffineHalfSpace() (map[string]*formula.Rational, *formula.Rational) {
	coeffs := map[string]*formula.Rational{}
	cst := formula.RationalZero()
	for key, m := range p.monos {
		c := p.terms[key]
		if len(m) == 0 {
			cst = new(formula.Rational).Add(cst, c)
			continue
		}
		for v, e := range m {
			if e == 1 {
				coeffs[v] = new(formula.Rational).Set(c)
			}
		}
	}
	return coeffs, cst
}

// IsZero reports whether p has no nonzero terms.
func (p *Polynomial) IsZero() bool { return len(p.terms) == 0 }

// ConstantValue returns p's value when p has no variable-carrying terms.
func (p *Polynomial) ConstantValue() (*formula.Rational, bool) {
	if len(p.terms) == 0 {
		return formula.RationalZero(), true
	}
	if len(p.terms) == 1 {
		if c, ok := p.terms["1"]; ok {
			return c, true
		}
	}
	return nil, false
}

// Degree returns the total degree of p (0 for the zero polynomial).
func (p *Polynomial) Degree() int {
	max := 0
	for _, m := range p.monos {
		if d := m.degree(); d > max {
			max = d
		}
	}
	return max
}

// Vars returns the sorted set of variables appearing with nonzero exponent
// in any term of p.
func (p *Polynomial) Vars() []string {
	seen := map[string]bool{}
	for _, m := range p.monos {
		for v, e := range m {
			if e != 0 {
				seen[v] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Eval evaluates p at the given point (one rational per variable; variables
// absent from point are treated as zero).
func (p *Polynomial) Eval(point map[string]*formula.Rational) *formula.Rational {
	total := formula.RationalZero()
	for k, c := range p.terms {
		term := new(formula.Rational).Set(c)
		for v, e := range p.monos[k] {
			x, ok := point[v]
			if !ok {
				x = formula.RationalZero()
			}
			for i := 0; i < e; i++ {
				term.Mul(term, x)
			}
		}
		total.Add(total, term)
	}
	return total
}

// Terms exposes p's monomials keyed by their canonical monomial key, for
// callers that walk the polynomial directly; Coeff gives the coefficient
// for a key.
func (p *Polynomial) Terms() map[string]Monomial {
	out := make(map[string]Monomial, len(p.monos))
	for k, m := range p.monos {
		out[k] = m
	}
	return out
}

// Coeff returns the coefficient of monomial key k (zero if absent).
func (p *Polynomial) Coeff(k string) *formula.Rational {
	if c, ok := p.terms[k]; ok {
		return new(formula.Rational).Set(c)
	}
	return formula.RationalZero()
}

// FromLinearTerm converts a Term guaranteed by weight.Decompose to be
// ITE-free and linear (Plus/Times/Minus/RealConst/RealVar only) into a
// Polynomial, reusing formula.Linearize's Sum(coeff*var)+const collection.
func FromLinearTerm(t *formula.Term) (*Polynomial, error) {
	coeffs, cst, err := formula.Linearize(t)
	if err != nil {
		return nil, fmt.Errorf("polytope: weight leaf %q is not linear: %w", t.String(), err)
	}
	poly := NewPolynomial()
	if cst.Sign() != 0 {
		poly.AddTerm(cst, Monomial{})
	}
	for v, c := range coeffs {
		if c.Sign() != 0 {
			poly.AddTerm(c, Monomial{v: 1})
		}
	}
	return poly, nil
}
