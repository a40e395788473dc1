package polytope

import (
	"testing"

	"github.com/masinag/gowmi/formula"
)

func TestFromAssignmentUnitSquare(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	zero := pool.RealConst(formula.RationalZero())
	one := pool.RealConst(formula.RationalOne())

	xLE1, _ := pool.LRA(x, "<=", one)
	xGE0, _ := pool.LRA(x, ">=", zero)

	atoms := map[string]*formula.Formula{
		xLE1.String(): xLE1,
		xGE0.String(): xGE0,
	}
	assigned := map[string]bool{xLE1.String(): true, xGE0.String(): true}

	p, err := FromAssignment(atoms, assigned)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.HalfSpaces) != 2 {
		t.Fatalf("expected 2 half-spaces, got %d", len(p.HalfSpaces))
	}
	empty, err := p.IsEmpty()
	if err != nil {
		t.Fatal(err)
	}
	if empty {
		t.Error("0<=x<=1 should not be empty")
	}
}

func TestFromAssignmentNegatedAtom(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	one := pool.RealConst(formula.RationalOne())
	xLE1, _ := pool.LRA(x, "<=", one) // x - 1 <= 0

	atoms := map[string]*formula.Formula{xLE1.String(): xLE1}
	// false => negation: x - 1 > 0, i.e. x > 1
	assigned := map[string]bool{xLE1.String(): false}

	p, err := FromAssignment(atoms, assigned)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.HalfSpaces) != 1 {
		t.Fatalf("expected 1 half-space, got %d", len(p.HalfSpaces))
	}
	h := p.HalfSpaces[0]
	if !h.Strict {
		t.Error("negating a non-strict <= should yield a strict half-space")
	}
	point := map[string]*formula.Rational{"x": formula.RationalFromInt64(2)}
	if !h.Satisfies(point) {
		t.Error("x=2 should satisfy the negation of x<=1")
	}
	point2 := map[string]*formula.Rational{"x": formula.RationalFromInt64(0)}
	if h.Satisfies(point2) {
		t.Error("x=0 should not satisfy the negation of x<=1")
	}
}

func TestIsAxisAlignedAndBounds(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	y := pool.RealVar("y")
	zero := pool.RealConst(formula.RationalZero())
	one := pool.RealConst(formula.RationalOne())

	xLE1, _ := pool.LRA(x, "<=", one)
	xGE0, _ := pool.LRA(x, ">=", zero)
	yLE1, _ := pool.LRA(y, "<=", one)
	yGE0, _ := pool.LRA(y, ">=", zero)

	atoms := map[string]*formula.Formula{
		xLE1.String(): xLE1, xGE0.String(): xGE0,
		yLE1.String(): yLE1, yGE0.String(): yGE0,
	}
	assigned := map[string]bool{
		xLE1.String(): true, xGE0.String(): true,
		yLE1.String(): true, yGE0.String(): true,
	}
	p, err := FromAssignment(atoms, assigned)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAxisAligned() {
		t.Fatal("unit square should be axis-aligned")
	}
	bounds := p.Bounds()
	for _, v := range []string{"x", "y"} {
		iv := bounds[v]
		if iv.Lo == nil || iv.Hi == nil {
			t.Fatalf("expected finite bounds for %s, got %+v", v, iv)
		}
		if iv.Lo.Sign() != 0 {
			t.Errorf("%s lower bound should be 0, got %v", v, iv.Lo.RatString())
		}
		if iv.Hi.Cmp(formula.RationalOne()) != 0 {
			t.Errorf("%s upper bound should be 1, got %v", v, iv.Hi.RatString())
		}
	}
}

func TestRemoveRedundant(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	zero := pool.RealConst(formula.RationalZero())
	one := pool.RealConst(formula.RationalOne())
	two := pool.RealConst(formula.RationalFromInt64(2))

	xLE1, _ := pool.LRA(x, "<=", one)
	xLE2, _ := pool.LRA(x, "<=", two) // redundant given x<=1
	xGE0, _ := pool.LRA(x, ">=", zero)

	atoms := map[string]*formula.Formula{
		xLE1.String(): xLE1, xLE2.String(): xLE2, xGE0.String(): xGE0,
	}
	assigned := map[string]bool{xLE1.String(): true, xLE2.String(): true, xGE0.String(): true}
	p, err := FromAssignment(atoms, assigned)
	if err != nil {
		t.Fatal(err)
	}
	reduced, err := RemoveRedundant(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(reduced.HalfSpaces) != 2 {
		t.Fatalf("expected redundant x<=2 removed, leaving 2 half-spaces, got %d", len(reduced.HalfSpaces))
	}
}

func TestPolynomialFromLinearTerm(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	two := pool.RealConst(formula.RationalFromInt64(2))
	three := pool.RealConst(formula.RationalFromInt64(3))
	term := pool.Plus(pool.Times(two, x), three) // 2x + 3

	poly, err := FromLinearTerm(term)
	if err != nil {
		t.Fatal(err)
	}
	if poly.Degree() != 1 {
		t.Errorf("expected degree 1, got %d", poly.Degree())
	}
	point := map[string]*formula.Rational{"x": formula.RationalFromInt64(5)}
	got := poly.Eval(point)
	want := formula.RationalFromInt64(13)
	if got.Cmp(want) != 0 {
		t.Errorf("2*5+3 expected 13, got %v", got.RatString())
	}
}

func TestDetectAndApplyAlias(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	y := pool.RealVar("y")
	// x = y + 1
	expr := pool.Plus(y, pool.RealConst(formula.RationalOne()))
	eq, err := pool.LRA(x, "=", expr)
	if err != nil {
		t.Fatal(err)
	}
	zero := pool.RealConst(formula.RationalZero())
	ten := pool.RealConst(formula.RationalFromInt64(10))
	yLE10, _ := pool.LRA(y, "<=", ten)
	yGE0, _ := pool.LRA(y, ">=", zero)

	atoms := map[string]*formula.Formula{
		eq.String(): eq, yLE10.String(): yLE10, yGE0.String(): yGE0,
	}
	assigned := map[string]bool{eq.String(): true, yLE10.String(): true, yGE0.String(): true}

	aliases, err := DetectAliases(pool, atoms, assigned)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 1 || aliases[0].Var != "x" {
		t.Fatalf("expected one alias for x, got %+v", aliases)
	}

	p, err := FromAssignment(atoms, assigned)
	if err != nil {
		t.Fatal(err)
	}
	weightTerm := pool.Times(pool.RealConst(formula.RationalFromInt64(2)), x) // 2x
	poly, err := FromLinearTerm(weightTerm)
	if err != nil {
		t.Fatal(err)
	}

	ordered, err := OrderAliases(aliases)
	if err != nil {
		t.Fatal(err)
	}
	newP, newPoly, err := ApplySubstitute(pool, p, poly, ordered)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range newP.Vars() {
		if v == "x" {
			t.Error("x should have been eliminated by alias substitution")
		}
	}
	for _, v := range newPoly.Vars() {
		if v == "x" {
			t.Error("x should have been eliminated from the polynomial")
		}
	}
	// 2x = 2(y+1) = 2y + 2
	point := map[string]*formula.Rational{"y": formula.RationalFromInt64(3)}
	got := newPoly.Eval(point)
	want := formula.RationalFromInt64(8)
	if got.Cmp(want) != 0 {
		t.Errorf("2*(3+1) expected 8, got %v", got.RatString())
	}
}

func TestCyclicAliasDetected(t *testing.T) {
	a := Alias{Var: "x", Expr: mustTerm(func(p *formula.Pool) *formula.Term { return p.RealVar("y") })}
	b := Alias{Var: "y", Expr: mustTerm(func(p *formula.Pool) *formula.Term { return p.RealVar("x") })}
	_, err := OrderAliases([]Alias{a, b})
	if err == nil {
		t.Fatal("expected CyclicAliasError")
	}
	if _, ok := err.(*CyclicAliasError); !ok {
		t.Errorf("expected *CyclicAliasError, got %T", err)
	}
}

func mustTerm(build func(*formula.Pool) *formula.Term) *formula.Term {
	return build(formula.NewPool())
}
