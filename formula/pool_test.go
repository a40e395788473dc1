package formula

import "testing"

func TestHashConsing(t *testing.T) {
	p := NewPool()

	a1 := p.RealVar("a")
	a2 := p.RealVar("a")
	if a1.Id() != a2.Id() {
		t.Error("identical real variables should hash-cons to the same node")
	}

	b := p.RealVar("b")
	sum1 := p.Plus(a1, b, p.RealConst(RationalFromInt64(2)))
	sum2 := p.Plus(b, p.RealConst(RationalFromInt64(2)), a2)
	if sum1.Id() != sum2.Id() {
		t.Error("Plus should hash-cons regardless of argument order")
	}
}

func TestPlusConstantFolding(t *testing.T) {
	p := NewPool()
	sum := p.Plus(p.RealConst(RationalFromInt64(2)), p.RealConst(RationalFromInt64(3)))
	c, err := sum.GetConst()
	if err != nil {
		t.Fatal(err)
	}
	if c.Cmp(RationalFromInt64(5)) != 0 {
		t.Errorf("expected 5, got %s", c.RatString())
	}
}

func TestTimesZero(t *testing.T) {
	p := NewPool()
	prod := p.Times(p.RealVar("x"), p.RealConst(RationalZero()))
	if !prod.IsZero() {
		t.Error("x * 0 should fold to the zero constant")
	}
}

func TestLRACanonicalNegation(t *testing.T) {
	p := NewPool()
	x := p.RealVar("x")
	atom, err := p.LRA(x, "<=", p.RealConst(RationalFromInt64(5)))
	if err != nil {
		t.Fatal(err)
	}
	neg := p.Not(atom)
	if neg.Kind() != KindLRA {
		t.Fatalf("negated LE atom should canonicalize to an LRA node, got kind %d", neg.Kind())
	}
	la, _ := neg.LRAAtom()
	if la.Op != AtomLT {
		t.Error("negating <= should yield a strict > which canonicalizes to <")
	}
	if p.Not(neg).Id() != atom.Id() {
		t.Error("double negation of an LRA atom should return the original interned atom")
	}
}

func TestAndOrIdentities(t *testing.T) {
	p := NewPool()
	a := p.BoolVar("a")

	if p.And(a, p.BoolConst(true)).Id() != a.Id() {
		t.Error("a && true should simplify to a")
	}
	if c, _ := p.And(a, p.BoolConst(false)).GetConst(); c {
		t.Error("a && false should simplify to false")
	}
	if c, _ := p.Or(a, p.BoolConst(true)).GetConst(); !c {
		t.Error("a || true should simplify to true")
	}
}

func TestSubstitute(t *testing.T) {
	p := NewPool()
	x := p.RealVar("x")
	atom, err := p.LRA(x, "<=", p.RealConst(RationalFromInt64(10)))
	if err != nil {
		t.Fatal(err)
	}
	env := Env{Reals: map[string]*Term{"x": p.RealConst(RationalFromInt64(3))}}
	substituted := p.Substitute(atom, env)
	la, ok := substituted.LRAAtom()
	if !ok {
		t.Fatal("substituted atom should still be an LRA node")
	}
	if len(la.Coeffs) != 0 {
		t.Error("substituting all free variables with constants should leave no coefficients")
	}
}
