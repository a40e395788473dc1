package weight

import (
	"testing"

	"github.com/masinag/gowmi/formula"
)

func TestDecomposeLinearWeight(t *testing.T) {
	p := formula.NewPool()
	x := p.RealVar("x")
	w := p.Plus(x, p.RealConst(formula.RationalFromInt64(1)))

	sk, lr, err := Decompose(p, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(sk.Labels) != 0 {
		t.Errorf("a weight with no ITEs should introduce no labels, got %d", len(sk.Labels))
	}
	leaf, err := lr.Leaf(map[string]bool{})
	if err != nil {
		t.Fatal(err)
	}
	if leaf.Id() != w.Id() {
		t.Error("an ITE-free weight should resolve to itself")
	}
}

func TestDecomposeITEWeight(t *testing.T) {
	p := formula.NewPool()
	x := p.RealVar("x")
	cond, err := p.LRA(x, "<=", p.RealConst(formula.RationalFromInt64(0)))
	if err != nil {
		t.Fatal(err)
	}
	w := p.TermITE(cond, p.RealConst(formula.RationalFromInt64(1)), p.RealConst(formula.RationalFromInt64(2)))

	sk, lr, err := Decompose(p, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(sk.Labels) != 1 {
		t.Fatalf("expected exactly one label, got %d", len(sk.Labels))
	}

	leafTrue, err := lr.Leaf(map[string]bool{sk.Labels[0]: true})
	if err != nil {
		t.Fatal(err)
	}
	c, err := leafTrue.GetConst()
	if err != nil || c.Cmp(formula.RationalFromInt64(1)) != 0 {
		t.Errorf("label=true should resolve to the then-branch, got %v", leafTrue)
	}

	leafFalse, err := lr.Leaf(map[string]bool{sk.Labels[0]: false})
	if err != nil {
		t.Fatal(err)
	}
	c, err = leafFalse.GetConst()
	if err != nil || c.Cmp(formula.RationalFromInt64(2)) != 0 {
		t.Errorf("label=false should resolve to the else-branch, got %v", leafFalse)
	}
}

func TestDecomposeUnsupportedWeight(t *testing.T) {
	p := formula.NewPool()
	x := p.RealVar("x")
	y := p.RealVar("y")
	nonlinear := p.Times(x, y)

	_, _, err := Decompose(p, nonlinear)
	if err == nil {
		t.Fatal("expected an UnsupportedWeightError for a nonlinear weight leaf")
	}
	if _, ok := err.(*UnsupportedWeightError); !ok {
		t.Errorf("expected *UnsupportedWeightError, got %T", err)
	}
}
