package enumerate

import (
	"context"
	"testing"

	"github.com/masinag/gowmi/formula"
)

func drain(t *testing.T, stream Stream) []Assignment {
	t.Helper()
	var out []Assignment
	ctx := context.Background()
	for {
		a, ok, err := stream.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		out = append(out, a)
	}
	return out
}

func TestTotalEnumeratorCompleteness(t *testing.T) {
	pool := formula.NewPool()
	a := pool.BoolVar("a")
	b := pool.BoolVar("b")
	support := pool.BoolConst(true)
	query := pool.Implies(a, b) // forbids a=true,b=false
	skeleton := pool.BoolConst(true)

	enum := NewTotalEnumerator(pool, newFakeDecider())
	stream, err := enum.Enumerate(context.Background(), support, query, skeleton)
	if err != nil {
		t.Fatal(err)
	}
	models := drain(t, stream)
	if len(models) != 3 {
		t.Fatalf("a -> b has exactly 3 models over {a,b}, got %d: %v", len(models), models)
	}
	for _, m := range models {
		if m.Assigned["a"] && !m.Assigned["b"] {
			t.Error("a=true, b=false should never be emitted for a -> b")
		}
	}
}

func TestStructureAwareConditionalIrrelevance(t *testing.T) {
	pool := formula.NewPool()
	a := pool.BoolVar("a")
	b := pool.BoolVar("b")
	support := pool.BoolConst(true)
	// "if a then true else b": when a is true, b cannot affect
	// satisfaction no matter its value, so a structure-aware enumerator
	// should never branch on it in that case.
	query := pool.FormulaITE(a, pool.BoolConst(true), b)
	skeleton := pool.BoolConst(true)

	enum := NewStructureAwareEnumerator(pool, newFakeDecider())
	stream, err := enum.Enumerate(context.Background(), support, query, skeleton)
	if err != nil {
		t.Fatal(err)
	}
	models := drain(t, stream)

	var sawFreeB, sawDecidedB bool
	for _, m := range models {
		if !m.Assigned["a"] {
			continue
		}
		for _, f := range m.Free {
			if f == "b" {
				sawFreeB = true
			}
		}
		if _, ok := m.Assigned["b"]; ok {
			sawDecidedB = true
		}
	}
	if !sawFreeB {
		t.Error("when a is true, b should be reported free (K=1 totalization) rather than decided")
	}
	if sawDecidedB {
		t.Error("b should never be branched on when a is true")
	}
}

// TestStructureAwareEnumeratorAssignsSupportExclusiveAtoms guards against
// atoms that only appear in support: they must still land in Assigned (and
// contribute their half-space) rather than Free, or a cell's 2^k
// totalization factor silently balloons by one power of two per such atom.
func TestStructureAwareEnumeratorAssignsSupportExclusiveAtoms(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	zero := pool.RealConst(formula.RationalZero())
	one := pool.RealConst(formula.RationalFromInt64(1))
	lower, err := pool.LRA(x, ">=", zero)
	if err != nil {
		t.Fatal(err)
	}
	upper, err := pool.LRA(x, "<=", one)
	if err != nil {
		t.Fatal(err)
	}

	support := pool.And(lower, upper)
	query := pool.BoolConst(true)
	skeleton := pool.BoolConst(true)

	enum := NewStructureAwareEnumerator(pool, newFakeDecider())
	stream, err := enum.Enumerate(context.Background(), support, query, skeleton)
	if err != nil {
		t.Fatal(err)
	}
	models := drain(t, stream)
	if len(models) == 0 {
		t.Fatal("expected at least one model")
	}
	for _, m := range models {
		for _, name := range []string{lower.String(), upper.String()} {
			if _, ok := m.Assigned[name]; !ok {
				t.Errorf("support-exclusive atom %q must be assigned, not free: %+v", name, m)
			}
		}
		for _, f := range m.Free {
			if f == lower.String() || f == upper.String() {
				t.Errorf("support-exclusive atom %q must not appear in Free", f)
			}
		}
	}
}

// TestStructureAwareEnumeratorLRAConditionalIrrelevance exercises the
// fTrue.Id()==fFalse.Id() shortcut with an LRA atom rather than a Boolean
// one: x>=0 is conditionally irrelevant to query's truth value (both
// substitutions reduce to the same node, y), but unlike a Boolean atom it
// still bounds a continuous region, so it must be forced to the canonical
// polarity (assigned=true) instead of left free.
func TestStructureAwareEnumeratorLRAConditionalIrrelevance(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	zero := pool.RealConst(formula.RationalZero())
	xAtom, err := pool.LRA(x, ">=", zero)
	if err != nil {
		t.Fatal(err)
	}
	y := pool.BoolVar("y")

	support := pool.BoolConst(true)
	query := pool.And(pool.Or(xAtom, y), pool.Or(pool.Not(xAtom), y))
	skeleton := pool.BoolConst(true)

	enum := NewStructureAwareEnumerator(pool, newFakeDecider())
	stream, err := enum.Enumerate(context.Background(), support, query, skeleton)
	if err != nil {
		t.Fatal(err)
	}
	models := drain(t, stream)
	if len(models) == 0 {
		t.Fatal("expected at least one model")
	}

	atomName := xAtom.String()
	for _, m := range models {
		v, ok := m.Assigned[atomName]
		if !ok {
			t.Errorf("x>=0 is conditionally irrelevant and must be forced into Assigned, not Free: %+v", m)
			continue
		}
		if !v {
			t.Errorf("x>=0's canonical polarity should be true, got false")
		}
		for _, f := range m.Free {
			if f == atomName {
				t.Errorf("x>=0 must not appear in Free when conditionally irrelevant")
			}
		}
	}
}
