package enumerate

import (
	"context"
	"fmt"

	"github.com/masinag/gowmi/formula"
)

// fakeDecider is a small brute-force CNF decider for pure-Boolean
// formulas, standing in for a live Z3 process in tests: it collects
// asserted formulas as CNF clauses and decides satisfiability by trying
// every assignment of the atoms it has seen. It never reasons about LRA
// theory content, which the enumerator package's tests don't exercise.
type fakeDecider struct {
	levels   [][][]lit // one clause-set per push level
	lastLits []lit
}

type lit struct {
	name  string
	value bool
}

func newFakeDecider() *fakeDecider {
	return &fakeDecider{levels: [][][]lit{nil}}
}

func (d *fakeDecider) Assert(f *formula.Formula) error {
	clauses := clausesOf(f)
	top := len(d.levels) - 1
	d.levels[top] = append(d.levels[top], clauses...)
	return nil
}

func clausesOf(f *formula.Formula) [][]lit {
	switch f.Kind() {
	case formula.KindBoolVar:
		return [][]lit{{{f.String(), true}}}
	case formula.KindNot:
		child := f.NotChild()
		if child.Kind() == formula.KindBoolVar {
			return [][]lit{{{child.String(), false}}}
		}
		return nil
	case formula.KindAnd:
		var out [][]lit
		for _, c := range f.NaryChildren() {
			out = append(out, clausesOf(c)...)
		}
		return out
	case formula.KindOr:
		var clause []lit
		for _, c := range f.NaryChildren() {
			for _, cl := range clausesOf(c) {
				clause = append(clause, cl...)
			}
		}
		return [][]lit{clause}
	case formula.KindImplies:
		l, r := f.BinChildren()
		if l.Kind() != formula.KindBoolVar {
			return nil
		}
		clause := []lit{{l.String(), false}}
		for _, cl := range clausesOf(r) {
			clause = append(clause, cl...)
		}
		return [][]lit{clause}
	case formula.KindBoolConst:
		c, _ := f.GetConst()
		if c {
			return nil
		}
		return [][]lit{{}} // an empty clause is always false
	default:
		return nil
	}
}

func (d *fakeDecider) allClauses() [][]lit {
	var out [][]lit
	for _, level := range d.levels {
		out = append(out, level...)
	}
	return out
}

func (d *fakeDecider) allAtoms() []string {
	seen := map[string]bool{}
	var out []string
	for _, clause := range d.allClauses() {
		for _, l := range clause {
			if !seen[l.name] {
				seen[l.name] = true
				out = append(out, l.name)
			}
		}
	}
	return out
}

func satisfies(assignment map[string]bool, clauses [][]lit) bool {
	for _, clause := range clauses {
		if len(clause) == 0 {
			return false
		}
		ok := false
		for _, l := range clause {
			if assignment[l.name] == l.value {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (d *fakeDecider) findModel() (map[string]bool, bool) {
	atoms := d.allAtoms()
	clauses := d.allClauses()
	n := len(atoms)
	for mask := 0; mask < (1 << n); mask++ {
		assignment := map[string]bool{}
		for i, a := range atoms {
			assignment[a] = mask&(1<<i) != 0
		}
		if satisfies(assignment, clauses) {
			return assignment, true
		}
	}
	return nil, false
}

func (d *fakeDecider) CheckSat(ctx context.Context) (Result, error) {
	if _, ok := d.findModel(); ok {
		return ResultSat, nil
	}
	return ResultUnsat, nil
}

func (d *fakeDecider) Model(atoms []*formula.Formula) (map[string]bool, error) {
	assignment, ok := d.findModel()
	if !ok {
		return nil, fmt.Errorf("fakeDecider: no model")
	}
	out := make(map[string]bool, len(atoms))
	lits := make([]lit, 0, len(atoms))
	for _, a := range atoms {
		v := assignment[a.String()]
		out[a.String()] = v
		lits = append(lits, lit{a.String(), v})
	}
	d.lastLits = lits
	return out, nil
}

func (d *fakeDecider) BlockLastModel() error {
	if len(d.lastLits) == 0 {
		return fmt.Errorf("fakeDecider: BlockLastModel before Model")
	}
	clause := make([]lit, len(d.lastLits))
	for i, l := range d.lastLits {
		clause[i] = lit{l.name, !l.value}
	}
	top := len(d.levels) - 1
	d.levels[top] = append(d.levels[top], clause)
	return nil
}

func (d *fakeDecider) Push() { d.levels = append(d.levels, nil) }

func (d *fakeDecider) Pop() {
	if len(d.levels) > 1 {
		d.levels = d.levels[:len(d.levels)-1]
	}
}

func (d *fakeDecider) Reset() { d.levels = [][][]lit{nil} }

func (d *fakeDecider) Clone() Decider { return newFakeDecider() }
