package weight

import (
	"fmt"
	"sort"
	"sync"

	"github.com/masinag/gowmi/formula"
)

// Skeleton is the Boolean structure a weight term imposes on enumeration:
// one fresh label atom per distinct term-level ITE condition,
// biconditionally tied to that condition, all conjoined together. The enumerator conjoins
// Skeleton.Formula onto support∧query so a model's label assignment is
// always consistent with the weight function it will be asked to
// integrate -- this is the piece original_source/wmipa/weights.py calls
// label_conditions.
type Skeleton struct {
	Formula *formula.Formula
	Labels  []string
}

// LeafRegistry resolves a full label assignment to its ITE-free leaf
// polynomial term, memoizing by assignment so repeated models that agree
// on every label (but differ on unrelated Boolean atoms) reuse the same
// leaf -- Weights.cache in the Python source.
type LeafRegistry struct {
	pool   *formula.Pool
	labels []string // sorted, for deterministic cache keys
	leaf   *formula.Term

	mu    sync.Mutex
	cache map[string]*formula.Term
}

// Decompose peels every term-ITE out of w, replacing each with a Boolean
// label biconditional to the ITE's condition (one fresh label per distinct
// condition node), and returns the
// resulting skeleton plus a registry that reconstructs the ITE-free leaf
// for any total label assignment.
func Decompose(pool *formula.Pool, w *formula.Term) (*Skeleton, *LeafRegistry, error) {
	d := &decomposeCtx{pool: pool, seen: map[uintptr]*formula.Term{}, labels: []string{}}
	leaf, err := d.walk(w)
	if err != nil {
		return nil, nil, err
	}

	skeletonFormula := pool.BoolConst(true)
	for i, cond := range d.conds {
		label := pool.BoolVar(d.labels[i])
		skeletonFormula = pool.And(skeletonFormula, pool.Iff(label, cond))
	}

	sortedLabels := append([]string(nil), d.labels...)
	sort.Strings(sortedLabels)

	sk := &Skeleton{Formula: skeletonFormula, Labels: d.labels}
	lr := &LeafRegistry{pool: pool, labels: sortedLabels, leaf: leaf, cache: map[string]*formula.Term{}}
	return sk, lr, nil
}

type decomposeCtx struct {
	pool   *formula.Pool
	seen   map[uintptr]*formula.Term
	labels []string
	conds  []*formula.Formula
}

// walk is the structural recursion label_conditions performs: it must
// also validate that every leaf of w, once all ITEs are stripped away, is
// a linear term -- anything else is an UnsupportedWeight.
func (d *decomposeCtx) walk(t *formula.Term) (*formula.Term, error) {
	if r, ok := d.seen[t.Id()]; ok {
		return r, nil
	}
	var result *formula.Term
	var err error
	switch t.Kind() {
	case formula.KindRealConst, formula.KindRealVar:
		result = t
	case formula.KindPlus, formula.KindTimes, formula.KindMinus:
		result, err = d.walkLinear(t)
	case formula.KindTermITE:
		result, err = d.walkITE(t)
	default:
		return nil, unsupportedWeight(t)
	}
	if err != nil {
		return nil, err
	}
	d.seen[t.Id()] = result
	return result, nil
}

func (d *decomposeCtx) walkLinear(t *formula.Term) (*formula.Term, error) {
	switch t.Kind() {
	case formula.KindPlus:
		return d.walkNary(t, d.pool.Plus)
	case formula.KindTimes:
		return d.walkTimes(t)
	case formula.KindMinus:
		return d.walkMinus(t)
	}
	return nil, unsupportedWeight(t)
}

// walkTimes additionally enforces linearity: at most one non-constant
// factor may appear, since the polynomial leaf this produces must stay a
// degree-1 polynomial in the real variables for polytope.Polynomial to
// represent it exactly.
func (d *decomposeCtx) walkTimes(t *formula.Term) (*formula.Term, error) {
	children := t.Children()
	rewritten := make([]*formula.Term, len(children))
	nonConst := 0
	for i, c := range children {
		r, err := d.walk(c)
		if err != nil {
			return nil, err
		}
		rewritten[i] = r
		if !r.IsConst() {
			nonConst++
		}
	}
	if nonConst > 1 {
		return nil, unsupportedWeight(t)
	}
	return d.pool.Times(rewritten...), nil
}

func (d *decomposeCtx) walkNary(t *formula.Term, rebuild func(...*formula.Term) *formula.Term) (*formula.Term, error) {
	children := t.Children()
	rewritten := make([]*formula.Term, len(children))
	for i, c := range children {
		r, err := d.walk(c)
		if err != nil {
			return nil, err
		}
		rewritten[i] = r
	}
	return rebuild(rewritten...), nil
}

func (d *decomposeCtx) walkMinus(t *formula.Term) (*formula.Term, error) {
	lhs, rhs := t.BinChildren()
	l, err := d.walk(lhs)
	if err != nil {
		return nil, err
	}
	r, err := d.walk(rhs)
	if err != nil {
		return nil, err
	}
	return d.pool.Minus(l, r), nil
}

func (d *decomposeCtx) walkITE(t *formula.Term) (*formula.Term, error) {
	cond, then, els := t.ITEChildren()
	// ITE nodes whose conditions intern to the same node share one label.
	var label *formula.Formula
	for i, c := range d.conds {
		if c.Id() == cond.Id() {
			label = d.pool.BoolVar(d.labels[i])
			break
		}
	}
	if label == nil {
		label = d.pool.FreshLabel()
		d.labels = append(d.labels, label.String())
		d.conds = append(d.conds, cond)
	}

	thenLeaf, err := d.walk(then)
	if err != nil {
		return nil, err
	}
	elseLeaf, err := d.walk(els)
	if err != nil {
		return nil, err
	}
	return d.pool.TermITE(label, thenLeaf, elseLeaf), nil
}

func unsupportedWeight(t *formula.Term) error {
	return &UnsupportedWeightError{Term: t}
}

// UnsupportedWeightError reports a weight term leaf that is not a linear
// combination of reals and constants once all ITEs are stripped away.
type UnsupportedWeightError struct {
	Term *formula.Term
}

func (e *UnsupportedWeightError) Error() string {
	return fmt.Sprintf("weight: unsupported weight term %q", e.Term.String())
}

// Leaf resolves mu (a total assignment restricted to, or a superset of,
// the skeleton's labels) into the ITE-free polynomial term the weight
// takes under that assignment.
func (lr *LeafRegistry) Leaf(mu map[string]bool) (*formula.Term, error) {
	key := lr.cacheKey(mu)

	lr.mu.Lock()
	if cached, ok := lr.cache[key]; ok {
		lr.mu.Unlock()
		return cached, nil
	}
	lr.mu.Unlock()

	env := formula.Env{Atoms: map[string]*formula.Formula{}}
	for _, label := range lr.labels {
		v, ok := mu[label]
		if !ok {
			return nil, fmt.Errorf("weight: label %q underdetermined in assignment", label)
		}
		env.Atoms[label] = lr.pool.BoolConst(v)
	}
	leaf := lr.pool.SubstituteTerm(lr.leaf, env)

	lr.mu.Lock()
	lr.cache[key] = leaf
	lr.mu.Unlock()
	return leaf, nil
}

func (lr *LeafRegistry) cacheKey(mu map[string]bool) string {
	key := make([]byte, 0, 2*len(lr.labels))
	for _, label := range lr.labels {
		v, ok := mu[label]
		switch {
		case !ok:
			key = append(key, '?')
		case v:
			key = append(key, '1')
		default:
			key = append(key, '0')
		}
		key = append(key, ',')
	}
	return string(key)
}
