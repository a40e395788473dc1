package enumerate

import (
	"context"

	"github.com/masinag/gowmi/formula"
)

// StructureAwareEnumerator exploits conditional irrelevance: at each
// decision point it substitutes an atom with both true and false and, if
// the pool's hash-consing collapses the two results to the identical
// node (same Id), the atom cannot affect satisfaction of the remaining
// structure. A Boolean atom found irrelevant this way is left free instead
// of branched on; an LRA atom is forced to true, its canonical polarity,
// since it still bounds a continuous region even when the Boolean
// structure doesn't care about it. It walks support∧query∧skeleton
// together (not just query∧skeleton) so every atom support introduces is
// either branched on or forced to a canonical polarity, never silently
// dropped into the free set. This mirrors the early-exit in
// original_source/wmipa/wmi.py's _simplify_formula/_plra_rec: once
// substitution and simplification show a literal doesn't matter, the
// recursion doesn't pay for a decision over it.
type StructureAwareEnumerator struct {
	Pool    *formula.Pool
	Decider Decider
}

func NewStructureAwareEnumerator(pool *formula.Pool, decider Decider) *StructureAwareEnumerator {
	return &StructureAwareEnumerator{Pool: pool, Decider: decider}
}

func (e *StructureAwareEnumerator) Enumerate(ctx context.Context, support, query, skeleton *formula.Formula) (Stream, error) {
	if e.Decider == nil {
		return nil, ErrNoDecider
	}
	conj := e.Pool.And(support, query, skeleton)

	out := make(chan streamItem)
	stream := newBaseStream(out)

	go func() {
		defer close(out)
		e.Decider.Reset()
		if err := e.Decider.Assert(support); err != nil {
			emit(out, stream, streamItem{err: err})
			return
		}
		atomFormulas := formula.CollectAtoms(conj)
		universe := sortedKeys(atomFormulas)
		w := &worker{pool: e.Pool, decider: e.Decider, atoms: atomFormulas, universe: universe, out: out, stream: stream}
		if err := w.explore(ctx, conj, map[string]bool{}); err != nil {
			emit(out, stream, streamItem{err: err})
		}
	}()

	return stream, nil
}

func emit(out chan<- streamItem, stream *baseStream, item streamItem) {
	select {
	case out <- item:
	case <-stream.cancel:
	}
}

type worker struct {
	pool     *formula.Pool
	decider  Decider
	atoms    map[string]*formula.Formula
	universe []string
	out      chan<- streamItem
	stream   *baseStream
}

// free computes every atom in the formula's full atom universe that
// explore never decided on the path to a leaf -- an atom can end up here
// either because the irrelevance shortcut below skipped it, or because it
// simply fell out of the formula as a side effect of deciding other
// atoms (e.g. a term-ITE's condition resolving which branch, and hence
// which atoms, can possibly matter).
func (w *worker) free(assigned map[string]bool) []string {
	out := make([]string, 0, len(w.universe)-len(assigned))
	for _, a := range w.universe {
		if _, ok := assigned[a]; !ok {
			out = append(out, a)
		}
	}
	return out
}

func (w *worker) explore(ctx context.Context, f *formula.Formula, assigned map[string]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-w.stream.cancel:
		return nil
	default:
	}

	if f.IsConst() {
		c, _ := f.GetConst()
		if !c {
			return nil
		}
		r, err := w.decider.CheckSat(ctx)
		if err != nil {
			return err
		}
		if r != ResultSat {
			return nil
		}
		emit(w.out, w.stream, streamItem{a: Assignment{Assigned: copyBoolMap(assigned), Free: w.free(assigned)}})
		return nil
	}

	atoms := sortedAtoms(f)
	if len(atoms) == 0 {
		return nil
	}
	name := atoms[0]
	atomLit, ok := w.atoms[name]
	if !ok {
		atomLit = w.pool.BoolVar(name)
	}

	envTrue := formula.Env{Atoms: map[string]*formula.Formula{name: w.pool.BoolConst(true)}}
	envFalse := formula.Env{Atoms: map[string]*formula.Formula{name: w.pool.BoolConst(false)}}
	// Pool.Not interns the negation of a <=/< atom as a separate LRA atom;
	// when the formula holds that atom too, it is substituted and assigned
	// together with name, always with the opposite value.
	negName := ""
	if la, isLRA := atomLit.LRAAtom(); isLRA && la.Op != formula.AtomEQ {
		neg := w.pool.Not(atomLit).String()
		if _, ok := w.atoms[neg]; ok {
			negName = neg
			envTrue.Atoms[negName] = w.pool.BoolConst(false)
			envFalse.Atoms[negName] = w.pool.BoolConst(true)
		}
	}
	fTrue := w.pool.Substitute(f, envTrue)
	fFalse := w.pool.Substitute(f, envFalse)

	if fTrue.Id() == fFalse.Id() {
		// atomLit doesn't affect the remaining structure either way. A
		// Boolean atom is genuinely free here and totalizes (left out of
		// assigned, picked up by w.free below). An LRA atom still bounds
		// the integration region, so it is forced to true -- the
		// canonical polarity -- rather than left to inflate k.
		if atomLit.IsLRA() {
			canonical := copyBoolMap(assigned)
			canonical[name] = true
			if negName != "" {
				canonical[negName] = false
			}
			return w.explore(ctx, fTrue, canonical)
		}
		return w.explore(ctx, fTrue, assigned)
	}

	for _, branch := range []struct {
		value bool
		next  *formula.Formula
	}{{true, fTrue}, {false, fFalse}} {
		w.decider.Push()
		lit := atomLit
		if !branch.value {
			lit = w.pool.Not(atomLit)
		}
		if err := w.decider.Assert(lit); err != nil {
			w.decider.Pop()
			return err
		}
		r, err := w.decider.CheckSat(ctx)
		if err != nil {
			w.decider.Pop()
			return err
		}
		if r == ResultSat {
			newAssigned := copyBoolMap(assigned)
			newAssigned[name] = branch.value
			if negName != "" {
				newAssigned[negName] = !branch.value
			}
			if err := w.explore(ctx, branch.next, newAssigned); err != nil {
				w.decider.Pop()
				return err
			}
		}
		w.decider.Pop()
	}
	return nil
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
