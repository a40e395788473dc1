package enumerate

import (
	"context"
	"sort"

	"github.com/masinag/gowmi/formula"
)

// TotalEnumerator always produces total assignments (K() == 0 for every
// yielded Assignment): it wraps the decider's native All-SAT loop over
// every atom of support∧query∧skeleton with no pruning, the simplest
// implementation satisfying the shared Enumerator contract. AllSat
// collects every model into a slice before the Stream yields the first
// one, so cancelling the Stream early does not save enumeration work.
type TotalEnumerator struct {
	Pool    *formula.Pool
	Decider Decider
	Limit   int // 0 means unbounded
}

func NewTotalEnumerator(pool *formula.Pool, decider Decider) *TotalEnumerator {
	return &TotalEnumerator{Pool: pool, Decider: decider}
}

func (e *TotalEnumerator) Enumerate(ctx context.Context, support, query, skeleton *formula.Formula) (Stream, error) {
	if e.Decider == nil {
		return nil, ErrNoDecider
	}
	conj := e.Pool.And(support, query, skeleton)
	atomFormulas := formula.CollectAtoms(conj)
	atoms := make([]*formula.Formula, 0, len(atomFormulas))
	for _, name := range sortedKeys(atomFormulas) {
		atoms = append(atoms, atomFormulas[name])
	}

	out := make(chan streamItem)
	stream := newBaseStream(out)

	go func() {
		defer close(out)
		models, err := AllSat(ctx, e.Decider, conj, atoms, e.Limit)
		for _, m := range models {
			select {
			case out <- streamItem{a: Assignment{Assigned: m}}:
			case <-stream.cancel:
				return
			}
		}
		if err != nil {
			select {
			case out <- streamItem{err: err}:
			case <-stream.cancel:
			}
		}
	}()

	return stream, nil
}

func sortedKeys(m map[string]*formula.Formula) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
