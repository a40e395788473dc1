// Package enumerate implements the All-SAT-style enumeration of models of
// support∧query∧skeleton, the component that turns a WMI query into a
// stream of (truth assignment, free-atom count) pairs for the polytope
// builder to consume.
package enumerate

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/masinag/gowmi/formula"
)

// Assignment is a (possibly partial) truth assignment over the Boolean
// atoms and canonicalized LRA atoms of a formula. A partial assignment
// stands for every total assignment that agrees with it on Assigned and
// is free on the rest; Free lists the names left unassigned, so the
// caller can recover the totalization count 2^len(Free).
type Assignment struct {
	Assigned map[string]bool
	Free     []string
}

// K returns the number of free (unassigned) atoms this assignment
// totalizes over -- 0 for a total assignment.
func (a Assignment) K() int { return len(a.Free) }

// State is the enumerator run's lifecycle, mirrored on a simple
// CompareAndSwap-guarded uint32 the way the teacher keeps builder-wide
// counters as plain mutated fields rather than behind a channel FSM.
type State uint32

const (
	StateIdle State = iota
	StatePreparing
	StateStreaming
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Stream is the handle an Enumerator hands back: the caller drives it by
// calling Next in a loop, exactly as Solver.EvalUpto in the teacher
// returns a slice the caller already owns rather than invoking a callback
// into application code -- Next generalizes that to a pull-based API so
// a cancelled context can stop enumeration between models instead of
// only before it starts.
type Stream interface {
	Next(ctx context.Context) (Assignment, bool, error)
	Cancel()
	State() State
}

// Enumerator is the shared contract both enumerator variants satisfy:
// completeness (every model of support∧query∧skeleton is eventually
// produced), disjointness (no two yielded assignments, fully totalized,
// overlap), progress (each call to Next either yields a model or
// terminates -- it never spins without making progress), and streaming
// (the caller pulls models one at a time through Stream.Next).
// StructureAwareEnumerator computes each model on demand; TotalEnumerator
// finishes its whole All-SAT loop before the first model is handed out.
type Enumerator interface {
	Enumerate(ctx context.Context, support, query, skeleton *formula.Formula) (Stream, error)
}

// baseStream holds the bookkeeping shared by both enumerator
// implementations: cancellation, state transitions, and the assignment
// buffer they push into before the caller drains it via Next.
type baseStream struct {
	state  atomic.Uint32
	cancel chan struct{}
	out    <-chan streamItem
}

type streamItem struct {
	a   Assignment
	err error
}

func newBaseStream(out <-chan streamItem) *baseStream {
	bs := &baseStream{cancel: make(chan struct{}), out: out}
	bs.state.Store(uint32(StatePreparing))
	return bs
}

func (bs *baseStream) State() State { return State(bs.state.Load()) }

func (bs *baseStream) Cancel() {
	select {
	case <-bs.cancel:
	default:
		close(bs.cancel)
	}
}

func (bs *baseStream) Next(ctx context.Context) (Assignment, bool, error) {
	bs.state.CompareAndSwap(uint32(StatePreparing), uint32(StateStreaming))
	select {
	case <-ctx.Done():
		bs.state.Store(uint32(StateErrored))
		return Assignment{}, false, ctx.Err()
	case <-bs.cancel:
		bs.state.Store(uint32(StateDone))
		return Assignment{}, false, nil
	case item, ok := <-bs.out:
		if !ok {
			bs.state.Store(uint32(StateDone))
			return Assignment{}, false, nil
		}
		if item.err != nil {
			bs.state.Store(uint32(StateErrored))
			return Assignment{}, false, item.err
		}
		return item.a, true, nil
	}
}

// sortedAtoms returns the free atoms of f in deterministic order, used
// everywhere a stable decision order or stable cache key matters.
func sortedAtoms(f *formula.Formula) []string {
	atoms := f.AtomsOf()
	out := make([]string, 0, len(atoms))
	for a := range atoms {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func mergeAtoms(fs ...*formula.Formula) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, f := range fs {
		for _, a := range sortedAtoms(f) {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ErrNoDecider is returned by an Enumerator built without a Decider, the
// Go analogue of spec's NoEnumerator: there is nothing for an enumeration
// request to run against.
var ErrNoDecider = fmt.Errorf("enumerate: no decision procedure configured")
