package enumerate

import (
	"context"

	"github.com/masinag/gowmi/formula"
)

// Result mirrors the teacher's RESULT_SAT/RESULT_UNSAT/RESULT_UNKNOWN
// trio from solver.go. A cancelled context has no Result value of its own:
// CheckSat reports it through its error.
type Result int

const (
	ResultUnknown Result = iota
	ResultSat
	ResultUnsat
)

// Decider is the underlying SMT decision procedure and its All-SAT mode,
// named in the design as an external collaborator: the core enumerator
// consumes this interface and never depends on a specific backend.
// Implementations must be single-owner (never shared across goroutines),
// the same discipline the teacher's z3backend already assumes by calling
// s.solver.Reset() at the top of every check.
type Decider interface {
	// Assert permanently adds f to the decision procedure's assertion
	// stack (teacher: Solver.Add).
	Assert(f *formula.Formula) error
	// CheckSat decides satisfiability of everything asserted so far.
	CheckSat(ctx context.Context) (Result, error)
	// Model returns the truth value of each given atom literal in the
	// last SAT result, keyed by the atom's canonical string.
	Model(atoms []*formula.Formula) (map[string]bool, error)
	// BlockLastModel asserts the negation of the conjunction of literals
	// returned by the most recent Model call, in the backend's own
	// representation -- the direct generalization of the teacher's
	// evalUpto asserting bvZ3.NE(v) after reading back one bitvector.
	BlockLastModel() error
	Push()
	Pop()
	Reset()
	Clone() Decider
}

// AllSat runs the blocking-clause All-SAT loop against decider: assert
// support, then repeatedly check, extract a model over atoms, emit it,
// and block it until the decision procedure reports UNSAT or limit
// models have been produced.
func AllSat(ctx context.Context, decider Decider, support *formula.Formula, atoms []*formula.Formula, limit int) ([]map[string]bool, error) {
	decider.Reset()
	if err := decider.Assert(support); err != nil {
		return nil, err
	}

	models := make([]map[string]bool, 0)
	for limit <= 0 || len(models) < limit {
		if err := ctx.Err(); err != nil {
			return models, err
		}
		r, err := decider.CheckSat(ctx)
		if err != nil {
			return models, err
		}
		if r != ResultSat {
			break
		}
		m, err := decider.Model(atoms)
		if err != nil {
			return models, err
		}
		models = append(models, m)

		if err := decider.BlockLastModel(); err != nil {
			return models, err
		}
	}
	return models, nil
}
