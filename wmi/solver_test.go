package wmi

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masinag/gowmi/enumerate"
	"github.com/masinag/gowmi/formula"
	"github.com/masinag/gowmi/integrate"
)

// fakeStream replays a fixed slice of assignments, the minimal Stream a
// test needs when it wants to hand the solver a known (assignment, k)
// sequence without driving a real SAT backend.
type fakeStream struct {
	items []enumerate.Assignment
	idx   int
}

func (s *fakeStream) Next(ctx context.Context) (enumerate.Assignment, bool, error) {
	if s.idx >= len(s.items) {
		return enumerate.Assignment{}, false, nil
	}
	a := s.items[s.idx]
	s.idx++
	return a, true, nil
}

func (s *fakeStream) Cancel()                {}
func (s *fakeStream) State() enumerate.State { return enumerate.StateDone }

type fakeEnumerator struct {
	models []enumerate.Assignment
}

func (f *fakeEnumerator) Enumerate(ctx context.Context, support, query, skeleton *formula.Formula) (enumerate.Stream, error) {
	return &fakeStream{items: f.models}, nil
}

// TestComputeScaledByTotalizationFactor exercises the full buildRegion
// pipeline (FromAssignment, DetectAliases/OrderAliases/ApplySubstitute,
// FromLinearTerm) against integrate.ExactIntegrator, mirroring spec.md's
// Scenario E: a weight that is irrelevant to an unassigned Boolean atom B
// must still come out scaled by 2^1, since the single emitted cell stands
// for both totalizations of B.
func TestComputeScaledByTotalizationFactor(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	zero := pool.RealConst(formula.RationalZero())
	one := pool.RealConst(formula.RationalFromInt64(1))

	lower, err := pool.LRA(x, ">=", zero)
	require.NoError(t, err)
	upper, err := pool.LRA(x, "<=", one)
	require.NoError(t, err)

	b := pool.BoolVar("B")
	support := pool.And(lower, upper, pool.Or(b, pool.Not(b)))
	query := pool.BoolConst(true)

	a := pool.BoolVar("A")
	weightTerm := pool.TermITE(a, x, x) // then == else: folds away A entirely

	enum := &fakeEnumerator{models: []enumerate.Assignment{
		{
			Assigned: map[string]bool{lower.String(): true, upper.String(): true},
			Free:     []string{"B"},
		},
	}}

	s, err := NewSolver(pool, enum, integrate.NewExactIntegrator(), DefaultOptions())
	require.NoError(t, err)

	result, err := s.Compute(context.Background(), support, weightTerm, query)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(1, 1), result, "2^1 * integral_0^1 x dx == 2 * 1/2 == 1")
}

func TestComputeMultipleModelsSum(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	zero := pool.RealConst(formula.RationalZero())
	one := pool.RealConst(formula.RationalFromInt64(1))
	two := pool.RealConst(formula.RationalFromInt64(2))

	lower, err := pool.LRA(x, ">=", zero)
	require.NoError(t, err)
	mid, err := pool.LRA(x, "<=", one)
	require.NoError(t, err)
	upper, err := pool.LRA(x, "<=", two)
	require.NoError(t, err)

	support := pool.And(lower, pool.Or(mid, upper))
	query := pool.BoolConst(true)
	weightTerm := pool.RealConst(formula.RationalFromInt64(1))

	// cell 1: 0<=x<=1 (weight 1, volume 1); cell 2: 0<=x<=2 exclusive of
	// cell 1's region is not enforced here -- this only checks summation
	// across multiple emitted models, not disjointness (that's the
	// enumerator's contract, tested in the enumerate package).
	enum := &fakeEnumerator{models: []enumerate.Assignment{
		{Assigned: map[string]bool{lower.String(): true, mid.String(): true}},
		{Assigned: map[string]bool{lower.String(): true, upper.String(): true}},
	}}

	s, err := NewSolver(pool, enum, integrate.NewExactIntegrator(), DefaultOptions())
	require.NoError(t, err)

	result, err := s.Compute(context.Background(), support, weightTerm, query)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(3, 1), result, "volume 1 (cell 1) + volume 2 (cell 2) == 3")
}

func TestNewSolverRequiresEnumeratorAndIntegrator(t *testing.T) {
	pool := formula.NewPool()
	_, err := NewSolver(pool, nil, integrate.NewExactIntegrator(), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoEnumerator)

	_, err = NewSolver(pool, &fakeEnumerator{}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoIntegrator)
}

func TestComputeRejectsNonlinearWeight(t *testing.T) {
	pool := formula.NewPool()
	x := pool.RealVar("x")
	nonlinear := pool.Times(x, x)

	s, err := NewSolver(pool, &fakeEnumerator{}, integrate.NewExactIntegrator(), DefaultOptions())
	require.NoError(t, err)

	_, err = s.Compute(context.Background(), pool.BoolConst(true), nonlinear, pool.BoolConst(true))
	assert.ErrorIs(t, err, ErrUnsupportedWeight)
}
