// Package wmi is the solver facade: it wires formula, weight, enumerate,
// polytope, and integrate together into the pipeline original_source/
// wmipa/wmi.py's WMI.computeWMI drives end to end --
// decompose(w) -> enumerate(support∧query∧skeleton) -> per-model
// (polytope, polynomial, k) -> integrate · 2^k -> accumulate.
package wmi

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/masinag/gowmi/enumerate"
	"github.com/masinag/gowmi/formula"
	"github.com/masinag/gowmi/integrate"
	"github.com/masinag/gowmi/polytope"
	"github.com/masinag/gowmi/weight"
)

// Enumerator is the subset of enumerate.Enumerator the solver depends on,
// mirrored here per spec.md §6 so callers can substitute a test double
// without importing the enumerate package's concrete types.
type Enumerator interface {
	Enumerate(ctx context.Context, support, query, skeleton *formula.Formula) (enumerate.Stream, error)
}

// Integrator is the subset of integrate.Integrator the solver depends on.
type Integrator interface {
	Integrate(ctx context.Context, p *polytope.Polytope, poly *polytope.Polynomial) (*big.Rat, error)
	IntegrateBatch(ctx context.Context, probs []integrate.Problem) ([]*big.Rat, error)
}

// Solver is the WMI engine: one instance per (enumerator, integrator,
// options) triple, reused across many Compute/ComputeMany calls the way
// teacher's Solver is built once around a backend and reused across many
// Clone/check calls. pool is the formula.Pool every support/weight/query
// argument to Compute must have been built from -- without it neither
// weight.Decompose nor polytope.DetectAliases/ApplySubstitute can build
// the fresh labels and substituted terms they need, so unlike spec.md
// §6's pseudocode signature, NewSolver takes it explicitly, the same way
// teacher's NewZ3Solver(eb *ExprBuilder) takes the builder its backend
// will operate against (see DESIGN.md).
type Solver struct {
	pool  *formula.Pool
	enum  Enumerator
	integ Integrator
	opts  Options
	log   *logrus.Logger
}

// NewSolver constructs a Solver. enum and integ must be non-nil.
func NewSolver(pool *formula.Pool, enum Enumerator, integ Integrator, opts Options) (*Solver, error) {
	if enum == nil {
		return nil, ErrNoEnumerator
	}
	if integ == nil {
		return nil, ErrNoIntegrator
	}
	if opts.Cache {
		if base, ok := integ.(integrate.Integrator); ok {
			integ = integrate.NewCache(base)
		}
	}
	return &Solver{pool: pool, enum: enum, integ: integ, opts: opts, log: logrus.New()}, nil
}

// Compute returns WMI(support∧query, weight): the sum, over every model μ
// of support∧query (weighted by weight), of 2^k · ∫_μ weight dx where k is
// the number of atoms μ leaves unassigned.
func (s *Solver) Compute(ctx context.Context, support *formula.Formula, w *formula.Term, query *formula.Formula) (*big.Rat, error) {
	if s.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Deadline)
		defer cancel()
	}

	skeleton, leafRegistry, err := weight.Decompose(s.pool, w)
	if err != nil {
		var uw *weight.UnsupportedWeightError
		if errors.As(err, &uw) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedWeight, err)
		}
		return nil, err
	}

	atoms := formula.CollectAtoms(s.pool.And(support, query, skeleton.Formula))

	stream, err := s.enum.Enumerate(ctx, support, query, skeleton.Formula)
	if err != nil {
		return nil, err
	}

	total := new(big.Rat)
	for {
		a, ok, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				if s.opts.BestEffort {
					s.log.Warn("wmi: deadline exceeded, returning partial result")
					return total, ErrPartialResult
				}
				return nil, fmt.Errorf("%w: %v", ErrEnumerationTimeout, err)
			}
			if errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			return nil, err
		}
		if !ok {
			break
		}

		s.log.WithField("k", a.K()).Debug("wmi: integrating model")
		contribution, err := s.integrateModel(ctx, atoms, leafRegistry, a)
		if err != nil {
			return nil, err
		}
		total.Add(total, contribution)
	}
	return total, nil
}

// ComputeMany evaluates Compute's pipeline for every query against the
// same support/weight, decomposing the weight once and batching every
// query's per-model integrations through a single integrate.Dispatcher so
// models from different queries can be integrated concurrently.
func (s *Solver) ComputeMany(ctx context.Context, support *formula.Formula, w *formula.Term, queries []*formula.Formula) ([]*big.Rat, error) {
	if s.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Deadline)
		defer cancel()
	}

	skeleton, leafRegistry, err := weight.Decompose(s.pool, w)
	if err != nil {
		var uw *weight.UnsupportedWeightError
		if errors.As(err, &uw) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedWeight, err)
		}
		return nil, err
	}

	type job struct {
		queryIdx int
		k        int
		p        *polytope.Polytope
		poly     *polytope.Polynomial
	}
	var jobs []job

	for qi, query := range queries {
		atoms := formula.CollectAtoms(s.pool.And(support, query, skeleton.Formula))
		stream, err := s.enum.Enumerate(ctx, support, query, skeleton.Formula)
		if err != nil {
			return nil, err
		}
		for {
			a, ok, err := stream.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			p, poly, err := s.buildRegion(atoms, leafRegistry, a)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job{queryIdx: qi, k: a.K(), p: p, poly: poly})
		}
	}

	base, ok := s.integ.(integrate.Integrator)
	if !ok {
		return nil, fmt.Errorf("%w: configured integrator does not satisfy integrate.Integrator for batched dispatch", ErrInternalInconsistency)
	}
	dispatcher := integrate.NewDispatcher(base, s.opts.Workers)
	probs := make([]integrate.Problem, len(jobs))
	for i, j := range jobs {
		probs[i] = integrate.Problem{Polytope: j.p, Polynomial: j.poly}
	}
	values, err := dispatcher.IntegrateBatch(ctx, probs)
	if err != nil {
		return nil, err
	}

	totals := make([]*big.Rat, len(queries))
	for i := range totals {
		totals[i] = new(big.Rat)
	}
	for i, j := range jobs {
		factor := new(big.Int).Lsh(big.NewInt(1), uint(j.k))
		contribution := new(big.Rat).Mul(values[i], new(big.Rat).SetInt(factor))
		totals[j.queryIdx].Add(totals[j.queryIdx], contribution)
	}
	return totals, nil
}

// integrateModel converts one model into its (polytope, polynomial) pair,
// integrates it, and scales the result by 2^k for the model's free atoms.
func (s *Solver) integrateModel(ctx context.Context, atoms map[string]*formula.Formula, lr *weight.LeafRegistry, a enumerate.Assignment) (*big.Rat, error) {
	p, poly, err := s.buildRegion(atoms, lr, a)
	if err != nil {
		return nil, err
	}
	val, err := s.integ.Integrate(ctx, p, poly)
	if err != nil {
		return nil, err
	}
	factor := new(big.Int).Lsh(big.NewInt(1), uint(a.K()))
	return new(big.Rat).Mul(val, new(big.Rat).SetInt(factor)), nil
}

// buildRegion resolves a's leaf term, converts a's assignment into a
// Polytope, detects and applies any x=e aliases, and returns the
// alias-eliminated (polytope, polynomial) pair integrate.Integrator
// expects.
func (s *Solver) buildRegion(atoms map[string]*formula.Formula, lr *weight.LeafRegistry, a enumerate.Assignment) (*polytope.Polytope, *polytope.Polynomial, error) {
	leafTerm, err := lr.Leaf(a.Assigned)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrLeafUnderdetermined, err)
	}

	p, err := polytope.FromAssignment(atoms, a.Assigned)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalInconsistency, err)
	}

	aliases, err := polytope.DetectAliases(s.pool, atoms, a.Assigned)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalInconsistency, err)
	}
	ordered, err := polytope.OrderAliases(aliases)
	if err != nil {
		var cyc *polytope.CyclicAliasError
		if errors.As(err, &cyc) {
			return nil, nil, fmt.Errorf("%w: %v", ErrInternalInconsistency, err)
		}
		return nil, nil, err
	}

	poly, err := polytope.FromLinearTerm(leafTerm)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedWeight, err)
	}

	p, poly, err = polytope.ApplySubstitute(s.pool, p, poly, ordered)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalInconsistency, err)
	}
	return p, poly, nil
}
