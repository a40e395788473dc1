// Package lp implements a small exact-rational linear program solver: no
// LP library appears anywhere in the retrieved example pack (see
// DESIGN.md), so the polytope package's redundant-half-space removal and
// the integrate package's bounding-box/feasibility queries are backed by
// this from-scratch two-phase primal simplex instead.
package lp

import (
	"errors"
	"math/big"
)

// ErrIterationLimit is returned if the simplex fails to terminate within
// a generous iteration bound -- a defensive backstop, not something the
// low-dimensional polytopes this solver builds should ever trigger.
var ErrIterationLimit = errors.New("lp: simplex iteration limit exceeded")

// Constraint is Sum(Coeffs[v]*v) <= RHS, one row of a Problem.
type Constraint struct {
	Coeffs map[string]*big.Rat
	RHS    *big.Rat
}

// Problem is a linear program over free-signed real variables Vars,
// subject to every Constraint, to be minimized against some objective
// supplied to Minimize.
type Problem struct {
	Vars        []string
	Constraints []Constraint
}

// Result is the outcome of Minimize.
type Result struct {
	Feasible  bool
	Unbounded bool
	Optimum   *big.Rat
	Point     map[string]*big.Rat
}

const maxIter = 10000

// Minimize solves min(objective . x) subject to p's constraints via a
// two-phase primal simplex with Bland's pivoting rule (always choose the
// lowest-index eligible entering column and, on ties, the lowest-index
// leaving basic variable), which guarantees termination without
// degenerate cycling.
//
// Free-signed variables are split x = u - v, u,v >= 0 (doubling the
// column count) since the simplex method itself only handles
// nonnegativity-constrained variables; constraint rows with negative RHS
// are sign-flipped and given a surplus+artificial pair so every row
// starts with a feasible nonnegative basic variable.
func Minimize(p Problem, objective map[string]*big.Rat) (Result, error) {
	n := len(p.Vars)
	m := len(p.Constraints)
	varIdx := make(map[string]int, n)
	for i, v := range p.Vars {
		varIdx[v] = i
	}

	type rowSpec struct {
		coeffU, coeffV []*big.Rat
		rhs            *big.Rat
		flipped        bool
	}
	rows := make([]rowSpec, m)
	numArtificial := 0
	for i, c := range p.Constraints {
		u := make([]*big.Rat, n)
		v := make([]*big.Rat, n)
		for j := range u {
			u[j] = new(big.Rat)
			v[j] = new(big.Rat)
		}
		for name, coeff := range c.Coeffs {
			j, ok := varIdx[name]
			if !ok {
				continue
			}
			u[j].Set(coeff)
			v[j].Neg(coeff)
		}
		rhs := new(big.Rat).Set(c.RHS)
		flipped := rhs.Sign() < 0
		if flipped {
			for j := range u {
				u[j].Neg(u[j])
				v[j].Neg(v[j])
			}
			rhs.Neg(rhs)
			numArtificial++
		}
		rows[i] = rowSpec{coeffU: u, coeffV: v, rhs: rhs, flipped: flipped}
	}

	// Column layout: [u_0..u_{n-1}, v_0..v_{n-1}, s_0..s_{m-1}, r_... ]
	slackOffset := 2 * n
	artOffset := slackOffset + m
	cols := artOffset + numArtificial

	T := make([][]*big.Rat, m)
	basis := make([]int, m)
	artificialCols := map[int]bool{}
	artCounter := 0
	for i, r := range rows {
		row := make([]*big.Rat, cols+1)
		for j := range row {
			row[j] = new(big.Rat)
		}
		for j := 0; j < n; j++ {
			row[j].Set(r.coeffU[j])
			row[n+j].Set(r.coeffV[j])
		}
		row[cols] = new(big.Rat).Set(r.rhs)
		if r.flipped {
			row[slackOffset+i].SetInt64(-1)
			artCol := artOffset + artCounter
			row[artCol].SetInt64(1)
			basis[i] = artCol
			artificialCols[artCol] = true
			artCounter++
		} else {
			row[slackOffset+i].SetInt64(1)
			basis[i] = slackOffset + i
		}
		T[i] = row
	}

	// Phase 1: minimize the sum of artificial variables.
	if numArtificial > 0 {
		cPhase1 := make([]*big.Rat, cols+1)
		for j := range cPhase1 {
			cPhase1[j] = new(big.Rat)
		}
		for col := range artificialCols {
			cPhase1[col].SetInt64(1)
		}
		cost := initCost(T, cPhase1, basis, cols)
		none := map[int]bool{}
		ok, unbounded, err := runSimplex(T, cost, basis, m, cols, none)
		if err != nil {
			return Result{}, err
		}
		if unbounded {
			// sum-of-artificials is bounded below by 0; an unbounded
			// phase-1 LP indicates a construction bug, not a real model.
			return Result{}, errors.New("lp: phase 1 reported unbounded (internal inconsistency)")
		}
		_ = ok
		phase1Obj := new(big.Rat).Neg(cost[cols])
		if phase1Obj.Sign() > 0 {
			return Result{Feasible: false}, nil
		}
	}

	// Phase 2: minimize the real objective, with artificial columns
	// permanently barred from re-entering the basis.
	cPhase2 := make([]*big.Rat, cols+1)
	for j := range cPhase2 {
		cPhase2[j] = new(big.Rat)
	}
	for name, coeff := range objective {
		j, ok := varIdx[name]
		if !ok {
			continue
		}
		cPhase2[j].Set(coeff)
		cPhase2[n+j].Neg(coeff)
	}
	cost := initCost(T, cPhase2, basis, cols)
	ok, unbounded, err := runSimplex(T, cost, basis, m, cols, artificialCols)
	if err != nil {
		return Result{}, err
	}
	if unbounded {
		return Result{Unbounded: true, Feasible: true}, nil
	}
	_ = ok

	point := make(map[string]*big.Rat, n)
	uv := make([]*big.Rat, 2*n)
	for j := range uv {
		uv[j] = new(big.Rat)
	}
	for i := 0; i < m; i++ {
		if basis[i] < 2*n {
			uv[basis[i]].Set(T[i][cols])
		}
	}
	for j, name := range p.Vars {
		point[name] = new(big.Rat).Sub(uv[j], uv[n+j])
	}
	optimum := new(big.Rat).Neg(cost[cols])
	return Result{Feasible: true, Optimum: optimum, Point: point}, nil
}

// Feasible reports whether p's constraints admit any solution, by running
// phase 1 of Minimize alone (the zero objective makes phase 2 a no-op
// that preserves the phase-1 feasible point).
func Feasible(p Problem) (bool, map[string]*big.Rat, error) {
	res, err := Minimize(p, map[string]*big.Rat{})
	if err != nil {
		return false, nil, err
	}
	return res.Feasible, res.Point, nil
}

// initCost computes the reduced-cost row for a cost vector c (length
// cols+1, c[cols] conventionally 0) against T's current basis: cost[j] =
// c[j] - sum_i c[basis[i]] * T[i][j]. cost[cols] ends up -(objective value
// of the current basic solution).
func initCost(T [][]*big.Rat, c []*big.Rat, basis []int, cols int) []*big.Rat {
	cost := make([]*big.Rat, cols+1)
	for j := 0; j <= cols; j++ {
		cost[j] = new(big.Rat).Set(c[j])
	}
	for i, bcol := range basis {
		cb := c[bcol]
		if cb.Sign() == 0 {
			continue
		}
		for j := 0; j <= cols; j++ {
			cost[j].Sub(cost[j], new(big.Rat).Mul(cb, T[i][j]))
		}
	}
	return cost
}

// runSimplex pivots T/cost/basis to optimality using Bland's rule,
// skipping any column index present in barred as a candidate to enter.
func runSimplex(T [][]*big.Rat, cost []*big.Rat, basis []int, rows, cols int, barred map[int]bool) (optimal, unbounded bool, err error) {
	for iter := 0; iter < maxIter; iter++ {
		enter := -1
		for j := 0; j < cols; j++ {
			if barred[j] {
				continue
			}
			if cost[j].Sign() < 0 {
				enter = j
				break
			}
		}
		if enter == -1 {
			return true, false, nil
		}
		leave := -1
		var bestRatio *big.Rat
		for i := 0; i < rows; i++ {
			if T[i][enter].Sign() <= 0 {
				continue
			}
			ratio := new(big.Rat).Quo(T[i][cols], T[i][enter])
			if leave == -1 || ratio.Cmp(bestRatio) < 0 || (ratio.Cmp(bestRatio) == 0 && basis[i] < basis[leave]) {
				leave = i
				bestRatio = ratio
			}
		}
		if leave == -1 {
			return false, true, nil
		}
		pivot(T, cost, basis, rows, cols, leave, enter)
	}
	return false, false, ErrIterationLimit
}

func pivot(T [][]*big.Rat, cost []*big.Rat, basis []int, rows, cols, pr, pc int) {
	pivotVal := new(big.Rat).Set(T[pr][pc])
	for j := 0; j <= cols; j++ {
		T[pr][j].Quo(T[pr][j], pivotVal)
	}
	for i := 0; i < rows; i++ {
		if i == pr {
			continue
		}
		factor := new(big.Rat).Set(T[i][pc])
		if factor.Sign() == 0 {
			continue
		}
		for j := 0; j <= cols; j++ {
			T[i][j].Sub(T[i][j], new(big.Rat).Mul(factor, T[pr][j]))
		}
	}
	factor := new(big.Rat).Set(cost[pc])
	if factor.Sign() != 0 {
		for j := 0; j <= cols; j++ {
			cost[j].Sub(cost[j], new(big.Rat).Mul(factor, T[pr][j]))
		}
	}
	basis[pr] = pc
}
