package integrate

import "math/big"

// Accumulator sums a large number of values while keeping both an exact
// rational running total (for backends like ExactIntegrator, where every
// contribution is already rational and there is no reason to round) and a
// Kahan-compensated float64 running total (for RejectionIntegrator, where
// each sample's integrand value only ever existed as a float64 in the
// first place, and plain float addition would otherwise lose the low bits
// of millions of small terms). No careful-summation helper exists anywhere
// in the retrieved pack, so the compensated-summation technique itself is
// implemented directly; see DESIGN.md.
type Accumulator struct {
	exact *big.Rat

	sum float64
	c   float64 // running compensation
}

// Add accumulates value*factor/1 into the exact running total.
func (a *Accumulator) Add(value *big.Rat, factor *big.Int) {
	if a.exact == nil {
		a.exact = new(big.Rat)
	}
	scaled := new(big.Rat).Mul(value, new(big.Rat).SetInt(factor))
	a.exact.Add(a.exact, scaled)
}

// AddFloat folds v into the Kahan-compensated float64 running total.
func (a *Accumulator) AddFloat(v float64) {
	y := v - a.c
	t := a.sum + y
	a.c = (t - a.sum) - y
	a.sum = t
}

// Float returns the compensated float64 running total accumulated via
// AddFloat.
func (a *Accumulator) Float() float64 {
	return a.sum
}

// Rat returns the exact running total accumulated via Add.
func (a *Accumulator) Rat() *big.Rat {
	if a.exact == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(a.exact)
}
