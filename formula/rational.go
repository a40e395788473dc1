package formula

import "math/big"

// Rational is the exact-coefficient type threaded through LRA atoms and
// polynomial coefficients. The teacher carries bitvector constants through
// the DAG as *big.Int (see BVConst); reals in a WMI problem are not
// bounded-width, so the analogous exact type is *big.Rat.
type Rational = big.Rat

func RationalFromInt64(n int64) *Rational {
	return new(big.Rat).SetInt64(n)
}

func RationalFromFrac(num, den int64) *Rational {
	return new(big.Rat).SetFrac64(num, den)
}

func RationalFromString(s string) (*Rational, error) {
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return nil, errBadRational(s)
	}
	return r, nil
}

type errBadRational string

func (e errBadRational) Error() string { return "formula: not a rational literal: " + string(e) }

func RationalZero() *Rational { return new(big.Rat) }

func RationalOne() *Rational { return RationalFromInt64(1) }
