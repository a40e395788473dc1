package integrate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulatorAddFloat(t *testing.T) {
	var acc Accumulator
	for i := 0; i < 1000; i++ {
		acc.AddFloat(0.001)
	}
	assert.InDelta(t, 1.0, acc.Float(), 1e-9)
}

func TestAccumulatorAddExact(t *testing.T) {
	var acc Accumulator
	acc.Add(big.NewRat(1, 3), big.NewInt(1))
	acc.Add(big.NewRat(1, 3), big.NewInt(1))
	acc.Add(big.NewRat(1, 3), big.NewInt(1))
	assert.Equal(t, big.NewRat(1, 1), acc.Rat())
}

func TestAccumulatorAddExactWithFactor(t *testing.T) {
	var acc Accumulator
	acc.Add(big.NewRat(1, 2), big.NewInt(4))
	assert.Equal(t, big.NewRat(2, 1), acc.Rat())
}

func TestAccumulatorZeroValue(t *testing.T) {
	var acc Accumulator
	assert.Equal(t, 0.0, acc.Float())
	assert.Equal(t, new(big.Rat), acc.Rat())
}
