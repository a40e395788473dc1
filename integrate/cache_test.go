package integrate

import (
	"bytes"
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masinag/gowmi/formula"
	"github.com/masinag/gowmi/polytope"
)

// countingIntegrator wraps a fixed return value and counts how many times
// Integrate actually ran its body, so tests can assert Cache collapses
// repeat/concurrent requests for the same fingerprint into one call.
type countingIntegrator struct {
	calls int64
	delay time.Duration
	value *big.Rat
}

func (c *countingIntegrator) Integrate(ctx context.Context, p *polytope.Polytope, poly *polytope.Polynomial) (*big.Rat, error) {
	atomic.AddInt64(&c.calls, 1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return new(big.Rat).Set(c.value), nil
}

func (c *countingIntegrator) IntegrateBatch(ctx context.Context, probs []Problem) ([]*big.Rat, error) {
	out := make([]*big.Rat, len(probs))
	for i, p := range probs {
		v, err := c.Integrate(ctx, p.Polytope, p.Polynomial)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func unitBoxProblem() (*polytope.Polytope, *polytope.Polynomial) {
	one := formula.RationalFromInt64(1)
	zero := formula.RationalZero()
	neg1 := formula.RationalFromInt64(-1)
	p := polytope.NewPolytope(
		polytope.HalfSpace{Coeffs: map[string]*formula.Rational{"x": neg1}, Const: zero},
		polytope.HalfSpace{Coeffs: map[string]*formula.Rational{"x": one}, Const: new(formula.Rational).Neg(one)},
	)
	poly := polytope.NewPolynomial()
	poly.AddTerm(one, polytope.Monomial{})
	return p, poly
}

func TestCacheHitAvoidsSecondCall(t *testing.T) {
	base := &countingIntegrator{value: big.NewRat(5, 1)}
	c := NewCache(base)
	p, poly := unitBoxProblem()

	v1, err := c.Integrate(context.Background(), p, poly)
	require.NoError(t, err)
	v2, err := c.Integrate(context.Background(), p, poly)
	require.NoError(t, err)

	assert.Equal(t, big.NewRat(5, 1), v1)
	assert.Equal(t, big.NewRat(5, 1), v2)
	assert.EqualValues(t, 1, atomic.LoadInt64(&base.calls))
}

func TestCacheSingleflightDedupesConcurrentMiss(t *testing.T) {
	base := &countingIntegrator{value: big.NewRat(7, 1), delay: 20 * time.Millisecond}
	c := NewCache(base)
	p, poly := unitBoxProblem()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Integrate(context.Background(), p, poly)
			assert.NoError(t, err)
			assert.Equal(t, big.NewRat(7, 1), v)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&base.calls))
}

func TestCacheSaveLoadRoundTrip(t *testing.T) {
	base := &countingIntegrator{value: big.NewRat(3, 2)}
	c := NewCache(base)
	p, poly := unitBoxProblem()
	_, err := c.Integrate(context.Background(), p, poly)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.SaveTo(&buf))

	restored := NewCache(&countingIntegrator{value: big.NewRat(999, 1)})
	require.NoError(t, restored.LoadFrom(&buf))

	v, err := restored.Integrate(context.Background(), p, poly)
	require.NoError(t, err)
	assert.Equal(t, big.NewRat(3, 2), v, "loaded cache entry should shadow the wrapped integrator's own value")
}
