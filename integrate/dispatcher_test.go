package integrate

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masinag/gowmi/polytope"
)

func TestDispatcherIntegrateBatchRunsAllJobs(t *testing.T) {
	base := &countingIntegrator{value: big.NewRat(2, 1)}
	d := NewDispatcher(base, 4)

	p, poly := unitBoxProblem()
	probs := make([]Problem, 10)
	for i := range probs {
		probs[i] = Problem{Polytope: p, Polynomial: poly}
	}

	out, err := d.IntegrateBatch(context.Background(), probs)
	require.NoError(t, err)
	assert.Len(t, out, 10)
	for _, v := range out {
		assert.Equal(t, big.NewRat(2, 1), v)
	}
	assert.EqualValues(t, 10, atomic.LoadInt64(&base.calls))
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight int64
	base := &trackingIntegrator{
		onStart: func() {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&maxInFlight)
				if cur <= old || atomic.CompareAndSwapInt64(&maxInFlight, old, cur) {
					break
				}
			}
		},
		onEnd: func() { atomic.AddInt64(&inFlight, -1) },
		delay: 10 * time.Millisecond,
		value: big.NewRat(1, 1),
	}
	d := NewDispatcher(base, 2)

	p, poly := unitBoxProblem()
	probs := make([]Problem, 8)
	for i := range probs {
		probs[i] = Problem{Polytope: p, Polynomial: poly}
	}

	_, err := d.IntegrateBatch(context.Background(), probs)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&maxInFlight), int64(2))
}

func TestDispatcherEmptyBatch(t *testing.T) {
	base := &countingIntegrator{value: big.NewRat(1, 1)}
	d := NewDispatcher(base, 2)
	out, err := d.IntegrateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// trackingIntegrator lets TestDispatcherBoundsConcurrency observe how many
// Integrate calls are in flight at once.
type trackingIntegrator struct {
	onStart func()
	onEnd   func()
	delay   time.Duration
	value   *big.Rat
}

func (t *trackingIntegrator) Integrate(ctx context.Context, p *polytope.Polytope, poly *polytope.Polynomial) (*big.Rat, error) {
	t.onStart()
	defer t.onEnd()
	time.Sleep(t.delay)
	return new(big.Rat).Set(t.value), nil
}

func (t *trackingIntegrator) IntegrateBatch(ctx context.Context, probs []Problem) ([]*big.Rat, error) {
	out := make([]*big.Rat, len(probs))
	for i, p := range probs {
		v, err := t.Integrate(ctx, p.Polytope, p.Polynomial)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
