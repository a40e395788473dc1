package integrate

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/masinag/gowmi/polytope"
)

// Dispatcher fans a batch of (Polytope, Polynomial) jobs out over a bounded
// worker pool, grounded on
// _examples/jinterlante1206-AleutianLocal/services/trace/analysis/
// enhanced_analyzer.go's errgroup.WithContext fan-out/fan-in pattern
// ("Run enrichers in parallel ... slow enrichers don't block response"),
// applied to base-integrator calls instead of enrichers. A
// golang.org/x/sync/semaphore.Weighted caps how many base integrator calls
// run at once; workers never abort an in-flight call early, they simply
// stop picking up new ones once the group's context is cancelled.
type Dispatcher struct {
	base    Integrator
	workers int
}

// NewDispatcher returns a Dispatcher running at most workers base
// integrator calls concurrently. workers <= 0 means unbounded (one
// goroutine per job).
func NewDispatcher(base Integrator, workers int) *Dispatcher {
	return &Dispatcher{base: base, workers: workers}
}

// IntegrateBatch runs every problem through the base integrator, up to
// d.workers at a time, and blocks (g.Wait()) until all of them finish or
// one fails. The first error cancels the shared context and aborts
// unstarted jobs; jobs already running finish normally.
func (d *Dispatcher) IntegrateBatch(ctx context.Context, probs []Problem) ([]*big.Rat, error) {
	out := make([]*big.Rat, len(probs))
	if len(probs) == 0 {
		return out, nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	var sem *semaphore.Weighted
	if d.workers > 0 {
		sem = semaphore.NewWeighted(int64(d.workers))
	}

	for i, pr := range probs {
		i, pr := i, pr
		g.Go(func() error {
			if sem != nil {
				if err := sem.Acquire(gCtx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
			}
			v, err := d.base.Integrate(gCtx, pr.Polytope, pr.Polynomial)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Integrate runs a single problem directly through the base integrator,
// bypassing the worker pool -- the pool only pays off when batching.
func (d *Dispatcher) Integrate(ctx context.Context, p *polytope.Polytope, poly *polytope.Polynomial) (*big.Rat, error) {
	return d.base.Integrate(ctx, p, poly)
}
