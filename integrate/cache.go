package integrate

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/masinag/gowmi/polytope"
)

// CanonicalFingerprint builds a sorted, structural string key for (p, poly):
// the Cache equivalent of teacher's hash() methods building a structural
// hash from a symbol plus child pointers, replayed here over half-spaces
// and monomials rather than DAG children, so that two requests asking for
// the integral of the same region/integrand pair always collide in Cache
// regardless of the order their half-spaces or terms happen to be in.
func CanonicalFingerprint(p *polytope.Polytope, poly *polytope.Polynomial) string {
	var b strings.Builder

	hs := append([]polytope.HalfSpace{}, p.HalfSpaces...)
	hsKeys := make([]string, len(hs))
	for i, h := range hs {
		hsKeys[i] = halfSpaceKey(h)
	}
	sort.Strings(hsKeys)
	b.WriteString(strings.Join(hsKeys, "|"))
	b.WriteString(";;")

	terms := poly.Terms()
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s:%s,", k, poly.Coeff(k).RatString())
	}
	return b.String()
}

func halfSpaceKey(h polytope.HalfSpace) string {
	vars := make([]string, 0, len(h.Coeffs))
	for v := range h.Coeffs {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	var b strings.Builder
	for _, v := range vars {
		fmt.Fprintf(&b, "%s*%s+", h.Coeffs[v].RatString(), v)
	}
	fmt.Fprintf(&b, "%s<=0[strict=%v]", h.Const.RatString(), h.Strict)
	return b.String()
}

// gobEntry is the on-disk/on-wire representation of one Cache entry;
// big.Rat already implements gob.GobEncoder/GobDecoder, so a flat struct
// is enough for encoding/gob to round-trip the fingerprint->rational map.
type gobEntry struct {
	Fingerprint string
	Value       *big.Rat
}

// Cache wraps a base Integrator with a sync.Map-backed concurrent result
// cache keyed by CanonicalFingerprint, deduplicating concurrent requests
// for the same fingerprint with golang.org/x/sync/singleflight the way
// _examples/jinterlante1206-AleutianLocal/services/trace/graph/
// crs_adapter.go's analytics cache does ("prevent thundering herd on cache
// miss"), applied here to concurrent integration requests instead of
// concurrent graph-analytics requests.
type Cache struct {
	base   Integrator
	values sync.Map // fingerprint string -> *big.Rat
	flight singleflight.Group

	mu   sync.Mutex
	hits int64
	miss int64
}

// NewCache wraps base with a fingerprint-keyed result cache.
func NewCache(base Integrator) *Cache {
	return &Cache{base: base}
}

func (c *Cache) Integrate(ctx context.Context, p *polytope.Polytope, poly *polytope.Polynomial) (*big.Rat, error) {
	key := CanonicalFingerprint(p, poly)
	if v, ok := c.values.Load(key); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return new(big.Rat).Set(v.(*big.Rat)), nil
	}

	c.mu.Lock()
	c.miss++
	c.mu.Unlock()

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		result, err := c.base.Integrate(ctx, p, poly)
		if err != nil {
			return nil, err
		}
		c.values.Store(key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return new(big.Rat).Set(v.(*big.Rat)), nil
}

func (c *Cache) IntegrateBatch(ctx context.Context, probs []Problem) ([]*big.Rat, error) {
	out := make([]*big.Rat, len(probs))
	for i, pr := range probs {
		v, err := c.Integrate(ctx, pr.Polytope, pr.Polynomial)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Stats reports cumulative hit/miss counts since construction.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.miss
}

// SaveTo persists the current cache contents to w via encoding/gob --
// spec.md §6's "Persisted state": no serialization library beyond
// YAML/JSON-patch tooling appears anywhere in the pack for a flat
// fingerprint->rational map, so the standard library's gob codec is used
// directly (see DESIGN.md).
func (c *Cache) SaveTo(w io.Writer) error {
	var entries []gobEntry
	c.values.Range(func(k, v interface{}) bool {
		entries = append(entries, gobEntry{Fingerprint: k.(string), Value: v.(*big.Rat)})
		return true
	})
	return gob.NewEncoder(w).Encode(entries)
}

// LoadFrom replaces the cache's contents with entries decoded from r.
func (c *Cache) LoadFrom(r io.Reader) error {
	var entries []gobEntry
	if err := gob.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("integrate: loading cache: %w", err)
	}
	for _, e := range entries {
		c.values.Store(e.Fingerprint, e.Value)
	}
	return nil
}
