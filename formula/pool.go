package formula

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

func hashString(s string) uint64 { return xxhash.Sum64String(s) }

// mixHash folds a child id into a running structural hash the same way the
// teacher's expr_builder.go combines a node's symbol with its children's
// raw pointers before bucketing into bvcache/boolcache.
func mixHash(h uint64, v uint64) uint64 {
	h ^= v
	h *= 0x100000001b3
	return h
}

// Pool is the hash-consing arena for both terms and formulas: the package
// analogue of the teacher's ExprBuilder. Every constructor first builds a
// candidate node, computes its structural hash, and looks it up in the
// appropriate bucket before allocating a new interned node -- identical
// structure always yields the identical *Term/*Formula, which the
// decomposer and enumerator both rely on for O(1) equality checks.
type Pool struct {
	mu sync.RWMutex

	termCache    map[uint64][]internalTerm
	formulaCache map[uint64][]internalFormula

	labelSeq uint64
}

func NewPool() *Pool {
	return &Pool{
		termCache:    map[uint64][]internalTerm{},
		formulaCache: map[uint64][]internalFormula{},
	}
}

func (p *Pool) internTerm(h uint64, candidate internalTerm, eq func(internalTerm) bool) *Term {
	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.termCache[h]
	for _, e := range bucket {
		if eq(e) {
			return wrapTerm(e)
		}
	}
	p.termCache[h] = append(bucket, candidate)
	return wrapTerm(candidate)
}

func (p *Pool) internFormula(h uint64, candidate internalFormula, eq func(internalFormula) bool) *Formula {
	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.formulaCache[h]
	for _, e := range bucket {
		if eq(e) {
			return wrapFormula(e)
		}
	}
	p.formulaCache[h] = append(bucket, candidate)
	return wrapFormula(candidate)
}

// FreshLabel allocates a new Boolean atom named $l<n>, distinct from every
// other label this pool has issued: the condition labels the weight
// decomposer introduces. A user variable given the same name interns to
// the same node.
func (p *Pool) FreshLabel() *Formula {
	n := atomic.AddUint64(&p.labelSeq, 1)
	return p.BoolVar(fmt.Sprintf("$l%d", n))
}

// Stats reports interning pool occupancy, mirroring the teacher's
// ExprBuilder.Stats counters (used by callers that want to log cache
// pressure without reaching into package internals).
type Stats struct {
	CachedTerms    int
	CachedFormulas int
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Stats{}
	for _, b := range p.termCache {
		s.CachedTerms += len(b)
	}
	for _, b := range p.formulaCache {
		s.CachedFormulas += len(b)
	}
	return s
}
