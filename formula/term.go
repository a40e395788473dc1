package formula

import (
	"fmt"
	"sort"
	"strings"
	"unsafe"
)

// internalTerm is the tagged-union interface every concrete term node
// implements, mirrored on the teacher's internalBVExpr.
type internalTerm interface {
	kind() int
	String() string
	hash() uint64
	rawPtr() uintptr
	freeReals() map[string]bool
}

// Term is the opaque, pool-interned handle application code holds.
// Two Terms denote the same node iff they share the same Id().
type Term struct {
	e internalTerm
}

func wrapTerm(e internalTerm) *Term { return &Term{e: e} }

func (t *Term) Kind() int   { return t.e.kind() }
func (t *Term) String() string { return t.e.String() }
func (t *Term) Id() uintptr { return t.e.rawPtr() }

func (t *Term) IsConst() bool { return t.e.kind() == KindRealConst }

func (t *Term) IsZero() bool {
	c, err := t.GetConst()
	return err == nil && c.Sign() == 0
}

func (t *Term) GetConst() (*Rational, error) {
	if t.e.kind() != KindRealConst {
		return nil, fmt.Errorf("formula: not a constant term")
	}
	return t.e.(*internalRealConst).Value, nil
}

func (t *Term) RealsOf() map[string]bool { return t.e.freeReals() }

// Children returns the flattened operands of a Plus/Times node.
func (t *Term) Children() []*Term {
	n, ok := t.e.(*internalTermNary)
	if !ok {
		return nil
	}
	return n.children
}

// BinChildren returns the operands of a Minus node.
func (t *Term) BinChildren() (*Term, *Term) {
	b, ok := t.e.(*internalTermBin)
	if !ok {
		return nil, nil
	}
	return b.lhs, b.rhs
}

// ITEChildren returns the condition and branches of a term-level ITE node.
func (t *Term) ITEChildren() (*Formula, *Term, *Term) {
	ite, ok := t.e.(*internalTermITE)
	if !ok {
		return nil, nil, nil
	}
	return ite.Cond, ite.Then, ite.Else
}

func rawPtrOf(e interface{}) uintptr {
	switch v := e.(type) {
	case *internalRealConst:
		return uintptr(unsafe.Pointer(v))
	case *internalRealVar:
		return uintptr(unsafe.Pointer(v))
	case *internalTermNary:
		return uintptr(unsafe.Pointer(v))
	case *internalTermBin:
		return uintptr(unsafe.Pointer(v))
	case *internalTermITE:
		return uintptr(unsafe.Pointer(v))
	default:
		return 0
	}
}

// internalRealConst is a leaf rational constant.
type internalRealConst struct {
	Value *Rational
}

func (e *internalRealConst) kind() int      { return KindRealConst }
func (e *internalRealConst) rawPtr() uintptr { return rawPtrOf(e) }
func (e *internalRealConst) String() string  { return e.Value.RatString() }
func (e *internalRealConst) freeReals() map[string]bool { return nil }
func (e *internalRealConst) hash() uint64 {
	return hashString("c:" + e.Value.RatString())
}

// internalRealVar is a free real-sorted variable.
type internalRealVar struct {
	Name string
}

func (e *internalRealVar) kind() int       { return KindRealVar }
func (e *internalRealVar) rawPtr() uintptr { return rawPtrOf(e) }
func (e *internalRealVar) String() string  { return e.Name }
func (e *internalRealVar) freeReals() map[string]bool {
	return map[string]bool{e.Name: true}
}
func (e *internalRealVar) hash() uint64 { return hashString("v:" + e.Name) }

// internalTermNary backs the associative, flattened Plus and Times nodes.
type internalTermNary struct {
	k        int
	children []*Term
	frees    map[string]bool
}

func (e *internalTermNary) kind() int       { return e.k }
func (e *internalTermNary) rawPtr() uintptr { return rawPtrOf(e) }
func (e *internalTermNary) freeReals() map[string]bool { return e.frees }
func (e *internalTermNary) String() string {
	op := " + "
	if e.k == KindTimes {
		op = " * "
	}
	parts := make([]string, len(e.children))
	for i, c := range e.children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, op) + ")"
}
func (e *internalTermNary) hash() uint64 {
	h := hashString(fmt.Sprintf("n%d:", e.k))
	for _, c := range e.children {
		h = mixHash(h, uint64(c.Id()))
	}
	return h
}

// internalTermBin backs Minus (kept binary: a - b is not associative, so
// it is never flattened the way Plus/Times are). Like internalTermNary's
// frees field, reals is computed once at construction rather than re-walked
// on every RealsOf call.
type internalTermBin struct {
	k        int
	lhs, rhs *Term
	reals    map[string]bool
}

func (e *internalTermBin) kind() int       { return e.k }
func (e *internalTermBin) rawPtr() uintptr { return rawPtrOf(e) }
func (e *internalTermBin) String() string  { return "(" + e.lhs.String() + " - " + e.rhs.String() + ")" }
func (e *internalTermBin) freeReals() map[string]bool { return e.reals }
func (e *internalTermBin) hash() uint64 {
	return mixHash(mixHash(hashString("b:"), uint64(e.lhs.Id())), uint64(e.rhs.Id()))
}

// internalTermITE is a term-level if-then-else: cond selects between two
// real-valued branches. This is the node the weight decomposer peels off
// into fresh condition labels.
type internalTermITE struct {
	Cond       *Formula
	Then, Else *Term
	reals      map[string]bool
}

func (e *internalTermITE) kind() int       { return KindTermITE }
func (e *internalTermITE) rawPtr() uintptr { return rawPtrOf(e) }
func (e *internalTermITE) String() string {
	return fmt.Sprintf("ite(%s, %s, %s)", e.Cond.String(), e.Then.String(), e.Else.String())
}
func (e *internalTermITE) freeReals() map[string]bool { return e.reals }
func (e *internalTermITE) hash() uint64 {
	return mixHash(mixHash(mixHash(hashString("ite:"), uint64(e.Cond.Id())), uint64(e.Then.Id())), uint64(e.Else.Id()))
}

func sortedReals(frees map[string]bool) []string {
	out := make([]string, 0, len(frees))
	for k := range frees {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
