package formula

import (
	"fmt"
	"sort"
	"strings"
	"unsafe"
)

type internalFormula interface {
	kind() int
	String() string
	hash() uint64
	rawPtr() uintptr
	freeAtoms() map[string]bool
	freeReals() map[string]bool
}

// Formula is the opaque, pool-interned handle for a Boolean-valued node.
type Formula struct {
	e internalFormula
}

func wrapFormula(e internalFormula) *Formula { return &Formula{e: e} }

func (f *Formula) Kind() int      { return f.e.kind() }
func (f *Formula) String() string { return f.e.String() }
func (f *Formula) Id() uintptr    { return f.e.rawPtr() }

func (f *Formula) IsConst() bool { return f.e.kind() == KindBoolConst }

func (f *Formula) GetConst() (bool, error) {
	if f.e.kind() != KindBoolConst {
		return false, fmt.Errorf("formula: not a constant formula")
	}
	return f.e.(*internalBoolConst).Value, nil
}

func (f *Formula) AtomsOf() map[string]bool { return f.e.freeAtoms() }
func (f *Formula) RealsOf() map[string]bool { return f.e.freeReals() }

// NotChild returns the operand of a Not node.
func (f *Formula) NotChild() *Formula {
	n, ok := f.e.(*internalNot)
	if !ok {
		return nil
	}
	return n.Child
}

// NaryChildren returns the flattened operands of an And/Or node.
func (f *Formula) NaryChildren() []*Formula {
	n, ok := f.e.(*internalNary)
	if !ok {
		return nil
	}
	return n.children
}

// BinChildren returns the operands of a Xor/Iff/Implies node.
func (f *Formula) BinChildren() (*Formula, *Formula) {
	b, ok := f.e.(*internalBin)
	if !ok {
		return nil, nil
	}
	return b.lhs, b.rhs
}

// ITEChildren returns the condition and branches of a formula-level ITE.
func (f *Formula) ITEChildren() (*Formula, *Formula, *Formula) {
	ite, ok := f.e.(*internalFormulaITE)
	if !ok {
		return nil, nil, nil
	}
	return ite.Cond, ite.Then, ite.Else
}

// IsLRA reports whether f is a leaf LRA atom (not a Boolean propositional
// variable), i.e. whether it carries real-arithmetic content the
// enumerator's decision procedure must reason about rather than the
// enumerator's own propositional bookkeeping.
func (f *Formula) IsLRA() bool { return f.e.kind() == KindLRA }

func (f *Formula) LRAAtom() (*LinearAtom, bool) {
	a, ok := f.e.(*internalLRA)
	if !ok {
		return nil, false
	}
	return &a.Atom, true
}

func rawPtrOfFormula(e interface{}) uintptr {
	switch v := e.(type) {
	case *internalBoolConst:
		return uintptr(unsafe.Pointer(v))
	case *internalBoolVar:
		return uintptr(unsafe.Pointer(v))
	case *internalLRA:
		return uintptr(unsafe.Pointer(v))
	case *internalNot:
		return uintptr(unsafe.Pointer(v))
	case *internalNary:
		return uintptr(unsafe.Pointer(v))
	case *internalBin:
		return uintptr(unsafe.Pointer(v))
	case *internalFormulaITE:
		return uintptr(unsafe.Pointer(v))
	default:
		return 0
	}
}

type internalBoolConst struct{ Value bool }

func (e *internalBoolConst) kind() int       { return KindBoolConst }
func (e *internalBoolConst) rawPtr() uintptr { return rawPtrOfFormula(e) }
func (e *internalBoolConst) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}
func (e *internalBoolConst) freeAtoms() map[string]bool { return nil }
func (e *internalBoolConst) freeReals() map[string]bool { return nil }
func (e *internalBoolConst) hash() uint64               { return hashString(fmt.Sprintf("bc:%v", e.Value)) }

type internalBoolVar struct{ Name string }

func (e *internalBoolVar) kind() int       { return KindBoolVar }
func (e *internalBoolVar) rawPtr() uintptr { return rawPtrOfFormula(e) }
func (e *internalBoolVar) String() string  { return e.Name }
func (e *internalBoolVar) freeAtoms() map[string]bool {
	return map[string]bool{e.Name: true}
}
func (e *internalBoolVar) freeReals() map[string]bool { return nil }
func (e *internalBoolVar) hash() uint64               { return hashString("bv:" + e.Name) }

// LinearAtom is the canonical LRA comparison Sum(coeff*var) + Const OP 0.
type LinearAtom struct {
	Coeffs map[string]*Rational
	Const  *Rational
	Op     LRAOp2
}

// LRAOp2 extends LRAOp with equality: negation of <=/< folds into the
// opposite canonical operator (see LinearAtom.negated), while negation of an
// equality atom is not itself a single half-space and stays wrapped in Not.
type LRAOp2 int

const (
	AtomLE LRAOp2 = iota
	AtomLT
	AtomEQ
)

func (op LRAOp2) String() string {
	switch op {
	case AtomLE:
		return "<="
	case AtomLT:
		return "<"
	case AtomEQ:
		return "="
	}
	return "?"
}

func (a LinearAtom) String() string {
	keys := make([]string, 0, len(a.Coeffs))
	for k := range a.Coeffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s*%s", a.Coeffs[k].RatString(), k))
	}
	return fmt.Sprintf("%s + %s %s 0", strings.Join(parts, " + "), a.Const.RatString(), a.Op.String())
}

// negated returns the canonical negation of a <=/< atom. Equality atoms
// have no canonical negation in this representation (callers wrap them in
// Not instead); negated panics if called on one.
func (a LinearAtom) negated() LinearAtom {
	if a.Op == AtomEQ {
		panic("formula: equality atoms have no canonical LRA negation")
	}
	out := LinearAtom{Coeffs: make(map[string]*Rational, len(a.Coeffs)), Const: negRat(a.Const)}
	for k, v := range a.Coeffs {
		out.Coeffs[k] = negRat(v)
	}
	if a.Op == AtomLE {
		out.Op = AtomLT
	} else {
		out.Op = AtomLE
	}
	return out
}

type internalLRA struct {
	Atom LinearAtom
}

func (e *internalLRA) kind() int       { return KindLRA }
func (e *internalLRA) rawPtr() uintptr { return rawPtrOfFormula(e) }
func (e *internalLRA) String() string  { return e.Atom.String() }
func (e *internalLRA) freeAtoms() map[string]bool {
	return map[string]bool{e.Atom.String(): true}
}
func (e *internalLRA) freeReals() map[string]bool {
	out := map[string]bool{}
	for k := range e.Atom.Coeffs {
		out[k] = true
	}
	return out
}
func (e *internalLRA) hash() uint64 { return hashString("lra:" + e.Atom.String()) }

// internalNot caches its child's free-atom/free-real sets at construction
// time, the same discipline internalTermNary already applies to Plus/Times:
// AtomsOf/RealsOf are called per-node by the decomposer and enumerator, so
// every node kind stores its set alongside itself instead of re-walking.
type internalNot struct {
	Child *Formula
	atoms map[string]bool
	reals map[string]bool
}

func (e *internalNot) kind() int       { return KindNot }
func (e *internalNot) rawPtr() uintptr { return rawPtrOfFormula(e) }
func (e *internalNot) String() string  { return "!" + e.Child.String() }
func (e *internalNot) freeAtoms() map[string]bool { return e.atoms }
func (e *internalNot) freeReals() map[string]bool { return e.reals }
func (e *internalNot) hash() uint64               { return mixHash(hashString("not:"), uint64(e.Child.Id())) }

// internalNary backs flattened, sorted-by-Id And/Or nodes (teacher's
// BoolAnd/BoolOr take variadic children and flatten nested same-kind
// nodes at construction time; sorting the children by Id before hashing
// makes "a&&b" and "b&&a" hash-cons to the same node).
type internalNary struct {
	k        int
	children []*Formula
	atoms    map[string]bool
	reals    map[string]bool
}

func (e *internalNary) kind() int       { return e.k }
func (e *internalNary) rawPtr() uintptr { return rawPtrOfFormula(e) }
func (e *internalNary) String() string {
	op := " && "
	if e.k == KindOr {
		op = " || "
	}
	parts := make([]string, len(e.children))
	for i, c := range e.children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, op) + ")"
}
func (e *internalNary) freeAtoms() map[string]bool { return e.atoms }
func (e *internalNary) freeReals() map[string]bool { return e.reals }
func (e *internalNary) hash() uint64 {
	h := hashString(fmt.Sprintf("n%d:", e.k))
	for _, c := range e.children {
		h = mixHash(h, uint64(c.Id()))
	}
	return h
}

type internalBin struct {
	k        int
	lhs, rhs *Formula
	atoms    map[string]bool
	reals    map[string]bool
}

func (e *internalBin) kind() int       { return e.k }
func (e *internalBin) rawPtr() uintptr { return rawPtrOfFormula(e) }
func (e *internalBin) String() string {
	sym := map[int]string{KindXor: " xor ", KindIff: " <-> ", KindImplies: " -> "}[e.k]
	return "(" + e.lhs.String() + sym + e.rhs.String() + ")"
}
func (e *internalBin) freeAtoms() map[string]bool { return e.atoms }
func (e *internalBin) freeReals() map[string]bool { return e.reals }
func (e *internalBin) hash() uint64 {
	return mixHash(mixHash(hashString(fmt.Sprintf("b%d:", e.k)), uint64(e.lhs.Id())), uint64(e.rhs.Id()))
}

type internalFormulaITE struct {
	Cond, Then, Else *Formula
	atoms            map[string]bool
	reals            map[string]bool
}

func (e *internalFormulaITE) kind() int       { return KindFormulaITE }
func (e *internalFormulaITE) rawPtr() uintptr { return rawPtrOfFormula(e) }
func (e *internalFormulaITE) String() string {
	return fmt.Sprintf("ite(%s, %s, %s)", e.Cond.String(), e.Then.String(), e.Else.String())
}
func (e *internalFormulaITE) freeAtoms() map[string]bool { return e.atoms }
func (e *internalFormulaITE) freeReals() map[string]bool { return e.reals }
func (e *internalFormulaITE) hash() uint64 {
	return mixHash(mixHash(mixHash(hashString("fite:"), uint64(e.Cond.Id())), uint64(e.Then.Id())), uint64(e.Else.Id()))
}

func unionAtoms(fs []*Formula) map[string]bool {
	out := map[string]bool{}
	for _, f := range fs {
		for k := range f.AtomsOf() {
			out[k] = true
		}
	}
	return out
}

func unionReals(fs []*Formula) map[string]bool {
	out := map[string]bool{}
	for _, f := range fs {
		for k := range f.RealsOf() {
			out[k] = true
		}
	}
	return out
}

func negRat(r *Rational) *Rational {
	out := new(Rational)
	out.Neg(r)
	return out
}
