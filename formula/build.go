package formula

import (
	"fmt"
	"sort"
)

// Term constructors.

func (p *Pool) RealVar(name string) *Term {
	cand := &internalRealVar{Name: name}
	h := cand.hash()
	return p.internTerm(h, cand, func(e internalTerm) bool {
		o, ok := e.(*internalRealVar)
		return ok && o.Name == name
	})
}

func (p *Pool) RealConst(v *Rational) *Term {
	cand := &internalRealConst{Value: v}
	h := cand.hash()
	return p.internTerm(h, cand, func(e internalTerm) bool {
		o, ok := e.(*internalRealConst)
		return ok && o.Value.Cmp(v) == 0
	})
}

func sortTermsById(ts []*Term) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Id() < ts[j].Id() })
}

// Plus builds a flattened, constant-folded n-ary sum: nested Plus children
// are absorbed, constant children (including an absorbed sum's own
// constant) are collected into one constant leaf, and a single surviving
// child is returned unwrapped -- the same eager-simplification discipline
// as the teacher's mkinternalBVExprAdd.
func (p *Pool) Plus(terms ...*Term) *Term {
	expanded := make([]*Term, 0, len(terms))
	for _, t := range terms {
		if t.Kind() == KindPlus {
			expanded = append(expanded, t.e.(*internalTermNary).children...)
		} else {
			expanded = append(expanded, t)
		}
	}
	flat := make([]*Term, 0, len(expanded))
	var acc *Rational
	for _, t := range expanded {
		if c, err := t.GetConst(); err == nil {
			if acc == nil {
				acc = new(Rational).Set(c)
			} else {
				acc.Add(acc, c)
			}
			continue
		}
		flat = append(flat, t)
	}
	if acc != nil && acc.Sign() != 0 {
		flat = append(flat, p.RealConst(acc))
	}
	if len(flat) == 0 {
		return p.RealConst(RationalZero())
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortTermsById(flat)
	return p.nAryTerm(KindPlus, flat)
}

// Times builds a flattened, constant-folded n-ary product; a zero factor
// collapses the whole node to the zero constant.
func (p *Pool) Times(terms ...*Term) *Term {
	expanded := make([]*Term, 0, len(terms))
	for _, t := range terms {
		if t.Kind() == KindTimes {
			expanded = append(expanded, t.e.(*internalTermNary).children...)
		} else {
			expanded = append(expanded, t)
		}
	}
	flat := make([]*Term, 0, len(expanded))
	acc := RationalOne()
	for _, t := range expanded {
		if c, err := t.GetConst(); err == nil {
			if c.Sign() == 0 {
				return p.RealConst(RationalZero())
			}
			acc.Mul(acc, c)
			continue
		}
		flat = append(flat, t)
	}
	if acc.Cmp(RationalOne()) != 0 {
		flat = append(flat, p.RealConst(acc))
	}
	if len(flat) == 0 {
		return p.RealConst(RationalOne())
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortTermsById(flat)
	return p.nAryTerm(KindTimes, flat)
}

func (p *Pool) nAryTerm(k int, children []*Term) *Term {
	frees := map[string]bool{}
	for _, c := range children {
		for r := range c.RealsOf() {
			frees[r] = true
		}
	}
	cand := &internalTermNary{k: k, children: children, frees: frees}
	h := cand.hash()
	return p.internTerm(h, cand, func(e internalTerm) bool {
		o, ok := e.(*internalTermNary)
		if !ok || o.k != k || len(o.children) != len(children) {
			return false
		}
		for i := range children {
			if o.children[i].Id() != children[i].Id() {
				return false
			}
		}
		return true
	})
}

// Minus builds a - b, folding constant operands immediately.
func (p *Pool) Minus(a, b *Term) *Term {
	if ac, err := a.GetConst(); err == nil {
		if bc, err := b.GetConst(); err == nil {
			return p.RealConst(new(Rational).Sub(ac, bc))
		}
	}
	if b.IsConst() {
		if c, _ := b.GetConst(); c.Sign() == 0 {
			return a
		}
	}
	reals := map[string]bool{}
	for k := range a.RealsOf() {
		reals[k] = true
	}
	for k := range b.RealsOf() {
		reals[k] = true
	}
	cand := &internalTermBin{k: KindMinus, lhs: a, rhs: b, reals: reals}
	h := cand.hash()
	return p.internTerm(h, cand, func(e internalTerm) bool {
		o, ok := e.(*internalTermBin)
		return ok && o.k == KindMinus && o.lhs.Id() == a.Id() && o.rhs.Id() == b.Id()
	})
}

// TermITE builds a real-valued if-then-else. A constant condition
// collapses immediately; this is the node weight.Decompose peels apart.
func (p *Pool) TermITE(cond *Formula, then, els *Term) *Term {
	if cond.IsConst() {
		c, _ := cond.GetConst()
		if c {
			return then
		}
		return els
	}
	if then.Id() == els.Id() {
		return then
	}
	reals := map[string]bool{}
	for k := range then.RealsOf() {
		reals[k] = true
	}
	for k := range els.RealsOf() {
		reals[k] = true
	}
	cand := &internalTermITE{Cond: cond, Then: then, Else: els, reals: reals}
	h := cand.hash()
	return p.internTerm(h, cand, func(e internalTerm) bool {
		o, ok := e.(*internalTermITE)
		return ok && o.Cond.Id() == cond.Id() && o.Then.Id() == then.Id() && o.Else.Id() == els.Id()
	})
}

// Formula constructors.

func (p *Pool) BoolVar(name string) *Formula {
	cand := &internalBoolVar{Name: name}
	h := cand.hash()
	return p.internFormula(h, cand, func(e internalFormula) bool {
		o, ok := e.(*internalBoolVar)
		return ok && o.Name == name
	})
}

func (p *Pool) BoolConst(v bool) *Formula {
	cand := &internalBoolConst{Value: v}
	h := cand.hash()
	return p.internFormula(h, cand, func(e internalFormula) bool {
		o, ok := e.(*internalBoolConst)
		return ok && o.Value == v
	})
}

// LRA builds a canonical LRA atom from a raw comparison lhs <op> rhs,
// where op is one of "<=", "<", ">=", ">", "=". Non-canonical operators
// are folded to the <=/< pair (or = for equality) by moving everything to
// the left and, for >=/>, negating. Pool.Not later folds a negated <=/<
// atom through LinearAtom.negated.
func (p *Pool) LRA(lhs *Term, op string, rhs *Term) (*Formula, error) {
	diff := p.Minus(lhs, rhs)
	coeffs, constPart, err := linearize(diff)
	if err != nil {
		return nil, err
	}
	atom := LinearAtom{Coeffs: coeffs, Const: constPart}
	switch op {
	case "<=":
		atom.Op = AtomLE
	case "<":
		atom.Op = AtomLT
	case "=":
		atom.Op = AtomEQ
	case ">=":
		atom = atom.scaled(-1)
		atom.Op = AtomLE
	case ">":
		atom = atom.scaled(-1)
		atom.Op = AtomLT
	default:
		return nil, fmt.Errorf("formula: unsupported LRA operator %q", op)
	}
	return p.mkLRA(atom), nil
}

func (a LinearAtom) scaled(by int64) LinearAtom {
	f := RationalFromInt64(by)
	out := LinearAtom{Coeffs: make(map[string]*Rational, len(a.Coeffs)), Const: new(Rational).Mul(a.Const, f), Op: a.Op}
	for k, v := range a.Coeffs {
		out.Coeffs[k] = new(Rational).Mul(v, f)
	}
	return out
}

func (p *Pool) mkLRA(atom LinearAtom) *Formula {
	cand := &internalLRA{Atom: atom}
	h := cand.hash()
	key := atom.String()
	return p.internFormula(h, cand, func(e internalFormula) bool {
		o, ok := e.(*internalLRA)
		return ok && o.Atom.String() == key
	})
}

// Linearize exposes linearize to callers outside the package (the
// polytope package's Polynomial construction from a weight leaf term).
func Linearize(t *Term) (map[string]*Rational, *Rational, error) {
	return linearize(t)
}

// linearize walks a Plus/Times/Minus/RealConst/RealVar term tree and
// collects it into Sum(coeff*var) + const, erroring on any non-linear
// construct (a Times node with more than one non-constant factor).
func linearize(t *Term) (map[string]*Rational, *Rational, error) {
	switch t.Kind() {
	case KindRealConst:
		c, _ := t.GetConst()
		return map[string]*Rational{}, new(Rational).Set(c), nil
	case KindRealVar:
		return map[string]*Rational{t.String(): RationalOne()}, RationalZero(), nil
	case KindPlus:
		out := map[string]*Rational{}
		cst := RationalZero()
		for _, c := range t.e.(*internalTermNary).children {
			cc, kk, err := linearize(c)
			if err != nil {
				return nil, nil, err
			}
			for v, coeff := range cc {
				addInto(out, v, coeff)
			}
			cst.Add(cst, kk)
		}
		return out, cst, nil
	case KindMinus:
		bin := t.e.(*internalTermBin)
		lc, lk, err := linearize(bin.lhs)
		if err != nil {
			return nil, nil, err
		}
		rc, rk, err := linearize(bin.rhs)
		if err != nil {
			return nil, nil, err
		}
		out := map[string]*Rational{}
		for v, coeff := range lc {
			addInto(out, v, coeff)
		}
		for v, coeff := range rc {
			addInto(out, v, new(Rational).Neg(coeff))
		}
		return out, new(Rational).Sub(lk, rk), nil
	case KindTimes:
		children := t.e.(*internalTermNary).children
		var coeff *Rational
		var varTerm *Term
		for _, c := range children {
			if cst, err := c.GetConst(); err == nil {
				if coeff == nil {
					coeff = new(Rational).Set(cst)
				} else {
					coeff.Mul(coeff, cst)
				}
				continue
			}
			if varTerm != nil {
				return nil, nil, fmt.Errorf("formula: nonlinear term %s", t.String())
			}
			varTerm = c
		}
		if coeff == nil {
			coeff = RationalOne()
		}
		if varTerm == nil {
			return map[string]*Rational{}, coeff, nil
		}
		vc, vk, err := linearize(varTerm)
		if err != nil {
			return nil, nil, err
		}
		out := map[string]*Rational{}
		for v, c := range vc {
			addInto(out, v, new(Rational).Mul(c, coeff))
		}
		return out, new(Rational).Mul(vk, coeff), nil
	default:
		return nil, nil, fmt.Errorf("formula: unsupported term kind %s in LRA atom", kindName(t.Kind()))
	}
}

func addInto(m map[string]*Rational, k string, v *Rational) {
	if cur, ok := m[k]; ok {
		cur.Add(cur, v)
	} else {
		m[k] = new(Rational).Set(v)
	}
}

func (p *Pool) Not(f *Formula) *Formula {
	if f.Kind() == KindNot {
		return f.e.(*internalNot).Child
	}
	if f.IsConst() {
		c, _ := f.GetConst()
		return p.BoolConst(!c)
	}
	if atom, ok := f.LRAAtom(); ok && atom.Op != AtomEQ {
		return p.mkLRA(atom.negated())
	}
	cand := &internalNot{Child: f, atoms: f.AtomsOf(), reals: f.RealsOf()}
	h := cand.hash()
	return p.internFormula(h, cand, func(e internalFormula) bool {
		o, ok := e.(*internalNot)
		return ok && o.Child.Id() == f.Id()
	})
}

func sortFormulasById(fs []*Formula) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].Id() < fs[j].Id() })
}

func (p *Pool) nAryBool(k int, fs []*Formula, absorbing bool, identity bool) *Formula {
	flat := make([]*Formula, 0, len(fs))
	seen := map[uintptr]bool{}
	for _, f := range fs {
		if f.Kind() == k {
			for _, c := range f.e.(*internalNary).children {
				if !seen[c.Id()] {
					seen[c.Id()] = true
					flat = append(flat, c)
				}
			}
			continue
		}
		if f.IsConst() {
			c, _ := f.GetConst()
			if c == absorbing {
				return p.BoolConst(absorbing)
			}
			continue // identity element, drop
		}
		if !seen[f.Id()] {
			seen[f.Id()] = true
			flat = append(flat, f)
		}
	}
	if len(flat) == 0 {
		return p.BoolConst(identity)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortFormulasById(flat)
	cand := &internalNary{k: k, children: flat, atoms: unionAtoms(flat), reals: unionReals(flat)}
	h := cand.hash()
	return p.internFormula(h, cand, func(e internalFormula) bool {
		o, ok := e.(*internalNary)
		if !ok || o.k != k || len(o.children) != len(flat) {
			return false
		}
		for i := range flat {
			if o.children[i].Id() != flat[i].Id() {
				return false
			}
		}
		return true
	})
}

func (p *Pool) And(fs ...*Formula) *Formula { return p.nAryBool(KindAnd, fs, false, true) }
func (p *Pool) Or(fs ...*Formula) *Formula  { return p.nAryBool(KindOr, fs, true, false) }

func (p *Pool) binBool(k int, a, b *Formula) *Formula {
	cand := &internalBin{k: k, lhs: a, rhs: b, atoms: unionAtoms([]*Formula{a, b}), reals: unionReals([]*Formula{a, b})}
	h := cand.hash()
	return p.internFormula(h, cand, func(e internalFormula) bool {
		o, ok := e.(*internalBin)
		return ok && o.k == k && o.lhs.Id() == a.Id() && o.rhs.Id() == b.Id()
	})
}

// Xor, Iff, and Implies fold immediately whenever either operand is
// constant or the two operands are structurally identical -- the same
// discipline Plus/Times/And/Or apply, needed here so that a substitution
// resolving every free atom in a formula always drives it down to a
// BoolConst leaf instead of stalling on an un-folded binary connective.
func (p *Pool) Xor(a, b *Formula) *Formula {
	if a.Id() == b.Id() {
		return p.BoolConst(false)
	}
	if a.IsConst() {
		c, _ := a.GetConst()
		if c {
			return p.Not(b)
		}
		return b
	}
	if b.IsConst() {
		c, _ := b.GetConst()
		if c {
			return p.Not(a)
		}
		return a
	}
	return p.binBool(KindXor, a, b)
}

func (p *Pool) Iff(a, b *Formula) *Formula {
	if a.Id() == b.Id() {
		return p.BoolConst(true)
	}
	if a.IsConst() {
		c, _ := a.GetConst()
		if c {
			return b
		}
		return p.Not(b)
	}
	if b.IsConst() {
		c, _ := b.GetConst()
		if c {
			return a
		}
		return p.Not(a)
	}
	return p.binBool(KindIff, a, b)
}

func (p *Pool) Implies(a, b *Formula) *Formula {
	if a.Id() == b.Id() {
		return p.BoolConst(true)
	}
	if a.IsConst() {
		c, _ := a.GetConst()
		if c {
			return b
		}
		return p.BoolConst(true)
	}
	if b.IsConst() {
		c, _ := b.GetConst()
		if c {
			return p.BoolConst(true)
		}
		return p.Not(a)
	}
	return p.binBool(KindImplies, a, b)
}

func (p *Pool) FormulaITE(cond, then, els *Formula) *Formula {
	if cond.IsConst() {
		c, _ := cond.GetConst()
		if c {
			return then
		}
		return els
	}
	if then.Id() == els.Id() {
		return then
	}
	branches := []*Formula{cond, then, els}
	cand := &internalFormulaITE{Cond: cond, Then: then, Else: els, atoms: unionAtoms(branches), reals: unionReals(branches)}
	h := cand.hash()
	return p.internFormula(h, cand, func(e internalFormula) bool {
		o, ok := e.(*internalFormulaITE)
		return ok && o.Cond.Id() == cond.Id() && o.Then.Id() == then.Id() && o.Else.Id() == els.Id()
	})
}
