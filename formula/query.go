package formula

// CollectAtoms walks f and returns, for every distinct Boolean variable
// or LRA atom it contains, the canonical leaf *Formula for that atom
// (keyed by its AtomsOf() name) -- the piece AtomsOf (which only reports
// names) is missing and the All-SAT blocking-clause construction needs.
func CollectAtoms(f *Formula) map[string]*Formula {
	out := map[string]*Formula{}
	seen := map[uintptr]bool{}
	collectAtoms(f, out, seen)
	return out
}

func collectAtoms(f *Formula, out map[string]*Formula, seen map[uintptr]bool) {
	if seen[f.Id()] {
		return
	}
	seen[f.Id()] = true
	switch f.Kind() {
	case KindBoolVar:
		out[f.String()] = f
	case KindLRA:
		out[f.String()] = f
	case KindNot:
		collectAtoms(f.e.(*internalNot).Child, out, seen)
	case KindAnd, KindOr:
		for _, c := range f.e.(*internalNary).children {
			collectAtoms(c, out, seen)
		}
	case KindXor, KindIff, KindImplies:
		bin := f.e.(*internalBin)
		collectAtoms(bin.lhs, out, seen)
		collectAtoms(bin.rhs, out, seen)
	case KindFormulaITE:
		ite := f.e.(*internalFormulaITE)
		collectAtoms(ite.Cond, out, seen)
		collectAtoms(ite.Then, out, seen)
		collectAtoms(ite.Else, out, seen)
	}
}

// ToNNF pushes negations down to the leaves, mirroring the teacher's
// style of expressing a rewrite as a recursive pool-returning function
// rather than mutating nodes in place (every node is immutable once
// interned).
func (p *Pool) ToNNF(f *Formula) *Formula {
	return p.toNNF(f, false)
}

func (p *Pool) toNNF(f *Formula, negate bool) *Formula {
	switch f.Kind() {
	case KindBoolConst:
		c, _ := f.GetConst()
		if negate {
			c = !c
		}
		return p.BoolConst(c)
	case KindBoolVar, KindLRA:
		if negate {
			return p.Not(f)
		}
		return f
	case KindNot:
		return p.toNNF(f.e.(*internalNot).Child, !negate)
	case KindAnd, KindOr:
		children := f.e.(*internalNary).children
		rewritten := make([]*Formula, len(children))
		for i, c := range children {
			rewritten[i] = p.toNNF(c, negate)
		}
		isAnd := f.Kind() == KindAnd
		if negate {
			isAnd = !isAnd
		}
		if isAnd {
			return p.And(rewritten...)
		}
		return p.Or(rewritten...)
	case KindImplies:
		bin := f.e.(*internalBin)
		// a -> b  ==  !a || b
		rewritten := p.Or(p.toNNF(bin.lhs, true), p.toNNF(bin.rhs, false))
		if negate {
			return p.toNNF(p.Not(rewritten), false)
		}
		return rewritten
	case KindIff:
		bin := f.e.(*internalBin)
		l, r := bin.lhs, bin.rhs
		// a <-> b  ==  (a && b) || (!a && !b)
		rewritten := p.Or(p.And(p.toNNF(l, false), p.toNNF(r, false)), p.And(p.toNNF(l, true), p.toNNF(r, true)))
		if negate {
			return p.toNNF(p.Not(rewritten), false)
		}
		return rewritten
	case KindXor:
		bin := f.e.(*internalBin)
		l, r := bin.lhs, bin.rhs
		rewritten := p.Or(p.And(p.toNNF(l, false), p.toNNF(r, true)), p.And(p.toNNF(l, true), p.toNNF(r, false)))
		if negate {
			return p.toNNF(p.Not(rewritten), false)
		}
		return rewritten
	case KindFormulaITE:
		ite := f.e.(*internalFormulaITE)
		rewritten := p.Or(p.And(ite.Cond, ite.Then), p.And(p.Not(ite.Cond), ite.Else))
		return p.toNNF(rewritten, negate)
	default:
		if negate {
			return p.Not(f)
		}
		return f
	}
}

// ToCNF converts f to NNF and then distributes Or over And. This is a
// plain (exponential worst case) Tseitin-free distribution, adequate for
// the formula sizes this solver's support/query formulas reach; callers
// needing CNF on arbitrary-size input should introduce Tseitin variables
// themselves before calling it.
func (p *Pool) ToCNF(f *Formula) *Formula {
	nnf := p.ToNNF(f)
	return p.distribute(nnf)
}

func (p *Pool) distribute(f *Formula) *Formula {
	switch f.Kind() {
	case KindAnd:
		children := f.e.(*internalNary).children
		rewritten := make([]*Formula, len(children))
		for i, c := range children {
			rewritten[i] = p.distribute(c)
		}
		return p.And(rewritten...)
	case KindOr:
		children := f.e.(*internalNary).children
		acc := p.distribute(children[0])
		for _, c := range children[1:] {
			acc = p.distributeOr(acc, p.distribute(c))
		}
		return acc
	default:
		return f
	}
}

func (p *Pool) distributeOr(a, b *Formula) *Formula {
	if a.Kind() == KindAnd {
		children := a.e.(*internalNary).children
		parts := make([]*Formula, len(children))
		for i, c := range children {
			parts[i] = p.distributeOr(c, b)
		}
		return p.And(parts...)
	}
	if b.Kind() == KindAnd {
		children := b.e.(*internalNary).children
		parts := make([]*Formula, len(children))
		for i, c := range children {
			parts[i] = p.distributeOr(a, c)
		}
		return p.And(parts...)
	}
	return p.Or(a, b)
}
