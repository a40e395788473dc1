package formula

// Env is a substitution environment: real variables map to replacement
// terms, Boolean atoms map to replacement formulas. Substitute rewrites a
// Term/Formula bottom-up through it, reconsing every rewritten node
// through the pool so the result stays canonical.
type Env struct {
	Reals map[string]*Term
	Atoms map[string]*Formula
}

func (p *Pool) Substitute(f *Formula, env Env) *Formula {
	cache := make(map[uintptr]*Formula)
	return p.substFormula(f, env, cache)
}

func (p *Pool) SubstituteTerm(t *Term, env Env) *Term {
	cache := make(map[uintptr]*Term)
	return p.substTerm(t, env, cache)
}

func (p *Pool) substTerm(t *Term, env Env, cache map[uintptr]*Term) *Term {
	if r, ok := cache[t.Id()]; ok {
		return r
	}
	var result *Term
	switch t.Kind() {
	case KindRealConst:
		result = t
	case KindRealVar:
		name := t.e.(*internalRealVar).Name
		if repl, ok := env.Reals[name]; ok {
			result = repl
		} else {
			result = t
		}
	case KindPlus, KindTimes:
		children := t.e.(*internalTermNary).children
		subbed := make([]*Term, len(children))
		for i, c := range children {
			subbed[i] = p.substTerm(c, env, cache)
		}
		if t.Kind() == KindPlus {
			result = p.Plus(subbed...)
		} else {
			result = p.Times(subbed...)
		}
	case KindMinus:
		bin := t.e.(*internalTermBin)
		result = p.Minus(p.substTerm(bin.lhs, env, cache), p.substTerm(bin.rhs, env, cache))
	case KindTermITE:
		ite := t.e.(*internalTermITE)
		result = p.TermITE(
			p.substFormula(ite.Cond, env, make(map[uintptr]*Formula)),
			p.substTerm(ite.Then, env, cache),
			p.substTerm(ite.Else, env, cache),
		)
	default:
		result = t
	}
	cache[t.Id()] = result
	return result
}

func (p *Pool) substFormula(f *Formula, env Env, cache map[uintptr]*Formula) *Formula {
	if r, ok := cache[f.Id()]; ok {
		return r
	}
	var result *Formula
	switch f.Kind() {
	case KindBoolConst:
		result = f
	case KindBoolVar:
		name := f.e.(*internalBoolVar).Name
		if repl, ok := env.Atoms[name]; ok {
			result = repl
		} else {
			result = f
		}
	case KindLRA:
		if repl, ok := env.Atoms[f.String()]; ok {
			result = repl
			break
		}
		atom := f.e.(*internalLRA).Atom
		if len(env.Reals) == 0 {
			result = f
			break
		}
		coeffs := map[string]*Rational{}
		cst := new(Rational).Set(atom.Const)
		changed := false
		for v, coeff := range atom.Coeffs {
			if repl, ok := env.Reals[v]; ok {
				changed = true
				rc, rk, err := linearize(repl)
				if err != nil {
					// substitution produced a non-linear term; keep the
					// substituted atom unresolved rather than dropping it.
					addInto(coeffs, v, coeff)
					continue
				}
				for rv, rcoeff := range rc {
					addInto(coeffs, rv, new(Rational).Mul(rcoeff, coeff))
				}
				cst.Add(cst, new(Rational).Mul(rk, coeff))
				continue
			}
			addInto(coeffs, v, coeff)
		}
		if !changed {
			result = f
		} else {
			result = p.mkLRA(LinearAtom{Coeffs: coeffs, Const: cst, Op: atom.Op})
		}
	case KindNot:
		result = p.Not(p.substFormula(f.e.(*internalNot).Child, env, cache))
	case KindAnd, KindOr:
		children := f.e.(*internalNary).children
		subbed := make([]*Formula, len(children))
		for i, c := range children {
			subbed[i] = p.substFormula(c, env, cache)
		}
		if f.Kind() == KindAnd {
			result = p.And(subbed...)
		} else {
			result = p.Or(subbed...)
		}
	case KindXor, KindIff, KindImplies:
		bin := f.e.(*internalBin)
		l := p.substFormula(bin.lhs, env, cache)
		r := p.substFormula(bin.rhs, env, cache)
		switch f.Kind() {
		case KindXor:
			result = p.Xor(l, r)
		case KindIff:
			result = p.Iff(l, r)
		default:
			result = p.Implies(l, r)
		}
	case KindFormulaITE:
		ite := f.e.(*internalFormulaITE)
		result = p.FormulaITE(
			p.substFormula(ite.Cond, env, cache),
			p.substFormula(ite.Then, env, cache),
			p.substFormula(ite.Else, env, cache),
		)
	default:
		result = f
	}
	cache[f.Id()] = result
	return result
}

// Simplify re-runs a formula through the pool's own eager-simplification
// constructors with an empty environment: since every constructor already
// folds constants, flattens associative nodes, and eliminates identities
// at construction time, re-substituting with no replacements is sufficient
// to normalize a formula built by hand (e.g. in a test) to its canonical
// interned form.
func (p *Pool) Simplify(f *Formula) *Formula {
	return p.Substitute(f, Env{})
}

func (p *Pool) SimplifyTerm(t *Term) *Term {
	return p.SubstituteTerm(t, Env{})
}
