package enumerate

import (
	"context"
	"fmt"

	"github.com/aclements/go-z3/z3"
	"github.com/masinag/gowmi/formula"
)

// z3Decider is the LRA-capable analogue of the teacher's z3backend: same
// ctx/solver/cache shape, but lowering formula.Formula/formula.Term
// (Bool and Real sorts) instead of gosmt's BoolExprPtr/BVExprPtr (Bool and
// BV sorts). convert mirrors z3backend.convert node-for-node, replacing
// each BV operator with its Real-sort counterpart.
type z3Decider struct {
	ctx    *z3.Context
	cfg    *z3.Config
	solver *z3.Solver

	cache map[uintptr]z3.Value

	lastAtoms []*formula.Formula
	lastModel map[string]bool
	lastLits  []z3.Bool
}

// NewZ3Decider constructs a Decider backed by Z3's LRA theory.
func NewZ3Decider() Decider {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &z3Decider{
		ctx:    ctx,
		cfg:    cfg,
		solver: z3.NewSolver(ctx),
		cache:  make(map[uintptr]z3.Value),
	}
}

func (d *z3Decider) Assert(f *formula.Formula) error {
	v, err := d.convertFormula(f)
	if err != nil {
		return err
	}
	d.solver.Assert(v)
	return nil
}

func (d *z3Decider) CheckSat(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return ResultUnknown, err
	}
	sat, err := d.solver.Check()
	if err != nil {
		return ResultUnknown, err
	}
	if sat {
		return ResultSat, nil
	}
	return ResultUnsat, nil
}

func (d *z3Decider) Model(atoms []*formula.Formula) (map[string]bool, error) {
	m := d.solver.Model()
	if m == nil {
		return nil, fmt.Errorf("enumerate: no model available")
	}

	result := make(map[string]bool, len(atoms))
	lits := make([]z3.Bool, 0, len(atoms))
	for _, a := range atoms {
		z3a, err := d.convertFormula(a)
		if err != nil {
			return nil, err
		}
		val := m.Eval(z3a, true).(z3.Bool)
		b, err := parseZ3Bool(val.String())
		if err != nil {
			return nil, fmt.Errorf("enumerate: atom %q undetermined in model: %w", a.String(), err)
		}
		result[a.String()] = b
		if b {
			lits = append(lits, z3a)
		} else {
			lits = append(lits, z3a.Not())
		}
	}
	d.lastAtoms = atoms
	d.lastModel = result
	d.lastLits = lits
	return result, nil
}

func (d *z3Decider) BlockLastModel() error {
	if len(d.lastLits) == 0 {
		return fmt.Errorf("enumerate: BlockLastModel called before Model")
	}
	conj := d.lastLits[0]
	for _, l := range d.lastLits[1:] {
		conj = conj.And(l)
	}
	d.solver.Assert(conj.Not())
	return nil
}

func (d *z3Decider) Push() { d.solver.Push() }
func (d *z3Decider) Pop()  { d.solver.Pop() }

func (d *z3Decider) Reset() {
	d.solver.Reset()
	d.cache = make(map[uintptr]z3.Value)
	d.lastAtoms, d.lastModel, d.lastLits = nil, nil, nil
}

// Clone returns a fresh decider sharing this one's Z3 context but with
// an empty solver -- the teacher's solverBackend.clone() is declared but
// never actually carries assertions across either; callers that need an
// independent decider with the same assertions re-Assert them after
// cloning. The enumerators in this package do not clone: they branch with
// Push/Pop on a single decider.
func (d *z3Decider) Clone() Decider {
	return &z3Decider{
		ctx:    d.ctx,
		cfg:    d.cfg,
		solver: z3.NewSolver(d.ctx),
		cache:  make(map[uintptr]z3.Value),
	}
}

func (d *z3Decider) convertFormula(f *formula.Formula) (z3.Bool, error) {
	if v, ok := d.cache[f.Id()]; ok {
		return v.(z3.Bool), nil
	}

	var result z3.Bool
	switch f.Kind() {
	case formula.KindBoolConst:
		c, _ := f.GetConst()
		result = d.ctx.FromBool(c)
	case formula.KindBoolVar:
		result = d.ctx.BoolConst(f.String())
	case formula.KindLRA:
		atom, _ := f.LRAAtom()
		lhs := d.convertLinear(atom.Coeffs, atom.Const)
		zero := d.ctx.FromBigRat(formula.RationalZero())
		switch atom.Op {
		case formula.AtomLE:
			result = lhs.LE(zero)
		case formula.AtomLT:
			result = lhs.LT(zero)
		case formula.AtomEQ:
			result = lhs.Eq(zero)
		}
	case formula.KindNot:
		child, err := d.convertFormula(f.NotChild())
		if err != nil {
			return z3.Bool{}, err
		}
		result = child.Not()
	case formula.KindAnd, formula.KindOr:
		children := f.NaryChildren()
		res, err := d.convertFormula(children[0])
		if err != nil {
			return z3.Bool{}, err
		}
		for _, c := range children[1:] {
			cv, err := d.convertFormula(c)
			if err != nil {
				return z3.Bool{}, err
			}
			if f.Kind() == formula.KindAnd {
				res = res.And(cv)
			} else {
				res = res.Or(cv)
			}
		}
		result = res
	case formula.KindImplies:
		l, r := f.BinChildren()
		lv, err := d.convertFormula(l)
		if err != nil {
			return z3.Bool{}, err
		}
		rv, err := d.convertFormula(r)
		if err != nil {
			return z3.Bool{}, err
		}
		result = lv.Not().Or(rv)
	case formula.KindIff:
		l, r := f.BinChildren()
		lv, err := d.convertFormula(l)
		if err != nil {
			return z3.Bool{}, err
		}
		rv, err := d.convertFormula(r)
		if err != nil {
			return z3.Bool{}, err
		}
		result = lv.Eq(rv)
	case formula.KindXor:
		l, r := f.BinChildren()
		lv, err := d.convertFormula(l)
		if err != nil {
			return z3.Bool{}, err
		}
		rv, err := d.convertFormula(r)
		if err != nil {
			return z3.Bool{}, err
		}
		result = lv.Xor(rv)
	default:
		return z3.Bool{}, fmt.Errorf("enumerate: unsupported formula kind %d", f.Kind())
	}

	d.cache[f.Id()] = result
	return result, nil
}

// parseZ3Bool reads back a Z3 Bool AST's textual form, the same
// string-then-parse approach the teacher uses to read back a bitvector
// constant (convertZ3Const strips the "0x" prefix off c.String()).
func parseZ3Bool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected boolean literal %q", s)
	}
}

func (d *z3Decider) convertLinear(coeffs map[string]*formula.Rational, constPart *formula.Rational) z3.Real {
	acc := d.ctx.FromBigRat(constPart)
	for name, coeff := range coeffs {
		v := d.ctx.RealConst(name)
		acc = acc.Add(v.Mul(d.ctx.FromBigRat(coeff)))
	}
	return acc
}
