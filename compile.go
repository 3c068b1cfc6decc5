package sdprelax

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fumin/sdprelax/index"
	"github.com/fumin/sdprelax/ncpoly"
)

const (
	tolerance = 1e-12
)

// checkVariables fails if any polynomial or substitution rule references a variable outside the session,
// or has a coefficient that is not a finite number.
func (r *Relaxation) checkVariables(objective ncpoly.Polynomial, inequalities, equalities []ncpoly.Polynomial, subs *ncpoly.Substitutions) error {
	declared := make(map[int]struct{}, len(r.vars))
	for _, v := range r.vars {
		declared[v] = struct{}{}
	}
	check := func(p ncpoly.Polynomial, what string) error {
		for _, t := range p {
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return errors.Wrapf(ErrNonPolynomialInput, "coefficient %v in %s", t.Coef, what)
			}
		}
		for _, v := range p.Variables() {
			if _, ok := declared[v]; !ok {
				return errors.Wrapf(ErrUnknownVariable, "%s in %s", r.alg.Variable(v).Name, what)
			}
		}
		return nil
	}

	if err := check(objective, "objective"); err != nil {
		return errors.Wrap(err, "")
	}
	for i, g := range inequalities {
		if err := check(g, fmt.Sprintf("inequality %d", i)); err != nil {
			return errors.Wrap(err, "")
		}
	}
	for i, e := range equalities {
		if err := check(e, fmt.Sprintf("equality %d", i)); err != nil {
			return errors.Wrap(err, "")
		}
	}
	if subs == nil {
		return nil
	}
	for i, rule := range subs.Rules() {
		what := fmt.Sprintf("substitution %d", i)
		if err := check(ncpoly.FromMonomial(1, rule.LHS), what); err != nil {
			return errors.Wrap(err, "")
		}
		if err := check(ncpoly.Polynomial{rule.RHS}, what); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// maxDegree returns the largest degree of a monomial the relaxation canonicalizes.
func maxDegree(order int, objective ncpoly.Polynomial, inequalities, equalities []ncpoly.Polynomial) int {
	d := max(2*order, objective.Degree())
	for _, g := range inequalities {
		d = max(d, g.Degree())
	}
	for _, e := range equalities {
		d = max(d, e.Degree())
	}
	return d
}

// compile turns p into a linear expression over moment ids.
func (r *Relaxation) compile(p ncpoly.Polynomial) (index.Linear, error) {
	l, err := r.res.Linear(p.Simplify())
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return l, nil
}

// equality applies the equality l = 0, reporting whether it must be kept as a linear constraint.
//
// When eliminating equalities, l = a*x + c binds x to -c/a, and l = a*x + b*y binds x to -b/a * y.
// Other equalities are kept.
func (r *Relaxation) equality(l index.Linear) (bool, error) {
	l = r.fold(l)
	vars, c := l.Vars(), l.Constant()
	if len(vars) == 0 {
		if math.Abs(c) > tolerance {
			return false, errors.Wrapf(ErrInconsistentConstraint, "%s = 0", formatFloat(c))
		}
		return false, nil
	}
	if !r.opt.eliminateEqualities {
		return true, nil
	}

	ix := r.res.Index()
	switch {
	case len(vars) == 1:
		if err := ix.BindConstant(vars[0].ID, -c/vars[0].Coef); err != nil {
			return false, errors.Wrap(err, "")
		}
		return false, nil
	case len(vars) == 2 && c == 0:
		if err := ix.BindEqual(vars[0].ID, vars[1].ID, -vars[1].Coef/vars[0].Coef); err != nil {
			return false, errors.Wrap(err, "")
		}
		return false, nil
	}
	return true, nil
}

// fold replaces the moments bound to constants in l by their values.
func (r *Relaxation) fold(l index.Linear) index.Linear {
	ix := r.res.Index()
	terms := make([]index.Term, 0, len(l))
	for _, t := range l {
		if v, ok := ix.Constant(t.ID); ok {
			terms = append(terms, index.Term{ID: index.Identity, Coef: t.Coef * v})
			continue
		}
		terms = append(terms, t)
	}
	return index.Sum(terms...)
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
