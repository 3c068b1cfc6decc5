package ncpoly

import (
	"slices"
	"strconv"
)

// Polynomial is a sum of terms.
// Arithmetic methods return simplified polynomials: like monomials are merged, zero terms dropped, and terms sorted by Compare.
type Polynomial []Term

// Constant returns the constant polynomial c.
func Constant(c float64) Polynomial {
	return Polynomial{{Coef: c}}.Simplify()
}

// FromMonomial returns the polynomial c*m.
func FromMonomial(c float64, m Monomial) Polynomial {
	return Polynomial{{Coef: c, Monomial: m}}.Simplify()
}

// Add returns p+q.
func (p Polynomial) Add(q Polynomial) Polynomial {
	s := make(Polynomial, 0, len(p)+len(q))
	s = append(s, p...)
	s = append(s, q...)
	return s.Simplify()
}

// Sub returns p-q.
func (p Polynomial) Sub(q Polynomial) Polynomial {
	return p.Add(q.Scale(-1))
}

// AddConstant returns p+c.
func (p Polynomial) AddConstant(c float64) Polynomial {
	return p.Add(Constant(c))
}

// Scale returns c*p.
func (p Polynomial) Scale(c float64) Polynomial {
	s := make(Polynomial, 0, len(p))
	for _, t := range p {
		s = append(s, Term{Coef: c * t.Coef, Monomial: t.Monomial})
	}
	return s.Simplify()
}

// Mul returns p*q.
func (p Polynomial) Mul(q Polynomial) Polynomial {
	s := make(Polynomial, 0, len(p)*len(q))
	for _, a := range p {
		for _, b := range q {
			s = append(s, Term{Coef: a.Coef * b.Coef, Monomial: a.Monomial.Mul(b.Monomial)})
		}
	}
	return s.Simplify()
}

// Pow returns p^n for n >= 0.
func (p Polynomial) Pow(n int) Polynomial {
	r := Constant(1)
	for range n {
		r = r.Mul(p)
	}
	return r
}

// Adjoint returns the Hermitian conjugate of p.
// Coefficients are real, so only the monomials change.
func (p Polynomial) Adjoint() Polynomial {
	s := make(Polynomial, 0, len(p))
	for _, t := range p {
		s = append(s, Term{Coef: t.Coef, Monomial: t.Monomial.Adjoint()})
	}
	return s.Simplify()
}

// Dagger returns the Hermitian conjugate of p.
func Dagger(p Polynomial) Polynomial { return p.Adjoint() }

// Degree returns the largest number of factors in a term of p, or 0 for constants and the zero polynomial.
func (p Polynomial) Degree() int {
	var d int
	for _, t := range p {
		d = max(d, len(t.Monomial))
	}
	return d
}

// IsConstant reports whether p contains no operators.
func (p Polynomial) IsConstant() bool {
	return p.Degree() == 0
}

// ConstantTerm returns the coefficient of the identity.
func (p Polynomial) ConstantTerm() float64 {
	var c float64
	for _, t := range p {
		if len(t.Monomial) == 0 {
			c += t.Coef
		}
	}
	return c
}

// Monomial returns the monomial of p if p is a single monomial with coefficient one.
func (p Polynomial) Monomial() (Monomial, bool) {
	if len(p) != 1 || p[0].Coef != 1 {
		return nil, false
	}
	return p[0].Monomial, true
}

// Simplify merges terms with equal monomials, drops zero terms, and sorts the result.
func (p Polynomial) Simplify() Polynomial {
	pos := make(map[string]int, len(p))
	s := make(Polynomial, 0, len(p))
	for _, t := range p {
		k := t.Monomial.Key()
		if i, ok := pos[k]; ok {
			s[i].Coef += t.Coef
			continue
		}
		pos[k] = len(s)
		s = append(s, Term{Coef: t.Coef, Monomial: slices.Clone(t.Monomial)})
	}
	s = slices.DeleteFunc(s, func(t Term) bool { return t.Coef == 0 })
	slices.SortFunc(s, func(a, b Term) int { return Compare(a.Monomial, b.Monomial) })
	return s
}

// Variables returns the ids of the variables occurring in p, in ascending order.
func (p Polynomial) Variables() []int {
	ids := make([]int, 0)
	for _, t := range p {
		for _, f := range t.Monomial {
			ids = append(ids, f.Var)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func formatCoef(c float64) string {
	return strconv.FormatFloat(c, 'g', -1, 64)
}
