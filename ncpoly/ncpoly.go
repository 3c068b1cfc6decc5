// Package ncpoly implements polynomials in noncommuting operator variables,
// and their reduction to canonical form under monomial substitution rules.
//
// A monomial is an explicit sequence of (variable, dagger) factors.
// Hermitian variables are their own adjoint, so their factors never carry a dagger.
package ncpoly

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Variable is a noncommuting operator symbol.
type Variable struct {
	Name      string
	Hermitian bool
}

// Algebra is the table of declared operator variables.
// Variables are identified by name, and numbered by order of declaration.
type Algebra struct {
	vars   []Variable
	byName map[string]int
}

// NewAlgebra returns an empty algebra.
func NewAlgebra() *Algebra {
	a := &Algebra{byName: make(map[string]int)}
	return a
}

// Declare registers a variable and returns its id.
// Declaring an existing name again returns the existing id, provided the Hermitian flag agrees.
func (a *Algebra) Declare(name string, hermitian bool) (int, error) {
	if name == "" {
		return -1, errors.Errorf("empty variable name")
	}
	if id, ok := a.byName[name]; ok {
		if a.vars[id].Hermitian != hermitian {
			return -1, errors.Errorf("%s redeclared with hermitian=%t", name, hermitian)
		}
		return id, nil
	}

	id := len(a.vars)
	a.vars = append(a.vars, Variable{Name: name, Hermitian: hermitian})
	a.byName[name] = id
	return id, nil
}

// Hermitian declares a self-adjoint variable and returns it as a polynomial.
func (a *Algebra) Hermitian(name string) Polynomial {
	return a.must(name, true)
}

// Operator declares a variable with a distinct adjoint and returns it as a polynomial.
func (a *Algebra) Operator(name string) Polynomial {
	return a.must(name, false)
}

func (a *Algebra) must(name string, hermitian bool) Polynomial {
	id, err := a.Declare(name, hermitian)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return Polynomial{{Coef: 1, Monomial: Monomial{a.Factor(id, false)}}}
}

// Factor returns the factor of variable id, optionally daggered.
func (a *Algebra) Factor(id int, dagger bool) Factor {
	f := Factor{Var: id, Hermitian: a.vars[id].Hermitian}
	if !f.Hermitian {
		f.Dagger = dagger
	}
	return f
}

// Lookup returns the id of the named variable.
func (a *Algebra) Lookup(name string) (int, bool) {
	id, ok := a.byName[name]
	return id, ok
}

// Variable returns the variable of the given id.
func (a *Algebra) Variable(id int) Variable { return a.vars[id] }

// Len returns the number of declared variables.
func (a *Algebra) Len() int { return len(a.vars) }

// FormatMonomial prints a monomial using variable names, with daggered factors written as Dagger(X).
func (a *Algebra) FormatMonomial(m Monomial) string {
	if len(m) == 0 {
		return "1"
	}
	ss := make([]string, 0, len(m))
	for _, f := range m {
		name := fmt.Sprintf("v%d", f.Var)
		if f.Var >= 0 && f.Var < len(a.vars) {
			name = a.vars[f.Var].Name
		}
		if f.Dagger {
			name = "Dagger(" + name + ")"
		}
		ss = append(ss, name)
	}
	return strings.Join(ss, "*")
}

// FormatPolynomial prints a polynomial using variable names.
func (a *Algebra) FormatPolynomial(p Polynomial) string {
	if len(p) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range p {
		c := t.Coef
		switch {
		case i == 0 && c < 0:
			b.WriteString("-")
			c = -c
		case i > 0 && c < 0:
			b.WriteString(" - ")
			c = -c
		case i > 0:
			b.WriteString(" + ")
		}
		switch {
		case len(t.Monomial) == 0:
			b.WriteString(formatCoef(c))
		case c == 1:
			b.WriteString(a.FormatMonomial(t.Monomial))
		default:
			b.WriteString(formatCoef(c) + "*" + a.FormatMonomial(t.Monomial))
		}
	}
	return b.String()
}

// Factor is a single operator in a monomial.
type Factor struct {
	Var       int
	Dagger    bool
	Hermitian bool
}

// Adjoint returns the Hermitian conjugate of f.
func (f Factor) Adjoint() Factor {
	if f.Hermitian {
		return f
	}
	f.Dagger = !f.Dagger
	return f
}

// letter is the position of f in the alphabet {v0, v0^†, v1, v1^†, ...}.
func (f Factor) letter() int {
	l := 2 * f.Var
	if f.Dagger {
		l++
	}
	return l
}

func compareFactor(a, b Factor) int {
	return cmp.Compare(a.letter(), b.letter())
}

// Monomial is an ordered product of factors.
// The empty monomial is the identity.
type Monomial []Factor

// Adjoint returns the Hermitian conjugate of m, which reverses the order of factors.
func (m Monomial) Adjoint() Monomial {
	adj := make(Monomial, len(m))
	for i, f := range m {
		adj[len(m)-1-i] = f.Adjoint()
	}
	return adj
}

// Mul returns the product m*n.
func (m Monomial) Mul(n Monomial) Monomial {
	p := make(Monomial, 0, len(m)+len(n))
	p = append(p, m...)
	p = append(p, n...)
	return p
}

// Key returns a compact byte string that identifies m.
// Equal monomials have equal keys.
func (m Monomial) Key() string {
	b := make([]byte, 0, 2*len(m))
	for _, f := range m {
		b = binary.AppendUvarint(b, uint64(f.letter()))
	}
	return string(b)
}

// Equal reports whether m and n are the same product.
func (m Monomial) Equal(n Monomial) bool {
	return slices.Equal(m, n)
}

// IsIdentity reports whether m is the empty product.
func (m Monomial) IsIdentity() bool { return len(m) == 0 }

// String prints m with anonymous variable names.
func (m Monomial) String() string {
	if len(m) == 0 {
		return "1"
	}
	ss := make([]string, 0, len(m))
	for _, f := range m {
		s := fmt.Sprintf("v%d", f.Var)
		if f.Dagger {
			s += "'"
		}
		ss = append(ss, s)
	}
	return strings.Join(ss, "*")
}

// Compare orders monomials by degree and then lexicographically by variable id, with a variable before its adjoint.
func Compare(a, b Monomial) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return slices.CompareFunc(a, b, compareFactor)
}

// Term is a scaled monomial.
type Term struct {
	Coef     float64
	Monomial Monomial
}

// IsZero reports whether t is the zero operator.
func (t Term) IsZero() bool { return t.Coef == 0 }
