package index

import (
	"cmp"
	"slices"
)

// Term is a scaled monomial id.
type Term struct {
	ID   int
	Coef float64
}

// Linear is a linear combination of monomial ids.
// It is sorted by id, with no repeated ids and no zero coefficients.
type Linear []Term

// Sum merges terms into a Linear.
func Sum(terms ...Term) Linear {
	s := slices.Clone(terms)
	slices.SortStableFunc(s, func(a, b Term) int { return cmp.Compare(a.ID, b.ID) })

	l := make(Linear, 0, len(s))
	for _, t := range s {
		if n := len(l); n > 0 && l[n-1].ID == t.ID {
			l[n-1].Coef += t.Coef
			continue
		}
		l = append(l, t)
	}
	return slices.DeleteFunc(l, func(t Term) bool { return t.Coef == 0 })
}

// Constant returns the coefficient of the identity.
func (l Linear) Constant() float64 {
	if len(l) > 0 && l[0].ID == Identity {
		return l[0].Coef
	}
	return 0
}

// Vars returns the terms that are not the identity.
func (l Linear) Vars() Linear {
	if len(l) > 0 && l[0].ID == Identity {
		return l[1:]
	}
	return l
}

// Scale returns c*l.
func (l Linear) Scale(c float64) Linear {
	s := make([]Term, 0, len(l))
	for _, t := range l {
		s = append(s, Term{ID: t.ID, Coef: c * t.Coef})
	}
	return Sum(s...)
}
