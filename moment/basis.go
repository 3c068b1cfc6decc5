// Package moment builds moment matrices and localizing matrices of noncommutative polynomial relaxations.
package moment

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fumin/sdprelax/ncpoly"
)

var (
	// ErrBudgetExceeded is returned when the basis grows beyond the configured maximum size.
	ErrBudgetExceeded = errors.New("construction budget exceeded")
)

// Letters returns the factors that generate a basis: the variables vars in the given order,
// followed by the adjoints of those that are not Hermitian.
func Letters(alg *ncpoly.Algebra, vars []int) []ncpoly.Factor {
	letters := make([]ncpoly.Factor, 0, 2*len(vars))
	for _, v := range vars {
		letters = append(letters, alg.Factor(v, false))
	}
	for _, v := range vars {
		if !alg.Variable(v).Hermitian {
			letters = append(letters, alg.Factor(v, true))
		}
	}
	return letters
}

// Basis returns the canonical monomials of degree at most order generated by letters.
//
// Monomials are generated degree by degree, each degree by appending every letter to the monomials new in the previous degree.
// Products are canonicalized, zero products dropped, and monomials equal up to a coefficient kept once, at their first appearance.
// The identity is always first.
// A non-positive maxSize means no limit.
func Basis(canon *ncpoly.Canonicalizer, letters []ncpoly.Factor, order, maxSize int) ([]ncpoly.Monomial, error) {
	basis := []ncpoly.Monomial{{}}
	seen := map[string]struct{}{"": {}}
	frontier := basis
	for d := 1; d <= order; d++ {
		next := make([]ncpoly.Monomial, 0, len(frontier)*len(letters))
		for _, w := range frontier {
			for _, l := range letters {
				ct, err := canon.Canonicalize(w.Mul(ncpoly.Monomial{l}))
				if err != nil {
					return nil, errors.Wrap(err, fmt.Sprintf("degree %d", d))
				}
				if ct.IsZero() {
					continue
				}
				k := ct.Monomial.Key()
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}

				basis = append(basis, ct.Monomial)
				next = append(next, ct.Monomial)
				if maxSize > 0 && len(basis) > maxSize {
					return nil, errors.Wrapf(ErrBudgetExceeded, "basis size %d > %d at degree %d", len(basis), maxSize, d)
				}
			}
		}
		frontier = next
	}
	return basis, nil
}
