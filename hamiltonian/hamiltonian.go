// Package hamiltonian defines lattice Hamiltonians of interacting fermions as noncommutative polynomials.
package hamiltonian

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fumin/sdprelax/ncpoly"
)

// GetNeighbors returns the right and lower neighbors of site index on a lattice with length rows of width sites,
// numbered row by row.
// A width of zero means a square lattice.
// On a periodic lattice the last column and the last row wrap around.
func GetNeighbors(index, length, width int, periodic bool) []int {
	if width == 0 {
		width = length
	}
	neighbors := make([]int, 0, 2)
	row, col := index/width, index%width
	switch {
	case col < width-1:
		neighbors = append(neighbors, index+1)
	case periodic && width > 1:
		neighbors = append(neighbors, index-width+1)
	}
	switch {
	case row < length-1:
		neighbors = append(neighbors, index+width)
	case periodic && length > 1:
		neighbors = append(neighbors, index-(length-1)*width)
	}
	return neighbors
}

// Lattice is a two dimensional lattice of spinless fermions.
type Lattice struct {
	Length   int
	Width    int
	Periodic bool

	// Gamma is the pairing strength.
	Gamma float64
	// Lambda is the chemical potential.
	Lambda float64
}

// NumSites returns the number of lattice sites.
func (l Lattice) NumSites() int {
	if l.Width == 0 {
		return l.Length * l.Length
	}
	return l.Length * l.Width
}

// Model is a ground state problem ready for relaxation.
type Model struct {
	Algebra       *ncpoly.Algebra
	Vars          []ncpoly.Polynomial
	Hamiltonian   ncpoly.Polynomial
	Substitutions *ncpoly.Substitutions
	Equalities    []ncpoly.Polynomial
}

// Fermionic returns the model of interacting fermions of Corboz, Evenbly, Verstraete and Vidal, arXiv:0904.4151,
//
//	H = sum_r [ -2 lam C_r† C_r + sum_{s neighbor of r} (C_r† C_s + C_s† C_r - gam (C_r† C_s† + C_s C_r)) ],
//
// with Hermitian site operators C_r that anticommute, C_r C_s = -C_s C_r for r < s,
// and are normalized by C_r C_r† + C_r† C_r = 1.
func Fermionic(l Lattice) (*Model, error) {
	n := l.NumSites()
	if n < 1 {
		return nil, errors.Errorf("%#v", l)
	}

	m := &Model{Algebra: ncpoly.NewAlgebra(), Substitutions: ncpoly.NewSubstitutions()}
	c := make([]ncpoly.Polynomial, 0, n)
	for i := range n {
		if _, err := m.Algebra.Declare(fmt.Sprintf("C%d", i), true); err != nil {
			return nil, errors.Wrap(err, "")
		}
		c = append(c, m.Algebra.Hermitian(fmt.Sprintf("C%d", i)))
	}
	m.Vars = c

	var h ncpoly.Polynomial
	for r := range n {
		h = h.Sub(ncpoly.Dagger(c[r]).Mul(c[r]).Scale(2 * l.Lambda))
		for _, s := range GetNeighbors(r, l.Length, l.Width, l.Periodic) {
			h = h.Add(ncpoly.Dagger(c[r]).Mul(c[s]))
			h = h.Add(ncpoly.Dagger(c[s]).Mul(c[r]))
			pairing := ncpoly.Dagger(c[r]).Mul(ncpoly.Dagger(c[s])).Add(c[s].Mul(c[r]))
			h = h.Sub(pairing.Scale(l.Gamma))
		}
	}
	m.Hamiltonian = h.Simplify()

	for r := range n {
		for s := r; s < n; s++ {
			if r != s {
				if err := m.Substitutions.Add(c[r].Mul(c[s]), c[s].Mul(c[r]).Scale(-1)); err != nil {
					return nil, errors.Wrap(err, fmt.Sprintf("%d %d", r, s))
				}
				continue
			}
			e := c[r].Mul(ncpoly.Dagger(c[s])).Add(ncpoly.Dagger(c[s]).Mul(c[r])).AddConstant(-1)
			m.Equalities = append(m.Equalities, e.Simplify())
		}
	}
	return m, nil
}
