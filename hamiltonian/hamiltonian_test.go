package hamiltonian

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetNeighbors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		index    int
		length   int
		width    int
		periodic bool
		want     []int
	}{
		{index: 0, length: 3, want: []int{1, 3}},
		{index: 2, length: 3, want: []int{5}},
		{index: 8, length: 3, want: []int{}},
		{index: 8, length: 3, periodic: true, want: []int{6, 2}},
		{index: 2, length: 3, periodic: true, want: []int{0, 5}},
		{index: 0, length: 4, width: 1, want: []int{1}},
		{index: 3, length: 4, width: 1, periodic: true, want: []int{0}},
		{index: 4, length: 2, width: 3, want: []int{5}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %d %d %t", test.index, test.length, test.width, test.periodic), func(t *testing.T) {
			t.Parallel()
			got := GetNeighbors(test.index, test.length, test.width, test.periodic)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatalf("-want +got\n%s", diff)
			}
		})
	}
}

func TestFermionic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		lattice     Lattice
		hamiltonian string
		numRules    int
		equalities  []string
	}{
		{
			lattice:     Lattice{Length: 1, Width: 2, Gamma: 0, Lambda: 1},
			hamiltonian: "-2*C0*C0 + C0*C1 + C1*C0 - 2*C1*C1",
			numRules:    1,
			equalities:  []string{"-1 + 2*C0*C0", "-1 + 2*C1*C1"},
		},
		{
			lattice:     Lattice{Length: 1, Width: 2, Gamma: 1, Lambda: 2},
			hamiltonian: "-4*C0*C0 - 4*C1*C1",
			numRules:    1,
			equalities:  []string{"-1 + 2*C0*C0", "-1 + 2*C1*C1"},
		},
		{
			lattice:  Lattice{Length: 3, Gamma: 1, Lambda: 2},
			numRules: 36,
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#v", test.lattice), func(t *testing.T) {
			t.Parallel()
			m, err := Fermionic(test.lattice)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if len(m.Vars) != test.lattice.NumSites() {
				t.Fatalf("%d", len(m.Vars))
			}
			if m.Substitutions.Len() != test.numRules {
				t.Fatalf("%d, expected %d", m.Substitutions.Len(), test.numRules)
			}
			if len(m.Equalities) != test.lattice.NumSites() {
				t.Fatalf("%d", len(m.Equalities))
			}
			if test.hamiltonian != "" {
				if h := m.Algebra.FormatPolynomial(m.Hamiltonian); h != test.hamiltonian {
					t.Fatalf("%s, expected %s", h, test.hamiltonian)
				}
			}
			for i, want := range test.equalities {
				if e := m.Algebra.FormatPolynomial(m.Equalities[i]); e != want {
					t.Fatalf("%s, expected %s", e, want)
				}
			}
		})
	}
}

func TestFermionicEmpty(t *testing.T) {
	t.Parallel()
	if _, err := Fermionic(Lattice{}); err == nil {
		t.Fatalf("expected error")
	}
}
