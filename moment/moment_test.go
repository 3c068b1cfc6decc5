package moment

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/goleak"

	"github.com/fumin/sdprelax/index"
	"github.com/fumin/sdprelax/ncpoly"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// lattice returns n Hermitian variables, with anticommutation rules if anticommute is set.
func lattice(n int, anticommute bool) (*ncpoly.Algebra, []int, *ncpoly.Substitutions) {
	alg := ncpoly.NewAlgebra()
	cs := make([]ncpoly.Polynomial, 0, n)
	vars := make([]int, 0, n)
	for i := range n {
		name := fmt.Sprintf("C%d", i)
		cs = append(cs, alg.Hermitian(name))
		id, _ := alg.Lookup(name)
		vars = append(vars, id)
	}
	subs := ncpoly.NewSubstitutions()
	if anticommute {
		for r := range n {
			for s := r + 1; s < n; s++ {
				if err := subs.Add(cs[r].Mul(cs[s]), cs[s].Mul(cs[r]).Scale(-1)); err != nil {
					panic(fmt.Sprintf("%+v", err))
				}
			}
		}
	}
	return alg, vars, subs
}

func build(n, order, workers int, anticommute bool) (*ncpoly.Algebra, *Matrix, *Resolver, error) {
	alg, vars, subs := lattice(n, anticommute)
	canon := ncpoly.NewCanonicalizer(subs, 0)
	basis, err := Basis(canon, Letters(alg, vars), order, 0)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "")
	}
	res := NewResolver(canon, index.New())
	b := NewBuilder(res, NewBuilderOptions().Workers(workers))
	m, err := b.Moment(context.Background(), basis)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "")
	}
	return alg, m, res, nil
}

func TestBasis(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n           int
		order       int
		anticommute bool
		basis       []string
	}{
		{n: 2, order: 1, basis: []string{"1", "C0", "C1"}},
		{n: 2, order: 2, basis: []string{"1", "C0", "C1", "C0*C0", "C0*C1", "C1*C0", "C1*C1"}},
		{n: 2, order: 2, anticommute: true, basis: []string{"1", "C0", "C1", "C0*C0", "C1*C0", "C1*C1"}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %d %t", test.n, test.order, test.anticommute), func(t *testing.T) {
			t.Parallel()
			alg, vars, subs := lattice(test.n, test.anticommute)
			canon := ncpoly.NewCanonicalizer(subs, 0)
			basis, err := Basis(canon, Letters(alg, vars), test.order, 0)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			got := make([]string, 0, len(basis))
			for _, b := range basis {
				got = append(got, alg.FormatMonomial(b))
			}
			if diff := cmp.Diff(test.basis, got); diff != "" {
				t.Fatalf("-want +got\n%s", diff)
			}
		})
	}
}

func TestBasisNonHermitian(t *testing.T) {
	t.Parallel()
	alg := ncpoly.NewAlgebra()
	a := alg.Operator("a")
	subs := ncpoly.NewSubstitutions()
	// Fermionic mode: a*a = 0.
	if err := subs.Add(a.Mul(a), nil); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := subs.Add(ncpoly.Dagger(a).Mul(ncpoly.Dagger(a)), nil); err != nil {
		t.Fatalf("%+v", err)
	}
	canon := ncpoly.NewCanonicalizer(subs, 0)
	id, _ := alg.Lookup("a")
	basis, err := Basis(canon, Letters(alg, []int{id}), 2, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	got := make([]string, 0, len(basis))
	for _, b := range basis {
		got = append(got, alg.FormatMonomial(b))
	}
	want := []string{"1", "a", "Dagger(a)", "a*Dagger(a)", "Dagger(a)*a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("-want +got\n%s", diff)
	}
}

func TestBasisBudget(t *testing.T) {
	t.Parallel()
	alg, vars, subs := lattice(4, false)
	canon := ncpoly.NewCanonicalizer(subs, 0)
	if _, err := Basis(canon, Letters(alg, vars), 3, 20); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("%+v", err)
	}
}

func TestMomentTwoVariables(t *testing.T) {
	t.Parallel()
	alg, m, res, err := build(2, 1, 2, false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if m.Size() != 3 {
		t.Fatalf("%d", m.Size())
	}
	// The identity, C0, C1, C0*C0, C0*C1 and C1*C1.
	if res.Index().Len() != 6 {
		t.Fatalf("%d", res.Index().Len())
	}
	if l := m.At(0, 0); !cmp.Equal(l, index.Linear{{ID: index.Identity, Coef: 1}}) {
		t.Fatalf("%v", l)
	}
	ids := make(map[int]struct{})
	for i := range m.Size() {
		for j := i; j < m.Size(); j++ {
			l := m.At(i, j)
			if len(l) != 1 || l[0].Coef != 1 {
				t.Fatalf("%d %d %v", i, j, l)
			}
			ids[l[0].ID] = struct{}{}
		}
	}
	if len(ids) != 6 {
		t.Fatalf("%v", ids)
	}
	key := res.Index().Key(m.At(1, 2)[0].ID)
	c01, _ := ncpoly.Parse(alg, "C0*C1", nil)
	if mono, _ := c01.Monomial(); mono.Key() != key {
		t.Fatalf("%q, expected the key of C0*C1", key)
	}
}

func TestMomentSymmetric(t *testing.T) {
	t.Parallel()
	for _, anticommute := range []bool{false, true} {
		_, m, res, err := build(3, 2, 4, anticommute)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		for i := range m.Size() {
			for j := range m.Size() {
				// Entry (j, i) computed directly must equal the stored (i, j).
				mirror, err := res.Resolve(m.Basis[j].Adjoint().Mul(m.Basis[i]))
				if err != nil {
					t.Fatalf("%+v", err)
				}
				want := nonzero(res.Index(), index.Sum(mirror))
				if got := nonzero(res.Index(), m.At(i, j)); !cmp.Equal(got, want) {
					t.Fatalf("%t %d %d: %v, expected %v", anticommute, i, j, got, want)
				}
			}
		}
	}
}

// nonzero drops the terms of l whose ids are bound to zero.
func nonzero(ix *index.Index, l index.Linear) index.Linear {
	s := make(index.Linear, 0, len(l))
	for _, t := range l {
		if c, ok := ix.Constant(t.ID); ok && c == 0 {
			continue
		}
		s = append(s, t)
	}
	return s
}

func TestMomentReduction(t *testing.T) {
	t.Parallel()
	_, _, naive, err := build(3, 2, 1, false)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	_, m, reduced, err := build(3, 2, 1, true)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if reduced.Index().Len() > naive.Index().Len() {
		t.Fatalf("%d > %d", reduced.Index().Len(), naive.Index().Len())
	}

	// Every id is reachable from an entry.
	reachable := map[int]struct{}{}
	for i := range m.Size() {
		for j := i; j < m.Size(); j++ {
			for _, term := range m.At(i, j) {
				reachable[term.ID] = struct{}{}
			}
		}
	}
	if len(reachable) > reduced.Index().Len() {
		t.Fatalf("%d > %d", len(reachable), reduced.Index().Len())
	}
}

func TestMomentDeterministic(t *testing.T) {
	t.Parallel()
	var keys [][]string
	for _, workers := range []int{1, 3, 16} {
		_, m, res, err := build(3, 2, workers, true)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		ks := make([]string, 0)
		for i := range m.Size() {
			for j := i; j < m.Size(); j++ {
				ks = append(ks, fmt.Sprintf("%v", m.At(i, j)))
			}
		}
		for id := range res.Index().Len() {
			ks = append(ks, res.Index().Key(id))
		}
		keys = append(keys, ks)
	}
	for _, ks := range keys[1:] {
		if diff := cmp.Diff(keys[0], ks); diff != "" {
			t.Fatalf("-want +got\n%s", diff)
		}
	}
}

func TestLocalizing(t *testing.T) {
	t.Parallel()
	alg, vars, subs := lattice(2, false)
	canon := ncpoly.NewCanonicalizer(subs, 0)
	basis, err := Basis(canon, Letters(alg, vars), 1, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	res := NewResolver(canon, index.New())
	b := NewBuilder(res)
	// g = 1 - C0*C0.
	g := ncpoly.MustParse(alg, "1 - C0*C0", nil)
	m, err := b.Localizing(context.Background(), basis, g)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if m.Size() != 3 {
		t.Fatalf("%d", m.Size())
	}

	c00, _ := res.Resolve(ncpoly.MustParse(alg, "C0*C0", nil)[0].Monomial)
	want := index.Sum(index.Term{ID: index.Identity, Coef: 1}, index.Term{ID: c00.ID, Coef: -1})
	if got := m.At(0, 0); !cmp.Equal(got, want) {
		t.Fatalf("%v, expected %v", got, want)
	}
	// Entry (1, 1) is C0*(1 - C0*C0)*C0.
	c0000, _ := res.Resolve(ncpoly.MustParse(alg, "C0^4", nil)[0].Monomial)
	want = index.Sum(index.Term{ID: c00.ID, Coef: 1}, index.Term{ID: c0000.ID, Coef: -1})
	if got := m.At(1, 1); !cmp.Equal(got, want) {
		t.Fatalf("%v, expected %v", got, want)
	}
}

func TestMomentCancel(t *testing.T) {
	t.Parallel()
	alg, vars, subs := lattice(3, true)
	canon := ncpoly.NewCanonicalizer(subs, 0)
	basis, err := Basis(canon, Letters(alg, vars), 2, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBuilder(NewResolver(canon, index.New()))
	if _, err := b.Moment(ctx, basis); !errors.Is(err, context.Canceled) {
		t.Fatalf("%+v", err)
	}
}
