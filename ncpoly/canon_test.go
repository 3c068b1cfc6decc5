package ncpoly

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

// fermions returns n Hermitian variables with the rules C_r*C_s -> -C_s*C_r for r < s.
func fermions(n int) (*Algebra, []Polynomial, *Substitutions) {
	alg := NewAlgebra()
	cs := make([]Polynomial, 0, n)
	for i := range n {
		cs = append(cs, alg.Hermitian(fmt.Sprintf("C%d", i)))
	}
	subs := NewSubstitutions()
	for r := range n {
		for s := r + 1; s < n; s++ {
			if err := subs.Add(cs[r].Mul(cs[s]), cs[s].Mul(cs[r]).Scale(-1)); err != nil {
				panic(fmt.Sprintf("%+v", err))
			}
		}
	}
	return alg, cs, subs
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()
	alg, cs, subs := fermions(3)
	tests := []struct {
		p    Polynomial
		coef float64
		m    string
	}{
		{p: cs[0].Mul(cs[1]), coef: -1, m: "C1*C0"},
		{p: cs[1].Mul(cs[0]), coef: 1, m: "C1*C0"},
		{p: cs[0].Mul(cs[1]).Mul(cs[2]), coef: -1, m: "C2*C1*C0"},
		{p: cs[0].Mul(cs[2]).Mul(cs[0]), coef: -1, m: "C2*C0*C0"},
		{p: Constant(1), coef: 1, m: "1"},
	}
	for _, test := range tests {
		t.Run(alg.FormatPolynomial(test.p), func(t *testing.T) {
			t.Parallel()
			canon := NewCanonicalizer(subs, 0)
			m, ok := test.p.Monomial()
			if !ok {
				t.Fatalf("%#v is not a monomial", test.p)
			}
			ct, err := canon.Canonicalize(m)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if ct.Coef != test.coef {
				t.Fatalf("%f, expected %f", ct.Coef, test.coef)
			}
			if s := alg.FormatMonomial(ct.Monomial); s != test.m {
				t.Fatalf("%s, expected %s", s, test.m)
			}
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	t.Parallel()
	_, _, subs := fermions(3)
	canon := NewCanonicalizer(subs, 0)

	words := []Monomial{{}}
	for range 4 {
		next := make([]Monomial, 0)
		for _, w := range words {
			for v := range 3 {
				next = append(next, w.Mul(Monomial{{Var: v, Hermitian: true}}))
			}
		}
		words = append(words, next...)
	}
	for _, w := range words {
		ct, err := canon.Canonicalize(w)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		again, err := canon.Canonicalize(ct.Monomial)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if again.Coef != 1 || !again.Monomial.Equal(ct.Monomial) {
			t.Fatalf("%s: %v then %v", w, ct, again)
		}
	}
}

func TestCanonicalizeZero(t *testing.T) {
	t.Parallel()
	alg := NewAlgebra()
	a := alg.Operator("a")
	subs := NewSubstitutions()
	if err := subs.Add(a.Mul(a), nil); err != nil {
		t.Fatalf("%+v", err)
	}
	canon := NewCanonicalizer(subs, 0)
	m, _ := Dagger(a).Mul(a).Mul(a).Monomial()
	ct, err := canon.Canonicalize(m)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !ct.IsZero() {
		t.Fatalf("%v, expected zero", ct)
	}

	p, err := canon.Polynomial(a.Mul(a).Add(Dagger(a)).AddConstant(2))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if s := alg.FormatPolynomial(p); s != "2 + Dagger(a)" {
		t.Fatalf("%s", s)
	}
}

func TestCanonicalizeNonTerminating(t *testing.T) {
	t.Parallel()
	alg := NewAlgebra()
	x := alg.Hermitian("x")
	y := alg.Hermitian("y")
	subs := NewSubstitutions()
	if err := subs.Add(x.Mul(y), y.Mul(x)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := subs.Add(y.Mul(x), x.Mul(y)); err != nil {
		t.Fatalf("%+v", err)
	}
	canon := NewCanonicalizer(subs, 16)
	m, _ := x.Mul(y).Monomial()
	if _, err := canon.Canonicalize(m); !errors.Is(err, ErrNonTerminatingSubstitution) {
		t.Fatalf("%+v", err)
	}

	if err := subs.Add(x.Mul(x), x.Mul(x).Scale(-1)); !errors.Is(err, ErrNonTerminatingSubstitution) {
		t.Fatalf("%+v", err)
	}
}

func TestSubstitutionsInconsistent(t *testing.T) {
	t.Parallel()
	_, cs, subs := fermions(2)
	// Adding the same rule again is fine.
	if err := subs.Add(cs[0].Mul(cs[1]), cs[1].Mul(cs[0]).Scale(-1)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := subs.Add(cs[0].Mul(cs[1]), cs[1].Mul(cs[0])); !errors.Is(err, ErrInconsistentConstraint) {
		t.Fatalf("%+v", err)
	}
	if err := subs.Add(cs[0].Add(cs[1]), cs[1]); !errors.Is(err, ErrNonPolynomialInput) {
		t.Fatalf("%+v", err)
	}
	if subs.Len() != 1 {
		t.Fatalf("%d", subs.Len())
	}
}

func TestCheckConfluence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rules     [][2]string
		maxDegree int
		err       error
	}{
		{rules: [][2]string{{"C0*C1", "-C1*C0"}, {"C0*C2", "-C2*C0"}, {"C1*C2", "-C2*C1"}}, maxDegree: -1},
		{rules: [][2]string{{"A*A", "A"}}, maxDegree: -1},
		{rules: [][2]string{{"A*B", "C"}, {"B*D", "-E"}}, maxDegree: -1, err: ErrInconsistentConstraint},
		{rules: [][2]string{{"A*B", "C"}, {"B*D", "-E"}}, maxDegree: 3, err: ErrInconsistentConstraint},
		// The ambiguous word A*B*D is beyond degree 2.
		{rules: [][2]string{{"A*B", "C"}, {"B*D", "-E"}}, maxDegree: 2},
		{rules: [][2]string{{"A*B*D", "E"}, {"B*D", "F"}}, maxDegree: -1, err: ErrInconsistentConstraint},
		{rules: [][2]string{{"A*B*D", "2*A*F"}, {"B*D", "2*F"}}, maxDegree: -1},
		{rules: [][2]string{{"A*B", "B*A"}, {"B*A", "A*B"}}, maxDegree: -1, err: ErrNonTerminatingSubstitution},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v %d", test.rules, test.maxDegree), func(t *testing.T) {
			t.Parallel()
			alg := NewAlgebra()
			for _, name := range []string{"A", "B", "C", "D", "E", "F", "C0", "C1", "C2"} {
				alg.Hermitian(name)
			}
			subs := NewSubstitutions()
			for _, r := range test.rules {
				if err := subs.Add(MustParse(alg, r[0], nil), MustParse(alg, r[1], nil)); err != nil {
					t.Fatalf("%+v", err)
				}
			}
			err := NewCanonicalizer(subs, 64).CheckConfluence(test.maxDegree)
			if test.err == nil {
				if err != nil {
					t.Fatalf("%+v", err)
				}
				return
			}
			if !errors.Is(err, test.err) {
				t.Fatalf("%+v, expected %v", err, test.err)
			}
		})
	}
}

func TestCriticalPairs(t *testing.T) {
	t.Parallel()
	alg := NewAlgebra()
	a, b := alg.Hermitian("A"), alg.Hermitian("B")
	subs := NewSubstitutions()
	if err := subs.Add(a.Mul(b), b); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := subs.Add(b.Mul(a), a); err != nil {
		t.Fatalf("%+v", err)
	}
	got := make([]string, 0)
	for _, cp := range subs.CriticalPairs(-1) {
		got = append(got, fmt.Sprintf("%s %s %s", alg.FormatMonomial(cp.Word), alg.FormatMonomial(cp.Left.Monomial), alg.FormatMonomial(cp.Right.Monomial)))
	}
	want := []string{"A*B*A B*A A*A", "B*A*B A*B B*B"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("%v, expected %v", got, want)
	}
	if (*Substitutions)(nil).CriticalPairs(-1) != nil {
		t.Fatalf("nil table has critical pairs")
	}
}
