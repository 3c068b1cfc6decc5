package ncpoly

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxIterations is the default bound on the number of rewrites applied to a single monomial.
	DefaultMaxIterations = 1 << 16
)

// Canonicalizer reduces monomials to canonical form under a substitution table.
// Results are memoized, and a Canonicalizer is safe for concurrent use.
type Canonicalizer struct {
	subs          *Substitutions
	maxIterations int

	mu   sync.RWMutex
	memo map[string]Term
}

// NewCanonicalizer returns a canonicalizer over subs.
// A nil subs canonicalizes every monomial to itself.
func NewCanonicalizer(subs *Substitutions, maxIterations int) *Canonicalizer {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	c := &Canonicalizer{subs: subs, maxIterations: maxIterations, memo: make(map[string]Term)}
	return c
}

// Canonicalize returns the canonical representative of m together with the coefficient relating them,
// m = t.Coef * t.Monomial.
// A zero coefficient means m vanishes.
// The returned monomial must not be modified.
func (c *Canonicalizer) Canonicalize(m Monomial) (Term, error) {
	k := m.Key()
	c.mu.RLock()
	t, ok := c.memo[k]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := c.canonicalize(m)
	if err != nil {
		return Term{}, errors.Wrap(err, "")
	}

	c.mu.Lock()
	c.memo[k] = t
	c.mu.Unlock()
	return t, nil
}

func (c *Canonicalizer) canonicalize(m Monomial) (Term, error) {
	cur := Term{Coef: 1, Monomial: m}
	for i := 0; ; i++ {
		next, ok := c.subs.rewrite(cur.Monomial)
		if !ok {
			break
		}
		if i >= c.maxIterations {
			return Term{}, errors.Wrapf(ErrNonTerminatingSubstitution, "%s after %d rewrites", m, i)
		}

		cur.Coef *= next.Coef
		cur.Monomial = next.Monomial
		if cur.Coef == 0 {
			return Term{}, nil
		}
	}

	// Copy so that the memo never aliases the caller's slice.
	cur.Monomial = append(Monomial{}, cur.Monomial...)
	return cur, nil
}

// Polynomial canonicalizes every term of p and merges the results.
func (c *Canonicalizer) Polynomial(p Polynomial) (Polynomial, error) {
	s := make(Polynomial, 0, len(p))
	for _, t := range p {
		ct, err := c.Canonicalize(t.Monomial)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		s = append(s, Term{Coef: t.Coef * ct.Coef, Monomial: ct.Monomial})
	}
	return s.Simplify(), nil
}

// CheckConfluence fails with ErrInconsistentConstraint if some monomial of degree at most maxDegree
// has two different canonical forms depending on which of the substitution rules is applied first.
// A negative maxDegree checks monomials of every degree.
func (c *Canonicalizer) CheckConfluence(maxDegree int) error {
	for _, cp := range c.subs.CriticalPairs(maxDegree) {
		l, err := c.term(cp.Left)
		if err != nil {
			return errors.Wrap(err, cp.Word.String())
		}
		r, err := c.term(cp.Right)
		if err != nil {
			return errors.Wrap(err, cp.Word.String())
		}
		if !sameTerm(l, r) {
			return errors.Wrapf(ErrInconsistentConstraint, "%s reduces to both %g*%s and %g*%s", cp.Word, l.Coef, l.Monomial, r.Coef, r.Monomial)
		}
	}
	return nil
}

func (c *Canonicalizer) term(t Term) (Term, error) {
	if t.IsZero() {
		return Term{}, nil
	}
	ct, err := c.Canonicalize(t.Monomial)
	if err != nil {
		return Term{}, errors.Wrap(err, "")
	}
	if ct.IsZero() {
		return Term{}, nil
	}
	return Term{Coef: t.Coef * ct.Coef, Monomial: ct.Monomial}, nil
}

func sameTerm(a, b Term) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	scale := max(math.Abs(a.Coef), math.Abs(b.Coef))
	return math.Abs(a.Coef-b.Coef) <= 1e-12*scale && a.Monomial.Equal(b.Monomial)
}

// Len returns the number of memoized monomials.
func (c *Canonicalizer) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memo)
}
