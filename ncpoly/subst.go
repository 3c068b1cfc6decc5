package ncpoly

import (
	"slices"

	"github.com/pkg/errors"
)

// Rule rewrites every occurrence of LHS into RHS.
type Rule struct {
	LHS Monomial
	RHS Term
}

// Substitutions is an ordered table of monomial substitution rules.
//
// The table must be terminating and confluent up to the relaxation order in use:
// every monomial must reach a unique fixed point regardless of the order in which rules are applied.
// Canonicalizer enforces termination with an iteration bound, and Canonicalizer.CheckConfluence verifies confluence.
type Substitutions struct {
	rules []Rule
	// byLHS maps the key of a rule's left hand side to its position in rules.
	byLHS map[string]int
	// byFirst maps the first factor of a left hand side to rule positions in insertion order.
	byFirst map[Factor][]int
}

// NewSubstitutions returns an empty substitution table.
func NewSubstitutions() *Substitutions {
	s := &Substitutions{byLHS: make(map[string]int), byFirst: make(map[Factor][]int)}
	return s
}

// Add adds the rule lhs -> rhs.
// lhs must be a single monomial with coefficient one, and rhs a scaled monomial, a constant, or zero.
func (s *Substitutions) Add(lhs, rhs Polynomial) error {
	l, ok := lhs.Monomial()
	if !ok {
		return errors.Wrapf(ErrNonPolynomialInput, "substitution lhs %#v is not a monomial", lhs)
	}
	var r Term
	switch len(rhs) {
	case 0:
	case 1:
		r = rhs[0]
	default:
		return errors.Wrapf(ErrNonPolynomialInput, "substitution rhs %#v is not a single term", rhs)
	}
	return s.AddRule(Rule{LHS: l, RHS: r})
}

// AddRule adds a rule.
// Adding the same rule twice is a no-op, while giving an existing left hand side a different right hand side is an ErrInconsistentConstraint.
func (s *Substitutions) AddRule(r Rule) error {
	if len(r.LHS) == 0 {
		return errors.Errorf("substitution of the identity")
	}
	if r.RHS.IsZero() {
		r.RHS.Monomial = nil
	}
	if r.RHS.Monomial.Equal(r.LHS) {
		return errors.Wrapf(ErrNonTerminatingSubstitution, "%s rewrites to itself", r.LHS)
	}

	k := r.LHS.Key()
	if i, ok := s.byLHS[k]; ok {
		prev := s.rules[i]
		if prev.RHS.Coef == r.RHS.Coef && prev.RHS.Monomial.Equal(r.RHS.Monomial) {
			return nil
		}
		return errors.Wrapf(ErrInconsistentConstraint, "%s -> %v, previously %v", r.LHS, r.RHS, prev.RHS)
	}

	r.LHS = slices.Clone(r.LHS)
	r.RHS.Monomial = slices.Clone(r.RHS.Monomial)
	s.byLHS[k] = len(s.rules)
	s.byFirst[r.LHS[0]] = append(s.byFirst[r.LHS[0]], len(s.rules))
	s.rules = append(s.rules, r)
	return nil
}

// Len returns the number of rules.
func (s *Substitutions) Len() int { return len(s.rules) }

// Rules returns the rules in insertion order.
func (s *Substitutions) Rules() []Rule { return s.rules }

// rewrite applies one rule at the leftmost position where any rule matches.
// Among the rules matching at that position, the earliest added wins.
func (s *Substitutions) rewrite(m Monomial) (Term, bool) {
	if s == nil {
		return Term{}, false
	}
	for p, f := range m {
		for _, ri := range s.byFirst[f] {
			r := s.rules[ri]
			end := p + len(r.LHS)
			if end > len(m) || !m[p:end].Equal(r.LHS) {
				continue
			}
			return replace(m, p, r), true
		}
	}
	return Term{}, false
}

// replace applies r to the occurrence of r.LHS starting at position p of m.
func replace(m Monomial, p int, r Rule) Term {
	end := p + len(r.LHS)
	out := make(Monomial, 0, len(m)-len(r.LHS)+len(r.RHS.Monomial))
	out = append(out, m[:p]...)
	out = append(out, r.RHS.Monomial...)
	out = append(out, m[end:]...)
	return Term{Coef: r.RHS.Coef, Monomial: out}
}

// CriticalPair is a monomial on which two rules match at overlapping positions,
// together with the results of applying either one of them.
type CriticalPair struct {
	Word  Monomial
	Left  Term
	Right Term
}

// CriticalPairs returns the critical pairs of the table whose words have degree at most maxDegree.
// A negative maxDegree means no limit.
func (s *Substitutions) CriticalPairs(maxDegree int) []CriticalPair {
	if s == nil {
		return nil
	}
	pairs := make([]CriticalPair, 0)
	within := func(w Monomial) bool { return maxDegree < 0 || len(w) <= maxDegree }
	for i, a := range s.rules {
		for j, b := range s.rules {
			// A suffix of a.LHS is a prefix of b.LHS.
			for k := 1; k < min(len(a.LHS), len(b.LHS)); k++ {
				if !a.LHS[len(a.LHS)-k:].Equal(b.LHS[:k]) {
					continue
				}
				w := a.LHS.Mul(b.LHS[k:])
				if !within(w) {
					continue
				}
				pairs = append(pairs, CriticalPair{Word: w, Left: replace(w, 0, a), Right: replace(w, len(a.LHS)-k, b)})
			}

			// b.LHS occurs inside a.LHS.
			if i == j || len(b.LHS) >= len(a.LHS) || !within(a.LHS) {
				continue
			}
			for p := 0; p+len(b.LHS) <= len(a.LHS); p++ {
				if !a.LHS[p : p+len(b.LHS)].Equal(b.LHS) {
					continue
				}
				pairs = append(pairs, CriticalPair{Word: a.LHS, Left: replace(a.LHS, 0, a), Right: replace(a.LHS, p, b)})
			}
		}
	}
	return pairs
}
