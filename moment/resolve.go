package moment

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fumin/sdprelax/index"
	"github.com/fumin/sdprelax/ncpoly"
)

// Resolver maps monomials to ids of the monomial index.
//
// Moments are real, so <m> and <m†> are the same SDP variable.
// A monomial and its adjoint are registered under whichever canonical form is smaller by ncpoly.Compare,
// and a monomial that canonicalizes to minus its own adjoint has a zero moment.
type Resolver struct {
	canon *ncpoly.Canonicalizer
	ix    *index.Index
}

// NewResolver returns a resolver writing to ix.
func NewResolver(canon *ncpoly.Canonicalizer, ix *index.Index) *Resolver {
	r := &Resolver{canon: canon, ix: ix}
	return r
}

// Index returns the monomial index.
func (r *Resolver) Index() *index.Index { return r.ix }

// Canonicalizer returns the canonicalizer.
func (r *Resolver) Canonicalizer() *ncpoly.Canonicalizer { return r.canon }

// pair is a canonicalized monomial together with its canonicalized adjoint.
type pair struct {
	m   ncpoly.Term
	adj ncpoly.Term
}

// canonical computes the pair of m.
// It does not touch the index, and is safe for concurrent use.
func (r *Resolver) canonical(m ncpoly.Monomial) (pair, error) {
	ct, err := r.canon.Canonicalize(m)
	if err != nil {
		return pair{}, errors.Wrap(err, "")
	}
	if ct.IsZero() {
		return pair{}, nil
	}
	at, err := r.canon.Canonicalize(ct.Monomial.Adjoint())
	if err != nil {
		return pair{}, errors.Wrap(err, "")
	}
	return pair{m: ct, adj: at}, nil
}

// register assigns the id of a pair.
// It must be called from a single goroutine.
func (r *Resolver) register(p pair) (index.Term, error) {
	if p.m.IsZero() || p.adj.IsZero() {
		return index.Term{}, nil
	}

	switch c := ncpoly.Compare(p.m.Monomial, p.adj.Monomial); {
	case c == 0:
		// m† = p.adj.Coef * m, so a real moment must vanish unless the coefficient is one.
		id := r.ix.GetOrCreate(p.m.Monomial.Key())
		if p.adj.Coef != 1 {
			if err := r.ix.BindConstant(id, 0); err != nil {
				return index.Term{}, errors.Wrap(err, fmt.Sprintf("%s", p.m.Monomial))
			}
		}
		return index.Term{ID: id, Coef: p.m.Coef}, nil
	case c < 0:
		id := r.ix.GetOrCreate(p.m.Monomial.Key())
		return index.Term{ID: id, Coef: p.m.Coef}, nil
	default:
		// <m> = <m†> = p.adj.Coef * <p.adj.Monomial>.
		id := r.ix.GetOrCreate(p.adj.Monomial.Key())
		return index.Term{ID: id, Coef: p.m.Coef * p.adj.Coef}, nil
	}
}

// Resolve returns the id and coefficient c with <m> = c * x_id.
// A zero coefficient means the moment of m is identically zero.
func (r *Resolver) Resolve(m ncpoly.Monomial) (index.Term, error) {
	p, err := r.canonical(m)
	if err != nil {
		return index.Term{}, errors.Wrap(err, "")
	}
	t, err := r.register(p)
	if err != nil {
		return index.Term{}, errors.Wrap(err, "")
	}
	return t, nil
}

// Linear resolves every term of p and sums the results.
func (r *Resolver) Linear(p ncpoly.Polynomial) (index.Linear, error) {
	terms := make([]index.Term, 0, len(p))
	for _, t := range p {
		it, err := r.Resolve(t.Monomial)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		terms = append(terms, index.Term{ID: it.ID, Coef: t.Coef * it.Coef})
	}
	return index.Sum(terms...), nil
}
