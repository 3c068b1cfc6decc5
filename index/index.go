// Package index assigns integer ids to canonical monomials,
// and tracks which ids are bound to each other or to constants.
//
// Bindings form a weighted union-find: every id i stores a parent p and a ratio r with x_i = r * x_p.
// Roots are always the smallest id of their class, and may carry a constant value.
package index

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/sdprelax/ncpoly"
)

const (
	// Identity is the id of the empty monomial, which is bound to 1.
	Identity = 0

	tolerance = 1e-12
)

// Index is the table of monomial ids of a single relaxation.
type Index struct {
	ids  map[string]int
	keys []string

	parent []int
	ratio  []float64
	// constant holds the values of constant roots.
	constant map[int]float64

	frozen bool
}

// New returns an index containing only the identity.
func New() *Index {
	ix := &Index{ids: make(map[string]int), constant: make(map[int]float64)}
	ix.GetOrCreate("")
	ix.constant[Identity] = 1
	return ix
}

// GetOrCreate returns the id of key, allocating the next id if key is new.
// key is the structural key of a canonical monomial.
func (ix *Index) GetOrCreate(key string) int {
	if id, ok := ix.ids[key]; ok {
		return id
	}
	if ix.frozen {
		panic(fmt.Sprintf("new key %q in frozen index", key))
	}

	id := len(ix.keys)
	ix.ids[key] = id
	ix.keys = append(ix.keys, key)
	ix.parent = append(ix.parent, id)
	ix.ratio = append(ix.ratio, 1)
	return id
}

// Lookup returns the id of key.
func (ix *Index) Lookup(key string) (int, bool) {
	id, ok := ix.ids[key]
	return id, ok
}

// Key returns the key of id.
func (ix *Index) Key(id int) string { return ix.keys[id] }

// Len returns the number of ids.
func (ix *Index) Len() int { return len(ix.keys) }

// find returns the root of id and the ratio w with x_id = w * x_root.
func (ix *Index) find(id int) (int, float64) {
	p := ix.parent[id]
	if p == id {
		return id, 1
	}
	root, w := ix.find(p)
	ix.parent[id] = root
	ix.ratio[id] *= w
	return root, ix.ratio[id]
}

// BindEqual records x_a = ratio * x_b.
// If a and b are already in the same class with a different ratio, the class is forced to zero.
func (ix *Index) BindEqual(a, b int, ratio float64) error {
	if ix.frozen {
		return errors.Errorf("bind %d %d on frozen index", a, b)
	}
	if ratio == 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return errors.Errorf("bind %d %d with ratio %f", a, b, ratio)
	}

	ra, wa := ix.find(a)
	rb, wb := ix.find(b)
	// k relates the roots, x_ra = k * x_rb.
	k := ratio * wb / wa
	if ra == rb {
		if approxEqual(k, 1) {
			return nil
		}
		if err := ix.bindRoot(ra, 0); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d = %f * %d", a, ratio, b))
		}
		return nil
	}

	// Make the smaller id the root.
	child, root, kc := rb, ra, 1/k
	if rb < ra {
		child, root, kc = ra, rb, k
	}
	if c, ok := ix.constant[child]; ok {
		if err := ix.bindRoot(root, c/kc); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d = %f * %d", a, ratio, b))
		}
		delete(ix.constant, child)
	}
	ix.parent[child] = root
	ix.ratio[child] = kc
	return nil
}

// BindConstant records x_id = v.
func (ix *Index) BindConstant(id int, v float64) error {
	if ix.frozen {
		return errors.Errorf("bind %d on frozen index", id)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.Errorf("bind %d to %f", id, v)
	}

	root, w := ix.find(id)
	if err := ix.bindRoot(root, v/w); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%d = %f", id, v))
	}
	return nil
}

func (ix *Index) bindRoot(root int, v float64) error {
	if prev, ok := ix.constant[root]; ok {
		if approxEqual(prev, v) {
			return nil
		}
		return errors.Wrapf(ncpoly.ErrInconsistentConstraint, "%d bound to %f and %f", root, prev, v)
	}
	ix.constant[root] = v
	return nil
}

// Constant returns the value of id if its class is bound to a constant.
func (ix *Index) Constant(id int) (float64, bool) {
	root, w := ix.find(id)
	c, ok := ix.constant[root]
	return w * c, ok
}

// Same reports whether a and b are in the same class, and the ratio r with x_a = r * x_b.
func (ix *Index) Same(a, b int) (bool, float64) {
	ra, wa := ix.find(a)
	rb, wb := ix.find(b)
	if ra != rb {
		return false, 0
	}
	return true, wa / wb
}

// Freeze stops further bindings and numbers the SDP variables.
// Every class that is not bound to a constant becomes one variable,
// numbered 1, 2, ... in ascending order of the smallest id in the class.
func (ix *Index) Freeze() *Assignment {
	ix.frozen = true

	a := &Assignment{vars: make([]int, len(ix.keys)), factors: make([]float64, len(ix.keys))}
	rootVar := make(map[int]int)
	for id := range ix.keys {
		root, w := ix.find(id)
		if c, ok := ix.constant[root]; ok {
			a.factors[id] = w * c
			continue
		}

		v, ok := rootVar[root]
		if !ok {
			a.numVars++
			v = a.numVars
			rootVar[root] = v
		}
		a.vars[id] = v
		a.factors[id] = w
	}
	return a
}

// Frozen reports whether Freeze has been called.
func (ix *Index) Frozen() bool { return ix.frozen }

// Assignment maps monomial ids to SDP variables.
type Assignment struct {
	numVars int
	vars    []int
	factors []float64
}

// Resolve returns the SDP variable v and factor f of id, such that x_id = f * y_v.
// v is zero when id is a constant, in which case x_id = f.
func (a *Assignment) Resolve(id int) (int, float64) {
	return a.vars[id], a.factors[id]
}

// NumVariables returns the number of SDP variables.
func (a *Assignment) NumVariables() int { return a.numVars }

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*max(1, math.Abs(a), math.Abs(b))
}
