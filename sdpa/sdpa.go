// Package sdpa writes and reads semidefinite programs in the sparse SDPA format.
//
// A problem with m variables x and block diagonal symmetric matrices F_0, ..., F_m is
//
//	minimize    c_1 x_1 + ... + c_m x_m
//	subject to  F(x) = x_1 F_1 + ... + x_m F_m - F_0 is positive semidefinite.
//
// The sparse format is
//
//	"comment
//	m
//	nblocks
//	s_1 s_2 ... s_nblocks
//	c_1 c_2 ... c_m
//	v b i j value
//	...
//
// where a negative block size denotes a diagonal block, and each entry line sets element (i, j) of block b of F_v,
// 1-indexed with i <= j.
package sdpa

import (
	"cmp"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Entry is an element of one of the constraint matrices.
type Entry struct {
	Var   int
	Block int
	Row   int
	Col   int
	Value float64
}

func (e Entry) key() [4]int { return [4]int{e.Var, e.Block, e.Row, e.Col} }

// compareEntry orders entries by matrix, block, row and column.
func compareEntry(a, b Entry) int {
	if c := cmp.Compare(a.Var, b.Var); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Block, b.Block); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

// Problem is a semidefinite program in SDPA form.
type Problem struct {
	Comment   string
	NumVars   int
	Blocks    []int
	Objective []float64

	// Entries accumulates the constraint matrices.
	Entries EntryStore
}

// NewProblem returns a problem with m variables and the given block sizes, accumulating entries in store.
// A nil store means a new MemStore.
// NewProblem panics if m is negative or a block size is zero.
func NewProblem(m int, blocks []int, store EntryStore) *Problem {
	p, err := newProblem(m, blocks, store)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return p
}

func newProblem(m int, blocks []int, store EntryStore) (*Problem, error) {
	if m < 0 {
		return nil, errors.Errorf("%d variables", m)
	}
	for b, s := range blocks {
		if s == 0 {
			return nil, errors.Errorf("block %d has size 0", b+1)
		}
	}
	if store == nil {
		store = NewMemStore()
	}
	p := &Problem{NumVars: m, Blocks: blocks, Objective: make([]float64, m), Entries: store}
	return p, nil
}

// Add adds value to element (row, col) of block of F_v.
// Indices are 1-indexed, and (row, col) is mirrored into the upper triangle.
// Repeated additions to the same element are summed.
func (p *Problem) Add(v, block, row, col int, value float64) error {
	if row > col {
		row, col = col, row
	}
	if v < 0 || v > p.NumVars {
		return errors.Errorf("variable %d of %d", v, p.NumVars)
	}
	if block < 1 || block > len(p.Blocks) {
		return errors.Errorf("block %d of %d", block, len(p.Blocks))
	}
	size := p.Blocks[block-1]
	if size < 0 {
		size = -size
		if row != col {
			return errors.Errorf("off diagonal (%d, %d) in diagonal block %d", row, col, block)
		}
	}
	if row < 1 || col > size {
		return errors.Errorf("(%d, %d) in block %d of size %d", row, col, block, size)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Errorf("value %v at %d %d %d %d", value, v, block, row, col)
	}
	if value == 0 {
		return nil
	}

	if err := p.Entries.Add(Entry{Var: v, Block: block, Row: row, Col: col, Value: value}); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%d %d %d %d", v, block, row, col))
	}
	return nil
}

// Close releases the entry store.
func (p *Problem) Close() error {
	return p.Entries.Close()
}
