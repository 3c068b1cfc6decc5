package sdpa

import (
	"slices"

	"github.com/pkg/errors"
)

// EntryStore accumulates sparse entries, summing values that share a (var, block, row, col) position.
type EntryStore interface {
	// Add adds e.Value to the element at the position of e.
	Add(e Entry) error
	// Each calls fn on every nonzero element in (var, block, row, col) order.
	Each(fn func(Entry) error) error
	Close() error
}

// MemStore is an EntryStore held in memory.
type MemStore struct {
	m map[[4]int]float64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	s := &MemStore{m: make(map[[4]int]float64)}
	return s
}

func (s *MemStore) Add(e Entry) error {
	s.m[e.key()] += e.Value
	return nil
}

func (s *MemStore) Each(fn func(Entry) error) error {
	entries := make([]Entry, 0, len(s.m))
	for k, v := range s.m {
		if v == 0 {
			continue
		}
		entries = append(entries, Entry{Var: k[0], Block: k[1], Row: k[2], Col: k[3], Value: v})
	}
	slices.SortFunc(entries, compareEntry)

	for _, e := range entries {
		if err := fn(e); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// Len returns the number of stored positions, including those that summed to zero.
func (s *MemStore) Len() int { return len(s.m) }

func (s *MemStore) Close() error {
	clear(s.m)
	return nil
}
