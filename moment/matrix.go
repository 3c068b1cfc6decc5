package moment

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fumin/sdprelax/index"
	"github.com/fumin/sdprelax/internal/throttle"
	"github.com/fumin/sdprelax/ncpoly"
)

// Matrix is a symmetric matrix of linear combinations of monomial ids.
// Only the upper triangle is stored.
type Matrix struct {
	Basis []ncpoly.Monomial
	// entries holds row i in entries[offset(i) : offset(i)+n-i].
	entries []index.Linear
}

// Size returns the number of rows of m.
func (m *Matrix) Size() int { return len(m.Basis) }

func (m *Matrix) offset(i int) int {
	n := len(m.Basis)
	return i*n - i*(i-1)/2
}

// At returns entry (i, j).
func (m *Matrix) At(i, j int) index.Linear {
	if i > j {
		i, j = j, i
	}
	return m.entries[m.offset(i)+j-i]
}

// BuilderOptions are options for building moment matrices.
type BuilderOptions struct {
	workers int
	logger  *zap.Logger
}

// NewBuilderOptions returns the default options, one worker per CPU and no logging.
func NewBuilderOptions() BuilderOptions {
	opt := BuilderOptions{}
	opt.workers = runtime.GOMAXPROCS(0)
	opt.logger = zap.NewNop()
	return opt
}

// Workers sets the number of goroutines that canonicalize entries.
func (opt BuilderOptions) Workers(n int) BuilderOptions {
	opt.workers = max(n, 1)
	return opt
}

// Logger sets the progress logger.
func (opt BuilderOptions) Logger(l *zap.Logger) BuilderOptions {
	opt.logger = l
	return opt
}

// Builder builds moment and localizing matrices.
//
// Canonicalization of the entries runs concurrently, after which ids are registered by a single goroutine in row-major order.
// Ids therefore never depend on scheduling.
type Builder struct {
	res *Resolver
	opt BuilderOptions
}

// NewBuilder returns a builder registering ids through res.
func NewBuilder(res *Resolver, options ...BuilderOptions) *Builder {
	opt := NewBuilderOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	b := &Builder{res: res, opt: opt}
	return b
}

// Moment builds the moment matrix with entries <adj(b_i) b_j>.
func (b *Builder) Moment(ctx context.Context, basis []ncpoly.Monomial) (*Matrix, error) {
	m, err := b.build(ctx, basis, ncpoly.Constant(1), "moment")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return m, nil
}

// Localizing builds the localizing matrix of g with entries <adj(b_i) g b_j>.
func (b *Builder) Localizing(ctx context.Context, basis []ncpoly.Monomial, g ncpoly.Polynomial) (*Matrix, error) {
	m, err := b.build(ctx, basis, g, "localizing")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return m, nil
}

func (b *Builder) build(ctx context.Context, basis []ncpoly.Monomial, g ncpoly.Polynomial, name string) (*Matrix, error) {
	start := time.Now()
	m := &Matrix{Basis: basis}
	n := len(basis)
	numEntries := n * (n + 1) / 2
	adjoints := make([]ncpoly.Monomial, n)
	for i, bi := range basis {
		adjoints[i] = bi.Adjoint()
	}

	// Canonicalize concurrently, one row per task.
	pairs := make([][]pair, numEntries)
	throttler := throttle.NewSkipThrottler(10 * time.Second)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.opt.workers)
	for i := range n {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			for j := i; j < n; j++ {
				ps := make([]pair, 0, len(g))
				for _, t := range g {
					p, err := b.res.canonical(adjoints[i].Mul(t.Monomial).Mul(basis[j]))
					if err != nil {
						return errors.Wrap(err, fmt.Sprintf("%s entry %d %d", name, i, j))
					}
					ps = append(ps, p)
				}
				pairs[m.offset(i)+j-i] = ps
			}
			if throttler.Ok() {
				b.opt.logger.Info("canonicalizing", zap.String("matrix", name), zap.Int("row", i), zap.Int("size", n))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	// Register ids in row-major order.
	m.entries = make([]index.Linear, numEntries)
	terms := make([]index.Term, 0, len(g))
	for e, ps := range pairs {
		terms = terms[:0]
		for k, p := range ps {
			it, err := b.res.register(p)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%s entry %d", name, e))
			}
			terms = append(terms, index.Term{ID: it.ID, Coef: g[k].Coef * it.Coef})
		}
		m.entries[e] = index.Sum(terms...)
	}

	b.opt.logger.Debug("built", zap.String("matrix", name), zap.Int("size", n), zap.Int("ids", b.res.ix.Len()), zap.Duration("elapsed", time.Since(start)))
	return m, nil
}
