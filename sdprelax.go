// Package sdprelax builds moment matrix relaxations of noncommutative polynomial optimization problems,
// and exports them as semidefinite programs in the sparse SDPA format.
//
// A relaxation of order k minimizes <H> over moment vectors whose moment matrix, indexed by monomials of degree at most k,
// is positive semidefinite.
// Substitution rules reduce the number of distinct moments, equalities either bind moments or become linear constraints,
// and every inequality g >= 0 adds a localizing matrix.
package sdprelax

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fumin/sdprelax/index"
	"github.com/fumin/sdprelax/moment"
	"github.com/fumin/sdprelax/ncpoly"
	"github.com/fumin/sdprelax/sdpa"
)

var (
	// ErrNonTerminatingSubstitution is returned when the substitution rules rewrite a monomial forever.
	ErrNonTerminatingSubstitution = ncpoly.ErrNonTerminatingSubstitution

	// ErrInconsistentConstraint is returned for contradictory equalities and ambiguous substitution rules.
	ErrInconsistentConstraint = ncpoly.ErrInconsistentConstraint

	// ErrNonPolynomialInput is returned for input that is not a polynomial with finite coefficients.
	ErrNonPolynomialInput = ncpoly.ErrNonPolynomialInput

	// ErrUnknownVariable is returned for variables not given to New.
	ErrUnknownVariable = ncpoly.ErrUnknownVariable

	// ErrExportIO is matched by failures to write the SDPA file.
	ErrExportIO = sdpa.ErrExportIO

	// ErrBudgetExceeded is returned when the basis grows beyond Options.MaxBasisSize.
	ErrBudgetExceeded = moment.ErrBudgetExceeded
)

// Options are options for building a relaxation.
type Options struct {
	eliminateEqualities bool
	workers             int
	maxBasisSize        int
	maxIterations       int
	logger              *zap.Logger
	diskDir             string
}

// NewOptions returns the default options.
func NewOptions() Options {
	opt := Options{}
	opt.eliminateEqualities = true
	opt.workers = runtime.GOMAXPROCS(0)
	opt.maxIterations = ncpoly.DefaultMaxIterations
	opt.logger = zap.NewNop()
	return opt
}

// EliminateEqualities sets whether equalities with at most two moments bind those moments instead of becoming linear constraints.
func (opt Options) EliminateEqualities(b bool) Options {
	opt.eliminateEqualities = b
	return opt
}

// Workers sets the number of goroutines canonicalizing matrix entries.
func (opt Options) Workers(n int) Options {
	opt.workers = max(n, 1)
	return opt
}

// MaxBasisSize sets the maximum number of monomials in the moment matrix basis.
// Zero means no limit.
func (opt Options) MaxBasisSize(n int) Options {
	opt.maxBasisSize = n
	return opt
}

// MaxIterations sets the maximum number of rewrites when canonicalizing a single monomial.
func (opt Options) MaxIterations(n int) Options {
	opt.maxIterations = n
	return opt
}

// Logger sets the logger for progress and timing.
func (opt Options) Logger(l *zap.Logger) Options {
	opt.logger = l
	return opt
}

// Disk accumulates SDPA entries in a sqlite database under dir instead of in memory.
func (opt Options) Disk(dir string) Options {
	opt.diskDir = dir
	return opt
}

// Relaxation is a single relaxation construction session.
// It owns every table used during construction.
type Relaxation struct {
	alg  *ncpoly.Algebra
	vars []int
	opt  Options

	order       int
	res         *moment.Resolver
	moment      *moment.Matrix
	localizing  []*moment.Matrix
	objective   index.Linear
	equalities  []index.Linear
	assignment  *index.Assignment
	problem     *sdpa.Problem
	objConstant float64
}

// New returns a session relaxing problems over the variables vars of alg.
// Each element of vars must be a single variable, such as those returned by alg.Hermitian.
func New(alg *ncpoly.Algebra, vars []ncpoly.Polynomial, options ...Options) (*Relaxation, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	r := &Relaxation{alg: alg, opt: opt}
	seen := make(map[int]struct{})
	for i, v := range vars {
		m, ok := v.Monomial()
		if !ok || len(m) != 1 {
			return nil, errors.Wrapf(ErrUnknownVariable, "variable %d is %s", i, alg.FormatPolynomial(v))
		}
		if _, ok := seen[m[0].Var]; ok {
			continue
		}
		seen[m[0].Var] = struct{}{}
		r.vars = append(r.vars, m[0].Var)
	}
	return r, nil
}

// GetRelaxation builds the relaxation of order order that minimizes objective,
// subject to every inequality being nonnegative, every equality being zero, and the substitution rules subs.
// subs may be nil.
//
// Any error aborts the construction, leaving no problem to export.
func (r *Relaxation) GetRelaxation(ctx context.Context, objective ncpoly.Polynomial, inequalities, equalities []ncpoly.Polynomial, subs *ncpoly.Substitutions, order int) error {
	if err := r.reset(); err != nil {
		return errors.Wrap(err, "")
	}
	if err := r.getRelaxation(ctx, objective, inequalities, equalities, subs, order); err != nil {
		r.reset()
		return errors.Wrap(err, "")
	}
	return nil
}

func (r *Relaxation) getRelaxation(ctx context.Context, objective ncpoly.Polynomial, inequalities, equalities []ncpoly.Polynomial, subs *ncpoly.Substitutions, order int) error {
	start := time.Now()
	if order < 1 {
		return errors.Errorf("order %d", order)
	}
	r.order = order
	if err := r.checkVariables(objective, inequalities, equalities, subs); err != nil {
		return errors.Wrap(err, "")
	}

	canon := ncpoly.NewCanonicalizer(subs, r.opt.maxIterations)
	if err := canon.CheckConfluence(maxDegree(order, objective, inequalities, equalities)); err != nil {
		return errors.Wrap(err, "substitutions")
	}
	r.res = moment.NewResolver(canon, index.New())
	basis, err := moment.Basis(canon, moment.Letters(r.alg, r.vars), order, r.opt.maxBasisSize)
	if err != nil {
		return errors.Wrap(err, "")
	}
	r.opt.logger.Info("basis", zap.Int("order", order), zap.Int("size", len(basis)), zap.Duration("elapsed", time.Since(start)))

	builder := moment.NewBuilder(r.res, moment.NewBuilderOptions().Workers(r.opt.workers).Logger(r.opt.logger))
	r.moment, err = builder.Moment(ctx, basis)
	if err != nil {
		return errors.Wrap(err, "")
	}
	for i, g := range inequalities {
		lb := localizingBasis(basis, order, g.Simplify().Degree())
		m, err := builder.Localizing(ctx, lb, g.Simplify())
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("inequality %d", i))
		}
		r.localizing = append(r.localizing, m)
	}
	r.opt.logger.Info("matrices", zap.Int("moments", r.res.Index().Len()), zap.Duration("elapsed", time.Since(start)))

	r.objective, err = r.compile(objective)
	if err != nil {
		return errors.Wrap(err, "objective")
	}
	for i, e := range equalities {
		l, err := r.compile(e)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("equality %d", i))
		}
		kept, err := r.equality(l)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("equality %d %s", i, r.alg.FormatPolynomial(e)))
		}
		if kept {
			r.equalities = append(r.equalities, l)
		}
	}

	r.assignment = r.res.Index().Freeze()
	if err := r.assemble(); err != nil {
		return errors.Wrap(err, "")
	}
	r.opt.logger.Info("relaxation", zap.Int("variables", r.assignment.NumVariables()), zap.Int("blocks", len(r.problem.Blocks)), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// localizingBasis returns the monomials of basis usable in the localizing matrix of a degree deg inequality,
// those of degree at most order - ceil(deg/2).
func localizingBasis(basis []ncpoly.Monomial, order, deg int) []ncpoly.Monomial {
	lorder := max(order-(deg+1)/2, 0)
	lb := make([]ncpoly.Monomial, 0, len(basis))
	for _, b := range basis {
		if len(b) <= lorder {
			lb = append(lb, b)
		}
	}
	return lb
}

// assemble writes the relaxation into an SDPA problem.
// Block 1 is the moment matrix, followed by one block per inequality,
// and finally a diagonal block holding e >= 0 and -e >= 0 for every remaining equality e.
func (r *Relaxation) assemble() error {
	blocks := []int{r.moment.Size()}
	for _, m := range r.localizing {
		blocks = append(blocks, m.Size())
	}
	if len(r.equalities) > 0 {
		blocks = append(blocks, -2*len(r.equalities))
	}

	store, err := r.newStore()
	if err != nil {
		return errors.Wrap(err, "")
	}
	p := sdpa.NewProblem(r.assignment.NumVariables(), blocks, store)
	r.problem = p

	for _, t := range r.objective {
		v, f := r.assignment.Resolve(t.ID)
		if v == 0 {
			r.objConstant += t.Coef * f
			continue
		}
		p.Objective[v-1] += t.Coef * f
	}
	p.Comment = fmt.Sprintf("sdprelax order %d, %d variables, objective constant %s", r.order, p.NumVars, formatFloat(r.objConstant))

	for b, m := range append([]*moment.Matrix{r.moment}, r.localizing...) {
		for i := range m.Size() {
			for j := i; j < m.Size(); j++ {
				if err := r.addLinear(b+1, i+1, j+1, m.At(i, j)); err != nil {
					return errors.Wrap(err, "")
				}
			}
		}
	}
	eqBlock := len(blocks)
	for k, e := range r.equalities {
		if err := r.addLinear(eqBlock, 2*k+1, 2*k+1, e); err != nil {
			return errors.Wrap(err, "")
		}
		if err := r.addLinear(eqBlock, 2*k+2, 2*k+2, e.Scale(-1)); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// addLinear adds the linear expression l at (row, col) of block.
func (r *Relaxation) addLinear(block, row, col int, l index.Linear) error {
	for _, t := range l {
		v, f := r.assignment.Resolve(t.ID)
		value := t.Coef * f
		if v == 0 {
			// F(x) = sum_i x_i F_i - F_0.
			value = -value
		}
		if err := r.problem.Add(v, block, row, col, value); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func (r *Relaxation) newStore() (sdpa.EntryStore, error) {
	if r.opt.diskDir == "" {
		return sdpa.NewMemStore(), nil
	}
	if err := os.MkdirAll(r.opt.diskDir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "")
	}
	f, err := os.CreateTemp(r.opt.diskDir, "entries-*.db")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	store, err := sdpa.NewDiskStore(filepath.Clean(f.Name()))
	if err != nil {
		os.Remove(f.Name())
		return nil, errors.Wrap(err, "")
	}
	return store, nil
}

func (r *Relaxation) reset() error {
	var err error
	if r.problem != nil {
		err = r.problem.Close()
	}
	r.order = 0
	r.res = nil
	r.moment = nil
	r.localizing = nil
	r.objective = nil
	r.equalities = nil
	r.assignment = nil
	r.problem = nil
	r.objConstant = 0
	return err
}

// Close releases the resources of the session.
func (r *Relaxation) Close() error {
	return r.reset()
}

// Problem returns the relaxation as an SDPA problem, or nil if no relaxation has been built.
func (r *Relaxation) Problem() *sdpa.Problem { return r.problem }

// NumVariables returns the number of SDP variables.
func (r *Relaxation) NumVariables() int {
	if r.assignment == nil {
		return 0
	}
	return r.assignment.NumVariables()
}

// NumMoments returns the number of distinct canonical moments encountered during construction.
func (r *Relaxation) NumMoments() int {
	if r.res == nil {
		return 0
	}
	return r.res.Index().Len()
}

// ObjectiveConstant returns the part of the objective not depending on any variable.
func (r *Relaxation) ObjectiveConstant() float64 { return r.objConstant }

// MomentMatrix returns the moment matrix.
func (r *Relaxation) MomentMatrix() *moment.Matrix { return r.moment }

// Index returns the monomial index.
func (r *Relaxation) Index() *index.Index {
	if r.res == nil {
		return nil
	}
	return r.res.Index()
}

// Assignment returns the mapping from moments to SDP variables.
func (r *Relaxation) Assignment() *index.Assignment { return r.assignment }

// WriteSDPA writes the relaxation to path in the sparse SDPA format.
func (r *Relaxation) WriteSDPA(path string) error {
	if r.problem == nil {
		return errors.Errorf("no relaxation")
	}
	if err := sdpa.WriteFile(path, r.problem); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// WriteTo writes the relaxation to w in the sparse SDPA format.
func (r *Relaxation) WriteTo(w io.Writer) (int64, error) {
	if r.problem == nil {
		return 0, errors.Errorf("no relaxation")
	}
	n, err := sdpa.Write(w, r.problem)
	if err != nil {
		return n, errors.Wrap(err, "")
	}
	return n, nil
}
