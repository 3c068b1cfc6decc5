package sdpa

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Solution is the part of an SDPA solver output file that concerns the primal variables.
type Solution struct {
	Phase  string
	Primal float64
	Dual   float64
	X      []float64
}

// ReadSolution parses the phase.value, objValPrimal, objValDual and xVec fields of an SDPA output file.
func ReadSolution(r io.Reader) (Solution, error) {
	var sol Solution
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	var inX bool
	var xs strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if inX {
			xs.WriteString(line)
			if strings.Contains(line, "}") {
				inX = false
			}
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		switch name {
		case "phase.value":
			sol.Phase = value
		case "objValPrimal", "objValDual":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Solution{}, errors.Wrap(err, line)
			}
			if name == "objValPrimal" {
				sol.Primal = v
			} else {
				sol.Dual = v
			}
		case "xVec":
			xs.WriteString(value)
			inX = !strings.Contains(value, "}")
		}
	}
	if err := scanner.Err(); err != nil {
		return Solution{}, errors.Wrap(err, "")
	}

	for _, s := range strings.FieldsFunc(xs.String(), isSeparator) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Solution{}, errors.Wrap(err, "xVec")
		}
		sol.X = append(sol.X, v)
	}
	return sol, nil
}

// Report is the evaluation of a problem at a point.
type Report struct {
	Objective float64
	// MinEigenvalues holds the smallest eigenvalue of every block of F(x).
	MinEigenvalues []float64
	Feasible       bool
}

// Check evaluates the objective and F(x) at x.
// x is feasible if no block of F(x) has an eigenvalue below -tol.
func (p *Problem) Check(x []float64, tol float64) (Report, error) {
	if len(x) != p.NumVars {
		return Report{}, errors.Errorf("%d values for %d variables", len(x), p.NumVars)
	}

	dense := make([]*mat.SymDense, len(p.Blocks))
	diag := make([][]float64, len(p.Blocks))
	for b, s := range p.Blocks {
		switch {
		case s == 0:
			return Report{}, errors.Errorf("block %d has size 0", b+1)
		case s < 0:
			diag[b] = make([]float64, -s)
		default:
			dense[b] = mat.NewSymDense(s, nil)
		}
	}
	err := p.Entries.Each(func(e Entry) error {
		v := -e.Value
		if e.Var > 0 {
			v = x[e.Var-1] * e.Value
		}
		b, i, j := e.Block-1, e.Row-1, e.Col-1
		if d := diag[b]; d != nil {
			d[i] += v
			return nil
		}
		dense[b].SetSym(i, j, dense[b].At(i, j)+v)
		return nil
	})
	if err != nil {
		return Report{}, errors.Wrap(err, "")
	}

	rep := Report{Feasible: true}
	for i, c := range p.Objective {
		rep.Objective += c * x[i]
	}
	for b := range p.Blocks {
		minEig := math.Inf(1)
		switch {
		case diag[b] != nil:
			for _, v := range diag[b] {
				minEig = min(minEig, v)
			}
		default:
			var eig mat.EigenSym
			if ok := eig.Factorize(dense[b], false); !ok {
				return Report{}, errors.Errorf("eigen decomposition of block %d failed", b+1)
			}
			// Values are in ascending order.
			minEig = eig.Values(nil)[0]
		}
		rep.MinEigenvalues = append(rep.MinEigenvalues, minEig)
		if minEig < -tol {
			rep.Feasible = false
		}
	}
	return rep, nil
}
