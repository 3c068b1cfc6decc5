// Package problem reads relaxation problems from YAML files.
//
// A problem file looks like
//
//	order: 2
//	eliminate_equalities: true
//	variables:
//	  - {name: C0, hermitian: true}
//	  - {name: C1, hermitian: true}
//	parameters: {lam: 2}
//	objective: "-2*lam*C0*C0 + C0*C1 + C1*C0"
//	equalities: ["2*C0*C0 - 1"]
//	inequalities: ["1 - C1*C1"]
//	substitutions:
//	  - {lhs: "C0*C1", rhs: "-C1*C0"}
//
// Instead of listing variables, a file may describe a fermionic lattice,
//
//	order: 2
//	lattice: {length: 3, gamma: 1, lambda: 2}
//
// whose Hamiltonian, anticommutation rules and normalization equalities are generated,
// and to which the listed equalities, inequalities and substitutions are added.
package problem

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fumin/sdprelax/hamiltonian"
	"github.com/fumin/sdprelax/ncpoly"
)

// File is the YAML representation of a problem.
type File struct {
	Order               int                `yaml:"order"`
	EliminateEqualities *bool              `yaml:"eliminate_equalities"`
	Lattice             *Lattice           `yaml:"lattice"`
	Variables           []Variable         `yaml:"variables"`
	Parameters          map[string]float64 `yaml:"parameters"`
	Objective           string             `yaml:"objective"`
	Equalities          []string           `yaml:"equalities"`
	Inequalities        []string           `yaml:"inequalities"`
	Substitutions       []Substitution     `yaml:"substitutions"`
}

// Variable declares an operator.
type Variable struct {
	Name      string `yaml:"name"`
	Hermitian bool   `yaml:"hermitian"`
}

// Substitution is the rule LHS -> RHS.
type Substitution struct {
	LHS string `yaml:"lhs"`
	RHS string `yaml:"rhs"`
}

// Lattice describes a fermionic lattice model, see hamiltonian.Lattice.
type Lattice struct {
	Length   int     `yaml:"length"`
	Width    int     `yaml:"width"`
	Periodic bool    `yaml:"periodic"`
	Gamma    float64 `yaml:"gamma"`
	Lambda   float64 `yaml:"lambda"`
}

// Validate checks the parts of f that do not need parsing.
func (f *File) Validate() error {
	if f.Order < 1 {
		return errors.Errorf("order %d", f.Order)
	}
	if f.Lattice == nil && len(f.Variables) == 0 {
		return errors.Errorf("no variables")
	}
	if f.Lattice != nil && f.Objective != "" {
		return errors.Errorf("objective given with a lattice")
	}
	return nil
}

// Problem is a parsed problem.
type Problem struct {
	Order               int
	EliminateEqualities bool

	Algebra       *ncpoly.Algebra
	Vars          []ncpoly.Polynomial
	Objective     ncpoly.Polynomial
	Inequalities  []ncpoly.Polynomial
	Equalities    []ncpoly.Polynomial
	Substitutions *ncpoly.Substitutions
}

// LoadFile reads the problem at path.
func LoadFile(path string) (*Problem, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	p, err := Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return p, nil
}

// Parse parses a problem from YAML.
func Parse(b []byte) (*Problem, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	p := &Problem{Order: f.Order, EliminateEqualities: true}
	if f.EliminateEqualities != nil {
		p.EliminateEqualities = *f.EliminateEqualities
	}

	if f.Lattice != nil {
		l := hamiltonian.Lattice{Length: f.Lattice.Length, Width: f.Lattice.Width, Periodic: f.Lattice.Periodic, Gamma: f.Lattice.Gamma, Lambda: f.Lattice.Lambda}
		m, err := hamiltonian.Fermionic(l)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		p.Algebra, p.Vars, p.Objective = m.Algebra, m.Vars, m.Hamiltonian
		p.Equalities, p.Substitutions = m.Equalities, m.Substitutions
	} else {
		p.Algebra, p.Substitutions = ncpoly.NewAlgebra(), ncpoly.NewSubstitutions()
	}

	for _, v := range f.Variables {
		if _, ok := f.Parameters[v.Name]; ok {
			return nil, errors.Errorf("%s is both a variable and a parameter", v.Name)
		}
		if _, err := p.Algebra.Declare(v.Name, v.Hermitian); err != nil {
			return nil, errors.Wrap(err, "")
		}
		id, _ := p.Algebra.Lookup(v.Name)
		p.Vars = append(p.Vars, ncpoly.FromMonomial(1, ncpoly.Monomial{p.Algebra.Factor(id, false)}))
	}

	parse := func(s, what string) (ncpoly.Polynomial, error) {
		poly, err := ncpoly.Parse(p.Algebra, s, f.Parameters)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%s %q", what, s))
		}
		return poly, nil
	}
	if f.Objective != "" {
		var err error
		if p.Objective, err = parse(f.Objective, "objective"); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	for i, s := range f.Equalities {
		e, err := parse(s, fmt.Sprintf("equality %d", i))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		p.Equalities = append(p.Equalities, e)
	}
	for i, s := range f.Inequalities {
		g, err := parse(s, fmt.Sprintf("inequality %d", i))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		p.Inequalities = append(p.Inequalities, g)
	}
	for i, sub := range f.Substitutions {
		lhs, err := parse(sub.LHS, fmt.Sprintf("substitution %d lhs", i))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		rhs, err := parse(sub.RHS, fmt.Sprintf("substitution %d rhs", i))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if err := p.Substitutions.Add(lhs, rhs); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("substitution %d", i))
		}
	}
	return p, nil
}
