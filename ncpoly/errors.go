package ncpoly

import (
	"github.com/pkg/errors"
)

var (
	// ErrNonTerminatingSubstitution is returned when rewriting a monomial does not reach a fixed point within the iteration bound.
	ErrNonTerminatingSubstitution = errors.New("non-terminating substitution")

	// ErrInconsistentConstraint is returned for conflicting bindings or substitution rules.
	ErrInconsistentConstraint = errors.New("inconsistent constraint")

	// ErrNonPolynomialInput is returned for expressions that are not polynomials over the declared variables.
	ErrNonPolynomialInput = errors.New("non-polynomial input")

	// ErrUnknownVariable is returned when a monomial references an undeclared variable.
	ErrUnknownVariable = errors.New("unknown variable")
)
