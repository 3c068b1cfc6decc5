package ncpoly

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

const (
	// MaxExponent is the largest power accepted by Parse.
	MaxExponent = 1 << 10

	maxPowerTerms = 1 << 20
)

// Parse parses a polynomial written with +, -, *, integer powers ^, parentheses, and Dagger(...).
// Identifiers are looked up in params first, and then among the variables of alg.
// Division is accepted only by a nonzero constant.
func Parse(alg *Algebra, s string, params map[string]float64) (Polynomial, error) {
	p := &parser{alg: alg, params: params, src: s}
	if err := p.lex(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	poly, err := p.expr()
	if err != nil {
		return nil, errors.Wrap(err, s)
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, errors.Errorf("%s: unexpected %q at %d", s, tok.text, tok.pos)
	}
	return poly, nil
}

// MustParse is like Parse but panics on error.
func MustParse(alg *Algebra, s string, params map[string]float64) Polynomial {
	p, err := Parse(alg, s, params)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return p
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	alg    *Algebra
	params map[string]float64
	src    string

	toks []token
	i    int
}

func (p *parser) lex() error {
	s := p.src
	for i := 0; i < len(s); {
		r := rune(s[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case isDigit(s[i]) || r == '.':
			j := i
			for j < len(s) && (isDigit(s[j]) || s[j] == '.') {
				j++
			}
			// Exponent, as in 1e-3.
			if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
				k := j + 1
				if k < len(s) && (s[k] == '+' || s[k] == '-') {
					k++
				}
				if k < len(s) && isDigit(s[k]) {
					for k < len(s) && isDigit(s[k]) {
						k++
					}
					j = k
				}
			}
			p.toks = append(p.toks, token{kind: tokNum, text: s[i:j], pos: i})
			i = j
		case isIdentByte(s[i]):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			p.toks = append(p.toks, token{kind: tokIdent, text: s[i:j], pos: i})
			i = j
		case strings.ContainsRune("+-*/^()", r):
			text := s[i : i+1]
			// Python style power.
			if r == '*' && i+1 < len(s) && s[i+1] == '*' {
				text = "^"
				i++
			}
			p.toks = append(p.toks, token{kind: tokOp, text: text, pos: i})
			i++
		default:
			return errors.Wrapf(ErrNonPolynomialInput, "%s: unexpected %q at %d", s, r, i)
		}
	}
	p.toks = append(p.toks, token{kind: tokEOF, pos: len(s)})
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentByte(b byte) bool {
	return b == '_' || isDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) accept(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.accept(op) {
		t := p.peek()
		return errors.Errorf("expected %q, got %q at %d", op, t.text, t.pos)
	}
	return nil
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (Polynomial, error) {
	sum, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("+"):
			t, err := p.term()
			if err != nil {
				return nil, err
			}
			sum = sum.Add(t)
		case p.accept("-"):
			t, err := p.term()
			if err != nil {
				return nil, err
			}
			sum = sum.Sub(t)
		default:
			return sum, nil
		}
	}
}

// term := unary (('*'|'/') unary)*
func (p *parser) term() (Polynomial, error) {
	prod, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("*"):
			f, err := p.unary()
			if err != nil {
				return nil, err
			}
			prod = prod.Mul(f)
		case p.peek().kind == tokOp && p.peek().text == "/":
			pos := p.next().pos
			f, err := p.unary()
			if err != nil {
				return nil, err
			}
			c := f.ConstantTerm()
			if !f.IsConstant() || c == 0 {
				return nil, errors.Wrapf(ErrNonPolynomialInput, "division at %d", pos)
			}
			prod = prod.Scale(1 / c)
		default:
			return prod, nil
		}
	}
}

// unary := '-' unary | power
func (p *parser) unary() (Polynomial, error) {
	switch {
	case p.accept("-"):
		u, err := p.unary()
		if err != nil {
			return nil, err
		}
		return u.Scale(-1), nil
	case p.accept("+"):
		return p.unary()
	}
	return p.power()
}

// power := primary ('^' unary)?
func (p *parser) power() (Polynomial, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !p.accept("^") {
		return base, nil
	}

	pos := p.peek().pos
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	e := exp.ConstantTerm()
	if !exp.IsConstant() || e < 0 || e != math.Trunc(e) {
		return nil, errors.Wrapf(ErrNonPolynomialInput, "exponent at %d", pos)
	}
	if e > MaxExponent {
		return nil, errors.Wrapf(ErrNonPolynomialInput, "exponent %g at %d exceeds %d", e, pos, MaxExponent)
	}
	if len(base) > 1 && math.Pow(float64(len(base)), e) > maxPowerTerms {
		return nil, errors.Wrapf(ErrNonPolynomialInput, "power of %d terms to %g at %d", len(base), e, pos)
	}
	return base.Pow(int(e)), nil
}

// primary := number | ident | ident '(' expr ')' | '(' expr ')'
func (p *parser) primary() (Polynomial, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrNonPolynomialInput, "number %q at %d", t.text, t.pos)
		}
		return Constant(v), nil
	case tokIdent:
		if p.accept("(") {
			return p.call(t)
		}
		return p.ident(t)
	case tokOp:
		if t.text == "(" {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	return nil, errors.Errorf("unexpected %q at %d", t.text, t.pos)
}

func (p *parser) call(fn token) (Polynomial, error) {
	switch fn.text {
	case "Dagger", "dagger", "dag", "adjoint":
	default:
		return nil, errors.Wrapf(ErrNonPolynomialInput, "function %s at %d", fn.text, fn.pos)
	}
	arg, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return arg.Adjoint(), nil
}

func (p *parser) ident(t token) (Polynomial, error) {
	if v, ok := p.params[t.text]; ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(ErrNonPolynomialInput, "parameter %s = %f", t.text, v)
		}
		return Constant(v), nil
	}
	id, ok := p.alg.Lookup(t.text)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownVariable, "%s at %d", t.text, t.pos)
	}
	return FromMonomial(1, Monomial{p.alg.Factor(id, false)}), nil
}
