package sdpa

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Read parses a problem in the sparse SDPA format into a MemStore backed Problem.
// Leading comment lines start with '"' or '*', and the first of them becomes the Comment.
// Punctuation in the header, such as "{2, -3}", is ignored.
func Read(r io.Reader) (*Problem, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	var comment string
	var hasComment bool
	tokens := make([]string, 0)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(tokens) == 0 && (strings.HasPrefix(line, `"`) || strings.HasPrefix(line, "*")) {
			if !hasComment {
				comment, hasComment = line[1:], true
			}
			continue
		}
		tokens = append(tokens, strings.FieldsFunc(line, isSeparator)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	tr := &tokenReader{tokens: tokens}
	m, err := tr.int("m")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if m < 0 {
		return nil, errors.Errorf("m %d", m)
	}
	nblocks, err := tr.int("nblocks")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if nblocks < 0 || nblocks > len(tr.tokens) {
		return nil, errors.Errorf("nblocks %d", nblocks)
	}
	blocks := make([]int, 0, nblocks)
	for b := range nblocks {
		s, err := tr.int(fmt.Sprintf("block size %d", b+1))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		blocks = append(blocks, s)
	}
	if m > len(tr.tokens) {
		return nil, errors.Errorf("m %d with %d tokens", m, len(tr.tokens))
	}

	p, err := newProblem(m, blocks, nil)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	p.Comment = comment
	for i := range m {
		c, err := tr.float(fmt.Sprintf("objective %d", i+1))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		p.Objective[i] = c
	}

	for !tr.done() {
		if len(tr.tokens)-tr.pos < 5 {
			return nil, errors.Errorf("truncated entry %v", tr.tokens[tr.pos:])
		}
		var pos [4]int
		for k := range pos {
			if pos[k], err = tr.int("entry"); err != nil {
				return nil, errors.Wrap(err, "")
			}
		}
		v, err := tr.float("entry value")
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if err := p.Add(pos[0], pos[1], pos[2], pos[3], v); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return p, nil
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\r', ',', '{', '}', '(', ')':
		return true
	}
	return false
}

type tokenReader struct {
	tokens []string
	pos    int
}

func (tr *tokenReader) done() bool { return tr.pos >= len(tr.tokens) }

func (tr *tokenReader) next(what string) (string, error) {
	if tr.done() {
		return "", errors.Errorf("missing %s", what)
	}
	s := tr.tokens[tr.pos]
	tr.pos++
	return s, nil
}

func (tr *tokenReader) int(what string) (int, error) {
	s, err := tr.next(what)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return -1, errors.Wrap(err, what)
	}
	return i, nil
}

func (tr *tokenReader) float(what string) (float64, error) {
	s, err := tr.next(what)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, what)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("%s %s", what, s)
	}
	return v, nil
}
