package sdpa

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		v float64
		s string
	}{
		{v: 0, s: "0"},
		{v: math.Copysign(0, -1), s: "0"},
		{v: 1, s: "1"},
		{v: -0.5, s: "-0.5"},
		{v: 1.0 / 3, s: "0.3333333333333333"},
		{v: -4e-20, s: "-4e-20"},
		{v: 123456789012, s: "123456789012"},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.v), func(t *testing.T) {
			t.Parallel()
			if s := format(test.v); s != test.s {
				t.Fatalf("%s, expected %s", s, test.s)
			}
		})
	}
}

func example() *Problem {
	p := NewProblem(2, []int{2, -2}, nil)
	p.Comment = "example"
	p.Objective = []float64{1, -2}
	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
	}
	must(p.Add(0, 1, 1, 1, -1))
	must(p.Add(1, 1, 2, 1, 1))
	must(p.Add(2, 1, 2, 2, 1))
	must(p.Add(2, 2, 1, 1, 2))
	must(p.Add(2, 2, 2, 2, -2))
	must(p.Add(0, 2, 1, 1, 1))
	must(p.Add(0, 2, 2, 2, -1))
	return p
}

func TestWrite(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	n, err := Write(&buf, example())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := strings.Join([]string{
		`"example`,
		"2",
		"2",
		"2 -2",
		"1 -2",
		"0 1 1 1 -1",
		"0 2 1 1 1",
		"0 2 2 2 -1",
		"1 1 1 2 1",
		"2 1 2 2 1",
		"2 2 1 1 2",
		"2 2 2 2 -2",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("-want +got\n%s", diff)
	}
	if n != int64(buf.Len()) {
		t.Fatalf("%d, expected %d", n, buf.Len())
	}
}

type failWriter struct {
	budget int
}

func (w *failWriter) Write(b []byte) (int, error) {
	if len(b) > w.budget {
		n := w.budget
		w.budget = 0
		return n, errors.Errorf("disk full")
	}
	w.budget -= len(b)
	return len(b), nil
}

func TestWriteError(t *testing.T) {
	t.Parallel()
	large := func() *Problem {
		p := NewProblem(1, []int{-5000}, nil)
		for i := range 5000 {
			if err := p.Add(1, 1, i+1, i+1, float64(i)+0.5); err != nil {
				panic(fmt.Sprintf("%+v", err))
			}
		}
		return p
	}
	tests := []struct {
		name    string
		p       *Problem
		budget  int
		section string
		entry   Entry
	}{
		{name: "header", p: example(), budget: 2, section: sectionHeader},
		{name: "final flush", p: example(), budget: 30, section: sectionEntries, entry: Entry{Var: 0, Block: 1, Row: 1, Col: 1, Value: -1}},
		{name: "full buffer", p: large(), budget: 100, section: sectionEntries, entry: Entry{Var: 1, Block: 1, Row: 1, Col: 1, Value: 0.5}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := Write(&failWriter{budget: test.budget}, test.p)
			if !errors.Is(err, ErrExportIO) {
				t.Fatalf("%+v", err)
			}
			var ee *ExportError
			if !errors.As(err, &ee) {
				t.Fatalf("%+v", err)
			}
			if ee.Section != test.section || ee.Entry != test.entry {
				t.Fatalf("%s %+v, expected %s %+v", ee.Section, ee.Entry, test.section, test.entry)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "p.dat-s")
	if err := WriteFile(path, example()); err != nil {
		t.Fatalf("%+v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var buf bytes.Buffer
	if _, err := Write(&buf, example()); err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(b, buf.Bytes()) {
		t.Fatalf("%s, expected %s", b, buf.Bytes())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if perm := info.Mode().Perm(); perm != 0644 {
		t.Fatalf("%v", perm)
	}

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("%v", entries)
	}
}

func TestWriteFileMissingDir(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "missing", "p.dat-s")
	err = WriteFile(path, example())
	var ee *ExportError
	if !errors.As(err, &ee) || !errors.Is(err, ErrExportIO) {
		t.Fatalf("%+v", err)
	}
	if ee.Path != path {
		t.Fatalf("%s, expected %s", ee.Path, path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("%+v", err)
	}
}

func TestRead(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if _, err := Write(&buf, example()); err != nil {
		t.Fatalf("%+v", err)
	}
	p, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var again bytes.Buffer
	if _, err := Write(&again, p); err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff(buf.String(), again.String()); diff != "" {
		t.Fatalf("-want +got\n%s", diff)
	}
}

func TestReadPunctuation(t *testing.T) {
	t.Parallel()
	s := strings.Join([]string{
		`"comment`,
		`* another comment`,
		"1",
		"2",
		"{2, -1}",
		"{3.5}",
		"0 1 1 1 -1",
		"1 1 1 2 1",
		"1 2 1 1 1",
	}, "\n")
	p, err := Read(strings.NewReader(s))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if p.Comment != "comment" {
		t.Fatalf("%q", p.Comment)
	}
	if diff := cmp.Diff([]int{2, -1}, p.Blocks); diff != "" {
		t.Fatalf("-want +got\n%s", diff)
	}
	if diff := cmp.Diff([]float64{3.5}, p.Objective); diff != "" {
		t.Fatalf("-want +got\n%s", diff)
	}
	entries, err := collect(p.Entries)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("%v", entries)
	}
}

func TestReadError(t *testing.T) {
	t.Parallel()
	tests := []string{
		"",
		"1\n1\n2\n",
		"1\n1\n2\n1\n1 1 1",
		"1\n1\n2\n1\n1 1 3 3 1",
		"x\n1\n2\n1\n",
		"\"c\n1\n-1\n",
		"\"c\n-1\n1\n2\n",
		"1\n1\n0\n1\n",
		"1\n2\n2 0\n1\n",
		"1\n1\n2\nNaN\n",
		"1\n1\n2\n1\n0 1 1 1 Inf",
		"1000000000000\n1\n2\n1\n",
		"1\n1000000000000\n2\n1\n",
	}
	for _, test := range tests {
		t.Run(test, func(t *testing.T) {
			t.Parallel()
			if _, err := Read(strings.NewReader(test)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
