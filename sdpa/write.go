package sdpa

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrExportIO is matched by every *ExportError.
	ErrExportIO = errors.New("export io failure")
)

// ExportError is a failure to write a problem.
type ExportError struct {
	// Path is the destination file, empty when writing to a stream.
	Path string
	// Section is the part of the file being written, such as "header" or "entries".
	Section string
	// Entry is the first entry of the buffered block that failed to reach the destination, when Section is "entries".
	// Entries before it were written completely.
	Entry Entry
	Err   error
}

func (e *ExportError) Error() string {
	where := e.Section
	if e.Section == sectionEntries {
		where = fmt.Sprintf("entry %d %d %d %d", e.Entry.Var, e.Entry.Block, e.Entry.Row, e.Entry.Col)
	}
	if e.Path != "" {
		where = e.Path + " " + where
	}
	return fmt.Sprintf("%s: %s: %v", ErrExportIO, where, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

func (e *ExportError) Is(target error) bool { return target == ErrExportIO }

const (
	sectionHeader  = "header"
	sectionEntries = "entries"
	sectionFile    = "file"
)

// format formats v with 16 significant digits.
func format(v float64) string {
	// Avoid "-0".
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 16, 64)
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// Write writes p to w in the sparse SDPA format.
func Write(w io.Writer, p *Problem) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)

	var header strings.Builder
	header.WriteString(`"`)
	header.WriteString(strings.ReplaceAll(p.Comment, "\n", " "))
	header.WriteString("\n")
	fmt.Fprintf(&header, "%d\n%d\n", p.NumVars, len(p.Blocks))
	for i, s := range p.Blocks {
		if i > 0 {
			header.WriteString(" ")
		}
		header.WriteString(strconv.Itoa(s))
	}
	header.WriteString("\n")
	for i, c := range p.Objective {
		if i > 0 {
			header.WriteString(" ")
		}
		header.WriteString(format(c))
	}
	header.WriteString("\n")
	if _, err := bw.WriteString(header.String()); err != nil {
		return cw.n, &ExportError{Section: sectionHeader, Err: errors.Wrap(err, "")}
	}

	// The header is flushed on its own, so that every buffered block of entries starts at pending.
	if err := bw.Flush(); err != nil {
		return cw.n, &ExportError{Section: sectionHeader, Err: errors.Wrap(err, "")}
	}

	var line []byte
	var pending Entry
	err := p.Entries.Each(func(e Entry) error {
		line = line[:0]
		line = strconv.AppendInt(line, int64(e.Var), 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(e.Block), 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(e.Row), 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(e.Col), 10)
		line = append(line, ' ')
		line = append(line, format(e.Value)...)
		line = append(line, '\n')
		// Remember the first entry of the buffered block, so that a failed flush names it.
		if bw.Buffered() == 0 {
			pending = e
		}
		if bw.Available() < len(line) {
			if err := bw.Flush(); err != nil {
				return &ExportError{Section: sectionEntries, Entry: pending, Err: errors.Wrap(err, "")}
			}
			pending = e
		}
		if _, err := bw.Write(line); err != nil {
			return &ExportError{Section: sectionEntries, Entry: pending, Err: errors.Wrap(err, "")}
		}
		return nil
	})
	if err != nil {
		var ee *ExportError
		if errors.As(err, &ee) {
			return cw.n, ee
		}
		return cw.n, errors.Wrap(err, "")
	}

	if err := bw.Flush(); err != nil {
		return cw.n, &ExportError{Section: sectionEntries, Entry: pending, Err: errors.Wrap(err, "")}
	}
	return cw.n, nil
}

// WriteFile writes p to path.
// The problem is written to a temporary file in the same directory that is renamed to path on success,
// so path is never left partially written.
func WriteFile(path string, p *Problem) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &ExportError{Path: path, Section: sectionFile, Err: errors.Wrap(err, "")}
	}
	tmp := f.Name()

	// CreateTemp makes the file private.
	if err1 := f.Chmod(0644); err1 != nil {
		err = &ExportError{Section: sectionFile, Err: errors.Wrap(err1, "")}
	}
	if err == nil {
		if _, err1 := Write(f, p); err1 != nil {
			err = err1
		}
	}
	if err1 := f.Close(); err1 != nil && err == nil {
		err = &ExportError{Section: sectionFile, Err: errors.Wrap(err1, "")}
	}
	if err == nil {
		if err1 := os.Rename(tmp, path); err1 != nil {
			err = &ExportError{Section: sectionFile, Err: errors.Wrap(err1, "")}
		}
	}
	if err != nil {
		os.Remove(tmp)
		var ee *ExportError
		if errors.As(err, &ee) {
			ee.Path = path
			return ee
		}
		return errors.Wrap(err, path)
	}
	return nil
}
