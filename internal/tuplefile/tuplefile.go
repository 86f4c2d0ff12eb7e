// Package tuplefile reads and writes the line-oriented tuple format: one
// tuple per line, canonical seeds joined by single spaces.
package tuplefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/FranksOps/seedcorpus/internal/seed"
	"github.com/FranksOps/seedcorpus/internal/tuple"
)

// Line renders t as it appears in a tuple file, without the newline.
func Line(t tuple.Tuple) string {
	return t.String()
}

// Write writes one newline-terminated line per tuple. Failures are returned as
// *tuple.IOError.
func Write(w io.Writer, tuples []tuple.Tuple) error {
	bw := bufio.NewWriter(w)
	for _, t := range tuples {
		if _, err := bw.WriteString(Line(t) + "\n"); err != nil {
			return &tuple.IOError{Op: "write tuples", Err: err}
		}
	}
	if err := bw.Flush(); err != nil {
		return &tuple.IOError{Op: "write tuples", Err: err}
	}
	return nil
}

// WriteFile writes tuples to path atomically. The content goes to a temporary
// file in the same directory which replaces path only once it is complete, so
// a failed write leaves no partial file behind.
func WriteFile(path string, tuples []tuple.Tuple) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &tuple.IOError{Op: "create tuple file", Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(op string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &tuple.IOError{Op: op, Err: err}
	}

	if err := Write(tmp, tuples); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync tuple file", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail("chmod tuple file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &tuple.IOError{Op: "close tuple file", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &tuple.IOError{Op: "rename tuple file", Err: err}
	}
	return nil
}

// Read parses a tuple file. Blank lines are skipped.
func Read(r io.Reader) ([]tuple.Tuple, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var out []tuple.Tuple
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, tuple.Tuple(seed.Split(line)))
	}
	if err := sc.Err(); err != nil {
		return nil, &tuple.IOError{Op: "read tuples", Err: err}
	}
	return out, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) ([]tuple.Tuple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &tuple.IOError{Op: "open tuple file", Err: err}
	}
	defer f.Close()

	tuples, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tuples, nil
}
