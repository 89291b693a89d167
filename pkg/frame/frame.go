// Package frame is a small column-oriented table used to reshape raw
// registry exports. Frames are immutable: every operation returns a new
// Frame that may share column storage with its input.
package frame

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrColumnNotFound = errors.New("column not found")

type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a frame, checking that names are unique and lengths agree.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.name)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.name, c.Len(), f.rows)
		}
		f.index[c.name] = i
	}
	return f, nil
}

// Empty returns a frame with no columns and no rows.
func Empty() *Frame {
	return &Frame{index: map[string]int{}}
}

func (f *Frame) NumRows() int { return f.rows }
func (f *Frame) NumCols() int { return len(f.cols) }

func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.cols))
	copy(out, f.cols)
	return out
}

func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.name
	}
	return out
}

func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrColumnNotFound, name, strings.Join(f.Names(), ", "))
	}
	return f.cols[i], nil
}

// Schema renders column names and kinds for diagnostics.
func (f *Frame) Schema() string {
	parts := make([]string, len(f.cols))
	for i, c := range f.cols {
		parts[i] = c.name + ": " + c.kind.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Select projects the frame to the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = f.rows
	return out, nil
}

// Drop removes the named columns; unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if _, ok := skip[c.name]; !ok {
			cols = append(cols, c)
		}
	}
	out, _ := New(cols...)
	out.rows = f.rows
	return out
}

func (f *Frame) Rename(from, to string) (*Frame, error) {
	return f.RenameAll(func(name string) string {
		if name == from {
			return to
		}
		return name
	}, from)
}

// RenameAll applies fn to every column name. Any names listed in require must exist.
func (f *Frame) RenameAll(fn func(string) string, require ...string) (*Frame, error) {
	for _, r := range require {
		if !f.Has(r) {
			_, err := f.Column(r)
			return nil, err
		}
	}
	cols := make([]*Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.Rename(fn(c.name))
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = f.rows
	return out, nil
}

// WithColumns replaces same-named columns in place and appends new ones.
func (f *Frame) WithColumns(cols ...*Column) (*Frame, error) {
	next := f.Columns()
	index := make(map[string]int, len(f.index))
	for k, v := range f.index {
		index[k] = v
	}
	for _, c := range cols {
		if c.Len() != f.rows && len(f.cols) > 0 {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.name, c.Len(), f.rows)
		}
		if i, ok := index[c.name]; ok {
			next[i] = c
			continue
		}
		index[c.name] = len(next)
		next = append(next, c)
	}
	return New(next...)
}

// Take gathers rows by index; negative indexes produce null rows.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(idx)
	}
	out, _ := New(cols...)
	out.rows = len(idx)
	return out
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	idx := make([]int, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// SortStable orders rows by less, keeping input order among equal rows.
func (f *Frame) SortStable(less func(a, b int) bool) *Frame {
	idx := make([]int, f.rows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(idx[i], idx[j]) })
	return f.Take(idx)
}

// FirstBy keeps the first row of every group of equal key values. Groups
// appear in order of their first row. Rows with a null key form no group and
// are dropped.
func (f *Frame) FirstBy(key string) (*Frame, error) {
	c, err := f.Column(key)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	idx := make([]int, 0)
	for i := 0; i < f.rows; i++ {
		k, ok := c.Text(i)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		idx = append(idx, i)
	}
	return f.Take(idx), nil
}
