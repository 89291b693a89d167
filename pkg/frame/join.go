package frame

import (
	"fmt"
	"strings"
)

type JoinKind int

const (
	Inner JoinKind = iota
	Left
)

func (k JoinKind) String() string {
	if k == Left {
		return "left"
	}
	return "inner"
}

// RightSuffix is appended to right-hand columns whose names collide with left ones.
const RightSuffix = "_right"

// Join matches rows of f and right on equal key tuples. Null keys never
// match. The right key columns are dropped from the output; other right
// columns colliding with a left name are suffixed with RightSuffix. Output
// rows follow left order, then right match order.
func (f *Frame) Join(right *Frame, leftOn, rightOn []string, how JoinKind) (*Frame, error) {
	if len(leftOn) == 0 || len(leftOn) != len(rightOn) {
		return nil, fmt.Errorf("join needs matching key lists, got %v and %v", leftOn, rightOn)
	}
	lkeys, err := keyColumns(f, leftOn)
	if err != nil {
		return nil, fmt.Errorf("left side: %w", err)
	}
	rkeys, err := keyColumns(right, rightOn)
	if err != nil {
		return nil, fmt.Errorf("right side: %w", err)
	}

	buckets := make(map[string][]int, right.rows)
	for i := 0; i < right.rows; i++ {
		if k, ok := rowKey(rkeys, i); ok {
			buckets[k] = append(buckets[k], i)
		}
	}

	var lidx, ridx []int
	for i := 0; i < f.rows; i++ {
		var matches []int
		if k, ok := rowKey(lkeys, i); ok {
			matches = buckets[k]
		}
		if len(matches) == 0 {
			if how == Left {
				lidx = append(lidx, i)
				ridx = append(ridx, -1)
			}
			continue
		}
		for _, m := range matches {
			lidx = append(lidx, i)
			ridx = append(ridx, m)
		}
	}

	skip := make(map[string]struct{}, len(rightOn))
	for _, n := range rightOn {
		skip[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(f.cols)+len(right.cols))
	for _, c := range f.cols {
		cols = append(cols, c.take(lidx))
	}
	for _, c := range right.cols {
		if _, ok := skip[c.name]; ok {
			continue
		}
		out := c.take(ridx)
		if f.Has(c.name) {
			out.name = c.name + RightSuffix
		}
		cols = append(cols, out)
	}
	joined, err := New(cols...)
	if err != nil {
		return nil, err
	}
	joined.rows = len(lidx)
	return joined, nil
}

func keyColumns(f *Frame, names []string) ([]*Column, error) {
	out := make([]*Column, len(names))
	for i, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func rowKey(cols []*Column, row int) (string, bool) {
	if len(cols) == 1 {
		return cols[0].Text(row)
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		v, ok := c.Text(row)
		if !ok {
			return "", false
		}
		parts[i] = v
	}
	return strings.Join(parts, "\x1f"), true
}
