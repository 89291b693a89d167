package frame

import (
	"time"
)

type Kind uint8

const (
	String Kind = iota
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case String:
		return "str"
	case Timestamp:
		return "datetime[us]"
	default:
		return "unknown"
	}
}

// TimestampLayout is the textual form used for timestamp cells in CSV output.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Column is a named, nullable vector of a single kind.
type Column struct {
	name  string
	kind  Kind
	strs  []string
	times []time.Time
	valid []bool
}

// NewStringColumn builds a string column. A nil valid slice marks every value present.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	return &Column{name: name, kind: String, strs: values, valid: fillValid(valid, len(values))}
}

// NewTimestampColumn builds a timestamp column. Values are truncated to
// microseconds and stored in UTC.
func NewTimestampColumn(name string, values []time.Time, valid []bool) *Column {
	times := make([]time.Time, len(values))
	for i, t := range values {
		times[i] = t.UTC().Truncate(time.Microsecond)
	}
	return &Column{name: name, kind: Timestamp, times: times, valid: fillValid(valid, len(values))}
}

// NullColumn returns an all-null column of the given kind.
func NullColumn(name string, kind Kind, n int) *Column {
	valid := make([]bool, n)
	if kind == Timestamp {
		return &Column{name: name, kind: kind, times: make([]time.Time, n), valid: valid}
	}
	return &Column{name: name, kind: kind, strs: make([]string, n), valid: valid}
}

func fillValid(valid []bool, n int) []bool {
	if valid != nil {
		return valid
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.valid) }

func (c *Column) IsNull(i int) bool { return !c.valid[i] }

// Str returns the string value at i; empty for nulls and timestamp columns.
func (c *Column) Str(i int) string {
	if c.kind != String || !c.valid[i] {
		return ""
	}
	return c.strs[i]
}

// Time returns the timestamp value at i; zero for nulls and string columns.
func (c *Column) Time(i int) time.Time {
	if c.kind != Timestamp || !c.valid[i] {
		return time.Time{}
	}
	return c.times[i]
}

// Text renders the cell the way CSV output and join keys see it.
func (c *Column) Text(i int) (string, bool) {
	if !c.valid[i] {
		return "", false
	}
	if c.kind == Timestamp {
		return c.times[i].Format(TimestampLayout), true
	}
	return c.strs[i], true
}

// Rename returns a copy of c under a new name sharing the same data.
func (c *Column) Rename(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// take gathers rows by index; a negative index yields a null.
func (c *Column) take(idx []int) *Column {
	out := &Column{name: c.name, kind: c.kind, valid: make([]bool, len(idx))}
	if c.kind == Timestamp {
		out.times = make([]time.Time, len(idx))
	} else {
		out.strs = make([]string, len(idx))
	}
	for j, i := range idx {
		if i < 0 || !c.valid[i] {
			continue
		}
		out.valid[j] = true
		if c.kind == Timestamp {
			out.times[j] = c.times[i]
		} else {
			out.strs[j] = c.strs[i]
		}
	}
	return out
}
