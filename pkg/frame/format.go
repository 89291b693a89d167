package frame

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow/go/v10/parquet"
)

// Format names an on-disk table encoding.
type Format string

const (
	Parquet Format = "parquet"
	CSV     Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case Parquet, "":
		return Parquet, nil
	case CSV:
		return CSV, nil
	default:
		return "", fmt.Errorf("unsupported table format %q", s)
	}
}

func (f Format) Ext() string { return "." + string(f) }

func (f Format) Encode(w io.Writer, fr *Frame) error {
	if f == CSV {
		return WriteCSV(w, fr)
	}
	return WriteParquet(w, fr)
}

func (f Format) Decode(ctx context.Context, r parquet.ReaderAtSeeker) (*Frame, error) {
	if f == CSV {
		return ReadCSV(io.NewSectionReader(r, 0, 1<<62), CSVOptions{})
	}
	return ReadParquet(ctx, r)
}

// ParseTimestamps converts the named string columns to timestamps. Columns
// that are already timestamps are left alone.
func (f *Frame) ParseTimestamps(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if c.kind == Timestamp {
			continue
		}
		values := make([]time.Time, c.Len())
		valid := make([]bool, c.Len())
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			t, err := parseTimestamp(c.strs[i])
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			values[i], valid[i] = t, true
		}
		cols = append(cols, NewTimestampColumn(name, values, valid))
	}
	return f.WithColumns(cols...)
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
