package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type CSVOptions struct {
	// Comma defaults to ','.
	Comma rune
}

// ReadCSV parses a delimited table with a header row. Every column comes
// back as nullable strings: empty cells are null, invalid UTF-8 is replaced,
// and short rows are padded with nulls.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		h = lossy(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		names[i] = h
	}

	values := make([][]string, len(names))
	valid := make([][]bool, len(names))
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		line++
		if len(rec) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(rec), len(names))
		}
		for i := range names {
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			values[i] = append(values[i], lossy(cell))
			valid[i] = append(valid[i], cell != "")
		}
	}

	cols := make([]*Column, len(names))
	for i, n := range names {
		if values[i] == nil {
			values[i], valid[i] = []string{}, []bool{}
		}
		cols[i] = NewStringColumn(n, values[i], valid[i])
	}
	return New(cols...)
}

// WriteCSV writes f with a header row. Nulls become empty cells.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return err
	}
	rec := make([]string, f.NumCols())
	for row := 0; row < f.NumRows(); row++ {
		for i, c := range f.cols {
			rec[i], _ = c.Text(row)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func lossy(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\ufffd")
}
