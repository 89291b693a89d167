package frame

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
)

const parquetChunkSize = 64 * 1024

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond}

// WriteParquet encodes f as a single parquet file. Output bytes depend only
// on the frame's content, so identical frames encode identically.
func WriteParquet(w io.Writer, f *Frame) error {
	mem := memory.NewGoAllocator()

	fields := make([]arrow.Field, len(f.cols))
	arrays := make([]arrow.Array, len(f.cols))
	defer func() {
		for _, a := range arrays {
			if a != nil {
				a.Release()
			}
		}
	}()
	for i, c := range f.cols {
		switch c.kind {
		case Timestamp:
			fields[i] = arrow.Field{Name: c.name, Type: timestampType, Nullable: true}
			b := array.NewTimestampBuilder(mem, timestampType)
			for row := 0; row < f.rows; row++ {
				if c.IsNull(row) {
					b.AppendNull()
					continue
				}
				b.Append(arrow.Timestamp(c.times[row].UnixMicro()))
			}
			arrays[i] = b.NewArray()
			b.Release()
		default:
			fields[i] = arrow.Field{Name: c.name, Type: arrow.BinaryTypes.String, Nullable: true}
			b := array.NewStringBuilder(mem)
			for row := 0; row < f.rows; row++ {
				if c.IsNull(row) {
					b.AppendNull()
					continue
				}
				b.Append(c.strs[row])
			}
			arrays[i] = b.NewArray()
			b.Release()
		}
	}

	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, arrays, int64(f.rows))
	defer rec.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithDictionaryDefault(false))
	// pqarrow closes io.Closers it is handed; the caller owns w.
	return pqarrow.WriteTable(table, writerOnly{w}, parquetChunkSize, props, pqarrow.DefaultWriterProps())
}

type writerOnly struct{ io.Writer }

// ReadParquet decodes a parquet file. Timestamp columns stay timestamps;
// every other type is rendered as text.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker) (*Frame, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	mem := memory.NewGoAllocator()
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, err
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	cols := make([]*Column, 0, table.NumCols())
	for i := 0; i < int(table.NumCols()); i++ {
		col := table.Column(i)
		c, err := fromChunks(col.Name(), col.DataType(), col.Data().Chunks())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name(), err)
		}
		cols = append(cols, c)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = int(table.NumRows())
	return out, nil
}

func fromChunks(name string, dt arrow.DataType, chunks []arrow.Array) (*Column, error) {
	if ts, ok := dt.(*arrow.TimestampType); ok {
		var values []time.Time
		var valid []bool
		for _, chunk := range chunks {
			arr, ok := chunk.(*array.Timestamp)
			if !ok {
				return nil, fmt.Errorf("unexpected chunk %T", chunk)
			}
			for i := 0; i < arr.Len(); i++ {
				valid = append(valid, arr.IsValid(i))
				values = append(values, timestampToTime(int64(arr.Value(i)), ts.Unit))
			}
		}
		return NewTimestampColumn(name, orEmptyTimes(values), orEmptyValid(valid)), nil
	}

	var values []string
	var valid []bool
	for _, chunk := range chunks {
		for i := 0; i < chunk.Len(); i++ {
			if chunk.IsNull(i) {
				values = append(values, "")
				valid = append(valid, false)
				continue
			}
			v, err := cellText(chunk, i)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			valid = append(valid, true)
		}
	}
	if values == nil {
		values = []string{}
	}
	return NewStringColumn(name, values, orEmptyValid(valid)), nil
}

func cellText(arr arrow.Array, i int) (string, error) {
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.Binary:
		return lossy(string(a.Value(i))), nil
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10), nil
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(i)), 10), nil
	case *array.Int16:
		return strconv.FormatInt(int64(a.Value(i)), 10), nil
	case *array.Int8:
		return strconv.FormatInt(int64(a.Value(i)), 10), nil
	case *array.Uint64:
		return strconv.FormatUint(a.Value(i), 10), nil
	case *array.Uint32:
		return strconv.FormatUint(uint64(a.Value(i)), 10), nil
	case *array.Float64:
		return strconv.FormatFloat(a.Value(i), 'f', -1, 64), nil
	case *array.Float32:
		return strconv.FormatFloat(float64(a.Value(i)), 'f', -1, 32), nil
	case *array.Boolean:
		return strconv.FormatBool(a.Value(i)), nil
	case *array.Date32:
		return time.Unix(int64(a.Value(i))*86400, 0).UTC().Format("2006-01-02"), nil
	default:
		return "", fmt.Errorf("unsupported arrow type %s", arr.DataType())
	}
}

func timestampToTime(v int64, unit arrow.TimeUnit) time.Time {
	switch unit {
	case arrow.Second:
		return time.Unix(v, 0).UTC()
	case arrow.Millisecond:
		return time.UnixMilli(v).UTC()
	case arrow.Nanosecond:
		return time.Unix(0, v).UTC()
	default:
		return time.UnixMicro(v).UTC()
	}
}

func orEmptyTimes(v []time.Time) []time.Time {
	if v == nil {
		return []time.Time{}
	}
	return v
}

func orEmptyValid(v []bool) []bool {
	if v == nil {
		return []bool{}
	}
	return v
}
