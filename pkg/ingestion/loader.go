// Package ingestion locates raw INSPIRE extracts and opens them as lazy
// frames. Nothing is read until the frame is collected.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

var ErrMissingTable = errors.New("raw table not found")

// Scan opens the table at path lazily. A missing file is reported now, so
// callers can decide to skip it before building any transform.
func Scan(path string) (*frame.LazyFrame, error) {
	kind, err := DefaultValidator.Validate(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, path)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrMissingTable, path)
	}

	name := filepath.Base(path)
	return frame.Lazy(name, func() (*frame.Frame, error) {
		logger.WithField("path", path).Debug("Reading raw table")
		return read(path, kind)
	}), nil
}

func read(path string, kind sourceKind) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if kind.format == frame.Parquet {
		return frame.ReadParquet(context.Background(), f)
	}

	var r io.Reader = f
	if kind.gzip {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return frame.ReadCSV(r, frame.CSVOptions{Comma: kind.comma})
}

// Discover lists every supported raw table below dir in lexical order.
func Discover(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if _, err := DefaultValidator.Validate(path); err != nil {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// ShardPrefix is the table name of path relative to root with every
// extension removed, e.g. "labs/0.csv.gz" becomes "labs/0".
func ShardPrefix(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	dir, base := "", rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		dir, base = rel[:i+1], rel[i+1:]
	}
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return dir + base, nil
}

// TablePath returns the raw file for a table name under root, trying each
// supported extension in turn. The first candidate is returned when none
// exists so that Scan reports it as missing.
func TablePath(root, name string) string {
	var first string
	for _, ext := range DefaultValidator.Extensions() {
		p := filepath.Join(root, filepath.FromSlash(name)+ext)
		if first == "" {
			first = p
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return first
}
