package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanMissingTable(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "operations.csv"))
	if !errors.Is(err, ErrMissingTable) {
		t.Fatalf("expected ErrMissingTable, got %v", err)
	}
}

func TestScanIsLazy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labs.csv")
	writeFile(t, path, "subject_id,chart_time\n1,5\n")
	lf, err := Scan(path)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	// replacing the file before collect shows the read is deferred
	writeFile(t, path, "subject_id,chart_time\n1,5\n2,6\n")
	f, err := lf.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", f.NumRows())
	}
}

func TestScanTSVAndGzip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vitals.tsv"), "subject_id\tvalue\n1\t98.6\n")

	gzPath := filepath.Join(dir, "ward_vitals.csv.gz")
	out, err := os.Create(gzPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(out)
	if _, err := gz.Write([]byte("subject_id,value\n1,a\n2,b\n")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	out.Close()

	for name, rows := range map[string]int{"vitals.tsv": 1, "ward_vitals.csv.gz": 2} {
		lf, err := Scan(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("scan %s: %v", name, err)
		}
		f, err := lf.Collect()
		if err != nil {
			t.Fatalf("collect %s: %v", name, err)
		}
		if f.NumRows() != rows || strings.Join(f.Names(), ",") != "subject_id,value" {
			t.Fatalf("%s: unexpected frame %v with %d rows", name, f.Names(), f.NumRows())
		}
	}
}

func TestScanRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "hello")
	if _, err := Scan(path); !IsValidationError(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestDiscoverAndShardPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "operations.csv"), "a\n")
	writeFile(t, filepath.Join(root, "labs", "1.csv.gz"), "")
	writeFile(t, filepath.Join(root, "labs", "0.parquet"), "")
	writeFile(t, filepath.Join(root, "README.md"), "")
	writeFile(t, filepath.Join(root, ".cache", "x.csv"), "")

	paths, err := Discover(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	var names []string
	for _, p := range paths {
		name, err := ShardPrefix(root, p)
		if err != nil {
			t.Fatalf("shard prefix: %v", err)
		}
		names = append(names, name)
	}
	if got := strings.Join(names, ","); got != "labs/0,labs/1,operations" {
		t.Fatalf("unexpected tables %s", got)
	}
}

func TestTablePathPrefersExistingFile(t *testing.T) {
	root := t.TempDir()
	if got := TablePath(root, "operations"); got != filepath.Join(root, "operations.csv") {
		t.Fatalf("expected csv default, got %s", got)
	}
	writeFile(t, filepath.Join(root, "operations.parquet"), "")
	if got := TablePath(root, "operations"); got != filepath.Join(root, "operations.parquet") {
		t.Fatalf("expected parquet file, got %s", got)
	}
}
