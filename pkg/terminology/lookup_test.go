package terminology

import (
	"errors"
	"strings"
	"testing"

	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

func lazyCSV(t *testing.T, name, text string) *frame.LazyFrame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(text), frame.CSVOptions{})
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return frame.FromFrame(name, f)
}

func cells(t *testing.T, f *frame.Frame, name string) string {
	t.Helper()
	c, err := f.Column(name)
	if err != nil {
		t.Fatalf("column %s: %v", name, err)
	}
	out := make([]string, c.Len())
	for i := range out {
		if v, ok := c.Text(i); ok {
			out[i] = v
		} else {
			out[i] = "<null>"
		}
	}
	return strings.Join(out, ",")
}

func TestResolveAbbreviations(t *testing.T) {
	raw := lazyCSV(t, "labs", "subject_id,item_name,value\n1,hb,13\n1,zz,1\n2,na,140\n")
	params := lazyCSV(t, "parameters", "Table,Label,Unit,Description\n"+
		"labs,hb,g/dL,Hemoglobin\n"+
		"labs,hb,mg/dL,Duplicate label\n"+
		"vitals,na,bpm,Wrong table\n"+
		"labs,na,mmol/L,Sodium\n")

	out, err := ResolveAbbreviations(raw, "labs", params).Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("left join must keep every raw row, got %d", out.NumRows())
	}
	if got := cells(t, out, "unit"); got != "g/dL,<null>,mmol/L" {
		t.Fatalf("unexpected units %s", got)
	}
	if out.Has("label") {
		t.Fatal("join key from the vocabulary should be dropped")
	}
}

func TestResolveAbbreviationsNeedsLabel(t *testing.T) {
	raw := lazyCSV(t, "labs", "subject_id,item_name\n1,hb\n")
	params := lazyCSV(t, "parameters", "Table,Name\nlabs,hb\n")
	if _, err := ResolveAbbreviations(raw, "labs", params).Collect(); !errors.Is(err, frame.ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestExpandDepartments(t *testing.T) {
	raw := lazyCSV(t, "operations", "subject_id,department,age\n1,GS,40\n2,XX,60\n3,,70\n")
	departments := lazyCSV(t, "department", "Abbreviations,Full name\nGS,General surgery\nOS,Orthopedic surgery\n")

	out, err := ExpandDepartments(raw, departments).Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := strings.Join(out.Names(), ","); got != "subject_id,age,department" {
		t.Fatalf("unexpected columns %s", got)
	}
	if got := cells(t, out, "department"); got != "General surgery,<null>,<null>" {
		t.Fatalf("unexpected departments %s", got)
	}
}

func TestEnrichmentIsLazy(t *testing.T) {
	called := false
	lookup := frame.Lazy("department", func() (*frame.Frame, error) {
		called = true
		return nil, errors.New("not reached")
	})
	raw := lazyCSV(t, "operations", "department\nGS\n")
	_ = ExpandDepartments(raw, lookup)
	if called {
		t.Fatal("building the plan must not read the lookup table")
	}
}
