// Package normalizer turns raw INSPIRE tables into pseudotime-anchored
// tables joined to the patient identity table.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/pseudotime"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
	"github.com/synaptica-ai/inspire-premeds/pkg/linkage"
)

// JoinTransform anchors a table's offsets to the shared origin and keeps
// only rows whose subject has an identity.
type JoinTransform struct {
	table       string
	offsets     []string
	pseudotimes []string
	outputs     []string
	warnings    []string
	unit        pseudotime.Unit
	keys        linkage.Columns
}

// NewJoinTransform validates spec and returns the transform for table.
// A malformed spec is a ConfigError; nothing is read.
func NewJoinTransform(table string, spec TableSpec, keys linkage.Columns) (*JoinTransform, error) {
	if err := spec.validate(); err != nil {
		return nil, ConfigError{Table: table, reason: err}
	}
	unit, _ := pseudotime.ParseUnit(spec.OffsetUnit)
	return &JoinTransform{
		table:       table,
		offsets:     append([]string(nil), spec.OffsetCols...),
		pseudotimes: append([]string(nil), spec.PseudotimeCols...),
		outputs:     append([]string(nil), spec.OutputDataCols...),
		warnings:    append([]string(nil), spec.WarningItems...),
		unit:        unit,
		keys:        keys.WithDefaults(),
	}, nil
}

func (t *JoinTransform) Table() string { return t.table }

// Caveats are the known data-quality questions about the table.
func (t *JoinTransform) Caveats() []string {
	return append([]string(nil), t.warnings...)
}

// Columns lists the output layout: subject, admission, pseudotimes, then
// the output data columns.
func (t *JoinTransform) Columns() []string {
	out := []string{models.SubjectID, t.keys.Admission}
	out = append(out, t.pseudotimes...)
	for _, c := range t.outputs {
		if !contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Apply returns the plan producing the processed table. Caveat warnings are
// logged now; the data work happens when the plan is collected.
func (t *JoinTransform) Apply(raw *frame.LazyFrame, id *linkage.Identity) *frame.LazyFrame {
	if len(t.warnings) > 0 {
		lines := []string{fmt.Sprintf("NOT SURE ABOUT THE FOLLOWING for %s table. Check with the INSPIRE team:", t.table)}
		for _, w := range t.warnings {
			lines = append(lines, "  - "+w)
		}
		logger.WithTable(t.table).Warn(strings.Join(lines, "\n"))
	}

	return raw.
		Then("subject key", func(f *frame.Frame) (*frame.Frame, error) {
			logger.WithTable(t.table).WithField("schema", f.Schema()).Info("Joining table to patient table")
			return t.subjectKey(f, id.Links)
		}).
		Then("join patients", func(f *frame.Frame) (*frame.Frame, error) {
			return f.Join(id.Patients, []string{models.SubjectID}, []string{models.SubjectID}, frame.Inner)
		}).
		Then("pseudotimes", func(f *frame.Frame) (*frame.Frame, error) {
			origin, err := id.Origin(pseudotime.Origin)
			if err != nil {
				return nil, err
			}
			return t.project(f, origin)
		})
}

// subjectKey puts the subject under subject_id. Tables keyed only by
// admission get it through the link table; unknown admissions drop out.
func (t *JoinTransform) subjectKey(f *frame.Frame, links *frame.Frame) (*frame.Frame, error) {
	if f.Has(t.keys.Subject) {
		if t.keys.Subject == models.SubjectID {
			return f, nil
		}
		if f.Has(models.SubjectID) {
			return nil, fmt.Errorf("both %q and %q present", t.keys.Subject, models.SubjectID)
		}
		return f.Rename(t.keys.Subject, models.SubjectID)
	}
	if !f.Has(t.keys.Admission) {
		return nil, fmt.Errorf("neither %q nor %q present: %w", t.keys.Subject, t.keys.Admission, frame.ErrColumnNotFound)
	}
	logger.WithTable(t.table).Info("Resolving subjects through the admission link table")
	byAdmission, err := links.FirstBy(t.keys.Admission)
	if err != nil {
		return nil, err
	}
	return f.Join(byAdmission, []string{t.keys.Admission}, []string{t.keys.Admission}, frame.Inner)
}

func (t *JoinTransform) project(f *frame.Frame, origin time.Time) (*frame.Frame, error) {
	n := f.NumRows()
	subject, err := f.Column(models.SubjectID)
	if err != nil {
		return nil, err
	}
	cols := []*frame.Column{subject}

	if adm, err := f.Column(t.keys.Admission); err == nil {
		cols = append(cols, adm)
	} else {
		cols = append(cols, frame.NullColumn(t.keys.Admission, frame.String, n))
	}

	for i, offset := range t.offsets {
		src, err := f.Column(offset)
		if err != nil {
			return nil, fmt.Errorf("offset column: %w", err)
		}
		values := make([]time.Time, n)
		valid := make([]bool, n)
		outOfRange := 0
		for row := 0; row < n; row++ {
			text, ok := src.Text(row)
			if !ok {
				continue
			}
			o := pseudotime.ParseOffset(text)
			values[row], valid[row] = pseudotime.FromOffset(origin, o, t.unit)
			if o.Valid && !valid[row] {
				outOfRange++
			}
		}
		if outOfRange > 0 {
			logger.WithTable(t.table).WithFields(map[string]interface{}{
				"column": offset,
				"rows":   outOfRange,
			}).Warn("offsets out of the representable time range left null")
		}
		cols = append(cols, frame.NewTimestampColumn(t.pseudotimes[i], values, valid))
	}

	for _, name := range t.outputs {
		if hasColumn(cols, name) {
			continue
		}
		c, err := f.Column(name)
		if err != nil {
			return nil, fmt.Errorf("output column: %w", err)
		}
		cols = append(cols, c)
	}
	return frame.New(cols...)
}

func hasColumn(cols []*frame.Column, name string) bool {
	for _, c := range cols {
		if c.Name() == name {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
