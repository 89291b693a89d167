// Package terminology resolves coded values in raw tables against the
// dataset's own lookup tables.
package terminology

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

const (
	// vocabulary (parameters) table, after lower-casing its header
	VocabularyTableColumn = "table"
	VocabularyLabelColumn = "label"
	ItemNameColumn        = "item_name"

	DepartmentColumn   = "department"
	AbbreviationColumn = "Abbreviations"
	FullNameColumn     = "Full name"
)

// ResolveAbbreviations left-joins raw to the vocabulary rows describing
// table, matching item_name against label. Items without a vocabulary entry
// keep null enrichment columns. Only the first vocabulary row per label is
// used so the join never multiplies rows.
func ResolveAbbreviations(raw *frame.LazyFrame, table string, params *frame.LazyFrame) *frame.LazyFrame {
	return raw.Then("resolve abbreviations", func(f *frame.Frame) (*frame.Frame, error) {
		vocab, err := params.Collect()
		if err != nil {
			return nil, err
		}
		if vocab, err = vocab.RenameAll(strings.ToLower); err != nil {
			return nil, fmt.Errorf("vocabulary: %w", err)
		}
		if _, err := vocab.Column(VocabularyLabelColumn); err != nil {
			return nil, fmt.Errorf("vocabulary: %w", err)
		}
		tables, err := vocab.Column(VocabularyTableColumn)
		if err != nil {
			return nil, fmt.Errorf("vocabulary: %w", err)
		}
		vocab = vocab.Filter(func(row int) bool {
			return !tables.IsNull(row) && tables.Str(row) == table
		})
		vocab, err = vocab.FirstBy(VocabularyLabelColumn)
		if err != nil {
			return nil, err
		}
		logger.WithTable(table).WithField("labels", vocab.NumRows()).Debug("Resolving item names against vocabulary")
		return f.Join(vocab, []string{ItemNameColumn}, []string{VocabularyLabelColumn}, frame.Left)
	})
}

// ExpandDepartments replaces raw's department code with the department's
// full name. Unknown codes become null.
func ExpandDepartments(raw *frame.LazyFrame, departments *frame.LazyFrame) *frame.LazyFrame {
	return raw.Then("expand departments", func(f *frame.Frame) (*frame.Frame, error) {
		lookup, err := departments.Collect()
		if err != nil {
			return nil, err
		}
		lookup, err = lookup.Select(AbbreviationColumn, FullNameColumn)
		if err != nil {
			return nil, fmt.Errorf("department table: %w", err)
		}
		lookup, err = lookup.FirstBy(AbbreviationColumn)
		if err != nil {
			return nil, err
		}
		joined, err := f.Join(lookup, []string{DepartmentColumn}, []string{AbbreviationColumn}, frame.Left)
		if err != nil {
			return nil, err
		}
		return joined.Drop(DepartmentColumn).Rename(FullNameColumn, DepartmentColumn)
	})
}
