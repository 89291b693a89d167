package ingestion

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

var errUnsupportedFormat = errors.New("unsupported raw table format")

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type sourceKind struct {
	format frame.Format
	comma  rune
	gzip   bool
}

// Validator maps file extensions to readers.
type Validator struct {
	exts  []string
	kinds map[string]sourceKind
}

var DefaultValidator = NewValidator()

func NewValidator() *Validator {
	v := &Validator{kinds: make(map[string]sourceKind)}
	v.add(".csv", sourceKind{format: frame.CSV, comma: ','})
	v.add(".csv.gz", sourceKind{format: frame.CSV, comma: ',', gzip: true})
	v.add(".tsv", sourceKind{format: frame.CSV, comma: '\t'})
	v.add(".tsv.gz", sourceKind{format: frame.CSV, comma: '\t', gzip: true})
	v.add(".parquet", sourceKind{format: frame.Parquet})
	return v
}

func (v *Validator) add(ext string, k sourceKind) {
	v.exts = append(v.exts, ext)
	v.kinds[ext] = k
}

// Extensions lists the supported extensions in lookup order.
func (v *Validator) Extensions() []string {
	return append([]string(nil), v.exts...)
}

func (v *Validator) Validate(path string) (sourceKind, error) {
	if v == nil {
		return sourceKind{}, ValidationError{reason: errors.New("validator not initialised")}
	}
	base := strings.ToLower(filepath.Base(path))
	if base == "" || base == "." {
		return sourceKind{}, ValidationError{reason: fmt.Errorf("path required: %w", errUnsupportedFormat)}
	}
	// longest suffix first so .csv.gz wins over a bare .gz check
	best := ""
	for _, ext := range v.exts {
		if strings.HasSuffix(base, ext) && len(ext) > len(best) {
			best = ext
		}
	}
	if best == "" {
		return sourceKind{}, ValidationError{reason: fmt.Errorf("'%s': %w", filepath.Base(path), errUnsupportedFormat)}
	}
	return v.kinds[best], nil
}
