package normalizer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/pseudotime"
	"github.com/synaptica-ai/inspire-premeds/pkg/linkage"
	"gopkg.in/yaml.v3"
)

// Enrichment names the lookup a table goes through before the join.
type Enrichment string

const (
	EnrichNone       Enrichment = ""
	EnrichVocabulary Enrichment = "vocabulary"
	EnrichDepartment Enrichment = "department"
)

// StringList decodes either a single YAML scalar or a sequence of them.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// TableSpec describes how one raw table becomes a processed table.
type TableSpec struct {
	OffsetCols     StringList `yaml:"offset_col"`
	PseudotimeCols StringList `yaml:"pseudotime_col"`
	OutputDataCols []string   `yaml:"output_data_cols"`
	WarningItems   []string   `yaml:"warning_items"`
	OffsetUnit     string     `yaml:"offset_unit"`
	Enrichment     Enrichment `yaml:"enrichment"`
}

// Config is the dataset description read from table_preprocessors.yaml.
type Config struct {
	AdmissionsTable string               `yaml:"admissions_table"`
	VocabularyTable string               `yaml:"vocabulary_table"`
	DepartmentTable string               `yaml:"department_table"`
	Admissions      linkage.Columns      `yaml:"admissions_columns"`
	UnusedTables    []string             `yaml:"unused_tables"`
	Tables          map[string]TableSpec `yaml:"tables"`
}

func (c *Config) applyDefaults() {
	if c.AdmissionsTable == "" {
		c.AdmissionsTable = "operations"
	}
	if c.VocabularyTable == "" {
		c.VocabularyTable = "parameters"
	}
	if c.DepartmentTable == "" {
		c.DepartmentTable = "department"
	}
	c.Admissions = c.Admissions.WithDefaults()
}

// Unused returns the tables skipped as known-unsupported. The lookup tables
// feed enrichment and are never processed on their own.
func (c *Config) Unused() []string {
	set := map[string]struct{}{c.VocabularyTable: {}, c.DepartmentTable: {}}
	for _, t := range c.UnusedTables {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Validate checks what can be checked without data. Every table spec is
// checked, not just the first bad one.
func (c *Config) Validate() error {
	var problems []string
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Tables[name].validate(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(problems) > 0 {
		return ConfigError{reason: fmt.Errorf("invalid table preprocessors:\n  %s", strings.Join(problems, "\n  "))}
	}
	return nil
}

func (s TableSpec) validate() error {
	if len(s.OffsetCols) != len(s.PseudotimeCols) {
		return fmt.Errorf("there must be the same number of offset_col and pseudotime_col entries, got %d and %d",
			len(s.OffsetCols), len(s.PseudotimeCols))
	}
	for i, c := range s.OffsetCols {
		if strings.TrimSpace(c) == "" || strings.TrimSpace(s.PseudotimeCols[i]) == "" {
			return fmt.Errorf("offset/pseudotime pair %d has an empty column name", i)
		}
	}
	if _, err := pseudotime.ParseUnit(s.OffsetUnit); err != nil {
		return err
	}
	switch s.Enrichment {
	case EnrichNone, EnrichVocabulary, EnrichDepartment:
	default:
		return fmt.Errorf("unknown enrichment %q", s.Enrichment)
	}
	return nil
}

// LoadConfig reads and validates the table preprocessor file.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.WithFields(map[string]interface{}{
		"path":   path,
		"tables": len(cfg.Tables),
	}).Info("Loaded table preprocessors")
	return cfg, nil
}

func ParseConfig(content []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, ConfigError{reason: err}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
