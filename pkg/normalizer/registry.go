package normalizer

import (
	"sort"
	"strings"
)

// Variant tags how a table is processed.
type Variant int

const (
	GenericJoin Variant = iota
	GenericJoinWithEnrichment
)

func (v Variant) String() string {
	if v == GenericJoinWithEnrichment {
		return "generic-join-with-enrichment"
	}
	return "generic-join"
}

// Plan is the resolved processing recipe for one configured table.
type Plan struct {
	Table      string
	Variant    Variant
	Enrichment Enrichment
	Transform  *JoinTransform
}

// Registry maps table names to plans. It is built once at startup so every
// configuration problem surfaces before any table is read.
type Registry struct {
	cfg    *Config
	plans  map[string]*Plan
	unused map[string]struct{}
}

func NewRegistry(cfg *Config) (*Registry, error) {
	r := &Registry{
		cfg:    cfg,
		plans:  make(map[string]*Plan, len(cfg.Tables)),
		unused: make(map[string]struct{}),
	}
	for _, t := range cfg.Unused() {
		r.unused[t] = struct{}{}
	}
	names := make([]string, 0, len(cfg.Tables))
	for name := range cfg.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := cfg.Tables[name]
		tr, err := NewJoinTransform(name, spec, cfg.Admissions)
		if err != nil {
			return nil, err
		}
		p := &Plan{Table: name, Variant: GenericJoin, Transform: tr}
		if spec.Enrichment != EnrichNone {
			p.Variant = GenericJoinWithEnrichment
			p.Enrichment = spec.Enrichment
		}
		r.plans[name] = p
	}
	return r, nil
}

func (r *Registry) Config() *Config { return r.cfg }

// Lookup finds the plan for a table name. Shards such as "labs/3" fall back
// to the plan of their first path component.
func (r *Registry) Lookup(table string) (*Plan, bool) {
	if p, ok := r.plans[table]; ok {
		return p, true
	}
	if head, _, found := strings.Cut(table, "/"); found {
		p, ok := r.plans[head]
		return p, ok
	}
	return nil, false
}

// IsUnused reports whether a table is known and deliberately not processed.
func (r *Registry) IsUnused(table string) bool {
	if _, ok := r.unused[table]; ok {
		return true
	}
	head, _, _ := strings.Cut(table, "/")
	_, ok := r.unused[head]
	return ok
}

// Tables lists the configured table names in order.
func (r *Registry) Tables() []string {
	out := make([]string, 0, len(r.plans))
	for name := range r.plans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
