// Package pipeline drives one pre-MEDS run: identity first, then every raw
// table through its enrichment and pseudotime join.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/pseudotime"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
	"github.com/synaptica-ai/inspire-premeds/pkg/ingestion"
	"github.com/synaptica-ai/inspire-premeds/pkg/linkage"
	"github.com/synaptica-ai/inspire-premeds/pkg/normalizer"
	"github.com/synaptica-ai/inspire-premeds/pkg/observability/metrics"
	"github.com/synaptica-ai/inspire-premeds/pkg/observability/ops"
	"github.com/synaptica-ai/inspire-premeds/pkg/storage"
	"github.com/synaptica-ai/inspire-premeds/pkg/terminology"
)

// Recorder keeps an audit trail of table outcomes.
type Recorder interface {
	Record(ctx context.Context, res models.TableResult) error
}

// Notifier tells downstream stages about finished work.
type Notifier interface {
	TableDone(ctx context.Context, res models.TableResult) error
	RunDone(ctx context.Context, runID string, counts map[models.TableStatus]int) error
}

type Options struct {
	InputDir  string
	Format    frame.Format
	Overwrite bool
	RunID     string
}

// Deps are the collaborators of a run. Recorder, Notifier, Metrics and
// Tracker are optional and never change what gets written.
type Deps struct {
	Store    storage.Store
	Registry *normalizer.Registry
	Recorder Recorder
	Notifier Notifier
	Metrics  *metrics.Pipeline
	Tracker  *ops.Tracker
}

// Summary reports a finished run.
type Summary struct {
	RunID            string
	IdentityReloaded bool
	Results          []models.TableResult
	Failed           []string
}

func (s Summary) Counts() map[models.TableStatus]int {
	out := make(map[models.TableStatus]int)
	for _, r := range s.Results {
		out[r.Status]++
	}
	return out
}

type Pipeline struct {
	opts        Options
	deps        Deps
	cfg         *normalizer.Config
	vocabulary  *frame.LazyFrame
	departments *frame.LazyFrame
}

func New(opts Options, deps Deps) (*Pipeline, error) {
	if opts.InputDir == "" {
		return nil, errors.New("input directory required")
	}
	if deps.Store == nil || deps.Registry == nil {
		return nil, errors.New("store and registry required")
	}
	if opts.Format == "" {
		opts.Format = frame.Parquet
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	cfg := deps.Registry.Config()
	p := &Pipeline{opts: opts, deps: deps, cfg: cfg}
	p.vocabulary = p.lookupTable(cfg.VocabularyTable)
	p.departments = p.lookupTable(cfg.DepartmentTable)
	return p, nil
}

// lookupTable reads an enrichment table at most once per run, and only if
// some table needs it.
func (p *Pipeline) lookupTable(name string) *frame.LazyFrame {
	var (
		once sync.Once
		f    *frame.Frame
		err  error
	)
	return frame.Lazy(name, func() (*frame.Frame, error) {
		once.Do(func() {
			var lf *frame.LazyFrame
			if lf, err = ingestion.Scan(ingestion.TablePath(p.opts.InputDir, name)); err != nil {
				return
			}
			f, err = lf.Collect()
		})
		return f, err
	})
}

// Run resolves identity and processes every discovered table. A missing
// admissions table aborts the run; any other table failure is recorded and
// the run moves on. The returned error joins all table failures.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: p.opts.RunID}
	log := logger.WithFields(logrus.Fields{"run_id": p.opts.RunID, "input": p.opts.InputDir})
	log.Info("Starting pre-MEDS run")

	p.deps.Tracker.Set("identity", p.cfg.AdmissionsTable)
	id, reloaded, err := p.identity(ctx)
	if err != nil {
		return summary, err
	}
	summary.IdentityReloaded = reloaded

	paths, err := ingestion.Discover(p.opts.InputDir)
	if err != nil {
		return summary, fmt.Errorf("discover raw tables: %w", err)
	}

	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		name, err := ingestion.ShardPrefix(p.opts.InputDir, path)
		if err != nil {
			return summary, err
		}
		p.deps.Tracker.Set("tables", name)
		res := p.processTable(ctx, name, path, id)
		summary.Results = append(summary.Results, res)
		if res.Status == models.TableFailed {
			summary.Failed = append(summary.Failed, name)
			errs = append(errs, fmt.Errorf("%s: %s", name, res.Error))
		}
		p.report(ctx, res)
	}

	p.deps.Tracker.Set("done", "")
	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.RunDone(ctx, p.opts.RunID, summary.Counts()); err != nil {
			log.WithError(err).Warn("Failed to announce run completion")
		}
	}
	log.WithFields(logrus.Fields{
		"output": p.deps.Store.Location("."),
		"tables": len(summary.Results),
		"failed": len(summary.Failed),
	}).Info("Done! All tables processed")
	return summary, errors.Join(errs...)
}

func (p *Pipeline) identity(ctx context.Context) (*linkage.Identity, bool, error) {
	start := time.Now()
	admissions := ingestion.TablePath(p.opts.InputDir, p.cfg.AdmissionsTable)
	cache := linkage.NewCache(
		p.deps.Store,
		p.opts.Format,
		linkage.NewResolver(p.cfg.Admissions, pseudotime.Origin),
		func() (*frame.LazyFrame, error) {
			logger.WithField("path", admissions).Info("Loading admissions table")
			return ingestion.Scan(admissions)
		},
		p.opts.Overwrite,
	)
	id, reloaded, err := cache.Ensure(ctx)
	if err != nil {
		return nil, false, err
	}
	p.deps.Metrics.ObserveIdentity(reloaded, time.Since(start))
	return id, reloaded, nil
}

func (p *Pipeline) processTable(ctx context.Context, name, path string, id *linkage.Identity) models.TableResult {
	res := models.TableResult{RunID: p.opts.RunID, Table: name, Source: path, StartedAt: time.Now().UTC()}
	log := logger.WithTable(name)

	if p.deps.Registry.IsUnused(name) {
		log.Warnf("Skipping %s as it is not supported in this pipeline", name)
		res.Status = models.TableUnused
		return res
	}
	plan, ok := p.deps.Registry.Lookup(name)
	if !ok {
		log.Warnf("No function needed for %s. For INSPIRE, THIS IS UNEXPECTED", name)
		res.Status = models.TableUnmapped
		return res
	}

	key := storage.TableKey(name, p.opts.Format)
	res.Output = p.deps.Store.Location(key)
	if !p.opts.Overwrite {
		done, err := p.deps.Store.Exists(ctx, key)
		if err != nil {
			return fail(res, err)
		}
		if done {
			log.Infof("Done with %s. Continuing", name)
			res.Status = models.TableSkipped
			return res
		}
	}

	start := time.Now()
	log.WithField("variant", plan.Variant.String()).Infof("Processing %s...", name)
	res.Warnings = plan.Transform.Caveats()

	raw, err := ingestion.Scan(path)
	if err != nil {
		return fail(res, err)
	}
	switch plan.Enrichment {
	case normalizer.EnrichVocabulary:
		raw = terminology.ResolveAbbreviations(raw, plan.Table, p.vocabulary)
	case normalizer.EnrichDepartment:
		raw = terminology.ExpandDepartments(raw, p.departments)
	}
	out, err := plan.Transform.Apply(raw, id).Collect()
	if err != nil {
		return fail(res, err)
	}

	res.Rows = out.NumRows()
	res.Status = models.TableProcessed
	if res.Rows == 0 {
		msg := "join to the patient table produced no rows; check the subject and admission keys"
		log.Warn(msg)
		res.Warnings = append(res.Warnings, msg)
		res.Status = models.TableEmpty
	}

	if err := storage.SaveTable(ctx, p.deps.Store, name, p.opts.Format, out); err != nil {
		return fail(res, err)
	}
	res.Duration = time.Since(start)
	log.WithField("rows", res.Rows).Infof("  * Processed and wrote to %s in %s", res.Output, res.Duration)
	return res
}

func fail(res models.TableResult, err error) models.TableResult {
	logger.WithTable(res.Table).WithError(err).Error("Table failed")
	res.Status = models.TableFailed
	res.Error = err.Error()
	return res
}

func (p *Pipeline) report(ctx context.Context, res models.TableResult) {
	p.deps.Metrics.ObserveTable(res)
	if p.deps.Recorder != nil {
		if err := p.deps.Recorder.Record(ctx, res); err != nil {
			logger.WithTable(res.Table).WithError(err).Warn("Failed to record table outcome")
		}
	}
	if p.deps.Notifier != nil && (res.Status == models.TableProcessed || res.Status == models.TableEmpty) {
		if err := p.deps.Notifier.TableDone(ctx, res); err != nil {
			logger.WithTable(res.Table).WithError(err).Warn("Failed to announce table")
		}
	}
}
