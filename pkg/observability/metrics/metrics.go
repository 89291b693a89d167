package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
)

const namespace = "inspire_premeds"

// Pipeline holds the run's collectors on a private registry, so several
// pipelines (and tests) never collide on the default registerer.
type Pipeline struct {
	registry      *prometheus.Registry
	tables        *prometheus.CounterVec
	rowsWritten   prometheus.Counter
	tableDuration prometheus.Histogram
	emptyJoins    prometheus.Counter
	identity      *prometheus.CounterVec
	identityTook  prometheus.Gauge
}

func New() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		tables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_total",
			Help:      "Source tables handled, by outcome.",
		}, []string{"status"}),
		rowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to processed tables.",
		}),
		tableDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_duration_seconds",
			Help:      "Wall-clock time to load, transform and write one table.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		emptyJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_joins_total",
			Help:      "Tables whose patient join produced no rows; usually a key mismatch.",
		}),
		identity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_resolutions_total",
			Help:      "Identity table initialisations, by source (resolved or reloaded).",
		}, []string{"source"}),
		identityTook: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identity_seconds",
			Help:      "Time spent on the last identity initialisation.",
		}),
	}
	p.registry.MustRegister(p.tables, p.rowsWritten, p.tableDuration, p.emptyJoins, p.identity, p.identityTook)
	return p
}

// ObserveTable records one table outcome.
func (p *Pipeline) ObserveTable(res models.TableResult) {
	if p == nil {
		return
	}
	p.tables.WithLabelValues(string(res.Status)).Inc()
	switch res.Status {
	case models.TableProcessed:
		p.rowsWritten.Add(float64(res.Rows))
		p.tableDuration.Observe(res.Duration.Seconds())
	case models.TableEmpty:
		p.emptyJoins.Inc()
		p.tableDuration.Observe(res.Duration.Seconds())
	}
}

func (p *Pipeline) ObserveIdentity(reloaded bool, took time.Duration) {
	if p == nil {
		return
	}
	source := "resolved"
	if reloaded {
		source = "reloaded"
	}
	p.identity.WithLabelValues(source).Inc()
	p.identityTook.Set(took.Seconds())
}

func (p *Pipeline) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus text format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
