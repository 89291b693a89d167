package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
)

func TestObserveTable(t *testing.T) {
	p := New()
	p.ObserveTable(models.TableResult{Status: models.TableProcessed, Rows: 10, Duration: time.Second})
	p.ObserveTable(models.TableResult{Status: models.TableProcessed, Rows: 5, Duration: time.Second})
	p.ObserveTable(models.TableResult{Status: models.TableEmpty})
	p.ObserveTable(models.TableResult{Status: models.TableUnmapped})

	if got := testutil.ToFloat64(p.tables.WithLabelValues("processed")); got != 2 {
		t.Fatalf("expected 2 processed tables, got %v", got)
	}
	if got := testutil.ToFloat64(p.rowsWritten); got != 15 {
		t.Fatalf("expected 15 rows, got %v", got)
	}
	if got := testutil.ToFloat64(p.emptyJoins); got != 1 {
		t.Fatalf("expected 1 empty join, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	p := New()
	p.ObserveIdentity(true, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `inspire_premeds_identity_resolutions_total{source="reloaded"} 1`) {
		t.Fatalf("metric missing from output:\n%s", rec.Body.String())
	}
}

func TestNilPipelineIsNoop(t *testing.T) {
	var p *Pipeline
	p.ObserveTable(models.TableResult{Status: models.TableProcessed})
	p.ObserveIdentity(false, 0)
}
