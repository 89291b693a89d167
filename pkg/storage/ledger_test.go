package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/database"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
)

func TestLedgerRecordsHistory(t *testing.T) {
	db, err := database.Open("sqlite:" + filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer database.Close(db)

	ledger := NewLedger(db)
	if err := ledger.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	for i, status := range []models.TableStatus{models.TableFailed, models.TableProcessed} {
		err := ledger.Record(ctx, models.TableResult{
			RunID:     "run",
			Table:     "labs",
			Status:    status,
			Rows:      i * 10,
			Duration:  time.Second,
			Warnings:  []string{"ambiguous item_name"},
			StartedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := ledger.Record(ctx, models.TableResult{RunID: "run", Table: "vitals", Status: models.TableEmpty}); err != nil {
		t.Fatalf("record: %v", err)
	}

	rows, err := ledger.History(ctx, "labs", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 labs rows, got %d", len(rows))
	}
	if rows[0].Status != string(models.TableProcessed) || rows[0].DurationMS != 1000 {
		t.Fatalf("expected the latest run first, got %+v", rows[0])
	}
}
