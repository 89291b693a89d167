package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TableRun is one ledger row: what happened to one table in one run.
type TableRun struct {
	ID         string         `gorm:"primaryKey;column:id"`
	RunID      string         `gorm:"column:run_id;index"`
	Table      string         `gorm:"column:table_name;index"`
	Source     string         `gorm:"column:source"`
	Output     string         `gorm:"column:output"`
	Status     string         `gorm:"column:status"`
	Rows       int            `gorm:"column:rows"`
	DurationMS int64          `gorm:"column:duration_ms"`
	Warnings   datatypes.JSON `gorm:"column:warnings"`
	Error      string         `gorm:"column:error"`
	StartedAt  time.Time      `gorm:"column:started_at"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (TableRun) TableName() string {
	return "premeds_table_runs"
}

// Ledger records per-table outcomes so operators can audit runs.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) AutoMigrate() error {
	return l.db.AutoMigrate(&TableRun{})
}

func (l *Ledger) Record(ctx context.Context, res models.TableResult) error {
	warnings, err := json.Marshal(res.Warnings)
	if err != nil {
		return err
	}
	row := &TableRun{
		ID:         uuid.New().String(),
		RunID:      res.RunID,
		Table:      res.Table,
		Source:     res.Source,
		Output:     res.Output,
		Status:     string(res.Status),
		Rows:       res.Rows,
		DurationMS: res.Duration.Milliseconds(),
		Warnings:   datatypes.JSON(warnings),
		Error:      res.Error,
		StartedAt:  res.StartedAt,
		CreatedAt:  time.Now().UTC(),
	}
	return l.db.WithContext(ctx).Create(row).Error
}

// History returns the most recent ledger rows for a table.
func (l *Ledger) History(ctx context.Context, table string, limit int) ([]TableRun, error) {
	if limit <= 0 {
		limit = 25
	}
	var rows []TableRun
	result := l.db.WithContext(ctx).
		Where("table_name = ?", table).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows)
	return rows, result.Error
}
