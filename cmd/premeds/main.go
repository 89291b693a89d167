package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/config"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/database"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/kafka"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
	"github.com/synaptica-ai/inspire-premeds/pkg/normalizer"
	"github.com/synaptica-ai/inspire-premeds/pkg/observability/metrics"
	"github.com/synaptica-ai/inspire-premeds/pkg/observability/ops"
	"github.com/synaptica-ai/inspire-premeds/pkg/pipeline"
	"github.com/synaptica-ai/inspire-premeds/pkg/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger.Init()
	cfg := config.Load()
	runID := uuid.New().String()
	log := logger.WithField("run_id", runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, err := frame.ParseFormat(cfg.OutputFormat)
	if err != nil {
		log.WithError(err).Error("Invalid output format")
		return 1
	}

	log.WithField("path", cfg.TablePreprocessors).Info("Loading table preprocessors")
	tables, err := normalizer.LoadConfig(cfg.TablePreprocessors)
	if err != nil {
		log.WithError(err).Error("Failed to load table preprocessors")
		return 1
	}
	registry, err := normalizer.NewRegistry(tables)
	if err != nil {
		log.WithError(err).Error("Invalid table preprocessors")
		return 1
	}
	for _, name := range registry.Tables() {
		plan, _ := registry.Lookup(name)
		log.WithFields(map[string]interface{}{
			"table":   name,
			"variant": plan.Variant.String(),
			"columns": plan.Transform.Columns(),
		}).Info("Adding preprocessor")
	}

	store, err := storage.Open(ctx, cfg.OutputDir, storage.S3Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
	})
	if err != nil {
		log.WithError(err).Error("Failed to open output location")
		return 1
	}

	deps := pipeline.Deps{
		Store:    store,
		Registry: registry,
		Metrics:  metrics.New(),
		Tracker:  ops.NewTracker(runID),
	}

	if cfg.LedgerDSN != "" {
		db, err := database.Open(cfg.LedgerDSN)
		if err != nil {
			log.WithError(err).Error("Failed to open run ledger")
			return 1
		}
		defer database.Close(db)
		ledger := storage.NewLedger(db)
		if err := ledger.AutoMigrate(); err != nil {
			log.WithError(err).Error("Failed to migrate run ledger")
			return 1
		}
		deps.Recorder = ledger
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		deps.Notifier = producer
	}

	if cfg.MetricsAddr != "" {
		server := ops.NewServer(cfg.MetricsAddr, ops.NewRouter(deps.Tracker, deps.Metrics.Handler()))
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("Ops endpoint started")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Ops endpoint failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("Ops endpoint forced to shutdown")
			}
		}()
	}

	p, err := pipeline.New(pipeline.Options{
		InputDir:  cfg.InputDir,
		Format:    format,
		Overwrite: cfg.Overwrite,
		RunID:     runID,
	}, deps)
	if err != nil {
		log.WithError(err).Error("Failed to build pipeline")
		return 1
	}

	start := time.Now()
	summary, err := p.Run(ctx)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"failed":   summary.Failed,
			"duration": time.Since(start).String(),
		}).Error("Pre-MEDS run finished with errors")
		return 1
	}
	log.WithField("duration", time.Since(start).String()).Info("Pre-MEDS run finished")
	return 0
}
