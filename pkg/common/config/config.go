package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Dataset
	InputDir           string
	OutputDir          string
	Overwrite          bool
	TablePreprocessors string
	OutputFormat       string

	// Run ledger (postgres://... or sqlite:<path>)
	LedgerDSN string

	// Kafka
	KafkaBrokers []string
	KafkaTopic   string

	// S3 output (OUTPUT_DIR=s3://bucket/prefix)
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	// Ops endpoint
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

func Load() *Config {
	return &Config{
		InputDir:           getEnv("INPUT_DIR", "data/raw"),
		OutputDir:          getEnv("OUTPUT_DIR", "data/pre_meds"),
		Overwrite:          getBoolEnv("OVERWRITE", false),
		TablePreprocessors: getEnv("TABLE_PREPROCESSORS", "configs/table_preprocessors.yaml"),
		OutputFormat:       strings.ToLower(getEnv("OUTPUT_FORMAT", "parquet")),

		LedgerDSN: getEnv("LEDGER_DSN", ""),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "premeds-tables"),

		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3PathStyle: getBoolEnv("S3_PATH_STYLE", false),

		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
