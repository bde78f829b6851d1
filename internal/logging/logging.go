package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// New builds a JSON production logger at the given level ("debug", "info",
// "warn", "error").
func New(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// LogUpsert logs a completed roll upsert.
func LogUpsert(log *zap.Logger, source string, count int, duration time.Duration) {
	log.Info("upserted voters",
		zap.String("source", source),
		zap.Int("count", count),
		zap.Int64("duration_ms", duration.Milliseconds()),
	)
}

// LogBatchError logs a skipped import batch. Batches are 1-indexed.
func LogBatchError(log *zap.Logger, batch, size int, err error) {
	log.Error("voter batch failed, skipping",
		zap.Int("batch", batch),
		zap.Int("size", size),
		zap.Error(err),
	)
}
