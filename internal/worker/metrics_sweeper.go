package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inline/internal/model"
)

// BatchCloser is the slice of the metrics service the sweeper needs.
type BatchCloser interface {
	ReadyScopes(ctx context.Context) ([]*string, error)
	CloseBatch(ctx context.Context, dishID *string) (*model.TMAMetric, error)
}

// MetricsSweeper periodically re-runs the TMA batch-close check. The
// completion path already triggers it, so under normal operation the
// sweeper finds nothing; it exists to pick up batches whose metric
// write failed at completion time.
type MetricsSweeper struct {
	metrics  BatchCloser
	interval time.Duration
}

func NewMetricsSweeper(metrics BatchCloser, interval time.Duration) *MetricsSweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &MetricsSweeper{metrics: metrics, interval: interval}
}

func (w *MetricsSweeper) Start(ctx context.Context) {
	slog.Info("starting metrics sweeper", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("metrics sweeper stopped")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				slog.Error("metrics sweep failed", "error", err)
			}
		}
	}
}

func (w *MetricsSweeper) sweep(ctx context.Context) error {
	scopes, err := w.metrics.ReadyScopes(ctx)
	if err != nil {
		return fmt.Errorf("list ready scopes: %w", err)
	}

	for _, dishID := range scopes {
		// A scope can hold more than one backlogged batch; drain it.
		for {
			metric, err := w.metrics.CloseBatch(ctx, dishID)
			if err != nil {
				slog.Error("failed to close TMA batch", "error", err)
				break
			}
			if metric == nil {
				break
			}
			slog.Info("TMA batch closed by sweeper", "metric", metric.ID, "avg_seconds", metric.AvgSeconds)
		}
	}

	return nil
}
