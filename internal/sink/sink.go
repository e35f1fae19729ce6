// Package sink delivers a built dataset to its configured destinations.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Sink writes one dataset build somewhere.
type Sink interface {
	Name() string
	Ping(ctx context.Context) error
	Write(ctx context.Context, runID string, ds *dataset.Dataset) error
	Close() error
}

// Preflight probes every sink concurrently and fails with
// ErrSinkUnavailable if any of them is unreachable.
func Preflight(ctx context.Context, timeout time.Duration, sinks ...Sink) (health.Report, error) {
	checker := health.NewChecker(timeout)
	for _, s := range sinks {
		checker.Register(s.Name(), s.Ping)
	}
	report := checker.Run(ctx)
	return report, report.Err()
}

// WriteAll writes ds to every sink in parallel. The first failure cancels
// the remaining writes. m may be nil.
func WriteAll(ctx context.Context, runID string, ds *dataset.Dataset, m *metrics.Metrics, sinks ...Sink) error {
	log := logger.FromContext(ctx).With("component", "sink")
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		g.Go(func() error {
			start := time.Now()
			err := s.Write(gctx, runID, ds)
			status := "ok"
			if err != nil {
				status = "error"
			}
			if m != nil {
				m.SinkWritesTotal.WithLabelValues(s.Name(), status).Inc()
			}
			if err != nil {
				log.Error("sink write failed", "sink", s.Name(), "error", err)
				return fmt.Errorf("writing to %s sink: %w", s.Name(), err)
			}
			log.Info("sink write complete",
				"sink", s.Name(),
				"examples", len(ds.Train)+len(ds.Test),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		})
	}
	return g.Wait()
}

// CloseAll closes every sink and returns the first error.
func CloseAll(sinks ...Sink) error {
	var first error
	for _, s := range sinks {
		if err := s.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing %s sink: %w", s.Name(), err)
		}
	}
	return first
}
