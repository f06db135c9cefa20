package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/denizerdem/turkiye-weather-service/internal/models"
	"github.com/denizerdem/turkiye-weather-service/internal/observability"
)

// CurrentPrefetcher is implemented by the service layer to build the
// all-provinces current payload. Declared here to avoid a circular dependency
// on the service package.
type CurrentPrefetcher interface {
	CurrentAll(ctx context.Context) (models.CurrentWeatherList, error)
}

// Warmer prefetches the all-provinces current payload so the first request
// after startup does not pay for a cold fan-out.
type Warmer struct {
	prefetcher CurrentPrefetcher
	logger     *zap.Logger
}

// NewWarmer creates a Warmer that uses the given prefetcher and logger.
func NewWarmer(prefetcher CurrentPrefetcher, logger *zap.Logger) *Warmer {
	return &Warmer{prefetcher: prefetcher, logger: logger}
}

// Warm runs one prefetch and populates the current cache through the service.
func (w *Warmer) Warm(ctx context.Context) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	payload, err := w.prefetcher.CurrentAll(ctx)
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if err != nil {
		observability.CacheWarmingErrorsTotal.Inc()
		if w.logger != nil {
			w.logger.Warn("cache warming failed", zap.Error(err), zap.Float64("duration_seconds", duration))
		}
		return err
	}
	if w.logger != nil {
		w.logger.Info("cache warming complete",
			zap.Int("provinces", len(payload.Provinces)),
			zap.Float64("duration_seconds", duration))
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, interval time.Duration) error {
	if err := w.Warm(ctx); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
