package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/denizerdem/turkiye-weather-service/internal/models"
)

type mockPrefetcher struct {
	calls int
	err   error
}

func (m *mockPrefetcher) CurrentAll(ctx context.Context) (models.CurrentWeatherList, error) {
	m.calls++
	if m.err != nil {
		return models.CurrentWeatherList{}, m.err
	}
	return models.CurrentWeatherList{
		Provinces: []models.CurrentWeather{{PlateCode: "06", Name: "Ankara"}},
	}, nil
}

// TestWarmer_Warm verifies a warming run invokes the prefetcher once.
func TestWarmer_Warm(t *testing.T) {
	pf := &mockPrefetcher{}
	w := NewWarmer(pf, zap.NewNop())

	if err := w.Warm(context.Background()); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if pf.calls != 1 {
		t.Errorf("prefetcher calls = %d, want 1", pf.calls)
	}
}

// TestWarmer_Warm_Error verifies a failed prefetch is surfaced.
func TestWarmer_Warm_Error(t *testing.T) {
	boom := errors.New("boom")
	w := NewWarmer(&mockPrefetcher{err: boom}, zap.NewNop())

	if err := w.Warm(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Warm() error = %v, want %v", err, boom)
	}
}

// TestWarmer_WarmPeriodic_StopsOnCancel verifies the periodic loop exits when
// its context is cancelled.
func TestWarmer_WarmPeriodic_StopsOnCancel(t *testing.T) {
	pf := &mockPrefetcher{}
	w := NewWarmer(pf, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WarmPeriodic(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WarmPeriodic() error = %v, want context.Canceled", err)
	}
	// The initial warm still ran before the loop observed cancellation.
	if pf.calls != 1 {
		t.Errorf("prefetcher calls = %d, want 1", pf.calls)
	}
}
