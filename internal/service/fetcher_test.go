package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/denizerdem/turkiye-weather-service/internal/client"
	"github.com/denizerdem/turkiye-weather-service/internal/models"
)

func fixedClock(date string) func() time.Time {
	t, _ := time.Parse("2006-01-02", date)
	return func() time.Time { return t }
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func hourlyPayload(times []string, temps []float64) *client.RangePayload {
	return &client.RangePayload{
		Hourly: &models.HourlySeries{Time: times, Temperature2m: temps},
	}
}

func testQuery(date string, hourly bool) rangeQuery {
	return rangeQuery{
		lat:             39.9,
		lon:             32.8,
		startDate:       date,
		endDate:         date,
		hourly:          hourly,
		opts:            client.DefaultOptions(),
		currentOpts:     client.DefaultOptions(),
		humidityDefault: 50,
	}
}

// TestFetchRange_HistoricalTier verifies the archive answer is used when it
// holds samples, without consulting later tiers.
func TestFetchRange_HistoricalTier(t *testing.T) {
	meteo := &mockMeteo{
		historicalFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return hourlyPayload([]string{"2025-01-15T00:00"}, []float64{3.0}), nil
		},
	}
	f := newFallbackFetcher(meteo, zap.NewNop())

	data, err := f.fetchRange(context.Background(), testQuery("2025-01-15", true))
	if err != nil {
		t.Fatalf("fetchRange() error = %v", err)
	}
	if data.Hourly == nil || data.Hourly.Temperature2m[0] != 3.0 {
		t.Fatalf("data.Hourly = %+v, want archive series", data.Hourly)
	}
	if got := meteo.recentCalls.Load(); got != 0 {
		t.Errorf("recent calls = %d, want 0", got)
	}
	if got := meteo.currentCalls.Load(); got != 0 {
		t.Errorf("current calls = %d, want 0", got)
	}
}

// TestFetchRange_EmptyHistoricalFallsToRecent verifies an archive answer with
// no samples counts as a tier failure.
func TestFetchRange_EmptyHistoricalFallsToRecent(t *testing.T) {
	meteo := &mockMeteo{
		historicalFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return hourlyPayload(nil, nil), nil
		},
		recentFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return hourlyPayload([]string{"2025-01-15T00:00"}, []float64{7.0}), nil
		},
	}
	f := newFallbackFetcher(meteo, zap.NewNop())

	data, err := f.fetchRange(context.Background(), testQuery("2025-01-15", true))
	if err != nil {
		t.Fatalf("fetchRange() error = %v", err)
	}
	if data.Hourly == nil || data.Hourly.Temperature2m[0] != 7.0 {
		t.Fatalf("data.Hourly = %+v, want forecast series", data.Hourly)
	}
	if got := meteo.recentCalls.Load(); got != 1 {
		t.Errorf("recent calls = %d, want 1", got)
	}
}

// TestFetchRange_PastDate_NoInstantaneousTier verifies the instantaneous tier
// is skipped for non-today start dates and the range is reported unavailable.
func TestFetchRange_PastDate_NoInstantaneousTier(t *testing.T) {
	upstreamDown := errors.New("boom")
	meteo := &mockMeteo{
		historicalFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
		recentFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
	}
	f := newFallbackFetcher(meteo, zap.NewNop())
	f.now = fixedClock("2025-06-01")

	_, err := f.fetchRange(context.Background(), testQuery("2025-01-15", true))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("fetchRange() error = %v, want ErrUnavailable", err)
	}
	if got := meteo.currentCalls.Load(); got != 0 {
		t.Errorf("current calls = %d, want 0 for a past date", got)
	}
}

// TestFetchRange_Today_SyntheticHourly verifies a today query falls through to
// the instantaneous tier and builds a one-point hourly series.
func TestFetchRange_Today_SyntheticHourly(t *testing.T) {
	upstreamDown := errors.New("boom")
	meteo := &mockMeteo{
		historicalFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
		recentFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
		currentFn: func(ctx context.Context, lat, lon float64, opts client.CallOptions) (*client.CurrentPayload, error) {
			return &client.CurrentPayload{Current: &client.CurrentReading{
				Time:          "2025-06-01T14:00",
				Temperature2m: floatPtr(28.5),
				WeatherCode:   intPtr(0),
			}}, nil
		},
	}
	f := newFallbackFetcher(meteo, zap.NewNop())
	f.now = fixedClock("2025-06-01")

	data, err := f.fetchRange(context.Background(), testQuery("2025-06-01", true))
	if err != nil {
		t.Fatalf("fetchRange() error = %v", err)
	}
	h := data.Hourly
	if h == nil || len(h.Time) != 1 {
		t.Fatalf("data.Hourly = %+v, want a one-point series", h)
	}
	if h.Time[0] != "2025-06-01T14:00" {
		t.Errorf("Time[0] = %q, want the reading's timestamp", h.Time[0])
	}
	if h.Temperature2m[0] != 28.5 {
		t.Errorf("Temperature2m[0] = %v, want 28.5", h.Temperature2m[0])
	}
	// Apparent temperature defaults to the dry-bulb value, humidity to the
	// call-site default.
	if h.ApparentTemperature[0] != 28.5 {
		t.Errorf("ApparentTemperature[0] = %v, want 28.5", h.ApparentTemperature[0])
	}
	if h.RelativeHumidity2m[0] != 50 {
		t.Errorf("RelativeHumidity2m[0] = %d, want 50", h.RelativeHumidity2m[0])
	}
}

// TestFetchRange_Today_SyntheticDaily verifies the daily-granularity synthetic
// series uses the reading's temperature as both max and min.
func TestFetchRange_Today_SyntheticDaily(t *testing.T) {
	upstreamDown := errors.New("boom")
	meteo := &mockMeteo{
		historicalFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
		recentFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
		currentFn: func(ctx context.Context, lat, lon float64, opts client.CallOptions) (*client.CurrentPayload, error) {
			return &client.CurrentPayload{Current: &client.CurrentReading{
				Temperature2m: floatPtr(18.0),
				Precipitation: floatPtr(1.2),
			}}, nil
		},
	}
	f := newFallbackFetcher(meteo, zap.NewNop())
	f.now = fixedClock("2025-06-01")

	data, err := f.fetchRange(context.Background(), testQuery("2025-06-01", false))
	if err != nil {
		t.Fatalf("fetchRange() error = %v", err)
	}
	d := data.Daily
	if d == nil || len(d.Time) != 1 {
		t.Fatalf("data.Daily = %+v, want a one-day series", d)
	}
	if d.Time[0] != "2025-06-01" {
		t.Errorf("Time[0] = %q, want 2025-06-01", d.Time[0])
	}
	if d.Temperature2mMax[0] != 18.0 || d.Temperature2mMin[0] != 18.0 {
		t.Errorf("max, min = %v, %v, want both 18.0", d.Temperature2mMax[0], d.Temperature2mMin[0])
	}
	if d.PrecipitationSum[0] != 1.2 {
		t.Errorf("PrecipitationSum[0] = %v, want 1.2", d.PrecipitationSum[0])
	}
}

// TestFetchRange_AllTiersExhausted verifies ErrUnavailable when every tier
// fails for a today query.
func TestFetchRange_AllTiersExhausted(t *testing.T) {
	upstreamDown := errors.New("boom")
	meteo := &mockMeteo{
		historicalFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
		recentFn: func(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts client.CallOptions) (*client.RangePayload, error) {
			return nil, upstreamDown
		},
		currentFn: func(ctx context.Context, lat, lon float64, opts client.CallOptions) (*client.CurrentPayload, error) {
			return nil, upstreamDown
		},
	}
	f := newFallbackFetcher(meteo, zap.NewNop())
	f.now = fixedClock("2025-06-01")

	_, err := f.fetchRange(context.Background(), testQuery("2025-06-01", true))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("fetchRange() error = %v, want ErrUnavailable", err)
	}
	if got := meteo.currentCalls.Load(); got != 1 {
		t.Errorf("current calls = %d, want 1", got)
	}
}
