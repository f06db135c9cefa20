package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/denizerdem/turkiye-weather-service/internal/client"
	"github.com/denizerdem/turkiye-weather-service/internal/models"
	"github.com/denizerdem/turkiye-weather-service/internal/observability"
)

// errEmptySeries marks a tier that answered with no sampled timestamps. It is
// a tier failure, never surfaced to callers.
var errEmptySeries = errors.New("empty series")

// rangeQuery describes one province's date-range fetch through the fallback
// chain. opts bounds the two range tiers, currentOpts the instantaneous tier;
// humidityDefault fills a missing humidity reading in the synthetic series.
type rangeQuery struct {
	lat, lon        float64
	startDate       string
	endDate         string
	hourly          bool
	opts            client.CallOptions
	currentOpts     client.CallOptions
	humidityDefault int
}

// fallbackFetcher walks the historical, recent-forecast and instantaneous
// tiers for a single province and normalizes whatever tier answered first.
type fallbackFetcher struct {
	meteo  client.OpenMeteo
	logger *zap.Logger
	now    func() time.Time
}

func newFallbackFetcher(meteo client.OpenMeteo, logger *zap.Logger) *fallbackFetcher {
	return &fallbackFetcher{meteo: meteo, logger: logger, now: time.Now}
}

func (f *fallbackFetcher) today() string {
	return f.now().Format("2006-01-02")
}

// fetchRange returns the first tier's series that holds at least one sample.
// An empty time list counts as a failure so the next tier is consulted. The
// instantaneous tier only applies when the start date is today; for any other
// date the range is reported unavailable.
func (f *fallbackFetcher) fetchRange(ctx context.Context, q rangeQuery) (models.WeatherData, error) {
	payload, err := f.meteo.Historical(ctx, q.lat, q.lon, q.startDate, q.endDate, q.hourly, q.opts)
	if err == nil {
		if data, ok := rangeData(payload, q.hourly); ok {
			observability.FallbackTierTotal.WithLabelValues("historical").Inc()
			return data, nil
		}
		err = errEmptySeries
	}
	f.logger.Warn("archive tier failed, trying forecast",
		zap.String("start_date", q.startDate),
		zap.String("end_date", q.endDate),
		zap.Error(err))

	payload, err = f.meteo.Recent(ctx, q.lat, q.lon, q.startDate, q.endDate, q.hourly, q.opts)
	if err == nil {
		if data, ok := rangeData(payload, q.hourly); ok {
			observability.FallbackTierTotal.WithLabelValues("recent").Inc()
			return data, nil
		}
		err = errEmptySeries
	}
	f.logger.Error("forecast tier failed, falling back to instantaneous",
		zap.String("start_date", q.startDate),
		zap.Error(err))

	if q.startDate != f.today() {
		return models.WeatherData{}, fmt.Errorf("%w: no range data for %s", ErrUnavailable, q.startDate)
	}

	cur, err := f.meteo.Current(ctx, q.lat, q.lon, q.currentOpts)
	if err != nil || cur.Current == nil {
		f.logger.Error("instantaneous tier failed", zap.Error(err))
		return models.WeatherData{}, fmt.Errorf("%w: all tiers exhausted", ErrUnavailable)
	}
	observability.FallbackTierTotal.WithLabelValues("instantaneous").Inc()
	if q.hourly {
		return models.WeatherData{Hourly: syntheticHourly(cur.Current, q.startDate, q.humidityDefault)}, nil
	}
	return models.WeatherData{Daily: syntheticDaily(cur.Current, q.startDate)}, nil
}

// rangeData extracts the requested granularity from a tier's payload.
// ok is false when the series is missing or holds no timestamps.
func rangeData(p *client.RangePayload, hourly bool) (models.WeatherData, bool) {
	if hourly {
		if p.Hourly != nil && len(p.Hourly.Time) > 0 {
			return models.WeatherData{Hourly: p.Hourly}, true
		}
		return models.WeatherData{}, false
	}
	if p.Daily != nil && len(p.Daily.Time) > 0 {
		return models.WeatherData{Daily: p.Daily}, true
	}
	return models.WeatherData{}, false
}

// syntheticHourly turns one instantaneous reading into a one-point hourly
// series. Missing metrics default to zero, except humidity (call-site default)
// and apparent temperature, which defaults to temperature.
func syntheticHourly(cur *client.CurrentReading, date string, humidityDefault int) *models.HourlySeries {
	ts := cur.Time
	if ts == "" {
		ts = date + "T00:00"
	}
	temp := floatOrDefault(cur.Temperature2m, 0)
	return &models.HourlySeries{
		Time:                []string{ts},
		Temperature2m:       []float64{temp},
		ApparentTemperature: []float64{floatOrDefault(cur.ApparentTemperature, temp)},
		Precipitation:       []float64{floatOrDefault(cur.Precipitation, 0)},
		WindSpeed10m:        []float64{floatOrDefault(cur.WindSpeed10m, 0)},
		WindDirection10m:    []float64{floatOrDefault(cur.WindDirection10m, 0)},
		RelativeHumidity2m:  []int{intOrDefault(cur.RelativeHumidity2m, humidityDefault)},
		PressureMsl:         []float64{floatOrDefault(cur.PressureMsl, 0)},
		Visibility:          []float64{floatOrDefault(cur.Visibility, 0)},
		CloudCover:          []int{intOrDefault(cur.CloudCover, 0)},
		WeatherCode:         []int{intOrDefault(cur.WeatherCode, 0)},
	}
}

// syntheticDaily collapses one instantaneous reading into a one-day series;
// the single temperature doubles as both the max and the min.
func syntheticDaily(cur *client.CurrentReading, date string) *models.DailySeries {
	temp := floatOrDefault(cur.Temperature2m, 0)
	return &models.DailySeries{
		Time:             []string{date},
		Temperature2mMax: []float64{temp},
		Temperature2mMin: []float64{temp},
		PrecipitationSum: []float64{floatOrDefault(cur.Precipitation, 0)},
		WeatherCode:      []int{intOrDefault(cur.WeatherCode, 0)},
	}
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
