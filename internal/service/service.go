package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/denizerdem/turkiye-weather-service/internal/cache"
	"github.com/denizerdem/turkiye-weather-service/internal/client"
	"github.com/denizerdem/turkiye-weather-service/internal/geo"
	"github.com/denizerdem/turkiye-weather-service/internal/models"
	"github.com/denizerdem/turkiye-weather-service/internal/observability"
	"github.com/denizerdem/turkiye-weather-service/internal/validation"
)

var (
	// ErrNotFound reports an unknown plate code.
	ErrNotFound = errors.New("province not found")
	// ErrUnavailable reports that every fallback tier was exhausted.
	ErrUnavailable = errors.New("weather data unavailable")
	// ErrValidation reports malformed or out-of-range request input.
	ErrValidation = errors.New("invalid request")
)

const (
	rangeCacheTTL     = 15 * time.Minute
	rangeCacheCap     = 512
	currentCacheTTL   = 15 * time.Minute
	snapshotCacheTTL  = 15 * time.Minute
	snapshotHourlyTTL = 6 * time.Hour
	snapshotHourlyCap = 6

	// Snapshot builds run with short timeouts and no retries so one slow
	// province cannot stall the 81-province batch.
	snapshotFetchTimeout   = 6500 * time.Millisecond
	snapshotCurrentTimeout = 5 * time.Second

	maxConcurrentFetches = 10

	currentCacheKey = "current"
	timezoneName    = "Europe/Istanbul"
	dateLayout      = "2006-01-02"
)

// provinceHourly is one province's full-day hourly series inside a snapshot
// build.
type provinceHourly struct {
	PlateCode string
	Name      string
	Hourly    models.HourlySeries
}

// snapshotDay is one date's fan-out result, reused across requested times
// within the hourly cache's TTL window.
type snapshotDay struct {
	Provinces []provinceHourly
	Total     int
}

// WeatherService is the aggregation engine. It owns the four TTL caches and
// coordinates the fallback fetcher, the bounded fan-out and the nearest-hour
// resolver. Constructed once at process start; all methods are safe for
// concurrent use.
type WeatherService struct {
	geo     *geo.Directory
	meteo   client.OpenMeteo
	fetcher *fallbackFetcher
	logger  *zap.Logger

	rangeCache          *cache.TTLCache[models.RangeResponse]
	currentCache        *cache.TTLCache[models.CurrentWeatherList]
	snapshotCache       *cache.TTLCache[models.SnapshotResponse]
	snapshotHourlyCache *cache.TTLCache[snapshotDay]

	builds *buildCoalescer
	now    func() time.Time
}

// New creates a WeatherService on top of the province directory and the
// Open-Meteo client.
func New(directory *geo.Directory, meteo client.OpenMeteo, logger *zap.Logger) *WeatherService {
	return &WeatherService{
		geo:                 directory,
		meteo:               meteo,
		fetcher:             newFallbackFetcher(meteo, logger),
		logger:              logger,
		rangeCache:          cache.New[models.RangeResponse](rangeCacheTTL, rangeCacheCap),
		currentCache:        cache.New[models.CurrentWeatherList](currentCacheTTL, 1),
		snapshotCache:       cache.New[models.SnapshotResponse](snapshotCacheTTL, 1),
		snapshotHourlyCache: cache.New[snapshotDay](snapshotHourlyTTL, snapshotHourlyCap),
		builds:              newBuildCoalescer(),
		now:                 time.Now,
	}
}

func (s *WeatherService) today() string {
	return s.now().Format(dateLayout)
}

// GetRange returns hourly or daily weather for one province across a date
// range, serving from the range cache when fresh. An end date earlier than
// the start date is clamped up to the start date.
func (s *WeatherService) GetRange(ctx context.Context, plateCode, startDate, endDate string, hourly bool) (models.RangeResponse, error) {
	code, err := validation.NormalizePlateCode(plateCode)
	if err != nil {
		return models.RangeResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	province, ok := s.geo.ByPlateCode(code)
	if !ok {
		return models.RangeResponse{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}

	start, err := validation.ParseDate(startDate)
	if err != nil {
		return models.RangeResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	end := start
	if endDate != "" {
		end, err = validation.ParseDate(endDate)
		if err != nil {
			return models.RangeResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if end.Before(start) {
			end = start
		}
	}
	startKey := start.Format(dateLayout)
	endKey := end.Format(dateLayout)

	key := fmt.Sprintf("%s|%s|%s|%t", code, startKey, endKey, hourly)
	if cached, ok := s.rangeCache.Get(key); ok {
		observability.CacheHitsTotal.WithLabelValues("range").Inc()
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("range").Inc()

	data, err := s.fetcher.fetchRange(ctx, rangeQuery{
		lat:             province.Coordinates.Latitude,
		lon:             province.Coordinates.Longitude,
		startDate:       startKey,
		endDate:         endKey,
		hourly:          hourly,
		opts:            client.DefaultOptions(),
		currentOpts:     client.DefaultOptions(),
		humidityDefault: 50,
	})
	if err != nil {
		return models.RangeResponse{}, err
	}

	resp := models.RangeResponse{
		Province:    province.Name,
		PlateCode:   code,
		Coordinates: province.Coordinates,
		Timezone:    timezoneName,
		Data:        data,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	}
	s.rangeCache.Put(key, resp)
	return resp, nil
}

// CurrentAll returns the instantaneous weather for every province. The whole
// payload is cached under a single shared key; a province's failure only
// shortens the returned list.
func (s *WeatherService) CurrentAll(ctx context.Context) (models.CurrentWeatherList, error) {
	if cached, ok := s.currentCache.Get(currentCacheKey); ok {
		observability.CacheHitsTotal.WithLabelValues("current").Inc()
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("current").Inc()

	provinces := s.geo.Provinces()
	today := s.today()
	start := time.Now()
	results, total := fanOut(ctx, provinces, maxConcurrentFetches, func(ctx context.Context, p models.Province) (models.CurrentWeather, bool) {
		return s.fetchCurrent(ctx, p, today)
	})
	observability.FanoutDuration.WithLabelValues("current").Observe(time.Since(start).Seconds())
	s.logger.Info("current fan-out complete",
		zap.Int("available", len(results)),
		zap.Int("total", total))

	payload := models.CurrentWeatherList{
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Provinces: results,
	}
	s.currentCache.Put(currentCacheKey, payload)
	return payload, nil
}

// fetchCurrent reads the instantaneous endpoint for one province, falling
// back to the last sampled hour of today's forecast when that call fails.
func (s *WeatherService) fetchCurrent(ctx context.Context, p models.Province, today string) (models.CurrentWeather, bool) {
	if !hasCoordinates(p) || p.PlateCode == "" {
		s.logger.Warn("skipping province without coordinates",
			zap.String("plate_code", p.PlateCode),
			zap.String("name", p.Name))
		return models.CurrentWeather{}, false
	}

	payload, err := s.meteo.Current(ctx, p.Coordinates.Latitude, p.Coordinates.Longitude, client.DefaultOptions())
	if err == nil && payload.Current != nil {
		return currentFromReading(p, payload.Current), true
	}
	s.logger.Warn("current weather failed, trying forecast",
		zap.String("plate_code", p.PlateCode),
		zap.Error(err))

	fallback, err := s.meteo.Recent(ctx, p.Coordinates.Latitude, p.Coordinates.Longitude, today, today, true, client.DefaultOptions())
	if err != nil || fallback.Hourly == nil || len(fallback.Hourly.Time) == 0 {
		s.logger.Error("current fallback failed",
			zap.String("plate_code", p.PlateCode),
			zap.Error(err))
		return models.CurrentWeather{}, false
	}
	return currentFromSeries(p, fallback.Hourly), true
}

// Snapshot returns every province's weather resolved to the sampled hour
// nearest the requested time. Future dates are rejected before any cache or
// upstream access. A full-day hourly build is shared across requested times
// for the same date.
func (s *WeatherService) Snapshot(ctx context.Context, date, timeValue string) (models.SnapshotResponse, error) {
	target, err := validation.ParseDate(date)
	if err != nil {
		return models.SnapshotResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	today, err := validation.ParseDate(s.today())
	if err != nil {
		return models.SnapshotResponse{}, err
	}
	if target.After(today) {
		return models.SnapshotResponse{}, fmt.Errorf("%w: date %s is in the future", ErrValidation, date)
	}
	targetHour, err := timeFraction(timeValue)
	if err != nil {
		return models.SnapshotResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	exactKey := date + "|" + timeValue
	if cached, ok := s.snapshotCache.Get(exactKey); ok {
		observability.CacheHitsTotal.WithLabelValues("snapshotExact").Inc()
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("snapshotExact").Inc()

	day, ok := s.snapshotHourlyCache.Get(date)
	if ok {
		observability.CacheHitsTotal.WithLabelValues("snapshotHourly").Inc()
	} else {
		observability.CacheMissesTotal.WithLabelValues("snapshotHourly").Inc()
		day, err = s.builds.do(ctx, date, func() (snapshotDay, error) {
			built := s.buildSnapshotDay(ctx, date)
			s.snapshotHourlyCache.Put(date, built)
			return built, nil
		})
		if err != nil {
			return models.SnapshotResponse{}, err
		}
	}

	records := make([]models.SnapshotRecord, 0, len(day.Provinces))
	for _, entry := range day.Provinces {
		if record, ok := resolveSnapshot(entry, targetHour, date); ok {
			records = append(records, record)
		}
	}
	if day.Total > 0 {
		observability.SnapshotCoverage.Set(float64(len(records)) / float64(day.Total))
	}

	resp := models.SnapshotResponse{
		RequestedDate: date,
		RequestedTime: timeValue,
		Timestamp:     s.now().UTC().Format(time.RFC3339),
		Coverage:      models.Coverage{Available: len(records), Total: day.Total},
		Provinces:     records,
	}
	s.snapshotCache.Put(exactKey, resp)
	return resp, nil
}

// buildSnapshotDay fans out one full-day hourly fetch per province through
// the complete fallback chain.
func (s *WeatherService) buildSnapshotDay(ctx context.Context, date string) snapshotDay {
	provinces := s.geo.Provinces()
	opts := client.CallOptions{Timeout: snapshotFetchTimeout, Retries: 0}
	currentOpts := client.CallOptions{Timeout: snapshotCurrentTimeout, Retries: 0}

	start := time.Now()
	results, total := fanOut(ctx, provinces, maxConcurrentFetches, func(ctx context.Context, p models.Province) (provinceHourly, bool) {
		if !hasCoordinates(p) || p.PlateCode == "" {
			return provinceHourly{}, false
		}
		data, err := s.fetcher.fetchRange(ctx, rangeQuery{
			lat:             p.Coordinates.Latitude,
			lon:             p.Coordinates.Longitude,
			startDate:       date,
			endDate:         date,
			hourly:          true,
			opts:            opts,
			currentOpts:     currentOpts,
			humidityDefault: 0,
		})
		if err != nil || data.Hourly == nil {
			s.logger.Warn("snapshot fetch dropped",
				zap.String("plate_code", p.PlateCode),
				zap.String("date", date),
				zap.Error(err))
			return provinceHourly{}, false
		}
		return provinceHourly{PlateCode: p.PlateCode, Name: p.Name, Hourly: *data.Hourly}, true
	})
	observability.FanoutDuration.WithLabelValues("snapshot").Observe(time.Since(start).Seconds())
	s.logger.Info("snapshot day built",
		zap.String("date", date),
		zap.Int("available", len(results)),
		zap.Int("total", total))
	return snapshotDay{Provinces: results, Total: total}
}

func hasCoordinates(p models.Province) bool {
	return p.Coordinates.Latitude != 0 || p.Coordinates.Longitude != 0
}

// currentFromReading maps an instantaneous reading onto the response shape.
func currentFromReading(p models.Province, cur *client.CurrentReading) models.CurrentWeather {
	temp := floatOrDefault(cur.Temperature2m, 0)
	code := intOrDefault(cur.WeatherCode, 0)
	return models.CurrentWeather{
		PlateCode:           p.PlateCode,
		Name:                p.Name,
		Temperature:         temp,
		ApparentTemperature: floatOrDefault(cur.ApparentTemperature, temp),
		Precipitation:       floatOrDefault(cur.Precipitation, 0),
		Humidity:            intOrDefault(cur.RelativeHumidity2m, 0),
		WindSpeed:           floatOrDefault(cur.WindSpeed10m, 0),
		WindDirection10m:    floatOrDefault(cur.WindDirection10m, 0),
		PressureMsl:         floatOrDefault(cur.PressureMsl, 0),
		Visibility:          floatOrDefault(cur.Visibility, 0),
		CloudCover:          intOrDefault(cur.CloudCover, 0),
		WeatherCode:         code,
		Icon:                iconKey(code),
	}
}

// currentFromSeries projects the last sampled hour of a forecast series onto
// the response shape. Used when the instantaneous endpoint fails.
func currentFromSeries(p models.Province, h *models.HourlySeries) models.CurrentWeather {
	index := len(h.Temperature2m) - 1
	if index < 0 {
		index = 0
	}
	temp := safeFloat(h.Temperature2m, index, 0)
	code := safeInt(h.WeatherCode, index, 0)
	return models.CurrentWeather{
		PlateCode:           p.PlateCode,
		Name:                p.Name,
		Temperature:         temp,
		ApparentTemperature: safeFloat(h.ApparentTemperature, index, temp),
		Precipitation:       safeFloat(h.Precipitation, index, 0),
		Humidity:            safeInt(h.RelativeHumidity2m, index, 0),
		WindSpeed:           safeFloat(h.WindSpeed10m, index, 0),
		WindDirection10m:    safeFloat(h.WindDirection10m, index, 0),
		PressureMsl:         safeFloat(h.PressureMsl, index, 0),
		Visibility:          safeFloat(h.Visibility, index, 0),
		CloudCover:          safeInt(h.CloudCover, index, 0),
		WeatherCode:         code,
		Icon:                iconKey(code),
	}
}
