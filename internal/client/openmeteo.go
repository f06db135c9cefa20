package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/denizerdem/turkiye-weather-service/internal/models"
	"github.com/denizerdem/turkiye-weather-service/internal/observability"
)

// Variable sets requested from Open-Meteo. The hourly set doubles as the
// "current" parameter for the instantaneous endpoint.
var hourlyVariables = strings.Join([]string{
	"temperature_2m",
	"apparent_temperature",
	"precipitation",
	"wind_speed_10m",
	"wind_direction_10m",
	"relative_humidity_2m",
	"pressure_msl",
	"visibility",
	"cloud_cover",
	"weather_code",
}, ",")

var dailyVariables = strings.Join([]string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"weather_code",
}, ",")

// All queries are pinned to the province timezone so hourly timestamps line up
// with local time of day.
const queryTimezone = "Europe/Istanbul"

var (
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrCircuitOpen     = errors.New("circuit breaker open")
)

// CallOptions override the client's default timeout and retry budget for one
// call. A zero Timeout keeps the client default; Retries < 0 keeps the client
// default, Retries >= 0 replaces it (0 disables retries).
type CallOptions struct {
	Timeout time.Duration
	Retries int
}

// DefaultOptions keeps the client-level timeout and retry budget.
func DefaultOptions() CallOptions {
	return CallOptions{Retries: -1}
}

// OpenMeteo is the upstream provider surface the service layer consumes.
type OpenMeteo interface {
	Historical(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts CallOptions) (*RangePayload, error)
	Recent(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts CallOptions) (*RangePayload, error)
	Current(ctx context.Context, lat, lon float64, opts CallOptions) (*CurrentPayload, error)
}

// RangePayload is the decoded shape of an Open-Meteo range response. Exactly
// one of Hourly or Daily is populated depending on the requested granularity.
type RangePayload struct {
	Hourly *models.HourlySeries `json:"hourly"`
	Daily  *models.DailySeries  `json:"daily"`
}

// CurrentPayload wraps the instantaneous reading.
type CurrentPayload struct {
	Current *CurrentReading `json:"current"`
}

// CurrentReading is one instantaneous sample. Optional metrics are pointers so
// absent fields can fall back to call-site defaults.
type CurrentReading struct {
	Time                string   `json:"time"`
	Temperature2m       *float64 `json:"temperature_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	Precipitation       *float64 `json:"precipitation"`
	WindSpeed10m        *float64 `json:"wind_speed_10m"`
	WindDirection10m    *float64 `json:"wind_direction_10m"`
	RelativeHumidity2m  *int     `json:"relative_humidity_2m"`
	PressureMsl         *float64 `json:"pressure_msl"`
	Visibility          *float64 `json:"visibility"`
	CloudCover          *int     `json:"cloud_cover"`
	WeatherCode         *int     `json:"weather_code"`
}

// Client talks to the Open-Meteo forecast and archive APIs with linear-backoff
// retries and one circuit breaker per logical endpoint, so an archive outage
// cannot open the forecast path.
type Client struct {
	forecastURL string
	archiveURL  string
	httpClient  *http.Client
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
	breakers    map[string]*gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// New creates an Open-Meteo client. timeout and maxRetries are per-call
// defaults; retryDelay is the linear backoff step between attempts.
func New(forecastURL, archiveURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *Client {
	breakers := make(map[string]*gobreaker.CircuitBreaker, 3)
	for _, endpoint := range []string{"historical", "recent", "current"} {
		breakers[endpoint] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "open-meteo-" + endpoint,
			MaxRequests: 5,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 20
			},
		})
	}
	return &Client{
		forecastURL: forecastURL,
		archiveURL:  archiveURL,
		httpClient:  &http.Client{},
		timeout:     timeout,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		breakers:    breakers,
		logger:      logger,
	}
}

// Historical queries the archive endpoint for an exact date range.
func (c *Client) Historical(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts CallOptions) (*RangePayload, error) {
	var payload RangePayload
	params := rangeParams(lat, lon, startDate, endDate, hourly)
	if err := c.requestJSON(ctx, "historical", c.archiveURL, params, opts, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Recent queries the forecast endpoint for a date range close to the present.
func (c *Client) Recent(ctx context.Context, lat, lon float64, startDate, endDate string, hourly bool, opts CallOptions) (*RangePayload, error) {
	var payload RangePayload
	params := rangeParams(lat, lon, startDate, endDate, hourly)
	if err := c.requestJSON(ctx, "recent", c.forecastURL, params, opts, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Current queries the instantaneous reading for a point.
func (c *Client) Current(ctx context.Context, lat, lon float64, opts CallOptions) (*CurrentPayload, error) {
	params := pointParams(lat, lon)
	params.Set("current", hourlyVariables)
	params.Set("timezone", queryTimezone)
	var payload CurrentPayload
	if err := c.requestJSON(ctx, "current", c.forecastURL, params, opts, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func pointParams(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	return params
}

func rangeParams(lat, lon float64, startDate, endDate string, hourly bool) url.Values {
	params := pointParams(lat, lon)
	params.Set("start_date", startDate)
	params.Set("end_date", endDate)
	params.Set("timezone", queryTimezone)
	if hourly {
		params.Set("hourly", hourlyVariables)
	} else {
		params.Set("daily", dailyVariables)
	}
	return params
}

// requestJSON performs the call with linear backoff between attempts: the
// n-th retry waits n times the retry delay. An open circuit aborts the retry
// loop immediately.
func (c *Client) requestJSON(ctx context.Context, endpoint, rawURL string, params url.Values, opts CallOptions, out interface{}) error {
	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	retries := c.maxRetries
	if opts.Retries >= 0 {
		retries = opts.Retries
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid upstream URL %q: %w", rawURL, err)
	}
	u.RawQuery = params.Encode()
	fullURL := u.String()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.Inc()
			delay := c.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.doOnce(ctx, endpoint, fullURL, timeout)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("parse %s response: %w", endpoint, err)
			}
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			break
		}
		c.logger.Warn("open-meteo request failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", retries+1),
			zap.Error(err))
	}
	return fmt.Errorf("%s request after %d attempt(s): %w", endpoint, retries+1, lastErr)
}

// doOnce runs a single HTTP attempt through the endpoint's circuit breaker.
func (c *Client) doOnce(ctx context.Context, endpoint, fullURL string, timeout time.Duration) ([]byte, error) {
	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.breakers[endpoint].Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return body, nil
	})

	duration := time.Since(start).Seconds()
	observability.UpstreamDuration.WithLabelValues(endpoint).Observe(duration)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}
	observability.UpstreamCallsTotal.WithLabelValues(endpoint, "success").Inc()
	return result.([]byte), nil
}
