package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/denizerdem/turkiye-weather-service/internal/lifecycle"
	"github.com/denizerdem/turkiye-weather-service/internal/models"
	"github.com/denizerdem/turkiye-weather-service/internal/service"
)

// WeatherAPI is the service surface the handlers consume.
type WeatherAPI interface {
	GetRange(ctx context.Context, plateCode, startDate, endDate string, hourly bool) (models.RangeResponse, error)
	CurrentAll(ctx context.Context) (models.CurrentWeatherList, error)
	Snapshot(ctx context.Context, date, timeValue string) (models.SnapshotResponse, error)
}

// ProvinceDirectory is the static province lookup the handlers consume.
type ProvinceDirectory interface {
	Provinces() []models.Province
	ByPlateCode(code string) (models.Province, bool)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather   WeatherAPI
	directory ProvinceDirectory
	logger    *zap.Logger
	startTime time.Time
}

// NewHandler returns a new Handler.
func NewHandler(weather WeatherAPI, directory ProvinceDirectory, logger *zap.Logger) *Handler {
	return &Handler{
		weather:   weather,
		directory: directory,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetWeather handles GET /api/weather?province=&start_date=&end_date=&hourly=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	province := strings.TrimSpace(q.Get("province"))
	if province == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "province is required")
		return
	}
	startDate := strings.TrimSpace(q.Get("start_date"))
	if startDate == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "start_date is required")
		return
	}
	endDate := strings.TrimSpace(q.Get("end_date"))
	hourly := parseBoolDefault(q.Get("hourly"), true)

	result, err := h.weather.GetRange(r.Context(), province, startDate, endDate, hourly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetCurrent handles GET /api/weather/current.
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	result, err := h.weather.CurrentAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSnapshot handles GET /api/weather/snapshot?date=&time=.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "date is required")
		return
	}
	timeValue := strings.TrimSpace(q.Get("time"))
	if timeValue == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "time is required")
		return
	}

	result, err := h.weather.Snapshot(r.Context(), date, timeValue)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetProvinces handles GET /api/provinces.
func (h *Handler) GetProvinces(w http.ResponseWriter, r *http.Request) {
	provinces := h.directory.Provinces()
	writeJSON(w, http.StatusOK, models.ProvinceList{
		Provinces: provinces,
		Total:     len(provinces),
	})
}

// GetProvince handles GET /api/provinces/{plate_code}.
func (h *Handler) GetProvince(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["plate_code"])
	if len(code) == 1 {
		code = "0" + code
	}
	province, ok := h.directory.ByPlateCode(code)
	if !ok {
		writeError(w, r, http.StatusNotFound, "PROVINCE_NOT_FOUND", "unknown plate code: "+code)
		return
	}
	writeJSON(w, http.StatusOK, province)
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	if lifecycle.IsShuttingDown() {
		status = "shutting-down"
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"status":         status,
		"service":        "turkiye-weather-service",
		"version":        "dev",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// GetRoot handles GET /. A small banner so probes and humans see something
// other than a 404.
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "turkiye-weather-service",
		"endpoints": []string{
			"/api/weather",
			"/api/weather/current",
			"/api/weather/snapshot",
			"/api/provinces",
			"/api/provinces/{plate_code}",
			"/health",
			"/metrics",
		},
	})
}

// parseBoolDefault reads a query flag leniently; empty or unrecognized values
// fall back to def.
func parseBoolDefault(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value(correlationIDKey); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeServiceError maps a service-layer error onto the HTTP error taxonomy.
// The underlying error is logged, never echoed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request parameters")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "PROVINCE_NOT_FOUND", "Unknown province")
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
	if logger, ok := r.Context().Value(loggerKey).(*zap.Logger); ok && logger != nil {
		logger.Debug("request failed", zap.Error(err))
	}
}
