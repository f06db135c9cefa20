package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/denizerdem/turkiye-weather-service/internal/models"
	"github.com/denizerdem/turkiye-weather-service/internal/validation"
)

// Sentinel strictly above the largest possible hour-of-day distance, so the
// first parseable timestamp always wins the initial comparison.
const maxHourDistance = 999.0

// timeFraction converts an HH:MM string into a fractional hour of day in [0,24).
func timeFraction(value string) (float64, error) {
	hour, minute, err := validation.ParseClock(value)
	if err != nil {
		return 0, err
	}
	return float64(hour) + float64(minute)/60.0, nil
}

// hourFraction extracts the fractional hour of day from an ISO-like timestamp
// such as "2025-01-15T13:30". ok is false when the timestamp cannot be parsed.
func hourFraction(timestamp string) (float64, bool) {
	_, timePart, found := strings.Cut(timestamp, "T")
	if !found {
		return 0, false
	}
	hourStr, rest, found := strings.Cut(timePart, ":")
	if !found || len(rest) < 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(rest[:2])
	if err != nil {
		return 0, false
	}
	return float64(hour) + float64(minute)/60.0, true
}

// bestHourIndex returns the index whose timestamp is closest in hour-of-day
// distance to target. Comparison is strict less-than against a running best,
// so the first index wins ties. Unparseable timestamps are skipped; a list
// with no parseable entry resolves to index 0.
func bestHourIndex(times []string, target float64) int {
	bestIndex := 0
	bestDistance := maxHourDistance
	for i, ts := range times {
		frac, ok := hourFraction(ts)
		if !ok {
			continue
		}
		distance := frac - target
		if distance < 0 {
			distance = -distance
		}
		if distance < bestDistance {
			bestDistance = distance
			bestIndex = i
		}
	}
	return bestIndex
}

func safeFloat(values []float64, index int, def float64) float64 {
	if index < 0 || index >= len(values) {
		return def
	}
	return values[index]
}

func safeInt(values []int, index int, def int) int {
	if index < 0 || index >= len(values) {
		return def
	}
	return values[index]
}

func safeString(values []string, index int, def string) string {
	if index < 0 || index >= len(values) {
		return def
	}
	return values[index]
}

// iconKey derives the fixed icon identifier for a weather code.
func iconKey(code int) string {
	return fmt.Sprintf("code_%d", code)
}

// resolveSnapshot projects one province's hourly series onto the sampled hour
// nearest to target. ok is false when the series holds no samples or no
// temperature at the resolved index; a missing value in any other metric
// falls back to its default instead of dropping the record.
func resolveSnapshot(entry provinceHourly, target float64, date string) (models.SnapshotRecord, bool) {
	h := entry.Hourly
	if len(h.Time) == 0 {
		return models.SnapshotRecord{}, false
	}
	index := bestHourIndex(h.Time, target)
	if index >= len(h.Temperature2m) {
		return models.SnapshotRecord{}, false
	}
	temp := h.Temperature2m[index]
	code := safeInt(h.WeatherCode, index, 0)
	return models.SnapshotRecord{
		PlateCode:           entry.PlateCode,
		Name:                entry.Name,
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
		ResolvedTime:        safeString(h.Time, index, date+"T00:00"),
	}, true
}
