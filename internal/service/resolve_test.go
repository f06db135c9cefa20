package service

import (
	"testing"

	"github.com/denizerdem/turkiye-weather-service/internal/models"
)

// TestTimeFraction verifies HH:MM to fractional-hour conversion and bounds.
func TestTimeFraction(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{name: "on the hour", in: "13:00", want: 13.0},
		{name: "half past", in: "13:30", want: 13.5},
		{name: "midnight", in: "00:00", want: 0},
		{name: "single digit hour", in: "9:15", want: 9.25},
		{name: "hour out of range", in: "24:00", wantErr: true},
		{name: "garbage", in: "noon", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := timeFraction(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("timeFraction(%q) error = nil, want error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("timeFraction(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("timeFraction(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// TestHourFraction verifies extraction of the fractional hour from sampled
// timestamps, including rejection of unparseable values.
func TestHourFraction(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   float64
		wantOK bool
	}{
		{name: "standard", in: "2025-01-15T13:30", want: 13.5, wantOK: true},
		{name: "midnight", in: "2025-01-15T00:00", want: 0, wantOK: true},
		{name: "with seconds", in: "2025-01-15T06:45:00", want: 6.75, wantOK: true},
		{name: "no time part", in: "2025-01-15", wantOK: false},
		{name: "no minutes", in: "2025-01-15T13", wantOK: false},
		{name: "non numeric hour", in: "2025-01-15Txx:30", wantOK: false},
		{name: "empty", in: "", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := hourFraction(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("hourFraction(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Errorf("hourFraction(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// TestBestHourIndex verifies nearest-hour selection including tie-breaking and
// unparseable-timestamp handling.
func TestBestHourIndex(t *testing.T) {
	sixHourly := []string{
		"2025-01-15T00:00",
		"2025-01-15T06:00",
		"2025-01-15T12:00",
		"2025-01-15T18:00",
	}

	tests := []struct {
		name   string
		times  []string
		target float64
		want   int
	}{
		{name: "closest below", times: sixHourly, target: 13.0, want: 2},
		{name: "closest above", times: sixHourly, target: 16.5, want: 3},
		{name: "exact match", times: sixHourly, target: 6.0, want: 1},
		{name: "tie keeps first", times: sixHourly, target: 3.0, want: 0},
		{name: "tie keeps first late", times: sixHourly, target: 15.0, want: 2},
		{name: "all unparseable resolves to zero", times: []string{"bad", "worse"}, target: 12.0, want: 0},
		{name: "skips unparseable", times: []string{"bad", "2025-01-15T11:00"}, target: 12.0, want: 1},
		{name: "single entry", times: []string{"2025-01-15T23:00"}, target: 1.0, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := bestHourIndex(tc.times, tc.target)
			if got != tc.want {
				t.Errorf("bestHourIndex(%v, %v) = %d, want %d", tc.times, tc.target, got, tc.want)
			}
		})
	}
}

// TestResolveSnapshot verifies projection of an hourly series onto the
// nearest sampled hour, with per-metric defaults for short metric lists.
func TestResolveSnapshot(t *testing.T) {
	entry := provinceHourly{
		PlateCode: "06",
		Name:      "Ankara",
		Hourly: models.HourlySeries{
			Time:                []string{"2025-01-15T00:00", "2025-01-15T12:00"},
			Temperature2m:       []float64{-2.0, 5.5},
			ApparentTemperature: []float64{-6.0, 3.0},
			Precipitation:       []float64{0, 0.4},
			WindSpeed10m:        []float64{10, 14},
			RelativeHumidity2m:  []int{80, 55},
			WeatherCode:         []int{3, 61},
		},
	}

	record, ok := resolveSnapshot(entry, 13.0, "2025-01-15")
	if !ok {
		t.Fatal("resolveSnapshot() ok = false, want true")
	}
	if record.Temperature != 5.5 {
		t.Errorf("Temperature = %v, want 5.5", record.Temperature)
	}
	if record.ApparentTemperature != 3.0 {
		t.Errorf("ApparentTemperature = %v, want 3.0", record.ApparentTemperature)
	}
	if record.WeatherCode != 61 || record.Icon != "code_61" {
		t.Errorf("WeatherCode, Icon = %d, %q, want 61, code_61", record.WeatherCode, record.Icon)
	}
	if record.ResolvedTime != "2025-01-15T12:00" {
		t.Errorf("ResolvedTime = %q, want 2025-01-15T12:00", record.ResolvedTime)
	}
	// Metrics missing from the series fall back to defaults.
	if record.PressureMsl != 0 || record.CloudCover != 0 {
		t.Errorf("missing metrics = %v, %v, want zero defaults", record.PressureMsl, record.CloudCover)
	}
}

// TestResolveSnapshot_ApparentDefaultsToTemperature verifies the apparent
// temperature falls back to the dry-bulb value when its list is short.
func TestResolveSnapshot_ApparentDefaultsToTemperature(t *testing.T) {
	entry := provinceHourly{
		PlateCode: "34",
		Name:      "İstanbul",
		Hourly: models.HourlySeries{
			Time:          []string{"2025-01-15T09:00"},
			Temperature2m: []float64{7.2},
		},
	}

	record, ok := resolveSnapshot(entry, 9.0, "2025-01-15")
	if !ok {
		t.Fatal("resolveSnapshot() ok = false, want true")
	}
	if record.ApparentTemperature != 7.2 {
		t.Errorf("ApparentTemperature = %v, want 7.2", record.ApparentTemperature)
	}
}

// TestResolveSnapshot_Drops verifies empty series and missing temperature at
// the resolved index drop the record.
func TestResolveSnapshot_Drops(t *testing.T) {
	empty := provinceHourly{PlateCode: "01", Name: "Adana"}
	if _, ok := resolveSnapshot(empty, 12.0, "2025-01-15"); ok {
		t.Error("resolveSnapshot(empty series) ok = true, want false")
	}

	noTemp := provinceHourly{
		PlateCode: "01",
		Name:      "Adana",
		Hourly: models.HourlySeries{
			Time: []string{"2025-01-15T12:00"},
		},
	}
	if _, ok := resolveSnapshot(noTemp, 12.0, "2025-01-15"); ok {
		t.Error("resolveSnapshot(no temperature) ok = true, want false")
	}
}
