package models

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Province is one entry of the static province directory. The weather engine
// never mutates it.
type Province struct {
	Name        string      `json:"name"`
	PlateCode   string      `json:"plate_code"`
	Region      string      `json:"region,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// ProvinceList is the payload of the province listing endpoint.
type ProvinceList struct {
	Provinces []Province `json:"provinces"`
	Total     int        `json:"total"`
}

// HourlySeries mirrors the hourly block of an Open-Meteo response: a list of
// sampled timestamps with parallel per-metric value lists. Every metric list
// that is present has the same length as Time; one index across the lists
// describes one sampled hour. The series may hold a single point when built
// from an instantaneous fallback reading.
type HourlySeries struct {
	Time                []string  `json:"time"`
	Temperature2m       []float64 `json:"temperature_2m"`
	ApparentTemperature []float64 `json:"apparent_temperature,omitempty"`
	Precipitation       []float64 `json:"precipitation"`
	WindSpeed10m        []float64 `json:"wind_speed_10m"`
	WindDirection10m    []float64 `json:"wind_direction_10m,omitempty"`
	RelativeHumidity2m  []int     `json:"relative_humidity_2m"`
	PressureMsl         []float64 `json:"pressure_msl,omitempty"`
	Visibility          []float64 `json:"visibility,omitempty"`
	CloudCover          []int     `json:"cloud_cover,omitempty"`
	WeatherCode         []int     `json:"weather_code,omitempty"`
}

// DailySeries is the per-calendar-day analogue of HourlySeries.
type DailySeries struct {
	Time             []string  `json:"time"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
	PrecipitationSum []float64 `json:"precipitation_sum"`
	WeatherCode      []int     `json:"weather_code,omitempty"`
}

// WeatherData holds exactly one of the two series granularities.
type WeatherData struct {
	Hourly *HourlySeries `json:"hourly,omitempty"`
	Daily  *DailySeries  `json:"daily,omitempty"`
}

// RangeResponse is the single-province date-range payload.
type RangeResponse struct {
	Province    string      `json:"province"`
	PlateCode   string      `json:"plate_code"`
	Coordinates Coordinates `json:"coordinates"`
	Timezone    string      `json:"timezone"`
	Data        WeatherData `json:"data"`
	Timestamp   string      `json:"timestamp"`
}

// CurrentWeather is one province's instantaneous reading.
type CurrentWeather struct {
	PlateCode           string  `json:"plate_code"`
	Name                string  `json:"name"`
	Temperature         float64 `json:"temperature"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	Precipitation       float64 `json:"precipitation"`
	Humidity            int     `json:"humidity"`
	WindSpeed           float64 `json:"wind_speed"`
	WindDirection10m    float64 `json:"wind_direction_10m"`
	PressureMsl         float64 `json:"pressure_msl"`
	Visibility          float64 `json:"visibility"`
	CloudCover          int     `json:"cloud_cover"`
	WeatherCode         int     `json:"weather_code"`
	Icon                string  `json:"icon"`
}

// CurrentWeatherList is the all-provinces instantaneous payload.
type CurrentWeatherList struct {
	Timestamp string           `json:"timestamp"`
	Provinces []CurrentWeather `json:"provinces"`
}

// SnapshotRecord is one province's weather resolved to the sampled hour
// nearest a requested time of day. ResolvedTime is the timestamp actually
// chosen and may differ from the requested time.
type SnapshotRecord struct {
	PlateCode           string  `json:"plate_code"`
	Name                string  `json:"name"`
	Temperature         float64 `json:"temperature"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	Precipitation       float64 `json:"precipitation"`
	Humidity            int     `json:"humidity"`
	WindSpeed           float64 `json:"wind_speed"`
	WindDirection10m    float64 `json:"wind_direction_10m"`
	PressureMsl         float64 `json:"pressure_msl"`
	Visibility          float64 `json:"visibility"`
	CloudCover          int     `json:"cloud_cover"`
	WeatherCode         int     `json:"weather_code"`
	Icon                string  `json:"icon"`
	ResolvedTime        string  `json:"resolved_time"`
}

// Coverage reports how many provinces produced a result out of the total
// requested.
type Coverage struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// SnapshotResponse is the cross-province single-instant payload.
type SnapshotResponse struct {
	RequestedDate string           `json:"requested_date"`
	RequestedTime string           `json:"requested_time"`
	Timestamp     string           `json:"timestamp"`
	Coverage      Coverage         `json:"coverage"`
	Provinces     []SnapshotRecord `json:"provinces"`
}
