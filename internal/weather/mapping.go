package weather

import (
	"time"

	"github.com/i474232898/weather-lookup/internal/units"
)

// CurrentWeather is the normalized projection of a WeatherData row returned
// to API callers.  Temperatures and wind speeds are given in both unit
// systems regardless of what the provider reported.
type CurrentWeather struct {
	LocationID    int64    `json:"location_id"`
	AsOf          string   `json:"as_of"`
	ExpiresAt     string   `json:"expires_at"`
	Summary       string   `json:"summary"`
	TempC         *float64 `json:"temp_c"`
	TempF         *float64 `json:"temp_f"`
	FeelsLikeC    *float64 `json:"feels_like_c"`
	FeelsLikeF    *float64 `json:"feels_like_f"`
	ConditionCode *string  `json:"condition_code"`
	ConditionText *string  `json:"condition_text"`
	IconURI       *string  `json:"icon_uri"`
	WindKph       *float64 `json:"wind_kph"`
	WindMph       *float64 `json:"wind_mph"`
	WindDir       *string  `json:"wind_dir"`
	Humidity      *float64 `json:"humidity"`
	UVIndex       *float64 `json:"uv_index"`
	IsDay         *bool    `json:"is_day"`
}

// Normalize maps a stored record to its API shape.
func Normalize(w WeatherData) CurrentWeather {
	tempC, tempF := units.NormalizeTemperature(w.Temperature, w.TemperatureUnit)
	feelsC, feelsF := units.NormalizeTemperature(w.FeelsLikeTemperature, w.TemperatureUnit)
	windKph, windMph := units.NormalizeWindSpeed(w.WindSpeed, w.WindSpeedUnit)

	var windDir *string
	if w.WindDirection != nil {
		d := units.DegreesToCardinal(*w.WindDirection)
		windDir = &d
	}

	return CurrentWeather{
		LocationID:    w.LocationID,
		AsOf:          w.FetchedAt.UTC().Format(time.RFC3339),
		ExpiresAt:     w.ExpiresAt.UTC().Format(time.RFC3339),
		Summary:       w.Summary,
		TempC:         tempC,
		TempF:         tempF,
		FeelsLikeC:    feelsC,
		FeelsLikeF:    feelsF,
		ConditionCode: w.ConditionType,
		ConditionText: w.Condition,
		IconURI:       w.IconURI,
		WindKph:       windKph,
		WindMph:       windMph,
		WindDir:       windDir,
		Humidity:      w.Humidity,
		UVIndex:       w.UVIndex,
		IsDay:         w.IsDaytime,
	}
}
