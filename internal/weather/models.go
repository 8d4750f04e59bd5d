package weather

import (
	"time"
)

// DefaultTTL is how long a fetched weather record is served from cache.
const DefaultTTL = 5 * time.Minute

// Location is a geocoded place.  City and Country are always set; Province
// may be empty when the provider reports no first-level area.
type Location struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	City        string    `gorm:"size:200;not null;index" json:"city"`
	Province    string    `gorm:"size:200;not null" json:"province"`
	Country     string    `gorm:"size:100;not null;index" json:"country"`
	CountryCode *string   `gorm:"size:2" json:"country_code,omitempty"`
	Latitude    float64   `gorm:"type:decimal(10,5);index:idx_locations_coordinates" json:"latitude"`
	Longitude   float64   `gorm:"type:decimal(10,5);index:idx_locations_coordinates" json:"longitude"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Location) TableName() string {
	return "locations"
}

// Label joins the non-empty name parts, e.g. "Perth, WA, Australia".
func (l Location) Label() string {
	label := ""
	for _, part := range []string{l.City, l.Province, l.Country} {
		if part == "" {
			continue
		}
		if label != "" {
			label += ", "
		}
		label += part
	}
	return label
}

// GeocodeSearch records that a normalized term has been sent upstream.
type GeocodeSearch struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SearchTerm  string    `gorm:"size:200;not null;uniqueIndex" json:"search_term"`
	SearchedAt  time.Time `gorm:"not null" json:"searched_at"`
	ResultCount int       `gorm:"not null" json:"result_count"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GeocodeSearch) TableName() string {
	return "geocode_searches"
}

// WeatherData is one fetched current-conditions record.  Rows are appended,
// so a location accumulates history; the cached row is the newest one whose
// ExpiresAt is still in the future.
type WeatherData struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	LocationID  int64     `gorm:"not null;index" json:"location_id"`
	APIResponse string    `gorm:"type:text;not null" json:"-"`
	FetchedAt   time.Time `gorm:"not null;index" json:"fetched_at"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	Summary     string    `gorm:"size:200" json:"summary"`

	Temperature          *float64 `json:"temperature,omitempty"`
	TemperatureUnit      *string  `gorm:"size:20" json:"temperature_unit,omitempty"`
	FeelsLikeTemperature *float64 `json:"feels_like_temperature,omitempty"`
	Humidity             *float64 `json:"humidity,omitempty"`
	Condition            *string  `gorm:"size:100" json:"condition,omitempty"`
	ConditionType        *string  `gorm:"size:50" json:"condition_type,omitempty"`
	IconURI              *string  `gorm:"size:500" json:"icon_uri,omitempty"`
	UVIndex              *float64 `json:"uv_index,omitempty"`
	WindSpeed            *float64 `json:"wind_speed,omitempty"`
	WindSpeedUnit        *string  `gorm:"size:20" json:"wind_speed_unit,omitempty"`
	WindDirection        *float64 `json:"wind_direction,omitempty"`
	IsDaytime            *bool    `json:"is_daytime,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WeatherData) TableName() string {
	return "weather_data"
}

// Valid reports whether the record can still be served at now.
func (w WeatherData) Valid(now time.Time) bool {
	return w.ExpiresAt.After(now)
}
