package weather

import (
	"context"
	"time"
)

// Client fetches current conditions for a coordinate pair and returns the
// provider's raw JSON body.
type Client interface {
	FetchCurrent(ctx context.Context, lat, lon float64) ([]byte, error)
}

// LocationStore is the location half of the record store.
type LocationStore interface {
	FindLocationByID(ctx context.Context, id int64) (*Location, error)
	FindLocationsNear(ctx context.Context, lat, lon, tolerance float64) ([]Location, error)
	SearchLocations(ctx context.Context, query string, limit int) ([]Location, error)
	InsertLocation(ctx context.Context, loc *Location) error
}

// SearchStore tracks which normalized terms were already geocoded.
type SearchStore interface {
	FindSearch(ctx context.Context, term string) (*GeocodeSearch, error)
	UpsertSearch(ctx context.Context, term string, resultCount int, at time.Time) error
}

// Store is the weather half of the record store.  FindValidWeather and
// FindLocationByID return ErrNotFound on a miss.
type Store interface {
	FindLocationByID(ctx context.Context, id int64) (*Location, error)
	FindValidWeather(ctx context.Context, locationID int64, now time.Time) (*WeatherData, error)
	InsertWeather(ctx context.Context, w *WeatherData) error
	WeatherHistory(ctx context.Context, locationID int64, from, to time.Time) ([]WeatherData, error)
	PruneWeather(ctx context.Context, before time.Time) (int64, error)
}
