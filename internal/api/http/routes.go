package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

const defaultHistoryWindow = 24 * time.Hour

// LocationService resolves and looks up stored locations.
type LocationService interface {
	SearchLocations(ctx context.Context, query string) ([]weather.Location, error)
	LocationByID(ctx context.Context, id int64) (*weather.Location, error)
	NearestLocation(ctx context.Context, lat, lon float64) (*weather.Location, error)
}

// WeatherService serves cached or fresh weather for a location.
type WeatherService interface {
	GetCurrentWeather(ctx context.Context, locationID int64) (weather.CurrentResult, error)
	History(ctx context.Context, locationID int64, from, to time.Time) ([]weather.CurrentWeather, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, locations LocationService, weathers WeatherService) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			q = c.Query("cityName")
		}

		found, err := locations.SearchLocations(c.UserContext(), q)
		if err != nil {
			return err
		}

		out := make([]locationResponse, 0, len(found))
		for _, loc := range found {
			out = append(out, toLocationResponse(loc))
		}
		return ok(c, fmt.Sprintf("Found %d location(s)", len(out)), out)
	})

	v1.Get("/locations/:id", func(c *fiber.Ctx) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		loc, err := locations.LocationByID(c.UserContext(), id)
		if err != nil {
			return err
		}
		return ok(c, "Location retrieved successfully", toLocationResponse(*loc))
	})

	v1.Get("/weather/current/:locationId", func(c *fiber.Ctx) error {
		id, err := pathID(c, "locationId")
		if err != nil {
			return err
		}
		loc, err := locations.LocationByID(c.UserContext(), id)
		if err != nil {
			return err
		}
		return currentWeather(c, weathers, loc)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		var q coordinateQuery
		if err := q.bind(c); err != nil {
			return err
		}
		loc, err := locations.NearestLocation(c.UserContext(), *q.Latitude, *q.Longitude)
		if err != nil {
			return err
		}
		return currentWeather(c, weathers, loc)
	})

	v1.Get("/weather/history/:locationId", func(c *fiber.Ctx) error {
		id, err := pathID(c, "locationId")
		if err != nil {
			return err
		}
		var req historyQuery
		if err := req.bind(c, time.Now().UTC()); err != nil {
			return err
		}

		records, err := weathers.History(c.UserContext(), id, req.From, req.To)
		if err != nil {
			return err
		}
		return ok(c, fmt.Sprintf("Found %d weather record(s)", len(records)), fiber.Map{
			"location_id": id,
			"from":        req.From,
			"to":          req.To,
			"records":     records,
		})
	})
}

func currentWeather(c *fiber.Ctx, weathers WeatherService, loc *weather.Location) error {
	res, err := weathers.GetCurrentWeather(c.UserContext(), loc.ID)
	if err != nil {
		return err
	}
	return ok(c, res.Message, fiber.Map{
		"weather":           res.Weather,
		"location":          toLocationResponse(*loc),
		"served_from_cache": res.ServedFromCache,
	})
}

type locationResponse struct {
	ID          int64   `json:"id"`
	Label       string  `json:"label"`
	City        string  `json:"city"`
	Province    string  `json:"province"`
	Country     string  `json:"country"`
	CountryCode *string `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func toLocationResponse(l weather.Location) locationResponse {
	return locationResponse{
		ID:          l.ID,
		Label:       l.Label(),
		City:        l.City,
		Province:    l.Province,
		Country:     l.Country,
		CountryCode: l.CountryCode,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
	}
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", weather.ErrInvalidArgument, name)
	}
	return id, nil
}

// coordinateQuery holds query parameters for a coordinate lookup.
type coordinateQuery struct {
	Latitude  *float64 `query:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `query:"longitude" validate:"required,gte=-180,lte=180"`
}

func (q *coordinateQuery) bind(c *fiber.Ctx) error {
	if err := c.QueryParser(q); err != nil {
		return fmt.Errorf("%w: latitude and longitude must be numbers", weather.ErrInvalidArgument)
	}
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrInvalidArgument, err)
	}
	return nil
}

// historyQuery holds query parameters for the history endpoint.  Missing
// bounds default to the last 24 hours.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx, now time.Time) error {
	h.To = now
	if s := c.Query("to"); s != "" {
		to, err := parseTime(s)
		if err != nil {
			return err
		}
		h.To = to
	}

	h.From = h.To.Add(-defaultHistoryWindow)
	if s := c.Query("from"); s != "" {
		from, err := parseTime(s)
		if err != nil {
			return err
		}
		h.From = from
	}

	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("%w: to must not be before from", weather.ErrInvalidArgument)
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid time format; use RFC3339 or unix seconds", weather.ErrInvalidArgument)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.Is(err, weather.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, weather.ErrLocationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, weather.ErrUpstreamUnavailable):
		return fiber.StatusBadGateway
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}
