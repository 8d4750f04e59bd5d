package geocoding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/metrics"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	// DefaultTolerance is the dedup window in degrees, roughly 1 km.
	DefaultTolerance = 0.01
	// DefaultSearchLimit caps the rows returned by SearchLocations.
	DefaultSearchLimit = 10
)

// Client sends a free-text query to the geocoder and returns the raw body.
type Client interface {
	Search(ctx context.Context, query string) ([]byte, error)
}

// Store is the persistence the geocoding controller needs.
type Store interface {
	weather.LocationStore
	weather.SearchStore
}

// Service resolves place queries to stored locations.
type Service struct {
	store     Store
	client    Client
	tolerance float64
	limit     int
	now       func() time.Time
	log       *zap.SugaredLogger
}

// Option configures a Service.
type Option func(*Service)

// WithTolerance sets the dedup window in degrees.  Non-positive values are
// ignored.
func WithTolerance(deg float64) Option {
	return func(s *Service) {
		if deg > 0 {
			s.tolerance = deg
		}
	}
}

// WithSearchLimit caps the locations returned per search.
func WithSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock overrides the time source used for search timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// NewService builds a geocoding controller with DefaultTolerance and
// DefaultSearchLimit unless overridden.
func NewService(store Store, client Client, opts ...Option) *Service {
	s := &Service{
		store:     store,
		client:    client,
		tolerance: DefaultTolerance,
		limit:     DefaultSearchLimit,
		now:       time.Now,
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchLocations returns stored locations matching query.  The geocoder is
// consulted only the first time a normalized term is seen; every consulted
// term is then recorded, even when it produced no results.  Locations are
// returned from the store in either case.
func (s *Service) SearchLocations(ctx context.Context, query string) ([]weather.Location, error) {
	query = strings.TrimSpace(query)
	term := common.NormalizeTerm(query)
	if term == "" {
		return nil, fmt.Errorf("%w: search query is empty", weather.ErrInvalidArgument)
	}

	_, err := s.store.FindSearch(ctx, term)
	switch {
	case err == nil:
		metrics.GeocodeSearches.WithLabelValues("cached").Inc()
		s.log.Debugw("search term already geocoded", "term", term)
	case errors.Is(err, weather.ErrNotFound):
		metrics.GeocodeSearches.WithLabelValues("upstream").Inc()
		if err := s.geocode(ctx, query, term); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find search %q: %w", term, err)
	}

	locations, err := s.store.SearchLocations(ctx, query, s.limit)
	if err != nil {
		return nil, fmt.Errorf("search locations %q: %w", query, err)
	}
	return locations, nil
}

func (s *Service) geocode(ctx context.Context, query, term string) error {
	raw, err := s.client.Search(ctx, query)
	if err != nil {
		s.log.Errorw("geocoding request failed", "query", query, "err", err)
		return fmt.Errorf("%w: geocode %q: %w", weather.ErrUpstreamUnavailable, query, err)
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		s.log.Errorw("geocoding response rejected", "query", query, "err", err)
		return err
	}

	saved := 0
	for _, result := range resp.Results {
		candidate, err := Extract(result, query)
		if err != nil {
			metrics.GeocodeResultsSkipped.WithLabelValues("missing_country").Inc()
			s.log.Warnw("skipping geocoding result", "query", query, "address", result.FormattedAddress, "err", err)
			continue
		}
		loc, created, err := s.persist(ctx, candidate)
		if err != nil {
			return err
		}
		if !created {
			metrics.GeocodeResultsSkipped.WithLabelValues("duplicate").Inc()
			s.log.Debugw("location already stored", "location_id", loc.ID, "label", loc.Label())
		}
		saved++
	}

	if err := s.store.UpsertSearch(ctx, term, saved, s.now().UTC()); err != nil {
		return fmt.Errorf("record search %q: %w", term, err)
	}
	s.log.Infow("geocoded search term", "term", term, "results", len(resp.Results), "usable", saved)
	return nil
}

// persist stores candidate unless a location already exists inside the
// tolerance window, in which case the nearest existing row is returned.
func (s *Service) persist(ctx context.Context, c Candidate) (*weather.Location, bool, error) {
	near, err := s.store.FindLocationsNear(ctx, c.Latitude, c.Longitude, s.tolerance)
	if err != nil {
		return nil, false, fmt.Errorf("find locations near (%.5f, %.5f): %w", c.Latitude, c.Longitude, err)
	}
	if existing := closest(near, c.Latitude, c.Longitude); existing != nil {
		return existing, false, nil
	}

	loc := c.Location()
	if err := s.store.InsertLocation(ctx, &loc); err != nil {
		return nil, false, fmt.Errorf("insert location %q: %w", loc.Label(), err)
	}
	s.log.Infow("stored new location", "location_id", loc.ID, "label", loc.Label(), "address", c.FormattedAddress)
	return &loc, true, nil
}

// LocationByID returns one stored location.
func (s *Service) LocationByID(ctx context.Context, id int64) (*weather.Location, error) {
	loc, err := s.store.FindLocationByID(ctx, id)
	if err != nil {
		if errors.Is(err, weather.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", weather.ErrLocationNotFound, id)
		}
		return nil, fmt.Errorf("find location %d: %w", id, err)
	}
	return loc, nil
}

// NearestLocation returns the stored location closest to (lat, lon) within the
// tolerance window.
func (s *Service) NearestLocation(ctx context.Context, lat, lon float64) (*weather.Location, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates (%v, %v) out of range", weather.ErrInvalidArgument, lat, lon)
	}
	near, err := s.store.FindLocationsNear(ctx, lat, lon, s.tolerance)
	if err != nil {
		return nil, fmt.Errorf("find locations near (%.5f, %.5f): %w", lat, lon, err)
	}
	loc := closest(near, lat, lon)
	if loc == nil {
		return nil, fmt.Errorf("%w: nothing stored near (%.5f, %.5f)", weather.ErrLocationNotFound, lat, lon)
	}
	return loc, nil
}

func closest(locs []weather.Location, lat, lon float64) *weather.Location {
	var best *weather.Location
	bestDist := math.Inf(1)
	for i := range locs {
		dLat := locs[i].Latitude - lat
		dLon := locs[i].Longitude - lon
		if d := dLat*dLat + dLon*dLon; d < bestDist {
			best, bestDist = &locs[i], d
		}
	}
	return best
}
