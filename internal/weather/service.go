package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-lookup/internal/metrics"
)

const (
	msgFromCache = "Weather data retrieved from cache"
	msgFresh     = "Weather data retrieved successfully"
)

// CurrentResult is the outcome of a GetCurrentWeather call.
type CurrentResult struct {
	Weather         CurrentWeather `json:"weather"`
	ServedFromCache bool           `json:"served_from_cache"`
	Message         string         `json:"message"`
}

// Service decides whether cached weather for a location can be served or a
// fresh reading must be fetched, parsed and appended to the store.
type Service struct {
	store  Store
	client Client
	ttl    time.Duration
	now    func() time.Time
	log    *zap.SugaredLogger
}

// Option customizes a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL.  Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a new Service.
func NewService(store Store, client Client, opts ...Option) *Service {
	s := &Service{
		store:  store,
		client: client,
		ttl:    DefaultTTL,
		now:    time.Now,
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCurrentWeather returns the newest unexpired record for locationID, or
// fetches, persists and returns a fresh one.  No upstream call is made when
// the location does not exist.  Upstream failures are not retried.
func (s *Service) GetCurrentWeather(ctx context.Context, locationID int64) (CurrentResult, error) {
	now := s.now().UTC()

	cached, err := s.store.FindValidWeather(ctx, locationID, now)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return CurrentResult{}, fmt.Errorf("find cached weather for location %d: %w", locationID, err)
	}
	if err == nil && cached.Valid(now) {
		metrics.WeatherCacheLookups.WithLabelValues("hit").Inc()
		s.log.Debugw("weather served from cache", "location_id", locationID, "expires_at", cached.ExpiresAt)
		return CurrentResult{
			Weather:         Normalize(*cached),
			ServedFromCache: true,
			Message:         msgFromCache,
		}, nil
	}
	metrics.WeatherCacheLookups.WithLabelValues("miss").Inc()

	loc, err := s.store.FindLocationByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Warnw("location not found", "location_id", locationID)
			return CurrentResult{}, fmt.Errorf("%w: id %d", ErrLocationNotFound, locationID)
		}
		return CurrentResult{}, fmt.Errorf("find location %d: %w", locationID, err)
	}

	s.log.Infow("fetching fresh weather",
		"location_id", locationID,
		"latitude", loc.Latitude,
		"longitude", loc.Longitude,
	)

	raw, err := s.client.FetchCurrent(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		s.log.Errorw("weather fetch failed", "location_id", locationID, "err", err)
		return CurrentResult{}, fmt.Errorf("%w: current conditions for (%.5f, %.5f): %w",
			ErrUpstreamUnavailable, loc.Latitude, loc.Longitude, err)
	}

	record, perr := ParseCurrentConditions(raw, locationID)
	if perr != nil {
		s.log.Warnw("weather payload degraded; keeping raw response", "location_id", locationID, "err", perr)
	}

	fetchedAt := s.now().UTC()
	record.FetchedAt = fetchedAt
	record.ExpiresAt = fetchedAt.Add(s.ttl)

	if err := s.store.InsertWeather(ctx, &record); err != nil {
		return CurrentResult{}, fmt.Errorf("save weather for location %d: %w", locationID, err)
	}

	s.log.Infow("saved weather data", "location_id", locationID, "expires_at", record.ExpiresAt)

	return CurrentResult{
		Weather:         Normalize(record),
		ServedFromCache: false,
		Message:         msgFresh,
	}, nil
}

// History returns retained records for a location between from and to
// (inclusive), oldest first.
func (s *Service) History(ctx context.Context, locationID int64, from, to time.Time) ([]CurrentWeather, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to must not be before from", ErrInvalidArgument)
	}
	if _, err := s.store.FindLocationByID(ctx, locationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrLocationNotFound, locationID)
		}
		return nil, fmt.Errorf("find location %d: %w", locationID, err)
	}

	rows, err := s.store.WeatherHistory(ctx, locationID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("weather history for location %d: %w", locationID, err)
	}

	history := make([]CurrentWeather, 0, len(rows))
	for _, row := range rows {
		history = append(history, Normalize(row))
	}
	return history, nil
}

// Warm runs GetCurrentWeather for each id.  Failures are logged and the
// remaining ids are still processed; the number of failures is returned.
func (s *Service) Warm(ctx context.Context, locationIDs []int64) int {
	failed := 0
	for i, id := range locationIDs {
		if ctx.Err() != nil {
			return failed + len(locationIDs) - i
		}
		if _, err := s.GetCurrentWeather(ctx, id); err != nil {
			failed++
			s.log.Warnw("weather warm-up failed", "location_id", id, "err", err)
		}
	}
	return failed
}

// PruneHistory deletes records fetched before now-maxAge.  A non-positive
// maxAge keeps everything.
func (s *Service) PruneHistory(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-maxAge)
	n, err := s.store.PruneWeather(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune weather before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		metrics.WeatherRowsPruned.Add(float64(n))
		s.log.Infow("pruned weather history", "rows", n, "cutoff", cutoff)
	}
	return n, nil
}
