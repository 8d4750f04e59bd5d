package store

import (
	"context"
	"fmt"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

func (s *Store) FindLocationByID(ctx context.Context, id int64) (*weather.Location, error) {
	var loc weather.Location
	if err := s.db.WithContext(ctx).First(&loc, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &loc, nil
}

// FindLocationsNear returns locations whose latitude and longitude each lie
// within tolerance degrees of the given point.
func (s *Store) FindLocationsNear(ctx context.Context, lat, lon, tolerance float64) ([]weather.Location, error) {
	var locs []weather.Location
	err := s.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", lat-tolerance, lat+tolerance).
		Where("longitude BETWEEN ? AND ?", lon-tolerance, lon+tolerance).
		Order("id").
		Find(&locs).Error
	if err != nil {
		return nil, err
	}
	return locs, nil
}

// SearchLocations matches the query as a case-insensitive substring of city
// or country, or any single query word as an exact city name.
func (s *Store) SearchLocations(ctx context.Context, query string, limit int) ([]weather.Location, error) {
	term := common.NormalizeTerm(query)
	if term == "" {
		return nil, nil
	}
	pattern := "%" + term + "%"

	tx := s.db.WithContext(ctx).Model(&weather.Location{})
	if words := common.QueryWords(query); len(words) > 0 {
		tx = tx.Where("LOWER(city) LIKE ? OR LOWER(country) LIKE ? OR LOWER(city) IN ?", pattern, pattern, words)
	} else {
		tx = tx.Where("LOWER(city) LIKE ? OR LOWER(country) LIKE ?", pattern, pattern)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var locs []weather.Location
	if err := tx.Order("city, country, id").Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}

func (s *Store) InsertLocation(ctx context.Context, loc *weather.Location) error {
	loc.Latitude = common.RoundCoordinate(loc.Latitude)
	loc.Longitude = common.RoundCoordinate(loc.Longitude)
	if err := s.db.WithContext(ctx).Create(loc).Error; err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (s *Store) CountLocations(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&weather.Location{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
