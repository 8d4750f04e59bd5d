package store

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// FindValidWeather returns the newest record for the location that has not
// expired at now.
func (s *Store) FindValidWeather(ctx context.Context, locationID int64, now time.Time) (*weather.WeatherData, error) {
	var w weather.WeatherData
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND expires_at > ?", locationID, dbTime(now)).
		Order("fetched_at DESC, id DESC").
		First(&w).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// InsertWeather appends a record.  A zero FetchedAt becomes now and a zero
// ExpiresAt becomes FetchedAt plus weather.DefaultTTL.
func (s *Store) InsertWeather(ctx context.Context, w *weather.WeatherData) error {
	if w.FetchedAt.IsZero() {
		w.FetchedAt = time.Now()
	}
	if w.ExpiresAt.IsZero() {
		w.ExpiresAt = w.FetchedAt.Add(weather.DefaultTTL)
	}
	w.FetchedAt = dbTime(w.FetchedAt)
	w.ExpiresAt = dbTime(w.ExpiresAt)

	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("insert weather: %w", err)
	}
	return nil
}

// WeatherHistory returns records fetched in [from, to], oldest first.
func (s *Store) WeatherHistory(ctx context.Context, locationID int64, from, to time.Time) ([]weather.WeatherData, error) {
	var rows []weather.WeatherData
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND fetched_at >= ? AND fetched_at <= ?", locationID, dbTime(from), dbTime(to)).
		Order("fetched_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PruneWeather deletes records fetched before the cutoff.
func (s *Store) PruneWeather(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("fetched_at < ?", dbTime(before)).
		Delete(&weather.WeatherData{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
