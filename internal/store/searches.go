package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/i474232898/weather-lookup/internal/weather"
)

func (s *Store) FindSearch(ctx context.Context, term string) (*weather.GeocodeSearch, error) {
	var gs weather.GeocodeSearch
	if err := s.db.WithContext(ctx).Where("search_term = ?", term).First(&gs).Error; err != nil {
		return nil, notFound(err)
	}
	return &gs, nil
}

// UpsertSearch inserts the term or refreshes its timestamp and result count.
func (s *Store) UpsertSearch(ctx context.Context, term string, resultCount int, at time.Time) error {
	gs := weather.GeocodeSearch{
		SearchTerm:  term,
		SearchedAt:  dbTime(at),
		ResultCount: resultCount,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "search_term"}},
		DoUpdates: clause.AssignmentColumns([]string{"searched_at", "result_count", "updated_at"}),
	}).Create(&gs).Error
}
