package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const seedBatchSize = 1000

// SeedLocationsFile loads a world-cities CSV into an empty locations table.
// A missing file is not an error.
func (s *Store) SeedLocationsFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Infow("seed file not found; skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return s.SeedLocations(ctx, f)
}

// SeedLocations reads rows with city, country, lat, lng and optional iso2 and
// admin_name columns, inserting them in batches.  Nothing is read when the
// table already has rows.  Rows without a city, country or parseable
// coordinates are skipped.
func (s *Store) SeedLocations(ctx context.Context, r io.Reader) (int, error) {
	n, err := s.CountLocations(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read seed header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"city", "country", "lat", "lng"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("seed file is missing column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	inserted, skipped := 0, 0
	batch := make([]weather.Location, 0, seedBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.db.WithContext(ctx).CreateInBatches(batch, seedBatchSize).Error; err != nil {
			return fmt.Errorf("insert seed batch: %w", err)
		}
		inserted += len(batch)
		s.log.Debugw("seeded locations", "total", inserted)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("read seed row: %w", err)
		}

		loc, ok := seedRow(rec, field)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, loc)
		if len(batch) == seedBatchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}
	if err := flush(); err != nil {
		return inserted, err
	}

	s.log.Infow("location seed complete", "inserted", inserted, "skipped", skipped)
	return inserted, nil
}

func seedRow(rec []string, field func([]string, string) string) (weather.Location, bool) {
	city, country := field(rec, "city"), field(rec, "country")
	if city == "" || country == "" {
		return weather.Location{}, false
	}
	lat, err := strconv.ParseFloat(field(rec, "lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Location{}, false
	}
	lng, err := strconv.ParseFloat(field(rec, "lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		return weather.Location{}, false
	}

	loc := weather.Location{
		City:      city,
		Province:  field(rec, "admin_name"),
		Country:   country,
		Latitude:  common.RoundCoordinate(lat),
		Longitude: common.RoundCoordinate(lng),
	}
	if iso2 := field(rec, "iso2"); iso2 != "" {
		loc.CountryCode = &iso2
	}
	return loc, true
}
