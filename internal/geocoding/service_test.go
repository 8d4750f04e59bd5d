package geocoding

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/i474232898/weather-lookup/internal/weather"
)

type memStore struct {
	mu        sync.Mutex
	locations []weather.Location
	searches  map[string]weather.GeocodeSearch
	upserts   int
}

func newMemStore(locs ...weather.Location) *memStore {
	return &memStore{
		locations: append([]weather.Location(nil), locs...),
		searches:  map[string]weather.GeocodeSearch{},
	}
}

func (s *memStore) FindLocationByID(_ context.Context, id int64) (*weather.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.locations {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, weather.ErrNotFound
}

func (s *memStore) FindLocationsNear(_ context.Context, lat, lon, tol float64) ([]weather.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []weather.Location
	for _, l := range s.locations {
		if math.Abs(l.Latitude-lat) <= tol && math.Abs(l.Longitude-lon) <= tol {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) SearchLocations(_ context.Context, query string, limit int) ([]weather.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	var out []weather.Location
	for _, l := range s.locations {
		if strings.Contains(strings.ToLower(l.City), q) || strings.Contains(strings.ToLower(l.Country), q) {
			out = append(out, l)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) InsertLocation(_ context.Context, loc *weather.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc.ID = int64(len(s.locations) + 1)
	s.locations = append(s.locations, *loc)
	return nil
}

func (s *memStore) FindSearch(_ context.Context, term string) (*weather.GeocodeSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.searches[term]
	if !ok {
		return nil, weather.ErrNotFound
	}
	return &gs, nil
}

func (s *memStore) UpsertSearch(_ context.Context, term string, count int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	gs := s.searches[term]
	gs.SearchTerm, gs.ResultCount, gs.SearchedAt = term, count, at
	s.searches[term] = gs
	return nil
}

type stubGeocoder struct {
	calls []string
	body  string
	err   error
}

func (g *stubGeocoder) Search(_ context.Context, query string) ([]byte, error) {
	g.calls = append(g.calls, query)
	if g.err != nil {
		return nil, g.err
	}
	return []byte(g.body), nil
}

var fixedNow = time.Date(2025, 8, 15, 3, 0, 0, 0, time.UTC)

func newTestService(store *memStore, client *stubGeocoder) *Service {
	return NewService(store, client, WithClock(func() time.Time { return fixedNow }))
}

func TestSearchLocationsGeocodesNewTerm(t *testing.T) {
	store := newMemStore()
	client := &stubGeocoder{body: sydneyResponse}
	svc := newTestService(store, client)

	locs, err := svc.SearchLocations(context.Background(), "  Sydney ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.calls) != 1 || client.calls[0] != "Sydney" {
		t.Fatalf("expected one upstream call with trimmed query, got %v", client.calls)
	}
	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locs))
	}
	got := locs[0]
	if got.ID == 0 || got.City != "Sydney" || got.Province != "NSW" || got.Country != "Australia" {
		t.Fatalf("unexpected location %+v", got)
	}
	if got.CountryCode == nil || *got.CountryCode != "AU" {
		t.Fatalf("country code: %v", got.CountryCode)
	}

	gs, ok := store.searches["sydney"]
	if !ok || gs.ResultCount != 1 || !gs.SearchedAt.Equal(fixedNow) {
		t.Fatalf("expected search record for sydney, got %+v (found=%v)", gs, ok)
	}
}

func TestSearchLocationsSkipsUpstreamForKnownTerm(t *testing.T) {
	store := newMemStore()
	client := &stubGeocoder{body: sydneyResponse}
	svc := newTestService(store, client)
	ctx := context.Background()

	if _, err := svc.SearchLocations(ctx, "Sydney"); err != nil {
		t.Fatalf("first search: %v", err)
	}
	locs, err := svc.SearchLocations(ctx, "SYDNEY")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected the normalized term to short-circuit, got %d calls", len(client.calls))
	}
	if len(locs) != 1 {
		t.Fatalf("expected stored location on repeat search, got %d", len(locs))
	}
}

func TestSearchLocationsZeroResultsStillRecorded(t *testing.T) {
	store := newMemStore()
	client := &stubGeocoder{body: `{"results":[],"status":"ZERO_RESULTS"}`}
	svc := newTestService(store, client)
	ctx := context.Background()

	locs, err := svc.SearchLocations(ctx, "Qwzxv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 0 {
		t.Fatalf("expected no locations, got %d", len(locs))
	}
	if gs, ok := store.searches["qwzxv"]; !ok || gs.ResultCount != 0 {
		t.Fatalf("expected zero-count search record, got %+v", gs)
	}

	if _, err := svc.SearchLocations(ctx, "qwzxv"); err != nil {
		t.Fatalf("repeat search: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected no second upstream call, got %d", len(client.calls))
	}
}

func TestSearchLocationsDedupsNearbyResult(t *testing.T) {
	existing := weather.Location{ID: 1, City: "Sydney", Province: "NSW", Country: "Australia", Latitude: -33.865, Longitude: 151.2094}
	store := newMemStore(existing)
	client := &stubGeocoder{body: sydneyResponse}
	svc := newTestService(store, client)

	locs, err := svc.SearchLocations(context.Background(), "Sydney NSW")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.locations) != 1 {
		t.Fatalf("expected no new row inside the tolerance window, got %d rows", len(store.locations))
	}
	if store.searches["sydney nsw"].ResultCount != 1 {
		t.Fatalf("expected the duplicate to count as a result")
	}
	// "Sydney NSW" does not substring-match city or country
	if len(locs) != 0 {
		t.Fatalf("expected no substring matches, got %d", len(locs))
	}
}

func TestSearchLocationsOutsideToleranceInserts(t *testing.T) {
	existing := weather.Location{ID: 1, City: "Sydney", Province: "NSW", Country: "Australia", Latitude: -33.89, Longitude: 151.2094}
	store := newMemStore(existing)
	client := &stubGeocoder{body: sydneyResponse}
	svc := newTestService(store, client)

	if _, err := svc.SearchLocations(context.Background(), "Sydney"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.locations) != 2 {
		t.Fatalf("expected a new row beyond 0.01 degrees, got %d rows", len(store.locations))
	}
}

func TestSearchLocationsSkipsMissingCountry(t *testing.T) {
	body := `{"status":"OK","results":[
	  {"address_components":[{"long_name":"Nowhere","short_name":"Nowhere","types":["locality"]}],
	   "formatted_address":"Nowhere","geometry":{"location":{"lat":1,"lng":1}}},
	  {"address_components":[
	     {"long_name":"Perth","short_name":"Perth","types":["locality"]},
	     {"long_name":"Western Australia","short_name":"WA","types":["administrative_area_level_1"]},
	     {"long_name":"Australia","short_name":"AU","types":["country"]}],
	   "formatted_address":"Perth WA, Australia","geometry":{"location":{"lat":-31.9523,"lng":115.8613}}}
	]}`
	store := newMemStore()
	client := &stubGeocoder{body: body}
	svc := newTestService(store, client)

	locs, err := svc.SearchLocations(context.Background(), "Perth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.locations) != 1 || store.locations[0].City != "Perth" {
		t.Fatalf("expected only the Perth row stored, got %+v", store.locations)
	}
	if len(locs) != 1 || store.searches["perth"].ResultCount != 1 {
		t.Fatalf("expected 1 result recorded, got %d / %d", len(locs), store.searches["perth"].ResultCount)
	}
}

func TestSearchLocationsInvalidQuery(t *testing.T) {
	store := newMemStore()
	client := &stubGeocoder{body: sydneyResponse}
	svc := newTestService(store, client)

	for _, q := range []string{"", "   ", "\t\n"} {
		if _, err := svc.SearchLocations(context.Background(), q); !errors.Is(err, weather.ErrInvalidArgument) {
			t.Fatalf("%q: expected ErrInvalidArgument, got %v", q, err)
		}
	}
	if len(client.calls) != 0 || store.upserts != 0 {
		t.Fatalf("invalid query must not reach upstream or the store")
	}
}

func TestSearchLocationsUpstreamFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("dial tcp: i/o timeout")
	svc := newTestService(store, &stubGeocoder{err: boom})

	_, err := svc.SearchLocations(context.Background(), "Sydney")
	if !errors.Is(err, weather.ErrUpstreamUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
	if store.upserts != 0 {
		t.Fatalf("failed lookups must not be recorded")
	}
}

func TestSearchLocationsDeniedStatus(t *testing.T) {
	store := newMemStore()
	client := &stubGeocoder{body: `{"results":[],"status":"REQUEST_DENIED"}`}
	svc := newTestService(store, client)

	if _, err := svc.SearchLocations(context.Background(), "Sydney"); !errors.Is(err, weather.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if store.upserts != 0 {
		t.Fatalf("denied lookups must not be recorded")
	}
}

func TestLocationByID(t *testing.T) {
	store := newMemStore(weather.Location{ID: 3, City: "Hobart", Country: "Australia"})
	svc := newTestService(store, &stubGeocoder{})

	loc, err := svc.LocationByID(context.Background(), 3)
	if err != nil || loc.City != "Hobart" {
		t.Fatalf("unexpected %+v, %v", loc, err)
	}
	if _, err := svc.LocationByID(context.Background(), 4); !errors.Is(err, weather.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestNearestLocation(t *testing.T) {
	store := newMemStore(
		weather.Location{ID: 1, City: "A", Country: "X", Latitude: 10.000, Longitude: 20.000},
		weather.Location{ID: 2, City: "B", Country: "X", Latitude: 10.008, Longitude: 20.008},
	)
	svc := newTestService(store, &stubGeocoder{})
	ctx := context.Background()

	loc, err := svc.NearestLocation(ctx, 10.007, 20.006)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.ID != 2 {
		t.Fatalf("expected closest location 2, got %d", loc.ID)
	}

	if _, err := svc.NearestLocation(ctx, 50, 50); !errors.Is(err, weather.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
	if _, err := svc.NearestLocation(ctx, 91, 0); !errors.Is(err, weather.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSearchLocationsLogsStoredAddress(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := newMemStore()
	svc := NewService(store, &stubGeocoder{body: sydneyResponse},
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(zap.New(core).Sugar()),
	)

	if _, err := svc.SearchLocations(context.Background(), "Sydney"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := logs.FilterMessage("stored new location").All()
	if len(stored) != 1 {
		t.Fatalf("expected one stored-location entry, got %d", len(stored))
	}
	if got := stored[0].ContextMap()["address"]; got != "Sydney NSW, Australia" {
		t.Fatalf("unexpected address field %v", got)
	}
}
