// Package geocoding turns free-text place queries into stored locations,
// consulting the upstream geocoder at most once per normalized term.
package geocoding

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"

	typeLocality = "locality"
	typeAdmin1   = "administrative_area_level_1"
	typeCountry  = "country"
)

// Response is the geocoder reply.  Only the fields used for extraction are
// decoded.
type Response struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Results      []Result `json:"results"`
}

type Result struct {
	AddressComponents []AddressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          Geometry           `json:"geometry"`
}

type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type Geometry struct {
	Location LatLng `json:"location"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate is a location extracted from one geocoder result, ready to be
// deduplicated and stored.
type Candidate struct {
	City             string
	Province         string
	Country          string
	CountryCode      *string
	Latitude         float64
	Longitude        float64
	FormattedAddress string
}

// Location converts the candidate to an unsaved store row.
func (c Candidate) Location() weather.Location {
	return weather.Location{
		City:        c.City,
		Province:    c.Province,
		Country:     c.Country,
		CountryCode: c.CountryCode,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
	}
}

// ParseResponse decodes a geocoder body.  A body that does not decode, or
// carries a status other than OK or ZERO_RESULTS, is an upstream failure.
func ParseResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: decode geocoding response: %w", weather.ErrUpstreamUnavailable, err)
	}

	switch resp.Status {
	case StatusOK, StatusZeroResults:
		return resp, nil
	default:
		msg := resp.Status
		if resp.ErrorMessage != "" {
			msg += ": " + resp.ErrorMessage
		}
		return Response{}, fmt.Errorf("%w: geocoder status %s", weather.ErrUpstreamUnavailable, msg)
	}
}

// Extract derives a Candidate from one result.
//
// City falls back from locality to the first-level administrative area and
// finally to fallback, so it is never empty.  A result with no country
// component is rejected with ErrMissingCountry.
func Extract(result Result, fallback string) (Candidate, error) {
	locality := findComponent(result.AddressComponents, typeLocality)
	admin1 := findComponent(result.AddressComponents, typeAdmin1)
	country := findComponent(result.AddressComponents, typeCountry)

	if country == nil || strings.TrimSpace(country.LongName) == "" {
		return Candidate{}, fmt.Errorf("%w: %q", weather.ErrMissingCountry, result.FormattedAddress)
	}

	c := Candidate{
		City:             strings.TrimSpace(fallback),
		Country:          country.LongName,
		Latitude:         common.RoundCoordinate(result.Geometry.Location.Lat),
		Longitude:        common.RoundCoordinate(result.Geometry.Location.Lng),
		FormattedAddress: result.FormattedAddress,
	}

	switch {
	case locality != nil && locality.LongName != "":
		c.City = locality.LongName
	case admin1 != nil && admin1.LongName != "":
		c.City = admin1.LongName
	}
	if admin1 != nil {
		c.Province = admin1.ShortName
	}
	if country.ShortName != "" {
		code := country.ShortName
		c.CountryCode = &code
	}
	return c, nil
}

func findComponent(components []AddressComponent, kind string) *AddressComponent {
	for i := range components {
		if slices.Contains(components[i].Types, kind) {
			return &components[i]
		}
	}
	return nil
}
