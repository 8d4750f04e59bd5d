package weather

import "errors"

var (
	// ErrNotFound is returned by stores when no record matches a lookup.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidArgument marks caller input that can never succeed, such as an
	// empty search query.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLocationNotFound is returned when a location id has no stored row.
	ErrLocationNotFound = errors.New("location not found")

	// ErrUpstreamUnavailable wraps transport failures and non-success
	// responses from a geocoding or weather provider.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrMissingCountry rejects a single geocoding result without country data.
	// It is absorbed by the batch that produced it.
	ErrMissingCountry = errors.New("geocoding result has no country")

	// ErrParseDegraded reports a weather payload that was not a JSON object.
	// The record is still persisted with the raw payload.
	ErrParseDegraded = errors.New("weather payload could not be parsed")
)
