package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
)

const DefaultGeocodingURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleGeocodingClient resolves free-text addresses with the Google
// Geocoding API.  The body is returned undecoded; status handling belongs to
// the caller.
type GoogleGeocodingClient struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGoogleGeocodingClient(client *http.Client, apiKey, baseURL string, backoff BackoffConfig) *GoogleGeocodingClient {
	if baseURL == "" {
		baseURL = DefaultGeocodingURL
	}
	return &GoogleGeocodingClient{
		name:    "google_geocoding",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: backoff},
		circuit: newBreaker("google-geocoding"),
	}
}

// Name is the provider label used in logs and upstream metrics.
func (c *GoogleGeocodingClient) Name() string {
	return c.name
}

func (c *GoogleGeocodingClient) Search(ctx context.Context, query string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNoAPIKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("address", query)
		values.Set("key", c.apiKey)
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	body, err := doRequestWithResilience(ctx, c.name, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.name, err)
	}
	return body, nil
}
