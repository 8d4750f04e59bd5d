package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
)

const DefaultWeatherURL = "https://weather.googleapis.com/v1/currentConditions:lookup"

// GoogleWeatherClient fetches current conditions from the Google Weather API.
type GoogleWeatherClient struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGoogleWeatherClient(client *http.Client, apiKey, baseURL string, backoff BackoffConfig) *GoogleWeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	return &GoogleWeatherClient{
		name:    "google_weather",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: backoff},
		circuit: newBreaker("google-weather"),
	}
}

// Name is the provider label used in logs and upstream metrics.
func (c *GoogleWeatherClient) Name() string {
	return c.name
}

// FetchCurrent returns the raw currentConditions body for a coordinate pair.
func (c *GoogleWeatherClient) FetchCurrent(ctx context.Context, lat, lon float64) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNoAPIKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", c.apiKey)
		values.Set("location.latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("location.longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	body, err := doRequestWithResilience(ctx, c.name, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.name, err)
	}
	return body, nil
}
