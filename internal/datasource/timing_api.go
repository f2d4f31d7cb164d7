package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/yourusername/gridline/internal/config"
)

// TimingAPIClient implements DataSource against an OpenF1-style
// timing API. Responses for historical sessions never change, so they
// are cached in memory for the configured TTL.
type TimingAPIClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	respCache  *cache.Cache
	logger     *log.Logger
}

// NewTimingAPIClient creates a new timing API client
func NewTimingAPIClient(cfg config.DataSourceConfig, logger *log.Logger) *TimingAPIClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.MaxRetries > 0 {
		httpCfg.MaxRetries = cfg.MaxRetries
	}
	if cfg.RateLimitPerSec > 0 {
		httpCfg.RateLimit = cfg.RateLimitPerSec
	}
	if cfg.CircuitBreakerMax > 0 {
		httpCfg.CircuitBreakerMax = cfg.CircuitBreakerMax
	}

	ttl := 15 * time.Minute
	if cfg.CacheTTLSeconds > 0 {
		ttl = time.Duration(cfg.CacheTTLSeconds) * time.Second
	}

	return &TimingAPIClient{
		httpClient: NewRateLimitedHTTPClient(httpCfg, logger),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		respCache:  cache.New(ttl, 2*ttl),
		logger:     logger,
	}
}

// Name returns the data source name
func (c *TimingAPIClient) Name() string {
	return "timing_api"
}

// FetchSessions retrieves all sessions of a season
func (c *TimingAPIClient) FetchSessions(ctx context.Context, year int) ([]SessionData, error) {
	url := fmt.Sprintf("%s/sessions?year=%d", c.baseURL, year)
	var sessions []SessionData
	if err := c.getJSON(ctx, url, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// FetchResults retrieves the classification of a session
func (c *TimingAPIClient) FetchResults(ctx context.Context, sessionKey int) ([]ResultData, error) {
	url := fmt.Sprintf("%s/session_result?session_key=%d", c.baseURL, sessionKey)
	var results []ResultData
	if err := c.getJSON(ctx, url, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchLaps retrieves every timed lap of a session
func (c *TimingAPIClient) FetchLaps(ctx context.Context, sessionKey int) ([]LapData, error) {
	url := fmt.Sprintf("%s/laps?session_key=%d", c.baseURL, sessionKey)
	var laps []LapData
	if err := c.getJSON(ctx, url, &laps); err != nil {
		return nil, err
	}
	return laps, nil
}

// FetchStints retrieves tyre stint boundaries for a session
func (c *TimingAPIClient) FetchStints(ctx context.Context, sessionKey int) ([]StintData, error) {
	url := fmt.Sprintf("%s/stints?session_key=%d", c.baseURL, sessionKey)
	var stints []StintData
	if err := c.getJSON(ctx, url, &stints); err != nil {
		return nil, err
	}
	return stints, nil
}

// FetchDrivers retrieves the entry list for a session
func (c *TimingAPIClient) FetchDrivers(ctx context.Context, sessionKey int) ([]DriverData, error) {
	url := fmt.Sprintf("%s/drivers?session_key=%d", c.baseURL, sessionKey)
	var drivers []DriverData
	if err := c.getJSON(ctx, url, &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// FetchTelemetry retrieves sampled car telemetry for one driver's session
func (c *TimingAPIClient) FetchTelemetry(ctx context.Context, sessionKey, driverNumber int) ([]TelemetrySample, error) {
	url := fmt.Sprintf("%s/car_data?session_key=%d&driver_number=%d", c.baseURL, sessionKey, driverNumber)
	var samples []TelemetrySample
	if err := c.getJSON(ctx, url, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// getJSON fetches a URL and decodes its JSON body, consulting the
// response cache first.
func (c *TimingAPIClient) getJSON(ctx context.Context, url string, out interface{}) error {
	if cached, ok := c.respCache.Get(url); ok {
		return json.Unmarshal(cached.([]byte), out)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewDataSourceError(c.Name(), ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return NewDataSourceError(c.Name(), ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return NewDataSourceError(c.Name(), ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(c.Name(), ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(c.Name(), ErrCodeNotFound, "resource not found", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(c.Name(), ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewDataSourceError(c.Name(), ErrCodeNetworkError, "failed to read response", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewDataSourceError(c.Name(), ErrCodeInvalidData, "failed to parse response", err)
	}

	c.respCache.Set(url, raw, cache.DefaultExpiration)
	return nil
}

// Close releases the underlying HTTP client resources
func (c *TimingAPIClient) Close() error {
	return c.httpClient.Close()
}
