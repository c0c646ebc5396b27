package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public National Weather Service API.
const DefaultBaseURL = "https://api.weather.gov"

const feetToMeters = 0.3048

var errNotFound = errors.New("not found")

// Options configures a Client.
type Options struct {
	BaseURL   string
	UserAgent string // NWS asks every client to identify itself
	Timeout   time.Duration
	Interval  time.Duration // minimum spacing between requests
}

// Client implements domain.ElevationLookup using the NWS points and forecast
// endpoints.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates an NWS elevation client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL:     baseURL,
		userAgent:   opts.UserAgent,
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		maxBackoff:  5 * time.Second,
		metrics:     metrics,
		logger:      logger,
	}
}

// Elevation returns the ground elevation in meters of the NWS forecast
// gridpoint containing (lat, lon). Points outside NWS coverage return an
// error wrapping domain.ErrNoCoverage.
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	start := time.Now()
	meters, err := c.lookup(ctx, lat, lon)
	c.metrics.ElevationAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrNoCoverage):
		c.metrics.ElevationRequests.WithLabelValues("no_coverage").Inc()
	case err != nil:
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
	default:
		c.metrics.ElevationRequests.WithLabelValues("success").Inc()
	}
	return meters, err
}

func (c *Client) lookup(ctx context.Context, lat, lon float64) (float64, error) {
	var pt pointsResponse
	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	if err := c.getJSON(ctx, pointsURL, &pt); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, fmt.Errorf("points %.4f,%.4f: %w", lat, lon, domain.ErrNoCoverage)
		}
		return 0, fmt.Errorf("points %.4f,%.4f: %w", lat, lon, err)
	}
	if pt.Properties.Forecast == "" {
		return 0, fmt.Errorf("points %.4f,%.4f: response has no forecast link", lat, lon)
	}

	var fc forecastResponse
	if err := c.getJSON(ctx, pt.Properties.Forecast, &fc); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, fmt.Errorf("forecast for %.4f,%.4f: %w", lat, lon, domain.ErrNoCoverage)
		}
		return 0, fmt.Errorf("forecast for %.4f,%.4f: %w", lat, lon, err)
	}
	return fc.Properties.Elevation.meters()
}

// getJSON fetches u and decodes the body into v, retrying rate-limit and
// server errors with exponential backoff.
func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	backoff := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retryable, err := c.doRequest(ctx, u, v)
		if err == nil || !retryable {
			return err
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}
		c.logger.Debug("nws request failed, retrying", "url", u, "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, c.maxBackoff)
	}
	return fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, u string, v any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return false, errNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return true, fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

// NWS API response types.

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Elevation quantity `json:"elevation"`
	} `json:"properties"`
}

type quantity struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

func (q quantity) meters() (float64, error) {
	if q.Value == nil {
		return 0, errors.New("elevation has no value")
	}
	switch q.UnitCode {
	case "wmoUnit:m", "unit:m":
		return *q.Value, nil
	case "wmoUnit:ft", "unit:ft":
		return *q.Value * feetToMeters, nil
	default:
		return 0, fmt.Errorf("unexpected elevation unit %q", q.UnitCode)
	}
}
