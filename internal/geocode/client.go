package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/weathertrends/weather-trends-service/internal/models"
	"github.com/weathertrends/weather-trends-service/internal/observability"
)

// Geocoder resolves a free-text city name to coordinates and a display name.
type Geocoder interface {
	Resolve(ctx context.Context, city string) (Place, error)
}

var (
	// ErrCityNotFound is returned when the provider yields no candidates.
	ErrCityNotFound = errors.New("city not found")
	// ErrUpstreamFailure is returned for network, parse and 5xx failures.
	ErrUpstreamFailure = errors.New("geocoding upstream failure")
)

// Place is the best geocoding match for a query.
type Place struct {
	Name   string
	Coords models.Coords
}

// Client calls the Open-Meteo geocoding API.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewClient returns a geocoding client. baseURL is the search endpoint
// (e.g. https://geocoding-api.open-meteo.com/v1/search); timeout bounds
// each outbound call.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("geocoding base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid geocoding URL: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type geocodingResponse struct {
	Results []candidate `json:"results"`
}

type candidate struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
	Population  int64   `json:"population"`
}

// Resolve returns the best match for city: the first candidate with the
// highest population among those the provider returns. An empty candidate
// list maps to ErrCityNotFound.
func (c *Client) Resolve(ctx context.Context, city string) (Place, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, city)
	if err != nil {
		observability.GeocodeCallsTotal.WithLabelValues("error").Inc()
		return Place{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.GeocodeCallsTotal.WithLabelValues("error").Inc()
		observability.GeocodeDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return Place{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	status := observability.APIStatusLabel(resp.StatusCode)
	observability.GeocodeCallsTotal.WithLabelValues(status).Inc()
	observability.GeocodeDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Place{}, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Place{}, fmt.Errorf("%w: read response body: %v", ErrUpstreamFailure, err)
	}

	var apiResp geocodingResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Place{}, fmt.Errorf("%w: parse response: %v", ErrUpstreamFailure, err)
	}

	best, ok := bestMatch(apiResp.Results)
	if !ok {
		return Place{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}

	return Place{
		Name: displayName(best),
		Coords: models.Coords{
			Lat: best.Latitude,
			Lon: best.Longitude,
		},
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, city string) (*http.Request, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid geocoding URL: %w", err)
	}

	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "10")
	params.Set("language", "en")
	params.Set("format", "json")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// bestMatch picks the candidate with the highest population. Strict
// greater-than while scanning keeps the first of equally populated
// candidates, so selection is stable in provider order.
func bestMatch(results []candidate) (candidate, bool) {
	if len(results) == 0 {
		return candidate{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Population > best.Population {
			best = r
		}
	}
	return best, true
}

// displayName joins name, admin region and country code, skipping blanks.
func displayName(c candidate) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Name, c.Admin1, c.CountryCode} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}
