package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/weathertrends/weather-trends-service/internal/models"
	"github.com/weathertrends/weather-trends-service/internal/observability"
)

// Fetcher retrieves daily archive data for a coordinate and inclusive
// date range.
type Fetcher interface {
	FetchDaily(ctx context.Context, coords models.Coords, rng models.DateRange) (models.RawDaily, error)
}

// ErrUpstreamFailure is returned for network, parse and non-2xx failures.
var ErrUpstreamFailure = errors.New("archive upstream failure")

// dailyVariables is the fixed variable list requested from the provider.
const dailyVariables = "temperature_2m_max,temperature_2m_min,precipitation_sum"

// Client calls the Open-Meteo archive API.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewClient returns an archive client. baseURL is the archive endpoint
// (e.g. https://archive-api.open-meteo.com/v1/archive); timeout bounds
// each outbound call.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("archive base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid archive URL: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// archiveResponse mirrors the provider's daily block. Value arrays decode
// through pointers because the provider emits null for days it has no
// observation for.
type archiveResponse struct {
	Daily struct {
		Time             []string   `json:"time"`
		Temperature2mMax []*float64 `json:"temperature_2m_max"`
		Temperature2mMin []*float64 `json:"temperature_2m_min"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// FetchDaily returns the provider's parallel daily arrays for the range.
// Nulls inside the arrays flatten to 0; arrays shorter than the date array
// pass through as-is and are zero-filled downstream by the analytics
// engine.
func (c *Client) FetchDaily(ctx context.Context, coords models.Coords, rng models.DateRange) (models.RawDaily, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, coords, rng)
	if err != nil {
		observability.ArchiveCallsTotal.WithLabelValues("error").Inc()
		return models.RawDaily{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.ArchiveCallsTotal.WithLabelValues("error").Inc()
		observability.ArchiveDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return models.RawDaily{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	status := observability.APIStatusLabel(resp.StatusCode)
	observability.ArchiveCallsTotal.WithLabelValues(status).Inc()
	observability.ArchiveDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.RawDaily{}, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.RawDaily{}, fmt.Errorf("%w: read response body: %v", ErrUpstreamFailure, err)
	}

	var apiResp archiveResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.RawDaily{}, fmt.Errorf("%w: parse response: %v", ErrUpstreamFailure, err)
	}

	return models.RawDaily{
		Dates:  apiResp.Daily.Time,
		TMax:   flatten(apiResp.Daily.Temperature2mMax),
		TMin:   flatten(apiResp.Daily.Temperature2mMin),
		Precip: flatten(apiResp.Daily.PrecipitationSum),
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, coords models.Coords, rng models.DateRange) (*http.Request, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid archive URL: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	params.Set("start_date", rng.Start)
	params.Set("end_date", rng.End)
	params.Set("daily", dailyVariables)
	params.Set("timezone", "auto")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// flatten turns the provider's nullable array into plain floats, reading
// null as 0. Same tolerance the engine applies to short arrays.
func flatten(vals []*float64) []float64 {
	if vals == nil {
		return nil
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}
