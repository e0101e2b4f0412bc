package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

const (
	DefaultBaseURL = "https://api.pirateweather.net"
	sourceName     = "pirate-weather"
)

// DataPoint is one entry of the hourly series, or the "currently" snapshot.
type DataPoint struct {
	Time              int64   `json:"time"`
	Summary           string  `json:"summary"`
	PrecipProbability float64 `json:"precipProbability"`
	Temperature       float64 `json:"temperature"`
}

type HourlyBlock struct {
	Summary string      `json:"summary"`
	Icon    string      `json:"icon"`
	Data    []DataPoint `json:"data"`
}

// RawForecast is the upstream forecast document with minutely and daily blocks excluded.
type RawForecast struct {
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Timezone  string      `json:"timezone"`
	Offset    float64     `json:"offset"`
	Elevation float64     `json:"elevation"`
	Currently DataPoint   `json:"currently"`
	Hourly    HourlyBlock `json:"hourly"`
}

// Client calls the Pirate Weather time-machine forecast endpoint for a fixed location.
type Client struct {
	baseURL    string
	apiKey     string
	latitude   float64
	longitude  float64
	httpClient *http.Client
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at a different host (used by tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, latitude, longitude float64, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		latitude:   latitude,
		longitude:  longitude,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the forecast anchored at the given unix timestamp.
// The same call serves both the start-of-day hourly series and the "currently" refresh.
func (c *Client) Fetch(ctx context.Context, anchor int64) (*RawForecast, error) {
	u := fmt.Sprintf("%s/forecast/%s/%s,%s,%d?exclude=minutely,daily",
		c.baseURL,
		url.PathEscape(c.apiKey),
		strconv.FormatFloat(c.latitude, 'f', -1, 64),
		strconv.FormatFloat(c.longitude, 'f', -1, 64),
		anchor,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &dasherr.FetchError{Source: sourceName, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the request URL carries the API key, keep it out of error messages
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &dasherr.FetchError{Source: sourceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &dasherr.FetchError{
			Source:     sourceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", body),
		}
	}

	var forecast RawForecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, &dasherr.ParseError{Source: sourceName, Err: err}
	}
	return &forecast, nil
}
