// Package transit reads real-time bus arrival predictions from NJ Transit's MyBusNow service.
package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

const (
	DefaultBaseURL  = "https://app.njtransit.com"
	DefaultThrottle = 1 * time.Second

	predictionsPath = "/NJTAppWS4/services/getMBNPredictions"
	sourceName      = "nj-transit"

	// credentials and user agent of the public mobile app
	appUser      = "njtapp"
	appPassword  = "8rg3rX8G"
	appUserAgent = "okhttp/4.10.0"

	predictedTimeLayout = "20060102 15:04"
	envelopePrefix      = "callback("
	envelopeSuffix      = ")"
)

// Eastern is the timezone predicted times are reported in, wherever the process runs.
var Eastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Arrival is one predicted bus arrival at a stop.
type Arrival struct {
	RouteNumber int
	ArrivalTime time.Time
}

// prediction mirrors the upstream record; only rt and prdtm are used, and a record
// without them does not match the schema.
type prediction struct {
	RouteID        string  `json:"rid"`
	TripID         string  `json:"tripid"`
	ScheduledTime  string  `json:"schdtm"`
	Timestamp      string  `json:"tmstmp"`
	StopName       string  `json:"stpnm"`
	StopID         string  `json:"stpid"`
	VehicleID      string  `json:"vid"`
	Route          *string `json:"rt"`
	RouteDirection string  `json:"rtdir"`
	Destination    string  `json:"des"`
	PredictedTime  *string `json:"prdtm"`
	Delayed        bool    `json:"dly"`
	Countdown      string  `json:"prdctdn"`
}

// Client fetches stop predictions. Each call is followed by a fixed pause because the
// upstream rate limits tighter polling.
type Client struct {
	baseURL    string
	httpClient *http.Client
	throttle   time.Duration
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

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

// WithThrottle sets the pause after every upstream call.
func WithThrottle(d time.Duration) ClientOption {
	return func(c *Client) {
		c.throttle = d
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		throttle:   DefaultThrottle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetArrivals returns the predicted arrivals for a stop in upstream order.
// A payload that is not valid JSON inside its envelope yields no arrivals rather than
// an error, since the upstream sends junk when nothing is scheduled.
func (c *Client) GetArrivals(ctx context.Context, stopID int) ([]Arrival, error) {
	body, err := c.fetch(ctx, stopID)
	if waitErr := c.wait(ctx); waitErr != nil && err == nil {
		err = waitErr
	}
	if err != nil {
		return nil, err
	}
	return ParsePredictions(body)
}

func (c *Client) fetch(ctx context.Context, stopID int) (string, error) {
	u := c.baseURL + predictionsPath + "?" + url.Values{"stopid": {strconv.Itoa(stopID)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &dasherr.FetchError{Source: sourceName, Err: err}
	}
	req.SetBasicAuth(appUser, appPassword)
	req.Header.Set("User-Agent", appUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &dasherr.FetchError{Source: sourceName, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &dasherr.FetchError{Source: sourceName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &dasherr.FetchError{
			Source:     sourceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("stop %d", stopID),
		}
	}
	return string(b), nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.throttle <= 0 {
		return nil
	}
	timer := time.NewTimer(c.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParsePredictions decodes a callback(...) wrapped predictions payload.
func ParsePredictions(body string) ([]Arrival, error) {
	inner, ok := strings.CutPrefix(body, envelopePrefix)
	if !ok {
		return nil, &dasherr.ParseError{Source: sourceName, Err: fmt.Errorf("payload does not start with %q", envelopePrefix)}
	}
	inner, ok = strings.CutSuffix(inner, envelopeSuffix)
	if !ok {
		return nil, &dasherr.ParseError{Source: sourceName, Err: fmt.Errorf("payload does not end with %q", envelopeSuffix)}
	}

	var predictions []prediction
	if err := json.Unmarshal([]byte(inner), &predictions); err != nil {
		log.Printf("%s: ignoring unparseable predictions: %v", sourceName, err)
		return []Arrival{}, nil
	}

	for i, p := range predictions {
		if p.Route == nil || p.PredictedTime == nil {
			log.Printf("%s: ignoring predictions, record %d has no rt or prdtm", sourceName, i)
			return []Arrival{}, nil
		}
	}

	arrivals := make([]Arrival, 0, len(predictions))
	for _, p := range predictions {
		route, err := strconv.Atoi(*p.Route)
		if err != nil {
			return nil, &dasherr.ParseError{Source: sourceName, Err: fmt.Errorf("route %q: %w", *p.Route, err)}
		}
		at, err := time.ParseInLocation(predictedTimeLayout, *p.PredictedTime, Eastern)
		if err != nil {
			return nil, &dasherr.ParseError{Source: sourceName, Err: fmt.Errorf("predicted time %q: %w", *p.PredictedTime, err)}
		}
		arrivals = append(arrivals, Arrival{RouteNumber: route, ArrivalTime: at})
	}
	return arrivals, nil
}

// FilterRoutes keeps the arrivals served by one of routes, preserving order.
func FilterRoutes(arrivals []Arrival, routes []int) []Arrival {
	keep := make(map[int]bool, len(routes))
	for _, r := range routes {
		keep[r] = true
	}
	out := make([]Arrival, 0, len(arrivals))
	for _, a := range arrivals {
		if keep[a.RouteNumber] {
			out = append(out, a)
		}
	}
	return out
}
