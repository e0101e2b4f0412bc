package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

const samplePayload = `{
  "latitude": 40.77437, "longitude": -74.019892, "timezone": "America/New_York",
  "offset": -4, "elevation": 12,
  "currently": {"time": 1720800420, "summary": "Clear", "precipProbability": 0.1, "temperature": 84.6},
  "hourly": {"summary": "Clear", "icon": "clear-day", "data": [
    {"time": 1720756800, "summary": "Clear", "precipProbability": 0.0, "temperature": 75.2},
    {"time": 1720760400, "summary": "Clear", "precipProbability": 0.25, "temperature": 74.9}
  ]}
}`

func TestClientFetchBuildsRequestAndDecodes(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := NewClient("secret-key", 40.77437, -74.019892, WithBaseURL(srv.URL))
	raw, err := c.Fetch(context.Background(), 1720756800)
	require.NoError(t, err)

	assert.Equal(t, "/forecast/secret-key/40.77437,-74.019892,1720756800", gotPath)
	assert.Equal(t, "exclude=minutely,daily", gotQuery)
	assert.Equal(t, 84.6, raw.Currently.Temperature)
	require.Len(t, raw.Hourly.Data, 2)
	assert.Equal(t, 0.25, raw.Hourly.Data[1].PrecipProbability)
	assert.Equal(t, "America/New_York", raw.Timezone)
}

func TestClientFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("k", 1, 2, WithBaseURL(srv.URL)).Fetch(context.Background(), 0)

	var fetchErr *dasherr.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
}

func TestClientFetchBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := NewClient("k", 1, 2, WithBaseURL(srv.URL)).Fetch(context.Background(), 0)

	var parseErr *dasherr.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestClientFetchTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewClient("very-secret", 1, 2, WithBaseURL(base)).Fetch(context.Background(), 0)

	var fetchErr *dasherr.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.False(t, strings.Contains(err.Error(), "very-secret"))
}
