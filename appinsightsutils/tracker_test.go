package appinsightsutils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records tracked items; any other method panics.
type fakeClient struct {
	appinsights.TelemetryClient
	tracked []appinsights.Telemetry
}

func (c *fakeClient) Track(t appinsights.Telemetry) {
	c.tracked = append(c.tracked, t)
}

func TestTrackerCacheLookup(t *testing.T) {
	client := &fakeClient{}
	NewTracker(client).CacheLookup(false, "expired")

	require.Len(t, client.tracked, 1)
	e := client.tracked[0].(*appinsights.EventTelemetry)
	assert.Equal(t, "weather-cache", e.Name)
	assert.Equal(t, "false", e.Properties["cache-hit"])
	assert.Equal(t, "expired", e.Properties["reason"])
}

func TestTrackerCacheWriteFailed(t *testing.T) {
	client := &fakeClient{}
	NewTracker(client).CacheWriteFailed(errors.New("disk full"))

	require.Len(t, client.tracked, 1)
	trace := client.tracked[0].(*appinsights.TraceTelemetry)
	assert.Equal(t, appinsights.Warning, trace.SeverityLevel)
	assert.Contains(t, trace.Message, "disk full")
}

func TestTrackerRenders(t *testing.T) {
	client := &fakeClient{}
	tracker := NewTracker(client)
	tracker.RenderCompleted("id-1", "raw", 48000, 1500*time.Millisecond)
	tracker.RenderFailed("id-2", "png", errors.New("boom"))

	require.Len(t, client.tracked, 2)
	e := client.tracked[0].(*appinsights.EventTelemetry)
	assert.Equal(t, "render", e.Name)
	assert.Equal(t, "id-1", e.Properties["render-id"])
	assert.Equal(t, 48000.0, e.Measurements["bytes"])
	assert.Equal(t, 1500.0, e.Measurements["duration-ms"])

	ex := client.tracked[1].(*appinsights.ExceptionTelemetry)
	assert.Equal(t, "id-2", ex.Properties["render-id"])
	assert.Equal(t, "png", ex.Properties["format"])
}

func TestNewTelemetryClientWithoutKeyIsDisabled(t *testing.T) {
	client := NewTelemetryClient("", "epaper-dash")
	defer client.Channel().Close()

	assert.False(t, client.IsEnabled())
}

func TestServeMuxWithTraceTracksRequests(t *testing.T) {
	client := &fakeClient{}
	mux := NewServeMuxWithTrace(client)
	mux.HandleFuncWithContext("GET /img", func(w http.ResponseWriter, r *http.Request, telemetry *appinsights.RequestTelemetry) {
		telemetry.Properties["Etag"] = "abc"
		w.WriteHeader(http.StatusNotModified)
	})
	mux.HandleFunc("GET /raw", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{1, 2, 3})
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/img", nil))

	assert.Equal(t, http.StatusNotModified, rec.Code)
	require.Len(t, client.tracked, 1)
	req := client.tracked[0].(*appinsights.RequestTelemetry)
	assert.Equal(t, "GET /img", req.Name)
	assert.Equal(t, "304", req.ResponseCode)
	assert.Equal(t, "abc", req.Properties["Etag"])
	assert.True(t, req.Success)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raw", nil))

	require.Len(t, client.tracked, 2)
	req = client.tracked[1].(*appinsights.RequestTelemetry)
	assert.Equal(t, "200", req.ResponseCode)
	assert.Equal(t, 3.0, req.Measurements["response-bytes"])
}
