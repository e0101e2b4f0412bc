package appinsightsutils

import (
	"fmt"
	"log"
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"
)

// NewTelemetryClient creates the client for the given role. Without an
// instrumentation key the client is created disabled, so tracking is a no-op.
func NewTelemetryClient(instrumentationKey, role string) appinsights.TelemetryClient {
	telemetryConfig := appinsights.NewTelemetryConfiguration(instrumentationKey)
	// Configure how many items can be sent in one call to the data collector:
	telemetryConfig.MaxBatchSize = 8192
	// Configure the maximum delay before sending queued telemetry:
	telemetryConfig.MaxBatchInterval = 2 * time.Second

	client := appinsights.NewTelemetryClientFromConfig(telemetryConfig)
	client.Context().Tags.Cloud().SetRole(role)
	if instrumentationKey == "" {
		log.Println("Application Insights instrumentation key not set, telemetry disabled")
		client.SetIsEnabled(false)
	}
	return client
}

// Tracker reports weather cache and render outcomes as telemetry.
type Tracker struct {
	client appinsights.TelemetryClient
}

func NewTracker(client appinsights.TelemetryClient) *Tracker {
	if client == nil {
		panic("appInsightsClient is required")
	}
	return &Tracker{client: client}
}

func (t *Tracker) CacheLookup(hit bool, reason string) {
	e := appinsights.NewEventTelemetry("weather-cache")
	e.Properties["cache-hit"] = fmt.Sprintf("%t", hit)
	e.Properties["reason"] = reason
	t.client.Track(e)
}

func (t *Tracker) CacheWriteFailed(err error) {
	trace := appinsights.NewTraceTelemetry(fmt.Sprintf("failed to cache weather data: %v", err), appinsights.Warning)
	trace.Properties["component"] = "weather-cache"
	t.client.Track(trace)
}

func (t *Tracker) RenderCompleted(id, format string, size int, duration time.Duration) {
	e := appinsights.NewEventTelemetry("render")
	e.Properties["render-id"] = id
	e.Properties["format"] = format
	e.Measurements["bytes"] = float64(size)
	e.Measurements["duration-ms"] = float64(duration.Milliseconds())
	t.client.Track(e)
}

func (t *Tracker) RenderFailed(id, format string, err error) {
	ex := appinsights.NewExceptionTelemetry(err)
	ex.Properties["render-id"] = id
	ex.Properties["format"] = format
	t.client.Track(ex)
}
