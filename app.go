package main

import (
	"log"
	"net/http"
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"

	"github.com/stuartleeks/home-dash/epaper-dash/appinsightsutils"
	"github.com/stuartleeks/home-dash/epaper-dash/config"
	"github.com/stuartleeks/home-dash/epaper-dash/dashboard"
	"github.com/stuartleeks/home-dash/epaper-dash/transit"
	"github.com/stuartleeks/home-dash/epaper-dash/weather"
)

const telemetryRole = "epaper-dash"

// app holds what a command needs to render, built once from the configuration.
type app struct {
	telemetry appinsights.TelemetryClient
	pipeline  *dashboard.Pipeline
	store     weather.Store
}

func newApp(cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	telemetryClient := appinsightsutils.NewTelemetryClient(cfg.AppInsightsInstrumentationKey, telemetryRole)
	tracker := appinsightsutils.NewTracker(telemetryClient)

	store, err := weather.OpenStore(cfg.CacheBackend, cfg.CachePath)
	if err != nil {
		return nil, err
	}
	log.Printf("Weather cache: %s %s", cfg.CacheBackend, cfg.CachePath)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	weatherCache := weather.NewCache(
		weather.NewClient(cfg.PirateWeatherAPIKey, cfg.Latitude, cfg.Longitude, weather.WithHTTPClient(httpClient)),
		store,
		weather.WithObserver(tracker),
	)
	transitClient := transit.NewClient(transit.WithHTTPClient(httpClient))

	resources, err := dashboard.LoadResources(cfg.TemplatePath, cfg.FontsDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pipeline := dashboard.NewPipeline(resources, weatherCache, transitClient, cfg.Stops,
		dashboard.WithLocation(loc),
		dashboard.WithRenderObserver(tracker),
	)
	return &app{telemetry: telemetryClient, pipeline: pipeline, store: store}, nil
}

// Close releases the weather store and flushes queued telemetry.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("failed to close weather cache: %v", err)
	}
	select {
	case <-a.telemetry.Channel().Close(10 * time.Second):
	case <-time.After(30 * time.Second):
		log.Println("timed out flushing telemetry")
	}
}
