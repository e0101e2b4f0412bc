package main

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"

	"github.com/stuartleeks/home-dash/epaper-dash/dashboard"
	"github.com/stuartleeks/home-dash/epaper-dash/data"
)

// Renderer produces an encoded dashboard.
type Renderer interface {
	Render(ctx context.Context, format string) (*dashboard.Output, error)
}

type ApiRouter struct {
	renderer Renderer
	// served maps the Etags handed out recently to the render that produced them.
	// It only feeds logs and telemetry; a 304 is decided on the fresh render's Etag,
	// since the body cannot be known without rendering.
	served *data.Cache[string, string]
}

func NewApiRouter(renderer Renderer) *ApiRouter {
	if renderer == nil {
		panic("renderer is required")
	}
	return &ApiRouter{
		renderer: renderer,
		served:   data.NewCache[string, string](10 * time.Minute),
	}
}

func (api *ApiRouter) ImageGet(w http.ResponseWriter, r *http.Request, telemetry *appinsights.RequestTelemetry) {
	api.serveDashboard(w, r, telemetry, dashboard.FormatPNG, "image/png")
}

func (api *ApiRouter) RawGet(w http.ResponseWriter, r *http.Request, telemetry *appinsights.RequestTelemetry) {
	api.serveDashboard(w, r, telemetry, dashboard.FormatRaw, "application/octet-stream")
}

func (api *ApiRouter) serveDashboard(w http.ResponseWriter, r *http.Request, telemetry *appinsights.RequestTelemetry, format, contentType string) {
	// GET patterns also match HEAD, which would render for nothing
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	ifNoneMatch := strings.Trim(r.Header.Get("If-None-Match"), `"`)
	if ifNoneMatch != "" {
		log.Printf("If-None-Match: %s", ifNoneMatch)
		telemetry.Properties["If-None-Match"] = ifNoneMatch
	}

	out, err := api.renderer.Render(r.Context(), format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	etag := fmt.Sprintf("%x", sha1.Sum(out.Body))
	log.Printf("Etag: %s", etag)
	telemetry.Properties["Etag"] = etag
	telemetry.Properties["render-id"] = out.ID
	w.Header().Set("Etag", etag)
	w.Header().Set("X-Render-Id", out.ID)

	if ifNoneMatch == etag {
		if previous := api.served.Get(etag); previous != nil {
			log.Printf("Unchanged since render %s", *previous)
			telemetry.Properties["previous-render-id"] = *previous
		}
		w.WriteHeader(http.StatusNotModified)
		return
	}
	id := out.ID
	api.served.Set(etag, &id)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(out.Body)))
	_, _ = w.Write(out.Body)
}
