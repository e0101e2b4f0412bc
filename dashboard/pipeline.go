package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fogleman/gg"
	"github.com/google/uuid"

	"github.com/stuartleeks/home-dash/epaper-dash/config"
	"github.com/stuartleeks/home-dash/epaper-dash/raster"
	"github.com/stuartleeks/home-dash/epaper-dash/transit"
	"github.com/stuartleeks/home-dash/epaper-dash/weather"
)

const (
	FormatPNG = "png"
	FormatRaw = "raw"
)

type WeatherSource interface {
	GetOrFetch(ctx context.Context, now time.Time) (weather.Forecast, error)
}

type ArrivalSource interface {
	GetArrivals(ctx context.Context, stopID int) ([]transit.Arrival, error)
}

// RenderObserver is told about every render attempt.
type RenderObserver interface {
	RenderCompleted(id, format string, size int, duration time.Duration)
	RenderFailed(id, format string, err error)
}

// Output is one encoded dashboard.
type Output struct {
	ID       string
	Format   string
	Body     []byte
	Duration time.Duration
}

// Pipeline produces dashboards. Each call fetches the forecast through the cache,
// then each stop's arrivals in turn, and renders from scratch.
type Pipeline struct {
	resources *Resources
	weather   WeatherSource
	transit   ArrivalSource
	stops     []config.StopGroup
	location  *time.Location
	now       func() time.Time
	observer  RenderObserver
}

type PipelineOption func(*Pipeline)

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithLocation sets the timezone the dashboard is drawn in.
func WithLocation(loc *time.Location) PipelineOption {
	return func(p *Pipeline) {
		p.location = loc
	}
}

func WithRenderObserver(observer RenderObserver) PipelineOption {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

func NewPipeline(resources *Resources, weatherSource WeatherSource, arrivals ArrivalSource, stops []config.StopGroup, opts ...PipelineOption) *Pipeline {
	if resources == nil || weatherSource == nil || arrivals == nil {
		panic("resources, weather and arrival sources are required")
	}
	p := &Pipeline{
		resources: resources,
		weather:   weatherSource,
		transit:   arrivals,
		stops:     stops,
		location:  transit.Eastern,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Image gathers the data and rasterizes the filled template.
func (p *Pipeline) Image(ctx context.Context) (*gg.Context, error) {
	now := p.now().In(p.location)

	forecast, err := p.weather.GetOrFetch(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get weather: %w", err)
	}

	groups := make([]ArrivalGroup, 0, len(p.stops))
	for _, stop := range p.stops {
		arrivals, err := p.transit.GetArrivals(ctx, stop.StopID)
		if err != nil {
			return nil, fmt.Errorf("failed to get arrivals for %s: %w", stop.Name, err)
		}
		groups = append(groups, ArrivalGroup{
			Name:     stop.Name,
			Arrivals: transit.FilterRoutes(arrivals, stop.Routes),
		})
	}

	doc, err := RenderTemplate(p.resources.Template, now, forecast, groups)
	if err != nil {
		return nil, err
	}
	return raster.Rasterize(doc, p.resources.Fonts)
}

// Render produces the dashboard encoded as format.
func (p *Pipeline) Render(ctx context.Context, format string) (*Output, error) {
	out := &Output{ID: uuid.New().String(), Format: format}
	start := time.Now()

	body, err := p.encode(ctx, format)
	out.Duration = time.Since(start)
	if err != nil {
		log.Printf("render %s failed: %v", out.ID, err)
		if p.observer != nil {
			p.observer.RenderFailed(out.ID, format, err)
		}
		return nil, err
	}
	out.Body = body
	log.Printf("render %s: %d bytes of %s in %s", out.ID, len(body), format, out.Duration)
	if p.observer != nil {
		p.observer.RenderCompleted(out.ID, format, len(body), out.Duration)
	}
	return out, nil
}

func (p *Pipeline) encode(ctx context.Context, format string) ([]byte, error) {
	if format != FormatPNG && format != FormatRaw {
		return nil, fmt.Errorf("unknown format %q", format)
	}
	dc, err := p.Image(ctx)
	if err != nil {
		return nil, err
	}
	if format == FormatRaw {
		return raster.PackMonochrome(dc.Image())
	}
	buf := new(bytes.Buffer)
	if err := raster.EncodePNG(buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
