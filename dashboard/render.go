package dashboard

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
	"github.com/stuartleeks/home-dash/epaper-dash/scene"
	"github.com/stuartleeks/home-dash/epaper-dash/transit"
	"github.com/stuartleeks/home-dash/epaper-dash/weather"
)

// MaxArrivalRows is the number of arrival rows each group has in the template.
const MaxArrivalRows = 4

const (
	precipTimeMarker = `id="precip-time" x="50%"`
	precipLinesID    = "precip-lines"

	clockLayout = "3:04 PM"
)

// ArrivalGroup names a block of arrival rows in the template ({Name}-1 to
// {Name}-4) and the arrivals to show in it, already filtered and in display order.
type ArrivalGroup struct {
	Name     string
	Arrivals []transit.Arrival
}

// DayFraction is the share of the day elapsed at now's wall clock.
func DayFraction(now time.Time) float32 {
	seconds := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return float32(seconds) / 86400
}

// RenderTemplate fills a copy of template with the time, forecast and arrivals.
func RenderTemplate(template []byte, now time.Time, forecast weather.Forecast, groups []ArrivalGroup) (*scene.Document, error) {
	if !bytes.Contains(template, []byte(precipTimeMarker)) {
		return nil, &dasherr.TemplateContractError{NodeID: "precip-time", Reason: fmt.Sprintf("marker %s not found", precipTimeMarker)}
	}
	percent := strconv.FormatFloat(float64(DayFraction(now)*100), 'f', -1, 32)
	filled := bytes.ReplaceAll(template, []byte(precipTimeMarker), []byte(`id="precip-time" x="`+percent+`%"`))

	doc, err := scene.Parse(filled)
	if err != nil {
		return nil, err
	}

	texts := []struct {
		id   string
		runs []string
	}{
		{"text-time", []string{strings.ToLower(now.Format(clockLayout))}},
		{"text-date", []string{now.Format("Monday"), now.Format("Jan 2")}},
		{"text-curr-temp", []string{fmt.Sprintf("%.0f", forecast.Temp)}},
		{"text-hi-lo-temp", []string{fmt.Sprintf("%.0f", forecast.High), fmt.Sprintf("%.0f", forecast.Low)}},
	}
	for _, t := range texts {
		if err := setText(doc, t.id, t.runs...); err != nil {
			return nil, err
		}
	}

	if err := setPrecipitation(doc, forecast.HourlyPrecip); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if err := setArrivals(doc, g); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func setText(doc *scene.Document, id string, runs ...string) error {
	text, err := doc.TextByID(id)
	if err != nil {
		return err
	}
	for i, s := range runs {
		if err := text.SetRun(i, s); err != nil {
			return err
		}
	}
	return nil
}

// setPrecipitation scales bar i of the chart to the chance of rain in hour i. Bars
// without a matching hour are flattened.
func setPrecipitation(doc *scene.Document, hourly []float64) error {
	lines, err := doc.GroupByID(precipLinesID)
	if err != nil {
		return err
	}
	for i, child := range lines.Children {
		bar, ok := child.(*scene.Group)
		if !ok {
			return &dasherr.TemplateContractError{
				NodeID: precipLinesID,
				Reason: fmt.Sprintf("child %d is a %s node, want group", i, child.Kind()),
			}
		}
		p := 0.0
		if i < len(hourly) {
			p = hourly[i]
		}
		bar.SetScaleY(p)
	}
	return nil
}

func setArrivals(doc *scene.Document, g ArrivalGroup) error {
	for i := len(g.Arrivals) + 1; i <= MaxArrivalRows; i++ {
		row, err := doc.GroupByID(fmt.Sprintf("%s-%d", g.Name, i))
		if err != nil {
			return err
		}
		row.SetOpacity(0)
	}
	for i, a := range g.Arrivals {
		if i == MaxArrivalRows {
			break
		}
		row := i + 1
		if err := setText(doc, fmt.Sprintf("%s-%d-route", g.Name, row), strconv.Itoa(a.RouteNumber)); err != nil {
			return err
		}
		if err := setText(doc, fmt.Sprintf("%s-%d-time", g.Name, row), a.ArrivalTime.Format(clockLayout)); err != nil {
			return err
		}
	}
	return nil
}
