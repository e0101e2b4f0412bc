package weather

import (
	"errors"
	"fmt"
	"time"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

// Forecast is the reduced view of the day drawn on the dashboard.
type Forecast struct {
	Temp         float64   `json:"temp"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	HourlyPrecip []float64 `json:"hourly_precip"`
}

// CachedForecast is the persisted cache entry.
type CachedForecast struct {
	Weather    Forecast `json:"weather"`
	Expiry     int64    `json:"expiry"`
	StartOfDay int64    `json:"start_of_day"`
}

// StartOfDay returns local midnight of the day containing now, in now's location.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Summarize reduces a raw forecast to a Forecast.
// Each hourly entry must sit exactly i whole hours after startOfDay.
func Summarize(raw *RawForecast, startOfDay int64) (Forecast, error) {
	hourly := raw.Hourly.Data
	if len(hourly) == 0 {
		return Forecast{}, &dasherr.ParseError{Source: sourceName, Err: errors.New("hourly series is empty")}
	}

	for i, point := range hourly {
		hours := (point.Time - startOfDay) / 3600
		if hours != int64(i) {
			return Forecast{}, &dasherr.ParseError{
				Source: sourceName,
				Err:    fmt.Errorf("hourly entry %d is %d hours after start of day", i, hours),
			}
		}
	}

	high := hourly[0].Temperature
	low := hourly[0].Temperature
	precip := make([]float64, 0, len(hourly))
	for _, point := range hourly {
		if point.Temperature > high {
			high = point.Temperature
		}
		if point.Temperature < low {
			low = point.Temperature
		}
		precip = append(precip, point.PrecipProbability)
	}

	return Forecast{
		Temp:         raw.Currently.Temperature,
		High:         high,
		Low:          low,
		HourlyPrecip: precip,
	}, nil
}
