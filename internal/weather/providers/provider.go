package providers

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-matrix/internal/weather"
)

const (
	NameOpenWeather = "openweathermap"
	NameOpenMeteo   = "openmeteo"
	NameWeatherAPI  = "weatherapi"
)

type endpoints struct {
	baseURL string
	geoURL  string
}

// Option overrides provider endpoints, mostly for tests.
type Option func(*endpoints)

func BaseURLOption(u string) Option {
	return func(e *endpoints) {
		e.baseURL = u
	}
}

func GeoURLOption(u string) Option {
	return func(e *endpoints) {
		e.geoURL = u
	}
}

// New builds the provider registered under name.
func New(name string, httpCfg HTTPClientConfig, apiKey string, opts ...Option) (weather.Provider, error) {
	switch name {
	case NameOpenWeather, "openweather", "":
		return NewOpenWeatherProvider(httpCfg, apiKey, opts...), nil
	case NameOpenMeteo:
		return NewOpenMeteoProvider(httpCfg, opts...), nil
	case NameWeatherAPI:
		return NewWeatherAPIProvider(httpCfg, apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", name)
	}
}

// threeHourly keeps every third hourly sample starting at the hour containing
// from, so hourly providers line up with 3-hour bucket semantics.
func threeHourly(hourly []weather.RawForecastSample, from time.Time) []weather.RawForecastSample {
	start := from.Truncate(time.Hour)
	out := make([]weather.RawForecastSample, 0, len(hourly)/3+1)
	n := 0
	for _, s := range hourly {
		if s.Timestamp.Before(start) {
			continue
		}
		if n%3 == 0 {
			out = append(out, s)
		}
		n++
	}
	return out
}
