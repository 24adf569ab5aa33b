package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-matrix/internal/weather"
)

// OpenMeteoProvider implements weather.Provider for Open-Meteo. It needs no
// API key and geocodes through Open-Meteo's own search endpoint.
type OpenMeteoProvider struct {
	endpoints
	name    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewOpenMeteoProvider(httpCfg HTTPClientConfig, opts ...Option) *OpenMeteoProvider {
	p := &OpenMeteoProvider{
		endpoints: endpoints{
			baseURL: "https://api.open-meteo.com/v1",
			geoURL:  "https://geocoding-api.open-meteo.com/v1",
		},
		name:    NameOpenMeteo,
		httpCfg: httpCfg,
		circuit: newBreaker(NameOpenMeteo),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&p.endpoints)
	}
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) ResolveLocation(ctx context.Context, place weather.Place) (weather.Coordinates, error) {
	values := url.Values{}
	values.Set("name", place.City)
	values.Set("count", "10")
	values.Set("language", "en")
	values.Set("format", "json")

	var payload struct {
		Results []struct {
			Latitude    float64 `json:"latitude"`
			Longitude   float64 `json:"longitude"`
			Admin1      string  `json:"admin1"`
			Country     string  `json:"country"`
			CountryCode string  `json:"country_code"`
		} `json:"results"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(p.geoURL+"/search?"+values.Encode()), &payload); err != nil {
		return weather.Coordinates{}, err
	}

	// search is by name only, narrow by state and country when given
	for _, r := range payload.Results {
		if place.State != "" && !strings.EqualFold(r.Admin1, place.State) {
			continue
		}
		if place.Country != "" && !strings.EqualFold(r.CountryCode, place.Country) && !strings.EqualFold(r.Country, place.Country) {
			continue
		}
		return weather.Coordinates{Lat: r.Latitude, Lon: r.Longitude}, nil
	}
	return weather.Coordinates{}, fmt.Errorf("%w: %s", weather.ErrLocationNotFound, place.Query())
}

func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.CurrentConditions, error) {
	values := p.forecastValues(coords, units)
	values.Set("current", "temperature_2m,relative_humidity_2m,weather_code")

	var payload struct {
		Current *struct {
			Time        int64   `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			Humidity    int     `json:"relative_humidity_2m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(p.baseURL+"/forecast?"+values.Encode()), &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	if payload.Current == nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: openmeteo response has no current block", weather.ErrParse)
	}

	return weather.CurrentConditions{
		Temperature: payload.Current.Temperature,
		Humidity:    payload.Current.Humidity,
		Condition:   mapOpenMeteoCondition(payload.Current.WeatherCode),
		Description: openMeteoDescription(payload.Current.WeatherCode),
		Timestamp:   time.Unix(payload.Current.Time, 0),
	}, nil
}

// FetchForecast thins Open-Meteo's hourly series to one sample every three
// hours from the current hour on.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, coords weather.Coordinates, units weather.Units) ([]weather.RawForecastSample, error) {
	values := p.forecastValues(coords, units)
	values.Set("hourly", "temperature_2m,weather_code")
	values.Set("forecast_days", "5")

	var payload struct {
		Hourly *struct {
			Time        []int64   `json:"time"`
			Temperature []float64 `json:"temperature_2m"`
			WeatherCode []int     `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(p.baseURL+"/forecast?"+values.Encode()), &payload); err != nil {
		return nil, err
	}
	h := payload.Hourly
	if h == nil {
		return nil, fmt.Errorf("%w: openmeteo response has no hourly block", weather.ErrParse)
	}
	if len(h.Temperature) != len(h.Time) || len(h.WeatherCode) != len(h.Time) {
		return nil, fmt.Errorf("%w: openmeteo hourly series lengths differ", weather.ErrParse)
	}

	hourly := make([]weather.RawForecastSample, len(h.Time))
	for i := range h.Time {
		hourly[i] = weather.RawForecastSample{
			Timestamp:   time.Unix(h.Time[i], 0),
			Temperature: h.Temperature[i],
			Condition:   mapOpenMeteoCondition(h.WeatherCode[i]),
		}
	}
	return threeHourly(hourly, p.now()), nil
}

func (p *OpenMeteoProvider) forecastValues(coords weather.Coordinates, units weather.Units) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	values.Set("timeformat", "unixtime")
	if units == weather.UnitsImperial {
		values.Set("temperature_unit", "fahrenheit")
	}
	return values
}

// WMO weather interpretation codes.
func mapOpenMeteoCondition(code int) weather.Condition {
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case code >= 51 && code <= 57:
		return weather.ConditionDrizzle
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func openMeteoDescription(code int) string {
	switch mapOpenMeteoCondition(code) {
	case weather.ConditionClear:
		return "clear sky"
	case weather.ConditionCloudy:
		if code == 3 {
			return "overcast"
		}
		return "partly cloudy"
	case weather.ConditionMist:
		return "fog"
	case weather.ConditionDrizzle:
		return "drizzle"
	case weather.ConditionRain:
		return "rain"
	case weather.ConditionSnow:
		return "snow"
	case weather.ConditionStorm:
		return "thunderstorm"
	default:
		return ""
	}
}

var _ weather.Provider = (*OpenMeteoProvider)(nil)
