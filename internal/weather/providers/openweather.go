package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-matrix/internal/weather"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap's free
// current weather, 5 day / 3 hour forecast and direct geocoding APIs.
type OpenWeatherProvider struct {
	endpoints
	name    string
	apiKey  string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(httpCfg HTTPClientConfig, apiKey string, opts ...Option) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		endpoints: endpoints{
			baseURL: "https://api.openweathermap.org/data/2.5",
			geoURL:  "https://api.openweathermap.org/geo/1.0",
		},
		name:    NameOpenWeather,
		apiKey:  apiKey,
		httpCfg: httpCfg,
		circuit: newBreaker(NameOpenWeather),
	}
	for _, opt := range opts {
		opt(&p.endpoints)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) ResolveLocation(ctx context.Context, place weather.Place) (weather.Coordinates, error) {
	if p.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrAuth)
	}

	values := url.Values{}
	values.Set("q", place.Query())
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	var payload []struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(p.geoURL+"/direct?"+values.Encode()), &payload); err != nil {
		return weather.Coordinates{}, err
	}
	if len(payload) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: %s", weather.ErrLocationNotFound, place.Query())
	}
	return weather.Coordinates{Lat: payload[0].Lat, Lon: payload[0].Lon}, nil
}

type owCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.CurrentConditions, error) {
	u, err := p.dataURL("/weather", coords, units)
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []owCondition `json:"weather"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(u), &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	if payload.Main == nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: openweather current response has no main block", weather.ErrParse)
	}

	ts := time.Unix(payload.Dt, 0)
	if payload.Dt == 0 {
		ts = time.Now()
	}

	current := weather.CurrentConditions{
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		Condition:   weather.ConditionUnknown,
		Timestamp:   ts,
	}
	if len(payload.Weather) > 0 {
		current.Condition = mapOpenWeatherCondition(payload.Weather[0].Main)
		current.Description = payload.Weather[0].Description
	}
	return current, nil
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, coords weather.Coordinates, units weather.Units) ([]weather.RawForecastSample, error) {
	u, err := p.dataURL("/forecast", coords, units)
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []owCondition `json:"weather"`
		} `json:"list"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(u), &payload); err != nil {
		return nil, err
	}
	if payload.List == nil {
		return nil, fmt.Errorf("%w: openweather forecast response has no list", weather.ErrParse)
	}

	samples := make([]weather.RawForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		cond := weather.ConditionUnknown
		if len(item.Weather) > 0 {
			cond = mapOpenWeatherCondition(item.Weather[0].Main)
		}
		samples = append(samples, weather.RawForecastSample{
			Timestamp:   time.Unix(item.Dt, 0),
			Temperature: item.Main.Temp,
			Condition:   cond,
		})
	}
	return samples, nil
}

func (p *OpenWeatherProvider) dataURL(path string, coords weather.Coordinates, units weather.Units) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: openweather api key is not configured", weather.ErrAuth)
	}
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	values.Set("units", string(units))
	values.Set("appid", p.apiKey)
	return p.baseURL + path + "?" + values.Encode(), nil
}

func mapOpenWeatherCondition(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm", "Squall", "Tornado":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)
