package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-matrix/internal/common"
	"github.com/i474232898/weather-matrix/internal/weather"
)

// WeatherAPIProvider implements weather.Provider for WeatherAPI.com.
type WeatherAPIProvider struct {
	endpoints
	name    string
	apiKey  string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewWeatherAPIProvider(httpCfg HTTPClientConfig, apiKey string, opts ...Option) *WeatherAPIProvider {
	p := &WeatherAPIProvider{
		endpoints: endpoints{
			baseURL: "https://api.weatherapi.com/v1",
		},
		name:    NameWeatherAPI,
		apiKey:  apiKey,
		httpCfg: httpCfg,
		circuit: newBreaker(NameWeatherAPI),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&p.endpoints)
	}
	if p.geoURL == "" {
		p.geoURL = p.baseURL
	}
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) ResolveLocation(ctx context.Context, place weather.Place) (weather.Coordinates, error) {
	values, err := p.values(place.Query())
	if err != nil {
		return weather.Coordinates{}, err
	}

	var payload []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(p.geoURL+"/search.json?"+values.Encode()), &payload); err != nil {
		return weather.Coordinates{}, err
	}
	if len(payload) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: %s", weather.ErrLocationNotFound, place.Query())
	}
	return weather.Coordinates{Lat: payload[0].Lat, Lon: payload[0].Lon}, nil
}

type waCondition struct {
	Text string `json:"text"`
}

func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.CurrentConditions, error) {
	values, err := p.values(latLon(coords))
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	var payload struct {
		Current *struct {
			LastUpdatedEpoch int64       `json:"last_updated_epoch"`
			TempC            float64     `json:"temp_c"`
			TempF            float64     `json:"temp_f"`
			Humidity         int         `json:"humidity"`
			Condition        waCondition `json:"condition"`
		} `json:"current"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(p.baseURL+"/current.json?"+values.Encode()), &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	c := payload.Current
	if c == nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: weatherapi response has no current block", weather.ErrParse)
	}

	ts := time.Unix(c.LastUpdatedEpoch, 0)
	if c.LastUpdatedEpoch == 0 {
		ts = p.now()
	}
	return weather.CurrentConditions{
		Temperature: pickTemp(units, c.TempC, c.TempF),
		Humidity:    c.Humidity,
		Condition:   mapWeatherAPICondition(c.Condition.Text),
		Description: strings.ToLower(strings.TrimSpace(c.Condition.Text)),
		Timestamp:   ts,
	}, nil
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, coords weather.Coordinates, units weather.Units) ([]weather.RawForecastSample, error) {
	values, err := p.values(latLon(coords))
	if err != nil {
		return nil, err
	}
	values.Set("days", "3")
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload struct {
		Forecast *struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch int64       `json:"time_epoch"`
					TempC     float64     `json:"temp_c"`
					TempF     float64     `json:"temp_f"`
					Condition waCondition `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, newGet(p.baseURL+"/forecast.json?"+values.Encode()), &payload); err != nil {
		return nil, err
	}
	if payload.Forecast == nil {
		return nil, fmt.Errorf("%w: weatherapi response has no forecast block", weather.ErrParse)
	}

	var hourly []weather.RawForecastSample
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			hourly = append(hourly, weather.RawForecastSample{
				Timestamp:   time.Unix(h.TimeEpoch, 0),
				Temperature: pickTemp(units, h.TempC, h.TempF),
				Condition:   mapWeatherAPICondition(h.Condition.Text),
			})
		}
	}
	return threeHourly(hourly, p.now()), nil
}

func (p *WeatherAPIProvider) values(q string) (url.Values, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: weatherapi api key is not configured", weather.ErrAuth)
	}
	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", q)
	return values, nil
}

func latLon(c weather.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

func pickTemp(units weather.Units, c, f float64) float64 {
	if units == weather.UnitsMetric {
		return c
	}
	return f
}

func mapWeatherAPICondition(text string) weather.Condition {
	t := strings.TrimSpace(text)
	switch {
	case t == "":
		return weather.ConditionUnknown
	case common.ContainsAny(t, "thunder", "storm"):
		return weather.ConditionStorm
	case common.ContainsAny(t, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.ContainsAny(t, "drizzle"):
		return weather.ConditionDrizzle
	case common.ContainsAny(t, "rain", "shower"):
		return weather.ConditionRain
	case common.ContainsAny(t, "mist", "fog", "haze"):
		return weather.ConditionMist
	case common.ContainsAny(t, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.ContainsAny(t, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}

var _ weather.Provider = (*WeatherAPIProvider)(nil)
