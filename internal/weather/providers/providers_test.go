package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-matrix/internal/weather"
)

var denver = weather.Place{City: "Denver", State: "CO", Country: "US"}

func testHTTPConfig(srv *httptest.Server) HTTPClientConfig {
	cfg := DefaultHTTPConfig(srv.Client())
	cfg.Limiter = nil
	return cfg
}

func serveJSON(t *testing.T, routes map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestOpenWeatherResolveLocation(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		fmt.Fprint(w, `[{"name":"Denver","lat":39.7392,"lon":-104.9903}]`)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testHTTPConfig(srv), "secret", GeoURLOption(srv.URL+"/geo/1.0"))
	coords, err := p.ResolveLocation(context.Background(), denver)
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Lat: 39.7392, Lon: -104.9903}, coords)
	assert.Equal(t, "Denver,CO,US", query)
}

func TestOpenWeatherResolveLocationNotFound(t *testing.T) {
	srv, _ := serveJSON(t, map[string]string{"/direct": `[]`})
	p := NewOpenWeatherProvider(testHTTPConfig(srv), "secret", GeoURLOption(srv.URL))

	_, err := p.ResolveLocation(context.Background(), denver)
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestOpenWeatherFetchCurrent(t *testing.T) {
	srv, _ := serveJSON(t, map[string]string{
		"/weather": `{"dt":1712592000,"main":{"temp":71.6,"humidity":40},"weather":[{"main":"Clouds","description":"broken clouds"}]}`,
	})
	p := NewOpenWeatherProvider(testHTTPConfig(srv), "secret", BaseURLOption(srv.URL))

	cur, err := p.FetchCurrent(context.Background(), weather.Coordinates{Lat: 39.7, Lon: -105}, weather.UnitsImperial)
	require.NoError(t, err)
	assert.Equal(t, 71.6, cur.Temperature)
	assert.Equal(t, 40, cur.Humidity)
	assert.Equal(t, weather.ConditionCloudy, cur.Condition)
	assert.Equal(t, "broken clouds", cur.Description)
	assert.Equal(t, int64(1712592000), cur.Timestamp.Unix())
}

func TestOpenWeatherFetchForecast(t *testing.T) {
	srv, _ := serveJSON(t, map[string]string{
		"/forecast": `{"list":[
			{"dt":1712592000,"main":{"temp":50.2},"weather":[{"main":"Rain"}]},
			{"dt":1712602800,"main":{"temp":48},"weather":[{"main":"Thunderstorm"}]},
			{"dt":1712613600,"main":{"temp":45},"weather":[]}
		]}`,
	})
	p := NewOpenWeatherProvider(testHTTPConfig(srv), "secret", BaseURLOption(srv.URL))

	samples, err := p.FetchForecast(context.Background(), weather.Coordinates{}, weather.UnitsMetric)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, weather.ConditionRain, samples[0].Condition)
	assert.Equal(t, weather.ConditionStorm, samples[1].Condition)
	assert.Equal(t, weather.ConditionUnknown, samples[2].Condition)
	assert.Equal(t, 50.2, samples[0].Temperature)
	assert.Equal(t, int64(1712602800), samples[1].Timestamp.Unix())
}

func TestOpenWeatherErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			want:    weather.ErrAuth,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    weather.ErrNetwork,
		},
		{
			name:    "throttled",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			want:    weather.ErrNetwork,
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"list":`) },
			want:    weather.ErrParse,
		},
		{
			name:    "missing list",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"cod":"200"}`) },
			want:    weather.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewOpenWeatherProvider(testHTTPConfig(srv), "secret", BaseURLOption(srv.URL))
			_, err := p.FetchForecast(context.Background(), weather.Coordinates{}, weather.UnitsImperial)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenWeatherMissingKeySkipsRequest(t *testing.T) {
	srv, hits := serveJSON(t, map[string]string{})
	p := NewOpenWeatherProvider(testHTTPConfig(srv), "", BaseURLOption(srv.URL), GeoURLOption(srv.URL))

	_, err := p.FetchCurrent(context.Background(), weather.Coordinates{}, weather.UnitsImperial)
	assert.ErrorIs(t, err, weather.ErrAuth)
	_, err = p.ResolveLocation(context.Background(), denver)
	assert.ErrorIs(t, err, weather.ErrAuth)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testHTTPConfig(srv), "secret", BaseURLOption(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.FetchCurrent(ctx, weather.Coordinates{}, weather.UnitsImperial)
	assert.ErrorIs(t, err, weather.ErrTimeout)
	assert.Equal(t, "timeout", weather.ErrorKind(err))
}

func TestRateLimiterWaitsForToken(t *testing.T) {
	srv, hits := serveJSON(t, map[string]string{"/direct": `[{"lat":1,"lon":2}]`})
	cfg := testHTTPConfig(srv)
	cfg.Limiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
	p := NewOpenWeatherProvider(cfg, "secret", GeoURLOption(srv.URL))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.ResolveLocation(context.Background(), denver)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestRateLimiterGivesUpPastDeadline(t *testing.T) {
	srv, hits := serveJSON(t, map[string]string{"/direct": `[{"lat":1,"lon":2}]`})
	cfg := testHTTPConfig(srv)
	cfg.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	p := NewOpenWeatherProvider(cfg, "secret", GeoURLOption(srv.URL))

	_, err := p.ResolveLocation(context.Background(), denver)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = p.ResolveLocation(ctx, denver)
	assert.ErrorIs(t, err, weather.ErrTimeout)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Less(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestBackoffRetriesNetworkErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"lat":1,"lon":2}]`)
	}))
	defer srv.Close()

	cfg := testHTTPConfig(srv)
	cfg.Backoff = BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	p := NewOpenWeatherProvider(cfg, "secret", GeoURLOption(srv.URL))

	coords, err := p.ResolveLocation(context.Background(), denver)
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Lat: 1, Lon: 2}, coords)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestBackoffDoesNotRetryAuth(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testHTTPConfig(srv)
	cfg.Backoff = BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond}
	p := NewOpenWeatherProvider(cfg, "secret", BaseURLOption(srv.URL))

	_, err := p.FetchCurrent(context.Background(), weather.Coordinates{}, weather.UnitsImperial)
	assert.ErrorIs(t, err, weather.ErrAuth)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenMeteoResolveNarrowsByStateAndCountry(t *testing.T) {
	srv, _ := serveJSON(t, map[string]string{
		"/search": `{"results":[
			{"latitude":1,"longitude":1,"admin1":"Ontario","country":"Canada","country_code":"CA"},
			{"latitude":39.74,"longitude":-104.98,"admin1":"Colorado","country":"United States","country_code":"US"}
		]}`,
	})
	p := NewOpenMeteoProvider(testHTTPConfig(srv), GeoURLOption(srv.URL))

	coords, err := p.ResolveLocation(context.Background(), weather.Place{City: "Denver", State: "Colorado", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Lat: 39.74, Lon: -104.98}, coords)

	_, err = p.ResolveLocation(context.Background(), weather.Place{City: "Denver", State: "Texas"})
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestOpenMeteoFetchCurrent(t *testing.T) {
	srv, _ := serveJSON(t, map[string]string{
		"/forecast": `{"current":{"time":1712592000,"temperature_2m":12.5,"relative_humidity_2m":81,"weather_code":61}}`,
	})
	p := NewOpenMeteoProvider(testHTTPConfig(srv), BaseURLOption(srv.URL))

	cur, err := p.FetchCurrent(context.Background(), weather.Coordinates{}, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, 12.5, cur.Temperature)
	assert.Equal(t, 81, cur.Humidity)
	assert.Equal(t, weather.ConditionRain, cur.Condition)
	assert.Equal(t, "rain", cur.Description)
}

func TestOpenMeteoForecastThinsToThreeHours(t *testing.T) {
	base := time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	times, temps, codes := "", "", ""
	for i := 0; i < 24; i++ {
		sep := ","
		if i == 0 {
			sep = ""
		}
		times += fmt.Sprintf("%s%d", sep, base.Add(time.Duration(i)*time.Hour).Unix())
		temps += fmt.Sprintf("%s%d", sep, i)
		codes += sep + "0"
	}
	srv, _ := serveJSON(t, map[string]string{
		"/forecast": fmt.Sprintf(`{"hourly":{"time":[%s],"temperature_2m":[%s],"weather_code":[%s]}}`, times, temps, codes),
	})
	p := NewOpenMeteoProvider(testHTTPConfig(srv), BaseURLOption(srv.URL))
	p.now = func() time.Time { return base.Add(10*time.Hour + 20*time.Minute) }

	samples, err := p.FetchForecast(context.Background(), weather.Coordinates{}, weather.UnitsImperial)
	require.NoError(t, err)

	var got []float64
	for _, s := range samples {
		got = append(got, s.Temperature)
		assert.Equal(t, weather.ConditionClear, s.Condition)
	}
	assert.Equal(t, []float64{10, 13, 16, 19, 22}, got)
}

func TestOpenMeteoForecastLengthMismatch(t *testing.T) {
	srv, _ := serveJSON(t, map[string]string{
		"/forecast": `{"hourly":{"time":[1,2],"temperature_2m":[1],"weather_code":[0,0]}}`,
	})
	p := NewOpenMeteoProvider(testHTTPConfig(srv), BaseURLOption(srv.URL))

	_, err := p.FetchForecast(context.Background(), weather.Coordinates{}, weather.UnitsImperial)
	assert.ErrorIs(t, err, weather.ErrParse)
}

func TestWeatherAPIFetch(t *testing.T) {
	base := time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	srv, _ := serveJSON(t, map[string]string{
		"/current.json": `{"current":{"last_updated_epoch":1712592000,"temp_c":20,"temp_f":68,"humidity":33,"condition":{"text":"Partly cloudy"}}}`,
		"/forecast.json": fmt.Sprintf(`{"forecast":{"forecastday":[{"hour":[
			{"time_epoch":%d,"temp_c":1,"temp_f":34,"condition":{"text":"Light snow"}},
			{"time_epoch":%d,"temp_c":2,"temp_f":36,"condition":{"text":"Mist"}},
			{"time_epoch":%d,"temp_c":3,"temp_f":37,"condition":{"text":"Patchy light drizzle"}},
			{"time_epoch":%d,"temp_c":4,"temp_f":39,"condition":{"text":"Moderate rain"}}
		]}]}}`, base.Unix(), base.Add(time.Hour).Unix(), base.Add(2*time.Hour).Unix(), base.Add(3*time.Hour).Unix()),
	})
	p := NewWeatherAPIProvider(testHTTPConfig(srv), "key", BaseURLOption(srv.URL))
	p.now = func() time.Time { return base }

	cur, err := p.FetchCurrent(context.Background(), weather.Coordinates{Lat: 1, Lon: 2}, weather.UnitsImperial)
	require.NoError(t, err)
	assert.Equal(t, 68.0, cur.Temperature)
	assert.Equal(t, weather.ConditionCloudy, cur.Condition)
	assert.Equal(t, "partly cloudy", cur.Description)

	samples, err := p.FetchForecast(context.Background(), weather.Coordinates{Lat: 1, Lon: 2}, weather.UnitsMetric)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 1.0, samples[0].Temperature)
	assert.Equal(t, weather.ConditionSnow, samples[0].Condition)
	assert.Equal(t, weather.ConditionRain, samples[1].Condition)
}

func TestWeatherAPIConditionMapping(t *testing.T) {
	cases := map[string]weather.Condition{
		"":                               weather.ConditionUnknown,
		"Sunny":                          weather.ConditionClear,
		"Overcast":                       weather.ConditionCloudy,
		"Freezing fog":                   weather.ConditionMist,
		"Thundery outbreaks possible":    weather.ConditionStorm,
		"Patchy light rain with thunder": weather.ConditionStorm,
		"Light sleet":                    weather.ConditionSnow,
		"Light drizzle":                  weather.ConditionDrizzle,
		"Torrential rain shower":         weather.ConditionRain,
		"Volcanic ash":                   weather.ConditionUnknown,
	}
	for text, want := range cases {
		assert.Equal(t, want, mapWeatherAPICondition(text), text)
	}
}

func TestNewByName(t *testing.T) {
	cfg := DefaultHTTPConfig(nil)
	for _, name := range []string{"", "openweather", NameOpenWeather, NameOpenMeteo, NameWeatherAPI} {
		p, err := New(name, cfg, "key")
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}

	_, err := New("darksky", cfg, "key")
	require.Error(t, err)
	assert.False(t, errors.Is(err, weather.ErrAuth))
}
