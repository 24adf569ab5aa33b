package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-matrix/internal/logger"
	"github.com/i474232898/weather-matrix/internal/weather"
)

const DefaultConfigFile = "config/config.yaml"

type Config struct {
	Weather WeatherConfig `yaml:"weather"`
	Display DisplayConfig `yaml:"display"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
}

type WeatherConfig struct {
	Provider       string        `yaml:"provider" validate:"oneof=openweathermap openweather openmeteo weatherapi"`
	APIKey         string        `yaml:"api_key"`
	Units          weather.Units `yaml:"units" validate:"oneof=imperial metric"`
	UpdateInterval Duration      `yaml:"update_interval" validate:"gt=0"`
	FetchTimeout   Duration      `yaml:"fetch_timeout" validate:"gt=0"`
	Location       weather.Place `yaml:"location"`
	// Coordinates skips geocoding when set.
	Coordinates    *weather.Coordinates `yaml:"coordinates"`
	GeocoderAPIKey string               `yaml:"geocoder_api_key"`
}

type DisplayConfig struct {
	Rows             int      `yaml:"rows" validate:"gt=0"`
	Cols             int      `yaml:"cols" validate:"gt=0"`
	ChainLength      int      `yaml:"chain_length" validate:"gt=0"`
	Brightness       int      `yaml:"brightness" validate:"min=1,max=100"`
	RotationInterval Duration `yaml:"rotation_interval" validate:"gt=0"`
	FrameInterval    Duration `yaml:"frame_interval" validate:"gt=0"`
	// Output is the PNG file frames are written to. Empty discards frames.
	Output string `yaml:"output"`
}

type StoreConfig struct {
	MaxHistory    int      `yaml:"max_history" validate:"gte=0"`
	MaxAge        Duration `yaml:"max_age" validate:"gte=0"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	RedisDB       int      `yaml:"redis_db" validate:"gte=0"`
}

type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Weather: WeatherConfig{
			Provider:       "openweathermap",
			Units:          weather.UnitsImperial,
			UpdateInterval: Duration(weather.DefaultRefreshInterval),
			FetchTimeout:   Duration(weather.DefaultFetchTimeout),
		},
		Display: DisplayConfig{
			Rows:             32,
			Cols:             64,
			ChainLength:      2,
			Brightness:       50,
			RotationInterval: Duration(10 * time.Second),
			FrameInterval:    Duration(100 * time.Millisecond),
		},
		Store: StoreConfig{
			MaxHistory: 96, // a day of snapshots at 15-minute intervals
			MaxAge:     Duration(24 * time.Hour),
		},
		Server: ServerConfig{Port: "8080"},
	}
}

// Load reads .env, the YAML file named by CONFIG_FILE (optional) and
// environment overrides, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger().Debugw("No .env file loaded", "error", err)
	}
	return LoadFrom(getenvDefault("CONFIG_FILE", DefaultConfigFile))
}

// LoadFrom is Load without the .env step. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Weather.Coordinates == nil && strings.TrimSpace(c.Weather.Location.City) == "" {
		return errors.New("invalid config: weather.location.city is required unless coordinates are set")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	w := &cfg.Weather
	setString(&w.Provider, "WEATHER_PROVIDER")
	setString(&w.APIKey, "WEATHER_API_KEY")
	if v := os.Getenv("WEATHER_UNITS"); v != "" {
		w.Units = weather.Units(strings.ToLower(v))
	}
	setString(&w.Location.City, "WEATHER_LOCATION_CITY")
	setString(&w.Location.State, "WEATHER_LOCATION_STATE")
	setString(&w.Location.Country, "WEATHER_LOCATION_COUNTRY")
	setString(&w.GeocoderAPIKey, "GEOCODER_API_KEY")

	lat, lon := os.Getenv("WEATHER_LATITUDE"), os.Getenv("WEATHER_LONGITUDE")
	if lat != "" || lon != "" {
		c, err := parseCoordinates(lat, lon)
		if err != nil {
			return err
		}
		w.Coordinates = c
	}

	d := &cfg.Display
	s := &cfg.Store
	errs := []error{
		setDuration(&w.UpdateInterval, "WEATHER_UPDATE_INTERVAL"),
		setDuration(&w.FetchTimeout, "WEATHER_FETCH_TIMEOUT"),
		setInt(&d.Rows, "DISPLAY_ROWS"),
		setInt(&d.Cols, "DISPLAY_COLS"),
		setInt(&d.ChainLength, "DISPLAY_CHAIN_LENGTH"),
		setInt(&d.Brightness, "DISPLAY_BRIGHTNESS"),
		setDuration(&d.RotationInterval, "DISPLAY_ROTATION_INTERVAL"),
		setDuration(&d.FrameInterval, "DISPLAY_FRAME_INTERVAL"),
		setInt(&s.MaxHistory, "STORE_MAX_HISTORY"),
		setDuration(&s.MaxAge, "STORE_MAX_AGE"),
		setInt(&s.RedisDB, "REDIS_DB"),
	}
	setString(&d.Output, "DISPLAY_OUTPUT")
	setString(&s.RedisAddr, "REDIS_ADDR")
	setString(&s.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Server.Port, "PORT")

	return errors.Join(errs...)
}

func parseCoordinates(lat, lon string) (*weather.Coordinates, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_LATITUDE: %w", err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_LONGITUDE: %w", err)
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil, fmt.Errorf("coordinates out of range: %s,%s", lat, lon)
	}
	return &weather.Coordinates{Lat: la, Lon: lo}, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

// setDuration accepts Go durations ("5m") or plain seconds ("300").
func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
