package weather

import (
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionDrizzle Condition = "drizzle"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Units selects the unit system requested from the provider.
type Units string

const (
	UnitsImperial Units = "imperial"
	UnitsMetric   Units = "metric"
)

// Symbol returns the temperature suffix drawn next to values.
func (u Units) Symbol() string {
	if u == UnitsMetric {
		return "°C"
	}
	return "°F"
}

// Place is the configured city the display tracks.
// City must be provided; State and Country narrow the geocoding query.
type Place struct {
	City    string `json:"city" yaml:"city"`
	State   string `json:"state,omitempty" yaml:"state"`
	Country string `json:"country,omitempty" yaml:"country"`
}

// Key returns a canonical string key for indexing this place in stores.
func (p Place) Key() string {
	return p.City + ":" + p.State + ":" + p.Country
}

// Query returns the comma separated form used by geocoding APIs.
func (p Place) Query() string {
	parts := []string{p.City}
	if p.State != "" {
		parts = append(parts, p.State)
	}
	if p.Country != "" {
		parts = append(parts, p.Country)
	}
	return strings.Join(parts, ",")
}

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// RawForecastSample is one 3-hour forecast bucket as delivered by a provider.
// The timestamp's location is the local time used for labels and day grouping.
type RawForecastSample struct {
	Timestamp   time.Time
	Temperature float64
	Condition   Condition
}

// HourlyEntry is one tile of the hourly scroll.
type HourlyEntry struct {
	Hour        string    `json:"hour"`
	Temperature int       `json:"temperature"`
	Condition   Condition `json:"condition"`
}

// DailyEntry summarizes every sample that falls on one calendar date.
type DailyEntry struct {
	Day       string    `json:"day"`
	Date      string    `json:"date"`
	High      int       `json:"high"`
	Low       int       `json:"low"`
	Condition Condition `json:"condition"`
}

// CurrentConditions is the provider's "right now" reading.
type CurrentConditions struct {
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidityPercent"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Snapshot is the cached, aggregated view of current and forecast weather.
// A Snapshot is never mutated after the cache publishes it.
type Snapshot struct {
	ID        string            `json:"id"`
	Location  Place             `json:"location"`
	Units     Units             `json:"units"`
	Current   CurrentConditions `json:"current"`
	Hourly    []HourlyEntry     `json:"hourly"`
	Daily     []DailyEntry      `json:"daily"`
	FetchedAt time.Time         `json:"fetchedAt"`
}
