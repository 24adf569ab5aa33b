package weather

import (
	"context"
	"time"
)

// Locator resolves a configured place to coordinates.
type Locator interface {
	ResolveLocation(ctx context.Context, place Place) (Coordinates, error)
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap).
// Implementations wrap failures with ErrNetwork, ErrAuth, ErrParse, ErrTimeout
// or ErrLocationNotFound.
type Provider interface {
	Locator
	FetchCurrent(ctx context.Context, coords Coordinates, units Units) (CurrentConditions, error)
	FetchForecast(ctx context.Context, coords Coordinates, units Units) ([]RawForecastSample, error)
}

// Recorder receives every snapshot the cache publishes.
type Recorder interface {
	SaveSnapshot(place Place, snapshot Snapshot)
}

// Store is the contract the in-memory store (and the Redis store) must satisfy.
type Store interface {
	Recorder
	GetLatest(place Place) (Snapshot, error)
	GetRange(place Place, from, to time.Time) ([]Snapshot, error)
}

// WithLocator returns a Provider that resolves places through l and fetches
// weather through p.
func WithLocator(p Provider, l Locator) Provider {
	if l == nil {
		return p
	}
	return &locatedProvider{Provider: p, locator: l}
}

type locatedProvider struct {
	Provider
	locator Locator
}

func (lp *locatedProvider) ResolveLocation(ctx context.Context, place Place) (Coordinates, error) {
	return lp.locator.ResolveLocation(ctx, place)
}
