// Package geocode resolves configured places through the Google Geocoding API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-matrix/internal/common"
	"github.com/i474232898/weather-matrix/internal/weather"
)

// geocoder keeps its key in a package variable and reads it when a lookup
// starts. Lookups that share a key run concurrently; a different key waits
// until no lookup is in flight, or until its context ends.
//
// geocoder uses http.DefaultClient, which has no timeout, so a hung lookup
// keeps its goroutine and its key lease after the caller's context expires.
var apiKey = &keyLease{idle: closedChan()}

type keyLease struct {
	mu       sync.Mutex
	key      string
	inflight int
	idle     chan struct{}
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

func (l *keyLease) acquire(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		if l.inflight == 0 || l.key == key {
			if l.inflight == 0 {
				l.idle = make(chan struct{})
			}
			l.key = key
			l.inflight++
			geocoder.ApiKey = key
			l.mu.Unlock()
			return nil
		}
		idle := l.idle
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

func (l *keyLease) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	if l.inflight == 0 {
		close(l.idle)
	}
}

// GoogleLocator implements weather.Locator. Use it when the weather
// provider's own geocoding is too coarse for the configured place.
type GoogleLocator struct {
	apiKey  string
	resolve func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleLocator(apiKey string) *GoogleLocator {
	return &GoogleLocator{apiKey: apiKey, resolve: geocoder.Geocoding}
}

func (g *GoogleLocator) ResolveLocation(ctx context.Context, place weather.Place) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("%w: google geocoding api key is not configured", weather.ErrAuth)
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	if err := apiKey.acquire(ctx, g.apiKey); err != nil {
		return weather.Coordinates{}, contextError(place, err)
	}
	done := make(chan result, 1)
	go func() {
		defer apiKey.release()
		loc, err := g.resolve(geocoder.Address{
			City:    place.City,
			State:   place.State,
			Country: place.Country,
		})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, contextError(place, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return weather.Coordinates{}, classify(place, r.err)
		}
		if r.loc.Latitude == 0 && r.loc.Longitude == 0 {
			return weather.Coordinates{}, fmt.Errorf("%w: %s", weather.ErrLocationNotFound, place.Query())
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}

func contextError(place weather.Place, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: geocoding %s", weather.ErrTimeout, place.Query())
	}
	return fmt.Errorf("%w: %v", weather.ErrNetwork, err)
}

// classify maps Geocoding API status strings onto weather error kinds.
func classify(place weather.Place, err error) error {
	msg := err.Error()
	switch {
	case common.ContainsAny(msg, "zero_results", "no results", "empty"):
		return fmt.Errorf("%w: %s", weather.ErrLocationNotFound, place.Query())
	case common.ContainsAny(msg, "request_denied", "api key", "invalid key"):
		return fmt.Errorf("%w: %v", weather.ErrAuth, err)
	case common.ContainsAny(msg, "invalid character", "unexpected end", "json"):
		return fmt.Errorf("%w: %v", weather.ErrParse, err)
	default:
		return fmt.Errorf("%w: %v", weather.ErrNetwork, err)
	}
}

var _ weather.Locator = (*GoogleLocator)(nil)
