package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-matrix/internal/weather"
)

var (
	// ErrNotFound is returned when no snapshot is stored for a place.
	ErrNotFound = errors.New("no weather snapshots for location")
)

// MemoryStore keeps a bounded, time-ordered snapshot history per place.
type MemoryStore struct {
	mu sync.RWMutex

	// keyed by Place.Key()
	data map[string][]weather.Snapshot

	maxHistory int           // <= 0 means unlimited
	maxAge     time.Duration // <= 0 means unlimited
	now        func() time.Time
}

func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]weather.Snapshot),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a snapshot and enforces retention. The newest snapshot
// is always kept.
func (s *MemoryStore) SaveSnapshot(place weather.Place, snapshot weather.Snapshot) {
	key := place.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[key], snapshot)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for i < len(history)-1 && history[i].FetchedAt.Before(cutoff) {
			i++
		}
		history = history[i:]
	}

	s.data[key] = history
}

func (s *MemoryStore) GetLatest(place weather.Place) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[place.Key()]
	if len(history) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// GetRange returns snapshots fetched within [from, to].
func (s *MemoryStore) GetRange(place weather.Place, from, to time.Time) ([]weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Snapshot
	for _, snap := range s.data[place.Key()] {
		if snap.FetchedAt.Before(from) || snap.FetchedAt.After(to) {
			continue
		}
		result = append(result, snap)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

var _ weather.Store = (*MemoryStore)(nil)
