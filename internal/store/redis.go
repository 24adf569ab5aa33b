package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/i474232898/weather-matrix/internal/weather"
)

const (
	keyPrefix      = "weather:snapshots:"
	redisOpTimeout = 2 * time.Second
)

// RedisStore keeps snapshot history in a sorted set per place, scored by the
// fetch time in unix seconds.
type RedisStore struct {
	client     redis.Cmdable
	maxHistory int
	maxAge     time.Duration
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewRedisStore(client redis.Cmdable, maxHistory int, maxAge time.Duration, log *zap.SugaredLogger) *RedisStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RedisStore{
		client:     client,
		maxHistory: maxHistory,
		maxAge:     maxAge,
		log:        log,
		now:        time.Now,
	}
}

func redisKey(place weather.Place) string {
	return keyPrefix + place.Key()
}

// SaveSnapshot writes the snapshot and trims the set. Failures are logged:
// history is best effort and must not affect the display.
func (s *RedisStore) SaveSnapshot(place weather.Place, snapshot weather.Snapshot) {
	member, err := json.Marshal(snapshot)
	if err != nil {
		s.log.Errorw("Failed to encode snapshot", "place", place.Key(), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	key := redisKey(place)
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(snapshot.FetchedAt.Unix()), Member: string(member)})
		if s.maxHistory > 0 {
			pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.maxHistory-1))
		}
		if s.maxAge > 0 {
			cutoff := s.now().Add(-s.maxAge).Unix()
			pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		}
		return nil
	})
	if err != nil {
		s.log.Errorw("Failed to save snapshot", "place", place.Key(), "id", snapshot.ID, "error", err)
	}
}

func (s *RedisStore) GetLatest(place weather.Place) (weather.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	members, err := s.client.ZRevRange(ctx, redisKey(place), 0, 0).Result()
	if err != nil {
		return weather.Snapshot{}, err
	}
	if len(members) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}

	var snap weather.Snapshot
	if err := json.Unmarshal([]byte(members[0]), &snap); err != nil {
		return weather.Snapshot{}, err
	}
	return snap, nil
}

func (s *RedisStore) GetRange(place weather.Place, from, to time.Time) ([]weather.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	members, err := s.client.ZRangeByScore(ctx, redisKey(place), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.Unix(), 10),
		Max: strconv.FormatInt(to.Unix(), 10),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrNotFound
	}

	out := make([]weather.Snapshot, 0, len(members))
	for _, m := range members {
		var snap weather.Snapshot
		if err := json.Unmarshal([]byte(m), &snap); err != nil {
			s.log.Warnw("Skipping undecodable snapshot", "place", place.Key(), "error", err)
			continue
		}
		out = append(out, snap)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

var _ weather.Store = (*RedisStore)(nil)
