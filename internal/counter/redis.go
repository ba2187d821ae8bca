// Package counter is the ephemeral click counter store backed by Redis.
//
// Keys:
//
//	clicks:msg:<id>          clicks on one message since the last flush
//	clicks:daily:<YYYY-MM-DD> clicks on one calendar day since the last flush
//
// Increments use INCR only. The flush reads a key, writes the value to the
// database, then settles the key by subtracting what it wrote.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	MessagePrefix = "clicks:msg:"
	DailyPrefix   = "clicks:daily:"
	dayLayout     = "2006-01-02"
)

// MessageKey returns the counter key for message id.
func MessageKey(id uint64) string { return MessagePrefix + strconv.FormatUint(id, 10) }

// DailyKey returns the counter key for day (YYYY-MM-DD).
func DailyKey(day string) string { return DailyPrefix + day }

// Day formats t as a calendar date in loc.
func Day(t time.Time, loc *time.Location) string { return t.In(loc).Format(dayLayout) }

// ParseMessageKey extracts the message id from a clicks:msg: key.
func ParseMessageKey(key string) (uint64, bool) {
	s, ok := strings.CutPrefix(key, MessagePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// ParseDailyKey extracts and validates the date from a clicks:daily: key.
func ParseDailyKey(key string) (string, bool) {
	s, ok := strings.CutPrefix(key, DailyPrefix)
	if !ok {
		return "", false
	}
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", false
	}
	return s, true
}

// settleScript removes delta from a counter and deletes the key once it
// reaches zero. Increments that landed after the flush read survive.
var settleScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
local d = tonumber(ARGV[1])
if v <= d then
  redis.call('DEL', KEYS[1])
  return 0
end
return redis.call('DECRBY', KEYS[1], d)
`)

// RedisStore implements the counter store on a go-redis client.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Connect parses a redis:// URL, applies pool settings and pings.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 50
	opt.MinIdleConns = 5
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Incr atomically adds one to the message counter and the day counter and
// returns the new message count.
func (s *RedisStore) Incr(ctx context.Context, id uint64, day string) (int64, error) {
	var msg *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		msg = p.Incr(ctx, MessageKey(id))
		p.Incr(ctx, DailyKey(day))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return msg.Val(), nil
}

// Get returns a counter value; ok is false when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	n, err := s.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Keys lists every key starting with prefix using SCAN.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}

// Settle subtracts delta from key, deleting it when nothing remains.
func (s *RedisStore) Settle(ctx context.Context, key string, delta int64) error {
	return settleScript.Run(ctx, s.rdb, []string{key}, delta).Err()
}
