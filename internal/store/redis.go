package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
)

const (
	historyPrefix = "nocturne:history:"
	sessionsKey   = "nocturne:sessions"
)

// Redis keeps each session's history in a capped list that expires when the
// session goes quiet.
type Redis struct {
	rdb   *redis.Client
	log   *slog.Logger
	limit int
	ttl   time.Duration
}

// NewRedis connects to redis and verifies connectivity
func NewRedis(ctx context.Context, cfg config.Store, log *slog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return newRedis(rdb, cfg, log), nil
}

func newRedis(rdb *redis.Client, cfg config.Store, log *slog.Logger) *Redis {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 200
	}
	return &Redis{rdb: rdb, log: log, limit: limit, ttl: cfg.RedisTTL}
}

// Append pushes m and trims the list to the configured cap.
func (r *Redis) Append(ctx context.Context, m Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	key := historyKey(m.SessionID)

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, raw)
		pipe.LTrim(ctx, key, int64(-r.limit), -1)
		pipe.ZAdd(ctx, sessionsKey, redis.Z{Score: float64(m.CreatedAt.UnixMilli()), Member: m.SessionID})
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	return err
}

func (r *Redis) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}
	vals, err := r.rdb.LRange(ctx, historyKey(sessionID), int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(vals))
	for _, v := range vals {
		var m Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			r.log.Warn("store.redis.corrupt", "session", sessionID, "err", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Sessions lists sessions whose history has not expired, most recent first.
func (r *Redis) Sessions(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.ZRevRange(ctx, sessionsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	live := ids[:0]
	var stale []any
	for _, id := range ids {
		n, err := r.rdb.Exists(ctx, historyKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			stale = append(stale, id)
			continue
		}
		live = append(live, id)
	}
	if len(stale) > 0 {
		_ = r.rdb.ZRem(ctx, sessionsKey, stale...).Err()
	}
	return live, nil
}

// Close shuts down the redis connection
func (r *Redis) Close() error { return r.rdb.Close() }

func historyKey(sessionID string) string { return historyPrefix + sessionID }
