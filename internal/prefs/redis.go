package prefs

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/hpungsan/glean/internal/errors"
)

// Redis keeps settings as plain string keys under a prefix, so several
// observers can share one flag. Counters are shared the same way, so a
// counter written by each observer holds the last write.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis returns a Store using rdb. An empty prefix defaults to "glean:".
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "glean:"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Enabled(ctx context.Context) (bool, error) {
	v, err := r.get(ctx, EnabledKey)
	if err != nil {
		return false, err
	}
	return parseBool(v), nil
}

func (r *Redis) SetEnabled(ctx context.Context, enabled bool) error {
	return r.set(ctx, EnabledKey, strconv.FormatBool(enabled))
}

func (r *Redis) Counter(ctx context.Context, name string) (int64, error) {
	v, err := r.get(ctx, "counter:"+name)
	if err != nil {
		return 0, err
	}
	return parseInt(v), nil
}

func (r *Redis) SetCounter(ctx context.Context, name string, value int64) error {
	return r.set(ctx, "counter:"+name, strconv.FormatInt(value, 10))
}

// Client returns the underlying client for shutdown.
func (r *Redis) Client() *redis.Client {
	return r.rdb
}

func (r *Redis) get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.NewStoreUnavailable("redis get", err)
	}
	return v, nil
}

func (r *Redis) set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return errors.NewStoreUnavailable("redis set", err)
	}
	return nil
}
