package session

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const sessionHashKey = "console:session"

// RedisRepo keeps the persisted session keys in a single Redis hash, so a
// multi-field HSET gives the all-or-nothing batch semantics Repo requires.
type RedisRepo struct {
	rdb *redis.Client
}

// NewRedisRepo creates a Redis-backed session repository.
func NewRedisRepo(rdb *redis.Client) *RedisRepo {
	return &RedisRepo{rdb: rdb}
}

func (r *RedisRepo) SetAll(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	fields := make([]any, 0, len(values)*2)
	for k, v := range values {
		fields = append(fields, k, v)
	}
	if err := r.rdb.HSet(ctx, sessionHashKey, fields...).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.SetAll] HSET")
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, sessionHashKey, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[RedisRepo.Get] HGET")
	}
	return v, true, nil
}

func (r *RedisRepo) DeleteSuffix(ctx context.Context, suffix string) (int, error) {
	keys, err := r.Keys(ctx)
	if err != nil {
		return 0, err
	}
	var matched []string
	for _, k := range keys {
		if strings.HasSuffix(k, suffix) {
			matched = append(matched, k)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	removed, err := r.rdb.HDel(ctx, sessionHashKey, matched...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "[RedisRepo.DeleteSuffix] HDEL")
	}
	return int(removed), nil
}

func (r *RedisRepo) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.rdb.HKeys(ctx, sessionHashKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[RedisRepo.Keys] HKEYS")
	}
	return keys, nil
}
