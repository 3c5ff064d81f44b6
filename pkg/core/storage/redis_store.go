package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
	"github.com/redis/go-redis/v9"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	redisTimeout   = 5 * time.Second
	redisBatchSize = 1000
	// Keys are kept in a sorted set with equal scores to get memcmp ordering
	// for Seek, values are stored separately.
	redisIndexKey = "keys"
	redisValueKey = "v:"
)

// RedisStore is the storage implementation backed by Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a new initialized (and ready to use) RedisStore object.
func NewRedisStore(cfg dbconfig.RedisDBOptions) (*RedisStore, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: c, prefix: cfg.Prefix}, nil
}

func (s *RedisStore) indexKey() string {
	return s.prefix + redisIndexKey
}

func (s *RedisStore) valueKey(k string) string {
	return s.prefix + redisValueKey + k
}

// Get implements the Store interface.
func (s *RedisStore) Get(k []byte) ([]byte, error) {
	val, err := s.client.Get(context.Background(), s.valueKey(string(k))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

// PutChangeSet implements the Store interface. All changes are applied in
// a single MULTI/EXEC transaction.
func (s *RedisStore) PutChangeSet(puts map[string][]byte) error {
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	for k, v := range puts {
		if v != nil {
			pipe.Set(ctx, s.valueKey(k), v, 0)
			pipe.ZAdd(ctx, s.indexKey(), redis.Z{Member: k})
		} else {
			pipe.Del(ctx, s.valueKey(k))
			pipe.ZRem(ctx, s.indexKey(), k)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Seek implements the Store interface.
func (s *RedisStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	var (
		ctx  = context.Background()
		rang = seekRangeToPrefixes(rng)
		by   = lexRange(rang)
		keys []string
		err  error
	)
	if rng.Backwards {
		keys, err = s.client.ZRevRangeByLex(ctx, s.indexKey(), by).Result()
	} else {
		keys, err = s.client.ZRangeByLex(ctx, s.indexKey(), by).Result()
	}
	if err != nil {
		panic(fmt.Errorf("redis seek: %w", err))
	}
	for len(keys) > 0 {
		batch := keys[:min(len(keys), redisBatchSize)]
		keys = keys[len(batch):]

		vkeys := make([]string, len(batch))
		for i := range batch {
			vkeys[i] = s.valueKey(batch[i])
		}
		vals, err := s.client.MGet(ctx, vkeys...).Result()
		if err != nil {
			panic(fmt.Errorf("redis seek: %w", err))
		}
		for i := range batch {
			v, ok := vals[i].(string)
			if !ok {
				// Deleted concurrently.
				continue
			}
			if !f([]byte(batch[i]), []byte(v)) {
				return
			}
		}
	}
}

// lexRange converts key range into ZRANGEBYLEX bounds.
func lexRange(rang *util.Range) *redis.ZRangeBy {
	by := &redis.ZRangeBy{Min: "-", Max: "+"}
	if len(rang.Start) != 0 {
		by.Min = "[" + string(rang.Start)
	}
	if len(rang.Limit) != 0 {
		by.Max = "(" + string(rang.Limit)
	}
	return by
}

// Close implements the Store interface.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
