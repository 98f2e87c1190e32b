package memorydb

import (
	"context"
	"errors"
	"time"

	"rag-worker/cmd/configs"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by a pop that found no message
var ErrQueueEmpty = errors.New("queue is empty")

// BlockTimeout bounds a single BRPOP so callers get a chance to observe ctx
const BlockTimeout = time.Second

type RedisClient struct {
	client redis.UniversalClient
}

func NewRedisClient(ctx context.Context, config *configs.Config) (*RedisClient, error) {
	// Use UniversalClient which works with both standalone and cluster Redis
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{config.MemoryDBRedisURL},
		Username:     config.MemoryDBRedisUsername,
		Password:     config.MemoryDBRedisPassword,
		ReadTimeout:  time.Second * 5,
		WriteTimeout: time.Second * 5,
		PoolSize:     10,
		// Honor ctx deadlines on reads, including blocking pops
		ContextTimeoutEnabled: true,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisClient{client: client}, nil
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// LPush prepends a message to a list
func (r *RedisClient) LPush(ctx context.Context, queue string, payload []byte) error {
	return r.client.LPush(ctx, queue, payload).Err()
}

// BRPop waits up to BlockTimeout for a message on queue. It returns ErrQueueEmpty
// when none arrived, so an indefinite wait is a loop of BRPop calls that checks ctx
// in between.
func (r *RedisClient) BRPop(ctx context.Context, queue string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := r.client.BRPop(ctx, BlockTimeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}
	// [key, value]
	if len(res) < 2 {
		return nil, ErrQueueEmpty
	}
	return []byte(res[1]), nil
}

// RPop removes the oldest message without blocking
func (r *RedisClient) RPop(ctx context.Context, queue string) ([]byte, error) {
	res, err := r.client.RPop(ctx, queue).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}
	return res, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
