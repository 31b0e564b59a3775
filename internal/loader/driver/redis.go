// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driver

import (
	"context"
	"errors"
	"fmt"
	"io"

	redis "github.com/redis/go-redis/v9"
)

// RedisEvaler abstracts the minimal surface we need from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9 (Cmdable.Eval) or any equivalent.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// GoRedisEvaler wraps a go-redis client. Use NewGoRedisEvaler with an
// address like "127.0.0.1:6379".
type GoRedisEvaler struct{ c *redis.Client }

func NewGoRedisEvaler(addr string) *GoRedisEvaler {
	return &GoRedisEvaler{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.c.Eval(ctx, script, keys, args...).Result()
}

// Close releases the underlying connection pool.
func (g *GoRedisEvaler) Close() error { return g.c.Close() }

// redisReserveScript advances the shared cursor by ARGV[1] and returns the new
// upper bound, or -1 when the reservation would pass ARGV[2] (0 = no limit).
const redisReserveScript = `
local size = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if limit > 0 and cur + size > limit then
  return -1
end
return redis.call('INCRBY', KEYS[1], size)
`

// RedisBlockAllocator reserves id blocks from a counter stored in Redis, so
// several loader processes can draw from one id space without collisions.
type RedisBlockAllocator struct {
	client RedisEvaler
	key    string
	limit  uint64
}

// NewRedisBlockAllocator reserves blocks under key. A non-zero limit caps the
// id space; reservations past it fail with ErrIDSpaceExhausted.
func NewRedisBlockAllocator(client RedisEvaler, key string, limit uint64) *RedisBlockAllocator {
	if key == "" {
		key = "graphloader:ids"
	}
	return &RedisBlockAllocator{client: client, key: key, limit: limit}
}

// Close closes the client when it owns a connection pool.
func (r *RedisBlockAllocator) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *RedisBlockAllocator) Allocate(ctx context.Context, size uint64) (uint64, error) {
	if size == 0 {
		return 0, errors.New("block size must be positive")
	}
	res, err := r.client.Eval(ctx, redisReserveScript, []string{r.key}, int64(size), int64(r.limit))
	if err != nil {
		return 0, fmt.Errorf("redis reserve key=%s: %w", r.key, err)
	}
	hi, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("redis reserve key=%s: unexpected reply %T", r.key, res)
	}
	if hi < 0 {
		return 0, ErrIDSpaceExhausted
	}
	return uint64(hi) - size, nil
}
