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

package output

import (
	"context"
	"errors"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"graphloader/internal/loader/graph"
)

// RedisLister abstracts the minimal surface we need from a Redis client.
type RedisLister interface {
	RPush(ctx context.Context, key string, values ...interface{}) error
	Close() error
}

// GoRedisLister wraps a go-redis client.
type GoRedisLister struct{ c *redis.Client }

func NewGoRedisLister(addr string) *GoRedisLister {
	return &GoRedisLister{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisLister) RPush(ctx context.Context, key string, values ...interface{}) error {
	return g.c.RPush(ctx, key, values...).Err()
}

func (g *GoRedisLister) Close() error { return g.c.Close() }

const redisBatchSize = 256

// RedisOutput appends record bodies to the list <prefix>:<phase>. Bodies are
// pushed in batches; Flush pushes whatever is buffered for the phase.
type RedisOutput struct {
	client RedisLister
	prefix string

	mu      sync.Mutex
	pending map[graph.Phase][]interface{}
}

func NewRedisOutput(client RedisLister, prefix string) *RedisOutput {
	if prefix == "" {
		prefix = "graphloader"
	}
	return &RedisOutput{client: client, prefix: prefix, pending: make(map[graph.Phase][]interface{})}
}

// Key returns the list that receives the records of phase.
func (r *RedisOutput) Key(phase graph.Phase) string {
	return r.prefix + ":" + phase.String()
}

func (r *RedisOutput) Write(ctx context.Context, phase graph.Phase, rec Record) error {
	r.mu.Lock()
	r.pending[phase] = append(r.pending[phase], string(rec.Body))
	var batch []interface{}
	if len(r.pending[phase]) >= redisBatchSize {
		batch = r.pending[phase]
		r.pending[phase] = nil
	}
	r.mu.Unlock()
	if batch == nil {
		return nil
	}
	return r.client.RPush(ctx, r.Key(phase), batch...)
}

func (r *RedisOutput) Flush(ctx context.Context, phase graph.Phase) error {
	r.mu.Lock()
	batch := r.pending[phase]
	delete(r.pending, phase)
	r.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return r.client.RPush(ctx, r.Key(phase), batch...)
}

func (r *RedisOutput) Close() error {
	var errs []error
	for _, phase := range graph.Phases {
		errs = append(errs, r.Flush(context.Background(), phase))
	}
	errs = append(errs, r.client.Close())
	return errors.Join(errs...)
}
