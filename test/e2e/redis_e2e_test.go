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

//go:build e2e

package e2e

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// TestRedisE2E shares the id space through Redis and writes both phases to
// Redis lists. Requires a Redis at 127.0.0.1:6379.
func TestRedisE2E(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	defer rc.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping: Redis not reachable on 127.0.0.1:6379: %v", err)
	}

	const prefix = "e2e-graphloader"
	idKey := prefix + ":ids"
	_ = rc.Del(context.Background(), idKey, prefix+":vertices", prefix+":edges").Err()

	exe := buildLoader(t)
	runLoader(t, exe,
		"--output=redis",
		"--redis-addr=127.0.0.1:6379",
		"--redis-prefix="+prefix,
		"--id-driver=block",
		"--id-block-size=64",
		"--id-redis-addr=127.0.0.1:6379",
		"--set=driver.id.redis.key="+idKey,
		"--chunk-end=300",
		"--vertex-count=300",
	)

	n, err := rc.LLen(context.Background(), prefix+":vertices").Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if n != 300 {
		t.Fatalf("expected 300 vertex records, got %d", n)
	}
	reserved, err := rc.Get(context.Background(), idKey).Uint64()
	if err != nil {
		t.Fatalf("get %s: %v", idKey, err)
	}
	if reserved < 300 || reserved%64 != 0 {
		t.Fatalf("unexpected reserved id watermark %d", reserved)
	}
}
