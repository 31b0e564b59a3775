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

// Package config holds the loader's dot-namespaced settings. Values resolve
// in viper order: explicit Set/Merge/Override, flags, environment
// (GRAPHLOADER_RUNTIME_THREADS for runtime.threads), config file, defaults.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "GRAPHLOADER"

// Config wraps a private viper instance so several runs in one process never
// share state.
type Config struct {
	v *viper.Viper
}

// New returns a Config with every default registered and environment lookup enabled.
func New() *Config {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	return &Config{v: v}
}

// Defaults lists every known key with its default value.
func Defaults() map[string]any {
	return map[string]any{
		"runtime.threads":       4,
		"runtime.error-handler": "recoverable",
		"runtime.phases":        []string{"vertices", "edges"},

		"driver.chunk.name":          "range",
		"driver.chunk.start":         0,
		"driver.chunk.end":           1000,
		"driver.chunk.size":          100,
		"driver.chunk.partitions":    1,
		"driver.chunk.file":          "",
		"driver.chunk.items":         []string{},
		"driver.chunk.close-timeout": 30 * time.Second,

		"driver.id.name":       "counter",
		"driver.id.start":      1,
		"driver.id.limit":      0,
		"driver.id.block-size": 1024,
		"driver.id.redis.addr": "",
		"driver.id.redis.key":  "graphloader:ids",

		"emitter.vertex.label": "vertex",
		"emitter.vertex.count": 1000,
		"emitter.edge.labels":  []string{"knows"},
		"emitter.edge.degree":  2,
		"emitter.edge.seed":    0,

		"encoder.name": "json",

		"output.name":         "log",
		"output.dir":          "out",
		"output.sqlite.path":  "graphloader.db",
		"output.redis.addr":   "127.0.0.1:6379",
		"output.redis.prefix": "graphloader",

		"log.format": "text",
		"log.level":  "info",

		"metrics.addr": "",
		"status.addr":  "",
	}
}

// Load merges the YAML (or any viper supported format) file at path.
func (c *Config) Load(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.MergeInConfig(); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	return nil
}

// Viper exposes the underlying instance, e.g. for flag binding.
func (c *Config) Viper() *viper.Viper { return c.v }

func (c *Config) Set(key string, value any) { c.v.Set(key, value) }

// Merge applies every entry of m as an override. Nested maps are flattened
// into dotted keys.
func (c *Config) Merge(m map[string]any) {
	flatten("", m, c.v.Set)
}

func flatten(prefix string, m map[string]any, set func(string, any)) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flatten(key, nested, set)
			continue
		}
		set(key, val)
	}
}

// Override applies "key=value" pairs. A value holding commas becomes a list.
func (c *Config) Override(pairs ...string) error {
	for _, p := range pairs {
		k, val, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("invalid override %q: want key=value", p)
		}
		if strings.Contains(val, ",") {
			parts := strings.Split(val, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			c.v.Set(k, parts)
			continue
		}
		c.v.Set(k, strings.TrimSpace(val))
	}
	return nil
}

// Keys returns every known key in sorted order.
func (c *Config) Keys() []string {
	keys := c.v.AllKeys()
	sort.Strings(keys)
	return keys
}

func (c *Config) Get(key string) any                { return c.v.Get(key) }
func (c *Config) String(key string) string          { return c.v.GetString(key) }
func (c *Config) Int(key string) int                { return c.v.GetInt(key) }
func (c *Config) Uint64(key string) uint64          { return c.v.GetUint64(key) }
func (c *Config) Duration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *Config) StringSlice(key string) []string   { return c.v.GetStringSlice(key) }
func (c *Config) IsSet(key string) bool             { return c.v.IsSet(key) }

// Settings decodes the whole tree into typed sections.
func (c *Config) Settings() (Settings, error) {
	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
