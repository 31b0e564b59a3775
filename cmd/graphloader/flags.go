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

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"graphloader/internal/loader/config"
)

// mustBindPFlag binds key to flag on v and panics if the binding fails.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

// bindRunFlags registers the run flags and binds each one to its config key.
// Flag defaults are read from cfg so the defaults live in one place.
func bindRunFlags(command *cobra.Command, cfg *config.Config, opts *runOptions) {
	v := cfg.Viper()
	flags := command.Flags()

	flags.StringVar(&opts.configFile, "config", "", "path to a YAML (or any viper supported) config file")
	flags.StringArrayVar(&opts.overrides, "set", nil, "override a config key, e.g. --set driver.chunk.end=5000 (repeatable)")

	flags.Int("threads", cfg.Int("runtime.threads"), "number of workers per phase")
	mustBindPFlag(v, "runtime.threads", flags.Lookup("threads"))

	flags.String("error-handler", cfg.String("runtime.error-handler"), "what a failed item does to its phase: recoverable or fatal")
	mustBindPFlag(v, "runtime.error-handler", flags.Lookup("error-handler"))

	flags.StringSlice("phases", cfg.StringSlice("runtime.phases"), "phases to run, in order")
	mustBindPFlag(v, "runtime.phases", flags.Lookup("phases"))

	flags.String("chunk-driver", cfg.String("driver.chunk.name"), "work chunk driver: range, list or file")
	mustBindPFlag(v, "driver.chunk.name", flags.Lookup("chunk-driver"))

	flags.Uint64("chunk-start", cfg.Uint64("driver.chunk.start"), "first item id of the range driver")
	mustBindPFlag(v, "driver.chunk.start", flags.Lookup("chunk-start"))

	flags.Uint64("chunk-end", cfg.Uint64("driver.chunk.end"), "item id one past the last of the range driver")
	mustBindPFlag(v, "driver.chunk.end", flags.Lookup("chunk-end"))

	flags.Int("chunk-size", cfg.Int("driver.chunk.size"), "items per work chunk")
	mustBindPFlag(v, "driver.chunk.size", flags.Lookup("chunk-size"))

	flags.Int("chunk-partitions", cfg.Int("driver.chunk.partitions"), "disjoint partitions of the range driver")
	mustBindPFlag(v, "driver.chunk.partitions", flags.Lookup("chunk-partitions"))

	flags.String("chunk-file", cfg.String("driver.chunk.file"), "newline separated item ids for the file driver")
	mustBindPFlag(v, "driver.chunk.file", flags.Lookup("chunk-file"))

	flags.StringSlice("chunk-items", cfg.StringSlice("driver.chunk.items"), "item ids served by the list driver")
	mustBindPFlag(v, "driver.chunk.items", flags.Lookup("chunk-items"))

	flags.Duration("close-timeout", cfg.Duration("driver.chunk.close-timeout"), "how long closing a chunk driver waits for outstanding chunks")
	mustBindPFlag(v, "driver.chunk.close-timeout", flags.Lookup("close-timeout"))

	flags.String("id-driver", cfg.String("driver.id.name"), "output id driver: counter, block or ulid")
	mustBindPFlag(v, "driver.id.name", flags.Lookup("id-driver"))

	flags.Uint64("id-start", cfg.Uint64("driver.id.start"), "first id of the counter and block drivers")
	mustBindPFlag(v, "driver.id.start", flags.Lookup("id-start"))

	flags.Uint64("id-limit", cfg.Uint64("driver.id.limit"), "ids a counter may issue per run; 0 is unbounded")
	mustBindPFlag(v, "driver.id.limit", flags.Lookup("id-limit"))

	flags.Uint64("id-block-size", cfg.Uint64("driver.id.block-size"), "ids reserved per block by the block driver")
	mustBindPFlag(v, "driver.id.block-size", flags.Lookup("id-block-size"))

	flags.String("id-redis-addr", cfg.String("driver.id.redis.addr"), "Redis address shared by block drivers of several processes")
	mustBindPFlag(v, "driver.id.redis.addr", flags.Lookup("id-redis-addr"))

	flags.String("vertex-label", cfg.String("emitter.vertex.label"), "label of generated vertices")
	mustBindPFlag(v, "emitter.vertex.label", flags.Lookup("vertex-label"))

	flags.Uint64("vertex-count", cfg.Uint64("emitter.vertex.count"), "size of the vertex space edges pick partners from")
	mustBindPFlag(v, "emitter.vertex.count", flags.Lookup("vertex-count"))

	flags.StringSlice("edge-labels", cfg.StringSlice("emitter.edge.labels"), "edge labels; each gets its own set of edges per item")
	mustBindPFlag(v, "emitter.edge.labels", flags.Lookup("edge-labels"))

	flags.Int("edge-degree", cfg.Int("emitter.edge.degree"), "edges per item and label")
	mustBindPFlag(v, "emitter.edge.degree", flags.Lookup("edge-degree"))

	flags.Uint64("edge-seed", cfg.Uint64("emitter.edge.seed"), "seed of the partner hash")
	mustBindPFlag(v, "emitter.edge.seed", flags.Lookup("edge-seed"))

	flags.String("encoder", cfg.String("encoder.name"), "element encoder: json or csv")
	mustBindPFlag(v, "encoder.name", flags.Lookup("encoder"))

	flags.String("output", cfg.String("output.name"), "output: log, jsonl, file, sqlite or redis")
	mustBindPFlag(v, "output.name", flags.Lookup("output"))

	flags.String("output-dir", cfg.String("output.dir"), "directory of the file outputs")
	mustBindPFlag(v, "output.dir", flags.Lookup("output-dir"))

	flags.String("sqlite-path", cfg.String("output.sqlite.path"), "database file of the sqlite output")
	mustBindPFlag(v, "output.sqlite.path", flags.Lookup("sqlite-path"))

	flags.String("redis-addr", cfg.String("output.redis.addr"), "Redis address of the redis output")
	mustBindPFlag(v, "output.redis.addr", flags.Lookup("redis-addr"))

	flags.String("redis-prefix", cfg.String("output.redis.prefix"), "key prefix of the redis output lists")
	mustBindPFlag(v, "output.redis.prefix", flags.Lookup("redis-prefix"))

	flags.String("log-format", cfg.String("log.format"), "log format: text or json")
	mustBindPFlag(v, "log.format", flags.Lookup("log-format"))

	flags.String("log-level", cfg.String("log.level"), "log level: none, debug, info, warn or error")
	mustBindPFlag(v, "log.level", flags.Lookup("log-level"))

	flags.String("metrics-addr", cfg.String("metrics.addr"), "if set, expose Prometheus /metrics on this address")
	mustBindPFlag(v, "metrics.addr", flags.Lookup("metrics-addr"))

	flags.String("status-addr", cfg.String("status.addr"), "if set, serve /status, /healthz and /metrics on this address")
	mustBindPFlag(v, "status.addr", flags.Lookup("status-addr"))
}
