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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"graphloader/internal/loader/api"
	"graphloader/internal/loader/config"
	"graphloader/internal/loader/core"
	"graphloader/internal/loader/telemetry"
	"graphloader/pkg/logger"
)

type runOptions struct {
	configFile string
	overrides  []string
}

func newRunCommand() *cobra.Command {
	cfg := config.New()
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured phases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}
	bindRunFlags(cmd, cfg, opts)
	return cmd
}

func runLoad(ctx context.Context, out io.Writer, cfg *config.Config, opts *runOptions) error {
	if opts.configFile != "" {
		if err := cfg.Load(opts.configFile); err != nil {
			return err
		}
	}
	if err := cfg.Override(opts.overrides...); err != nil {
		return err
	}
	s, err := cfg.Settings()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewLogger(s.Log.Format, s.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var servers []*http.Server
	defer func() { shutdown(log, servers) }()
	if srv := telemetry.Enable(telemetry.Config{
		Enabled:     s.Metrics.Addr != "" || s.Status.Addr != "",
		MetricsAddr: s.Metrics.Addr,
	}); srv != nil {
		servers = append(servers, srv)
	}

	task, err := core.Build(s, log, out)
	if err != nil {
		return err
	}
	log.Info("run started",
		zap.String("run_id", task.RunID()),
		zap.Strings("phases", s.Runtime.Phases),
		zap.Int("threads", s.Runtime.Threads))

	board := api.NewStatusBoard(task.RunID())
	if s.Status.Addr != "" {
		servers = append(servers, api.NewServer(board, log).Start(s.Status.Addr))
	}

	for st := range task.Run(ctx) {
		board.Record(st)
		log.Info("phase reported", zap.Any("phase", st["phase"]), zap.Any("status", st["status"]))
	}
	board.Finish()

	closeErr := task.Close()
	if closeErr != nil {
		log.Error("close output", zap.Error(closeErr))
	}
	core.PrintSummary(out, task.RunID(), task.Statuses())
	return errors.Join(task.Err(), closeErr)
}

func shutdown(log logger.Logger, servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("server shutdown", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
}
