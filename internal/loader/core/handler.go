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

package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"graphloader/internal/loader/graph"
	"graphloader/pkg/logger"
)

// ErrFatal marks an item failure that aborts the whole phase.
var ErrFatal = errors.New("fatal item failure")

// ErrorHandler decides what a failed item means for its phase. Returning nil
// lets the worker continue with the next item; returning an error aborts the
// phase and cancels every sibling worker.
type ErrorHandler interface {
	Handle(ctx context.Context, phase graph.Phase, item string, err error) error
}

// RecoverableHandler logs the failure and carries on.
type RecoverableHandler struct {
	log logger.Logger
}

func (h RecoverableHandler) Handle(ctx context.Context, phase graph.Phase, item string, err error) error {
	h.log.Warn("item failed, continuing",
		zap.Stringer("phase", phase),
		zap.String("item", item),
		zap.Error(err))
	return nil
}

// FatalHandler turns every failure into an ErrFatal that aborts the phase.
type FatalHandler struct {
	log logger.Logger
}

func (h FatalHandler) Handle(ctx context.Context, phase graph.Phase, item string, err error) error {
	h.log.ErrorWithContext(ctx, "item failed, aborting phase",
		zap.Stringer("phase", phase),
		zap.String("item", item),
		zap.Error(err))
	return fmt.Errorf("%w: item %s: %w", ErrFatal, item, err)
}

// NewErrorHandler returns the handler selected by runtime.error-handler.
func NewErrorHandler(name string, log logger.Logger) (ErrorHandler, error) {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	switch name {
	case "", "recoverable":
		return RecoverableHandler{log: log}, nil
	case "fatal":
		return FatalHandler{log: log}, nil
	default:
		return nil, fmt.Errorf("unknown error handler: %s", name)
	}
}
