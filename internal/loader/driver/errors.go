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

// Package driver hands out work and identifiers to the workers of a phase.
//
// A WorkChunkDriver splits the input of a phase into disjoint, single-owner
// WorkChunks and tracks which of them are outstanding. An OutputIDDriver
// issues identifiers that are unique for the lifetime of one run. Both are
// opened once per run and closed afterwards; closing resets every counter so
// the next run starts clean.
package driver

import "errors"

var (
	// ErrNotInitialized is returned by every data method called before Init/Open
	// completed or after Close.
	ErrNotInitialized = errors.New("driver not initialized")

	// ErrUnknownChunk is returned when a chunk id is acknowledged that is not outstanding.
	ErrUnknownChunk = errors.New("chunk is not outstanding")

	// ErrOutstandingChunks is returned by Close when chunks were still
	// outstanding once the drain timeout elapsed.
	ErrOutstandingChunks = errors.New("chunks still outstanding at close")

	// ErrIDSpaceExhausted is returned when an unbounded id driver cannot issue
	// another identifier.
	ErrIDSpaceExhausted = errors.New("output id space exhausted")

	// ErrUnknownDriver is returned by the registries for an unregistered name.
	ErrUnknownDriver = errors.New("unknown driver")
)
