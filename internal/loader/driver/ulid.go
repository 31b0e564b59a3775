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
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDDriver issues monotonic ULIDs. The entropy source is shared, so Next
// serializes on a mutex.
type ULIDDriver struct {
	open   atomic.Bool
	issued atomic.Uint64

	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewULIDDriver() *ULIDDriver {
	return &ULIDDriver{now: time.Now}
}

func (d *ULIDDriver) Open(_ context.Context) error {
	d.mu.Lock()
	d.entropy = ulid.Monotonic(rand.Reader, 0)
	d.mu.Unlock()
	d.open.Store(true)
	return nil
}

func (d *ULIDDriver) Next(_ context.Context) (OutputID, bool, error) {
	if !d.open.Load() {
		return OutputID{}, false, ErrNotInitialized
	}
	d.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(d.now()), d.entropy)
	d.mu.Unlock()
	if err != nil {
		return OutputID{}, false, fmt.Errorf("%w: %w", ErrIDSpaceExhausted, err)
	}
	d.issued.Add(1)
	return OutputID{raw: id}, true, nil
}

func (d *ULIDDriver) Close(_ context.Context) error {
	d.open.Store(false)
	d.issued.Store(0)
	return nil
}

func (d *ULIDDriver) Issued() uint64 { return d.issued.Load() }
