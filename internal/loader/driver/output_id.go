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
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// OutputID wraps the underlying representation of a freshly issued
// identifier. Two OutputIDs are equal when their wrapped values are equal.
type OutputID struct {
	raw any
}

// NumericID wraps a numeric identifier.
func NumericID(v uint64) OutputID { return OutputID{raw: v} }

// StringID wraps a string identifier.
func StringID(v string) OutputID { return OutputID{raw: v} }

// Value returns the wrapped identifier.
func (o OutputID) Value() any { return o.raw }

// IsZero reports whether o wraps nothing.
func (o OutputID) IsZero() bool { return o.raw == nil }

func (o OutputID) String() string {
	switch v := o.raw.(type) {
	case nil:
		return ""
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// OutputIDDriver issues identifiers that are unique for the lifetime of one
// run across all goroutines. Next returns false only for a driver that was
// explicitly bounded and reached the end of its range.
type OutputIDDriver interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (OutputID, bool, error)
	Close(ctx context.Context) error
	Issued() uint64
}

// CounterIDDriver issues Start, Start+1, ... from a single atomic counter.
type CounterIDDriver struct {
	start uint64
	limit uint64 // 0 = unbounded

	open   atomic.Bool
	count  atomic.Uint64
	issued atomic.Uint64
}

// NewCounterIDDriver returns a counter starting at start. A non-zero limit
// bounds the number of ids the driver will issue per run.
func NewCounterIDDriver(start, limit uint64) *CounterIDDriver {
	return &CounterIDDriver{start: start, limit: limit}
}

func (d *CounterIDDriver) Open(_ context.Context) error {
	d.open.Store(true)
	return nil
}

func (d *CounterIDDriver) Next(_ context.Context) (OutputID, bool, error) {
	if !d.open.Load() {
		return OutputID{}, false, ErrNotInitialized
	}
	n := d.count.Add(1)
	if d.limit > 0 && n > d.limit {
		return OutputID{}, false, nil
	}
	// n == 0 means the counter itself wrapped
	if n == 0 || n-1 > math.MaxUint64-d.start {
		return OutputID{}, false, ErrIDSpaceExhausted
	}
	d.issued.Add(1)
	return NumericID(d.start + n - 1), true, nil
}

// Close resets the counter so the next run starts from Start again.
func (d *CounterIDDriver) Close(_ context.Context) error {
	d.open.Store(false)
	d.count.Store(0)
	d.issued.Store(0)
	return nil
}

func (d *CounterIDDriver) Issued() uint64 { return d.issued.Load() }
