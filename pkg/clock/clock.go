// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.


package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/gavv/monotime"
)

// MonotonicTime is a reading of a monotonic clock, unaffected by wall clock
// adjustments. Only differences between readings are meaningful.
type MonotonicTime time.Duration

// Clock is the time source of the status poller.
type Clock interface {
	bclock.Clock
	Mono() MonotonicTime
}

// New returns the system clock.
func New() Clock {
	return system{bclock.New()}
}

type system struct {
	bclock.Clock
}

func (system) Mono() MonotonicTime {
	return MonotonicTime(monotime.Now())
}

// Mock is a Clock advanced by hand. Its monotonic reading follows the mocked
// wall time, which starts at the unix epoch.
type Mock struct {
	*bclock.Mock
}

// NewMock returns a mock clock.
func NewMock() *Mock {
	return &Mock{bclock.NewMock()}
}

// Mono implements Clock.
func (m *Mock) Mono() MonotonicTime {
	return MonotonicTime(m.Now().UnixNano())
}

// Since returns the time elapsed on c since start.
func Since(c Clock, start MonotonicTime) time.Duration {
	return time.Duration(c.Mono() - start)
}
