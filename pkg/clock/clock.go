// Copyright (C) 2025 SAGE-X Project
//
// This file is part of sage-www-go.
//
// sage-www-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// sage-www-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with sage-www-go.  If not, see <https://www.gnu.org/licenses/>.

// Package clock provides the time sources used for request timestamps and
// window checks.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System uses the local wall clock.
type System struct{}

// NewSystem creates a System clock
func NewSystem() *System { return &System{} }

func (System) Now() time.Time { return time.Now() }

// Mock is a test clock whose time only moves when told to.
type Mock struct {
	mu      sync.Mutex
	current time.Time
}

// NewMock creates a Mock clock at initial
func NewMock(initial time.Time) *Mock { return &Mock{current: initial} }

func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t
func (c *Mock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

var (
	_ Clock = System{}
	_ Clock = (*Mock)(nil)
	_ Clock = (*NTP)(nil)
)
