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

package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultNTPServer    = "pool.ntp.org"
	DefaultSyncInterval = 10 * time.Minute

	backoffInitial = 5 * time.Second
	backoffMax     = 5 * time.Minute
)

// QueryFunc returns the offset of the local clock against a time server.
type QueryFunc func(server string) (time.Duration, error)

// NTP corrects the local clock by the offset last measured against an NTP
// server. A request signed with a skewed clock is rejected by the server's
// timestamp window, so long-running clients resynchronize periodically.
// Resyncs run in the background: Now never waits on the network and serves
// the last known offset while a query is in flight.
type NTP struct {
	server       string
	syncInterval time.Duration
	query        QueryFunc
	base         func() time.Time

	mu        sync.Mutex
	offset    time.Duration
	lastSync  time.Time
	backoff   time.Duration
	lastError error
	syncing   bool

	// refreshes tracks background resyncs
	refreshes sync.WaitGroup
}

// NTPOption configures an NTP clock
type NTPOption func(*NTP)

// WithQueryFunc replaces the NTP query, mainly for tests
func WithQueryFunc(q QueryFunc) NTPOption {
	return func(c *NTP) { c.query = q }
}

// WithBase replaces the local time source
func WithBase(base func() time.Time) NTPOption {
	return func(c *NTP) { c.base = base }
}

// NewNTP creates an NTP clock and performs the first sync. A failed first
// sync is not fatal: the offset stays zero and is retried with backoff.
func NewNTP(server string, syncInterval time.Duration, opts ...NTPOption) *NTP {
	if server == "" {
		server = DefaultNTPServer
	}
	if syncInterval <= 0 {
		syncInterval = DefaultSyncInterval
	}
	c := &NTP{
		server:       server,
		syncInterval: syncInterval,
		query:        queryOffset,
		base:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	_ = c.Sync()
	return c
}

func queryOffset(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// Now returns the corrected time. When a resync is due it is started in
// the background and the current offset is used meanwhile.
func (c *NTP) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dueLocked() {
		c.syncing = true
		c.refreshes.Add(1)
		go c.refresh()
	}
	return c.base().Add(c.offset)
}

// Sync forces a query regardless of the sync interval and waits for it
func (c *NTP) Sync() error {
	offset, err := c.query(c.server)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(offset, err)
}

// Offset returns the last measured offset. Positive means the local clock
// is behind the server.
func (c *NTP) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Health reports the current offset and sync state
func (c *NTP) Health() (healthy bool, offset time.Duration, lastSync time.Time, lastError error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError == nil, c.offset, c.lastSync, c.lastError
}

func (c *NTP) dueLocked() bool {
	if c.syncing {
		return false
	}
	effective := c.syncInterval
	if c.backoff > 0 {
		effective = c.backoff
	}
	return c.base().Sub(c.lastSync) >= effective
}

func (c *NTP) refresh() {
	defer c.refreshes.Done()
	offset, err := c.query(c.server)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncing = false
	_ = c.applyLocked(offset, err)
}

// applyLocked records the outcome of a query. lastSync advances on failure
// too, so the backoff is measured from the attempt.
func (c *NTP) applyLocked(offset time.Duration, err error) error {
	c.lastSync = c.base()
	if err != nil {
		err = fmt.Errorf("ntp query %s: %w", c.server, err)
		c.lastError = err
		if c.backoff == 0 {
			c.backoff = backoffInitial
		} else {
			c.backoff *= 2
		}
		if c.backoff > backoffMax {
			c.backoff = backoffMax
		}
		return err
	}
	c.offset = offset
	c.backoff = 0
	c.lastError = nil
	return nil
}
