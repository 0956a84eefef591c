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

package replay

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/sage-x-project/sage-www-go/pkg/clock"
)

// MemoryGuard keeps seen keys in a process-local bigcache
type MemoryGuard struct {
	mu     sync.Mutex
	cache  *bigcache.BigCache
	clock  clock.Clock
	closed bool
}

// MemoryOption configures a MemoryGuard
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	clock       clock.Clock
	cleanWindow time.Duration
	shards      int
}

// WithClock sets the clock used for expiry
func WithClock(c clock.Clock) MemoryOption {
	return func(o *memoryOptions) { o.clock = c }
}

// WithCleanWindow sets how often expired entries are purged
func WithCleanWindow(d time.Duration) MemoryOption {
	return func(o *memoryOptions) { o.cleanWindow = d }
}

// NewMemoryGuard creates a MemoryGuard whose entries live at most
// lifeWindow. Keys are also expired individually by the ttl passed to Seen.
func NewMemoryGuard(lifeWindow time.Duration, opts ...MemoryOption) (*MemoryGuard, error) {
	o := memoryOptions{
		clock:       clock.NewSystem(),
		cleanWindow: time.Minute,
		shards:      64,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.Shards = o.shards
	cfg.CleanWindow = o.cleanWindow
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("replay: failed to create cache: %w", err)
	}
	return &MemoryGuard{cache: cache, clock: o.clock}, nil
}

// Seen implements Guard
func (g *MemoryGuard) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false, ErrClosed
	}

	now := g.clock.Now()
	entry, err := g.cache.Get(key)
	switch {
	case err == nil && len(entry) == 8:
		expires := time.Unix(0, int64(binary.BigEndian.Uint64(entry)))
		if now.Before(expires) {
			return true, nil
		}
	case err != nil && !errors.Is(err, bigcache.ErrEntryNotFound):
		return false, fmt.Errorf("replay: cache lookup failed: %w", err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(now.Add(ttl).UnixNano()))
	if err := g.cache.Set(key, buf[:]); err != nil {
		return false, fmt.Errorf("replay: cache store failed: %w", err)
	}
	return false, nil
}

// Len returns the number of stored keys, expired or not
func (g *MemoryGuard) Len() int {
	return g.cache.Len()
}

// Close releases the cache
func (g *MemoryGuard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.cache.Close()
}
